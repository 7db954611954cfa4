package valparse

import (
	"github.com/csvcolumns/ingest/internal/byteslice"
)

// TimeUnit selects the unit a timestamp-as-long cell is expressed in;
// ParseTimestamp always normalizes its result to nanoseconds (§4.4
// "Timestamp-as-long").
type TimeUnit uint8

const (
	UnitSeconds TimeUnit = iota
	UnitMillis
	UnitMicros
	UnitNanos
)

func (u TimeUnit) scale() int64 {
	switch u {
	case UnitSeconds:
		return 1_000_000_000
	case UnitMillis:
		return 1_000_000
	case UnitMicros:
		return 1_000
	default:
		return 1
	}
}

// ParseTimestamp interprets the whole cell as a signed decimal integer in
// the given unit, normalized to nanoseconds since the Unix epoch.
func ParseTimestamp(s byteslice.ByteSlice, unit TimeUnit) (ns int64, ok bool) {
	v, ok := ParseInt64(s)
	if !ok {
		return 0, false
	}
	scale := unit.scale()
	result := v * scale
	if scale != 0 && result/scale != v {
		return 0, false // overflowed nanosecond range
	}
	return result, true
}

// ZoneOffset is a fixed UTC offset in seconds, as returned by a built-in
// "Z"/"±HHMM" zone suffix match or a CustomTimeZoneParser.
type ZoneOffset struct {
	OffsetSeconds int32
}

// CustomTimeZoneParser lets the caller recognize additional zone suffixes
// (§4.4 "DateTime"). It consumes a prefix of the remaining slice and
// reports how many bytes it consumed.
type CustomTimeZoneParser func(remaining byteslice.ByteSlice) (zone ZoneOffset, consumed int, ok bool)

// ParseDateTime accepts the ISO-8601 variants enumerated in §4.4: date with
// or without '-' separators, 'T' or ' ' as the date/time separator, a time
// component of 2, 4, or 6 digits (written without separators or as hh:mm /
// hh:mm:ss) with up to 9 fractional-second digits, and a zone suffix of 'Z', '±HHMM', or whatever customZone
// recognizes. The result is nanoseconds since the Unix epoch.
func ParseDateTime(s byteslice.ByteSlice, customZone CustomTimeZoneParser) (ns int64, ok bool) {
	b := s.Bytes()
	p := &dtParser{b: b}

	year, ok := p.digits(4)
	if !ok {
		return 0, false
	}
	dashed := p.consumeByte('-')
	month, ok := p.digits(2)
	if !ok {
		return 0, false
	}
	if dashed && !p.consumeByte('-') {
		return 0, false
	}
	day, ok := p.digits(2)
	if !ok {
		return 0, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, false
	}

	hour, min, sec, nanos := 0, 0, 0, 0
	if p.i < len(p.b) {
		if p.b[p.i] != 'T' && p.b[p.i] != ' ' {
			return 0, false
		}
		p.i++
		timeDigits, tok := p.timeDigitRun()
		if !tok {
			return 0, false
		}
		switch len(timeDigits) {
		case 2:
			hour = atoi2(timeDigits)
		case 4:
			hour, min = atoi2(timeDigits[0:2]), atoi2(timeDigits[2:4])
		case 6:
			hour, min, sec = atoi2(timeDigits[0:2]), atoi2(timeDigits[2:4]), atoi2(timeDigits[4:6])
		default:
			return 0, false
		}
		if hour > 23 || min > 59 || sec > 60 {
			return 0, false
		}
		if p.consumeByte('.') {
			fracStart := p.i
			for p.i < len(p.b) && isDigit(p.b[p.i]) {
				p.i++
			}
			frac := p.b[fracStart:p.i]
			if len(frac) == 0 || len(frac) > 9 {
				return 0, false
			}
			nanos = fracToNanos(frac)
		}
	}

	offsetSeconds := 0
	if p.i < len(p.b) {
		switch p.b[p.i] {
		case 'Z':
			p.i++
		case '+', '-':
			sign := 1
			if p.b[p.i] == '-' {
				sign = -1
			}
			p.i++
			hh, ok := p.digits(2)
			if !ok {
				return 0, false
			}
			mm := 0
			if p.i < len(p.b) && isDigit(p.b[p.i]) {
				mm, ok = p.digits(2)
				if !ok {
					return 0, false
				}
			}
			offsetSeconds = sign * (hh*3600 + mm*60)
		default:
			if customZone != nil {
				zone, consumed, zok := customZone(byteslice.FromBytes(p.b[p.i:]))
				if !zok {
					return 0, false
				}
				offsetSeconds = int(zone.OffsetSeconds)
				p.i += consumed
			} else {
				return 0, false
			}
		}
	}
	if p.i != len(p.b) {
		return 0, false
	}

	days := daysFromCivil(year, month, day)
	totalSeconds := days*86400 + hour*3600 + min*60 + sec - offsetSeconds
	return int64(totalSeconds)*1_000_000_000 + int64(nanos), true
}

type dtParser struct {
	b    []byte
	i    int
	tbuf [6]byte
}

func (p *dtParser) consumeByte(c byte) bool {
	if p.i < len(p.b) && p.b[p.i] == c {
		p.i++
		return true
	}
	return false
}

func (p *dtParser) digits(n int) (int, bool) {
	if p.i+n > len(p.b) {
		return 0, false
	}
	v := 0
	for k := 0; k < n; k++ {
		c := p.b[p.i+k]
		if !isDigit(c) {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	p.i += n
	return v, true
}

// timeDigitRun reads the time component and returns its 2, 4, or 6 digits:
// hh, hhmm, or hhmmss in the ISO-8601 basic format, or hh:mm / hh:mm:ss in
// the extended format.
func (p *dtParser) timeDigitRun() ([]byte, bool) {
	start := p.i
	for p.i < len(p.b) && (isDigit(p.b[p.i]) || p.b[p.i] == ':') {
		p.i++
	}
	run := p.b[start:p.i]
	extended := len(run) > 2 && run[2] == ':'
	if extended && len(run) != 5 && len(run) != 8 {
		return nil, false
	}
	out := p.tbuf[:0]
	for k, c := range run {
		if (extended && k%3 == 2) != (c == ':') {
			return nil, false
		}
		if c != ':' {
			out = append(out, c)
		}
	}
	if n := len(out); n != 2 && n != 4 && n != 6 {
		return nil, false
	}
	return out, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func atoi2(b []byte) int {
	v := 0
	for _, c := range b {
		v = v*10 + int(c-'0')
	}
	return v
}

func fracToNanos(frac []byte) int {
	v := atoi2(frac)
	for i := len(frac); i < 9; i++ {
		v *= 10
	}
	return v
}

// daysFromCivil converts a Gregorian calendar date to a day count relative
// to the Unix epoch (1970-01-01), using Howard Hinnant's well-known
// civil_from_days inverse algorithm so leap years are handled without a
// time.Date round-trip per cell.
func daysFromCivil(y, m, d int) int64 {
	yy := int64(y)
	if m <= 2 {
		yy--
	}
	era := yy
	if era < 0 {
		era -= 399
	}
	era /= 400
	yoe := yy - era*400
	var mp int64
	if int64(m) > 2 {
		mp = int64(m) - 3
	} else {
		mp = int64(m) + 9
	}
	doy := (153*mp+2)/5 + int64(d) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}
