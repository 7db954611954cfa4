package tokenize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/csvcolumns/ingest/internal/ambient"
	"github.com/csvcolumns/ingest/internal/byteslice"
)

// DelimitedOptions configures the RFC-4180-style grabber (§4.1). The quoting
// state machine below is grounded on oleg578/swiftcsv's Reader: a single
// pass over buffered input bytes, toggling a quoted flag, with doubled
// quotes unescaped inline and CRLF collapsed to one row terminator.
type DelimitedOptions struct {
	Options
	Delimiter byte
	Quote     byte
}

func (o DelimitedOptions) withDefaults() DelimitedOptions {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	o.Options = o.Options.withDefaults()
	return o
}

// Validate runs the delimited-mode cross-field checks from §6.
func (o DelimitedOptions) Validate() []error {
	var errs []error
	errs = append(errs, ValidateDelimiterQuote(o.Delimiter, o.Quote)...)
	if !o.Options.HasHeaderRow && o.Options.SkipHeaderRows != 0 {
		errs = append(errs, ErrBadSkipHeaderRows)
	}
	return errs
}

// NewDelimited builds a Grabber reading RFC-4180-style input from r.
func NewDelimited(r io.Reader, opts DelimitedOptions) (*Grabber, error) {
	opts = opts.withDefaults()
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, combineErrors(errs)
	}
	src := &delimitedSource{
		r:         bufio.NewReaderSize(r, 64*1024),
		delimiter: opts.Delimiter,
		quote:     opts.Quote,
		trim:      opts.Trim,
		ignoreWS:  opts.IgnoreSurroundingSpaces,
		line:      1,
		buf:       byteslice.NewBuffer(512),
	}
	return NewGrabber(opts.Options, src), nil
}

type delimitedSource struct {
	r         *bufio.Reader
	delimiter byte
	quote     byte
	trim      bool
	ignoreWS  bool
	line      int64
	eof       bool
	buf       *byteslice.Buffer
}

func (d *delimitedSource) peekByte() (byte, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *delimitedSource) readByte() (byte, error) {
	return d.r.ReadByte()
}

// nextRawRow implements rowSource for delimited input.
func (d *delimitedSource) nextRawRow() ([]rawCell, int64, bool, error) {
	if d.eof {
		return nil, 0, false, nil
	}
	startLine := d.line
	d.buf.Reset()

	// A physical line with nothing on it before the terminator is a
	// zero-cell empty row (§4.1 rule 6), distinct from a row holding one
	// empty field.
	if b, err := d.peekByte(); err == nil && (b == '\n' || b == '\r') {
		if err := d.consumeRowTerminatorByte(b); err != nil {
			return nil, 0, false, err
		}
		return []rawCell{}, startLine, true, nil
	} else if err == io.EOF {
		d.eof = true
		return nil, 0, false, nil
	} else if err != nil {
		return nil, 0, false, err
	}

	var cells []rawCell
	for {
		quoted, atEOF, err := d.peekIsQuote()
		if err != nil {
			return nil, 0, false, err
		}
		var term Terminator
		var rowDone bool
		var view byteslice.ByteSlice

		if atEOF {
			// Trailing field with no terminator at all.
			view = d.buf.View(d.buf.Mark(), d.buf.Mark())
			cells = append(cells, rawCell{data: view, quoted: false, term: TermRow})
			d.eof = true
			return cells, startLine, true, nil
		}

		if quoted {
			if _, err := d.readByte(); err != nil {
				return nil, 0, false, err
			}
			start := d.buf.Mark()
			if err := d.scanQuotedBody(); err != nil {
				return nil, 0, false, err
			}
			end := d.buf.Mark()
			view = d.buf.View(start, end)
			if d.trim {
				view = view.TrimASCIISpace()
			}
			term, rowDone, err = d.consumeAfterQuoted()
			if err != nil {
				return nil, 0, false, err
			}
		} else {
			start := d.buf.Mark()
			if err := d.scanUnquotedBody(); err != nil {
				return nil, 0, false, err
			}
			end := d.buf.Mark()
			view = d.buf.View(start, end)
			if d.ignoreWS {
				view = view.TrimASCIISpace()
			}
			term, rowDone, err = d.consumeAfterUnquoted()
			if err != nil {
				return nil, 0, false, err
			}
		}

		cells = append(cells, rawCell{data: view, quoted: quoted, term: term})
		if rowDone {
			return cells, startLine, true, nil
		}
	}
}

func (d *delimitedSource) peekIsQuote() (quoted bool, atEOF bool, err error) {
	b, err := d.peekByte()
	if err == io.EOF {
		return false, true, nil
	}
	if err != nil {
		return false, false, err
	}
	return b == d.quote, false, nil
}

// scanQuotedBody consumes bytes up to and including the closing quote,
// writing the unescaped field body to d.buf. Embedded newlines are counted
// against the physical line number (§4.1 "Row numbering for errors").
func (d *delimitedSource) scanQuotedBody() error {
	for {
		b, err := d.readByte()
		if err == io.EOF {
			return fmt.Errorf("row %d: %w", d.line, ErrUnterminatedQuote)
		}
		if err != nil {
			return err
		}
		if b == d.quote {
			nb, perr := d.peekByte()
			if perr == nil && nb == d.quote {
				_, _ = d.readByte()
				d.buf.AppendByte(d.quote)
				continue
			}
			if perr != nil && perr != io.EOF {
				return perr
			}
			return nil // closing quote
		}
		if b == '\n' {
			d.line++
		}
		d.buf.AppendByte(b)
	}
}

func (d *delimitedSource) scanUnquotedBody() error {
	for {
		b, err := d.peekByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if b == d.delimiter || b == '\n' || b == '\r' {
			return nil
		}
		_, _ = d.readByte()
		d.buf.AppendByte(b)
	}
}

func (d *delimitedSource) consumeAfterUnquoted() (Terminator, bool, error) {
	b, err := d.peekByte()
	if err == io.EOF {
		d.eof = true
		return TermRow, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	switch b {
	case d.delimiter:
		_, _ = d.readByte()
		return TermDelimiter, false, nil
	default:
		if err := d.consumeRowTerminatorByte(b); err != nil {
			return 0, false, err
		}
		return TermRow, true, nil
	}
}

// consumeAfterQuoted allows only whitespace between a closing quote and the
// next delimiter/row terminator (§4.1 rule 2).
func (d *delimitedSource) consumeAfterQuoted() (Terminator, bool, error) {
	for {
		b, err := d.peekByte()
		if err == io.EOF {
			d.eof = true
			return TermRow, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		switch {
		case b == d.delimiter:
			_, _ = d.readByte()
			return TermDelimiter, false, nil
		case b == '\n' || b == '\r':
			if err := d.consumeRowTerminatorByte(b); err != nil {
				return 0, false, err
			}
			return TermRow, true, nil
		case b == ' ' || b == '\t':
			_, _ = d.readByte()
		default:
			return 0, false, fmt.Errorf("row %d: %w", d.line, ErrJunkAfterQuote)
		}
	}
}

// consumeRowTerminatorByte consumes a \n, \r, or \r\n row terminator
// starting at the already-peeked byte b.
func (d *delimitedSource) consumeRowTerminatorByte(b byte) error {
	_, err := d.readByte()
	if err != nil {
		return err
	}
	if b == '\r' {
		if nb, perr := d.peekByte(); perr == nil && nb == '\n' {
			_, _ = d.readByte()
		} else if perr != nil && perr != io.EOF {
			return perr
		}
	}
	d.line++
	return nil
}

func combineErrors(errs []error) error {
	return &ambient.ConfigError{Reasons: errs}
}
