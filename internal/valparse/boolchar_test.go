package valparse

import "testing"

func TestParseBool(t *testing.T) {
	cases := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"true", true, true},
		{"false", false, true},
		{"TRUE", true, true},
		{"False", false, true},
		{"yes", false, false},
		{"", false, false},
		{"1", false, false},
	}
	for _, c := range cases {
		got, ok := ParseBool(bs(c.in))
		if ok != c.wantOK || (ok && got != c.want) {
			t.Errorf("ParseBool(%q) = (%v,%v), want (%v,%v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestParseChar(t *testing.T) {
	cases := []struct {
		in     string
		want   rune
		wantOK bool
	}{
		{"a", 'a', true},
		{"€", '€', true},
		{"", 0, false},
		{"ab", 0, false},
		{"😀", 0, false}, // outside the BMP
	}
	for _, c := range cases {
		got, ok := ParseChar(bs(c.in))
		if ok != c.wantOK {
			t.Errorf("ParseChar(%q) ok = %v, want %v", c.in, ok, c.wantOK)
			continue
		}
		if ok && got != c.want {
			t.Errorf("ParseChar(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
