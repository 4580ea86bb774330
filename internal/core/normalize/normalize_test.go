package normalize

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"plain", "plain"},
		{"a\x00b\x7fc", "abc"},
		{"keep\ttabs\nand\r\nbreaks", "keep\ttabs\nand\r\nbreaks"},
		{"c1\u0085control", "c1control"},
		{"bad\xffbyte", "badbyte"},
		{"e\u0301", "\u00e9"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestText(t *testing.T) {
	in := "  Hello   world\n\n\n  second\tline \x00 \n"
	want := "Hello world\nsecond line"
	if got := Text(in); got != want {
		t.Fatalf("Text = %q, want %q", got, want)
	}
}

func TestLine(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  [css-grid]\n  fix   gap ", "[css-grid] fix gap"},
		{"A. Person", "A. Person"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Line(c.in); got != c.want {
			t.Fatalf("Line(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
