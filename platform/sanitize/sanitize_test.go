package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := map[string]string{
		"  hello <b>world</b> ":                 "hello world",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"line one\nline two":                    "line one\nline two",
	}
	for in, want := range tests {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLineCollapsesWhitespace(t *testing.T) {
	if got := Line(" Jane \n\t Doe "); got != "Jane Doe" {
		t.Fatalf("Line = %q", got)
	}
}
