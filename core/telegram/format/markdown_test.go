package format

import "testing"

func TestV1(t *testing.T) {
	cases := map[string]string{
		"plain text":                "plain text",
		"snake_case *bold* [x] `c`": `snake\_case \*bold\* \[x] ` + "\\`c\\`",
		"1.5 (ok)! 10-2=8":          "1.5 (ok)! 10-2=8",
	}
	for in, want := range cases {
		if got := V1(in); got != want {
			t.Fatalf("V1(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBoldItalic(t *testing.T) {
	if got := Bold("a_b"); got != "*a_b*" {
		t.Fatalf("bold = %q", got)
	}
	if got := Italic("Cats"); got != "_Cats_" {
		t.Fatalf("italic = %q", got)
	}
	if got := Bold("2*2=4"); got != `*2*\**2=4*` {
		t.Fatalf("bold star = %q", got)
	}
	if got := Italic("snake_case"); got != `_snake_\__case_` {
		t.Fatalf("italic underscore = %q", got)
	}
	if got := Bold(""); got != "" {
		t.Fatalf("empty bold = %q", got)
	}
}
