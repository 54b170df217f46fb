package minify

import (
	"strings"
	"testing"
)

func TestHunk(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty returns empty",
			in:   "",
			want: "",
		},
		{
			name: "single hunk header only",
			in:   "@@ -1,3 +1,4 @@",
			want: "@@ -1,3 +1,4 @@",
		},
		{
			name: "header plus lines with leading whitespace",
			in:   "@@ -1,3 +1,4 @@\n context\n-\told\n+\tnew",
			want: "@@ -1,3 +1,4 @@\n context\n-old\n+new",
		},
		{
			name: "multiple spaces collapsed",
			in:   "@@ -1,1 +1,2 @@\n  x :=   y  +  z",
			want: "@@ -1,1 +1,2 @@\n x := y + z",
		},
		{
			name: "trailing whitespace dropped",
			in:   "@@ -1 +1 @@\n+let x = 1;   \t",
			want: "@@ -1 +1 @@\n+let x = 1;",
		},
		{
			name: "no newline marker kept",
			in:   "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b",
			want: "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b",
		},
		{
			name: "no header returns original",
			in:   "not a hunk header\n  line",
			want: "not a hunk header\n  line",
		},
		{
			name: "blank lines preserved",
			in:   "@@ -1,2 +1,3 @@\n a\n\n b",
			want: "@@ -1,2 +1,3 @@\n a\n\n b",
		},
		{
			name: "hunk header with section heading",
			in:   "@@ -5,4 +5,5 @@ fn main() {\n \tfn   foo()  { }\n-\t  bar();\n+\t  bar();",
			want: "@@ -5,4 +5,5 @@ fn main() {\n fn foo() { }\n-bar();\n+bar();",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Hunk(tt.in)
			if got != tt.want {
				t.Errorf("Hunk() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestHunk_prefixesSurvive(t *testing.T) {
	t.Parallel()
	input := "@@ -10,5 +10,6 @@\n func foo() {\n-\treturn 0\n+\treturn 1\n }\n"
	got := Hunk(input)
	if strings.Contains(got, "\t") {
		t.Errorf("expected tabs removed from line bodies, got %q", got)
	}
	for i, line := range strings.Split(got, "\n")[1:] {
		if line == "" {
			continue
		}
		if c := line[0]; c != ' ' && c != '-' && c != '+' {
			t.Errorf("line %d: expected prefix space/-/+, got %q", i+1, line)
		}
	}
	if n := strings.Count(got, "\n"); n != strings.Count(input, "\n") {
		t.Errorf("line count changed: %d vs %d", n, strings.Count(input, "\n"))
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := collapseSpaces("a  b\t\tc"); got != "a b c" {
		t.Errorf("collapseSpaces = %q, want %q", got, "a b c")
	}
	if got := collapseSpaces("x"); got != "x" {
		t.Errorf("collapseSpaces = %q, want %q", got, "x")
	}
	if got := collapseSpaces(""); got != "" {
		t.Errorf("collapseSpaces = %q, want %q", got, "")
	}
}
