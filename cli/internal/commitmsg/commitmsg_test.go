package commitmsg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/prompt"
)

type fakeCompleter struct {
	out   string
	err   error
	calls int
	got   prompt.Payload
}

func (f *fakeCompleter) Complete(_ context.Context, p prompt.Payload) (string, error) {
	f.calls++
	f.got = p
	return f.out, f.err
}

func TestParse_exactResponse(t *testing.T) {
	t.Parallel()
	msg, err := Parse("fix: correct null check 🐛\n\n- Guard against empty input", ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Title != "fix: correct null check 🐛" {
		t.Errorf("Title = %q", msg.Title)
	}
	if len(msg.Body) != 1 || msg.Body[0] != "Guard against empty input" {
		t.Errorf("Body = %#v", msg.Body)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		in        string
		wantTitle string
		wantBody  []string
	}{
		{
			name:      "title only",
			in:        "docs: update readme",
			wantTitle: "docs: update readme",
		},
		{
			name:      "leading blank lines and fences",
			in:        "\n\n```text\nfeat(cli): add --json flag\n\n- Print JSON output\n```\n",
			wantTitle: "feat(cli): add --json flag",
			wantBody:  []string{"Print JSON output"},
		},
		{
			name:      "mixed bullet markers",
			in:        "refactor: split parser\n\n* one\n+ two\n• three\n1. four\n2) five",
			wantTitle: "refactor: split parser",
			wantBody:  []string{"one", "two", "three", "four", "five"},
		},
		{
			name:      "body without blank separator",
			in:        "chore: bump deps\n- update cobra",
			wantTitle: "chore: bump deps",
			wantBody:  []string{"update cobra"},
		},
		{
			name:      "decorative symbols removed from body only",
			in:        "feat: add cache ✨\n\n- ✅ Store results 🚀\n- Plain line",
			wantTitle: "feat: add cache ✨",
			wantBody:  []string{"Store results", "Plain line"},
		},
		{
			name:      "blank lines inside body skipped",
			in:        "fix: x\n\n- a\n\n- b\n",
			wantTitle: "fix: x",
			wantBody:  []string{"a", "b"},
		},
		{
			name:      "model sign-off dropped",
			in:        "fix: x\n\n- a\nSigned-off-by: Bot <bot@example.com>",
			wantTitle: "fix: x",
			wantBody:  []string{"a"},
		},
		{
			name:      "numbers that are not markers survive",
			in:        "perf: speed up\n\n- 3.5x faster on large inputs\n2024 roadmap item",
			wantTitle: "perf: speed up",
			wantBody:  []string{"3.5x faster on large inputs", "2024 roadmap item"},
		},
		{
			name:      "crlf line endings",
			in:        "test: add cases\r\n\r\n- cover nil\r\n",
			wantTitle: "test: add cases",
			wantBody:  []string{"cover nil"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := Parse(tt.in, ParseOptions{})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if msg.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", msg.Title, tt.wantTitle)
			}
			if strings.Join(msg.Body, "|") != strings.Join(tt.wantBody, "|") {
				t.Errorf("Body = %#v, want %#v", msg.Body, tt.wantBody)
			}
		})
	}
}

func TestParse_bodyCap(t *testing.T) {
	t.Parallel()
	for n := 0; n <= 12; n++ {
		var b strings.Builder
		b.WriteString("feat: many bullets\n\n")
		for i := 0; i < n; i++ {
			b.WriteString("- bullet\n")
		}
		msg, err := Parse(b.String(), ParseOptions{})
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		want := n
		if want > MaxBodyLines {
			want = MaxBodyLines
		}
		if len(msg.Body) != want {
			t.Errorf("n=%d: len(Body) = %d, want %d", n, len(msg.Body), want)
		}
	}
}

func TestParse_titleCeiling(t *testing.T) {
	t.Parallel()
	long := "feat: " + strings.Repeat("é", 100)
	msg, err := Parse(long, ParseOptions{TitleMax: 20})
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(msg.Title); n != 20 {
		t.Errorf("title runes = %d, want 20", n)
	}
	if !strings.HasSuffix(msg.Title, "…") || !utf8.ValidString(msg.Title) {
		t.Errorf("Title = %q", msg.Title)
	}
	msg, err = Parse(long, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if utf8.RuneCountInString(msg.Title) != _defaultTitleMax {
		t.Errorf("default ceiling not applied: %q", msg.Title)
	}
}

func TestParse_malformed(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   \n\n", "```\n```"} {
		if _, err := Parse(in, ParseOptions{}); !erruser.Is(err, erruser.KindMalformedCompletion) {
			t.Errorf("Parse(%q) err = %v, want KindMalformedCompletion", in, err)
		}
	}
}

func TestMessage_Text(t *testing.T) {
	t.Parallel()
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Title: "fix: a"}, "fix: a"},
		{Message{Title: "fix: a", Body: []string{"one", "two"}}, "fix: a\n\n- one\n- two"},
		{Message{Title: "fix: a", Signoff: "Signed-off-by: A <a@b.c>"}, "fix: a\n\nSigned-off-by: A <a@b.c>"},
		{Message{Title: "fix: a", Body: []string{"one"}, Signoff: "Signed-off-by: A <a@b.c>"}, "fix: a\n\n- one\n\nSigned-off-by: A <a@b.c>"},
	}
	for _, tt := range tests {
		if got := tt.msg.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	c := &fakeCompleter{out: "feat: add x\n\n- do y"}
	p := prompt.Payload{System: "s", User: "u"}
	msg, err := Generate(context.Background(), c, p, ParseOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.calls != 1 || c.got != p {
		t.Errorf("completer calls = %d, payload = %+v", c.calls, c.got)
	}
	if msg.Title != "feat: add x" || len(msg.Body) != 1 {
		t.Errorf("msg = %+v", msg)
	}

	upstream := erruser.WithKind(erruser.KindUpstreamRejected, "rejected", errors.New("401"))
	if _, err := Generate(context.Background(), &fakeCompleter{err: upstream}, p, ParseOptions{}); !erruser.Is(err, erruser.KindUpstreamRejected) {
		t.Errorf("Generate err = %v, want completer error", err)
	}
}

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello world", 5, "hello"},
		{"short", 100, "short"},
		{"exact", 5, "exact"},
		{"café", 4, "caf"},
		{"a世b", 2, "a"},
		{"a世b", 4, "a世"},
		{"x😀y", 3, "x"},
		{"x😀y", 5, "x😀"},
		{"hello", 0, ""},
		{"", 10, ""},
	}
	for _, tt := range tests {
		got := truncateUTF8(tt.in, tt.limit)
		if got != tt.want || !utf8.ValidString(got) {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
