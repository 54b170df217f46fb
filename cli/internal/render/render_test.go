package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"aigitcommit/cli/internal/commitmsg"
)

var sample = commitmsg.Message{
	Title:   "feat: add parser",
	Body:    []string{"Parse input", "Report errors"},
	Signoff: "Signed-off-by: Ada <ada@example.com>",
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"PLAIN", FormatPlain, false},
		{" json ", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWrite_plain(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, sample, FormatPlain); err != nil {
		t.Fatal(err)
	}
	want := "feat: add parser\n\n- Parse input\n- Report errors\n\nSigned-off-by: Ada <ada@example.com>\n"
	if buf.String() != want {
		t.Errorf("plain =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWrite_json(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, commitmsg.Message{Title: "fix: <nil> check"}, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["title"] != "fix: <nil> check" {
		t.Errorf("title = %v", got["title"])
	}
	if body, ok := got["body"].([]any); !ok || len(body) != 0 {
		t.Errorf("body = %#v, want empty array", got["body"])
	}
	if _, ok := got["signoff"]; !ok {
		t.Error("signoff key missing")
	}
	if strings.Contains(buf.String(), `\u003c`) {
		t.Error("HTML characters escaped")
	}
}

func TestWrite_table(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, sample, FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Title", "Content", "feat: add parser", "- Parse input", "Signed-off-by: Ada", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if w := len([]rune(line)); w > TableWidth {
			t.Errorf("line wider than %d: %d", TableWidth, w)
		}
	}
}

func TestTable_titleOnly(t *testing.T) {
	t.Parallel()
	out := Table(commitmsg.Message{Title: "docs: typo"})
	if strings.Contains(out, "Content") {
		t.Errorf("empty description rendered a Content row:\n%s", out)
	}
}

func TestWrite_unknownFormat(t *testing.T) {
	t.Parallel()
	if err := Write(&bytes.Buffer{}, sample, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}
