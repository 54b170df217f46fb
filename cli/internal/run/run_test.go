package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"aigitcommit/cli/internal/diff"
	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/prompt"
	"aigitcommit/cli/internal/trace"
)

type fakeRepo struct {
	patch      string
	patchErr   error
	subjects   []string
	historyErr error
}

func (f *fakeRepo) StagedPatch(context.Context, string, int) (string, error) {
	return f.patch, f.patchErr
}

func (f *fakeRepo) RecentSubjects(n int) ([]string, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if n < len(f.subjects) {
		return f.subjects[:n], nil
	}
	return f.subjects, nil
}

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

func patchFor(path string, lines int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\nnew file mode 100644\nindex 0000000..1111111\n--- /dev/null\n+++ b/%s\n@@ -0,0 +1,%d @@\n", path, path, path, lines)
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "+line %d\n", i)
	}
	return b.String()
}

func TestGenerate_happyPath(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		patch:    patchFor("src/lib.rs", 10),
		subjects: []string{"feat: add cli", "fix: handle nil", "docs: readme"},
	}
	c := &fakeCompleter{out: "feat(lib): add helpers ✨\n\n- Add ten helper lines"}
	res, err := Generate(context.Background(), Deps{Repo: repo, Completer: c}, Options{
		Diff:            diff.Options{ContextLines: 3, MaxBytes: 32768},
		HistorySize:     2,
		MaxPromptTokens: 16384,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.calls != 1 {
		t.Errorf("completion calls = %d, want 1", c.calls)
	}
	if res.Message.Title != "feat(lib): add helpers ✨" || len(res.Message.Body) != 1 {
		t.Errorf("message = %+v", res.Message)
	}
	if len(res.History) != 2 || res.History[0] != "feat: add cli" {
		t.Errorf("history = %v", res.History)
	}
	if !strings.Contains(c.got.User, "- feat: add cli\n- fix: handle nil\n") || strings.Contains(c.got.User, "docs: readme") {
		t.Errorf("user prompt history section wrong:\n%s", c.got.User)
	}
	if !strings.Contains(c.got.User, "File: src/lib.rs (added)") {
		t.Errorf("user prompt missing change set:\n%s", c.got.User)
	}
	if c.got.System != prompt.DefaultSystemInstructions {
		t.Error("system prompt not the default")
	}
}

func TestGenerate_noStagedChangesMakesNoRequest(t *testing.T) {
	t.Parallel()
	for _, patch := range []string{"", patchFor("Cargo.lock", 4) + patchFor("yarn.lock", 2)} {
		c := &fakeCompleter{out: "feat: x"}
		_, err := Generate(context.Background(), Deps{Repo: &fakeRepo{patch: patch}, Completer: c}, Options{HistorySize: 5})
		if !erruser.Is(err, erruser.KindNoStagedChanges) {
			t.Errorf("err = %v, want KindNoStagedChanges", err)
		}
		if c.calls != 0 {
			t.Errorf("completion calls = %d, want 0", c.calls)
		}
	}
}

func TestGenerate_payloadTooLargeMakesNoRequest(t *testing.T) {
	t.Parallel()
	c := &fakeCompleter{out: "feat: x"}
	_, err := Generate(context.Background(), Deps{Repo: &fakeRepo{patch: patchFor("a.go", 3)}, Completer: c}, Options{MaxPromptTokens: 5})
	if !erruser.Is(err, erruser.KindPayloadTooLarge) || c.calls != 0 {
		t.Errorf("err = %v, calls = %d", err, c.calls)
	}
}

func TestGenerate_historyFailureIsSoft(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{patch: patchFor("a.go", 3), historyErr: errors.New("object not found")}
	c := &fakeCompleter{out: "fix: a"}
	res, err := Generate(context.Background(), Deps{Repo: repo, Completer: c}, Options{HistorySize: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.History) != 0 || strings.Contains(c.got.User, "Recent commit subjects") {
		t.Errorf("history should be empty: %v", res.History)
	}
}

func TestGenerate_upstreamAndMalformed(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{patch: patchFor("a.go", 3)}
	rejected := erruser.WithKind(erruser.KindUpstreamRejected, "rejected (HTTP 401)", nil)
	if _, err := Generate(context.Background(), Deps{Repo: repo, Completer: &fakeCompleter{err: rejected}}, Options{}); !erruser.Is(err, erruser.KindUpstreamRejected) {
		t.Errorf("err = %v, want KindUpstreamRejected", err)
	}
	if _, err := Generate(context.Background(), Deps{Repo: repo, Completer: &fakeCompleter{out: "```\n```"}}, Options{}); !erruser.Is(err, erruser.KindMalformedCompletion) {
		t.Errorf("err = %v, want KindMalformedCompletion", err)
	}
}

func TestGenerate_traceSections(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	repo := &fakeRepo{patch: patchFor("a.go", 3), subjects: []string{"chore: x"}}
	_, err := Generate(context.Background(), Deps{Repo: repo, Completer: &fakeCompleter{out: "fix: y"}, Tracer: trace.New(&buf)}, Options{
		HistorySize: 1, MaxPromptTokens: 16384,
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"=== Change set ===", "added a.go hunks=1", "=== Prompt ===", "=== Message ===", `title="fix: y"`} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
}
