package apply_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"aigitcommit/cli/internal/apply"
	"aigitcommit/cli/internal/commitmsg"
	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/git"
	"aigitcommit/cli/internal/render"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func stagedRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "init", "-q")
	run(t, dir, "config", "user.email", "test@aigitcommit.local")
	run(t, dir, "config", "user.name", "Test")
	run(t, dir, "config", "commit.gpgsign", "false")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "add", "a.txt")
	run(t, dir, "commit", "-q", "-m", "chore: init")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "add", "a.txt")
	r, err := git.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, r
}

func TestApply_declinedCommitLeavesHEAD(t *testing.T) {
	t.Parallel()
	_, repo := stagedRepo(t)
	before, err := repo.HeadID()
	if err != nil {
		t.Fatal(err)
	}
	o := &apply.Orchestrator{
		Out:       &bytes.Buffer{},
		Committer: repo,
		Confirm:   func(context.Context, string) (bool, error) { return false, nil },
	}
	msg := commitmsg.Message{Title: "fix: update a"}
	_, err = o.Apply(context.Background(), msg, apply.Plan{Format: render.FormatPlain, Action: apply.ActionCommit})
	if !erruser.Is(err, erruser.KindUserAborted) {
		t.Fatalf("err = %v, want KindUserAborted", err)
	}
	after, err := repo.HeadID()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("HEAD moved from %s to %s after decline", before, after)
	}
}

func TestApply_confirmedCommitAdvancesHEAD(t *testing.T) {
	t.Parallel()
	dir, repo := stagedRepo(t)
	before, _ := repo.HeadID()
	o := &apply.Orchestrator{
		Out:       &bytes.Buffer{},
		Committer: repo,
		Confirm:   func(context.Context, string) (bool, error) { return true, nil },
	}
	msg := commitmsg.Message{Title: "fix: update a", Body: []string{"Change one to two"}, Signoff: "Signed-off-by: Test <test@aigitcommit.local>"}
	got, err := o.Apply(context.Background(), msg, apply.Plan{Format: render.FormatPlain, Action: apply.ActionCommit, Quiet: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 1 || got[0].Kind != apply.Committed {
		t.Fatalf("outcomes = %+v", got)
	}
	after, _ := repo.HeadID()
	if after == before || after != got[0].CommitID {
		t.Errorf("HEAD = %s, before %s, commit %s", after, before, got[0].CommitID)
	}
	out, err := exec.Command("git", "-C", dir, "log", "-1", "--format=%B").Output()
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes.TrimSpace(out)) != msg.Text() {
		t.Errorf("commit message = %q, want %q", out, msg.Text())
	}
}
