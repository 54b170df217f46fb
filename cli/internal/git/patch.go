package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"aigitcommit/cli/internal/erruser"
)

// StagedPatch returns the unified diff of the index against HEAD (against the
// empty tree before the first commit). subdir, relative to the root, limits
// the pathspec; empty means the whole repository. Rename detection is on so
// moves appear as a single entry.
func (r *Repository) StagedPatch(ctx context.Context, subdir string, contextLines int) (string, error) {
	if contextLines < 0 {
		contextLines = 0
	}
	args := []string{
		"-c", "core.quotePath=false",
		"diff", "--cached", "--no-color", "--no-ext-diff", "--no-textconv", "-M",
		"--unified=" + strconv.Itoa(contextLines),
	}
	if subdir != "" {
		spec, err := r.pathspec(subdir)
		if err != nil {
			return "", err
		}
		args = append(args, "--", spec)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	cmd.Env = minimalEnv()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		cause := fmt.Errorf("git diff --cached: %w: %s", err, msg)
		if strings.Contains(msg, "index.lock") {
			return "", erruser.WithKind(erruser.KindRepositoryLocked,
				"The repository index is locked by another git process.", cause)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", erruser.New("Could not read staged changes.", cause)
	}
	return string(out), nil
}

// pathspec converts subdir into a slash path relative to the root and rejects
// anything that escapes it.
func (r *Repository) pathspec(subdir string) (string, error) {
	p := subdir
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return "", erruser.New("Subdirectory must be inside the repository.", err)
		}
		p = rel
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", erruser.New("Subdirectory must be inside the repository.", nil)
	}
	return p, nil
}
