package git

import (
	"context"
	"errors"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"aigitcommit/cli/internal/erruser"
)

// Commit records the current index as a new commit on the current branch with
// HEAD as parent (no parent for the first commit). It holds index.lock for
// the duration; an existing lock fails with KindRepositoryLocked and is not
// retried. Failures from the object store are returned as KindCommitFailed
// with the underlying message unchanged.
func (r *Repository) Commit(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	author, err := r.Author()
	if err != nil {
		return "", err
	}
	release, err := acquireIndexLock(r.gitDir)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return "", erruser.WithKind(erruser.KindRepositoryLocked,
				"The repository index is locked by another git process.", err)
		}
		return "", erruser.WithKind(erruser.KindCommitFailed, err.Error(), err)
	}
	defer release()

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", erruser.WithKind(erruser.KindCommitFailed, err.Error(), err)
	}
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: time.Now()}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", erruser.WithKind(erruser.KindCommitFailed, err.Error(), err)
	}
	return hash.String(), nil
}
