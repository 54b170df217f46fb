package git

import (
	"errors"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"aigitcommit/cli/internal/erruser"
)

// RecentSubjects returns up to n subject lines reachable from HEAD, newest
// first by committer time. An unborn HEAD yields an empty slice.
func (r *Repository) RecentSubjects(n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, erruser.New("Could not resolve HEAD.", err)
	}
	iter, err := r.repo.Log(&gogit.LogOptions{From: head.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, erruser.New("Could not read commit history.", err)
	}
	defer iter.Close()
	subjects := make([]string, 0, n)
	err = iter.ForEach(func(c *object.Commit) error {
		subjects = append(subjects, subject(c.Message))
		if len(subjects) >= n {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, erruser.New("Could not read commit history.", err)
	}
	return subjects, nil
}

// HeadID returns the commit id at HEAD, or "" before the first commit.
func (r *Repository) HeadID() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", erruser.New("Could not resolve HEAD.", err)
	}
	return head.Hash().String(), nil
}

// subject returns the first non-empty line of msg, trimmed.
func subject(msg string) string {
	for _, line := range strings.Split(msg, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
