// Package git (repo.go) opens the repository once per run and answers the
// identity and settings questions the commit workflow asks of it.
package git

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"aigitcommit/cli/internal/erruser"
)

const (
	_fallbackName  = "Unknown User"
	_fallbackEmail = "unknown@example.com"

	// signoffSection and signoffKey name the repository-level sign-off setting (aigitcommit.signoff).
	signoffSection = "aigitcommit"
	signoffKey     = "signoff"
)

// Repository is a non-bare repository opened from a path inside its worktree.
type Repository struct {
	repo   *gogit.Repository
	root   string
	gitDir string
	// getenv reads GIT_AUTHOR_* fallbacks; os.Getenv unless a test replaces it.
	getenv func(string) string
}

// Identity is a commit author or committer.
type Identity struct {
	Name  string
	Email string
}

// Open discovers the repository containing path (walking up to the .git
// directory). Bare repositories are rejected: there is no index to commit from.
func Open(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, erruser.New("Could not resolve repository path.", err)
	}
	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, erruser.New("This directory is not inside a Git repository.", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return nil, erruser.New("Bare repositories are not supported; run inside a worktree.", err)
		}
		return nil, erruser.New("Could not open the repository worktree.", err)
	}
	root := wt.Filesystem.Root()
	gitDir := filepath.Join(root, gogit.GitDirName)
	if fs, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = fs.Filesystem().Root()
	}
	return &Repository{repo: repo, root: root, gitDir: gitDir, getenv: os.Getenv}, nil
}

// Root returns the absolute worktree root.
func (r *Repository) Root() string {
	return r.root
}

// GitDir returns the directory holding the index and refs.
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Author returns user.name and user.email from git config (local merged over
// global), falling back to GIT_AUTHOR_NAME/GIT_AUTHOR_EMAIL and then to fixed
// placeholders. Never returns empty fields.
func (r *Repository) Author() (Identity, error) {
	var id Identity
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		// No resolvable home directory; the repository's own config still applies.
		cfg, err = r.repo.Config()
		if err != nil {
			return Identity{}, erruser.New("Could not read git configuration.", err)
		}
	}
	id.Name = strings.TrimSpace(cfg.User.Name)
	id.Email = strings.TrimSpace(cfg.User.Email)
	if id.Name == "" {
		id.Name = strings.TrimSpace(r.getenv("GIT_AUTHOR_NAME"))
	}
	if id.Email == "" {
		id.Email = strings.TrimSpace(r.getenv("GIT_AUTHOR_EMAIL"))
	}
	if id.Name == "" {
		id.Name = _fallbackName
	}
	if id.Email == "" {
		id.Email = _fallbackEmail
	}
	return id, nil
}

// SignoffSetting reads aigitcommit.signoff from the repository's own config.
// set is false when the key is absent; an unparseable value is an error.
func (r *Repository) SignoffSetting() (value, set bool, err error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return false, false, erruser.New("Could not read git configuration.", err)
	}
	if cfg.Raw == nil || !cfg.Raw.HasSection(signoffSection) {
		return false, false, nil
	}
	sec := cfg.Raw.Section(signoffSection)
	if !sec.HasOption(signoffKey) {
		return false, false, nil
	}
	raw := strings.TrimSpace(sec.Option(signoffKey))
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, true, nil
	case "no", "off":
		return false, true, nil
	}
	b, perr := strconv.ParseBool(raw)
	if perr != nil {
		return false, false, erruser.New("aigitcommit.signoff in git config must be true or false.", perr)
	}
	return b, true, nil
}
