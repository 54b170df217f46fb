package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked indicates index.lock already exists (another git process holds the index).
var ErrLocked = errors.New("index.lock exists")

const indexLockName = "index.lock"

// acquireIndexLock takes git's index lock by creating gitDir/index.lock
// exclusively. Non-blocking: an existing lock returns ErrLocked. On success,
// returns a release function that the caller should defer.
func acquireIndexLock(gitDir string) (release func(), err error) {
	path := filepath.Join(gitDir, indexLockName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("index lock: open %s: %w", path, err)
	}
	_ = f.Close()
	release = func() {
		_ = os.Remove(path)
	}
	return release, nil
}
