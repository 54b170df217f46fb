package apply

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"aigitcommit/cli/internal/erruser"
)

const _defaultFileMode fs.FileMode = 0644

// PrependFile writes text followed by a blank line ahead of path's existing
// content, for editors that pre-fill the commit message file. A missing file
// is created with mode 0644; an existing file keeps its mode. The write goes
// through a temp file and rename so a failure leaves the original intact.
func PrependFile(path, text string) error {
	fail := func(err error) error {
		return erruser.WithKind(erruser.KindIO, fmt.Sprintf("Could not write the message to %s.", path), err)
	}
	mode := _defaultFileMode
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		info, statErr := os.Stat(path)
		if statErr != nil {
			return fail(statErr)
		}
		mode = info.Mode().Perm()
	case errors.Is(err, fs.ErrNotExist):
		existing = nil
	default:
		return fail(err)
	}

	data := make([]byte, 0, len(text)+2+len(existing))
	data = append(data, text...)
	if len(existing) > 0 {
		data = append(data, "\n\n"...)
		data = append(data, existing...)
	} else {
		data = append(data, '\n')
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fail(err)
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fail(err)
	}
	return nil
}
