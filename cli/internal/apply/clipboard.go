package apply

import (
	"errors"

	"github.com/atotto/clipboard"

	"aigitcommit/cli/internal/erruser"
)

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// ErrNoClipboard means no clipboard provider exists in this environment.
var ErrNoClipboard = errors.New("no clipboard provider (install xclip, xsel or wl-clipboard)")

// SystemClipboard uses the platform clipboard tools.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	return clipboard.WriteAll(text)
}

func copyText(cb Clipboard, text string) error {
	if err := cb.WriteAll(text); err != nil {
		return erruser.WithKind(erruser.KindClipboardUnavailable, "Could not copy the message to the clipboard.", err)
	}
	return nil
}
