// Package erruser provides errors whose Error() returns only a user-facing
// message; the cause is available via Unwrap() for Details or logs. Errors may
// carry a Kind so the CLI can pick an exit code and hint without string matching.
package erruser

import "errors"

// Kind classifies a failure the user can act on. The zero value means unclassified.
type Kind string

const (
	KindNoStagedChanges      Kind = "NoStagedChanges"
	KindRepositoryLocked     Kind = "RepositoryLocked"
	KindPayloadTooLarge      Kind = "PayloadTooLarge"
	KindUpstreamUnavailable  Kind = "UpstreamUnavailable"
	KindUpstreamRejected     Kind = "UpstreamRejected"
	KindMalformedCompletion  Kind = "MalformedCompletion"
	KindClipboardUnavailable Kind = "ClipboardUnavailable"
	KindIO                   Kind = "IoError"
	KindCommitFailed         Kind = "CommitFailed"
	KindUserAborted          Kind = "UserAborted"
)

// Err holds a user-facing message, an optional Kind and an optional cause.
// Error() returns only Msg so the primary line never contains command names
// or exit codes; use Unwrap() for technical detail.
type Err struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error for Details or logging.
// Handles nil receiver (method call on nil *Err is valid in Go).
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message. If err is non-nil,
// it is wrapped and available via Unwrap() so callers can print "Details: %v".
// If err is nil, returns a simple error with just msg (no Unwrap).
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}

// WithKind returns a classified error. err may be nil.
func WithKind(kind Kind, msg string, err error) error {
	return &Err{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the first non-empty Kind found in err's chain, including
// errors joined with errors.Join. Returns "" when err is unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Err); ok && e != nil && e.Kind != "" {
		return e.Kind
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if k := KindOf(inner); k != "" {
				return k
			}
		}
		return ""
	case interface{ Unwrap() error }:
		return KindOf(u.Unwrap())
	}
	return ""
}

// Is reports whether err's chain carries kind.
func Is(err error, kind Kind) bool {
	if err == nil || kind == "" {
		return false
	}
	if e, ok := err.(*Err); ok && e != nil && e.Kind == kind {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Is(inner, kind) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Is(u.Unwrap(), kind)
	}
	return false
}
