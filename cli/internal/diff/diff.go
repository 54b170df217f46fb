// Package diff turns the staged patch into a ChangeSet: one entry per file,
// noise paths removed, binary bodies omitted, and the whole serialization
// bounded by a byte ceiling.
//
// # Staged only
// The patch is index against HEAD (the empty tree before the first commit);
// working-tree edits are never included.
//
// # Noise files
// Lock files and generated artifacts are excluded by default (Cargo.lock,
// package-lock.json, go.sum, *.min.js, vendor/, ...). Patterns are doublestar
// globs matched against the full slash path and against the base name; a
// configured list replaces the defaults.
//
// # Size ceiling
// When MaxBytes is set, String() never exceeds it. File headers are kept for
// every entry that fits; hunks are kept whole in diff order until one does not
// fit, after which that entry and every later one are marked Truncated and a
// single "[diff truncated]" line ends the text.
//
// # Determinism
// Entries follow git's canonical path order and rendering iterates slices only,
// so an unchanged index yields byte-identical output.
package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/minify"
)

// Kind is the change kind of one file.
type Kind string

const (
	KindAdded    Kind = "added"
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
	KindRenamed  Kind = "renamed"
	KindBinary   Kind = "binary"
)

// TruncationMarker ends any text that was cut to fit a ceiling.
const TruncationMarker = "[diff truncated]"

// MinMaxBytes is the smallest usable ceiling: room for the marker and one header.
const MinMaxBytes = 64

// Entry is one file in the change set. Hunks are unified-diff blocks starting
// at their @@ line; binary entries have none.
type Entry struct {
	Path      string
	OldPath   string // set for renames
	Kind      Kind
	Hunks     []string
	Truncated bool // some or all hunks were cut by the size ceiling
}

// Body returns the entry's hunks joined by newlines.
func (e Entry) Body() string {
	return strings.Join(e.Hunks, "\n")
}

// header is the first rendered line for the entry.
func (e Entry) header() string {
	if e.OldPath != "" && e.OldPath != e.Path {
		return fmt.Sprintf("File: %s -> %s (%s)", e.OldPath, e.Path, e.Kind)
	}
	return fmt.Sprintf("File: %s (%s)", e.Path, e.Kind)
}

// ChangeSet is the ordered, size-bounded set of staged file changes.
type ChangeSet struct {
	Entries []Entry
	// Omitted lists paths whose header alone no longer fit the ceiling.
	// They are summarized on one line before the truncation marker.
	Omitted   []string
	Truncated bool

	// omittedNote is the rendered summary of Omitted, sized by Cap.
	omittedNote string
}

// Len returns the number of changed files, rendered or omitted.
func (cs *ChangeSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.Entries) + len(cs.Omitted)
}

// String renders the change set as prompt text.
func (cs *ChangeSet) String() string {
	if cs == nil {
		return ""
	}
	var b strings.Builder
	for _, e := range cs.Entries {
		b.WriteString(e.header())
		b.WriteByte('\n')
		for _, h := range e.Hunks {
			b.WriteString(h)
			b.WriteByte('\n')
		}
	}
	if cs.omittedNote != "" {
		b.WriteString(cs.omittedNote)
		b.WriteByte('\n')
	}
	if cs.Truncated {
		b.WriteString(TruncationMarker)
		b.WriteByte('\n')
	}
	return b.String()
}

// PatchSource yields the staged unified diff. Implemented by git.Repository.
type PatchSource interface {
	StagedPatch(ctx context.Context, subdir string, contextLines int) (string, error)
}

// Options configures Collect.
type Options struct {
	// Subdir restricts the diff to a directory relative to the repository root.
	Subdir       string
	ContextLines int
	// ExcludePatterns replaces DefaultExcludePatterns when non-nil. An empty
	// non-nil slice disables exclusion.
	ExcludePatterns []string
	// Compact collapses whitespace runs in hunk lines before the ceiling is applied.
	Compact bool
	// MaxBytes caps len(String()); 0 means unbounded.
	MaxBytes int
}

// DefaultExcludePatterns are lock files and generated artifacts that say
// little about intent and cost many tokens.
var DefaultExcludePatterns = []string{
	"Cargo.lock",
	"package-lock.json",
	"npm-shrinkwrap.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"composer.lock",
	"Gemfile.lock",
	"poetry.lock",
	"uv.lock",
	"*.min.js",
	"*.min.css",
	"*.map",
	"*.pb.go",
	"*_generated.go",
	"**/vendor/**",
	"**/node_modules/**",
}

// Collect reads the staged patch from src and returns the filtered, bounded
// change set. An empty result fails with KindNoStagedChanges.
func Collect(ctx context.Context, src PatchSource, opts Options) (*ChangeSet, error) {
	if src == nil {
		return nil, fmt.Errorf("diff: patch source required")
	}
	patterns := DefaultExcludePatterns
	if opts.ExcludePatterns != nil {
		patterns = opts.ExcludePatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, erruser.New(fmt.Sprintf("Invalid exclude pattern %q.", p), nil)
		}
	}

	patch, err := src.StagedPatch(ctx, opts.Subdir, opts.ContextLines)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(patch)
	if err != nil {
		return nil, erruser.New("Could not parse the staged diff.", err)
	}
	entries = Filter(entries, patterns)
	if len(entries) == 0 {
		return nil, erruser.WithKind(erruser.KindNoStagedChanges,
			"No staged changes to describe; stage files with git add first.", nil)
	}
	if opts.Compact {
		for i := range entries {
			for j, h := range entries[i].Hunks {
				entries[i].Hunks[j] = minify.Hunk(h)
			}
		}
	}
	maxBytes := opts.MaxBytes
	if maxBytes > 0 && maxBytes < MinMaxBytes {
		maxBytes = MinMaxBytes
	}
	return Cap(entries, maxBytes), nil
}

// Filter drops entries whose path (or base name) matches any pattern.
// Invalid patterns never match; Collect validates them up front.
func Filter(entries []Entry, patterns []string) []Entry {
	if len(patterns) == 0 {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if !Excluded(e.Path, patterns) {
			out = append(out, e)
		}
	}
	return out
}

// Excluded reports whether path is matched by any pattern, either as a whole
// slash path or by its base name.
func Excluded(path string, patterns []string) bool {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

// Cap bounds the rendered change set to maxBytes (0 = unbounded). Entries are
// never silently dropped: an entry whose hunks do not fit is kept with
// Truncated set, and an entry whose header does not fit is listed in Omitted.
func Cap(entries []Entry, maxBytes int) *ChangeSet {
	cs := &ChangeSet{Entries: entries}
	if maxBytes <= 0 || len(cs.String()) <= maxBytes {
		return cs
	}
	budget := maxBytes - len(TruncationMarker) - 1
	if budget < 0 {
		budget = 0
	}

	// Headers first, so every file that fits is at least named.
	kept := make([]Entry, 0, len(entries))
	used := 0
	for _, e := range entries {
		need := len(e.header()) + 1
		if used+need > budget {
			break
		}
		used += need
		e.Hunks = append([]string(nil), e.Hunks...)
		kept = append(kept, e)
	}
	if len(kept) < len(entries) {
		// Give back headers from the end until the summary line fits.
		for {
			cs.Omitted = cs.Omitted[:0]
			for _, rest := range entries[len(kept):] {
				cs.Omitted = append(cs.Omitted, rest.Path)
			}
			cs.omittedNote = omittedLine(cs.Omitted, budget-used-1)
			if cs.omittedNote != "" || len(kept) == 0 {
				break
			}
			last := kept[len(kept)-1]
			used -= len(last.header()) + 1
			kept = kept[:len(kept)-1]
		}
		if cs.omittedNote != "" {
			used += len(cs.omittedNote) + 1
		}
	}

	// Then whole hunks in diff order until the first that does not fit.
	full := false
	for i := range kept {
		hunks := kept[i].Hunks
		kept[i].Hunks = nil
		for _, h := range hunks {
			need := len(h) + 1
			if full || used+need > budget {
				full = true
				kept[i].Truncated = true
				break
			}
			used += need
			kept[i].Hunks = append(kept[i].Hunks, h)
		}
	}
	cs.Entries = kept
	cs.Truncated = true
	return cs
}

// omittedLine summarizes paths as "(+N more files: a, b, …)" in at most limit
// bytes, listing as many names as fit. It returns "" when even the count does
// not fit.
func omittedLine(paths []string, limit int) string {
	noun := "files"
	if len(paths) == 1 {
		noun = "file"
	}
	head := fmt.Sprintf("(+%d more %s", len(paths), noun)
	line := head + ")"
	if len(line) > limit {
		return ""
	}
	var names strings.Builder
	for i, p := range paths {
		if i > 0 {
			names.WriteString(", ")
		}
		names.WriteString(p)
		cand := head + ": " + names.String()
		if i < len(paths)-1 {
			cand += ", …"
		}
		cand += ")"
		if len(cand) > limit {
			break
		}
		line = cand
	}
	return line
}

// TruncateText cuts s on a line boundary so the result, including a trailing
// marker line, is at most maxBytes. s is returned unchanged when it fits or
// maxBytes <= 0.
func TruncateText(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	marker := TruncationMarker + "\n"
	budget := maxBytes - len(marker)
	if budget <= 0 {
		if maxBytes >= len(marker) {
			return marker
		}
		return ""
	}
	cut := strings.LastIndexByte(s[:budget], '\n')
	if cut < 0 {
		return marker
	}
	return s[:cut+1] + marker
}
