// Package minify reduces whitespace in unified-diff hunk content to save
// prompt tokens: per line, the diff marker is kept and the remainder has its
// indentation trimmed and runs of spaces collapsed. Line structure is unchanged.
package minify

import (
	"regexp"
	"strings"
)

// hunkHeader matches @@ -oldStart,oldCount +newStart,newCount @@ (same as diff package).
var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@`)

// Hunk reduces whitespace in one hunk: keeps the @@ header and each line's
// first character (space, -, +, or \ for "No newline at end of file"); for
// the rest of each line, trims leading whitespace and collapses runs of spaces
// and tabs to one. Returns content unchanged when the first line is not a hunk
// header, so callers may pass anything.
func Hunk(content string) string {
	if content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	if !hunkHeaderRegex.MatchString(lines[0]) {
		return content
	}
	out := make([]string, 0, len(lines))
	out = append(out, lines[0])
	for _, line := range lines[1:] {
		if line == "" || line[0] == '\\' {
			out = append(out, line)
			continue
		}
		prefix := line[0:1]
		rest := strings.TrimLeft(line[1:], " \t")
		out = append(out, prefix+collapseSpaces(rest))
	}
	return strings.Join(out, "\n")
}

// collapseSpaces replaces runs of spaces (and tabs) with a single space.
// Trailing whitespace is dropped. Does not modify other characters.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			wasSpace = true
			continue
		}
		if wasSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		wasSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
