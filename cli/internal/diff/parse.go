package diff

import (
	"bufio"
	"regexp"
	"strings"
)

// binaryMarker is the prefix git uses when a file is binary.
const binaryMarker = "Binary files "

// binaryPatchMarker starts a binary patch when --binary is in effect.
const binaryPatchMarker = "GIT binary patch"

// hunkHeader matches @@ -oldStart,oldCount +newStart,newCount @@ optional
var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@`)

// Parse parses the output of `git diff --cached --no-color` into one Entry
// per file, in the order git emitted them. Binary files become KindBinary
// entries without hunks. Empty input produces nil.
func Parse(diffOutput string) ([]Entry, error) {
	if strings.TrimSpace(diffOutput) == "" {
		return nil, nil
	}
	var entries []Entry
	for _, section := range splitByFileSections(diffOutput) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		e, err := parseFileSection(section)
		if err != nil {
			return nil, err
		}
		if e.Path == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// splitByFileSections splits diff output by "diff --git " so each section
// is one file's diff (or one binary notice).
func splitByFileSections(out string) []string {
	const prefix = "diff --git "
	var sections []string
	start := 0
	for {
		i := strings.Index(out[start:], prefix)
		if i < 0 {
			if start < len(out) && strings.TrimSpace(out[start:]) != "" {
				sections = append(sections, out[start:])
			}
			break
		}
		pos := start + i
		if pos > start && strings.TrimSpace(out[start:pos]) != "" {
			sections = append(sections, out[start:pos])
		}
		start = pos
		// find next "\ndiff --git " or end
		next := strings.Index(out[start+len(prefix):], "\n"+prefix)
		if next < 0 {
			sections = append(sections, out[start:])
			break
		}
		end := start + len(prefix) + next + 1
		sections = append(sections, out[start:end])
		start = end
	}
	return sections
}

func parseFileSection(section string) (Entry, error) {
	scanner := bufio.NewScanner(strings.NewReader(section))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var (
		e            Entry
		pathA, pathB string
		fromLine     string // path from "--- a/..."
		toLine       string // path from "+++ b/..."
		renameFrom   string
		renameTo     string
		copyTo       string
		added        bool
		deleted      bool
		binary       bool
		inHunk       bool
		currentLines []string
	)
	flush := func() {
		if inHunk && len(currentLines) > 0 {
			e.Hunks = append(e.Hunks, strings.Join(currentLines, "\n"))
		}
		currentLines = nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if inHunk {
			if hunkHeaderRegex.MatchString(line) {
				flush()
				currentLines = []string{line}
				continue
			}
			if line == "" || line[0] == ' ' || line[0] == '-' || line[0] == '+' || line[0] == '\\' {
				currentLines = append(currentLines, line)
				continue
			}
		}
		switch {
		case strings.HasPrefix(line, "diff --git "):
			pathA, pathB = parseDiffGitLine(line)
		case strings.HasPrefix(line, "new file mode"):
			added = true
		case strings.HasPrefix(line, "deleted file mode"):
			deleted = true
		case strings.HasPrefix(line, "rename from "):
			renameFrom = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			renameTo = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "copy to "):
			copyTo = strings.TrimPrefix(line, "copy to ")
		case strings.HasPrefix(line, binaryMarker), strings.HasPrefix(line, binaryPatchMarker):
			binary = true
		case strings.HasPrefix(line, "--- "):
			fromLine = parsePathLine(line, "--- ")
		case strings.HasPrefix(line, "+++ "):
			toLine = parsePathLine(line, "+++ ")
		case hunkHeaderRegex.MatchString(line):
			flush()
			currentLines = []string{line}
			inHunk = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Entry{}, err
	}
	flush()

	switch {
	case renameTo != "":
		e.Path = renameTo
	case copyTo != "":
		e.Path = copyTo
	case toLine != "" && toLine != devNull:
		e.Path = toLine
	case pathB != "":
		e.Path = pathB
	case fromLine != "" && fromLine != devNull:
		e.Path = fromLine
	default:
		e.Path = pathA
	}
	switch {
	case binary:
		e.Kind = KindBinary
		e.Hunks = nil
	case renameFrom != "":
		e.Kind = KindRenamed
	case added || copyTo != "":
		e.Kind = KindAdded
	case deleted:
		e.Kind = KindDeleted
	default:
		e.Kind = KindModified
	}
	if renameFrom != "" {
		e.OldPath = renameFrom
	}
	return e, nil
}

const devNull = "/dev/null"

// parseDiffGitLine splits "diff --git a/<p> b/<p>". Paths may contain spaces,
// so when both sides are the same path the line is split at its midpoint.
func parseDiffGitLine(line string) (a, b string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	if n := len(rest); n%2 == 1 {
		half := n / 2
		left, right := rest[:half], rest[half+1:]
		if rest[half] == ' ' && strings.HasPrefix(left, "a/") && strings.HasPrefix(right, "b/") && left[2:] == right[2:] {
			return left[2:], right[2:]
		}
	}
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		a = trimDiffPath(parts[0])
		b = trimDiffPath(parts[len(parts)-1])
	}
	return a, b
}

func trimDiffPath(s string) string {
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}

func parsePathLine(line, prefix string) string {
	s := strings.TrimPrefix(line, prefix)
	// "/dev/null" or "a/path" or "b/path"
	if idx := strings.Index(s, "\t"); idx >= 0 {
		s = s[:idx]
	}
	return trimDiffPath(s)
}
