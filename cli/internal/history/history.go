// Package history samples recent commit subjects so the generated message
// follows the project's existing style. The sample is advisory: it is never
// summarized and an empty sample is not an error.
package history

import "strings"

// SubjectSource yields subject lines reachable from HEAD, newest first.
// Implemented by git.Repository.
type SubjectSource interface {
	RecentSubjects(n int) ([]string, error)
}

// Sample is up to N prior subjects, most recent first.
type Sample []string

// Collect returns up to n subjects from src. n <= 0 or a repository without
// commits yields an empty sample. Blank subjects are skipped and long ones
// are cut to maxSubjectLen runes.
func Collect(src SubjectSource, n int) (Sample, error) {
	if n <= 0 || src == nil {
		return nil, nil
	}
	subjects, err := src.RecentSubjects(n)
	if err != nil {
		return nil, err
	}
	out := make(Sample, 0, len(subjects))
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if r := []rune(s); len(r) > maxSubjectLen {
			s = string(r[:maxSubjectLen])
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// maxSubjectLen bounds one subject in the prompt; merge subjects can be long.
const maxSubjectLen = 200

// Lines renders the sample one subject per line, or "" when empty.
func (s Sample) Lines() string {
	if len(s) == 0 {
		return ""
	}
	return "- " + strings.Join(s, "\n- ") + "\n"
}
