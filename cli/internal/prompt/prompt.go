// Package prompt builds the single completion request from the system
// instructions, the history sample and the change set, within a token ceiling.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"aigitcommit/cli/internal/diff"
	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/history"
	"aigitcommit/cli/internal/tokens"
)

// DefaultSystemInstructions tells the model how to shape the commit message.
// Used unless a system prompt file is configured.
const DefaultSystemInstructions = `You write git commit messages following the Conventional Commits specification.

Rules:
1. The first line is the title: type(scope): summary. The scope is optional.
   Allowed types: feat, fix, docs, style, refactor, perf, test, build, ci, chore, revert.
2. Keep the title under 72 characters, in the imperative mood, without a trailing period.
   You may end the title with one emoji that matches the type; emoji are allowed on the title line only.
3. The second line must be blank.
4. After the blank line, write at most 5 bullet points, each starting with "- ", describing what changed and why.
   Do not use emoji, icons or other decorative symbols in the bullet points.
5. Recent commit subjects are given only as a style reference. Match their language and conventions; never describe them.
6. Output only the commit message. No code fences, no explanations, no quotes.`

const (
	historyHeading = "Recent commit subjects (style reference only, do not summarize them):\n"
	diffHeading    = "Staged changes:\n"
)

// Payload is one completion request. It owns no resources.
type Payload struct {
	System string
	User   string
	// EstimatedTokens covers System and User together.
	EstimatedTokens int
	// HistoryDropped counts subjects removed to fit the ceiling.
	HistoryDropped int
	// DiffTrimmed is set when the change set text was cut to fit.
	DiffTrimmed bool
}

// Builder renders payloads. MaxTokens <= 0 means no ceiling; an empty System
// uses DefaultSystemInstructions.
type Builder struct {
	MaxTokens int
	System    string
}

// Build renders the payload deterministically. Over the ceiling, history is
// dropped oldest-first, then the diff tail is cut on a line boundary with a
// single truncation marker. System instructions are never cut: when they and
// the section headings exceed the ceiling Build fails with KindPayloadTooLarge.
func (b Builder) Build(hist history.Sample, cs *diff.ChangeSet) (Payload, error) {
	system := b.System
	if system == "" {
		system = DefaultSystemInstructions
	}
	ceiling := tokens.BytesFor(b.MaxTokens)
	if ceiling > 0 && len(system) > ceiling {
		return Payload{}, erruser.WithKind(erruser.KindPayloadTooLarge,
			"The system instructions alone exceed the prompt token ceiling; raise max_prompt_tokens.",
			fmt.Errorf("system instructions estimate %d tokens, ceiling %d", tokens.Estimate(system), b.MaxTokens))
	}

	p := Payload{System: system}
	diffText := cs.String()
	subjects := append(history.Sample(nil), hist...)
	user := renderUser(subjects, diffText)

	if ceiling > 0 {
		for len(system)+len(user) > ceiling && len(subjects) > 0 {
			subjects = subjects[:len(subjects)-1]
			p.HistoryDropped++
			user = renderUser(subjects, diffText)
		}
		if len(system)+len(user) > ceiling {
			room := ceiling - len(system) - len(renderUser(subjects, ""))
			if room < 0 {
				return Payload{}, erruser.WithKind(erruser.KindPayloadTooLarge,
					"The system instructions leave no room for the staged changes under the prompt token ceiling; raise max_prompt_tokens.",
					fmt.Errorf("prompt without diff needs %d bytes, ceiling %d bytes", ceiling-room, ceiling))
			}
			if room == 0 {
				diffText = ""
			} else {
				diffText = diff.TruncateText(diffText, room)
			}
			p.DiffTrimmed = true
			user = renderUser(subjects, diffText)
		}
	}
	p.User = user
	p.EstimatedTokens = tokens.Estimate(system + user)
	return p, nil
}

func renderUser(subjects history.Sample, diffText string) string {
	var sb strings.Builder
	if lines := subjects.Lines(); lines != "" {
		sb.WriteString(historyHeading)
		sb.WriteString(lines)
		sb.WriteByte('\n')
	}
	sb.WriteString(diffHeading)
	sb.WriteString(diffText)
	return sb.String()
}

// LoadSystem returns the contents of path (trimmed) for use as Builder.System.
// An empty path returns DefaultSystemInstructions. A missing or empty file is
// an error, since the user asked for it explicitly.
func LoadSystem(path string) (string, error) {
	if path == "" {
		return DefaultSystemInstructions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", erruser.New("Could not read the system prompt file.", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", erruser.New("The system prompt file is empty.", nil)
	}
	return s, nil
}
