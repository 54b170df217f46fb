// Package commitmsg turns the completion text into a structured commit message
// (title plus at most five body bullets) and renders it back for git.
package commitmsg

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/prompt"
)

// MaxBodyLines is the hard cap on body bullets kept from a response.
const MaxBodyLines = 5

const _defaultTitleMax = 72

// Message is a parsed commit message. Title is never empty.
type Message struct {
	Title   string   `json:"title"`
	Body    []string `json:"body"`
	Signoff string   `json:"signoff"`
}

// Text renders the message as git expects it: title, blank line, "- " bullets,
// then the sign-off trailer after another blank line.
func (m Message) Text() string {
	if d := m.Description(); d != "" {
		return m.Title + "\n\n" + d
	}
	return m.Title
}

// Description is everything after the title: the bullets and the trailer.
func (m Message) Description() string {
	var b strings.Builder
	for i, line := range m.Body {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	if m.Signoff != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Signoff)
	}
	return b.String()
}

// ParseOptions tunes Parse. Zero TitleMax uses 72.
type ParseOptions struct {
	TitleMax int
}

// Completer issues one completion request for a payload.
type Completer interface {
	Complete(ctx context.Context, p prompt.Payload) (string, error)
}

// Generate requests one completion and parses it. Completer errors are
// returned unchanged.
func Generate(ctx context.Context, c Completer, p prompt.Payload, opts ParseOptions) (Message, error) {
	raw, err := c.Complete(ctx, p)
	if err != nil {
		return Message{}, err
	}
	return Parse(raw, opts)
}

// Parse reads a completion response. Code-fence lines are ignored; the first
// non-empty line is the title; exactly one blank line after it is skipped;
// every later non-empty line becomes a body entry with its bullet marker and
// decorative symbols removed. Extra bullets past MaxBodyLines are dropped, as is
// any Signed-off-by trailer the model produced.
func Parse(raw string, opts ParseOptions) (Message, error) {
	titleMax := opts.TitleMax
	if titleMax <= 0 {
		titleMax = _defaultTitleMax
	}
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		lines = append(lines, l)
	}

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return Message{}, erruser.WithKind(erruser.KindMalformedCompletion,
			"The completion did not contain a commit title.", fmt.Errorf("response %q", truncateUTF8(raw, 200)))
	}
	msg := Message{Title: truncateTitle(strings.TrimSpace(lines[i]), titleMax)}
	i++
	if i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	for ; i < len(lines) && len(msg.Body) < MaxBodyLines; i++ {
		line := cleanBullet(lines[i])
		if line == "" || strings.HasPrefix(line, "Signed-off-by:") {
			continue
		}
		msg.Body = append(msg.Body, line)
	}
	return msg, nil
}

// cleanBullet strips one leading bullet marker ("-", "*", "+", "•", "1." or
// "1)") and all symbol runes (emoji, dingbats), then normalizes spaces.
func cleanBullet(line string) string {
	s := strings.TrimSpace(line)
	if r, size := utf8.DecodeRuneInString(s); r == '-' || r == '*' || r == '+' || r == '•' {
		s = s[size:]
	} else if n := leadingDigits(s); n > 0 && n+1 < len(s) && (s[n] == '.' || s[n] == ')') && s[n+1] == ' ' {
		s = s[n+1:]
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.So, r) || r == '\uFE0F' || r == '\u200D' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// truncateTitle cuts s to max runes, ending with "…" when shortened.
func truncateTitle(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + "…"
}

// truncateUTF8 returns s truncated to at most maxBytes, without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
