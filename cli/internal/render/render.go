// Package render writes a commit message as a bordered table, plain text or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"aigitcommit/cli/internal/commitmsg"
)

// Format selects the output shape.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
)

// TableWidth is the maximum rendered table width in columns.
const TableWidth = 120

// ParseFormat parses a --format value (case-insensitive). Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatPlain, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, plain or json)", s)
	}
}

// Write renders m to w in format f.
func Write(w io.Writer, m commitmsg.Message, f Format) error {
	switch f {
	case FormatJSON:
		if m.Body == nil {
			m.Body = []string{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(m)
	case FormatPlain:
		_, err := fmt.Fprintln(w, m.Text())
		return err
	case FormatTable, "":
		_, err := fmt.Fprintln(w, Table(m))
		return err
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// Table renders the two-row Title/Content table with rounded borders.
func Table(m commitmsg.Message) string {
	label := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Width(TableWidth).
		BorderRow(true).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return label
			}
			return cell
		}).
		Row("Title", m.Title)
	if d := m.Description(); d != "" {
		t = t.Row("Content", d)
	}
	return t.String()
}
