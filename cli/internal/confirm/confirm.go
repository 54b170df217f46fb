// Package confirm asks the user a yes/no question before the commit is created.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"aigitcommit/cli/internal/erruser"
)

// Func asks question and reports whether the user agreed. Declining is
// (false, nil); an interrupted or impossible prompt is an error.
type Func func(ctx context.Context, question string) (bool, error)

// Always agrees without asking; used for --yes.
func Always(context.Context, string) (bool, error) { return true, nil }

// ErrNotTerminal means stdin cannot answer a prompt.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Terminal prompts on Out and reads one line from In. Only "y" and "yes"
// (any case) agree; an empty line or EOF declines.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Func. When In is a file that is not a terminal the
// prompt is refused with KindUserAborted so a piped run never commits by
// accident; --yes is the way to skip the question.
func (t Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	if f, ok := t.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, erruser.WithKind(erruser.KindUserAborted,
			"Cannot ask for confirmation without a terminal; re-run with --yes to commit.", ErrNotTerminal)
	}
	if t.Out != nil {
		fmt.Fprintf(t.Out, "%s [y/N] ", question)
	}

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(t.In).ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		if t.Out != nil {
			fmt.Fprintln(t.Out)
		}
		return false, erruser.WithKind(erruser.KindUserAborted, "Confirmation interrupted.", ctx.Err())
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, erruser.New("Could not read the confirmation answer.", a.err)
		}
		return Parse(a.line), nil
	}
}

// Parse reports whether s is an affirmative answer.
func Parse(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
