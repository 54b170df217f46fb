// Package apply performs the terminal actions for a generated message:
// display it, copy it, prepend it to a file, or commit it.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"aigitcommit/cli/internal/commitmsg"
	"aigitcommit/cli/internal/confirm"
	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/render"
	"aigitcommit/cli/internal/trace"
)

// Action is the one mutating action a plan may select.
type Action int

// Actions. ActionNone only displays the message.
const (
	ActionNone Action = iota
	ActionCopy
	ActionWriteFile
	ActionCommit
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCopy:
		return "copy"
	case ActionWriteFile:
		return "write-file"
	case ActionCommit:
		return "commit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// OutcomeKind tags an Outcome.
type OutcomeKind string

// Outcome kinds.
const (
	Displayed     OutcomeKind = "displayed"
	Copied        OutcomeKind = "copied"
	WrittenToFile OutcomeKind = "written_to_file"
	Committed     OutcomeKind = "committed"
)

// Outcome records one completed action. Path is set for WrittenToFile,
// CommitID for Committed.
type Outcome struct {
	Kind     OutcomeKind
	Path     string
	CommitID string
}

// CommitQuestion is asked before committing unless the plan skips it.
const CommitQuestion = "Commit with this message?"

// Plan selects what Apply does.
type Plan struct {
	Format render.Format
	Action Action
	// FilePath is the target of ActionWriteFile.
	FilePath string
	// SkipConfirm commits without asking.
	SkipConfirm bool
	// Quiet suppresses the display when another action is selected.
	Quiet bool
}

// Validate rejects plans that name inputs for an action they did not select.
func (p Plan) Validate() error {
	switch p.Action {
	case ActionNone, ActionCopy, ActionCommit:
		if p.FilePath != "" {
			return erruser.New("An output file was given without selecting the write-file action.", nil)
		}
	case ActionWriteFile:
		if p.FilePath == "" {
			return erruser.New("Writing the message to a file requires a file path.", nil)
		}
	default:
		return erruser.New(fmt.Sprintf("Unknown action %s.", p.Action), nil)
	}
	return nil
}

// Committer creates a commit from the current index.
type Committer interface {
	Commit(ctx context.Context, message string) (string, error)
}

// Orchestrator carries the collaborators for Apply. Clipboard defaults to the
// system clipboard and Confirm is required only for unconfirmed commits.
type Orchestrator struct {
	Out       io.Writer
	Clipboard Clipboard
	Committer Committer
	Confirm   confirm.Func
	Tracer    *trace.Tracer
}

// Apply displays msg (unless quiet) and runs the selected action. Completed
// outcomes are returned even when a later action fails; every failure is
// joined into the returned error. A declined confirmation returns
// KindUserAborted and leaves the repository untouched.
func (o *Orchestrator) Apply(ctx context.Context, msg commitmsg.Message, plan Plan) ([]Outcome, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	log := o.Tracer.Logger()
	var outcomes []Outcome
	var errs []error

	if !plan.Quiet || plan.Action == ActionNone {
		if err := render.Write(o.Out, msg, plan.Format); err != nil {
			errs = append(errs, erruser.WithKind(erruser.KindIO, "Could not write the message to the output.", err))
		} else {
			outcomes = append(outcomes, Outcome{Kind: Displayed})
		}
	}

	text := msg.Text()
	switch plan.Action {
	case ActionCopy:
		cb := o.Clipboard
		if cb == nil {
			cb = SystemClipboard{}
		}
		if err := copyText(cb, text); err != nil {
			errs = append(errs, err)
			break
		}
		log.Debug("message copied to clipboard")
		outcomes = append(outcomes, Outcome{Kind: Copied})
	case ActionWriteFile:
		if err := PrependFile(plan.FilePath, text); err != nil {
			errs = append(errs, err)
			break
		}
		log.Debug("message written", zap.String("path", plan.FilePath))
		outcomes = append(outcomes, Outcome{Kind: WrittenToFile, Path: plan.FilePath})
	case ActionCommit:
		id, err := o.commit(ctx, text, plan.SkipConfirm)
		if err != nil {
			errs = append(errs, err)
			break
		}
		log.Debug("commit created", zap.String("id", id))
		outcomes = append(outcomes, Outcome{Kind: Committed, CommitID: id})
	}
	return outcomes, errors.Join(errs...)
}

func (o *Orchestrator) commit(ctx context.Context, text string, skipConfirm bool) (string, error) {
	if o.Committer == nil {
		return "", erruser.WithKind(erruser.KindCommitFailed, "No repository is available to commit to.", nil)
	}
	if !skipConfirm {
		ask := o.Confirm
		if ask == nil {
			return "", erruser.WithKind(erruser.KindUserAborted, "No way to confirm the commit; re-run with --yes.", nil)
		}
		ok, err := ask(ctx, CommitQuestion)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", erruser.WithKind(erruser.KindUserAborted, "Commit aborted; the repository was not changed.", nil)
		}
	}
	return o.Committer.Commit(ctx, text)
}
