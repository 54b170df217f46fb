// Package run wires one generation: collect the staged change set, sample
// recent subjects, build the prompt, request one completion and parse it.
// Nothing here writes to the repository; see package apply for that.
package run

import (
	"context"

	"go.uber.org/zap"

	"aigitcommit/cli/internal/commitmsg"
	"aigitcommit/cli/internal/diff"
	"aigitcommit/cli/internal/history"
	"aigitcommit/cli/internal/prompt"
	"aigitcommit/cli/internal/tokens"
	"aigitcommit/cli/internal/trace"
)

// Repository is what the pipeline reads from the repository.
type Repository interface {
	diff.PatchSource
	history.SubjectSource
}

// Deps are the collaborators for Generate.
type Deps struct {
	Repo      Repository
	Completer commitmsg.Completer
	Tracer    *trace.Tracer
}

// Options configure one generation.
type Options struct {
	Diff            diff.Options
	HistorySize     int
	MaxPromptTokens int
	// System overrides the built-in system instructions when non-empty.
	System   string
	TitleMax int
}

// Result is the generated message with the intermediate values that produced it.
type Result struct {
	Message   commitmsg.Message
	ChangeSet *diff.ChangeSet
	History   history.Sample
	Payload   prompt.Payload
}

// Generate runs the pipeline. Collector, sampler and builder failures return
// before any request is sent. History is advisory: a failure to read it is
// logged and generation continues without it.
func Generate(ctx context.Context, deps Deps, opts Options) (*Result, error) {
	tr := deps.Tracer
	log := tr.Logger()

	cs, err := diff.Collect(ctx, deps.Repo, opts.Diff)
	if err != nil {
		return nil, err
	}
	if tr.Enabled() {
		tr.Section("Change set")
		for _, e := range cs.Entries {
			tr.Printf("%s %s hunks=%d truncated=%v\n", e.Kind, e.Path, len(e.Hunks), e.Truncated)
		}
		for _, p := range cs.Omitted {
			tr.Printf("omitted %s\n", p)
		}
		tr.Printf("bytes=%d ceiling=%d truncated=%v\n", len(cs.String()), opts.Diff.MaxBytes, cs.Truncated)
	}

	hist, err := history.Collect(deps.Repo, opts.HistorySize)
	if err != nil {
		log.Warn("could not read commit history; continuing without it", zap.Error(err))
		hist = nil
	}

	payload, err := prompt.Builder{MaxTokens: opts.MaxPromptTokens, System: opts.System}.Build(hist, cs)
	if err != nil {
		return nil, err
	}
	if tr.Enabled() {
		tr.Section("Prompt")
		tr.Printf("history=%d dropped=%d diff_trimmed=%v estimated_tokens=%d ceiling=%d\n",
			len(hist), payload.HistoryDropped, payload.DiffTrimmed, payload.EstimatedTokens, opts.MaxPromptTokens)
	}
	if w := tokens.NearCeiling(payload.EstimatedTokens, opts.MaxPromptTokens, tokens.WarnThreshold); w != "" {
		log.Warn(w)
	}

	msg, err := commitmsg.Generate(ctx, deps.Completer, payload, commitmsg.ParseOptions{TitleMax: opts.TitleMax})
	if err != nil {
		return nil, err
	}
	if tr.Enabled() {
		tr.Section("Message")
		tr.Printf("title=%q body_lines=%d\n", msg.Title, len(msg.Body))
	}
	return &Result{Message: msg, ChangeSet: cs, History: hist, Payload: payload}, nil
}
