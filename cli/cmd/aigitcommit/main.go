package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"aigitcommit/cli/internal/apply"
	"aigitcommit/cli/internal/completion"
	"aigitcommit/cli/internal/config"
	"aigitcommit/cli/internal/confirm"
	"aigitcommit/cli/internal/diff"
	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/git"
	"aigitcommit/cli/internal/prompt"
	"aigitcommit/cli/internal/render"
	"aigitcommit/cli/internal/run"
	"aigitcommit/cli/internal/signoff"
	"aigitcommit/cli/internal/trace"
	"aigitcommit/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// execute runs the root command with the given streams and maps the result to
// an exit code: 0 on success or a declined commit, 2 when the completion
// service failed, 1 otherwise.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr errExit
	if errors.As(err, &exitErr) {
		return int(exitErr)
	}
	printErr(errOut, err)
	return exitCode(err)
}

// leaves flattens errors.Join trees so every failed action is reported.
func leaves(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, leaves(e)...)
		}
		return out
	}
	return []error{err}
}

func printErr(w io.Writer, err error) {
	for _, e := range leaves(err) {
		fmt.Fprintln(w, e)
		if u := errors.Unwrap(e); u != nil {
			fmt.Fprintf(w, "Details: %v\n", u)
		}
	}
}

func exitCode(err error) int {
	code := 0
	for _, e := range leaves(err) {
		switch erruser.KindOf(e) {
		case erruser.KindUserAborted:
		case erruser.KindUpstreamUnavailable, erruser.KindUpstreamRejected, erruser.KindMalformedCompletion:
			code = 2
		default:
			if code == 0 {
				code = 1
			}
		}
	}
	return code
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aigitcommit [repo-path]",
		Short: "Generate a Conventional Commits message for the staged changes",
		Long: "aigitcommit reads the staged changes of a git repository, asks an OpenAI-compatible\n" +
			"chat completion endpoint for a commit message and shows, copies, writes or commits it.",
		Version: version.String(),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runGenerate,
	}
	f := cmd.Flags()
	f.Bool("commit", false, "Create a commit from the staged changes with the generated message")
	f.BoolP("yes", "y", false, "Commit without asking for confirmation")
	f.Bool("copy", false, "Copy the message to the system clipboard")
	f.String("output-file", "", "Prepend the message to this file (e.g. .git/COMMIT_EDITMSG from a hook)")
	f.String("format", "table", "Display format: table, plain or json")
	f.Bool("json", false, "Display the message as JSON (same as --format=json)")
	f.BoolP("quiet", "q", false, "Do not display the message when another action is selected")
	f.Bool("signoff", false, "Append a Signed-off-by trailer")
	f.Bool("no-signoff", false, "Never append a Signed-off-by trailer")
	f.String("subdir", "", "Only consider staged changes under this directory")
	addClientFlags(cmd)
	f.Int("history", 0, "Number of recent commit subjects used as style reference (overrides config)")
	f.Bool("compact", false, "Collapse whitespace in diff lines before sending")
	f.Int("max-diff-bytes", 0, "Ceiling for the serialized diff in bytes, 0 for none (overrides config)")
	f.BoolP("trace", "v", false, "Print internal steps to stderr (change set, prompt size, token usage)")
	cmd.MarkFlagsMutuallyExclusive("commit", "copy", "output-file")
	cmd.MarkFlagsMutuallyExclusive("signoff", "no-signoff")
	cmd.MarkFlagsMutuallyExclusive("json", "format")
	return cmd
}

// addClientFlags adds flags shared by generate and doctor.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("model", "", "Model name (overrides OPENAI_MODEL_NAME and config)")
	f.String("api-base", "", "API base URL (overrides OPENAI_API_BASE and config)")
	f.String("proxy", "", "Proxy URL: http, https, socks5 or socks5h (overrides OPENAI_API_PROXY and config)")
	f.Duration("timeout", 0, "Request timeout, e.g. 30s (overrides config)")
	f.Int("max-tokens", 0, "Maximum completion tokens, 0 for the server default (overrides config)")
}

// overridesFromFlags returns Overrides for the flags that were set.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	o := &config.Overrides{}
	if changed("model") {
		v, _ := cmd.Flags().GetString("model")
		o.Model = &v
	}
	if changed("api-base") {
		v, _ := cmd.Flags().GetString("api-base")
		o.APIBase = &v
	}
	if changed("proxy") {
		v, _ := cmd.Flags().GetString("proxy")
		o.Proxy = &v
	}
	if changed("timeout") {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.Timeout = &v
	}
	if changed("max-tokens") {
		v, _ := cmd.Flags().GetInt("max-tokens")
		o.MaxTokens = &v
	}
	if changed("history") {
		v, _ := cmd.Flags().GetInt("history")
		o.HistorySize = &v
	}
	if changed("compact") {
		v, _ := cmd.Flags().GetBool("compact")
		o.CompactDiff = &v
	}
	if changed("max-diff-bytes") {
		v, _ := cmd.Flags().GetInt("max-diff-bytes")
		o.MaxDiffBytes = &v
	}
	return o
}

// signoffFlag returns the explicit --signoff/--no-signoff choice, or nil.
func signoffFlag(cmd *cobra.Command) *bool {
	if fl := cmd.Flags().Lookup("signoff"); fl != nil && fl.Changed {
		v, _ := cmd.Flags().GetBool("signoff")
		return &v
	}
	if fl := cmd.Flags().Lookup("no-signoff"); fl != nil && fl.Changed {
		v, _ := cmd.Flags().GetBool("no-signoff")
		v = !v
		return &v
	}
	return nil
}

func planFromFlags(cmd *cobra.Command) (apply.Plan, error) {
	f := cmd.Flags()
	formatStr, _ := f.GetString("format")
	if asJSON, _ := f.GetBool("json"); asJSON {
		formatStr = string(render.FormatJSON)
	}
	format, err := render.ParseFormat(formatStr)
	if err != nil {
		return apply.Plan{}, erruser.New("Invalid --format value.", err)
	}
	plan := apply.Plan{Format: format}
	plan.SkipConfirm, _ = f.GetBool("yes")
	plan.Quiet, _ = f.GetBool("quiet")
	plan.FilePath, _ = f.GetString("output-file")
	switch {
	case plan.FilePath != "":
		plan.Action = apply.ActionWriteFile
	case boolFlag(cmd, "commit"):
		plan.Action = apply.ActionCommit
	case boolFlag(cmd, "copy"):
		plan.Action = apply.ActionCopy
	}
	return plan, plan.Validate()
}

func boolFlag(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

// openRepo opens the repository at the positional path (default: current directory).
func openRepo(args []string) (*git.Repository, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return git.Open(path)
}

func newTracer(cmd *cobra.Command) *trace.Tracer {
	if boolFlag(cmd, "trace") {
		return trace.New(cmd.ErrOrStderr())
	}
	return trace.New(nil)
}

func newClient(cfg *config.Config, tr *trace.Tracer) (*completion.Client, error) {
	if cfg.APIToken == "" && isOpenAI(cfg.APIBase) {
		return nil, erruser.New("OPENAI_API_TOKEN is not set; export it or set api_token in the config file.", nil)
	}
	return completion.New(completion.Options{
		BaseURL:   cfg.APIBase,
		Token:     cfg.APIToken,
		Model:     cfg.Model,
		Proxy:     cfg.Proxy,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
		Tracer:    tr,
	})
}

// isOpenAI reports whether base points at the hosted OpenAI API, which always
// needs a token. Self-hosted compatible servers often do not.
func isOpenAI(base string) bool {
	u, err := url.Parse(base)
	return err == nil && strings.EqualFold(u.Hostname(), "api.openai.com")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	plan, err := planFromFlags(cmd)
	if err != nil {
		return err
	}
	repo, err := openRepo(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(ctx, config.LoadOptions{RepoRoot: repo.Root(), Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	tr := newTracer(cmd)
	system, err := prompt.LoadSystem(cfg.SystemPromptFile)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, tr)
	if err != nil {
		return err
	}
	if tr.Enabled() {
		tr.Section("Configuration")
		tr.Printf("repo=%s base=%s model=%s timeout=%s proxy=%v\n", repo.Root(), cfg.APIBase, cfg.Model, cfg.Timeout, cfg.Proxy != "")
	}

	// Sign-off inputs are resolved before any completion request.
	repoSetting, set, err := repo.SignoffSetting()
	if err != nil {
		return err
	}
	in := signoff.Inputs{Policy: cfg.SignoffPolicy, Toggle: cfg.Signoff, Flag: signoffFlag(cmd)}
	if set {
		in.Repo = &repoSetting
	}
	sign := signoff.Resolve(in)
	var signer git.Identity
	if sign {
		if signer, err = repo.Author(); err != nil {
			return err
		}
	}

	subdir, _ := cmd.Flags().GetString("subdir")
	res, err := run.Generate(ctx, run.Deps{Repo: repo, Completer: client, Tracer: tr}, run.Options{
		Diff: diff.Options{
			Subdir:          subdir,
			ContextLines:    cfg.ContextLines,
			ExcludePatterns: cfg.ExcludePatterns,
			Compact:         cfg.CompactDiff,
			MaxBytes:        cfg.MaxDiffBytes,
		},
		HistorySize:     cfg.HistorySize,
		MaxPromptTokens: cfg.MaxPromptTokens,
		System:          system,
		TitleMax:        cfg.TitleMaxLength,
	})
	if err != nil {
		return err
	}

	msg := res.Message
	if sign {
		msg = signoff.Apply(msg, signer.Name, signer.Email)
	}

	term := confirm.Terminal{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	orch := &apply.Orchestrator{
		Out:       cmd.OutOrStdout(),
		Committer: repo,
		Confirm:   term.Confirm,
		Tracer:    tr,
	}
	outcomes, err := orch.Apply(ctx, msg, plan)
	for _, o := range outcomes {
		switch o.Kind {
		case apply.Committed:
			fmt.Fprintf(cmd.ErrOrStderr(), "Created commit %s\n", shortID(o.CommitID))
		case apply.WrittenToFile:
			if !plan.Quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote message to %s\n", o.Path)
			}
		case apply.Copied:
			if !plan.Quiet {
				fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
			}
		}
	}
	return err
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [repo-path]",
		Short: "Verify the completion endpoint, token and model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDoctor,
	}
	addClientFlags(cmd)
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	repoRoot := ""
	if repo, err := openRepo(args); err == nil {
		repoRoot = repo.Root()
		fmt.Fprintf(out, "Repository: %s\n", repoRoot)
	} else {
		fmt.Fprintf(out, "Repository: not found (%v)\n", err)
	}
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	client, err := newClient(cfg, trace.New(nil))
	if err != nil {
		return err
	}
	result, err := client.Check(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Completion endpoint check failed at %s.\n", cfg.APIBase)
		return err
	}
	fmt.Fprintf(out, "API OK: %s (%d models)\n", cfg.APIBase, len(result.ModelNames))
	if !result.ModelPresent {
		fmt.Fprintf(cmd.ErrOrStderr(), "Model %q is not offered by this endpoint. Set OPENAI_MODEL_NAME or --model.\n", cfg.Model)
		return errExit(1)
	}
	fmt.Fprintf(out, "Model: %s\n", cfg.Model)
	return nil
}
