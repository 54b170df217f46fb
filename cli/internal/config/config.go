// Package config provides aigitcommit configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .aigitcommit.toml (relative to repo root)
//   - Global: XDG config dir, e.g. ~/.config/aigitcommit/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - OPENAI_API_TOKEN, OPENAI_API_BASE, OPENAI_MODEL_NAME.
//   - OPENAI_API_PROXY (http, https, socks5 or socks5h URL); OPENAI_APT_PROXY is read too for older setups.
//   - OPENAI_REQUEST_TIMEOUT (Go duration string or integer seconds), OPENAI_API_MAX_TOKENS.
//   - AIGITCOMMIT_SIGNOFF (1/true/yes/on = true, 0/false/no/off = false), AIGITCOMMIT_SIGNOFF_POLICY (repository, environment).
//   - AIGITCOMMIT_MAX_DIFF_BYTES, AIGITCOMMIT_MAX_PROMPT_TOKENS, AIGITCOMMIT_HISTORY_SIZE, AIGITCOMMIT_CONTEXT_LINES.
//   - AIGITCOMMIT_COMPACT_DIFF (boolean), AIGITCOMMIT_EXCLUDE (comma-separated globs, replaces the default list).
//   - AIGITCOMMIT_TITLE_MAX (title ceiling in characters), AIGITCOMMIT_SYSTEM_PROMPT_FILE.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"aigitcommit/cli/internal/erruser"
)

// Sign-off policies. PolicyRepository lets the repository's git config decide
// when it sets aigitcommit.signoff; PolicyEnvironment uses the toggle only.
const (
	PolicyRepository  = "repository"
	PolicyEnvironment = "environment"
)

// Config holds all aigitcommit configuration. It is resolved once per run and
// passed by value; nothing below the CLI reads the environment directly.
type Config struct {
	APIToken string        `toml:"api_token"`
	APIBase  string        `toml:"api_base"`
	Model    string        `toml:"model"`
	Proxy    string        `toml:"proxy" validate:"omitempty,proxyurl"`
	Timeout  time.Duration `toml:"timeout" validate:"gt=0"`
	// MaxTokens caps the completion length (max_tokens on the request; 0 = server default).
	MaxTokens int `toml:"max_tokens" validate:"gte=0"`
	// MaxPromptTokens is the ceiling for system + user prompt text, estimated at 4 characters per token.
	MaxPromptTokens int `toml:"max_prompt_tokens" validate:"gte=0"`
	// MaxDiffBytes caps the serialized change set (0 = no cap).
	MaxDiffBytes int `toml:"max_diff_bytes" validate:"eq=0|gte=64"`
	HistorySize  int `toml:"history_size" validate:"gte=0"`
	ContextLines int `toml:"context_lines" validate:"gte=0"`
	// CompactDiff collapses runs of whitespace inside hunk lines before the size cap.
	CompactDiff bool `toml:"compact_diff"`
	// ExcludePatterns are doublestar globs matched against the path and the base name.
	// When set they replace the built-in noise list.
	ExcludePatterns []string `toml:"exclude"`
	Signoff         bool     `toml:"signoff"`
	SignoffPolicy   string   `toml:"signoff_policy" validate:"oneof=repository environment"`
	TitleMaxLength  int      `toml:"title_max_length" validate:"gt=1"`
	// SystemPromptFile replaces the built-in system instructions. A relative
	// path in the repo config is resolved against the repository root.
	SystemPromptFile string `toml:"system_prompt_file"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value".
type Overrides struct {
	APIBase      *string
	Model        *string
	Proxy        *string
	Timeout      *time.Duration
	MaxTokens    *int
	HistorySize  *int
	CompactDiff  *bool
	MaxDiffBytes *int
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot is the repository root; if set, repo config is RepoRoot/.aigitcommit.toml.
	RepoRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultAPIBase         = "https://api.openai.com/v1"
	_defaultModel           = "gpt-4"
	_defaultTimeout         = 60 * time.Second
	_defaultMaxTokens       = 0
	_defaultMaxPromptTokens = 16384
	_defaultMaxDiffBytes    = 32768
	_defaultHistorySize     = 5
	_defaultContextLines    = 3
	_defaultTitleMaxLength  = 72

	// _minDiffBytes leaves room for the truncation marker and one file header.
	_minDiffBytes = 64
)

// RepoConfigFile is the repository-level config file name.
const RepoConfigFile = ".aigitcommit.toml"

// errIntOverflow is returned when an int64 value does not fit in int (e.g. on 32-bit or huge TOML/env values).
var errIntOverflow = errors.New("value out of range for int")

// int64ToInt converts n to int. It returns an error if n is outside the range of int (e.g. overflow on 32-bit).
func int64ToInt(n int64) (int, error) {
	if n < int64(math.MinInt) || n > int64(math.MaxInt) {
		return 0, errIntOverflow
	}
	return int(n), nil
}

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		APIBase:         _defaultAPIBase,
		Model:           _defaultModel,
		Timeout:         _defaultTimeout,
		MaxTokens:       _defaultMaxTokens,
		MaxPromptTokens: _defaultMaxPromptTokens,
		MaxDiffBytes:    _defaultMaxDiffBytes,
		HistorySize:     _defaultHistorySize,
		ContextLines:    _defaultContextLines,
		SignoffPolicy:   PolicyRepository,
		TitleMaxLength:  _defaultTitleMaxLength,
	}
}

// Load loads configuration with precedence: defaults < global file < repo file < env < overrides.
// Missing config files are ignored. Invalid TOML or invalid env values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "aigitcommit", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath, filepath.Dir(globalPath)); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(opts.RepoRoot, RepoConfigFile), opts.RepoRoot); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the resolved Config against its struct tags. Field names in
// errors are the TOML keys.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("proxyurl", func(fl validator.FieldLevel) bool {
		return validateProxy(fl.Field().String()) == nil
	})
	return v
}

// Validate checks values that cannot be caught while parsing a single source.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return erruser.New("Configuration is invalid.", err)
	}
	return fieldError(c, verrs[0])
}

func fieldError(c Config, fe validator.FieldError) error {
	switch fe.Field() {
	case "timeout":
		return erruser.New("Request timeout must be greater than zero.", fe)
	case "max_diff_bytes":
		if c.MaxDiffBytes < 0 {
			return erruser.New("Size and count settings must be non-negative.", fe)
		}
		return erruser.New(fmt.Sprintf("Diff size ceiling must be 0 (unbounded) or at least %d bytes.", _minDiffBytes), fe)
	case "max_tokens", "max_prompt_tokens", "history_size", "context_lines":
		return erruser.New("Size and count settings must be non-negative.", fe)
	case "title_max_length":
		return erruser.New("Title length ceiling must be greater than 1.", fe)
	case "signoff_policy":
		return erruser.New("Sign-off policy must be repository or environment.", fe)
	case "proxy":
		return validateProxy(c.Proxy)
	}
	return erruser.New(fmt.Sprintf("Configuration value %s is invalid.", fe.Field()), fe)
}

func validateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return erruser.New("Proxy address is not a valid URL.", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return erruser.New("Proxy address must use http, https, socks5 or socks5h.", fmt.Errorf("scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return erruser.New("Proxy address must include a host.", nil)
	}
	return nil
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present in the file (so omitted keys keep the previous value).
// Missing file is skipped (no error). Relative paths in the file resolve against base.
func mergeFile(cfg *Config, path, base string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		APIToken        *string  `toml:"api_token"`
		APIBase         *string  `toml:"api_base"`
		Model           *string  `toml:"model"`
		Proxy           *string  `toml:"proxy"`
		Timeout         *string  `toml:"timeout"`
		MaxTokens       *int64   `toml:"max_tokens"`
		MaxPromptTokens *int64   `toml:"max_prompt_tokens"`
		MaxDiffBytes    *int64   `toml:"max_diff_bytes"`
		HistorySize     *int64   `toml:"history_size"`
		ContextLines    *int64   `toml:"context_lines"`
		CompactDiff     *bool    `toml:"compact_diff"`
		Exclude         []string `toml:"exclude"`
		Signoff         *bool    `toml:"signoff"`
		SignoffPolicy   *string  `toml:"signoff_policy"`
		TitleMaxLength  *int64   `toml:"title_max_length"`
		SystemPrompt    *string  `toml:"system_prompt_file"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(fmt.Sprintf("Invalid configuration in %s.", filepath.Base(path)), err)
	}
	if file.APIToken != nil && *file.APIToken != "" {
		cfg.APIToken = *file.APIToken
	}
	if file.APIBase != nil && *file.APIBase != "" {
		cfg.APIBase = *file.APIBase
	}
	if file.Model != nil && *file.Model != "" {
		cfg.Model = *file.Model
	}
	if file.Proxy != nil {
		cfg.Proxy = *file.Proxy
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New("Configuration timeout is invalid.", err)
		}
		cfg.Timeout = d
	}
	ints := []struct {
		key string
		src *int64
		dst *int
	}{
		{"max_tokens", file.MaxTokens, &cfg.MaxTokens},
		{"max_prompt_tokens", file.MaxPromptTokens, &cfg.MaxPromptTokens},
		{"max_diff_bytes", file.MaxDiffBytes, &cfg.MaxDiffBytes},
		{"history_size", file.HistorySize, &cfg.HistorySize},
		{"context_lines", file.ContextLines, &cfg.ContextLines},
		{"title_max_length", file.TitleMaxLength, &cfg.TitleMaxLength},
	}
	for _, f := range ints {
		if f.src == nil {
			continue
		}
		if *f.src < 0 {
			return erruser.New(fmt.Sprintf("Configuration %s must be non-negative.", f.key), nil)
		}
		v, err := int64ToInt(*f.src)
		if err != nil {
			return erruser.New(fmt.Sprintf("Configuration %s value out of range.", f.key), err)
		}
		*f.dst = v
	}
	if file.CompactDiff != nil {
		cfg.CompactDiff = *file.CompactDiff
	}
	if file.Exclude != nil {
		cfg.ExcludePatterns = file.Exclude
	}
	if file.Signoff != nil {
		cfg.Signoff = *file.Signoff
	}
	if file.SignoffPolicy != nil && *file.SignoffPolicy != "" {
		cfg.SignoffPolicy = strings.ToLower(strings.TrimSpace(*file.SignoffPolicy))
	}
	if file.SystemPrompt != nil {
		cfg.SystemPromptFile = resolvePath(base, *file.SystemPrompt)
	}
	return nil
}

func resolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	// Try Go duration first (e.g. "5m", "30s")
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	// Try integer seconds
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// env key names for config
const (
	envAPIToken        = "OPENAI_API_TOKEN"
	envAPIBase         = "OPENAI_API_BASE"
	envModel           = "OPENAI_MODEL_NAME"
	envProxy           = "OPENAI_API_PROXY"
	envProxyLegacy     = "OPENAI_APT_PROXY"
	envTimeout         = "OPENAI_REQUEST_TIMEOUT"
	envMaxTokens       = "OPENAI_API_MAX_TOKENS"
	envSignoff         = "AIGITCOMMIT_SIGNOFF"
	envSignoffPolicy   = "AIGITCOMMIT_SIGNOFF_POLICY"
	envMaxDiffBytes    = "AIGITCOMMIT_MAX_DIFF_BYTES"
	envMaxPromptTokens = "AIGITCOMMIT_MAX_PROMPT_TOKENS"
	envHistorySize     = "AIGITCOMMIT_HISTORY_SIZE"
	envContextLines    = "AIGITCOMMIT_CONTEXT_LINES"
	envCompactDiff     = "AIGITCOMMIT_COMPACT_DIFF"
	envExclude         = "AIGITCOMMIT_EXCLUDE"
	envTitleMax        = "AIGITCOMMIT_TITLE_MAX"
	envSystemPrompt    = "AIGITCOMMIT_SYSTEM_PROMPT_FILE"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(e[:idx])
		val := strings.TrimSpace(e[idx+1:])
		vals[key] = val
	}
	if v, ok := vals[envAPIToken]; ok && v != "" {
		cfg.APIToken = v
	}
	if v, ok := vals[envAPIBase]; ok && v != "" {
		cfg.APIBase = v
	}
	if v, ok := vals[envModel]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := vals[envProxyLegacy]; ok && v != "" {
		cfg.Proxy = v
	}
	if v, ok := vals[envProxy]; ok && v != "" {
		cfg.Proxy = v
	}
	if v, ok := vals[envTimeout]; ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New(envTimeout+" must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	ints := []struct {
		key string
		dst *int
	}{
		{envMaxTokens, &cfg.MaxTokens},
		{envMaxDiffBytes, &cfg.MaxDiffBytes},
		{envMaxPromptTokens, &cfg.MaxPromptTokens},
		{envHistorySize, &cfg.HistorySize},
		{envContextLines, &cfg.ContextLines},
		{envTitleMax, &cfg.TitleMaxLength},
	}
	for _, f := range ints {
		v, ok := vals[f.key]
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return erruser.New(f.key+" must be a valid number.", err)
		}
		if n < 0 {
			return erruser.New(f.key+" must be non-negative.", nil)
		}
		*f.dst, err = int64ToInt(n)
		if err != nil {
			return erruser.New(f.key+" value out of range.", err)
		}
	}
	if v, ok := vals[envSignoff]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New(envSignoff+" must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.Signoff = b
	}
	if v, ok := vals[envSignoffPolicy]; ok && v != "" {
		cfg.SignoffPolicy = strings.ToLower(v)
	}
	if v, ok := vals[envCompactDiff]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New(envCompactDiff+" must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.CompactDiff = b
	}
	if v, ok := vals[envExclude]; ok {
		cfg.ExcludePatterns = splitList(v)
	}
	if v, ok := vals[envSystemPrompt]; ok {
		cfg.SystemPromptFile = v
	}
	return nil
}

// splitList splits a comma-separated list, dropping blanks. An empty input
// yields an empty non-nil slice so callers can tell "no exclusions" from "default".
func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool parses common boolean env values: 1/true/yes/on = true, 0/false/no/off = false (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.APIBase != nil && *o.APIBase != "" {
		cfg.APIBase = *o.APIBase
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.Proxy != nil {
		cfg.Proxy = *o.Proxy
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.HistorySize != nil {
		v := *o.HistorySize
		if v < 0 {
			v = 0
		}
		cfg.HistorySize = v
	}
	if o.CompactDiff != nil {
		cfg.CompactDiff = *o.CompactDiff
	}
	if o.MaxDiffBytes != nil {
		cfg.MaxDiffBytes = *o.MaxDiffBytes
	}
}
