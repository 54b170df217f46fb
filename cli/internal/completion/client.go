// Package completion issues the single chat-completion request against an
// OpenAI-compatible endpoint and lists models for the doctor check.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aigitcommit/cli/internal/erruser"
	"aigitcommit/cli/internal/prompt"
	"aigitcommit/cli/internal/trace"
)

const _defaultTimeout = 60 * time.Second

// Options configures a Client. BaseURL and Model are required.
type Options struct {
	BaseURL string
	Token   string
	Model   string
	// Proxy is an http, https, socks5 or socks5h URL; empty means direct.
	Proxy   string
	Timeout time.Duration
	// MaxTokens caps the completion length; 0 leaves it to the server.
	MaxTokens int
	// HTTPClient replaces the client built from Proxy and Timeout (tests).
	HTTPClient *http.Client
	Tracer     *trace.Tracer
}

// Client calls the completion API. Zero value is not valid; use New.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	tracer    *trace.Tracer
}

// CheckResult is the result of a reachability/model check.
type CheckResult struct {
	Reachable    bool     // Models endpoint responded with 2xx.
	ModelPresent bool     // Configured model appears in the list.
	ModelNames   []string // All model IDs (for diagnostics).
}

// New builds a client. The proxy URL is validated here so a typo fails before
// any request is sent.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, erruser.New("API base URL is not configured.", nil)
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, erruser.New("Model name is not configured.", nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = _defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Proxy != "" {
			u, err := url.Parse(opts.Proxy)
			if err != nil {
				return nil, erruser.New("Proxy address is not a valid URL.", err)
			}
			transport.Proxy = http.ProxyURL(u)
		}
		httpClient = &http.Client{Transport: transport, Timeout: timeout}
	}
	cfg := openai.DefaultConfig(opts.Token)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	cfg.HTTPClient = httpClient
	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   timeout,
		tracer:    opts.Tracer,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends one chat completion with the payload's system and user text
// and returns the first choice's content. It never retries.
func (c *Client) Complete(ctx context.Context, p prompt.Payload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		MaxTokens: c.maxTokens,
	}
	log := c.tracer.Logger()
	log.Debug("sending completion request",
		zap.String("model", c.model),
		zap.Int("estimated_prompt_tokens", p.EstimatedTokens),
		zap.Int("max_tokens", c.maxTokens))

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}
	log.Debug("completion received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	if len(resp.Choices) == 0 {
		return "", erruser.WithKind(erruser.KindMalformedCompletion,
			"The completion service returned no choices.", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", erruser.WithKind(erruser.KindMalformedCompletion,
			"The completion service returned an empty message.",
			fmt.Errorf("finish reason %q", resp.Choices[0].FinishReason))
	}
	return content, nil
}

// Check lists models and reports whether the configured one is available.
// Errors are classified the same way as Complete.
func (c *Client) Check(ctx context.Context) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	names := make([]string, 0, len(list.Models))
	present := false
	for _, m := range list.Models {
		names = append(names, m.ID)
		if m.ID == c.model {
			present = true
		}
	}
	return &CheckResult{Reachable: true, ModelPresent: present, ModelNames: names}, nil
}

// classify maps transport and API errors onto the user-facing kinds: any
// response with a status is a rejection, everything else means the service
// could not be reached in time.
func classify(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return erruser.WithKind(erruser.KindUpstreamRejected,
			fmt.Sprintf("The completion service rejected the request (HTTP %d).", apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return erruser.WithKind(erruser.KindUpstreamRejected,
			fmt.Sprintf("The completion service rejected the request (HTTP %d).", reqErr.HTTPStatusCode), err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return erruser.WithKind(erruser.KindUpstreamUnavailable,
			"The completion service did not answer before the timeout.", err)
	}
	if errors.Is(err, context.Canceled) {
		return erruser.WithKind(erruser.KindUpstreamUnavailable, "The completion request was canceled.", err)
	}
	return erruser.WithKind(erruser.KindUpstreamUnavailable, "Could not reach the completion service.", err)
}
