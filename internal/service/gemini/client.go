package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	applog "github.com/janisto/gemini-chat-relay/internal/platform/logging"
	"github.com/janisto/gemini-chat-relay/internal/platform/metrics"
)

// Client implements Service using the Gemini API through the genai SDK.
type Client struct {
	models  *genai.Models
	model   string
	observe func(model, outcome string, d time.Duration)
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// WithModel selects the model identifier, e.g. "gemini-2.5-flash".
func WithModel(model string) Option {
	return func(o *clientOptions) {
		o.model = model
	}
}

// WithBaseURL sets a custom API endpoint (useful for testing and proxies).
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a Gemini client authenticated with apiKey. An empty key
// yields ErrMissingAPIKey; the SDK's own environment lookup is not used, so the
// key always comes from explicit configuration.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	o := clientOptions{model: DefaultModel}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == "" {
		o.model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{
		models:  gc.Models,
		model:   o.model,
		observe: metrics.ObserveUpstream,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends contents as user input to the configured model and returns the
// concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, contents []string) (*Generation, error) {
	if len(contents) == 0 {
		return nil, ErrNoContents
	}
	parts := make([]*genai.Part, len(contents))
	for i, s := range contents {
		parts[i] = genai.NewPartFromText(s)
	}
	input := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, input, nil)
	elapsed := time.Since(start)
	if err != nil {
		err = c.classify(ctx, err)
		c.observe(c.model, outcomeOf(err), elapsed)
		return nil, err
	}
	c.observe(c.model, metrics.OutcomeSuccess, elapsed)

	return &Generation{
		Text:  resp.Text(),
		Model: c.model,
	}, nil
}

// classify converts SDK API errors into *UpstreamError and wraps everything else.
func (c *Client) classify(ctx context.Context, err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return fmt.Errorf("calling gemini: %w", err)
	}

	applog.LogWarn(ctx, "gemini api error",
		zap.String("model", c.model),
		zap.Int("code", apiErr.Code),
		zap.String("status", apiErr.Status),
	)
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.Code)
	}
	return &UpstreamError{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: msg,
	}
}

// outcomeOf labels a classified error for metrics.
func outcomeOf(err error) string {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return metrics.OutcomeUpstreamError
	}
	return metrics.OutcomeError
}

// Compile-time interface check
var _ Service = (*Client)(nil)
