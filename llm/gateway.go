package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/santiagomed/quill/logger"
)

const (
	MIMETypeText = "text/plain"
	MIMETypeJSON = "application/json"

	defaultTemperature float32 = 0.7
)

// Request is a provider-neutral model call.
type Request struct {
	Prompt            Prompt
	SystemInstruction string
	// MIMEType is MIMETypeText or MIMETypeJSON.
	MIMEType string
	Schema   *Schema
}

func (r Request) WantsJSON() bool {
	return r.MIMEType == MIMETypeJSON
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the normalized result every backend returns.
type Completion struct {
	Text  string
	Usage Usage
}

// Gateway is the single chokepoint for model calls.
type Gateway interface {
	Call(ctx context.Context, cfg ProviderConfig, req Request) (string, error)
}

type backend interface {
	complete(ctx context.Context, cfg ProviderConfig, req Request) (Completion, error)
}

// CallLogger records successful calls somewhere outside the process.
type CallLogger interface {
	Log(model, prompt string, c Completion)
}

// Observer is notified after every call, successful or not.
type Observer func(provider Provider, elapsed time.Duration, err error)

// Client dispatches requests to the backend registered for cfg.Provider.
type Client struct {
	backends map[Provider]backend
	logger   logger.Logger
	callLog  CallLogger
	observer Observer

	httpClient    *http.Client
	geminiAPIKey  string
	geminiFactory generatorFactory
}

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithCallLogger(cl CallLogger) Option {
	return func(c *Client) { c.callLog = cl }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithGeminiAPIKey sets the key used by the structured backend. When empty the genai SDK
// falls back to GEMINI_API_KEY / GOOGLE_API_KEY.
func WithGeminiAPIKey(key string) Option {
	return func(c *Client) { c.geminiAPIKey = key }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		logger:        logger.NewNullLogger(),
		httpClient:    &http.Client{},
		geminiFactory: newGenAIGenerator,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.backends = map[Provider]backend{
		ProviderGemini: &geminiBackend{apiKey: c.geminiAPIKey, factory: c.geminiFactory},
		ProviderOpenAI: &chatBackend{httpClient: c.httpClient},
	}
	return c
}

// Call sends exactly one request to the configured backend and returns its text.
func (c *Client) Call(ctx context.Context, cfg ProviderConfig, req Request) (string, error) {
	res, err := c.Complete(ctx, cfg, req)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Complete is Call with token usage.
func (c *Client) Complete(ctx context.Context, cfg ProviderConfig, req Request) (Completion, error) {
	b, ok := c.backends[cfg.Provider]
	if !ok {
		return Completion{}, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	l := c.logger.WithField("provider", string(cfg.Provider)).WithField("model", cfg.ModelName)
	start := time.Now()
	res, err := b.complete(ctx, cfg, req)
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer(cfg.Provider, elapsed, err)
	}
	if err != nil {
		l.Warn(fmt.Sprintf("Model call failed after %v: %v", elapsed, err))
		return Completion{}, err
	}

	l.Debug(fmt.Sprintf("Model call completed in %v (%d in / %d out tokens)", elapsed, res.Usage.InputTokens, res.Usage.OutputTokens))
	if c.callLog != nil {
		c.callLog.Log(cfg.ModelName, req.Prompt.Text(), res)
	}
	return res, nil
}
