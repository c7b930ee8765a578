package misp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// EventNotice is published once CreateEvent has settled an event.
type EventNotice struct {
	EventID int    `json:"event_id"`
	Info    string `json:"info"`
	Org     string `json:"org"`
	Created bool   `json:"created"`
}

// Notifier receives event notices from CreateEvent.
type Notifier interface {
	NotifyEvent(ctx context.Context, notice EventNotice) error
}

// Client binds one MISP instance and one set of credentials to an Invoker.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL  string
	headers  AuthHeaders
	invoker  *Invoker
	notifier Notifier
	logger   *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithInvoker sets the Invoker used for all calls.
func WithInvoker(inv *Invoker) ClientOption {
	return func(c *Client) {
		if inv != nil {
			c.invoker = inv
		}
	}
}

// WithNotifier sets where CreateEvent publishes its notices.
func WithNotifier(n Notifier) ClientOption {
	return func(c *Client) { c.notifier = n }
}

// WithClientLogger sets the logger used by orchestration code.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the MISP instance at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("MISP base URL is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: BuildAuthHeader(apiKey),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.invoker == nil {
		c.invoker = NewInvoker(WithLogger(c.logger))
	}
	c.logger = c.logger.With(zap.String("component", "misp-client"))
	return c, nil
}

// BaseURL returns the normalized MISP base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Headers returns a copy of the headers sent on every call.
func (c *Client) Headers() AuthHeaders {
	out := make(AuthHeaders, len(c.headers))
	for k, v := range c.headers {
		out[k] = v
	}
	return out
}

// Invoke sends method to path (relative to the base URL) with an optional
// JSON payload. A nil payload sends no body.
func (c *Client) Invoke(ctx context.Context, method, path string, payload interface{}) *Result {
	var body string
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Result{Kind: KindTransport, Err: fmt.Errorf("%w: failed to marshal request body: %v", ErrTransport, err)}
		}
		body = string(data)
	}
	return c.invoker.InvokeREST(ctx, c.headers, method, body, c.baseURL+path)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) *Result {
	return c.Invoke(ctx, http.MethodPost, path, payload)
}
