package misp

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Call describes one finished REST call for recorders.
type Call struct {
	Method     string
	URI        string
	StatusCode int
	Kind       Kind
	Duration   time.Duration
	Detail     string
	At         time.Time
}

// CallRecorder observes every call made by an Invoker.
type CallRecorder interface {
	RecordCall(ctx context.Context, call Call) error
}

// Invoker performs single-attempt HTTP requests against MISP and classifies
// the outcome.
type Invoker struct {
	httpClient *http.Client
	logger     *zap.Logger
	recorders  []CallRecorder
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) InvokerOption {
	return func(inv *Invoker) {
		if c != nil {
			inv.httpClient = c
		}
	}
}

// WithLogger sets the logger used for call notices.
func WithLogger(l *zap.Logger) InvokerOption {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithRecorder registers a recorder notified after every call.
func WithRecorder(r CallRecorder) InvokerOption {
	return func(inv *Invoker) {
		if r != nil {
			inv.recorders = append(inv.recorders, r)
		}
	}
}

// NewInvoker creates an Invoker. Without options it uses a plain http.Client
// and a no-op logger.
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.logger = inv.logger.With(zap.String("component", "misp-invoker"))
	return inv
}

// NewHTTPClient builds the transport used against MISP servers. A zero
// timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration, verifyTLS bool) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
	if !verifyTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
	}
}

// InvokeREST issues one request to uri with the given headers. An empty body
// sends no request body. It never returns nil and never retries.
func (inv *Invoker) InvokeREST(ctx context.Context, headers AuthHeaders, method, body, uri string) *Result {
	start := time.Now()
	res := inv.do(ctx, headers, method, body, uri)
	inv.report(ctx, method, uri, res, time.Since(start))
	return res
}

func (inv *Invoker) do(ctx context.Context, headers AuthHeaders, method, body, uri string) *Result {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reqBody)
	if err != nil {
		return inv.transportFailure(method, uri, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := inv.httpClient.Do(req)
	if err != nil {
		return inv.transportFailure(method, uri, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return inv.transportFailure(method, uri, fmt.Errorf("failed to read response: %w", err))
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{Response: response, Kind: KindOK}
	}

	if isDuplicate(data) {
		inv.logger.Info("attribute already exists for this event, skipping",
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Int("status", resp.StatusCode))
		return &Result{
			Response: response,
			Kind:     KindDuplicate,
			Err:      fmt.Errorf("%w: %s", ErrDuplicate, DuplicateAttributeReason),
		}
	}

	err = fmt.Errorf("%w: MISP returned status %d: %s", ErrUnknown, resp.StatusCode, string(data))
	inv.logger.Error("MISP request failed",
		zap.String("method", method),
		zap.String("uri", uri),
		zap.Int("status", resp.StatusCode),
		zap.Error(err))
	return &Result{Response: response, Kind: KindUnknown, Err: err}
}

func (inv *Invoker) transportFailure(method, uri string, err error) *Result {
	err = fmt.Errorf("%w: %v", ErrTransport, err)
	inv.logger.Error("MISP request failed",
		zap.String("method", method),
		zap.String("uri", uri),
		zap.Error(err))
	return &Result{Kind: KindTransport, Err: err}
}

func (inv *Invoker) report(ctx context.Context, method, uri string, res *Result, d time.Duration) {
	if len(inv.recorders) == 0 {
		return
	}
	call := Call{
		Method:     method,
		URI:        uri,
		StatusCode: res.StatusCode(),
		Kind:       res.Kind,
		Duration:   d,
		At:         time.Now(),
	}
	if res.Err != nil {
		call.Detail = res.Err.Error()
	}
	for _, r := range inv.recorders {
		if err := r.RecordCall(ctx, call); err != nil {
			inv.logger.Warn("failed to record call", zap.Error(err))
		}
	}
}

// isDuplicate inspects errors.value of a MISP error body.
func isDuplicate(body []byte) bool {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}
	for _, reason := range eb.Reasons() {
		if strings.TrimSuffix(strings.TrimSpace(reason), ".") == DuplicateAttributeReason {
			return true
		}
	}
	return false
}
