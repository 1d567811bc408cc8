package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/instrumentation"
	"github.com/teemow/outlook-mcp/internal/logging"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const defaultHTTPTimeout = 60 * time.Second

// maxResponseBytes caps how much of a Graph response body is read.
// Message bodies are the largest payloads; 8 MiB is far beyond anything
// the $select projections used here can return.
const maxResponseBytes = 8 << 20

// MetricsRecorder receives Graph operation metrics. *instrumentation.Metrics
// satisfies it.
type MetricsRecorder interface {
	RecordGraphOperation(ctx context.Context, service, operation, status string, duration time.Duration)
	RecordFolderResolution(ctx context.Context, result string)
}

// Client talks to the Microsoft Graph API on behalf of the signed-in mailbox.
// Every request obtains a bearer token from the auth Manager first, so callers
// never handle credentials themselves.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *auth.Manager
	logger  *slog.Logger
	metrics MetricsRecorder
	folders *folderCache
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBaseURL overrides the Graph endpoint. Tests point this at a local server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(c *Client) {
		c.metrics = rec
	}
}

// NewClient creates a Graph client backed by the given auth manager.
func NewClient(m *auth.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		auth:    m,
		logger:  slog.Default(),
		folders: newFolderCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues an authenticated request against a path under the base URL.
// body (if non-nil) is JSON-encoded; out (if non-nil) receives the decoded
// response. Non-2xx responses come back as *GraphError; auth failures come
// back as *auth.AuthError before any request is sent.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doURL(ctx, method, u, body, out)
}

// doURL is do for an absolute URL; OData nextLink pages arrive absolute.
func (c *Client) doURL(ctx context.Context, method, rawURL string, body, out any) error {
	token, err := c.auth.EnsureAuthenticated(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	// Ask for plain-text message bodies; HTML is noise for a tool-calling
	// assistant.
	req.Header.Set("Prefer", `outlook.body-content-type="text"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading graph response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		ge := decodeGraphError(res.StatusCode, data)
		c.logger.Debug("graph request failed",
			slog.String("method", method),
			logging.StatusCode(res.StatusCode),
			slog.String("graph_code", ge.Code))
		return ge
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding graph response: %w", err)
		}
	}
	return nil
}

// decodeGraphError maps a non-2xx Graph response to a *GraphError, pulling
// code and message out of the error envelope when one is present.
func decodeGraphError(status int, body []byte) *GraphError {
	ge := &GraphError{
		Status:  status,
		Message: fmt.Sprintf("graph returned status %d", status),
	}
	var envelope graphErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Code != "" {
			ge.Code = envelope.Error.Code
		}
		if envelope.Error.Message != "" {
			ge.Message = envelope.Error.Message
		}
	}
	return ge
}

// startOperation opens a client span for one Graph operation and starts its
// timer. The returned context carries the span so requests issued by the
// operation nest under it; the returned func closes the span and reports the
// operation to the metrics recorder. Exported wrappers use it as:
//
//	ctx, done := c.startOperation(ctx, "mail", "list")
//	out, err := c.listMessages(ctx, ...)
//	done(err)
func (c *Client) startOperation(ctx context.Context, service, operation string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := instrumentation.StartGraphSpan(ctx, service, operation)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()

		if c.metrics != nil {
			c.metrics.RecordGraphOperation(ctx, service, operation, status, time.Since(started))
		}
	}
}

func (c *Client) recordResolution(ctx context.Context, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordFolderResolution(ctx, result)
}
