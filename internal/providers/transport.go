package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bashclaw/bashclaw/internal/backoff"
	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/internal/observability"
	"github.com/bashclaw/bashclaw/pkg/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// attemptTimeout bounds each individual HTTP attempt.
const attemptTimeout = 120 * time.Second

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 2048

// Client issues completion calls against any cataloged provider, retrying
// transient failures per the backoff policy.
type Client struct {
	httpClient *http.Client
	policy     backoff.Policy
	logger     *slog.Logger
}

// ClientOption customizes Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p backoff.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a provider client with the default retry schedule.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: attemptTimeout},
		policy:     backoff.DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete resolves the provider for req.Model, encodes the request for its
// wire format, POSTs it with retries, and decodes the normalized response.
func (c *Client) Complete(ctx context.Context, req *Request) (*protocol.Response, error) {
	provider := catalog.ProviderForModel(req.Model)
	adapter, err := ForFormat(provider.Format)
	if err != nil {
		return nil, err
	}

	body, err := adapter.EncodeRequest(provider, req)
	if err != nil {
		return nil, &Error{Provider: provider.ID, Message: "encode request: " + err.Error()}
	}

	tracer := otel.Tracer("bashclaw/providers")
	ctx, span := tracer.Start(ctx, "provider.complete", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("provider.id", provider.ID),
		attribute.String("model.id", req.Model),
	)
	defer span.End()

	observability.ModelCalls.WithLabelValues(provider.ID).Inc()

	url := adapter.Endpoint(provider, req.Model)
	headers := adapter.Headers(provider)

	respBody, err := backoff.Retry(ctx, c.policy, func(attempt int) ([]byte, error) {
		if attempt > 1 {
			observability.ProviderRetries.WithLabelValues(provider.ID).Inc()
			c.logger.Debug("retrying provider call", "provider", provider.ID, "attempt", attempt)
		}
		return c.post(ctx, provider.ID, url, headers, body)
	}, IsRetryable)
	if err != nil {
		return nil, err
	}

	resp, err := adapter.DecodeResponse(respBody)
	if err != nil {
		return nil, &Error{Provider: provider.ID, Message: "decode response: " + err.Error()}
	}
	return resp, nil
}

// post issues one HTTP attempt. Non-2xx statuses become *Error values carrying
// the status so the retry classifier can decide; network failures become
// status-zero errors.
func (c *Client) post(ctx context.Context, providerID, url string, headers http.Header, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: providerID, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: providerID, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: providerID, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Provider: providerID,
			Status:   resp.StatusCode,
			Message:  errorMessage(data),
		}
	}
	return data, nil
}

// errorMessage extracts a human-readable message from an error body, falling
// back to the truncated raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
