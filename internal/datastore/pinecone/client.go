package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vvault/vecstore-go/internal/metrics"
	"github.com/vvault/vecstore-go/internal/retry"
)

// APIError is a non-2xx response from the Pinecone data plane. It carries the
// backend's own message so callers never see an opaque failure.
type APIError struct {
	// StatusCode is the HTTP status returned by the backend.
	StatusCode int
	// Message is the backend-reported error message, or the raw body when
	// the response was not parseable.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("pinecone: HTTP %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: rate limiting and
// server-side errors are, client errors are not.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// client is the low-level HTTP client for the Pinecone data-plane API.
// Every call passes through the configured retry policy and, when set, the
// rate limiter. A single instance is shared for the lifetime of the store.
type client struct {
	// host is the index host base URL (https://<index>.svc.<env>.pinecone.io).
	host string
	// apiKey is sent as the Api-Key header on every request.
	apiKey string
	// http is the shared HTTP client.
	http *http.Client
	// limiter throttles outgoing requests; nil disables throttling.
	limiter *rate.Limiter
	// retry is the policy applied to each call.
	retry retry.Policy
	// metrics instruments requests, durations, and retries.
	metrics *metrics.BackendMetrics
	// log is the structured logger.
	log *slog.Logger
}

// post issues one JSON POST to path, retrying transient failures, and decodes
// the response body into out when out is non-nil. op names the logical
// operation for metrics and logs.
func (c *client) post(ctx context.Context, path, op string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pinecone: marshal %s request: %w", op, err)
	}

	policy := c.retry
	policy.OnRetry = func(attempt int, err error) {
		c.metrics.RetriesTotal.WithLabelValues(op).Inc()
		c.log.Warn("pinecone: retrying after transient failure",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	start := time.Now()
	err = policy.Do(ctx, func() error {
		return c.do(ctx, path, payload, out)
	})
	c.metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	c.metrics.RequestsTotal.WithLabelValues(op, outcome).Inc()
	return err
}

// do performs a single request attempt.
func (c *client) do(ctx context.Context, path string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("pinecone: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pinecone: read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("pinecone: decode %s response: %w", path, err)
		}
	}
	return nil
}

// errorMessage extracts the backend error message from a failure body,
// falling back to the trimmed raw body.
func errorMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
