// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/constants"
)

const (
	// BaseURL is the default base URL of the recording provider API
	BaseURL = "https://us-east-1.recall.ai/api/v1"
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0

	// maxErrorBodyBytes caps how much of an error response is kept for logs.
	maxErrorBodyBytes = 4096
)

// Config holds the configuration for the recording provider client
type Config struct {
	APIKey string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client is the recording provider API client. Every response is normalized
// into the canonical models before it is returned.
type Client struct {
	// httpClient carries the API key on every request.
	httpClient *http.Client
	// downloadClient is unauthenticated; download URLs are pre-signed.
	downloadClient *http.Client
	config         Config
}

// Ensure that Client implements domain.RecordingProvider
var _ domain.RecordingProvider = (*Client)(nil)

// StatusError is the non-2xx response of a provider call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new recording provider client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = constants.DefaultProviderTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	token := &oauth2.Token{
		AccessToken: config.APIKey,
		TokenType:   constants.ProviderAuthScheme,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: otelhttp.NewTransport(&oauth2.Transport{
				Base:   http.DefaultTransport,
				Source: oauth2.StaticTokenSource(token),
			}),
		},
		downloadClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
	}
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	if err != nil {
		// A cancelled caller is never retried.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	// Retry on server errors (5xx)
	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	// Retry on rate limiting (429)
	return statusCode == http.StatusTooManyRequests
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// ±25% jitter
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)

	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}
	return backoffWithJitter
}

// doRequest performs a provider request with retry logic. label is what gets
// logged in place of the URL. A non-2xx final response is returned as a
// *StatusError with the response body already drained.
func (c *Client) doRequest(ctx context.Context, client *http.Client, method, url, label string, body any) ([]byte, error) {
	jsonBody, err := marshalRequestBody(body)
	if err != nil {
		return nil, err
	}

	var (
		lastErr    error
		statusCode int
		respBody   []byte
	)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		req, err := createRequest(ctx, method, url, jsonBody)
		if err != nil {
			return nil, err
		}

		if attempt == 0 {
			slog.DebugContext(ctx, "making recording provider request",
				"method", method,
				"path", label,
				"max_retries", c.config.MaxRetries,
			)
		}

		startTime := time.Now()
		statusCode, respBody, lastErr = execute(client, req)
		duration := time.Since(startTime)

		if lastErr == nil && statusCode < http.StatusBadRequest {
			slog.DebugContext(ctx, "recording provider request completed",
				"method", method,
				"path", label,
				"status", statusCode,
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return respBody, nil
		}

		if !shouldRetry(statusCode, lastErr) {
			break
		}

		if attempt == c.config.MaxRetries {
			slog.ErrorContext(ctx, "recording provider request failed after all retries",
				"method", method,
				"path", label,
				"status", statusCode,
				"duration", duration.String(),
				"attempts", attempt+1,
				logging.ErrKey, lastErr,
				logging.PriorityCritical(),
			)
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.WarnContext(ctx, "recording provider request failed, retrying",
			"method", method,
			"path", label,
			"status", statusCode,
			"duration", duration.String(),
			"attempt", attempt+1,
			"max_retries", c.config.MaxRetries,
			"backoff", backoff.String(),
			logging.ErrKey, lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%s %s: %w", method, label, lastErr)
	}

	statusErr := &StatusError{StatusCode: statusCode, Body: truncate(string(respBody), maxErrorBodyBytes)}
	slog.ErrorContext(ctx, "recording provider error response",
		"method", method,
		"path", label,
		"status", statusCode,
		"body", statusErr.Body,
		logging.ErrKey, statusErr,
	)
	return nil, statusErr
}

// execute runs a single attempt and drains the response body.
func execute(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// marshalRequestBody marshals the request body to JSON
func marshalRequestBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return jsonBody, nil
}

// createRequest creates a new HTTP request with the given parameters
func createRequest(ctx context.Context, method, url string, jsonBody []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if jsonBody != nil {
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", constants.ContentTypeJSON)
	if jsonBody != nil {
		req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	}
	return req, nil
}

// decodeBody decodes a JSON payload into generic maps and slices so that it
// can be normalized regardless of its shape.
func decodeBody(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewDataShapeError("response is not valid JSON", err)
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
