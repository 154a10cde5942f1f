package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/co2twin/internal/metrics"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxElapsed = 2 * time.Minute
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// StatusError is returned for an unexpected upstream status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// retryable statuses are the upstream saying "not now" rather than "no".
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable ||
		code == http.StatusBadGateway || code == http.StatusGatewayTimeout
}

// GetWithRetry fetches url, retrying with exponential backoff on throttling
// and gateway errors. Calls are counted under source.
func GetWithRetry(ctx context.Context, client *http.Client, source, url string, maxElapsed time.Duration) ([]byte, error) {
	if client == nil {
		client = NewClient()
	}
	if maxElapsed <= 0 {
		maxElapsed = DefaultMaxElapsed
	}

	var body []byte
	operation := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		metrics.UpstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(source, "error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.UpstreamCallsTotal.WithLabelValues(source, fmt.Sprint(resp.StatusCode)).Inc()
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &StatusError{Code: resp.StatusCode, Body: string(b)}
			if retryable(resp.StatusCode) {
				return serr
			}
			return backoff.Permanent(serr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(source, "error").Inc()
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		metrics.UpstreamCallsTotal.WithLabelValues(source, "ok").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
