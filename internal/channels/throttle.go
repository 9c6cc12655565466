package channels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig defines the pacing behavior of a connector
type ThrottleConfig struct {
	PageDelay  time.Duration // fixed delay between successive page/document requests
	Cooldown   time.Duration // fixed backoff after an explicit 429; longer than PageDelay
	MaxRetries int           // bounded retry count for transient failures
}

// DefaultThrottleConfig returns production-ready throttle configuration
func DefaultThrottleConfig() *ThrottleConfig {
	return &ThrottleConfig{
		PageDelay:  1 * time.Second,
		Cooldown:   30 * time.Second,
		MaxRetries: 3,
	}
}

// Throttler paces requests against one upstream API. The inter-request delay
// applies regardless of response; the cooldown applies only after a rate
// limit signal or transient failure, and the same request is retried up to
// MaxRetries times before the failure is surfaced.
type Throttler struct {
	config  *ThrottleConfig
	limiter *rate.Limiter
}

// NewThrottler creates a new throttler with the given config
func NewThrottler(config *ThrottleConfig) *Throttler {
	if config == nil {
		config = DefaultThrottleConfig()
	}
	interval := rate.Every(config.PageDelay)
	if config.PageDelay <= 0 {
		interval = rate.Inf
	}
	return &Throttler{
		config:  config,
		limiter: rate.NewLimiter(interval, 1),
	}
}

// RequestFunc issues one attempt of a request
type RequestFunc func(ctx context.Context) (*http.Response, error)

// isTransient reports whether a status code should be retried
func isTransient(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ParseRetryAfter extracts the Retry-After duration from an HTTP response
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}

// Do executes a request with the fixed inter-request delay, retrying
// transient failures after the cooldown. It returns the response body and
// headers on success, or an *APIError carrying the upstream status and body.
func (t *Throttler) Do(ctx context.Context, op string, fn RequestFunc) ([]byte, http.Header, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		resp, err := fn(ctx)
		if err != nil {
			// Network-level failure, treat as transient
			lastErr = err
			if attempt >= t.config.MaxRetries {
				break
			}
			if err := t.cooldown(ctx, 0); err != nil {
				return nil, nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt >= t.config.MaxRetries {
				break
			}
			if err := t.cooldown(ctx, 0); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, resp.Header, nil
		}

		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
		if !isTransient(resp.StatusCode) {
			// Permanent upstream error, not retried
			return nil, nil, apiErr
		}

		lastErr = apiErr
		if attempt >= t.config.MaxRetries {
			break
		}
		if err := t.cooldown(ctx, ParseRetryAfter(resp)); err != nil {
			return nil, nil, err
		}
	}

	return nil, nil, fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

// cooldown sleeps the fixed cooldown, or the upstream's Retry-After when it
// asks for longer
func (t *Throttler) cooldown(ctx context.Context, retryAfter time.Duration) error {
	wait := t.config.Cooldown
	if retryAfter > wait {
		wait = retryAfter
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
