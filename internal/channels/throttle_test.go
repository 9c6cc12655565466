package channels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testThrottleConfig keeps test runs fast; the pacing behavior is the same
// regardless of interval length.
func testThrottleConfig() *ThrottleConfig {
	return &ThrottleConfig{
		PageDelay:  0,
		Cooldown:   time.Millisecond,
		MaxRetries: 2,
	}
}

func TestThrottlerDoSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://example.com?page_info=abc>; rel="next"`)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	throttler := NewThrottler(testThrottleConfig())
	body, headers, err := throttler.Do(context.Background(), "test op", func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		return http.DefaultClient.Do(req)
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Contains(t, headers.Get("Link"), "page_info=abc")
}

func TestThrottlerDoRetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	throttler := NewThrottler(testThrottleConfig())
	body, _, err := throttler.Do(context.Background(), "test op", func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		return http.DefaultClient.Do(req)
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestThrottlerDoPermanentErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	}))
	defer server.Close()

	throttler := NewThrottler(testThrottleConfig())
	_, _, err := throttler.Do(context.Background(), "test op", func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		return http.DefaultClient.Do(req)
	})

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "bad token", apiErr.Body)
	assert.False(t, apiErr.IsRateLimited())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestThrottlerDoRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testThrottleConfig()
	throttler := NewThrottler(cfg)
	_, _, err := throttler.Do(context.Background(), "test op", func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
		return http.DefaultClient.Do(req)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(cfg.MaxRetries+1), atomic.LoadInt32(&calls))
}

func TestThrottlerDoContextCancelled(t *testing.T) {
	throttler := NewThrottler(&ThrottleConfig{
		PageDelay:  0,
		Cooldown:   time.Minute,
		MaxRetries: 3,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := throttler.Do(ctx, "test op", func(ctx context.Context) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, time.Duration(0), ParseRetryAfter(resp))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(nil))

	resp.Header.Set("Retry-After", "45")
	assert.Equal(t, 45*time.Second, ParseRetryAfter(resp))

	resp.Header.Set("Retry-After", "not a number or date")
	assert.Equal(t, time.Duration(0), ParseRetryAfter(resp))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).IsRateLimited())
	assert.False(t, (&APIError{StatusCode: 500}).IsRateLimited())
}
