package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportPollerClampsInterval(t *testing.T) {
	poller := NewReportPoller(time.Second, 0)

	assert.Equal(t, 10*time.Second, poller.Interval)
	assert.Equal(t, 10*time.Minute, poller.MaxWait)
}

func TestReportPollerAwaitDone(t *testing.T) {
	poller := &ReportPoller{Interval: time.Millisecond, MaxWait: time.Second}

	polls := 0
	documentID, err := poller.Await(context.Background(), "test report", func(ctx context.Context) (ReportState, string, error) {
		polls++
		if polls < 3 {
			return ReportProcessing, "", nil
		}
		return ReportDone, "doc-123", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-123", documentID)
	assert.Equal(t, 3, polls)
}

func TestReportPollerAwaitFailedState(t *testing.T) {
	poller := &ReportPoller{Interval: time.Millisecond, MaxWait: time.Second}

	_, err := poller.Await(context.Background(), "test report", func(ctx context.Context) (ReportState, string, error) {
		return ReportFailed, "", nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILED")
	assert.False(t, errors.Is(err, ErrReportTimeout))
}

func TestReportPollerAwaitTimeout(t *testing.T) {
	poller := &ReportPoller{Interval: 5 * time.Millisecond, MaxWait: 20 * time.Millisecond}

	_, err := poller.Await(context.Background(), "test report", func(ctx context.Context) (ReportState, string, error) {
		return ReportProcessing, "", nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReportTimeout))
}

func TestReportPollerAwaitPollError(t *testing.T) {
	poller := &ReportPoller{Interval: time.Millisecond, MaxWait: time.Second}

	pollErr := errors.New("upstream down")
	_, err := poller.Await(context.Background(), "test report", func(ctx context.Context) (ReportState, string, error) {
		return "", "", pollErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, pollErr)
}

func TestReportPollerAwaitContextCancelled(t *testing.T) {
	poller := &ReportPoller{Interval: time.Hour, MaxWait: 2 * time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := poller.Await(ctx, "test report", func(ctx context.Context) (ReportState, string, error) {
			return ReportQueued, "", nil
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Await did not return after cancellation")
	}
}
