package channels

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ReportState is the lifecycle state of a long-running extraction job
type ReportState string

const (
	ReportQueued     ReportState = "QUEUED"
	ReportProcessing ReportState = "PROCESSING"
	ReportDone       ReportState = "DONE"
	ReportFailed     ReportState = "FAILED"
	ReportCancelled  ReportState = "CANCELLED"
)

// ErrReportTimeout indicates the maximum total wait for one report was
// exceeded. It is fatal for that sub-window only; results already collected
// from prior sub-windows are preserved by the caller.
var ErrReportTimeout = errors.New("report generation timed out")

// minPollInterval is the floor for status-poll spacing; polling must not
// busy-loop against the upstream.
const minPollInterval = 10 * time.Second

// ReportPoller polls a report-style API for job completion at a fixed
// interval with a maximum total wait.
type ReportPoller struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// NewReportPoller creates a poller, clamping the interval to the 10-second
// floor and defaulting the total wait to 10 minutes.
func NewReportPoller(interval, maxWait time.Duration) *ReportPoller {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}
	return &ReportPoller{Interval: interval, MaxWait: maxWait}
}

// CheckFunc asks the upstream for the state of a submitted report. On
// ReportDone it returns the document handle.
type CheckFunc func(ctx context.Context) (ReportState, string, error)

// Await polls until the report reaches a terminal state. It returns the
// document handle on success, fails fast on terminal failure or
// cancellation, and returns ErrReportTimeout when MaxWait elapses.
func (p *ReportPoller) Await(ctx context.Context, op string, check CheckFunc) (string, error) {
	deadline := time.Now().Add(p.MaxWait)

	for {
		state, documentID, err := check(ctx)
		if err != nil {
			return "", fmt.Errorf("%s: status poll failed: %w", op, err)
		}

		switch state {
		case ReportDone:
			return documentID, nil
		case ReportFailed, ReportCancelled:
			return "", fmt.Errorf("%s: report ended in state %s", op, state)
		}

		if time.Now().Add(p.Interval).After(deadline) {
			return "", fmt.Errorf("%s: %w after %s", op, ErrReportTimeout, p.MaxWait)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.Interval):
		}
	}
}
