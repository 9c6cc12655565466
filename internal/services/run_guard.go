package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunConcurrencyConfig defines concurrency limits for sync runs
type RunConcurrencyConfig struct {
	MaxConcurrentRuns int           // Max concurrent runs across all accounts
	MaxPerAccount     int           // Max concurrent runs per account
	QueueTimeout      time.Duration // Max time to wait in queue
}

// DefaultRunConcurrencyConfig returns production-ready defaults. One run per
// account keeps an account's staging tables and rate-limit budget to itself.
func DefaultRunConcurrencyConfig() *RunConcurrencyConfig {
	return &RunConcurrencyConfig{
		MaxConcurrentRuns: 5,
		MaxPerAccount:     1,
		QueueTimeout:      5 * time.Minute,
	}
}

// RunGuard manages sync run concurrency limits
type RunGuard struct {
	mu          sync.RWMutex
	globalSem   chan struct{}
	accountSems map[string]chan struct{}
	config      *RunConcurrencyConfig
	activeRuns  map[string]int // Track active runs per account
}

// NewRunGuard creates a new run guard
func NewRunGuard(config *RunConcurrencyConfig) *RunGuard {
	if config == nil {
		config = DefaultRunConcurrencyConfig()
	}
	return &RunGuard{
		globalSem:   make(chan struct{}, config.MaxConcurrentRuns),
		accountSems: make(map[string]chan struct{}),
		config:      config,
		activeRuns:  make(map[string]int),
	}
}

// getOrCreateAccountSem gets or creates a semaphore for an account
func (g *RunGuard) getOrCreateAccountSem(accountID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	if sem, exists := g.accountSems[accountID]; exists {
		return sem
	}

	sem := make(chan struct{}, g.config.MaxPerAccount)
	g.accountSems[accountID] = sem
	return sem
}

// Acquire attempts to acquire a global slot and an account slot.
// Returns a release function that must be called when done.
func (g *RunGuard) Acquire(ctx context.Context, accountID string) (func(), error) {
	queueCtx, cancel := context.WithTimeout(ctx, g.config.QueueTimeout)
	defer cancel()

	select {
	case g.globalSem <- struct{}{}:
	case <-queueCtx.Done():
		return nil, fmt.Errorf("timeout waiting for global run slot")
	}

	accountSem := g.getOrCreateAccountSem(accountID)
	select {
	case accountSem <- struct{}{}:
	case <-queueCtx.Done():
		// Release global slot if account slot failed
		<-g.globalSem
		return nil, fmt.Errorf("timeout waiting for run slot: account=%s", accountID)
	}

	g.mu.Lock()
	g.activeRuns[accountID]++
	g.mu.Unlock()

	releaseFunc := func() {
		g.mu.Lock()
		g.activeRuns[accountID]--
		g.mu.Unlock()

		<-accountSem
		<-g.globalSem
	}

	return releaseFunc, nil
}

// TryAcquire attempts to acquire slots without blocking
func (g *RunGuard) TryAcquire(accountID string) (func(), bool) {
	select {
	case g.globalSem <- struct{}{}:
	default:
		return nil, false
	}

	accountSem := g.getOrCreateAccountSem(accountID)
	select {
	case accountSem <- struct{}{}:
	default:
		<-g.globalSem
		return nil, false
	}

	g.mu.Lock()
	g.activeRuns[accountID]++
	g.mu.Unlock()

	releaseFunc := func() {
		g.mu.Lock()
		g.activeRuns[accountID]--
		g.mu.Unlock()

		<-accountSem
		<-g.globalSem
	}

	return releaseFunc, true
}

// ActiveRunCount returns the number of active runs for an account
func (g *RunGuard) ActiveRunCount(accountID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.activeRuns[accountID]
}

// CanAcceptRun checks if a new run can be accepted without blocking
func (g *RunGuard) CanAcceptRun(accountID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, n := range g.activeRuns {
		total += n
	}

	return total < g.config.MaxConcurrentRuns &&
		g.activeRuns[accountID] < g.config.MaxPerAccount
}

// GetStats returns concurrency statistics
func (g *RunGuard) GetStats() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	accountStats := make(map[string]int)
	total := 0
	for k, v := range g.activeRuns {
		accountStats[k] = v
		total += v
	}

	return map[string]interface{}{
		"config": map[string]interface{}{
			"maxConcurrentRuns": g.config.MaxConcurrentRuns,
			"maxPerAccount":     g.config.MaxPerAccount,
			"queueTimeout":      g.config.QueueTimeout.String(),
		},
		"activeRunsByAccount": accountStats,
		"totalActiveRuns":     total,
	}
}

// Cleanup removes semaphores for accounts with no active runs. Semaphores
// are dropped, never closed: a goroutine still holding an old reference must
// be able to release into it.
func (g *RunGuard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for accountID, count := range g.activeRuns {
		if count == 0 {
			delete(g.accountSems, accountID)
			delete(g.activeRuns, accountID)
		}
	}
}
