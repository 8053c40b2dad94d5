package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gigmatch/gigmatch/internal/model"
)

// Limiter enforces a minimum delay between consecutive marketplace requests.
// A matching cycle issues one search per tracked user, so without spacing a
// large user base hammers the API back to back.
type Limiter struct {
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewLimiter creates a limiter that enforces minDelay between consecutive
// requests.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{minDelay: minDelay}
}

// Wait blocks until enough time has passed since the last request.
// Returns an error if the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()

	if l.lastCall.IsZero() {
		// First request — no wait needed.
		l.lastCall = now
		l.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(l.lastCall)
	if elapsed >= l.minDelay {
		// Enough time has passed — proceed immediately.
		l.lastCall = now
		l.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := l.minDelay - elapsed
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait: %w", ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	l.mu.Lock()
	l.lastCall = time.Now()
	l.mu.Unlock()

	return nil
}

// LimitedSearcher is a decorator that enforces request spacing before
// delegating to the wrapped JobSearcher.
type LimitedSearcher struct {
	inner   model.JobSearcher
	limiter *Limiter
}

// NewLimitedSearcher wraps a JobSearcher with request spacing. All searchers
// targeting the same marketplace should share the same limiter instance.
func NewLimitedSearcher(inner model.JobSearcher, limiter *Limiter) *LimitedSearcher {
	return &LimitedSearcher{
		inner:   inner,
		limiter: limiter,
	}
}

// SearchJobs waits for the limiter to allow a request, then delegates to the
// wrapped searcher.
func (s *LimitedSearcher) SearchJobs(ctx context.Context, params model.SearchParams) ([]model.JobListing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.SearchJobs(ctx, params)
}
