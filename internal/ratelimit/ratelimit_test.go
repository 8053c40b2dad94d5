package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/gigmatch/gigmatch/internal/model"
)

func TestWait_EnforcesMinDelay(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_NoDelayAfterQuietPeriod(t *testing.T) {
	limiter := NewLimiter(20 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	// The delay already elapsed — should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("expected near-instant wait, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(5 * time.Second) // long delay
	ctx := context.Background()

	// First call to seed the last-call time.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	// Cancel the context before the wait completes.
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := limiter.Wait(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for LimitedSearcher test ---

type recordingSearcher struct {
	called bool
}

func (s *recordingSearcher) SearchJobs(_ context.Context, _ model.SearchParams) ([]model.JobListing, error) {
	s.called = true
	return nil, nil
}

func TestLimitedSearcher_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)
	inner := &recordingSearcher{}
	searcher := NewLimitedSearcher(inner, limiter)
	ctx := context.Background()

	// First call — seeds limiter, then delegates.
	if _, err := searcher.SearchJobs(ctx, model.SearchParams{}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if !inner.called {
		t.Fatal("inner searcher was not called on first search")
	}

	// Reset.
	inner.called = false

	// Second call — should wait for the limiter.
	start := time.Now()
	if _, err := searcher.SearchJobs(ctx, model.SearchParams{}); err != nil {
		t.Fatalf("second search: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner searcher was not called on second search")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second search, got %v", elapsed)
	}
}
