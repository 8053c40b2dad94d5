// Package matcher runs the background matching loop: per-user polling of the
// marketplace, dedup against the record store, and hand-off of new jobs to
// the delivery queue.
package matcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gigmatch/gigmatch/internal/model"
)

// MinFetchInterval caps the per-user marketplace fetch rate.
const MinFetchInterval = 30 * time.Second

// Service decides, per active user, when to re-query the marketplace, and
// pushes unseen jobs onto the delivery queue.
type Service struct {
	searcher model.JobSearcher
	profiles model.ProfileGetter
	records  model.RecordTracker
	queue    *Queue

	interval time.Duration
	maxJobs  int
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	active map[int64]time.Time // user id → last fetch
}

// NewService wires the matching loop with its collaborators. interval is
// clamped to MinFetchInterval.
func NewService(
	searcher model.JobSearcher,
	profiles model.ProfileGetter,
	records model.RecordTracker,
	queue *Queue,
	interval time.Duration,
	maxJobs int,
	logger *slog.Logger,
) *Service {
	if interval < MinFetchInterval {
		interval = MinFetchInterval
	}
	return &Service{
		searcher: searcher,
		profiles: profiles,
		records:  records,
		queue:    queue,
		interval: interval,
		maxJobs:  maxJobs,
		logger:   logger,
		now:      time.Now,
		active:   make(map[int64]time.Time),
	}
}

// Activate opts a user into matching. The last-fetch timestamp is reset so
// the next tick fetches immediately, also on re-activation.
func (s *Service) Activate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[userID] = time.Time{}
}

// Deactivate opts a user out. An in-flight fetch for the user is not
// cancelled, only future scheduling stops.
func (s *Service) Deactivate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
}

// Active reports whether the user is currently opted into matching.
func (s *Service) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	return ok
}

// Tick runs one matching cycle over a snapshot of the activation set, so
// concurrent Activate/Deactivate calls never race the iteration.
func (s *Service) Tick(ctx context.Context) {
	for _, userID := range s.due() {
		if ctx.Err() != nil {
			return
		}
		s.fetchForUser(ctx, userID)
		s.touch(userID)
	}
}

// due snapshots the users whose fetch interval has elapsed.
func (s *Service) due() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var ids []int64
	for userID, last := range s.active {
		if now.Sub(last) >= s.interval {
			ids = append(ids, userID)
		}
	}
	return ids
}

// touch updates the user's last-fetch timestamp, unless the user was
// deactivated while the fetch was in flight.
func (s *Service) touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[userID]; ok {
		s.active[userID] = s.now()
	}
}

// fetchForUser queries the marketplace for one user and queues unseen jobs.
// Every failure degrades to "no new jobs this cycle"; the next tick retries
// naturally.
func (s *Service) fetchForUser(ctx context.Context, userID int64) {
	profile, err := s.profiles.Get(userID)
	if err != nil {
		// No profile means nothing to search for; not an error.
		return
	}

	minHourly, maxHourly := profile.HourlyBand()
	params := model.SearchParams{
		Query:     profile.SearchQuery(),
		Skills:    profile.Skills,
		MinHourly: minHourly,
		MaxHourly: maxHourly,
		Currency:  profile.Currency,
		Limit:     s.maxJobs,
	}

	jobs, err := s.searcher.SearchJobs(ctx, params)
	if err != nil {
		s.logger.Warn("marketplace search failed", "user", userID, "error", err)
		return
	}

	var queued int
	for _, job := range jobs {
		seen, err := s.records.Has(userID, job.ID)
		if err != nil {
			s.logger.Warn("dedup lookup failed", "user", userID, "job", job.ID, "error", err)
			continue
		}
		if seen {
			continue
		}
		if err := s.records.Record(userID, job); err != nil {
			s.logger.Warn("recording job failed", "user", userID, "job", job.ID, "error", err)
			continue
		}
		s.queue.Push(Delivery{UserID: userID, Job: job})
		queued++
	}

	s.logger.Info("fetched jobs for user",
		"user", userID,
		"query", params.Query,
		"fetched", len(jobs),
		"new", queued,
	)
}

// DrainReady hands all pending deliveries to the presentation layer.
func (s *Service) DrainReady() []Delivery {
	return s.queue.DrainReady()
}
