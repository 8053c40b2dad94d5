// Package workflow drives the interactive bid lifecycle on top of the record
// store: opening a job for bidding, drafting a bid with a generated cover
// letter, and confirming or cancelling it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gigmatch/gigmatch/internal/model"
	"github.com/gigmatch/gigmatch/internal/store"
)

// ErrNoDraft is returned when confirming a job that has no draft in progress,
// e.g. after the draft was cancelled.
var ErrNoDraft = errors.New("no bid draft found")

// ErrIncompleteDraft is returned when a draft is missing the amount, period
// or cover letter. No submission is attempted.
var ErrIncompleteDraft = errors.New("bid draft is incomplete")

// ErrConfirmInFlight is returned when a confirm arrives while an earlier
// confirm for the same (user, job) is still placing its bid.
var ErrConfirmInFlight = errors.New("bid placement already in progress")

const defaultBidPeriodDays = 7

// milestonePct is the upfront milestone share requested with every bid.
const milestonePct = 100

// Service validates preconditions, invokes the cover-letter and bid-placement
// collaborators, and records outcomes in the record store.
type Service struct {
	records  *store.RecordStore
	profiles model.ProfileGetter
	letters  model.LetterWriter
	placer   model.BidPlacer
	logger   *slog.Logger

	mu         sync.Mutex
	confirming map[recordKey]struct{}
}

type recordKey struct {
	userID int64
	jobID  int64
}

// NewService wires the bid workflow with its collaborators.
func NewService(
	records *store.RecordStore,
	profiles model.ProfileGetter,
	letters model.LetterWriter,
	placer model.BidPlacer,
	logger *slog.Logger,
) *Service {
	return &Service{
		records:    records,
		profiles:   profiles,
		letters:    letters,
		placer:     placer,
		logger:     logger,
		confirming: make(map[recordKey]struct{}),
	}
}

// Job returns the record for a (user, job) pair, or store.ErrNotTracked.
func (s *Service) Job(userID, jobID int64) (*store.JobRecord, error) {
	return s.records.Get(userID, jobID)
}

// Present marks a delivered job as shown to the user.
func (s *Service) Present(userID, jobID int64) error {
	return s.records.Advance(userID, jobID, store.StatusPresented, "")
}

// OpenJob moves a presented job to bid_requested and returns the record for
// display. Re-opening a job that is already in the bidding flow is a no-op.
func (s *Service) OpenJob(userID, jobID int64) (*store.JobRecord, error) {
	rec, err := s.records.Get(userID, jobID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case store.StatusPresented:
		if err := s.records.Advance(userID, jobID, store.StatusBidRequested, ""); err != nil {
			return nil, err
		}
		rec.Status = store.StatusBidRequested
	case store.StatusBidRequested, store.StatusBidDraft:
		// already open
	default:
		return nil, fmt.Errorf("%w: %s → %s", store.ErrForbiddenTransition, rec.Status, store.StatusBidRequested)
	}
	return rec, nil
}

// DraftBid generates a cover letter and stores a bid draft for review. The
// cover-letter call is blocking network work; run off the presentation
// layer's update loop. Re-drafting replaces the prior draft without any bid
// having been placed.
func (s *Service) DraftBid(ctx context.Context, userID, jobID int64, amount float64, period int) (*store.JobRecord, error) {
	rec, err := s.records.Get(userID, jobID)
	if err != nil {
		return nil, err
	}
	// AttachBidDraft enforces this too, but the letter call is slow and paid;
	// reject ineligible records before composing.
	if rec.Status != store.StatusBidRequested && rec.Status != store.StatusBidDraft {
		return nil, fmt.Errorf("%w: %s → %s", store.ErrForbiddenTransition, rec.Status, store.StatusBidDraft)
	}
	profile, err := s.profiles.Get(userID)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		amount = profile.SuggestBidAmount(rec.Payload)
	}
	if period <= 0 {
		period = defaultBidPeriodDays
		if rec.Payload.Duration != nil && *rec.Payload.Duration > 0 {
			period = *rec.Payload.Duration
		}
	}

	letter := s.letters.ComposeLetter(ctx, model.LetterRequest{
		Title:       rec.Payload.Title,
		Description: rec.Payload.Description(),
		Experience:  profile.ExperienceSummary(),
		SampleLinks: profile.SampleLinks,
	})

	draft := store.BidDraft{
		Amount:      amount,
		Period:      period,
		CoverLetter: letter,
		SampleJobs:  profile.SampleLinks,
	}
	if err := s.records.AttachBidDraft(userID, jobID, draft); err != nil {
		return nil, err
	}
	return s.records.Get(userID, jobID)
}

// ConfirmOutcome reports the result of a confirmed bid back to the caller.
type ConfirmOutcome struct {
	Placed  bool
	Message string
	Job     model.JobListing
	Draft   store.BidDraft
}

// ConfirmBid submits the drafted bid to the marketplace and records the
// terminal outcome. An incomplete or missing draft is rejected before any
// collaborator call; a placement failure becomes bid_failed with the failure
// detail as the record's note, never an automatic retry.
func (s *Service) ConfirmBid(ctx context.Context, userID, jobID int64) (*ConfirmOutcome, error) {
	// The presentation layer runs confirms concurrently; one draft must never
	// place two bids, so the check-then-place section is exclusive per record.
	key := recordKey{userID, jobID}
	s.mu.Lock()
	if _, busy := s.confirming[key]; busy {
		s.mu.Unlock()
		return nil, ErrConfirmInFlight
	}
	s.confirming[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.confirming, key)
		s.mu.Unlock()
	}()

	rec, err := s.records.Get(userID, jobID)
	if err != nil {
		return nil, err
	}
	if rec.Status != store.StatusBidDraft || rec.Bid == nil {
		return nil, ErrNoDraft
	}
	if !rec.Bid.Complete() {
		return nil, ErrIncompleteDraft
	}
	draft := *rec.Bid

	result, err := s.placer.PlaceBid(ctx, model.BidRequest{
		ProjectID:    rec.Payload.ID,
		Amount:       draft.Amount,
		Period:       draft.Period,
		MilestonePct: milestonePct,
		Description:  draft.CoverLetter,
	})
	if err != nil {
		result = model.BidResult{OK: false, Message: err.Error()}
	}

	outcome := &ConfirmOutcome{
		Placed:  result.OK,
		Message: result.Message,
		Job:     rec.Payload,
		Draft:   draft,
	}
	if result.OK {
		err = s.records.Advance(userID, jobID, store.StatusBidConfirmed, "")
	} else {
		err = s.records.Advance(userID, jobID, store.StatusBidFailed, result.Message)
	}
	if err != nil {
		s.logger.Error("recording bid outcome failed", "user", userID, "job", jobID, "error", err)
	}
	return outcome, nil
}

// CancelBid aborts the bidding flow before a draft exists.
func (s *Service) CancelBid(userID, jobID int64) error {
	return s.records.Advance(userID, jobID, store.StatusBidCancelled, "")
}

// CancelDraft discards an in-progress draft.
func (s *Service) CancelDraft(userID, jobID int64) error {
	return s.records.Advance(userID, jobID, store.StatusBidDraftCancelled, "")
}
