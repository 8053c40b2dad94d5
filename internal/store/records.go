package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gigmatch/gigmatch/internal/model"
)

// ErrNotTracked is returned for actions referencing a (user, job) pair with
// no record. Callers treat it as a stale reference: inform the user, do not
// crash.
var ErrNotTracked = errors.New("job not tracked")

// ErrForbiddenTransition is returned when the state machine rejects a status
// change, e.g. confirming a cancelled draft.
var ErrForbiddenTransition = errors.New("status transition not allowed")

// BidDraft is an in-progress bid awaiting user confirmation.
type BidDraft struct {
	Amount      float64  `json:"amount"`
	Period      int      `json:"period"` // days
	CoverLetter string   `json:"cover_letter"`
	SampleJobs  []string `json:"sample_jobs,omitempty"`
}

// Complete reports whether the draft has everything bid placement needs.
func (d *BidDraft) Complete() bool {
	return d != nil && d.Amount > 0 && d.Period > 0 && d.CoverLetter != ""
}

// JobRecord tracks one marketplace listing through its lifecycle for one user.
type JobRecord struct {
	Status    Status           `json:"status"`
	Payload   model.JobListing `json:"payload"`
	Bid       *BidDraft        `json:"bid,omitempty"`
	Note      string           `json:"note,omitempty"`
	UpdatedAt string           `json:"updated_at"` // RFC3339 UTC
}

// userRecords is the per-user slot in the backing file.
type userRecords struct {
	Jobs map[string]*JobRecord `json:"jobs"`
}

// RecordStore is the single owner of job records. Every operation is a full
// load → mutate → atomic-rename cycle under one lock, so read-modify-write
// sequences never interleave and a crash never leaves a partial file.
type RecordStore struct {
	path string
	mu   sync.Mutex
}

// NewRecordStore opens (or creates) the backing file at path.
func NewRecordStore(path string) (*RecordStore, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("init record store: %w", err)
		}
	}
	return &RecordStore{path: path}, nil
}

func (s *RecordStore) load() (map[string]*userRecords, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read record store: %w", err)
	}
	data := make(map[string]*userRecords)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse record store: %w", err)
	}
	return data, nil
}

// save writes the whole table to a temp file and renames it over the original.
func (s *RecordStore) save(data map[string]*userRecords) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write record store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace record store: %w", err)
	}
	return nil
}

func userKey(userID int64) string { return strconv.FormatInt(userID, 10) }
func jobKey(jobID int64) string   { return strconv.FormatInt(jobID, 10) }

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// Has reports whether a record exists for the (user, job) pair.
func (s *RecordStore) Has(userID, jobID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return false, err
	}
	user, ok := data[userKey(userID)]
	if !ok {
		return false, nil
	}
	_, ok = user.Jobs[jobKey(jobID)]
	return ok, nil
}

// Record creates a new record in status fetched, snapshotting the listing.
// An existing record is left untouched: job IDs are never reused, so a second
// fetch of the same ID is a dedup hit, not an update.
func (s *RecordStore) Record(userID int64, job model.JobListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	user, ok := data[userKey(userID)]
	if !ok {
		user = &userRecords{Jobs: make(map[string]*JobRecord)}
		data[userKey(userID)] = user
	}
	if user.Jobs == nil {
		user.Jobs = make(map[string]*JobRecord)
	}
	if _, ok := user.Jobs[jobKey(job.ID)]; ok {
		return nil
	}
	user.Jobs[jobKey(job.ID)] = &JobRecord{
		Status:    StatusFetched,
		Payload:   job,
		UpdatedAt: nowRFC3339(),
	}
	return s.save(data)
}

// Get returns a copy of the record for the (user, job) pair, or ErrNotTracked.
func (s *RecordStore) Get(userID, jobID int64) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	rec := lookup(data, userID, jobID)
	if rec == nil {
		return nil, ErrNotTracked
	}
	cp := *rec
	return &cp, nil
}

// Advance moves the record to a new status, recording note when non-empty.
// The transition table is enforced here, not at call sites; a draft is
// dropped when the record leaves bid_draft, so bid metadata only survives
// while a draft is actually in progress.
func (s *RecordStore) Advance(userID, jobID int64, to Status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	rec := lookup(data, userID, jobID)
	if rec == nil {
		return ErrNotTracked
	}
	if !IsTransitionAllowed(rec.Status, to) {
		return fmt.Errorf("%w: %s → %s", ErrForbiddenTransition, rec.Status, to)
	}
	if rec.Status == StatusBidDraft {
		rec.Bid = nil
	}
	rec.Status = to
	rec.UpdatedAt = nowRFC3339()
	if note != "" {
		rec.Note = note
	}
	return s.save(data)
}

// AttachBidDraft stores (or replaces) the bid draft and moves the record to
// bid_draft. The record must be in bid_requested or already in bid_draft.
func (s *RecordStore) AttachBidDraft(userID, jobID int64, draft BidDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	rec := lookup(data, userID, jobID)
	if rec == nil {
		return ErrNotTracked
	}
	if rec.Status != StatusBidRequested && rec.Status != StatusBidDraft {
		return fmt.Errorf("%w: %s → %s", ErrForbiddenTransition, rec.Status, StatusBidDraft)
	}
	rec.Bid = &draft
	rec.Status = StatusBidDraft
	rec.UpdatedAt = nowRFC3339()
	return s.save(data)
}

// Users returns the IDs of all users with at least one record, ascending.
func (s *RecordStore) Users() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(data))
	for key := range data {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// List returns copies of all records for a user, most recently updated first.
func (s *RecordStore) List(userID int64) ([]JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	user, ok := data[userKey(userID)]
	if !ok {
		return nil, nil
	}
	recs := make([]JobRecord, 0, len(user.Jobs))
	for _, rec := range user.Jobs {
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UpdatedAt > recs[j].UpdatedAt })
	return recs, nil
}

func lookup(data map[string]*userRecords, userID, jobID int64) *JobRecord {
	user, ok := data[userKey(userID)]
	if !ok {
		return nil
	}
	return user.Jobs[jobKey(jobID)]
}
