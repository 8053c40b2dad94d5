package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gigmatch/gigmatch/internal/model"
	"github.com/gigmatch/gigmatch/internal/store"
)

// --- Fakes ---

// MemProfiles serves profiles from a map.
type MemProfiles struct {
	profiles map[int64]*model.Profile
}

func (m *MemProfiles) Get(userID int64) (*model.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, model.ErrNoProfile
	}
	cp := *p
	return &cp, nil
}

// StubLetters returns a fixed cover letter and records each request.
type StubLetters struct {
	Letter   string
	Requests []model.LetterRequest
}

func (s *StubLetters) ComposeLetter(_ context.Context, req model.LetterRequest) string {
	s.Requests = append(s.Requests, req)
	return s.Letter
}

// MockPlacer returns a canned result and records each request.
type MockPlacer struct {
	Result   model.BidResult
	Err      error
	Requests []model.BidRequest
}

func (m *MockPlacer) PlaceBid(_ context.Context, req model.BidRequest) (model.BidResult, error) {
	m.Requests = append(m.Requests, req)
	return m.Result, m.Err
}

// GatePlacer counts calls and holds each one until released, so a test can
// overlap confirms deterministically.
type GatePlacer struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func NewGatePlacer() *GatePlacer {
	return &GatePlacer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *GatePlacer) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *GatePlacer) PlaceBid(_ context.Context, _ model.BidRequest) (model.BidResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.entered <- struct{}{}
	<-g.release
	return model.BidResult{OK: true, Message: "success"}, nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(i int) *int          { return &i }
func floatPtr(f float64) *float64 { return &f }

func testListing() model.JobListing {
	return model.JobListing{
		ID:                 42,
		Title:              "Flutter app",
		PreviewDescription: "Build a mobile app",
		Currency:           "USD",
		BudgetMin:          floatPtr(100),
		BudgetMax:          floatPtr(500),
		Type:               "fixed",
		Duration:           intPtr(10),
	}
}

func testProfile() *model.Profile {
	return &model.Profile{
		Positions:   []string{"mobile developer"},
		Skills:      []string{"Flutter"},
		Experience:  "5 years of app development",
		SampleLinks: []string{"https://github.com/example/app"},
	}
}

type fixture struct {
	svc     *Service
	records *store.RecordStore
	letters *StubLetters
	placer  *MockPlacer
}

// newFixture builds a workflow over a real file-backed record store with a
// record for (7, 42) already advanced to bid_requested.
func newFixture(t *testing.T, placer *MockPlacer) *fixture {
	t.Helper()
	records, err := store.NewRecordStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := records.Record(7, testListing()); err != nil {
		t.Fatal(err)
	}
	if err := records.Advance(7, 42, store.StatusPresented, ""); err != nil {
		t.Fatal(err)
	}
	if err := records.Advance(7, 42, store.StatusBidRequested, ""); err != nil {
		t.Fatal(err)
	}

	letters := &StubLetters{Letter: "Generated proposal"}
	profiles := &MemProfiles{profiles: map[int64]*model.Profile{7: testProfile()}}
	return &fixture{
		svc:     NewService(records, profiles, letters, placer, discardLogger()),
		records: records,
		letters: letters,
		placer:  placer,
	}
}

func status(t *testing.T, records *store.RecordStore, userID, jobID int64) store.Status {
	t.Helper()
	rec, err := records.Get(userID, jobID)
	if err != nil {
		t.Fatalf("Get(%d, %d): %v", userID, jobID, err)
	}
	return rec.Status
}

// --- Tests ---

func TestDraftAndConfirm_Success(t *testing.T) {
	// Scenario: open → draft {300, 10} → confirm → placer called with the
	// draft values → bid_confirmed.
	f := newFixture(t, &MockPlacer{Result: model.BidResult{OK: true, Message: "success"}})

	rec, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10)
	if err != nil {
		t.Fatalf("DraftBid: %v", err)
	}
	if rec.Status != store.StatusBidDraft {
		t.Errorf("Status = %q, want bid_draft", rec.Status)
	}
	if rec.Bid == nil || rec.Bid.Amount != 300 || rec.Bid.Period != 10 || rec.Bid.CoverLetter != "Generated proposal" {
		t.Errorf("Bid = %+v, want drafted values with generated letter", rec.Bid)
	}
	if len(f.letters.Requests) != 1 || f.letters.Requests[0].Title != "Flutter app" {
		t.Errorf("letter requests = %+v, want one for the listing", f.letters.Requests)
	}

	outcome, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("ConfirmBid: %v", err)
	}
	if !outcome.Placed {
		t.Errorf("Placed = false, want true")
	}
	if len(f.placer.Requests) != 1 {
		t.Fatalf("placer calls = %d, want 1", len(f.placer.Requests))
	}
	req := f.placer.Requests[0]
	if req.ProjectID != 42 || req.Amount != 300 || req.Period != 10 {
		t.Errorf("PlaceBid request = %+v, want project 42 amount 300 period 10", req)
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidConfirmed {
		t.Errorf("Status = %q, want bid_confirmed", got)
	}
}

func TestConfirm_PlacementRejected(t *testing.T) {
	// Scenario: marketplace answers (false, "insufficient funds") →
	// bid_failed with the message as note, no retry.
	f := newFixture(t, &MockPlacer{Result: model.BidResult{OK: false, Message: "insufficient funds"}})

	if _, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10); err != nil {
		t.Fatal(err)
	}
	outcome, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("ConfirmBid: %v", err)
	}
	if outcome.Placed {
		t.Error("Placed = true, want false")
	}

	rec, err := f.records.Get(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != store.StatusBidFailed {
		t.Errorf("Status = %q, want bid_failed", rec.Status)
	}
	if rec.Note != "insufficient funds" {
		t.Errorf("Note = %q, want %q", rec.Note, "insufficient funds")
	}
	if len(f.placer.Requests) != 1 {
		t.Errorf("placer calls = %d, want 1 (no automatic retry)", len(f.placer.Requests))
	}
}

func TestConfirm_TransportFailureBecomesBidFailed(t *testing.T) {
	f := newFixture(t, &MockPlacer{Err: errors.New("connection reset")})

	if _, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10); err != nil {
		t.Fatal(err)
	}
	outcome, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("ConfirmBid: %v", err)
	}
	if outcome.Placed {
		t.Error("Placed = true, want false")
	}
	rec, _ := f.records.Get(7, 42)
	if rec.Status != store.StatusBidFailed || rec.Note != "connection reset" {
		t.Errorf("record = %q/%q, want bid_failed/connection reset", rec.Status, rec.Note)
	}
}

func TestConfirm_WithoutDraft(t *testing.T) {
	f := newFixture(t, &MockPlacer{})

	_, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if !errors.Is(err, ErrNoDraft) {
		t.Errorf("ConfirmBid without draft = %v, want ErrNoDraft", err)
	}
	if len(f.placer.Requests) != 0 {
		t.Errorf("placer calls = %d, want 0", len(f.placer.Requests))
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidRequested {
		t.Errorf("Status = %q, want unchanged bid_requested", got)
	}
}

func TestConfirm_AfterDraftCancelled(t *testing.T) {
	// Scenario: cancel the draft, then confirm → rejected with no state
	// change and no placement.
	f := newFixture(t, &MockPlacer{Result: model.BidResult{OK: true}})

	if _, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.CancelDraft(7, 42); err != nil {
		t.Fatalf("CancelDraft: %v", err)
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidDraftCancelled {
		t.Fatalf("Status = %q, want bid_draft_cancelled", got)
	}

	_, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if !errors.Is(err, ErrNoDraft) {
		t.Errorf("ConfirmBid after cancel = %v, want ErrNoDraft", err)
	}
	if len(f.placer.Requests) != 0 {
		t.Errorf("placer calls = %d, want 0", len(f.placer.Requests))
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidDraftCancelled {
		t.Errorf("Status = %q, want unchanged bid_draft_cancelled", got)
	}
}

func TestConfirm_ConcurrentPlacesOneBid(t *testing.T) {
	// Scenario: two rapid confirms for the same draft overlap; the second is
	// rejected while the first is still at the marketplace, so exactly one
	// bid is placed.
	f := newFixture(t, &MockPlacer{})

	if _, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10); err != nil {
		t.Fatal(err)
	}
	gate := NewGatePlacer()
	f.svc.placer = gate

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ConfirmBid(context.Background(), 7, 42)
		done <- err
	}()
	<-gate.entered // first confirm is now inside PlaceBid

	_, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if !errors.Is(err, ErrConfirmInFlight) {
		t.Errorf("second ConfirmBid = %v, want ErrConfirmInFlight", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("first ConfirmBid: %v", err)
	}

	if got := gate.Calls(); got != 1 {
		t.Errorf("placer calls = %d, want 1", got)
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidConfirmed {
		t.Errorf("Status = %q, want bid_confirmed", got)
	}

	// A third confirm after completion finds the record terminal.
	if _, err := f.svc.ConfirmBid(context.Background(), 7, 42); !errors.Is(err, ErrNoDraft) {
		t.Errorf("ConfirmBid after completion = %v, want ErrNoDraft", err)
	}
	if got := gate.Calls(); got != 1 {
		t.Errorf("placer calls after terminal confirm = %d, want still 1", got)
	}
}

func TestConfirm_IncompleteDraftNeverPlaced(t *testing.T) {
	// A draft missing its cover letter must be rejected before the placement
	// collaborator is ever invoked.
	f := newFixture(t, &MockPlacer{Result: model.BidResult{OK: true}})

	if err := f.records.AttachBidDraft(7, 42, store.BidDraft{Amount: 300, Period: 10}); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.ConfirmBid(context.Background(), 7, 42)
	if !errors.Is(err, ErrIncompleteDraft) {
		t.Errorf("ConfirmBid = %v, want ErrIncompleteDraft", err)
	}
	if len(f.placer.Requests) != 0 {
		t.Errorf("placer calls = %d, want 0", len(f.placer.Requests))
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidDraft {
		t.Errorf("Status = %q, want unchanged bid_draft", got)
	}
}

func TestConfirm_StaleReference(t *testing.T) {
	f := newFixture(t, &MockPlacer{})

	_, err := f.svc.ConfirmBid(context.Background(), 7, 999)
	if !errors.Is(err, store.ErrNotTracked) {
		t.Errorf("ConfirmBid on unknown job = %v, want ErrNotTracked", err)
	}
}

func TestDraftBid_DefaultsAmountAndPeriod(t *testing.T) {
	f := newFixture(t, &MockPlacer{})

	rec, err := f.svc.DraftBid(context.Background(), 7, 42, 0, 0)
	if err != nil {
		t.Fatalf("DraftBid: %v", err)
	}
	// Budget midpoint of 100–500 and the listing's 10-day duration.
	if rec.Bid.Amount != 300 {
		t.Errorf("Amount = %v, want 300 (budget midpoint)", rec.Bid.Amount)
	}
	if rec.Bid.Period != 10 {
		t.Errorf("Period = %d, want listing duration 10", rec.Bid.Period)
	}
}

func TestDraftBid_IneligibleRecordSkipsLetter(t *testing.T) {
	// Drafting a job the user never opened must fail before the cover-letter
	// collaborator is invoked.
	f := newFixture(t, &MockPlacer{})
	listing := testListing()
	listing.ID = 43
	if err := f.records.Record(7, listing); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.DraftBid(context.Background(), 7, 43, 300, 10)
	if !errors.Is(err, store.ErrForbiddenTransition) {
		t.Errorf("DraftBid on fetched record = %v, want ErrForbiddenTransition", err)
	}
	if len(f.letters.Requests) != 0 {
		t.Errorf("letter requests = %d, want 0", len(f.letters.Requests))
	}
	if got := status(t, f.records, 7, 43); got != store.StatusFetched {
		t.Errorf("Status = %q, want unchanged fetched", got)
	}
}

func TestDraftBid_NoProfile(t *testing.T) {
	f := newFixture(t, &MockPlacer{})
	f.svc.profiles = &MemProfiles{profiles: map[int64]*model.Profile{}}

	_, err := f.svc.DraftBid(context.Background(), 7, 42, 300, 10)
	if !errors.Is(err, model.ErrNoProfile) {
		t.Errorf("DraftBid without profile = %v, want ErrNoProfile", err)
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidRequested {
		t.Errorf("Status = %q, want unchanged bid_requested", got)
	}
}

func TestCancelBid_BeforeDrafting(t *testing.T) {
	f := newFixture(t, &MockPlacer{})

	if err := f.svc.CancelBid(7, 42); err != nil {
		t.Fatalf("CancelBid: %v", err)
	}
	if got := status(t, f.records, 7, 42); got != store.StatusBidCancelled {
		t.Errorf("Status = %q, want bid_cancelled", got)
	}
}

func TestOpenJob_Reopen(t *testing.T) {
	f := newFixture(t, &MockPlacer{})

	// Already in bid_requested; opening again must not error.
	rec, err := f.svc.OpenJob(7, 42)
	if err != nil {
		t.Fatalf("OpenJob: %v", err)
	}
	if rec.Status != store.StatusBidRequested {
		t.Errorf("Status = %q, want bid_requested", rec.Status)
	}
}
