package model

import "context"

// JobListing is a normalised marketplace job listing. It is snapshotted into
// the record store at fetch time and never mutated afterwards.
type JobListing struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	PreviewDescription string   `json:"preview_description"`
	FullDescription    string   `json:"full_description"`
	Currency           string   `json:"currency"`
	BudgetMin          *float64 `json:"budget_min"`
	BudgetMax          *float64 `json:"budget_max"`
	Type               string   `json:"type"` // "hourly" or "fixed"
	BidCount           int      `json:"bid_count"`
	Duration           *int     `json:"duration"` // days, nil when not listed
	Skills             []string `json:"skills"`
	URL                string   `json:"url"`
	Submitted          *int64   `json:"submitted"` // unix seconds, nil when unknown
}

// Description returns the full description, falling back to the preview.
func (j JobListing) Description() string {
	if j.FullDescription != "" {
		return j.FullDescription
	}
	return j.PreviewDescription
}

// Hourly reports whether the listing is billed hourly rather than fixed-price.
func (j JobListing) Hourly() bool { return j.Type == "hourly" }

// SearchParams narrows a marketplace search.
type SearchParams struct {
	Query     string
	Skills    []string
	MinHourly *float64
	MaxHourly *float64
	Currency  string
	Limit     int
}

// BidRequest carries everything needed to place a bid on a listing.
type BidRequest struct {
	ProjectID    int64
	Amount       float64
	Period       int // days
	MilestonePct float64
	Description  string
}

// BidResult is the marketplace's verdict on a bid placement. A rejected bid
// is a result, not an error; transport failures are returned as errors.
type BidResult struct {
	OK      bool
	Message string
}

// JobSearcher queries the marketplace for candidate listings. Implementations
// return an empty slice rather than partial results on failure.
type JobSearcher interface {
	SearchJobs(ctx context.Context, params SearchParams) ([]JobListing, error)
}

// BidPlacer submits a bid to the marketplace.
type BidPlacer interface {
	PlaceBid(ctx context.Context, req BidRequest) (BidResult, error)
}

// LetterRequest is the input for cover-letter generation.
type LetterRequest struct {
	Title       string
	Description string
	Experience  string
	SampleLinks []string
}

// LetterWriter produces a cover letter for a listing. Implementations never
// fail: any provider error degrades to a canned fallback letter.
type LetterWriter interface {
	ComposeLetter(ctx context.Context, req LetterRequest) string
}

// RecordTracker is the slice of the record store the matching loop needs:
// dedup lookups and creation of freshly fetched records.
type RecordTracker interface {
	Has(userID, jobID int64) (bool, error)
	Record(userID int64, job JobListing) error
}

// ProfileGetter looks up a user profile. A missing profile is reported via
// ErrNoProfile, not a nil pointer.
type ProfileGetter interface {
	Get(userID int64) (*Profile, error)
}
