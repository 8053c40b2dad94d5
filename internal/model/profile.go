package model

import "strings"

// Profile holds a user's matching preferences and bidding details. Fields are
// enumerated explicitly so that missing-value handling is a typed branch, not
// a map lookup.
type Profile struct {
	Positions    []string `json:"positions,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Experience   string   `json:"experience,omitempty"`
	HourlyRate   *float64 `json:"hourly_rate,omitempty"`
	FixedRateMin *float64 `json:"fixed_rate_min,omitempty"`
	FixedRateMax *float64 `json:"fixed_rate_max,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	SampleLinks  []string `json:"sample_links,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// defaultSearchQuery is used when a profile names neither a position nor a skill.
const defaultSearchQuery = "Freelancer"

// SearchQuery derives the marketplace search term: primary position, else
// first listed skill, else a generic fallback.
func (p *Profile) SearchQuery() string {
	for _, pos := range p.Positions {
		if s := strings.TrimSpace(pos); s != "" {
			return s
		}
	}
	for _, skill := range p.Skills {
		if s := strings.TrimSpace(skill); s != "" {
			return s
		}
	}
	return defaultSearchQuery
}

// HourlyBand returns the ±20% band around the declared hourly rate, or nils
// when no rate is declared.
func (p *Profile) HourlyBand() (min, max *float64) {
	if p.HourlyRate == nil || *p.HourlyRate <= 0 {
		return nil, nil
	}
	lo := *p.HourlyRate * 0.8
	hi := *p.HourlyRate * 1.2
	return &lo, &hi
}

// ExperienceSummary assembles the free-text experience blurb fed to the
// cover-letter generator.
func (p *Profile) ExperienceSummary() string {
	var parts []string
	if p.Experience != "" {
		parts = append(parts, p.Experience)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, strings.Join(p.Skills, ", "))
	}
	if len(p.Positions) > 0 {
		parts = append(parts, "Roles: "+strings.Join(p.Positions, ", "))
	}
	return strings.Join(parts, "\n")
}

// SuggestBidAmount picks a bid amount for a listing: the declared hourly rate
// for hourly jobs, else the budget midpoint, else the profile's fixed-rate
// midpoint, else 100.
func (p *Profile) SuggestBidAmount(job JobListing) float64 {
	if job.Hourly() && p.HourlyRate != nil && *p.HourlyRate > 0 {
		return *p.HourlyRate
	}
	switch {
	case job.BudgetMin != nil && job.BudgetMax != nil:
		return (*job.BudgetMin + *job.BudgetMax) / 2
	case job.BudgetMin != nil:
		return *job.BudgetMin
	case job.BudgetMax != nil:
		return *job.BudgetMax
	}
	if p.FixedRateMin != nil && p.FixedRateMax != nil {
		return (*p.FixedRateMin + *p.FixedRateMax) / 2
	}
	return 100
}
