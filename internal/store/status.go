// Package store persists per-user job records and profiles in JSON files and
// enforces the job lifecycle state machine.
//
// Valid status graph:
//
//	fetched ──► presented ──► bid_requested ──► bid_draft ──► bid_confirmed
//	                               │                │     └──► bid_failed
//	                               │                └──► bid_draft_cancelled
//	                               └──► bid_cancelled
//
// bid_confirmed, bid_failed, bid_cancelled and bid_draft_cancelled are
// terminal states.
package store

import "fmt"

// Status is a job record's lifecycle state.
type Status string

const (
	StatusFetched           Status = "fetched"
	StatusPresented         Status = "presented"
	StatusBidRequested      Status = "bid_requested"
	StatusBidDraft          Status = "bid_draft"
	StatusBidDraftCancelled Status = "bid_draft_cancelled"
	StatusBidCancelled      Status = "bid_cancelled"
	StatusBidConfirmed      Status = "bid_confirmed"
	StatusBidFailed         Status = "bid_failed"
)

// validTransitions lists every allowed (from → to) pair. Re-drafting
// (bid_draft → bid_draft) is handled by AttachBidDraft, not listed here.
var validTransitions = map[Status][]Status{
	StatusFetched:      {StatusPresented},
	StatusPresented:    {StatusBidRequested},
	StatusBidRequested: {StatusBidDraft, StatusBidCancelled},
	StatusBidDraft:     {StatusBidConfirmed, StatusBidFailed, StatusBidDraftCancelled},
	// terminal states have no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusFetched, StatusPresented, StatusBidRequested, StatusBidDraft,
		StatusBidDraftCancelled, StatusBidCancelled, StatusBidConfirmed, StatusBidFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no transition leads out of s.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
