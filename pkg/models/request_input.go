package models

import (
	"fmt"
	"time"
)

// ValidationError rejects malformed input before any conflict evaluation.
// It is a distinct failure class from conflicts and from infrastructure errors.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RequestInput is what the intake layer hands the conflict detector.
type RequestInput struct {
	PilotID   string          `json:"pilot_id"`
	Rank      Rank            `json:"rank"`
	Category  RequestCategory `json:"category"`
	Type      string          `json:"type"`
	StartDate time.Time       `json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
}

// End returns the effective last day of the requested range.
func (in *RequestInput) End() time.Time {
	if in.EndDate != nil {
		return *in.EndDate
	}
	return in.StartDate
}

// Validate checks structural rules plus the per-category required fields.
// LEAVE may span days; FLIGHT must carry its designator in Type; BID is
// single-day only.
func (in *RequestInput) Validate() error {
	if in.PilotID == "" {
		return &ValidationError{Field: "pilot_id", Reason: "required"}
	}
	if !ValidRank(in.Rank) {
		return &ValidationError{Field: "rank", Reason: fmt.Sprintf("unknown rank %q", in.Rank)}
	}
	if in.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "required"}
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "before start_date"}
	}

	switch in.Category {
	case CategoryLeave:
		if in.Type == "" {
			return &ValidationError{Field: "type", Reason: "leave type required"}
		}
	case CategoryFlight:
		if in.Type == "" {
			return &ValidationError{Field: "type", Reason: "flight designator required"}
		}
	case CategoryBid:
		if in.EndDate != nil && !in.EndDate.Equal(in.StartDate) {
			return &ValidationError{Field: "end_date", Reason: "bids are single-day"}
		}
	default:
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", in.Category)}
	}
	return nil
}
