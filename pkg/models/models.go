package models

import "time"

// Rank is a pilot's crew category. Crew minimums are tracked per rank.
type Rank string

const (
	RankCaptain      Rank = "CAPTAIN"
	RankFirstOfficer Rank = "FIRST_OFFICER"
)

// ValidRank reports whether r is a known rank.
func ValidRank(r Rank) bool {
	return r == RankCaptain || r == RankFirstOfficer
}

// Pilot is read from the external roster store; the engine never writes it.
type Pilot struct {
	ID              string `json:"id"`
	Rank            Rank   `json:"rank"`
	SeniorityNumber int    `json:"seniority_number"` // lower = more senior, globally unique
	Active          bool   `json:"active"`
}

// RequestCategory distinguishes the kinds of pilot requests the engine evaluates.
type RequestCategory string

const (
	CategoryLeave  RequestCategory = "LEAVE"
	CategoryFlight RequestCategory = "FLIGHT"
	CategoryBid    RequestCategory = "BID"
)

// RequestStatus is owned by the external approval workflow. The engine only
// reads it: APPROVED rows count as occupancy, DENIED/WITHDRAWN are ignored.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusApproved  RequestStatus = "APPROVED"
	StatusDenied    RequestStatus = "DENIED"
	StatusWithdrawn RequestStatus = "WITHDRAWN"
)

// AvailabilityImpact snapshots rank availability around an approval,
// written once at creation time.
type AvailabilityImpact struct {
	RankBefore int `json:"rank_before"`
	RankAfter  int `json:"rank_after"`
}

// PilotRequest is a leave/flight/bid submission. EndDate nil means single-day.
type PilotRequest struct {
	ID                 string              `json:"id"`
	PilotID            string              `json:"pilot_id"`
	Rank               Rank                `json:"rank"` // denormalized at submission time
	Category           RequestCategory     `json:"category"`
	Type               string              `json:"type"` // operator-defined subtype
	StartDate          time.Time           `json:"start_date"`
	EndDate            *time.Time          `json:"end_date,omitempty"`
	Status             RequestStatus       `json:"status"`
	ConflictFlags      []string            `json:"conflict_flags"`
	AvailabilityImpact *AvailabilityImpact `json:"availability_impact,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// End returns the request's effective last day (start for single-day requests).
func (r *PilotRequest) End() time.Time {
	if r.EndDate != nil {
		return *r.EndDate
	}
	return r.StartDate
}

// Covers reports whether the request occupies the given day.
func (r *PilotRequest) Covers(day time.Time) bool {
	return !day.Before(r.StartDate) && !day.After(r.End())
}

// RosterPeriod is a 28-day scheduling window. Generated by the calendar,
// never persisted as engine state.
type RosterPeriod struct {
	Code      string    `json:"code"` // e.g. "RP12/2025"
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Excluded  bool      `json:"excluded"` // overlaps the operator blackout window
}

// RenewalStatus tracks a certification renewal through planning.
type RenewalStatus string

const (
	RenewalUnassigned RenewalStatus = "UNASSIGNED"
	RenewalPlanned    RenewalStatus = "PLANNED"
	RenewalConfirmed  RenewalStatus = "CONFIRMED"
)

// CertificationRenewal is an expiring check the planner must place into a
// roster period before its expiry date.
type CertificationRenewal struct {
	ID                 string        `json:"id"`
	PilotID            string        `json:"pilot_id"`
	CheckType          string        `json:"check_type"`
	OriginalExpiryDate time.Time     `json:"original_expiry_date"`
	PlannedRenewalDate *time.Time    `json:"planned_renewal_date,omitempty"`
	AssignedPeriodCode *string       `json:"assigned_period_code,omitempty"`
	Status             RenewalStatus `json:"status"`
}

// CrewSnapshot is an ephemeral availability reading; the engine never stores it.
type CrewSnapshot struct {
	Rank             Rank      `json:"rank"`
	Date             time.Time `json:"date"`
	AvailableCount   int       `json:"available_count"`
	MinimumThreshold int       `json:"minimum_threshold"`
}
