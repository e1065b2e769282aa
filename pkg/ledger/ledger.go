// Package ledger computes crew availability per rank and date from the
// active roster and the set of already-approved requests. It is the single
// source of truth the conflict detector and planner build on:
//
//	available(rank, day) = active pilots of rank - pilots of rank with an
//	                       approved request covering day
package ledger

import (
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/roster"
)

// CrewState is a point-in-time read of the roster and approved occupancy,
// loaded by the store in one logical snapshot per check.
type CrewState struct {
	ActiveCount map[models.Rank]int
	Approved    []models.PilotRequest
}

// Ledger answers availability questions over a fixed CrewState. It never
// mutates anything.
type Ledger struct {
	state CrewState
}

func New(state CrewState) *Ledger {
	return &Ledger{state: state}
}

// AvailabilityAt returns the number of pilots of the given rank free on day.
// A pilot with several approved requests covering the same day is absent once.
func (l *Ledger) AvailabilityAt(rank models.Rank, day time.Time) int {
	day = roster.Day(day)
	absent := make(map[string]bool)
	for i := range l.state.Approved {
		req := &l.state.Approved[i]
		if req.Rank == rank && req.Status == models.StatusApproved && req.Covers(day) {
			absent[req.PilotID] = true
		}
	}
	return l.state.ActiveCount[rank] - len(absent)
}

// ProjectedAvailability returns the minimum availability across every day in
// [start, end], adjusted by delta (-1 simulates approving one more request of
// the rank). Multi-day ranges are judged at their worst day, not their
// average; a single bad day is the actionable risk.
func (l *Ledger) ProjectedAvailability(rank models.Rank, start, end time.Time, delta int) int {
	start, end = roster.Day(start), roster.Day(end)
	if end.Before(start) {
		end = start
	}

	min := 0
	first := true
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		n := l.AvailabilityAt(rank, day) + delta
		if first || n < min {
			min = n
			first = false
		}
	}
	return min
}

// Snapshot packages a point reading for callers that persist crew impact.
func (l *Ledger) Snapshot(rank models.Rank, day time.Time, threshold int) models.CrewSnapshot {
	return models.CrewSnapshot{
		Rank:             rank,
		Date:             roster.Day(day),
		AvailableCount:   l.AvailabilityAt(rank, day),
		MinimumThreshold: threshold,
	}
}
