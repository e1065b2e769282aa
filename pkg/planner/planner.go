// Package planner batch-assigns certification renewals to roster periods
// under per-period capacity and per-renewal deadline constraints. The
// algorithm is a deterministic greedy bin-pack: earliest deadline first,
// least-loaded valid period wins.
package planner

import (
	"fmt"
	"sort"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

// Utilization classes reported per period.
const (
	ClassGood     = "good"
	ClassMedium   = "medium"
	ClassHighRisk = "high-risk"
	ClassExcluded = "excluded"
)

// Classify maps a fill ratio to its utilization class.
func Classify(ratio float64) string {
	switch {
	case ratio <= 0.60:
		return ClassGood
	case ratio <= 0.80:
		return ClassMedium
	default:
		return ClassHighRisk
	}
}

// Input is one planning run. Confirmed renewals are fixed prior occupancy
// that reduces remaining capacity of their assigned periods.
type Input struct {
	Year      int
	Renewals  []models.CertificationRenewal
	Periods   []models.RosterPeriod
	Confirmed []models.CertificationRenewal
	Capacity  int // per non-excluded period
}

// PeriodReport summarizes one period after assignment.
type PeriodReport struct {
	Code           string  `json:"code"`
	AssignedCount  int     `json:"assigned_count"`
	Capacity       int     `json:"capacity"`
	Utilization    float64 `json:"utilization"`
	Classification string  `json:"classification"`
}

// Summary is the run-level report handed to downstream export.
type Summary struct {
	TotalRenewals   int                           `json:"total_renewals"`
	TotalCapacity   int                           `json:"total_capacity"`
	UtilizationPct  float64                       `json:"utilization_pct"`
	HighRiskPeriods []string                      `json:"high_risk_periods"`
	Unschedulable   []models.CertificationRenewal `json:"unschedulable"`
	Periods         []PeriodReport                `json:"periods"`
}

// Schedule is the planner output. Renewals carries the input renewals with
// assignments applied (status PLANNED) or untouched when unschedulable.
type Schedule struct {
	PeriodAssignments map[string][]string           `json:"period_assignments"` // code -> renewal ids
	Renewals          []models.CertificationRenewal `json:"renewals"`
	Summary           Summary                       `json:"summary"`
}

// Generate runs the bin-pack. Identical inputs always produce identical
// output; ties on expiry break by renewal id, ties on load by earliest
// period start. Unschedulable renewals are reported, never dropped.
func Generate(in Input) (Schedule, error) {
	if in.Capacity <= 0 {
		return Schedule{}, &models.ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	if len(in.Periods) == 0 {
		return Schedule{}, &models.ValidationError{Field: "periods", Reason: "required"}
	}

	assigned := make(map[string]int, len(in.Periods)) // code -> count
	for _, c := range in.Confirmed {
		if c.AssignedPeriodCode != nil {
			assigned[*c.AssignedPeriodCode]++
		}
	}

	renewals := make([]models.CertificationRenewal, len(in.Renewals))
	copy(renewals, in.Renewals)
	sort.SliceStable(renewals, func(i, j int) bool {
		if !renewals[i].OriginalExpiryDate.Equal(renewals[j].OriginalExpiryDate) {
			return renewals[i].OriginalExpiryDate.Before(renewals[j].OriginalExpiryDate)
		}
		return renewals[i].ID < renewals[j].ID
	})

	out := Schedule{PeriodAssignments: make(map[string][]string)}
	var unschedulable []models.CertificationRenewal

	for i := range renewals {
		r := &renewals[i]
		best := pickPeriod(in.Periods, assigned, in.Capacity, r)
		if best == nil {
			// Clear any prior-run assignment so regeneration cannot carry a
			// stale period code forward for a renewal it can no longer place.
			r.Status = models.RenewalUnassigned
			r.AssignedPeriodCode = nil
			r.PlannedRenewalDate = nil
			unschedulable = append(unschedulable, *r)
			continue
		}

		assigned[best.Code]++
		code := best.Code
		start := best.StartDate
		r.AssignedPeriodCode = &code
		r.PlannedRenewalDate = &start
		r.Status = models.RenewalPlanned
		out.PeriodAssignments[code] = append(out.PeriodAssignments[code], r.ID)
	}
	out.Renewals = renewals

	// Post-condition: the candidate filter keeps excluded periods out of this
	// run's assignments. Confirmed occupancy from before a period was excluded
	// is prior state, not a planner fault.
	for _, p := range in.Periods {
		if n := len(out.PeriodAssignments[p.Code]); p.Excluded && n > 0 {
			return Schedule{}, fmt.Errorf("planner: excluded period %s received %d assignments", p.Code, n)
		}
	}

	out.Summary = summarize(in, assigned, len(in.Renewals), unschedulable)
	return out, nil
}

// pickPeriod returns the least-loaded non-excluded period with remaining
// capacity ending strictly before the renewal's expiry, or nil.
func pickPeriod(periods []models.RosterPeriod, assigned map[string]int, capacity int, r *models.CertificationRenewal) *models.RosterPeriod {
	var best *models.RosterPeriod
	var bestRatio float64
	for i := range periods {
		p := &periods[i]
		if p.Excluded || !p.EndDate.Before(r.OriginalExpiryDate) || assigned[p.Code] >= capacity {
			continue
		}
		ratio := float64(assigned[p.Code]) / float64(capacity)
		if best == nil || ratio < bestRatio ||
			(ratio == bestRatio && p.StartDate.Before(best.StartDate)) {
			best = p
			bestRatio = ratio
		}
	}
	return best
}

func summarize(in Input, assigned map[string]int, total int, unschedulable []models.CertificationRenewal) Summary {
	s := Summary{
		TotalRenewals:   total,
		HighRiskPeriods: []string{},
		Unschedulable:   unschedulable,
	}
	if s.Unschedulable == nil {
		s.Unschedulable = []models.CertificationRenewal{}
	}

	totalAssigned := 0
	for _, p := range in.Periods {
		report := PeriodReport{Code: p.Code, AssignedCount: assigned[p.Code], Capacity: in.Capacity}
		if p.Excluded {
			report.Classification = ClassExcluded
		} else {
			report.Utilization = float64(assigned[p.Code]) / float64(in.Capacity)
			report.Classification = Classify(report.Utilization)
			s.TotalCapacity += in.Capacity
			totalAssigned += assigned[p.Code]
			if report.Classification == ClassHighRisk {
				s.HighRiskPeriods = append(s.HighRiskPeriods, p.Code)
			}
		}
		s.Periods = append(s.Periods, report)
	}
	if s.TotalCapacity > 0 {
		s.UtilizationPct = float64(totalAssigned) / float64(s.TotalCapacity) * 100
	}
	return s
}
