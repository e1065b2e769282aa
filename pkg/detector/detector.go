// Package detector evaluates a single incoming pilot request against crew
// availability and the existing request set, producing severity-tagged
// findings. It never mutates state; callers decide what to persist.
package detector

import (
	"fmt"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/ledger"
	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

// Severity orders conflict findings for display and blocking decisions.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// severityRank: CRITICAL > HIGH > MEDIUM > LOW.
var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// Less reports whether s sorts below other.
func (s Severity) Less(other Severity) bool {
	return severityRank[s] < severityRank[other]
}

// BlockingSeverities is the single place the block-vs-warn policy lives.
// A request is blocked iff any finding carries a severity in this set.
var BlockingSeverities = map[Severity]bool{
	SeverityCritical: true,
}

// ConflictType codes are persisted verbatim as conflict_flags.
type ConflictType string

const (
	ConflictOverlap     ConflictType = "OVERLAP"
	ConflictDuplicate   ConflictType = "DUPLICATE"
	ConflictCrewMinimum ConflictType = "CREW_MINIMUM"
	ConflictCluster     ConflictType = "CLUSTER"
)

// Conflict is one business-rule finding.
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
}

// Result is the detector's verdict. Conflicts are structured data, never
// errors; infrastructure failures travel separately.
type Result struct {
	Conflicts  []Conflict                 `json:"conflicts"`
	Warnings   []string                   `json:"warnings"`
	CanApprove bool                       `json:"can_approve"`
	CrewImpact *models.AvailabilityImpact `json:"crew_impact,omitempty"`
}

// Flags returns the conflict type codes for persistence alongside the request.
func (r *Result) Flags() []string {
	flags := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		flags = append(flags, string(c.Type))
	}
	return flags
}

// Snapshot is everything the detector reads: the crew state backing the
// ledger plus the pending requests needed for duplicate and cluster checks.
// The store loads it in one logical read per check.
type Snapshot struct {
	ledger.CrewState
	Pending []models.PilotRequest
}

// existing returns pending and approved requests together.
func (s *Snapshot) existing() []models.PilotRequest {
	out := make([]models.PilotRequest, 0, len(s.Approved)+len(s.Pending))
	out = append(out, s.Approved...)
	out = append(out, s.Pending...)
	return out
}

// Config carries the operator-tunable thresholds.
type Config struct {
	// CrewMinimums is the minimum available pilots per rank.
	CrewMinimums map[models.Rank]int
	// ClusterSize is how many overlapping same-rank requests count as a cluster.
	ClusterSize int
}

// Detector runs the four independent checks against a snapshot.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

const dateFmt = "2006-01-02"

// Check evaluates one request. All checks run independently; nothing
// short-circuits except the final blocking decision.
func (d *Detector) Check(in models.RequestInput, snap Snapshot) Result {
	res := Result{Conflicts: []Conflict{}, Warnings: []string{}}

	d.checkOverlap(in, snap, &res)
	d.checkDuplicate(in, snap, &res)
	d.checkCrewMinimum(in, snap, &res)
	d.checkCluster(in, snap, &res)

	res.CanApprove = true
	for _, c := range res.Conflicts {
		if BlockingSeverities[c.Severity] {
			res.CanApprove = false
			break
		}
	}
	return res
}

// checkOverlap flags an approved request of the same pilot and category
// intersecting the new range.
func (d *Detector) checkOverlap(in models.RequestInput, snap Snapshot, res *Result) {
	for i := range snap.Approved {
		req := &snap.Approved[i]
		if req.PilotID != in.PilotID || req.Category != in.Category {
			continue
		}
		if rangesOverlap(in.StartDate, in.End(), req.StartDate, req.End()) {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:     ConflictOverlap,
				Severity: SeverityCritical,
				Message: fmt.Sprintf("pilot already has an approved %s request %s to %s",
					req.Category, req.StartDate.Format(dateFmt), req.End().Format(dateFmt)),
			})
		}
	}
}

// checkDuplicate flags an existing pending or approved request with the same
// pilot, dates, type and category.
func (d *Detector) checkDuplicate(in models.RequestInput, snap Snapshot, res *Result) {
	for _, req := range snap.existing() {
		if req.PilotID != in.PilotID || req.Category != in.Category || req.Type != in.Type {
			continue
		}
		if req.StartDate.Equal(in.StartDate) && req.End().Equal(in.End()) {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:     ConflictDuplicate,
				Severity: SeverityMedium,
				Message: fmt.Sprintf("an identical %s request (%s) already exists with status %s",
					req.Category, req.StartDate.Format(dateFmt), req.Status),
			})
			return
		}
	}
}

// checkCrewMinimum simulates approval and compares the worst projected day
// against the rank's minimum. Exactly at the minimum is a warning, not a
// conflict.
func (d *Detector) checkCrewMinimum(in models.RequestInput, snap Snapshot, res *Result) {
	lg := ledger.New(snap.CrewState)
	threshold := d.cfg.CrewMinimums[in.Rank]

	before := lg.ProjectedAvailability(in.Rank, in.StartDate, in.End(), 0)
	after := lg.ProjectedAvailability(in.Rank, in.StartDate, in.End(), -1)
	res.CrewImpact = &models.AvailabilityImpact{RankBefore: before, RankAfter: after}

	switch {
	case after < threshold:
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:     ConflictCrewMinimum,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("approval would leave %d %s available, below the minimum of %d",
				after, in.Rank, threshold),
		})
	case after == threshold:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("crew at minimum: approval leaves exactly %d %s available, no margin", after, in.Rank))
	}
}

// checkCluster notes when the window is already contested by the rank.
func (d *Detector) checkCluster(in models.RequestInput, snap Snapshot, res *Result) {
	count := 0
	for _, req := range snap.existing() {
		if req.Rank != in.Rank {
			continue
		}
		if rangesOverlap(in.StartDate, in.End(), req.StartDate, req.End()) {
			count++
		}
	}
	if count >= d.cfg.ClusterSize {
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:     ConflictCluster,
			Severity: SeverityLow,
			Message: fmt.Sprintf("%d other %s requests overlap this window", count, in.Rank),
		})
	}
}

// rangesOverlap treats both ranges as inclusive day spans.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}
