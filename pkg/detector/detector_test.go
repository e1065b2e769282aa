package detector

import (
	"fmt"
	"testing"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/ledger"
	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() Config {
	return Config{
		CrewMinimums: map[models.Rank]int{
			models.RankCaptain:      10,
			models.RankFirstOfficer: 10,
		},
		ClusterSize: 3,
	}
}

func captains(n int) ledger.CrewState {
	return ledger.CrewState{ActiveCount: map[models.Rank]int{models.RankCaptain: n}}
}

func request(id, pilotID string, rank models.Rank, cat models.RequestCategory, typ string, start, end time.Time, status models.RequestStatus) models.PilotRequest {
	return models.PilotRequest{
		ID: id, PilotID: pilotID, Rank: rank, Category: cat, Type: typ,
		StartDate: start, EndDate: &end, Status: status,
	}
}

func leaveInput(pilotID string, start, end time.Time) models.RequestInput {
	return models.RequestInput{
		PilotID: pilotID, Rank: models.RankCaptain,
		Category: models.CategoryLeave, Type: "ANNUAL",
		StartDate: start, EndDate: &end,
	}
}

func hasConflict(res Result, typ ConflictType) bool {
	for _, c := range res.Conflicts {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func TestCheck_OverlapIsCriticalAndBlocks(t *testing.T) {
	snap := Snapshot{CrewState: captains(20)}
	snap.Approved = append(snap.Approved,
		request("r1", "p1", models.RankCaptain, models.CategoryLeave, "ANNUAL",
			date(2025, time.June, 1), date(2025, time.June, 10), models.StatusApproved))

	d := New(testConfig())
	res := d.Check(leaveInput("p1", date(2025, time.June, 8), date(2025, time.June, 12)), snap)

	if !hasConflict(res, ConflictOverlap) {
		t.Fatal("Expected OVERLAP conflict")
	}
	for _, c := range res.Conflicts {
		if c.Type == ConflictOverlap && c.Severity != SeverityCritical {
			t.Errorf("OVERLAP severity = %s, want CRITICAL", c.Severity)
		}
	}
	if res.CanApprove {
		t.Error("CanApprove = true with a CRITICAL conflict")
	}
}

func TestCheck_OverlapDifferentCategoryDoesNotFire(t *testing.T) {
	snap := Snapshot{CrewState: captains(20)}
	snap.Approved = append(snap.Approved,
		request("r1", "p1", models.RankCaptain, models.CategoryFlight, "PX100",
			date(2025, time.June, 1), date(2025, time.June, 10), models.StatusApproved))

	d := New(testConfig())
	res := d.Check(leaveInput("p1", date(2025, time.June, 8), date(2025, time.June, 12)), snap)

	if hasConflict(res, ConflictOverlap) {
		t.Error("Overlap should only consider the same category")
	}
	if !res.CanApprove {
		t.Error("CanApprove = false without a CRITICAL conflict")
	}
}

// An identical request still PENDING flags the new one MEDIUM but does not block it.
func TestCheck_DuplicateIsMediumNotBlocking(t *testing.T) {
	snap := Snapshot{CrewState: captains(20)}
	snap.Pending = append(snap.Pending,
		request("r1", "p1", models.RankCaptain, models.CategoryLeave, "ANNUAL",
			date(2025, time.June, 1), date(2025, time.June, 10), models.StatusPending))

	d := New(testConfig())
	res := d.Check(leaveInput("p1", date(2025, time.June, 1), date(2025, time.June, 10)), snap)

	if !hasConflict(res, ConflictDuplicate) {
		t.Fatal("Expected DUPLICATE conflict")
	}
	for _, c := range res.Conflicts {
		if c.Type == ConflictDuplicate && c.Severity != SeverityMedium {
			t.Errorf("DUPLICATE severity = %s, want MEDIUM", c.Severity)
		}
	}
	if !res.CanApprove {
		t.Error("A duplicate alone must not block creation")
	}
}

func TestCheck_CrewMinimumBoundaries(t *testing.T) {
	d := New(testConfig())
	in := leaveInput("p9", date(2025, time.June, 1), date(2025, time.June, 3))

	// 12 available -> 11 after approval: above minimum, no finding
	res := d.Check(in, Snapshot{CrewState: captains(12)})
	if hasConflict(res, ConflictCrewMinimum) || len(res.Warnings) != 0 {
		t.Error("Expected no crew-minimum finding above threshold")
	}

	// 11 available -> exactly 10 after: warning only, still approvable
	res = d.Check(in, Snapshot{CrewState: captains(11)})
	if hasConflict(res, ConflictCrewMinimum) {
		t.Error("At-threshold must be a warning, not a conflict")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Expected 1 warning at threshold, got %d", len(res.Warnings))
	}
	if !res.CanApprove {
		t.Error("At-threshold must remain approvable")
	}

	// 10 available -> 9 after: HIGH conflict, advisory not blocking
	res = d.Check(in, Snapshot{CrewState: captains(10)})
	if !hasConflict(res, ConflictCrewMinimum) {
		t.Fatal("Expected CREW_MINIMUM conflict below threshold")
	}
	for _, c := range res.Conflicts {
		if c.Type == ConflictCrewMinimum && c.Severity != SeverityHigh {
			t.Errorf("CREW_MINIMUM severity = %s, want HIGH", c.Severity)
		}
	}
	if !res.CanApprove {
		t.Error("HIGH is advisory; only CRITICAL blocks")
	}
}

// 15 captains, 4 on approved leave Jan 5-10, a new
// request Jan 7-9 projects to exactly the minimum.
func TestCheck_CrewImpactSnapshot(t *testing.T) {
	snap := Snapshot{CrewState: captains(15)}
	for i := 0; i < 4; i++ {
		snap.Approved = append(snap.Approved,
			request(fmt.Sprintf("r%d", i), fmt.Sprintf("p%d", i), models.RankCaptain, models.CategoryLeave, "ANNUAL",
				date(2025, time.January, 5), date(2025, time.January, 10), models.StatusApproved))
	}

	d := New(testConfig())
	res := d.Check(leaveInput("p9", date(2025, time.January, 7), date(2025, time.January, 9)), snap)

	if res.CrewImpact == nil {
		t.Fatal("Expected crew impact to be recorded")
	}
	if res.CrewImpact.RankBefore != 11 || res.CrewImpact.RankAfter != 10 {
		t.Errorf("CrewImpact = %+v, want before 11 after 10", res.CrewImpact)
	}
	if hasConflict(res, ConflictCrewMinimum) {
		t.Error("Projection to exactly the minimum must not be a conflict")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Expected the at-minimum warning, got %d warnings", len(res.Warnings))
	}
	if !res.CanApprove {
		t.Error("CanApprove = false, want true")
	}
}

func TestCheck_ClusterIsLow(t *testing.T) {
	snap := Snapshot{CrewState: captains(50)}
	for i := 0; i < 3; i++ {
		snap.Pending = append(snap.Pending,
			request(fmt.Sprintf("r%d", i), fmt.Sprintf("p%d", i), models.RankCaptain, models.CategoryLeave, "ANNUAL",
				date(2025, time.June, 1), date(2025, time.June, 10), models.StatusPending))
	}

	d := New(testConfig())
	res := d.Check(leaveInput("p9", date(2025, time.June, 5), date(2025, time.June, 6)), snap)

	if !hasConflict(res, ConflictCluster) {
		t.Fatal("Expected CLUSTER conflict at the configured size")
	}
	for _, c := range res.Conflicts {
		if c.Type == ConflictCluster && c.Severity != SeverityLow {
			t.Errorf("CLUSTER severity = %s, want LOW", c.Severity)
		}
	}
	if !res.CanApprove {
		t.Error("Cluster finding must not block")
	}
}

func TestCheck_FlagsForPersistence(t *testing.T) {
	snap := Snapshot{CrewState: captains(10)}
	snap.Pending = append(snap.Pending,
		request("r1", "p1", models.RankCaptain, models.CategoryLeave, "ANNUAL",
			date(2025, time.June, 1), date(2025, time.June, 10), models.StatusPending))

	d := New(testConfig())
	res := d.Check(leaveInput("p1", date(2025, time.June, 1), date(2025, time.June, 10)), snap)

	flags := res.Flags()
	want := map[string]bool{"DUPLICATE": false, "CREW_MINIMUM": false}
	for _, f := range flags {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for f, seen := range want {
		if !seen {
			t.Errorf("Flag %s missing from %v", f, flags)
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 0; i < len(order)-1; i++ {
		if !order[i].Less(order[i+1]) {
			t.Errorf("Expected %s < %s", order[i], order[i+1])
		}
	}
	if SeverityCritical.Less(SeverityLow) {
		t.Error("CRITICAL must outrank LOW")
	}
}

func TestBlockingPolicy(t *testing.T) {
	if !BlockingSeverities[SeverityCritical] {
		t.Error("CRITICAL must block")
	}
	for _, s := range []Severity{SeverityHigh, SeverityMedium, SeverityLow} {
		if BlockingSeverities[s] {
			t.Errorf("%s must not block", s)
		}
	}
}
