package planner

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func period(code string, start, end time.Time, excluded bool) models.RosterPeriod {
	return models.RosterPeriod{Code: code, StartDate: start, EndDate: end, Excluded: excluded}
}

func renewal(id string, expiry time.Time) models.CertificationRenewal {
	return models.CertificationRenewal{
		ID: id, PilotID: "pilot-" + id, CheckType: "LPC",
		OriginalExpiryDate: expiry, Status: models.RenewalUnassigned,
	}
}

// quarters returns four clean 28-day periods through spring 2026.
func quarters() []models.RosterPeriod {
	return []models.RosterPeriod{
		period("RP1/2026", date(2026, time.January, 10), date(2026, time.February, 6), false),
		period("RP2/2026", date(2026, time.February, 7), date(2026, time.March, 6), false),
		period("RP3/2026", date(2026, time.March, 7), date(2026, time.April, 3), false),
		period("RP4/2026", date(2026, time.April, 4), date(2026, time.May, 1), false),
	}
}

func TestGenerate_AssignsBeforeDeadline(t *testing.T) {
	in := Input{
		Year:     2026,
		Periods:  quarters(),
		Capacity: 5,
		Renewals: []models.CertificationRenewal{
			renewal("a", date(2026, time.March, 1)), // only RP1 ends before this
			renewal("b", date(2026, time.June, 1)),
		},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for _, r := range sched.Renewals {
		if r.Status != models.RenewalPlanned {
			t.Errorf("Renewal %s not planned", r.ID)
			continue
		}
		var assignedEnd time.Time
		for _, p := range in.Periods {
			if p.Code == *r.AssignedPeriodCode {
				assignedEnd = p.EndDate
			}
		}
		if !assignedEnd.Before(r.OriginalExpiryDate) {
			t.Errorf("Renewal %s assigned to %s ending on/after its expiry", r.ID, *r.AssignedPeriodCode)
		}
	}
	if len(sched.Summary.Unschedulable) != 0 {
		t.Errorf("Expected no unschedulable renewals, got %d", len(sched.Summary.Unschedulable))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	in := Input{Year: 2026, Periods: quarters(), Capacity: 3}
	for i := 0; i < 10; i++ {
		in.Renewals = append(in.Renewals, renewal(fmt.Sprintf("r%02d", i), date(2026, time.May, 1)))
	}

	first, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	second, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if !reflect.DeepEqual(first.PeriodAssignments, second.PeriodAssignments) {
		t.Error("PeriodAssignments differ between identical runs")
	}
	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Error("Summary differs between identical runs")
	}
}

func TestGenerate_NeverAssignsExcluded(t *testing.T) {
	periods := quarters()
	periods[0].Excluded = true
	periods[1].Excluded = true

	in := Input{Year: 2026, Periods: periods, Capacity: 2}
	for i := 0; i < 6; i++ {
		in.Renewals = append(in.Renewals, renewal(fmt.Sprintf("r%d", i), date(2026, time.June, 1)))
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for _, code := range []string{"RP1/2026", "RP2/2026"} {
		if len(sched.PeriodAssignments[code]) != 0 {
			t.Errorf("Excluded period %s received assignments", code)
		}
	}
	for _, report := range sched.Summary.Periods {
		if (report.Code == "RP1/2026" || report.Code == "RP2/2026") && report.Classification != ClassExcluded {
			t.Errorf("Period %s classified %q, want %q", report.Code, report.Classification, ClassExcluded)
		}
	}
	// 6 renewals, 4 usable slots across RP3+RP4
	if len(sched.Summary.Unschedulable) != 2 {
		t.Errorf("Expected 2 unschedulable renewals, got %d", len(sched.Summary.Unschedulable))
	}
}

// A tight deadline must still go to the only qualifying period even when that
// period is nearly full, and the period then reports high-risk.
func TestGenerate_TightDeadlinePrefersOnlyValidPeriod(t *testing.T) {
	periods := []models.RosterPeriod{
		period("RP3/2026", date(2026, time.February, 1), date(2026, time.February, 28), false),
		period("RP4/2026", date(2026, time.March, 1), date(2026, time.March, 28), false),
	}

	// RP3 already 90% utilized by confirmed renewals
	capacity := 10
	var confirmed []models.CertificationRenewal
	for i := 0; i < 9; i++ {
		c := renewal(fmt.Sprintf("c%d", i), date(2026, time.August, 1))
		code := "RP3/2026"
		c.AssignedPeriodCode = &code
		c.Status = models.RenewalConfirmed
		confirmed = append(confirmed, c)
	}

	in := Input{
		Year:      2026,
		Periods:   periods,
		Capacity:  capacity,
		Confirmed: confirmed,
		Renewals:  []models.CertificationRenewal{renewal("due-march", date(2026, time.March, 1))},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	got := sched.Renewals[0]
	if got.Status != models.RenewalPlanned || got.AssignedPeriodCode == nil || *got.AssignedPeriodCode != "RP3/2026" {
		t.Fatalf("Renewal assigned to %v, want RP3/2026", got.AssignedPeriodCode)
	}

	found := false
	for _, code := range sched.Summary.HighRiskPeriods {
		if code == "RP3/2026" {
			found = true
		}
	}
	if !found {
		t.Error("RP3/2026 should be reported high-risk at full utilization")
	}
}

func TestGenerate_UnschedulableKeptNotDropped(t *testing.T) {
	in := Input{
		Year:     2026,
		Periods:  quarters(),
		Capacity: 5,
		Renewals: []models.CertificationRenewal{
			// Expires before any period ends
			renewal("hopeless", date(2026, time.January, 20)),
			renewal("fine", date(2026, time.June, 1)),
		},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(sched.Summary.Unschedulable) != 1 || sched.Summary.Unschedulable[0].ID != "hopeless" {
		t.Fatalf("Expected exactly the hopeless renewal in unschedulable, got %+v", sched.Summary.Unschedulable)
	}
	if sched.Summary.Unschedulable[0].Status != models.RenewalUnassigned {
		t.Error("Unschedulable renewals must stay unassigned, not planned")
	}
	// The rest of the batch continues
	for _, r := range sched.Renewals {
		if r.ID == "fine" && r.Status != models.RenewalPlanned {
			t.Error("Schedulable renewal must still be planned")
		}
	}
}

// A candidate that was PLANNED by an earlier run but can no longer meet its
// deadline must come back fully cleared, or regeneration would re-persist the
// stale period code.
func TestGenerate_ClearsStaleAssignmentWhenUnschedulable(t *testing.T) {
	stale := renewal("slipped", date(2026, time.January, 20)) // before any period ends
	code := "RP9/2026"
	plannedDate := date(2026, time.September, 1)
	stale.Status = models.RenewalPlanned
	stale.AssignedPeriodCode = &code
	stale.PlannedRenewalDate = &plannedDate

	in := Input{
		Year:     2026,
		Periods:  quarters(),
		Capacity: 5,
		Renewals: []models.CertificationRenewal{stale},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(sched.Summary.Unschedulable) != 1 {
		t.Fatalf("Expected 1 unschedulable renewal, got %d", len(sched.Summary.Unschedulable))
	}
	for _, r := range []models.CertificationRenewal{sched.Renewals[0], sched.Summary.Unschedulable[0]} {
		if r.Status != models.RenewalUnassigned {
			t.Errorf("Renewal %s status = %s, want %s", r.ID, r.Status, models.RenewalUnassigned)
		}
		if r.AssignedPeriodCode != nil {
			t.Errorf("Renewal %s kept stale period code %s", r.ID, *r.AssignedPeriodCode)
		}
		if r.PlannedRenewalDate != nil {
			t.Errorf("Renewal %s kept stale planned date %v", r.ID, *r.PlannedRenewalDate)
		}
	}
}

// A renewal confirmed into a period before that period became excluded is
// prior state; regeneration must plan around it, not abort.
func TestGenerate_ToleratesConfirmedInNowExcludedPeriod(t *testing.T) {
	periods := quarters()
	periods[3].Excluded = true

	held := renewal("held", date(2026, time.August, 1))
	code := "RP4/2026"
	held.Status = models.RenewalConfirmed
	held.AssignedPeriodCode = &code

	in := Input{
		Year:      2026,
		Periods:   periods,
		Capacity:  5,
		Confirmed: []models.CertificationRenewal{held},
		Renewals:  []models.CertificationRenewal{renewal("fresh", date(2026, time.June, 1))},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(sched.PeriodAssignments["RP4/2026"]) != 0 {
		t.Error("Excluded period received a new assignment")
	}
	if got := sched.Renewals[0]; got.Status != models.RenewalPlanned || got.AssignedPeriodCode == nil || *got.AssignedPeriodCode == "RP4/2026" {
		t.Errorf("Fresh renewal not planned into a usable period: %+v", got)
	}
}

func TestGenerate_LoadBalancesAcrossPeriods(t *testing.T) {
	in := Input{Year: 2026, Periods: quarters(), Capacity: 10}
	for i := 0; i < 8; i++ {
		in.Renewals = append(in.Renewals, renewal(fmt.Sprintf("r%d", i), date(2026, time.June, 1)))
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// All four periods qualify for every renewal; greedy least-loaded spreads evenly
	for _, p := range quarters() {
		if got := len(sched.PeriodAssignments[p.Code]); got != 2 {
			t.Errorf("Period %s has %d assignments, want 2", p.Code, got)
		}
	}
}

func TestGenerate_EarliestDeadlineFirst(t *testing.T) {
	in := Input{
		Year:     2026,
		Periods:  quarters()[:1], // single period, one slot
		Capacity: 1,
		Renewals: []models.CertificationRenewal{
			renewal("later", date(2026, time.June, 1)),
			renewal("sooner", date(2026, time.February, 10)),
		},
	}

	sched, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if got := sched.PeriodAssignments["RP1/2026"]; len(got) != 1 || got[0] != "sooner" {
		t.Errorf("Expected the earlier deadline to win the last slot, got %v", got)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{0.0, ClassGood},
		{0.60, ClassGood},
		{0.6000001, ClassMedium},
		{0.80, ClassMedium},
		{0.8000001, ClassHighRisk},
		{1.0, ClassHighRisk},
	}
	for _, tc := range cases {
		if got := Classify(tc.ratio); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.ratio, got, tc.want)
		}
	}
}

func TestGenerate_ValidatesInput(t *testing.T) {
	if _, err := Generate(Input{Year: 2026, Periods: quarters(), Capacity: 0}); err == nil {
		t.Error("Expected error for zero capacity")
	}
	if _, err := Generate(Input{Year: 2026, Capacity: 5}); err == nil {
		t.Error("Expected error for missing periods")
	}
}
