package handlers

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/planner"
	"github.com/gin-gonic/gin"
)

// GeneratePlan runs the renewal capacity planner for a year and persists the
// resulting PLANNED assignments. Regeneration is idempotent: prior PLANNED
// (never CONFIRMED) assignments for the year are discarded and the pack is
// rerun from scratch. Two simultaneous regenerations for one year are
// refused rather than queued.
func (h *Handler) GeneratePlan(c *gin.Context) {
	year, ok := h.yearParam(c)
	if !ok {
		return
	}

	lock, _ := h.planLocks.LoadOrStore(year, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "plan generation already running for this year"})
		return
	}
	defer mu.Unlock()

	periods, err := h.Calendar.PeriodsForYear(year)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	candidates, confirmed, err := h.Store.RenewalsForYear(c.Request.Context(), year)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	sched, err := planner.Generate(planner.Input{
		Year:      year,
		Renewals:  candidates,
		Periods:   periods,
		Confirmed: confirmed,
		Capacity:  h.Config.PeriodCapacity,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if err := h.Store.ApplyPlan(c.Request.Context(), year, sched); err != nil {
		respondEngineError(c, err)
		return
	}

	h.RecordUsage(c, 0, 1)
	c.JSON(http.StatusOK, sched)
}

// GetPlan returns the persisted assignments for a year with a recomputed
// per-period utilization report for downstream reporting/export.
func (h *Handler) GetPlan(c *gin.Context) {
	year, ok := h.yearParam(c)
	if !ok {
		return
	}

	periods, err := h.Calendar.PeriodsForYear(year)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	planned, err := h.Store.PlannedForYear(c.Request.Context(), year)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	assignments := make(map[string][]string)
	assigned := make(map[string]int)
	for _, r := range planned {
		if r.AssignedPeriodCode == nil {
			continue
		}
		assignments[*r.AssignedPeriodCode] = append(assignments[*r.AssignedPeriodCode], r.ID)
		assigned[*r.AssignedPeriodCode]++
	}

	reports := make([]planner.PeriodReport, 0, len(periods))
	for _, p := range periods {
		report := planner.PeriodReport{Code: p.Code, AssignedCount: assigned[p.Code], Capacity: h.Config.PeriodCapacity}
		if p.Excluded {
			report.Classification = planner.ClassExcluded
		} else {
			report.Utilization = float64(assigned[p.Code]) / float64(h.Config.PeriodCapacity)
			report.Classification = planner.Classify(report.Utilization)
		}
		reports = append(reports, report)
	}

	h.RecordUsage(c, 0, 1)
	c.JSON(http.StatusOK, gin.H{
		"year":               year,
		"period_assignments": assignments,
		"periods":            reports,
		"renewals":           planned,
	})
}

func (h *Handler) yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondEngineError(c, &models.ValidationError{Field: "year", Reason: "must be an integer"})
		return 0, false
	}
	return year, true
}
