package roster

import (
	"fmt"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

// PeriodDays is the fixed length of a roster period.
const PeriodDays = 28

// epoch anchors the rolling 28-day grid. It is the published start of
// RP1/2025; every other period boundary follows from it, so codes stay
// stable without persisting any calendar state.
var epoch = time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)

// BlackoutWindow is a month/day range (inclusive) during which roster
// periods are excluded from renewal planning. It may wrap the year
// boundary, e.g. December 1 through January 31.
type BlackoutWindow struct {
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
}

// DefaultBlackout is the operator's holiday freeze.
var DefaultBlackout = BlackoutWindow{
	StartMonth: time.December, StartDay: 1,
	EndMonth: time.January, EndDay: 31,
}

// Calendar maps dates to roster periods. Pure and stateless.
type Calendar struct {
	blackout BlackoutWindow
}

// New returns a calendar using the given blackout window.
func New(blackout BlackoutWindow) *Calendar {
	return &Calendar{blackout: blackout}
}

// Day truncates t to midnight UTC. All period math works on whole days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PeriodFor returns the roster period containing date.
func (c *Calendar) PeriodFor(date time.Time) models.RosterPeriod {
	idx := periodIndex(Day(date))
	return c.buildPeriod(idx)
}

// PeriodsForYear returns, in order, every roster period whose start date
// falls in the given year, coded RP1/yyyy upward by position.
func (c *Calendar) PeriodsForYear(year int) ([]models.RosterPeriod, error) {
	if year < 1970 || year > 2100 {
		return nil, &models.ValidationError{Field: "year", Reason: fmt.Sprintf("year %d out of range", year)}
	}

	first := firstIndexOfYear(year)
	var periods []models.RosterPeriod
	for idx := first; ; idx++ {
		p := c.buildPeriod(idx)
		if p.StartDate.Year() != year {
			break
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// IsExcluded reports whether the period overlaps the blackout window.
func (c *Calendar) IsExcluded(p models.RosterPeriod) bool {
	return c.overlapsBlackout(p.StartDate, p.EndDate)
}

func (c *Calendar) buildPeriod(idx int) models.RosterPeriod {
	start := epoch.AddDate(0, 0, idx*PeriodDays)
	end := start.AddDate(0, 0, PeriodDays-1)
	ordinal := idx - firstIndexOfYear(start.Year()) + 1
	p := models.RosterPeriod{
		Code:      fmt.Sprintf("RP%d/%d", ordinal, start.Year()),
		StartDate: start,
		EndDate:   end,
	}
	p.Excluded = c.overlapsBlackout(start, end)
	return p
}

// periodIndex is the signed count of whole periods between the epoch and
// the period containing d.
func periodIndex(d time.Time) int {
	days := int(d.Sub(epoch).Hours() / 24)
	if days < 0 {
		// floor division for dates before the epoch
		return -((-days + PeriodDays - 1) / PeriodDays)
	}
	return days / PeriodDays
}

// firstIndexOfYear is the index of the first period starting in year.
func firstIndexOfYear(year int) int {
	idx := periodIndex(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	for epoch.AddDate(0, 0, idx*PeriodDays).Year() < year {
		idx++
	}
	return idx
}

func (c *Calendar) overlapsBlackout(start, end time.Time) bool {
	// The window may wrap the year boundary, so materialize an instance for
	// each year the period touches plus the one before it.
	for y := start.Year() - 1; y <= end.Year(); y++ {
		bStart := time.Date(y, c.blackout.StartMonth, c.blackout.StartDay, 0, 0, 0, 0, time.UTC)
		bEnd := time.Date(y, c.blackout.EndMonth, c.blackout.EndDay, 0, 0, 0, 0, time.UTC)
		if bEnd.Before(bStart) {
			bEnd = time.Date(y+1, c.blackout.EndMonth, c.blackout.EndDay, 0, 0, 0, 0, time.UTC)
		}
		if !start.After(bEnd) && !end.Before(bStart) {
			return true
		}
	}
	return false
}
