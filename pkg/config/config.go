// Package config reads the operator-tunable engine thresholds from the
// environment. Defaults match the operator's current manuals; nothing here
// is hardcoded into the engine packages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/roster"
)

// Engine carries every threshold the detector and planner consume.
type Engine struct {
	CrewMinimums   map[models.Rank]int
	ClusterSize    int
	PeriodCapacity int
	Blackout       roster.BlackoutWindow
}

// LoadEngine builds the engine configuration from environment variables.
func LoadEngine() Engine {
	return Engine{
		CrewMinimums: map[models.Rank]int{
			models.RankCaptain:      getEnvInt("CREW_MIN_CAPTAIN", 10),
			models.RankFirstOfficer: getEnvInt("CREW_MIN_FIRST_OFFICER", 10),
		},
		ClusterSize:    getEnvInt("CLUSTER_SIZE", 3),
		PeriodCapacity: periodCapacity(),
		Blackout:       blackoutWindow(),
	}
}

// periodCapacity comes from PERIOD_CAPACITY, or failing that is derived from
// the fleet size (one renewal slot per ten airframes per period).
func periodCapacity() int {
	if v := getEnvInt("PERIOD_CAPACITY", 0); v > 0 {
		return v
	}
	fleet := getEnvInt("FLEET_SIZE", 100)
	capacity := fleet / 10
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

func blackoutWindow() roster.BlackoutWindow {
	w := roster.DefaultBlackout
	if m, d, ok := parseMonthDay(os.Getenv("BLACKOUT_START")); ok {
		w.StartMonth, w.StartDay = m, d
	}
	if m, d, ok := parseMonthDay(os.Getenv("BLACKOUT_END")); ok {
		w.EndMonth, w.EndDay = m, d
	}
	return w
}

// parseMonthDay accepts "MM-DD".
func parseMonthDay(s string) (time.Month, int, bool) {
	if s == "" {
		return 0, 0, false
	}
	var m, d int
	if _, err := fmt.Sscanf(s, "%d-%d", &m, &d); err != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, false
	}
	return time.Month(m), d, true
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
