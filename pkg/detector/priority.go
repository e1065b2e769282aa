package detector

import (
	"math"
	"sort"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
)

// RankBySeniority orders competing pending requests most-senior first
// (ascending seniority number). Ties, which should not occur since seniority
// numbers are unique, fall back to request creation time ascending. The
// result is a recommendation only; it never changes request status.
func RankBySeniority(requests []models.PilotRequest, pilots map[string]models.Pilot) []models.PilotRequest {
	ranked := make([]models.PilotRequest, len(requests))
	copy(ranked, requests)

	seniority := func(r *models.PilotRequest) int {
		if p, ok := pilots[r.PilotID]; ok {
			return p.SeniorityNumber
		}
		return math.MaxInt // unknown pilots sort last
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := seniority(&ranked[i]), seniority(&ranked[j])
		if si != sj {
			return si < sj
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})
	return ranked
}
