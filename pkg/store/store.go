// Package store is the engine's read/write contract against the records
// database. It loads crew snapshots for conflict checks and persists
// requests and planned renewals; everything else about the records app's
// storage stays external.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/database"
	"github.com/flightopsio/crew-capacity-api-go/pkg/detector"
	"github.com/flightopsio/crew-capacity-api-go/pkg/ledger"
	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/planner"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// overlapCond matches rows whose inclusive day range intersects [start, end].
// A NULL end_date means single-day.
const overlapCond = "start_date <= ? AND COALESCE(end_date, start_date) >= ?"

// GetPilot returns the pilot or nil when no such row exists.
func (s *Store) GetPilot(ctx context.Context, id string) (*models.Pilot, error) {
	var row database.Pilot
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get pilot %s: %w", id, err)
	}
	p := pilotFromRow(row)
	return &p, nil
}

// PilotsByID loads the pilots behind a set of requests, keyed by id.
func (s *Store) PilotsByID(ctx context.Context, ids []string) (map[string]models.Pilot, error) {
	var rows []database.Pilot
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: load pilots: %w", err)
	}
	out := make(map[string]models.Pilot, len(rows))
	for _, row := range rows {
		out[row.ID] = pilotFromRow(row)
	}
	return out, nil
}

// LoadSnapshot reads, in one logical snapshot, everything a conflict check
// needs: the rank's active headcount plus pending and approved requests that
// either share the rank and overlap the range or belong to the pilot.
func (s *Store) LoadSnapshot(ctx context.Context, pilotID string, rank models.Rank, start, end time.Time) (detector.Snapshot, error) {
	var snap detector.Snapshot

	var active int64
	if err := s.db.WithContext(ctx).Model(&database.Pilot{}).
		Where("rank = ? AND active = ?", string(rank), true).
		Count(&active).Error; err != nil {
		return snap, fmt.Errorf("store: count active %s: %w", rank, err)
	}
	snap.CrewState = ledger.CrewState{ActiveCount: map[models.Rank]int{rank: int(active)}}

	scope := s.db.WithContext(ctx).
		Where("pilot_id = ? OR (rank = ? AND "+overlapCond+")", pilotID, string(rank), end, start)

	var approved []database.PilotRequest
	if err := scope.Session(&gorm.Session{}).
		Where("status = ?", string(models.StatusApproved)).
		Find(&approved).Error; err != nil {
		return snap, fmt.Errorf("store: load approved requests: %w", err)
	}
	var pending []database.PilotRequest
	if err := scope.Session(&gorm.Session{}).
		Where("status = ?", string(models.StatusPending)).
		Find(&pending).Error; err != nil {
		return snap, fmt.Errorf("store: load pending requests: %w", err)
	}

	snap.Approved = requestsFromRows(approved)
	snap.Pending = requestsFromRows(pending)
	return snap, nil
}

// CreateRequest persists a new PENDING request with its conflict flags and
// availability impact.
func (s *Store) CreateRequest(ctx context.Context, req models.PilotRequest) (models.PilotRequest, error) {
	row := requestToRow(req)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.PilotRequest{}, fmt.Errorf("store: create request: %w", err)
	}
	return requestFromRow(row), nil
}

// PendingCompeting returns the PENDING requests of a rank overlapping the
// window, the input set for the priority resolver.
func (s *Store) PendingCompeting(ctx context.Context, rank models.Rank, start, end time.Time) ([]models.PilotRequest, error) {
	var rows []database.PilotRequest
	err := s.db.WithContext(ctx).
		Where("rank = ? AND status = ? AND "+overlapCond, string(rank), string(models.StatusPending), end, start).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: load competing requests: %w", err)
	}
	return requestsFromRows(rows), nil
}

// RenewalsForYear returns renewals whose expiry falls within the planning
// horizon of the year: unassigned or previously planned ones as candidates,
// confirmed ones separately as fixed occupancy. The horizon runs through
// January of the following year so deadlines just past year-end can still be
// packed into the year's final periods.
func (s *Store) RenewalsForYear(ctx context.Context, year int) (candidates, confirmed []models.CertificationRenewal, err error) {
	horizonStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	horizonEnd := time.Date(year+1, time.February, 1, 0, 0, 0, 0, time.UTC)

	var rows []database.CertificationRenewal
	err = s.db.WithContext(ctx).
		Where("original_expiry_date >= ? AND original_expiry_date < ?", horizonStart, horizonEnd).
		Order("original_expiry_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("store: load renewals for %d: %w", year, err)
	}

	for _, row := range rows {
		r := renewalFromRow(row)
		if r.Status == models.RenewalConfirmed {
			confirmed = append(confirmed, r)
		} else {
			candidates = append(candidates, r)
		}
	}
	return candidates, confirmed, nil
}

// ApplyPlan makes regeneration idempotent: inside one transaction it clears
// every PLANNED (never CONFIRMED) assignment pointing at the year's periods,
// then writes the new plan's assignments.
func (s *Store) ApplyPlan(ctx context.Context, year int, sched planner.Schedule) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset := map[string]interface{}{
			"status":               string(models.RenewalUnassigned),
			"assigned_period_code": nil,
			"planned_renewal_date": nil,
		}
		if err := tx.Model(&database.CertificationRenewal{}).
			Where("status = ? AND assigned_period_code LIKE ?", string(models.RenewalPlanned), fmt.Sprintf("%%/%d", year)).
			Updates(reset).Error; err != nil {
			return err
		}

		for i := range sched.Renewals {
			r := &sched.Renewals[i]
			if r.Status != models.RenewalPlanned {
				continue
			}
			update := map[string]interface{}{
				"status":               string(models.RenewalPlanned),
				"assigned_period_code": r.AssignedPeriodCode,
				"planned_renewal_date": r.PlannedRenewalDate,
			}
			if err := tx.Model(&database.CertificationRenewal{}).
				Where("id = ?", r.ID).Updates(update).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: apply plan for %d: %w", year, err)
	}
	return nil
}

// PlannedForYear returns the persisted assignments pointing at the year's periods.
func (s *Store) PlannedForYear(ctx context.Context, year int) ([]models.CertificationRenewal, error) {
	var rows []database.CertificationRenewal
	err := s.db.WithContext(ctx).
		Where("assigned_period_code LIKE ?", fmt.Sprintf("%%/%d", year)).
		Order("original_expiry_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: load plan for %d: %w", year, err)
	}
	out := make([]models.CertificationRenewal, 0, len(rows))
	for _, row := range rows {
		out = append(out, renewalFromRow(row))
	}
	return out, nil
}

func pilotFromRow(row database.Pilot) models.Pilot {
	return models.Pilot{
		ID:              row.ID,
		Rank:            models.Rank(row.Rank),
		SeniorityNumber: row.SeniorityNumber,
		Active:          row.Active,
	}
}

func requestFromRow(row database.PilotRequest) models.PilotRequest {
	return models.PilotRequest{
		ID:                 row.ID,
		PilotID:            row.PilotID,
		Rank:               models.Rank(row.Rank),
		Category:           models.RequestCategory(row.Category),
		Type:               row.Type,
		StartDate:          row.StartDate,
		EndDate:            row.EndDate,
		Status:             models.RequestStatus(row.Status),
		ConflictFlags:      row.ConflictFlags,
		AvailabilityImpact: row.AvailabilityImpact,
		CreatedAt:          row.CreatedAt,
	}
}

func requestsFromRows(rows []database.PilotRequest) []models.PilotRequest {
	out := make([]models.PilotRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, requestFromRow(row))
	}
	return out
}

func requestToRow(req models.PilotRequest) database.PilotRequest {
	return database.PilotRequest{
		ID:                 req.ID,
		PilotID:            req.PilotID,
		Rank:               string(req.Rank),
		Category:           string(req.Category),
		Type:               req.Type,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Status:             string(req.Status),
		ConflictFlags:      req.ConflictFlags,
		AvailabilityImpact: req.AvailabilityImpact,
	}
}

func renewalFromRow(row database.CertificationRenewal) models.CertificationRenewal {
	return models.CertificationRenewal{
		ID:                 row.ID,
		PilotID:            row.PilotID,
		CheckType:          row.CheckType,
		OriginalExpiryDate: row.OriginalExpiryDate,
		PlannedRenewalDate: row.PlannedRenewalDate,
		AssignedPeriodCode: row.AssignedPeriodCode,
		Status:             models.RenewalStatus(row.Status),
	}
}
