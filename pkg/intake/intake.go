// Package intake runs the request submission path: validate, serialize
// against concurrent writers of the same rank and window, evaluate
// conflicts, and persist when not blocked.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/detector"
	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/roster"
	"github.com/flightopsio/crew-capacity-api-go/pkg/store"
	"github.com/google/uuid"
)

type Service struct {
	store    *store.Store
	detector *detector.Detector
	locks    *store.RangeLock
}

func New(st *store.Store, det *detector.Detector) *Service {
	return &Service{store: st, detector: det, locks: store.NewRangeLock()}
}

// Check evaluates a request without writing anything. Validation failures
// come back as errors; conflicts come back inside the result.
func (s *Service) Check(ctx context.Context, in models.RequestInput) (detector.Result, error) {
	if err := s.validate(ctx, &in); err != nil {
		return detector.Result{}, err
	}
	snap, err := s.store.LoadSnapshot(ctx, in.PilotID, in.Rank, in.StartDate, in.End())
	if err != nil {
		return detector.Result{}, err
	}
	return s.detector.Check(in, snap), nil
}

// Submit atomically checks and creates. The read and the insert hold the
// rank's range lock together, so two concurrent submissions for the same
// rank over intersecting dates cannot both pass the crew-minimum check on
// stale reads. A blocked request returns a nil row with the conflicts; the
// caller persists nothing.
func (s *Service) Submit(ctx context.Context, in models.RequestInput) (*models.PilotRequest, detector.Result, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, detector.Result{}, err
	}

	start, end := roster.Day(in.StartDate), roster.Day(in.End())
	s.locks.Acquire(in.Rank, start, end)
	defer s.locks.Release(in.Rank, start, end)

	snap, err := s.store.LoadSnapshot(ctx, in.PilotID, in.Rank, start, end)
	if err != nil {
		return nil, detector.Result{}, err
	}

	res := s.detector.Check(in, snap)
	if !res.CanApprove {
		return nil, res, nil
	}

	var endDate *time.Time
	if in.EndDate != nil {
		endDate = &end
	}
	created, err := s.store.CreateRequest(ctx, models.PilotRequest{
		ID:                 uuid.NewString(),
		PilotID:            in.PilotID,
		Rank:               in.Rank,
		Category:           in.Category,
		Type:               in.Type,
		StartDate:          start,
		EndDate:            endDate,
		Status:             models.StatusPending,
		ConflictFlags:      res.Flags(),
		AvailabilityImpact: res.CrewImpact,
	})
	if err != nil {
		return nil, detector.Result{}, err
	}
	return &created, res, nil
}

// validate enforces structural rules plus pilot existence and rank
// consistency before any conflict evaluation happens.
func (s *Service) validate(ctx context.Context, in *models.RequestInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	pilot, err := s.store.GetPilot(ctx, in.PilotID)
	if err != nil {
		return err
	}
	if pilot == nil {
		return &models.ValidationError{Field: "pilot_id", Reason: fmt.Sprintf("unknown pilot %s", in.PilotID)}
	}
	if !pilot.Active {
		return &models.ValidationError{Field: "pilot_id", Reason: "pilot is not active"}
	}
	if pilot.Rank != in.Rank {
		return &models.ValidationError{Field: "rank", Reason: fmt.Sprintf("pilot %s holds rank %s", in.PilotID, pilot.Rank)}
	}
	return nil
}
