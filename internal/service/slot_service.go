package service

import (
	"context"
	"time"

	"github.com/campuskit/counselbook/internal/timeslot"
	"go.uber.org/zap"
)

// Defaults applied by the consumer surface when the caller specifies nothing
const (
	DefaultSlotDuration  = 60 * time.Minute
	DefaultWorkStartHour = 9
	DefaultWorkEndHour   = 17
)

// SlotService builds bookable slot grids for a department by subtracting
// the external calendar's busy periods from the working-hours grid.
type SlotService struct {
	availability *AvailabilityService
	location     *time.Location
	logger       *zap.Logger
}

// NewSlotService creates a slot discovery service. All grids are generated
// in the institutional location.
func NewSlotService(availability *AvailabilityService, location *time.Location, logger *zap.Logger) *SlotService {
	return &SlotService{
		availability: availability,
		location:     location,
		logger:       logger,
	}
}

// AvailableSlots returns the department's free candidate slots over
// [rangeStart, rangeEnd], ascending by start time. A candidate is dropped
// iff it overlaps a reported busy period; touching a busy period is fine.
func (s *SlotService) AvailableSlots(
	ctx context.Context,
	department string,
	rangeStart, rangeEnd time.Time,
	slotDuration time.Duration,
	workStartHour, workEndHour int,
) ([]timeslot.Slot, error) {
	if slotDuration <= 0 {
		return nil, ErrInvalidSlotDuration
	}
	if workStartHour < 0 || workStartHour > 23 {
		return nil, ErrInvalidWorkHours
	}
	if workEndHour < 0 || workEndHour > 24 {
		return nil, ErrInvalidWorkHours
	}
	if workStartHour >= workEndHour {
		return nil, ErrInvalidWorkHours
	}
	if !rangeEnd.After(rangeStart) {
		return nil, ErrInvalidTimeRange
	}

	busy, err := s.availability.BusyPeriods(ctx, department, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	grid := timeslot.Grid(rangeStart.In(s.location), rangeEnd.In(s.location), slotDuration, workStartHour, workEndHour)

	// Generation order is ascending, so filtering preserves the ordering
	available := make([]timeslot.Slot, 0, len(grid))
	for _, slot := range grid {
		conflict := false
		for _, b := range busy {
			if timeslot.Overlaps(slot.Start, slot.End, b.Start, b.End) {
				conflict = true
				break
			}
		}
		if !conflict {
			available = append(available, slot)
		}
	}

	s.logger.Debug("Slot discovery completed",
		zap.String("department", department),
		zap.Int("candidates", len(grid)),
		zap.Int("busy_periods", len(busy)),
		zap.Int("available", len(available)),
	)

	return available, nil
}
