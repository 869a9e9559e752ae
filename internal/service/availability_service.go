package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/counselbook/internal/calendar"
	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository"
	"go.uber.org/zap"
)

// AppointmentStore is the persistence contract for confirmed appointments
type AppointmentStore interface {
	Create(ctx context.Context, tx repository.Tx, appt *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetByRequestID(ctx context.Context, requestID int64) (*model.Appointment, error)
	FindOverlapping(ctx context.Context, tx repository.Tx, counselorID int64, start, end time.Time, excludeID int64) ([]*model.Appointment, error)
	SetCalendarEventID(ctx context.Context, tx repository.Tx, id int64, eventID string) error
	Cancel(ctx context.Context, id int64, by model.Role) error
	ListByCounselorRange(ctx context.Context, counselorID int64, from, to time.Time) ([]*model.Appointment, error)
}

// Calendar is the external department calendar contract
type Calendar interface {
	CheckAvailability(ctx context.Context, department string, start, end time.Time) (bool, error)
	BusyPeriods(ctx context.Context, department string, start, end time.Time) ([]calendar.BusyPeriod, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.Event, error)
}

// AvailabilityService answers "is this interval free" against two
// independent sources: our own confirmed appointments for the counselor,
// and the department's external calendar. Both checks are kept on purpose;
// the calendar may carry manually added events we know nothing about.
type AvailabilityService struct {
	appointments AppointmentStore
	calendar     Calendar
	logger       *zap.Logger
}

func NewAvailabilityService(appointments AppointmentStore, cal Calendar, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		appointments: appointments,
		calendar:     cal,
		logger:       logger,
	}
}

// IsTimeSlotAvailable reports whether no confirmed, non-cancelled
// appointment of the counselor overlaps [start, end). Pass a non-nil tx to
// run the check inside an open transaction; excludeAppointmentID 0 means
// no exclusion.
func (s *AvailabilityService) IsTimeSlotAvailable(
	ctx context.Context,
	tx repository.Tx,
	counselorID int64,
	start, end time.Time,
	excludeAppointmentID int64,
) (bool, error) {
	overlapping, err := s.appointments.FindOverlapping(ctx, tx, counselorID, start, end, excludeAppointmentID)
	if err != nil {
		return false, fmt.Errorf("check counselor availability: %w", err)
	}
	return len(overlapping) == 0, nil
}

// CheckExternalAvailability asks the department calendar whether the
// interval is free. A failed query fails open: the slot is reported
// available and a warning is logged. Finalization applies the opposite
// policy and aborts.
func (s *AvailabilityService) CheckExternalAvailability(ctx context.Context, department string, start, end time.Time) bool {
	available, err := s.calendar.CheckAvailability(ctx, department, start, end)
	if err != nil {
		s.logger.Warn("External calendar query failed, assuming available",
			zap.String("department", department),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err),
		)
		return true
	}
	return available
}

// BusyPeriods lists the department's busy intervals. Unlike the boolean
// pre-check, a query failure here propagates to the caller.
func (s *AvailabilityService) BusyPeriods(ctx context.Context, department string, start, end time.Time) ([]calendar.BusyPeriod, error) {
	busy, err := s.calendar.BusyPeriods(ctx, department, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalCalendarQueryFailed, err)
	}
	return busy, nil
}
