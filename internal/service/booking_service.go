package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/counselbook/internal/calendar"
	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository"
	"go.uber.org/zap"
)

// RequestStore is the persistence contract for appointment requests
type RequestStore interface {
	Create(ctx context.Context, req *model.AppointmentRequest) error
	GetByID(ctx context.Context, id int64) (*model.AppointmentRequest, error)
	FindPendingDuplicate(ctx context.Context, createdBy model.Role, studentID, counselorID int64, start, end time.Time, agenda model.Agenda) (*model.AppointmentRequest, error)
	UpdateResponse(ctx context.Context, tx repository.Tx, id int64, role model.Role, response model.Response, status model.RequestStatus, finalizedAt *time.Time) error
	ListByParticipant(ctx context.Context, userID int64, role model.Role) ([]*model.AppointmentRequest, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Directory resolves participants to active directory records
type Directory interface {
	GetStudent(ctx context.Context, id int64) (*model.User, error)
	GetCounselor(ctx context.Context, id int64) (*model.User, error)
}

// TxManager opens the transaction scope used by finalization
type TxManager interface {
	Begin(ctx context.Context) (repository.Tx, error)
}

// BookingService runs the appointment request lifecycle: either party
// proposes a slot, the counterpart accepts or declines, and on mutual
// acceptance the confirmed appointment plus its external calendar event are
// created in one transaction.
type BookingService struct {
	txm          TxManager
	requests     RequestStore
	appointments AppointmentStore
	directory    Directory
	calendar     Calendar
	availability *AvailabilityService
	logger       *zap.Logger
}

func NewBookingService(
	txm TxManager,
	requests RequestStore,
	appointments AppointmentStore,
	directory Directory,
	cal Calendar,
	availability *AvailabilityService,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		txm:          txm,
		requests:     requests,
		appointments: appointments,
		directory:    directory,
		calendar:     cal,
		availability: availability,
		logger:       logger,
	}
}

// Propose creates an appointment request from either party. The initiator's
// own response is pre-set to accepted, so only the counterpart still has to
// answer.
func (s *BookingService) Propose(
	ctx context.Context,
	initiatorID int64,
	initiatorRole model.Role,
	agenda model.Agenda,
	counterpartyID int64,
	start, end time.Time,
) (*model.AppointmentRequest, error) {
	if !initiatorRole.Valid() {
		return nil, ErrInvalidRole
	}
	if !agenda.Valid() {
		return nil, ErrInvalidAgenda
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	if start.Before(time.Now()) {
		return nil, ErrPastAppointment
	}

	studentID, counselorID := initiatorID, counterpartyID
	if initiatorRole == model.RoleCounselor {
		studentID, counselorID = counterpartyID, initiatorID
	}

	// Idempotency guard against double submission
	dup, err := s.requests.FindPendingDuplicate(ctx, initiatorRole, studentID, counselorID, start, end, agenda)
	if err != nil {
		return nil, fmt.Errorf("check duplicate request: %w", err)
	}
	if dup != nil {
		return nil, ErrDuplicateRequest
	}

	initiator, err := s.lookup(ctx, initiatorID, initiatorRole)
	if err != nil {
		return nil, err
	}
	counterpart, err := s.lookup(ctx, counterpartyID, initiatorRole.Counterpart())
	if err != nil {
		return nil, err
	}

	if initiator.DepartmentID != counterpart.DepartmentID {
		return nil, ErrDifferentDepartment
	}
	department := initiator.DepartmentName

	free, err := s.availability.IsTimeSlotAvailable(ctx, nil, counselorID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrTimeSlotUnavailable
	}
	if !s.availability.CheckExternalAvailability(ctx, department, start, end) {
		return nil, ErrTimeSlotUnavailable
	}

	req := &model.AppointmentRequest{
		StudentID:     studentID,
		CounselorID:   counselorID,
		Department:    department,
		Agenda:        agenda,
		ProposedStart: start,
		ProposedEnd:   end,
		ProposedBy:    initiatorRole,
		CreatedBy:     initiatorRole,
		Status:        model.RequestStatusPending,
	}
	// Self-acceptance: proposing a slot is agreeing to it
	req.SetResponse(initiatorRole, model.ResponseAccepted)
	req.SetResponse(initiatorRole.Counterpart(), model.ResponsePending)

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Appointment proposed",
		zap.Int64("request_id", req.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("counselor_id", counselorID),
		zap.String("department", department),
		zap.String("agenda", string(agenda)),
		zap.Time("start", start),
		zap.String("proposed_by", string(initiatorRole)),
	)

	return req, nil
}

// Respond records one side's accept or decline. On the accept that
// completes mutual agreement it finalizes: the confirmed appointment and
// its external calendar event are created atomically, and the returned
// appointment is non-nil. Losing a finalization race surfaces as
// ErrTimeSlotUnavailable with the request left untouched, so the caller
// may retry.
func (s *BookingService) Respond(
	ctx context.Context,
	responderID int64,
	responderRole model.Role,
	requestID int64,
	decision model.Response,
) (*model.Appointment, error) {
	if !responderRole.Valid() {
		return nil, ErrInvalidRole
	}
	if decision != model.ResponseAccepted && decision != model.ResponseDeclined {
		return nil, ErrInvalidDecision
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.ParticipantID(responderRole) != responderID {
		return nil, ErrUnauthorizedAction
	}
	if !req.IsPending() {
		return nil, ErrInvalidRequestStatus
	}
	if req.ResponseFor(responderRole) != model.ResponsePending {
		return nil, ErrResponseAlreadyGiven
	}

	if decision == model.ResponseDeclined {
		return nil, s.decline(ctx, req, responderRole)
	}

	// Re-validate the proposed interval before recording the acceptance
	free, err := s.availability.IsTimeSlotAvailable(ctx, nil, req.CounselorID, req.ProposedStart, req.ProposedEnd, 0)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrTimeSlotUnavailable
	}
	if !s.availability.CheckExternalAvailability(ctx, req.Department, req.ProposedStart, req.ProposedEnd) {
		return nil, ErrTimeSlotUnavailable
	}

	if req.ResponseFor(responderRole.Counterpart()) != model.ResponseAccepted {
		// First acceptance only; the request stays pending
		if err := s.requests.UpdateResponse(ctx, nil, req.ID, responderRole, model.ResponseAccepted, model.RequestStatusPending, nil); err != nil {
			return nil, s.mapUpdateErr(err)
		}

		s.logger.Info("Request accepted, awaiting counterpart",
			zap.Int64("request_id", req.ID),
			zap.String("responder", string(responderRole)),
		)
		return nil, nil
	}

	return s.finalize(ctx, req, responderRole)
}

// decline terminally rejects the request; no appointment is ever created
func (s *BookingService) decline(ctx context.Context, req *model.AppointmentRequest, responderRole model.Role) error {
	now := time.Now()
	err := s.requests.UpdateResponse(ctx, nil, req.ID, responderRole, model.ResponseDeclined, model.RequestStatusDeclined, &now)
	if err != nil {
		return s.mapUpdateErr(err)
	}

	s.logger.Info("Request declined",
		zap.Int64("request_id", req.ID),
		zap.String("responder", string(responderRole)),
	)
	return nil
}

// finalize turns mutual acceptance into a confirmed appointment. Every
// local write happens inside one transaction; the availability re-check
// runs inside that same transaction to close the race between the
// pre-check and the write. The external event is created before commit and
// any failure rolls the whole transaction back.
func (s *BookingService) finalize(ctx context.Context, req *model.AppointmentRequest, responderRole model.Role) (*model.Appointment, error) {
	student, err := s.directory.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student details: %w", err)
	}
	counselor, err := s.directory.GetCounselor(ctx, req.CounselorID)
	if err != nil {
		return nil, fmt.Errorf("get counselor details: %w", err)
	}
	if student == nil || counselor == nil {
		return nil, ErrUserDetailsNotFound
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finalization: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	err = s.requests.UpdateResponse(ctx, tx, req.ID, responderRole, model.ResponseAccepted, model.RequestStatusBothConfirmed, &now)
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}

	// The correctness-critical guard: a racing finalization that committed
	// after our pre-check is visible here
	free, err := s.availability.IsTimeSlotAvailable(ctx, tx, req.CounselorID, req.ProposedStart, req.ProposedEnd, 0)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrTimeSlotUnavailable
	}

	appt := &model.Appointment{
		RequestID:   req.ID,
		StudentID:   req.StudentID,
		CounselorID: req.CounselorID,
		Department:  req.Department,
		Agenda:      req.Agenda,
		StartTime:   req.ProposedStart,
		EndTime:     req.ProposedEnd,
		Status:      model.AppointmentStatusConfirmed,
	}
	if err := s.appointments.Create(ctx, tx, appt); err != nil {
		// The exclusion constraint is the backstop for a race the SELECT
		// cannot see: a conflicting appointment committed by another
		// transaction after this one began
		if errors.Is(err, repository.ErrOverlappingInterval) {
			return nil, ErrTimeSlotUnavailable
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	event, err := s.calendar.CreateEvent(ctx, calendar.EventInput{
		IdempotencyKey: fmt.Sprintf("request-%d", req.ID),
		Department:     req.Department,
		Summary:        fmt.Sprintf("%s: %s %s / %s %s", req.Agenda, student.FirstName, student.LastName, counselor.FirstName, counselor.LastName),
		Start:          req.ProposedStart,
		End:            req.ProposedEnd,
		Attendees: []calendar.Attendee{
			{Email: student.Email, Role: string(model.RoleStudent)},
			{Email: counselor.Email, Role: string(model.RoleCounselor)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalEventCreationFailed, err)
	}
	if event.ID == "" {
		return nil, ErrExternalEventCreationFailed
	}

	if err := s.appointments.SetCalendarEventID(ctx, tx, appt.ID, event.ID); err != nil {
		return nil, fmt.Errorf("attach calendar event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finalization: %w", err)
	}

	appt.CalendarEventID = &event.ID

	s.logger.Info("Appointment finalized",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("request_id", req.ID),
		zap.Int64("counselor_id", req.CounselorID),
		zap.String("calendar_event_id", event.ID),
	)

	return appt, nil
}

// Cancel soft-cancels a confirmed appointment. Only the owning student or
// counselor, acting in their own role, may cancel; the external calendar
// event is intentionally left for the out-of-band sync to handle.
func (s *BookingService) Cancel(ctx context.Context, callerID int64, callerRole model.Role, appointmentID int64) error {
	if !callerRole.Valid() {
		return ErrInvalidRole
	}

	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return ErrAppointmentNotFound
	}
	if !appt.OwnedBy(callerID, callerRole) {
		return ErrUnauthorizedAction
	}
	if appt.IsCancelled() {
		return ErrAppointmentNotActive
	}

	if err := s.appointments.Cancel(ctx, appointmentID, callerRole); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrAppointmentNotActive
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	s.logger.Info("Appointment cancelled",
		zap.Int64("appointment_id", appointmentID),
		zap.Int64("caller_id", callerID),
		zap.String("cancelled_by", string(callerRole)),
	)
	return nil
}

// GetRequest fetches a request by ID
func (s *BookingService) GetRequest(ctx context.Context, id int64) (*model.AppointmentRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListRequests fetches all requests where the party holds the given role
func (s *BookingService) ListRequests(ctx context.Context, userID int64, role model.Role) ([]*model.AppointmentRequest, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.requests.ListByParticipant(ctx, userID, role)
}

// GetAppointment fetches an appointment by ID
func (s *BookingService) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// ListCounselorAppointments fetches a counselor's appointments starting in
// [from, to)
func (s *BookingService) ListCounselorAppointments(ctx context.Context, counselorID int64, from, to time.Time) ([]*model.Appointment, error) {
	if !to.After(from) {
		return nil, ErrInvalidTimeRange
	}
	return s.appointments.ListByCounselorRange(ctx, counselorID, from, to)
}

// ExpireStaleRequests marks pending requests older than maxAge as expired
// and returns how many were swept
func (s *BookingService) ExpireStaleRequests(ctx context.Context, maxAge time.Duration) (int64, error) {
	count, err := s.requests.ExpirePending(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("expire stale requests: %w", err)
	}

	if count > 0 {
		s.logger.Info("Expired stale pending requests", zap.Int64("count", count))
	}
	return count, nil
}

func (s *BookingService) lookup(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	if role == model.RoleStudent {
		student, err := s.directory.GetStudent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get student: %w", err)
		}
		if student == nil {
			return nil, ErrStudentNotFound
		}
		return student, nil
	}

	counselor, err := s.directory.GetCounselor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get counselor: %w", err)
	}
	if counselor == nil {
		return nil, ErrCounselorNotFound
	}
	return counselor, nil
}

// mapUpdateErr translates the repository's guarded-update failure into the
// service taxonomy
func (s *BookingService) mapUpdateErr(err error) error {
	if errors.Is(err, repository.ErrNoRowsAffected) {
		// The request left pending between our read and the write
		return ErrInvalidRequestStatus
	}
	return fmt.Errorf("%w: %v", ErrRequestUpdateFailed, err)
}
