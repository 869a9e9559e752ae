package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/counselbook/internal/calendar"
	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository"
	"github.com/campuskit/counselbook/internal/timeslot"
)

// fakeTx applies writes immediately and collects undo closures; Rollback
// before Commit replays them. This mirrors the store semantics the services
// rely on: reads inside an open transaction see its uncommitted writes.
type fakeTx struct {
	committed  bool
	rolledBack bool
	undo       []func()
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.rolledBack {
		return fmt.Errorf("tx already rolled back")
	}
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return nil
	}
	t.rolledBack = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (t *fakeTx) addUndo(fn func()) {
	t.undo = append(t.undo, fn)
}

// fakeStore backs all four store contracts plus TxManager for the service
// tests
type fakeStore struct {
	requests     map[int64]*model.AppointmentRequest
	appointments map[int64]*model.Appointment
	users        map[int64]*model.User

	nextRequestID     int64
	nextAppointmentID int64
	lastTx            *fakeTx

	// queued FindOverlapping results; when exhausted the fake scans its
	// own appointment table
	overlapQueue [][]*model.Appointment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:     make(map[int64]*model.AppointmentRequest),
		appointments: make(map[int64]*model.Appointment),
		users:        make(map[int64]*model.User),
	}
}

func (s *fakeStore) Begin(ctx context.Context) (repository.Tx, error) {
	s.lastTx = &fakeTx{}
	return s.lastTx, nil
}

func (s *fakeStore) asFakeTx(tx repository.Tx) *fakeTx {
	if tx == nil {
		return nil
	}
	return tx.(*fakeTx)
}

func (s *fakeStore) addUser(u *model.User) *model.User {
	s.users[u.ID] = u
	return u
}

func cloneRequest(r *model.AppointmentRequest) *model.AppointmentRequest {
	c := *r
	return &c
}

func cloneAppointment(a *model.Appointment) *model.Appointment {
	c := *a
	return &c
}

// RequestStore

func (s *fakeStore) Create(ctx context.Context, req *model.AppointmentRequest) error {
	s.nextRequestID++
	req.ID = s.nextRequestID
	req.CreatedAt = time.Now()
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*model.AppointmentRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (s *fakeStore) FindPendingDuplicate(ctx context.Context, createdBy model.Role, studentID, counselorID int64, start, end time.Time, agenda model.Agenda) (*model.AppointmentRequest, error) {
	for _, req := range s.requests {
		if req.CreatedBy == createdBy &&
			req.StudentID == studentID &&
			req.CounselorID == counselorID &&
			req.ProposedStart.Equal(start) &&
			req.ProposedEnd.Equal(end) &&
			req.Agenda == agenda &&
			req.Status == model.RequestStatusPending {
			return cloneRequest(req), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateResponse(ctx context.Context, tx repository.Tx, id int64, role model.Role, response model.Response, status model.RequestStatus, finalizedAt *time.Time) error {
	req, ok := s.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return repository.ErrNoRowsAffected
	}

	snapshot := cloneRequest(req)
	if ftx := s.asFakeTx(tx); ftx != nil {
		ftx.addUndo(func() { s.requests[id] = snapshot })
	}

	req.SetResponse(role, response)
	req.Status = status
	req.FinalizedAt = finalizedAt
	return nil
}

func (s *fakeStore) ListByParticipant(ctx context.Context, userID int64, role model.Role) ([]*model.AppointmentRequest, error) {
	var out []*model.AppointmentRequest
	for _, req := range s.requests {
		if req.ParticipantID(role) == userID {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (s *fakeStore) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	now := time.Now()
	for _, req := range s.requests {
		if req.Status == model.RequestStatusPending && req.CreatedAt.Before(cutoff) {
			req.Status = model.RequestStatusExpired
			req.FinalizedAt = &now
			count++
		}
	}
	return count, nil
}

// AppointmentStore

func (s *fakeStore) CreateAppointment(ctx context.Context, tx repository.Tx, appt *model.Appointment) error {
	// Mirrors the counselor overlap exclusion constraint: the insert fails
	// on a conflicting active row even when the preceding SELECTs missed it
	for _, existing := range s.appointments {
		if existing.CounselorID == appt.CounselorID && !existing.IsCancelled() &&
			timeslot.Overlaps(existing.StartTime, existing.EndTime, appt.StartTime, appt.EndTime) {
			return repository.ErrOverlappingInterval
		}
	}

	s.nextAppointmentID++
	appt.ID = s.nextAppointmentID
	appt.CreatedAt = time.Now()
	id := appt.ID
	s.appointments[id] = cloneAppointment(appt)

	if ftx := s.asFakeTx(tx); ftx != nil {
		ftx.addUndo(func() { delete(s.appointments, id) })
	}
	return nil
}

func (s *fakeStore) GetAppointmentByID(ctx context.Context, id int64) (*model.Appointment, error) {
	appt, ok := s.appointments[id]
	if !ok {
		return nil, nil
	}
	return cloneAppointment(appt), nil
}

func (s *fakeStore) GetByRequestID(ctx context.Context, requestID int64) (*model.Appointment, error) {
	for _, appt := range s.appointments {
		if appt.RequestID == requestID {
			return cloneAppointment(appt), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindOverlapping(ctx context.Context, tx repository.Tx, counselorID int64, start, end time.Time, excludeID int64) ([]*model.Appointment, error) {
	if len(s.overlapQueue) > 0 {
		head := s.overlapQueue[0]
		s.overlapQueue = s.overlapQueue[1:]
		return head, nil
	}

	var out []*model.Appointment
	for _, appt := range s.appointments {
		if appt.CounselorID != counselorID || appt.IsCancelled() {
			continue
		}
		if excludeID != 0 && appt.ID == excludeID {
			continue
		}
		if timeslot.Overlaps(appt.StartTime, appt.EndTime, start, end) {
			out = append(out, cloneAppointment(appt))
		}
	}
	return out, nil
}

func (s *fakeStore) SetCalendarEventID(ctx context.Context, tx repository.Tx, id int64, eventID string) error {
	appt, ok := s.appointments[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}

	snapshot := cloneAppointment(appt)
	if ftx := s.asFakeTx(tx); ftx != nil {
		ftx.addUndo(func() { s.appointments[id] = snapshot })
	}

	appt.CalendarEventID = &eventID
	return nil
}

func (s *fakeStore) CancelAppointment(ctx context.Context, id int64, by model.Role) error {
	appt, ok := s.appointments[id]
	if !ok || appt.IsCancelled() {
		return repository.ErrNoRowsAffected
	}
	now := time.Now()
	appt.Status = model.AppointmentStatusCancelled
	appt.CancelledBy = &by
	appt.CancelledAt = &now
	return nil
}

func (s *fakeStore) ListByCounselorRange(ctx context.Context, counselorID int64, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, appt := range s.appointments {
		if appt.CounselorID == counselorID && !appt.StartTime.Before(from) && appt.StartTime.Before(to) {
			out = append(out, cloneAppointment(appt))
		}
	}
	return out, nil
}

// Directory

func (s *fakeStore) GetStudent(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(id, model.RoleStudent), nil
}

func (s *fakeStore) GetCounselor(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(id, model.RoleCounselor), nil
}

func (s *fakeStore) getUser(id int64, role model.Role) *model.User {
	u, ok := s.users[id]
	if !ok || u.Role != role || !u.IsActive {
		return nil
	}
	c := *u
	return &c
}

// appointmentStoreAdapter renames the methods that clash between the
// request and appointment contracts on the shared fake
type appointmentStoreAdapter struct {
	s *fakeStore
}

func (a appointmentStoreAdapter) Create(ctx context.Context, tx repository.Tx, appt *model.Appointment) error {
	return a.s.CreateAppointment(ctx, tx, appt)
}

func (a appointmentStoreAdapter) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return a.s.GetAppointmentByID(ctx, id)
}

func (a appointmentStoreAdapter) GetByRequestID(ctx context.Context, requestID int64) (*model.Appointment, error) {
	return a.s.GetByRequestID(ctx, requestID)
}

func (a appointmentStoreAdapter) FindOverlapping(ctx context.Context, tx repository.Tx, counselorID int64, start, end time.Time, excludeID int64) ([]*model.Appointment, error) {
	return a.s.FindOverlapping(ctx, tx, counselorID, start, end, excludeID)
}

func (a appointmentStoreAdapter) SetCalendarEventID(ctx context.Context, tx repository.Tx, id int64, eventID string) error {
	return a.s.SetCalendarEventID(ctx, tx, id, eventID)
}

func (a appointmentStoreAdapter) Cancel(ctx context.Context, id int64, by model.Role) error {
	return a.s.CancelAppointment(ctx, id, by)
}

func (a appointmentStoreAdapter) ListByCounselorRange(ctx context.Context, counselorID int64, from, to time.Time) ([]*model.Appointment, error) {
	return a.s.ListByCounselorRange(ctx, counselorID, from, to)
}

// fakeCalendar is the external calendar double
type fakeCalendar struct {
	busy     []calendar.BusyPeriod
	queryErr error

	eventID   string
	createErr error
	created   []calendar.EventInput
}

func (c *fakeCalendar) CheckAvailability(ctx context.Context, department string, start, end time.Time) (bool, error) {
	if c.queryErr != nil {
		return false, c.queryErr
	}
	for _, b := range c.busy {
		if timeslot.Overlaps(start, end, b.Start, b.End) {
			return false, nil
		}
	}
	return true, nil
}

func (c *fakeCalendar) BusyPeriods(ctx context.Context, department string, start, end time.Time) ([]calendar.BusyPeriod, error) {
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.busy, nil
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.Event, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created = append(c.created, input)
	return &calendar.Event{
		ID:    c.eventID,
		Start: input.Start,
		End:   input.End,
	}, nil
}
