package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository/base"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, request_id, student_id, counselor_id, department,
		agenda, start_time, end_time, calendar_event_id, status,
		cancelled_by, cancelled_at, created_at, updated_at`

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// Create inserts a confirmed appointment, inside the caller's transaction
// when tx is non-nil. An insert colliding with the counselor overlap
// exclusion constraint returns ErrOverlappingInterval; this is what aborts
// a finalization that raced past the SELECT-based re-check.
func (r *AppointmentRepository) Create(ctx context.Context, tx Tx, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			request_id, student_id, counselor_id, department, agenda,
			start_time, end_time, calendar_event_id, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := querier(tx, r.Pool()).QueryRow(
		ctx, query,
		appt.RequestID,
		appt.StudentID,
		appt.CounselorID,
		appt.Department,
		appt.Agenda,
		appt.StartTime,
		appt.EndTime,
		appt.CalendarEventID,
		appt.Status,
	).Scan(&appt.ID, &appt.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation {
			return ErrOverlappingInterval
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID fetches an appointment by ID, nil if it does not exist
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`

	appt, err := scanAppointment(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// GetByRequestID fetches the appointment created from the given request
func (r *AppointmentRepository) GetByRequestID(ctx context.Context, requestID int64) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE request_id = $1
	`

	appt, err := scanAppointment(r.Pool().QueryRow(ctx, query, requestID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by request id: %w", err)
	}

	return appt, nil
}

// FindOverlapping fetches the counselor's non-cancelled appointments whose
// half-open interval intersects [start, end). Touching intervals do not
// match. Runs inside the caller's transaction when tx is non-nil, so the
// finalization re-check observes its own uncommitted writes.
func (r *AppointmentRepository) FindOverlapping(
	ctx context.Context,
	tx Tx,
	counselorID int64,
	start, end time.Time,
	excludeID int64,
) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE counselor_id = $1
		  AND cancelled_at IS NULL
		  AND start_time < $3
		  AND $2 < end_time
		  AND ($4 = 0 OR id <> $4)
		ORDER BY start_time
	`

	rows, err := querier(tx, r.Pool()).Query(ctx, query, counselorID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping appointments: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}

// SetCalendarEventID attaches the external calendar event to the appointment
func (r *AppointmentRepository) SetCalendarEventID(ctx context.Context, tx Tx, id int64, eventID string) error {
	query := `
		UPDATE appointments
		SET calendar_event_id = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := querier(tx, r.Pool()).Exec(ctx, query, eventID, id)
	if err != nil {
		return fmt.Errorf("set calendar event id: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// Cancel soft-cancels the appointment, freeing its interval. The guard on
// cancelled_at keeps the transition one-way.
func (r *AppointmentRepository) Cancel(ctx context.Context, id int64, by model.Role) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled', cancelled_by = $1, cancelled_at = now(), updated_at = now()
		WHERE id = $2 AND cancelled_at IS NULL
	`

	tag, err := r.Pool().Exec(ctx, query, by, id)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// ListByCounselorRange fetches a counselor's appointments starting within
// [from, to), soonest first
func (r *AppointmentRepository) ListByCounselorRange(ctx context.Context, counselorID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE counselor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := r.Pool().Query(ctx, query, counselorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments by counselor: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.RequestID,
		&appt.StudentID,
		&appt.CounselorID,
		&appt.Department,
		&appt.Agenda,
		&appt.StartTime,
		&appt.EndTime,
		&appt.CalendarEventID,
		&appt.Status,
		&appt.CancelledBy,
		&appt.CancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
