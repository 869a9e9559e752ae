package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, student_id, counselor_id, department, agenda,
		proposed_start, proposed_end, proposed_by, created_by,
		student_response, counselor_response, status, finalized_at,
		created_at, updated_at`

type RequestRepository struct {
	*base.Repository
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{Repository: base.NewRepository(pool)}
}

// Create inserts a new appointment request
func (r *RequestRepository) Create(ctx context.Context, req *model.AppointmentRequest) error {
	query := `
		INSERT INTO appointment_requests (
			student_id, counselor_id, department, agenda,
			proposed_start, proposed_end, proposed_by, created_by,
			student_response, counselor_response, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		req.StudentID,
		req.CounselorID,
		req.Department,
		req.Agenda,
		req.ProposedStart,
		req.ProposedEnd,
		req.ProposedBy,
		req.CreatedBy,
		req.StudentResponse,
		req.CounselorResponse,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		return fmt.Errorf("create appointment request: %w", err)
	}

	return nil
}

// GetByID fetches a request by ID, nil if it does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*model.AppointmentRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM appointment_requests
		WHERE id = $1
	`

	req, err := scanRequest(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request by id: %w", err)
	}

	return req, nil
}

// FindPendingDuplicate looks for a still-pending request with the same
// initiator, participants, interval and agenda
func (r *RequestRepository) FindPendingDuplicate(
	ctx context.Context,
	createdBy model.Role,
	studentID, counselorID int64,
	start, end time.Time,
	agenda model.Agenda,
) (*model.AppointmentRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM appointment_requests
		WHERE created_by = $1
		  AND student_id = $2
		  AND counselor_id = $3
		  AND proposed_start = $4
		  AND proposed_end = $5
		  AND agenda = $6
		  AND status = 'pending'
		LIMIT 1
	`

	req, err := scanRequest(r.Pool().QueryRow(ctx, query, createdBy, studentID, counselorID, start, end, agenda))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate request: %w", err)
	}

	return req, nil
}

// UpdateResponse records one side's response together with the derived
// status, guarded so a request that already left pending is never touched.
// Returns ErrNoRowsAffected when the guard rejects the write.
func (r *RequestRepository) UpdateResponse(
	ctx context.Context,
	tx Tx,
	id int64,
	role model.Role,
	response model.Response,
	status model.RequestStatus,
	finalizedAt *time.Time,
) error {
	column := "counselor_response"
	if role == model.RoleStudent {
		column = "student_response"
	}

	query := fmt.Sprintf(`
		UPDATE appointment_requests
		SET %s = $1, status = $2, finalized_at = $3, updated_at = now()
		WHERE id = $4 AND status = 'pending'
	`, column)

	tag, err := querier(tx, r.Pool()).Exec(ctx, query, response, status, finalizedAt, id)
	if err != nil {
		return fmt.Errorf("update request response: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// ListByParticipant fetches all requests where the given party holds the
// given role, newest first
func (r *RequestRepository) ListByParticipant(ctx context.Context, userID int64, role model.Role) ([]*model.AppointmentRequest, error) {
	column := "counselor_id"
	if role == model.RoleStudent {
		column = "student_id"
	}

	query := fmt.Sprintf(`
		SELECT `+requestColumns+`
		FROM appointment_requests
		WHERE %s = $1
		ORDER BY created_at DESC
	`, column)

	rows, err := r.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests by participant: %w", err)
	}
	defer rows.Close()

	var requests []*model.AppointmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// ExpirePending marks all pending requests created before the cutoff as
// expired. Re-running it is a no-op for already-expired rows.
func (r *RequestRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE appointment_requests
		SET status = 'expired', finalized_at = now(), updated_at = now()
		WHERE status = 'pending' AND created_at < $1
	`

	tag, err := r.Pool().Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending requests: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.AppointmentRequest, error) {
	var req model.AppointmentRequest
	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.CounselorID,
		&req.Department,
		&req.Agenda,
		&req.ProposedStart,
		&req.ProposedEnd,
		&req.ProposedBy,
		&req.CreatedBy,
		&req.StudentResponse,
		&req.CounselorResponse,
		&req.Status,
		&req.FinalizedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
