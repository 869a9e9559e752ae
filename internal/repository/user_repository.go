package repository

import (
	"context"
	"fmt"

	"github.com/campuskit/counselbook/internal/model"
	"github.com/campuskit/counselbook/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository is the directory lookup for students and counselors
type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetStudent fetches an active student by ID, nil if not found
func (r *UserRepository) GetStudent(ctx context.Context, id int64) (*model.User, error) {
	return r.getByRole(ctx, id, model.RoleStudent)
}

// GetCounselor fetches an active counselor by ID, nil if not found
func (r *UserRepository) GetCounselor(ctx context.Context, id int64) (*model.User, error) {
	return r.getByRole(ctx, id, model.RoleCounselor)
}

func (r *UserRepository) getByRole(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role,
		       u.department_id, d.name, u.is_active, u.created_at
		FROM users u
		JOIN departments d ON d.id = u.department_id
		WHERE u.id = $1 AND u.role = $2 AND u.is_active
	`

	var user model.User
	err := r.Pool().QueryRow(ctx, query, id, role).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.DepartmentID,
		&user.DepartmentName,
		&user.IsActive,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s by id: %w", role, err)
	}

	return &user, nil
}
