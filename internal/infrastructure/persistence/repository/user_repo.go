package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the user or replaces its name, email, role and department
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, role, department, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			department = excluded.department,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		user.ID, user.Name, user.Email, int(user.Role), user.Department, now, now,
	)
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user. Wraps workflow.ErrUserNotFound when missing.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT id, name, email, role, department FROM users WHERE id = ?`

	var (
		user entity.User
		role int
	)
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &role, &user.Department,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, workflow.ErrUserNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = entity.Role(role)
	return &user, nil
}

// ListByRole retrieves every user holding role, ordered by ID
func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	query := `SELECT id, name, email, role, department FROM users WHERE role = ? ORDER BY id ASC`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, int(role))
	if err != nil {
		r.logger.Error("Failed to list users by role", zap.Int("role", int(role)), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var (
			user   entity.User
			roleID int
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &roleID, &user.Department); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Role = entity.Role(roleID)
		users = append(users, &user)
	}
	return users, rows.Err()
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
