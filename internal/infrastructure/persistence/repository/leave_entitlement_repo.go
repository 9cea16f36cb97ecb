package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// LeaveEntitlementRepository implements port.LeaveEntitlementRepository
type LeaveEntitlementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeaveEntitlementRepository creates a new leave entitlement repository
func NewLeaveEntitlementRepository(db *sql.DB, logger *zap.Logger) port.LeaveEntitlementRepository {
	return &LeaveEntitlementRepository{
		db:     db,
		logger: logger,
	}
}

// SetEntitlement stores the yearly entitlement, replacing any previous value
func (r *LeaveEntitlementRepository) SetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year, days int) error {
	query := `
		INSERT INTO leave_entitlements (user_id, leave_type, year, days, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, leave_type, year) DO UPDATE SET
			days = excluded.days,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		userID, string(leaveType), year, days, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to set leave entitlement",
			zap.String("user_id", userID),
			zap.String("leave_type", leaveType.String()),
			zap.Int("year", year),
			zap.Error(err))
		return fmt.Errorf("failed to set entitlement: %w", err)
	}
	return nil
}

// GetEntitlement returns the stored entitlement and whether a row exists
func (r *LeaveEntitlementRepository) GetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, bool, error) {
	query := `SELECT days FROM leave_entitlements WHERE user_id = ? AND leave_type = ? AND year = ?`

	var days int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, userID, string(leaveType), year).Scan(&days)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave entitlement", zap.String("user_id", userID), zap.Error(err))
		return 0, false, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return days, true, nil
}

// UsedDays sums the days of approved requests of leaveType created in year.
// Timestamps are stored in UTC with a leading four digit year.
func (r *LeaveEntitlementRepository) UsedDays(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error) {
	query := `
		SELECT COALESCE(SUM(days_applied), 0)
		FROM requests
		WHERE requester_id = ? AND type = ? AND status = ?
			AND CAST(substr(created_at, 1, 4) AS INTEGER) = ?
	`

	var used int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query,
		userID, string(leaveType), string(entity.RequestApproved), year,
	).Scan(&used)
	if err != nil {
		r.logger.Error("Failed to sum used leave days", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to sum used days: %w", err)
	}
	return used, nil
}

// Verify interface compliance
var _ port.LeaveEntitlementRepository = (*LeaveEntitlementRepository)(nil)
