package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

const notificationColumns = `id, request_id, event_id, event_type, recipient_user_id,
	recipient_role, message, status, error_message, sent_at, created_at`

// Create stores a notification in the outbox
func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			request_id, event_id, event_type, recipient_user_id, recipient_role,
			message, status, error_message, sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if notification.Status == "" {
		notification.Status = entity.NotificationStatusPending
	}

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		notification.RequestID,
		notification.EventID,
		notification.EventType,
		notification.RecipientUserID,
		int(notification.RecipientRole),
		notification.Message,
		notification.Status,
		notification.ErrorMessage,
		nullTime(notification.SentAt),
		notification.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("request_id", notification.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	notification.ID = id
	return nil
}

// GetByRequestID retrieves every notification raised for a request
func (r *NotificationRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE request_id = ? ORDER BY id ASC`
	return r.query(ctx, "Failed to get notifications by request ID", query, requestID)
}

// GetPending retrieves undelivered notifications, oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE status = ? ORDER BY id ASC LIMIT ?`
	return r.query(ctx, "Failed to get pending notifications", query, entity.NotificationStatusPending, limit)
}

// MarkSent marks notification as sent
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET status = ?, sent_at = ?, error_message = ''
		WHERE id = ?
	`

	return r.update(ctx, "Failed to mark notification as sent", query,
		id, entity.NotificationStatusSent, time.Now().UTC(), id)
}

// MarkFailed marks notification as failed with the delivery error
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `
		UPDATE notifications
		SET status = ?, error_message = ?
		WHERE id = ?
	`

	return r.update(ctx, "Failed to mark notification as failed", query,
		id, entity.NotificationStatusFailed, errorMsg, id)
}

func (r *NotificationRepository) update(ctx context.Context, msg, query string, id int64, args ...interface{}) error {
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error(msg, zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %d not found", id)
	}
	return nil
}

func (r *NotificationRepository) query(ctx context.Context, msg, query string, args ...interface{}) ([]*entity.Notification, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error(msg, zap.Error(err))
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		var (
			n      entity.Notification
			role   int
			sentAt sql.NullTime
		)
		err := rows.Scan(
			&n.ID,
			&n.RequestID,
			&n.EventID,
			&n.EventType,
			&n.RecipientUserID,
			&role,
			&n.Message,
			&n.Status,
			&n.ErrorMessage,
			&sentAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.RecipientRole = entity.Role(role)
		n.CreatedAt = n.CreatedAt.UTC()
		if sentAt.Valid {
			t := sentAt.Time.UTC()
			n.SentAt = &t
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
