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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.RequestHistory) error {
	query := `
		INSERT INTO request_history (
			request_id, actor_id, actor_role, stage, action, remark, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		history.RequestID,
		history.ActorID,
		int(history.ActorRole),
		string(history.Stage),
		history.Action,
		history.Remark,
		history.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByRequestID retrieves all history records for a request, oldest first
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, stage, action, remark, timestamp
		FROM request_history
		WHERE request_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.RequestHistory
	for rows.Next() {
		var (
			record entity.RequestHistory
			role   int
			stage  string
		)
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.ActorID,
			&role,
			&stage,
			&record.Action,
			&record.Remark,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.ActorRole = entity.Role(role)
		record.Stage = entity.Stage(stage)
		record.Timestamp = record.Timestamp.UTC()
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
