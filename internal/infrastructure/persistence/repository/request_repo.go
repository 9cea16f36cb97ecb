package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, requester_id, type, requester_role, requester_department,
	details, amount, days_applied, attachment_ref, created_at, updated_at`

// Create inserts the request and its five stage rows. Outside a caller's
// transaction it opens its own, so a half-written request is never visible.
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	if sqlite.InTransaction(ctx) {
		return r.insert(ctx, sqlite.Executor(ctx, r.db), req)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := r.insert(ctx, tx, req); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback request insert", zap.Error(rbErr))
		}
		req.ID = 0
		return err
	}
	if err := tx.Commit(); err != nil {
		req.ID = 0
		return fmt.Errorf("failed to commit request: %w", err)
	}
	return nil
}

func (r *RequestRepository) insert(ctx context.Context, exec sqlite.Querier, req *entity.Request) error {
	details, err := json.Marshal(req.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	if req.Details == nil {
		details = []byte("{}")
	}

	var amount decimal.NullDecimal
	if req.Amount != nil {
		amount = decimal.NewNullDecimal(*req.Amount)
	}

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	query := `
		INSERT INTO requests (
			requester_id, type, requester_role, requester_department, status,
			details, amount, days_applied, attachment_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		req.RequesterID,
		string(req.Type),
		int(req.RequesterRole),
		req.RequesterDepartment,
		string(req.Status()),
		string(details),
		amount,
		req.DaysApplied,
		req.AttachmentRef,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("requester_id", req.RequesterID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	stageQuery := `
		INSERT INTO request_stages (request_id, stage, state, remark, decided_at, decided_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, st := range req.Stages.Ordered() {
		if _, err := exec.ExecContext(ctx, stageQuery,
			id, string(st.Stage), string(st.State), st.Remark, nullTime(st.DecidedAt), int(st.DecidedBy),
		); err != nil {
			r.logger.Error("Failed to create request stage",
				zap.Int64("request_id", id),
				zap.String("stage", st.Stage.String()),
				zap.Error(err))
			return fmt.Errorf("failed to create stage %s: %w", st.Stage, err)
		}
	}

	req.ID = id
	return nil
}

// GetByID retrieves a request with its stages
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`

	exec := sqlite.Executor(ctx, r.db)
	req, err := scanRequest(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", id, workflow.ErrRequestNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	stages, err := r.loadStages(ctx, exec, []int64{id})
	if err != nil {
		return nil, err
	}
	req.Stages = stages[id]
	return req, nil
}

// List returns requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(filter.PendingStages) > 0 {
		marks := make([]string, len(filter.PendingStages))
		args = append(args, string(entity.StagePending))
		for i, s := range filter.PendingStages {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, `id IN (SELECT request_id FROM request_stages WHERE state = ? AND stage IN (`+
			strings.Join(marks, ", ")+`))`)
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	exec := sqlite.Executor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var (
		requests []*entity.Request
		ids      []int64
	)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	if len(requests) == 0 {
		return requests, nil
	}

	stages, err := r.loadStages(ctx, exec, ids)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		req.Stages = stages[req.ID]
	}
	return requests, nil
}

// DecideStage records a decision on a pending stage and the derived request
// status. The stage update is conditional on state = 'pending', so of two
// concurrent deciders exactly one sees a row change.
func (r *RequestRepository) DecideStage(ctx context.Context, requestID int64, stage entity.StageStatus, status entity.RequestStatus, updatedAt time.Time) error {
	exec := sqlite.Executor(ctx, r.db)

	result, err := exec.ExecContext(ctx, `
		UPDATE request_stages
		SET state = ?, remark = ?, decided_at = ?, decided_by = ?
		WHERE request_id = ? AND stage = ? AND state = ?
	`,
		string(stage.State),
		stage.Remark,
		nullTime(stage.DecidedAt),
		int(stage.DecidedBy),
		requestID,
		string(stage.Stage),
		string(entity.StagePending),
	)
	if err != nil {
		r.logger.Error("Failed to decide stage",
			zap.Int64("request_id", requestID),
			zap.String("stage", stage.Stage.String()),
			zap.Error(err))
		return fmt.Errorf("failed to decide stage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var current string
		err := exec.QueryRowContext(ctx,
			`SELECT state FROM request_stages WHERE request_id = ? AND stage = ?`,
			requestID, string(stage.Stage),
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("request %d: %w", requestID, workflow.ErrRequestNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read stage state: %w", err)
		}
		return fmt.Errorf("request %d %s stage is %s: %w",
			requestID, stage.Stage, current, workflow.ErrAlreadyDecided)
	}

	if _, err := exec.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt.UTC(), requestID,
	); err != nil {
		r.logger.Error("Failed to update request status", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to update request status: %w", err)
	}

	return nil
}

func (r *RequestRepository) loadStages(ctx context.Context, exec sqlite.Querier, ids []int64) (map[int64]entity.Stages, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `
		SELECT request_id, stage, state, remark, decided_at, decided_by
		FROM request_stages
		WHERE request_id IN (` + placeholders + `)
	`
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load request stages", zap.Error(err))
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]entity.Stages, len(ids))
	for rows.Next() {
		var (
			requestID int64
			st        entity.StageStatus
			stage     string
			state     string
			decidedAt sql.NullTime
			decidedBy int
		)
		if err := rows.Scan(&requestID, &stage, &state, &st.Remark, &decidedAt, &decidedBy); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		st.Stage = entity.Stage(stage)
		st.State = entity.StageState(state)
		st.DecidedBy = entity.Role(decidedBy)
		if decidedAt.Valid {
			t := decidedAt.Time.UTC()
			st.DecidedAt = &t
		}

		if out[requestID] == nil {
			out[requestID] = make(entity.Stages, 5)
		}
		out[requestID][st.Stage] = st
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var (
		req     entity.Request
		reqType string
		role    int
		details string
		amount  decimal.NullDecimal
	)
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&reqType,
		&role,
		&req.RequesterDepartment,
		&details,
		&amount,
		&req.DaysApplied,
		&req.AttachmentRef,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Type = entity.RequestType(reqType)
	req.RequesterRole = entity.Role(role)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	if amount.Valid {
		a := amount.Decimal
		req.Amount = &a
	}
	if details != "" && details != "{}" && details != "null" {
		if err := json.Unmarshal([]byte(details), &req.Details); err != nil {
			return nil, fmt.Errorf("failed to decode details: %w", err)
		}
	}
	return &req, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
