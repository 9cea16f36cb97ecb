package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/event"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRequestInput carries everything needed to open a request
type CreateRequestInput struct {
	RequesterID   string
	Type          entity.RequestType
	Details       map[string]string
	Amount        *decimal.Decimal
	DaysApplied   int
	AttachmentRef string
}

// DecideInput carries one approve/reject action
type DecideInput struct {
	RequestID int64
	ActorID   string
	// Stage is optional. Approvers may only name their own stage; admin may name any.
	Stage    entity.Stage
	Decision workflow.Decision
	Remark   string
}

// RequestService creates requests and records decisions on their stages
type RequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*entity.Request, error)
	GetRequest(ctx context.Context, id int64) (*entity.Request, error)
	ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error)
	History(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error)
	CanApprove(ctx context.Context, actorID string, requestID int64) (bool, error)
	Decide(ctx context.Context, in DecideInput) (*entity.Request, error)
	ListActionable(ctx context.Context, actorID string, limit, offset int) ([]*entity.Request, error)
	PreviewRouting(t entity.RequestType, role entity.Role, department string) (*workflow.Routing, error)
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	users       port.UserDirectory
	balance     port.LeaveBalance
	txManager   port.TransactionManager
	gate        *workflow.Gate
	events      dispatcher.Dispatcher
	logger      Logger
	now         func() time.Time
}

// RequestServiceOption configures the request service
type RequestServiceOption func(*requestServiceImpl)

// WithClock overrides the time source
func WithClock(now func() time.Time) RequestServiceOption {
	return func(s *requestServiceImpl) {
		s.now = now
	}
}

// NewRequestService creates a new RequestService. events may be nil.
func NewRequestService(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	users port.UserDirectory,
	balance port.LeaveBalance,
	txManager port.TransactionManager,
	gate *workflow.Gate,
	events dispatcher.Dispatcher,
	logger Logger,
	opts ...RequestServiceOption,
) RequestService {
	s := &requestServiceImpl{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		users:       users,
		balance:     balance,
		txManager:   txManager,
		gate:        gate,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest validates input, checks leave balance, seeds the stages from the
// routing table and stores the request with its history row.
func (s *requestServiceImpl) CreateRequest(ctx context.Context, in CreateRequestInput) (*entity.Request, error) {
	if err := validateCreate(in); err != nil {
		s.logger.Info("Request rejected", "error", err, "requester_id", in.RequesterID)
		return nil, err
	}

	role, err := s.users.RoleOf(ctx, in.RequesterID)
	if err != nil {
		s.logFailure("Failed to resolve requester role", err, "requester_id", in.RequesterID)
		return nil, fmt.Errorf("resolve requester role: %w", err)
	}
	department, err := s.users.DepartmentOf(ctx, in.RequesterID)
	if err != nil {
		s.logFailure("Failed to resolve requester department", err, "requester_id", in.RequesterID)
		return nil, fmt.Errorf("resolve requester department: %w", err)
	}

	now := s.now().UTC()

	if in.Type.IsCappedLeave() {
		if err := s.checkBalance(ctx, in, now.Year()); err != nil {
			return nil, err
		}
	}

	routing, err := s.gate.Router().Resolve(in.Type, role, department)
	if err != nil {
		s.logger.Error("No routing rule for request",
			"error", err,
			"requester_id", in.RequesterID,
			"type", in.Type,
			"role", role.String(),
			"department", department,
		)
		return nil, err
	}

	req := &entity.Request{
		RequesterID:         in.RequesterID,
		Type:                in.Type,
		RequesterRole:       role,
		RequesterDepartment: department,
		Stages:              routing.InitialStatuses(),
		Details:             in.Details,
		Amount:              in.Amount,
		DaysApplied:         in.DaysApplied,
		AttachmentRef:       strings.TrimSpace(in.AttachmentRef),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		history := &entity.RequestHistory{
			RequestID: req.ID,
			ActorID:   req.RequesterID,
			ActorRole: role,
			Action:    entity.HistoryActionCreate,
			Remark:    fmt.Sprintf("routed by %s rule", routing.Rule),
			Timestamp: now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "requester_id", in.RequesterID, "type", in.Type)
		return nil, err
	}

	s.logger.Info("Request created",
		"request_id", req.ID,
		"requester_id", req.RequesterID,
		"type", req.Type,
		"rule", routing.Rule,
	)

	s.publish(ctx, event.RequestCreated{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Type:        req.Type,
	}.Event(""))

	return req, nil
}

func validateCreate(in CreateRequestInput) error {
	switch {
	case strings.TrimSpace(in.RequesterID) == "":
		return fmt.Errorf("%w: requester is required", workflow.ErrInvalidRequest)
	case !in.Type.IsValid():
		return fmt.Errorf("%w: unknown request type %q", workflow.ErrInvalidRequest, in.Type)
	case in.Amount != nil && in.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", workflow.ErrInvalidRequest)
	case !in.Type.IsLeave() && in.DaysApplied != 0:
		return fmt.Errorf("%w: days applied only apply to leave requests", workflow.ErrInvalidRequest)
	case in.Type == entity.TypeSickLeave && in.DaysApplied < 0:
		return fmt.Errorf("%w: days applied must not be negative", workflow.ErrInvalidRequest)
	}
	return nil
}

// checkBalance enforces 0 < days <= available. The balance is only read.
func (s *requestServiceImpl) checkBalance(ctx context.Context, in CreateRequestInput, year int) error {
	insufficient := &workflow.InsufficientBalanceError{
		UserID:    in.RequesterID,
		LeaveType: in.Type,
		Year:      year,
		Requested: in.DaysApplied,
	}
	if in.DaysApplied <= 0 {
		s.logger.Info("Leave request refused", "error", insufficient, "requester_id", in.RequesterID)
		return insufficient
	}

	available, err := s.balance.AvailableBalance(ctx, in.RequesterID, in.Type, year)
	if err != nil {
		s.logger.Error("Failed to read leave balance", "error", err, "requester_id", in.RequesterID, "type", in.Type)
		return fmt.Errorf("read leave balance: %w", err)
	}

	insufficient.Available = available
	if in.DaysApplied > available {
		s.logger.Info("Leave request refused", "error", insufficient, "requester_id", in.RequesterID)
		return insufficient
	}
	return nil
}

// GetRequest retrieves a request by ID
func (s *requestServiceImpl) GetRequest(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		s.logFailure("Failed to get request", err, "request_id", id)
		return nil, err
	}
	return req, nil
}

// ListRequests lists requests matching the filter
func (s *requestServiceImpl) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err)
		return nil, err
	}
	return requests, nil
}

// History returns the audit trail of a request, oldest first
func (s *requestServiceImpl) History(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error) {
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		s.logFailure("Failed to get request", err, "request_id", requestID)
		return nil, err
	}
	history, err := s.historyRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to get history", "error", err, "request_id", requestID)
		return nil, err
	}
	return history, nil
}

// CanApprove reports whether the actor may currently decide a stage of the request
func (s *requestServiceImpl) CanApprove(ctx context.Context, actorID string, requestID int64) (bool, error) {
	role, err := s.users.RoleOf(ctx, actorID)
	if err != nil {
		s.logFailure("Failed to resolve actor role", err, "actor_id", actorID)
		return false, err
	}
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		s.logFailure("Failed to get request", err, "request_id", requestID)
		return false, err
	}
	return s.gate.CanApprove(role, req), nil
}

// Decide applies one decision. The gate check and the conditional stage write
// share a transaction, so of two racing deciders one loses with ErrAlreadyDecided.
func (s *requestServiceImpl) Decide(ctx context.Context, in DecideInput) (*entity.Request, error) {
	if !in.Decision.IsValid() {
		return nil, fmt.Errorf("%w: unknown decision %q", workflow.ErrInvalidRequest, in.Decision)
	}

	role, err := s.users.RoleOf(ctx, in.ActorID)
	if err != nil {
		s.logFailure("Failed to resolve actor role", err, "actor_id", in.ActorID)
		return nil, fmt.Errorf("resolve actor role: %w", err)
	}

	var outcome *workflow.Outcome
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, in.RequestID)
		if err != nil {
			return err
		}

		outcome, err = s.gate.Apply(txCtx, req, role, in.Stage, in.Decision, in.Remark, s.now())
		if err != nil {
			return err
		}

		decided := outcome.Request.Stages[outcome.Stage]
		if err := s.requestRepo.DecideStage(txCtx, req.ID, decided, outcome.Status, outcome.DecidedAt); err != nil {
			return err
		}

		history := &entity.RequestHistory{
			RequestID: req.ID,
			ActorID:   in.ActorID,
			ActorRole: role,
			Stage:     outcome.Stage,
			Action:    historyAction(in.Decision),
			Remark:    outcome.Remark,
			Timestamp: outcome.DecidedAt,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to decide stage", err,
			"request_id", in.RequestID,
			"actor_id", in.ActorID,
			"role", role.String(),
			"stage", in.Stage,
			"decision", in.Decision,
		)
		return nil, err
	}

	s.logger.Info("Stage decided",
		"request_id", in.RequestID,
		"stage", outcome.Stage,
		"decision", outcome.Decision,
		"role", role.String(),
		"status", outcome.Status,
	)

	decidedEvt := event.StageDecided{
		RequestID:  in.RequestID,
		Stage:      outcome.Stage,
		Decision:   outcome.Decision.State(),
		ActingRole: role,
		Remark:     outcome.Remark,
		Timestamp:  outcome.DecidedAt,
	}.Event("")
	s.publish(ctx, decidedEvt)

	if outcome.Finalized {
		s.publish(ctx, event.RequestFinalized{
			RequestID: in.RequestID,
			Outcome:   outcome.Status,
		}.Event(decidedEvt.CorrelationID))
	}

	return outcome.Request, nil
}

func historyAction(d workflow.Decision) string {
	if d == workflow.DecisionRejected {
		return entity.HistoryActionReject
	}
	return entity.HistoryActionApprove
}

// ListActionable returns the in-progress requests the actor may decide right now
func (s *requestServiceImpl) ListActionable(ctx context.Context, actorID string, limit, offset int) ([]*entity.Request, error) {
	role, err := s.users.RoleOf(ctx, actorID)
	if err != nil {
		s.logFailure("Failed to resolve actor role", err, "actor_id", actorID)
		return nil, err
	}

	// only requests with a pending stage this role could own are candidates;
	// the gate then applies upstream ordering
	var candidates []entity.Stage
	switch own, ok := role.Stage(); {
	case role.IsAdmin():
		candidates = entity.CanonicalStages()
	case ok:
		candidates = []entity.Stage{own}
	default:
		return []*entity.Request{}, nil
	}

	open, err := s.requestRepo.List(ctx, port.RequestFilter{
		Status:        entity.RequestInProgress,
		PendingStages: candidates,
	})
	if err != nil {
		s.logger.Error("Failed to list open requests", "error", err)
		return nil, err
	}

	actionable := make([]*entity.Request, 0)
	for _, req := range open {
		if s.gate.CanApprove(role, req) {
			actionable = append(actionable, req)
		}
	}

	return page(actionable, limit, offset), nil
}

// PreviewRouting resolves the routing a new request would get
func (s *requestServiceImpl) PreviewRouting(t entity.RequestType, role entity.Role, department string) (*workflow.Routing, error) {
	return s.gate.Router().Resolve(t, role, department)
}

func (s *requestServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	s.events.DispatchAsync(ctx, evt)
}

// logFailure logs caller-side refusals at info and everything else at error
func (s *requestServiceImpl) logFailure(msg string, err error, keysAndValues ...interface{}) {
	kv := append([]interface{}{"error", err}, keysAndValues...)
	if workflow.IsClientError(err) || workflow.IsNotFound(err) || errors.Is(err, context.Canceled) {
		s.logger.Info(msg, kv...)
		return
	}
	s.logger.Error(msg, kv...)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
