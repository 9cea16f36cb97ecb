package port

import (
	"context"
	"time"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// RequestFilter narrows a request listing. Zero values mean no filter.
type RequestFilter struct {
	RequesterID string
	Status      entity.RequestStatus
	Type        entity.RequestType
	// PendingStages keeps requests with at least one of these stages pending
	PendingStages []entity.Stage
	Limit         int
	Offset        int
}

// RequestRepository defines persistence operations for Request and its five stages
type RequestRepository interface {
	// Create inserts the request and all five stage rows, and sets req.ID
	Create(ctx context.Context, req *entity.Request) error

	// GetByID loads a request with its stages. Wraps workflow.ErrRequestNotFound when missing.
	GetByID(ctx context.Context, id int64) (*entity.Request, error)

	// List returns requests matching the filter, newest first
	List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error)

	// DecideStage moves one stage out of pending and stores the derived request status.
	// The write only applies while the stage is still pending; otherwise it wraps
	// workflow.ErrAlreadyDecided and nothing changes.
	DecideStage(ctx context.Context, requestID int64, stage entity.StageStatus, status entity.RequestStatus, updatedAt time.Time) error
}

// HistoryRepository defines persistence operations for RequestHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.RequestHistory) error
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error)
}

// NotificationRepository defines persistence operations for the notification outbox
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Notification, error)
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// UserRepository defines persistence operations for the user directory
type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
}

// LeaveEntitlementRepository defines persistence operations for yearly leave entitlements
type LeaveEntitlementRepository interface {
	// SetEntitlement stores the yearly entitlement for one user and leave type
	SetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year, days int) error

	// GetEntitlement returns the stored entitlement and whether a row exists
	GetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, bool, error)

	// UsedDays sums the days of approved requests of a leave type created in year
	UsedDays(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
