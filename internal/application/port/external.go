package port

import (
	"context"
	"io"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// UserDirectory resolves the role and department of a user
type UserDirectory interface {
	RoleOf(ctx context.Context, userID string) (entity.Role, error)
	DepartmentOf(ctx context.Context, userID string) (string, error)
}

// LeaveBalance answers how many days of a leave type a user has left in a year
type LeaveBalance interface {
	AvailableBalance(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error)
}

// RegisterExporter writes a request register to w
type RegisterExporter interface {
	Export(ctx context.Context, w io.Writer, requests []*entity.Request) error
}
