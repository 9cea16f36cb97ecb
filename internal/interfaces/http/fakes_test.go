package http

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/application/service"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/event"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeRequests struct {
	createFunc     func(ctx context.Context, in service.CreateRequestInput) (*entity.Request, error)
	getFunc        func(ctx context.Context, id int64) (*entity.Request, error)
	listFunc       func(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error)
	historyFunc    func(ctx context.Context, id int64) ([]*entity.RequestHistory, error)
	canApproveFunc func(ctx context.Context, actorID string, id int64) (bool, error)
	decideFunc     func(ctx context.Context, in service.DecideInput) (*entity.Request, error)
	actionableFunc func(ctx context.Context, actorID string, limit, offset int) ([]*entity.Request, error)
	routingFunc    func(t entity.RequestType, role entity.Role, department string) (*workflow.Routing, error)
}

func (f *fakeRequests) CreateRequest(ctx context.Context, in service.CreateRequestInput) (*entity.Request, error) {
	return f.createFunc(ctx, in)
}

func (f *fakeRequests) GetRequest(ctx context.Context, id int64) (*entity.Request, error) {
	if f.getFunc == nil {
		return nil, fmt.Errorf("%w: %d", workflow.ErrRequestNotFound, id)
	}
	return f.getFunc(ctx, id)
}

func (f *fakeRequests) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	return f.listFunc(ctx, filter)
}

func (f *fakeRequests) History(ctx context.Context, id int64) ([]*entity.RequestHistory, error) {
	return f.historyFunc(ctx, id)
}

func (f *fakeRequests) CanApprove(ctx context.Context, actorID string, id int64) (bool, error) {
	return f.canApproveFunc(ctx, actorID, id)
}

func (f *fakeRequests) Decide(ctx context.Context, in service.DecideInput) (*entity.Request, error) {
	return f.decideFunc(ctx, in)
}

func (f *fakeRequests) ListActionable(ctx context.Context, actorID string, limit, offset int) ([]*entity.Request, error) {
	return f.actionableFunc(ctx, actorID, limit, offset)
}

func (f *fakeRequests) PreviewRouting(t entity.RequestType, role entity.Role, department string) (*workflow.Routing, error) {
	return f.routingFunc(t, role, department)
}

type fakeNotifications struct {
	pending    []*entity.Notification
	sent       []int64
	failed     map[int64]string
	markErr    error
	forRequest map[int64][]*entity.Notification
}

func (f *fakeNotifications) Register(dispatcher.Dispatcher) {}

func (f *fakeNotifications) HandleRequestCreated(context.Context, *event.Event) error   { return nil }
func (f *fakeNotifications) HandleStageDecided(context.Context, *event.Event) error     { return nil }
func (f *fakeNotifications) HandleRequestFinalized(context.Context, *event.Event) error { return nil }

func (f *fakeNotifications) ListPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeNotifications) ListForRequest(ctx context.Context, id int64) ([]*entity.Notification, error) {
	return f.forRequest[id], nil
}

func (f *fakeNotifications) MarkSent(ctx context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeNotifications) MarkFailed(ctx context.Context, id int64, reason string) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.failed == nil {
		f.failed = make(map[int64]string)
	}
	f.failed[id] = reason
	return nil
}

type entitlementKey struct {
	userID string
	t      entity.RequestType
	year   int
}

type fakeLeave struct {
	available    map[entitlementKey]int
	entitlements map[entitlementKey]int
}

func (f *fakeLeave) AvailableBalance(ctx context.Context, userID string, t entity.RequestType, year int) (int, error) {
	return f.available[entitlementKey{userID, t, year}], nil
}

func (f *fakeLeave) SetEntitlement(ctx context.Context, userID string, t entity.RequestType, year, days int) error {
	if days < 0 {
		return fmt.Errorf("%w: negative entitlement", workflow.ErrInvalidRequest)
	}
	if f.entitlements == nil {
		f.entitlements = make(map[entitlementKey]int)
	}
	f.entitlements[entitlementKey{userID, t, year}] = days
	return nil
}

type fakeUsers struct {
	users map[string]*entity.User
}

func (f *fakeUsers) Upsert(ctx context.Context, user *entity.User) error {
	if f.users == nil {
		f.users = make(map[string]*entity.User)
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUserNotFound, id)
	}
	return user, nil
}

func (f *fakeUsers) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeExporter struct {
	exported []*entity.Request
}

func (f *fakeExporter) Export(ctx context.Context, w io.Writer, requests []*entity.Request) error {
	f.exported = requests
	_, err := w.Write([]byte("PK"))
	return err
}
