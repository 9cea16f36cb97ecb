package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/event"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// mockRequestRepo is an in-memory RequestRepository with a conditional DecideStage
type mockRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*entity.Request

	listFilters []port.RequestFilter

	createFunc      func(ctx context.Context, req *entity.Request) error
	decideStageFunc func(ctx context.Context, requestID int64, stage entity.StageStatus) error
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[int64]*entity.Request)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, req); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", workflow.ErrRequestNotFound, id)
	}
	return req.Clone(), nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFilters = append(m.listFilters, filter)
	var out []*entity.Request
	for _, req := range m.requests {
		if len(filter.PendingStages) > 0 && !hasPending(req, filter.PendingStages) {
			continue
		}
		if filter.Status != "" && req.Status() != filter.Status {
			continue
		}
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRequestRepo) DecideStage(ctx context.Context, requestID int64, stage entity.StageStatus, status entity.RequestStatus, updatedAt time.Time) error {
	if m.decideStageFunc != nil {
		if err := m.decideStageFunc(ctx, requestID, stage); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: %d", workflow.ErrRequestNotFound, requestID)
	}
	if req.Stages.Get(stage.Stage).State != entity.StagePending {
		return fmt.Errorf("%w: stage %s", workflow.ErrAlreadyDecided, stage.Stage)
	}
	req.Stages[stage.Stage] = stage
	req.UpdatedAt = updatedAt
	return nil
}

func (m *mockRequestRepo) put(req *entity.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req.Clone()
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []*entity.RequestHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.RequestHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, h)
	return nil
}

func (m *mockHistoryRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.RequestHistory
	for _, h := range m.entries {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*entity.Notification
	createFunc    func(ctx context.Context, n *entity.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.RequestID == requestID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.Status == entity.NotificationStatusPending {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	return m.setStatus(id, entity.NotificationStatusSent, "")
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return m.setStatus(id, entity.NotificationStatusFailed, errorMsg)
}

func (m *mockNotificationRepo) setStatus(id int64, status, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			n.Status = status
			n.ErrorMessage = msg
			return nil
		}
	}
	return fmt.Errorf("notification %d not found", id)
}

// mockDirectory implements port.UserDirectory over a fixed user map
type mockDirectory struct {
	users map[string]*entity.User
}

func newMockDirectory(users ...*entity.User) *mockDirectory {
	d := &mockDirectory{users: make(map[string]*entity.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (m *mockDirectory) RoleOf(ctx context.Context, userID string) (entity.Role, error) {
	u, ok := m.users[userID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", workflow.ErrUserNotFound, userID)
	}
	return u.Role, nil
}

func (m *mockDirectory) DepartmentOf(ctx context.Context, userID string) (string, error) {
	u, ok := m.users[userID]
	if !ok {
		return "", fmt.Errorf("%w: %s", workflow.ErrUserNotFound, userID)
	}
	return u.Department, nil
}

type mockBalance struct {
	availableFunc func(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error)
}

func (m *mockBalance) AvailableBalance(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error) {
	if m.availableFunc != nil {
		return m.availableFunc(ctx, userID, leaveType, year)
	}
	return 0, nil
}

type mockEntitlementRepo struct {
	entitlements map[string]int
	used         int
	getErr       error
}

func entitlementKey(userID string, t entity.RequestType, year int) string {
	return fmt.Sprintf("%s/%s/%d", userID, t, year)
}

func (m *mockEntitlementRepo) SetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year, days int) error {
	if m.entitlements == nil {
		m.entitlements = make(map[string]int)
	}
	m.entitlements[entitlementKey(userID, leaveType, year)] = days
	return nil
}

func (m *mockEntitlementRepo) GetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	days, ok := m.entitlements[entitlementKey(userID, leaveType, year)]
	return days, ok, nil
}

func (m *mockEntitlementRepo) UsedDays(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error) {
	return m.used, nil
}

// mockTxManager runs fn directly
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingDispatcher records dispatched events instead of running handlers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

var _ dispatcher.Dispatcher = (*recordingDispatcher)(nil)

func (r *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler) {}

func (r *recordingDispatcher) SubscribeNamed(event.Type, string, string, dispatcher.Handler) {}

func (r *recordingDispatcher) Unsubscribe(event.Type, string) {}

func (r *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = r.Dispatch(ctx, evt)
}

func (r *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo { return nil }

func (r *recordingDispatcher) Close() error { return nil }

func (r *recordingDispatcher) ofType(t event.Type) []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func hasPending(req *entity.Request, stages []entity.Stage) bool {
	for _, s := range stages {
		if req.Stages.Get(s).State == entity.StagePending {
			return true
		}
	}
	return false
}
