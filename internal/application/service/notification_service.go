package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/event"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// NotificationService turns domain events into outbox rows for the delivery collaborator
type NotificationService interface {
	// Register subscribes the service to the events it consumes
	Register(d dispatcher.Dispatcher)

	HandleRequestCreated(ctx context.Context, evt *event.Event) error
	HandleStageDecided(ctx context.Context, evt *event.Event) error
	HandleRequestFinalized(ctx context.Context, evt *event.Event) error

	ListPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	ListForRequest(ctx context.Context, requestID int64) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type notificationServiceImpl struct {
	requestRepo      port.RequestRepository
	notificationRepo port.NotificationRepository
	router           *workflow.Router
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requestRepo port.RequestRepository,
	notificationRepo port.NotificationRepository,
	router *workflow.Router,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requestRepo:      requestRepo,
		notificationRepo: notificationRepo,
		router:           router,
		logger:           logger,
	}
}

// Register subscribes the service to the events it consumes
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequestCreated, "notification.request_created",
		"notify requester and first approvers", s.HandleRequestCreated)
	d.SubscribeNamed(event.TypeStageDecided, "notification.stage_decided",
		"notify requester and next approvers", s.HandleStageDecided)
	d.SubscribeNamed(event.TypeRequestFinalized, "notification.request_finalized",
		"notify requester of the outcome", s.HandleRequestFinalized)
}

// HandleRequestCreated confirms submission and alerts the first approvers
func (s *notificationServiceImpl) HandleRequestCreated(ctx context.Context, evt *event.Event) error {
	created, ok := event.AsRequestCreated(evt)
	if !ok {
		return fmt.Errorf("unexpected event type %s", evt.Type)
	}

	req, err := s.requestRepo.GetByID(ctx, created.RequestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", created.RequestID)
		return fmt.Errorf("get request: %w", err)
	}

	msg := fmt.Sprintf("Your %s #%d was submitted", req.Type, req.ID)
	if err := s.notifyUser(ctx, evt, req.RequesterID, msg); err != nil {
		return err
	}
	return s.notifyNextApprovers(ctx, evt, req)
}

// HandleStageDecided tells the requester about the decision and alerts whoever is next
func (s *notificationServiceImpl) HandleStageDecided(ctx context.Context, evt *event.Event) error {
	decided, ok := event.AsStageDecided(evt)
	if !ok {
		return fmt.Errorf("unexpected event type %s", evt.Type)
	}

	req, err := s.requestRepo.GetByID(ctx, decided.RequestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", decided.RequestID)
		return fmt.Errorf("get request: %w", err)
	}

	msg := fmt.Sprintf("%s #%d: %s stage %s by %s", req.Type, req.ID, decided.Stage, decided.Decision, decided.ActingRole)
	if decided.Remark != "" {
		msg += fmt.Sprintf(" (%s)", decided.Remark)
	}
	if err := s.notifyUser(ctx, evt, req.RequesterID, msg); err != nil {
		return err
	}
	return s.notifyNextApprovers(ctx, evt, req)
}

// HandleRequestFinalized tells the requester the final outcome
func (s *notificationServiceImpl) HandleRequestFinalized(ctx context.Context, evt *event.Event) error {
	finalized, ok := event.AsRequestFinalized(evt)
	if !ok {
		return fmt.Errorf("unexpected event type %s", evt.Type)
	}

	req, err := s.requestRepo.GetByID(ctx, finalized.RequestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", finalized.RequestID)
		return fmt.Errorf("get request: %w", err)
	}

	msg := fmt.Sprintf("Your %s #%d was %s", req.Type, req.ID, finalized.Outcome)
	return s.notifyUser(ctx, evt, req.RequesterID, msg)
}

// notifyNextApprovers addresses the roles of every stage that just became actionable
func (s *notificationServiceImpl) notifyNextApprovers(ctx context.Context, evt *event.Event, req *entity.Request) error {
	routing, err := s.router.ResolveRequest(req)
	if err != nil {
		s.logger.Error("Cannot route notification", "error", err, "request_id", req.ID)
		return err
	}

	for _, stage := range routing.Actionable(req.Stages) {
		role, ok := entity.RoleForStage(stage)
		if !ok {
			continue
		}
		n := s.newNotification(evt, req.ID)
		n.RecipientRole = role
		n.Message = fmt.Sprintf("%s #%d awaits %s approval", req.Type, req.ID, stage)
		if err := s.store(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *notificationServiceImpl) notifyUser(ctx context.Context, evt *event.Event, userID, msg string) error {
	n := s.newNotification(evt, evt.RequestID)
	n.RecipientUserID = userID
	n.Message = msg
	return s.store(ctx, n)
}

func (s *notificationServiceImpl) newNotification(evt *event.Event, requestID int64) *entity.Notification {
	return &entity.Notification{
		RequestID: requestID,
		EventID:   evt.ID,
		EventType: evt.Type.String(),
		Status:    entity.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *notificationServiceImpl) store(ctx context.Context, n *entity.Notification) error {
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", "error", err, "request_id", n.RequestID, "event_id", n.EventID)
		return fmt.Errorf("create notification: %w", err)
	}
	s.logger.Info("Notification queued",
		"notification_id", n.ID,
		"request_id", n.RequestID,
		"event_type", n.EventType,
		"recipient_user_id", n.RecipientUserID,
		"recipient_role", n.RecipientRole.String(),
	)
	return nil
}

// ListPending returns undelivered notifications, oldest first
func (s *notificationServiceImpl) ListPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	return s.notificationRepo.GetPending(ctx, limit)
}

// ListForRequest returns all notifications of one request
func (s *notificationServiceImpl) ListForRequest(ctx context.Context, requestID int64) ([]*entity.Notification, error) {
	return s.notificationRepo.GetByRequestID(ctx, requestID)
}

// MarkSent records successful delivery
func (s *notificationServiceImpl) MarkSent(ctx context.Context, id int64) error {
	if err := s.notificationRepo.MarkSent(ctx, id); err != nil {
		s.logger.Error("Failed to mark notification sent", "error", err, "notification_id", id)
		return err
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (s *notificationServiceImpl) MarkFailed(ctx context.Context, id int64, reason string) error {
	if err := s.notificationRepo.MarkFailed(ctx, id, reason); err != nil {
		s.logger.Error("Failed to mark notification failed", "error", err, "notification_id", id)
		return err
	}
	return nil
}
