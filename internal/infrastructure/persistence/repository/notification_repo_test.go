package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

func TestNotificationRepository_Outbox(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	requests := NewRequestRepository(db, zap.NewNop())
	repo := NewNotificationRepository(db, zap.NewNop())

	req := newRequest("emp-1", entity.TypeTravel, created, entity.StageFinance, entity.StageED)
	require.NoError(t, requests.Create(ctx, req))

	toUser := &entity.Notification{
		RequestID:       req.ID,
		EventID:         "evt-1",
		EventType:       "request.created",
		RecipientUserID: "emp-1",
		Message:         "Your request was submitted",
	}
	toRole := &entity.Notification{
		RequestID:     req.ID,
		EventID:       "evt-1",
		EventType:     "request.created",
		RecipientRole: entity.RoleFinance,
		Message:       "A request awaits the finance stage",
	}
	require.NoError(t, repo.Create(ctx, toUser))
	require.NoError(t, repo.Create(ctx, toRole))
	assert.Equal(t, entity.NotificationStatusPending, toUser.Status)

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "emp-1", pending[0].RecipientUserID)
	assert.Equal(t, entity.RoleFinance, pending[1].RecipientRole)

	require.NoError(t, repo.MarkSent(ctx, toUser.ID))
	require.NoError(t, repo.MarkFailed(ctx, toRole.ID, "smtp timeout"))
	assert.Error(t, repo.MarkSent(ctx, 999))

	pending, err = repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := repo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, entity.NotificationStatusSent, all[0].Status)
	assert.NotNil(t, all[0].SentAt)
	assert.Equal(t, entity.NotificationStatusFailed, all[1].Status)
	assert.Equal(t, "smtp timeout", all[1].ErrorMessage)
	assert.Nil(t, all[1].SentAt)
}
