package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/pkg/utils"
)

// UpsertUser handles PUT /api/admin/users/:id
func (h *Handlers) UpsertUser(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateUserID(id); err != nil {
		badRequest(c, err.Error())
		return
	}

	var body UserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	role, err := parseRole(body.Role)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if body.Email != "" {
		if err := utils.ValidateEmail(body.Email); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	user := &entity.User{
		ID:         id,
		Name:       utils.SanitizeString(body.Name),
		Email:      body.Email,
		Role:       role,
		Department: utils.SanitizeString(body.Department),
	}
	if err := h.deps.Users.Upsert(c.Request.Context(), user); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("User upserted", "user_id", id, "role", role.String(), "by", c.GetString(actorKey))
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    user,
	})
}

// SetEntitlement handles PUT /api/admin/entitlements
func (h *Handlers) SetEntitlement(c *gin.Context) {
	var body EntitlementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	t, err := entity.ParseRequestType(body.LeaveType)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.deps.Leave.SetEntitlement(c.Request.Context(), body.UserID, t, body.Year, body.Days); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"user_id":    body.UserID,
			"leave_type": t,
			"year":       body.Year,
			"days":       body.Days,
		},
	})
}

// ListPendingNotifications handles GET /api/admin/notifications/pending
func (h *Handlers) ListPendingNotifications(c *gin.Context) {
	limit, _, ok := pagination(c)
	if !ok {
		return
	}

	pending, err := h.deps.Notifications.ListPending(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if pending == nil {
		pending = []*entity.Notification{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    pending,
	})
}

// MarkNotificationSent handles POST /api/admin/notifications/:id/sent
func (h *Handlers) MarkNotificationSent(c *gin.Context) {
	id, ok := notificationID(c)
	if !ok {
		return
	}

	if err := h.deps.Notifications.MarkSent(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "status": entity.NotificationStatusSent}})
}

// MarkNotificationFailed handles POST /api/admin/notifications/:id/failed
func (h *Handlers) MarkNotificationFailed(c *gin.Context) {
	id, ok := notificationID(c)
	if !ok {
		return
	}

	var body FailureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.deps.Notifications.MarkFailed(c.Request.Context(), id, body.Error); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "status": entity.NotificationStatusFailed}})
}

func notificationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid notification ID")
		return 0, false
	}
	return id, true
}
