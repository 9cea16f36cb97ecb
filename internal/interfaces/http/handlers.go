package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/application/service"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
	"github.com/garyjia/approval-router/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
	now    func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	status := http.StatusOK
	if h.deps.Health != nil {
		healthy, details := h.deps.Health(c.Request.Context())
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    resp,
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	t, err := entity.ParseRequestType(body.Type)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	in := service.CreateRequestInput{
		RequesterID:   c.GetString(actorKey),
		Type:          t,
		Details:       body.Details,
		DaysApplied:   body.DaysApplied,
		AttachmentRef: body.AttachmentRef,
	}
	if body.Amount != "" {
		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			badRequest(c, "invalid amount: "+body.Amount)
			return
		}
		in.Amount = &amount
	}

	req, err := h.deps.Requests.CreateRequest(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	requests, err := h.deps.Requests.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponses(requests),
	})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	req, err := h.deps.Requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	history, err := h.deps.Requests.History(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toHistoryResponses(history),
	})
}

// ListRequestNotifications handles GET /api/requests/:id/notifications
func (h *Handlers) ListRequestNotifications(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	notifications, err := h.deps.Notifications.ListForRequest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if notifications == nil {
		notifications = []*entity.Notification{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    notifications,
	})
}

// CanApprove handles GET /api/requests/:id/can-approve
func (h *Handlers) CanApprove(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	allowed, err := h.deps.Requests.CanApprove(c.Request.Context(), c.GetString(actorKey), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"request_id": id, "can_approve": allowed},
	})
}

// Decide handles POST /api/requests/:id/decisions
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	decision, err := workflow.ParseDecision(body.Decision)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var stage entity.Stage
	if body.Stage != "" {
		stage, err = entity.ParseStage(strings.ToLower(strings.TrimSpace(body.Stage)))
		if err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	remark, err := utils.SanitizeRemark(body.Remark)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.deps.Requests.Decide(c.Request.Context(), service.DecideInput{
		RequestID: id,
		ActorID:   c.GetString(actorKey),
		Stage:     stage,
		Decision:  decision,
		Remark:    remark,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// Inbox handles GET /api/inbox: requests the acting user may decide right now
func (h *Handlers) Inbox(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	requests, err := h.deps.Requests.ListActionable(c.Request.Context(), c.GetString(actorKey), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponses(requests),
	})
}

// PreviewRouting handles GET /api/routing?type=&role=&department=
func (h *Handlers) PreviewRouting(c *gin.Context) {
	t, err := entity.ParseRequestType(c.Query("type"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	role, err := parseRole(c.Query("role"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	routing, err := h.deps.Requests.PreviewRouting(t, role, c.Query("department"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    routing,
	})
}

// LeaveBalance handles GET /api/leave/balance?type=&year= for the acting user
func (h *Handlers) LeaveBalance(c *gin.Context) {
	t, err := entity.ParseRequestType(c.Query("type"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	year := h.now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid year: "+raw)
			return
		}
	}

	actor := c.GetString(actorKey)
	available, err := h.deps.Leave.AvailableBalance(c.Request.Context(), actor, t, year)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"user_id":    actor,
			"leave_type": t,
			"year":       year,
			"available":  available,
		},
	})
}

// ExportRegister handles GET /api/reports/register.xlsx
func (h *Handlers) ExportRegister(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	// the register is a full export unless the caller pages explicitly
	if c.Query("limit") == "" {
		filter.Limit = 0
	}

	requests, err := h.deps.Requests.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.deps.Exporter.Export(c.Request.Context(), &buf, requests); err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("register-%s.xlsx", h.now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) bindFilter(c *gin.Context) (port.RequestFilter, bool) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return port.RequestFilter{}, false
	}

	filter := port.RequestFilter{
		RequesterID: q.RequesterID,
		Limit:       clampLimit(q.Limit),
		Offset:      q.Offset,
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if q.Status != "" {
		status := entity.RequestStatus(q.Status)
		switch status {
		case entity.RequestInProgress, entity.RequestApproved, entity.RequestRejected:
			filter.Status = status
		default:
			badRequest(c, "invalid status: "+q.Status)
			return port.RequestFilter{}, false
		}
	}
	if q.Type != "" {
		t, err := entity.ParseRequestType(q.Type)
		if err != nil {
			badRequest(c, err.Error())
			return port.RequestFilter{}, false
		}
		filter.Type = t
	}
	return filter, true
}

func requestID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid request ID")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int, bool) {
	var q struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return 0, 0, false
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return clampLimit(q.Limit), q.Offset, true
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return defaultPageSize
	}
	return limit
}

// parseRole accepts a numeric identity or a role name
func parseRole(raw string) (entity.Role, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		role := entity.Role(n)
		if !role.IsValid() {
			return 0, fmt.Errorf("unknown role: %d", n)
		}
		return role, nil
	}
	return entity.ParseRole(raw)
}
