package http

import (
	"time"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// CreateRequestBody is the payload of POST /api/requests
type CreateRequestBody struct {
	Type          string            `json:"type" binding:"required"`
	Details       map[string]string `json:"details"`
	Amount        string            `json:"amount"`
	DaysApplied   int               `json:"days_applied"`
	AttachmentRef string            `json:"attachment_ref"`
}

// DecisionBody is the payload of POST /api/requests/:id/decisions
type DecisionBody struct {
	Decision string `json:"decision" binding:"required"`
	Stage    string `json:"stage"`
	Remark   string `json:"remark"`
}

// UserBody is the payload of PUT /api/admin/users/:id
type UserBody struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
}

// EntitlementBody is the payload of PUT /api/admin/entitlements
type EntitlementBody struct {
	UserID    string `json:"user_id" binding:"required"`
	LeaveType string `json:"leave_type" binding:"required"`
	Year      int    `json:"year" binding:"required"`
	Days      int    `json:"days"`
}

// FailureBody is the payload of POST /api/admin/notifications/:id/failed
type FailureBody struct {
	Error string `json:"error" binding:"required"`
}

// ListQuery holds the filters of GET /api/requests
type ListQuery struct {
	RequesterID string `form:"requester_id"`
	Status      string `form:"status"`
	Type        string `form:"type"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// StageResponse represents one stage of a request
type StageResponse struct {
	Stage     string  `json:"stage"`
	State     string  `json:"state"`
	Remark    string  `json:"remark,omitempty"`
	DecidedAt *string `json:"decided_at,omitempty"`
	DecidedBy string  `json:"decided_by,omitempty"`
}

// RequestResponse represents a request in API responses
type RequestResponse struct {
	ID                  int64             `json:"id"`
	RequesterID         string            `json:"requester_id"`
	Type                string            `json:"type"`
	RequesterRole       string            `json:"requester_role"`
	RequesterDepartment string            `json:"requester_department,omitempty"`
	Status              string            `json:"status"`
	Stages              []StageResponse   `json:"stages"`
	Details             map[string]string `json:"details,omitempty"`
	Amount              string            `json:"amount,omitempty"`
	DaysApplied         int               `json:"days_applied,omitempty"`
	AttachmentRef       string            `json:"attachment_ref,omitempty"`
	CreatedAt           string            `json:"created_at"`
	UpdatedAt           string            `json:"updated_at"`
}

// HistoryResponse represents one audit trail entry
type HistoryResponse struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Stage     string `json:"stage,omitempty"`
	Action    string `json:"action"`
	Remark    string `json:"remark,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toRequestResponse(req *entity.Request) RequestResponse {
	resp := RequestResponse{
		ID:                  req.ID,
		RequesterID:         req.RequesterID,
		Type:                req.Type.String(),
		RequesterRole:       req.RequesterRole.String(),
		RequesterDepartment: req.RequesterDepartment,
		Status:              string(req.Status()),
		Details:             req.Details,
		DaysApplied:         req.DaysApplied,
		AttachmentRef:       req.AttachmentRef,
		CreatedAt:           req.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           req.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if req.Amount != nil {
		resp.Amount = req.Amount.StringFixed(2)
	}

	for _, st := range req.Stages.Ordered() {
		stage := StageResponse{
			Stage:  st.Stage.String(),
			State:  st.State.String(),
			Remark: st.Remark,
		}
		if st.DecidedAt != nil {
			at := st.DecidedAt.UTC().Format(time.RFC3339)
			stage.DecidedAt = &at
		}
		if st.DecidedBy != 0 {
			stage.DecidedBy = st.DecidedBy.String()
		}
		resp.Stages = append(resp.Stages, stage)
	}
	return resp
}

func toRequestResponses(requests []*entity.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestResponse(req))
	}
	return out
}

func toHistoryResponses(history []*entity.RequestHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, HistoryResponse{
			ActorID:   h.ActorID,
			ActorRole: h.ActorRole.String(),
			Stage:     h.Stage.String(),
			Action:    h.Action,
			Remark:    h.Remark,
			Timestamp: h.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}
