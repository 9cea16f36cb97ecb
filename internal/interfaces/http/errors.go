package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrAlreadyDecided):
		return http.StatusConflict
	case workflow.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the standard envelope. Internal failures are
// logged with detail and reported generically.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
		if errors.Is(err, workflow.ErrUnknownRoutingCase) {
			msg = err.Error()
		}
	}

	resp := Response{Success: false, Error: msg}

	var balance *workflow.InsufficientBalanceError
	if errors.As(err, &balance) {
		resp.Data = gin.H{
			"leave_type": balance.LeaveType,
			"year":       balance.Year,
			"requested":  balance.Requested,
			"available":  balance.Available,
		}
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
