package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-router/pkg/utils"
)

// ActorHeader identifies the acting user. Authentication happens upstream.
const ActorHeader = "X-User-ID"

const actorKey = "actor_id"

// requireActor rejects API calls without a well-formed acting user
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if err := utils.ValidateUserID(actor); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid " + ActorHeader + " header",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// requireAdmin lets only users holding the Admin role through
func (h *Handlers) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetString(actorKey)
		user, err := h.deps.Users.GetByID(c.Request.Context(), actor)
		if err != nil {
			h.writeError(c, err)
			c.Abort()
			return
		}
		if !user.Role.IsAdmin() {
			h.logger.Info("Admin endpoint refused", "actor_id", actor, "role", user.Role.String())
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "admin role required",
			})
			return
		}
		c.Next()
	}
}
