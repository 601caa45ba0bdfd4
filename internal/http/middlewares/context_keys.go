package middlewares

import "github.com/gin-gonic/gin"

// gin context keys set by this package
const (
	CtxRequestID = "request_id"
	CtxUser      = "auth.user"
	CtxUserID    = "auth.userID"
	CtxToken     = "auth.token"
)

// abortEnvelope writes the same body shape as handlers.RespondFailure.
// Middlewares cannot import handlers without a cycle.
func abortEnvelope(c *gin.Context, status int, message string, errs any) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  false,
		"message": message,
		"data":    nil,
		"errors":  errs,
	})
}
