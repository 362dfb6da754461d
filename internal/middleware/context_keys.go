package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	// userIDKey holds the authenticated actor. It is set in the request context
	// so that services receive it through ctx as well as explicitly.
	userIDKey    = contextKey("userID")
	loggerCtxKey = contextKey("logger")
	requestIDKey = contextKey("requestID")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, ok := c.Request.Context().Value(userIDKey).(string); ok && userID != "" {
		return userID, true
	}
	return "", false
}

// WithUserID returns a copy of ctx carrying the acting user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetRequestIDFromCtx returns the request id assigned by StructuredLoggingMiddleware.
func GetRequestIDFromCtx(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
