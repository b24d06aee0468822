package middleware

import "github.com/labstack/echo/v4"

// Context keys used to store authentication metadata.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
)

// UserIDFromContext returns the authenticated subject, or "" for anonymous callers.
func UserIDFromContext(c echo.Context) string {
	if val, ok := c.Get(ContextKeyUserID).(string); ok {
		return val
	}
	return ""
}
