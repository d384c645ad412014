package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "ledgerbook/internal/core/context"
)

// UserContext tags the active span with the authenticated actor.
//
// Must run AFTER Auth, which puts the user into the request context.
//
//	protected.Use(middleware.Auth(cfg.JWTValidator))
//	protected.Use(middleware.UserContext())
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := appctx.GetUser(c.Request.Context()); user != nil {
			span := trace.SpanFromContext(c.Request.Context())
			span.SetAttributes(attribute.String("enduser.id", user.UserID))
			if user.SessionID != "" {
				span.SetAttributes(attribute.String("session.id", user.SessionID))
			}
		}
		c.Next()
	}
}
