package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Store failures keep the driver's message; anything that is not an AppError
// is reported as a generic internal error and logged in full.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		status, body := errorResponse(c)
		logError(c, status)
		c.JSON(status, body)
	}
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// errorResponse renders the last error on c. Shared with Idempotency so a
// cached failure replays byte for byte.
func errorResponse(c *gin.Context) (int, ErrorBody) {
	err := c.Errors.Last().Err

	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.HTTPStatus, ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	return http.StatusInternalServerError, ErrorBody{
		Code:    apperror.CodeInternal,
		Message: "Internal server error",
		Details: map[string]any{"request_id": c.GetString("request_id")},
	}
}

func logError(c *gin.Context, status int) {
	err := c.Errors.Last().Err
	appErr, ok := apperror.AsAppError(err)
	switch {
	case !ok:
		logger.Error(c.Request.Context(), "unhandled error", "error", err)
	case appErr.Err != nil || status >= http.StatusInternalServerError:
		logger.Error(c.Request.Context(), "request error",
			"code", appErr.Code,
			"message", appErr.Message,
			"cause", appErr.Err,
		)
	}
}
