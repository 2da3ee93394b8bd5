// Package respond writes the API's JSON bodies.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-gap-analyzer/internal/shared/telemetry"
)

// ErrorBody is the object under the "error" key of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error aborts the request with an ErrorResponse. Client errors are logged
// as warnings and server errors as errors.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"request_id": telemetry.RequestID(c.Request.Context()),
	}
	if fields["path"] == "" {
		fields["path"] = c.Request.URL.Path
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
