package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-analyzer/internal/shared/telemetry"
)

func TestErrorBodyAndLogLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "client error", status: http.StatusNotFound, wantLevel: "warn"},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			restore := telemetry.SetOutput(&logs)
			defer restore()

			r := gin.New()
			r.GET("/api/v1/analyses/:id", func(c *gin.Context) {
				Error(c, tt.status, "SOME_CODE", "something happened", gin.H{"id": c.Param("id")})
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/a-1", nil)
			req = req.WithContext(telemetry.WithRequestID(req.Context(), "req-1"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "SOME_CODE", body.Error.Code)
			assert.Equal(t, map[string]any{"id": "a-1"}, body.Error.Details)

			var line map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, "http.error", line["msg"])
			assert.Equal(t, "req-1", line["request_id"])
			assert.Equal(t, "/api/v1/analyses/:id", line["path"])
		})
	}
}
