package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"resume-gap-analyzer/internal/analyses"
	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/shared/config"
)

func newTestRouter(token string) http.Handler {
	svc := &analyses.Service{
		Repo:     analyses.NewMemoryRepo(),
		Analyzer: func(string) *gapanalysis.Orchestrator { return &gapanalysis.Orchestrator{} },
	}
	return NewRouter(RouterDeps{
		Config:          config.Config{APIToken: token},
		AnalysisHandler: analyses.NewHandler(svc, nil),
	})
}

func TestRouterHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter("s3cret")

	for _, path := range []string{"/api/v1/health", "/metrics"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestRouterProtectsAnalyses(t *testing.T) {
	r := newTestRouter("s3cret")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses",
		strings.NewReader(`{"resumeText":"Jane Smith\n- Python developer","targetRole":"Backend Engineer"}`))
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
