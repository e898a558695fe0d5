package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMiddlewareEngine(token string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireBearer(token), WriteAudit(logger))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/runs", func(c *gin.Context) { Ok(c, nil, nil) })
	r.POST("/api/v1/chains/detect", func(c *gin.Context) { Error(c, http.StatusNotFound, "unknown user", nil) })
	return r
}

func serve(r *gin.Engine, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireBearer(t *testing.T) {
	r := newMiddlewareEngine("s3cret", nil)
	cases := []struct {
		path string
		auth string
		want int
	}{
		{"/healthz", "", http.StatusOK},
		{"/api/v1/runs", "", http.StatusUnauthorized},
		{"/api/v1/runs", "Bearer wrong", http.StatusUnauthorized},
		{"/api/v1/runs", "Basic s3cret", http.StatusUnauthorized},
		{"/api/v1/runs", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		if got := serve(r, http.MethodGet, tc.path, tc.auth); got != tc.want {
			t.Fatalf("%s auth=%q: status=%d want %d", tc.path, tc.auth, got, tc.want)
		}
	}

	open := newMiddlewareEngine("", nil)
	if got := serve(open, http.MethodGet, "/api/v1/runs", ""); got != http.StatusOK {
		t.Fatalf("empty token should disable auth, got %d", got)
	}
}

func TestWriteAuditLogsWritesOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newMiddlewareEngine("", zap.New(core))

	serve(r, http.MethodGet, "/api/v1/runs", "")
	serve(r, http.MethodPost, "/api/v1/chains/detect", "")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("level=%s", entries[0].Level)
	}
	if got := entries[0].ContextMap()["path"]; got != "/api/v1/chains/detect" {
		t.Fatalf("path=%v", got)
	}
}
