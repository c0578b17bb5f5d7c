package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/purchasedesk/internal/observability"
)

type stubMounter struct{}

func (stubMounter) MountRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORKSPACE_IDLE_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 5*time.Minute, cfg.WorkspaceIdleTTL)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, int32(10), cfg.PGMaxConns)
	require.Equal(t, 10*time.Minute, cfg.CatalogCacheTTL)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "0")
	t.Setenv("WORKER_CONCURRENCY", "-1")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "pg max conns")
	require.Contains(t, err.Error(), "worker concurrency")
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestRouterMountsHandlersUnderAPI(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Config:            &Config{AppEnv: "test", RateLimitPerMinute: 100},
		Metrics:           metrics,
		MasterDataHandler: stubMounter{},
		JobHandler:        stubMounter{},
	})

	for path, want := range map[string]int{
		"/healthz":             http.StatusOK,
		"/api/masterdata/ping": http.StatusOK,
		"/api/jobs/ping":       http.StatusOK,
		"/api/workspaces":      http.StatusNotFound,
		"/metrics":             http.StatusOK,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, want, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rr.Header().Get("X-Frame-Options"))
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
