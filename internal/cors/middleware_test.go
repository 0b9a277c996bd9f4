package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/adapter/cache"
	"github.com/smallbiznis/portal-auth/internal/config"
	"github.com/smallbiznis/portal-auth/internal/domain"
)

func newTestEngine(projects map[string]domain.Project) *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := NewResolver(&fakeProjectRepo{projects: projects}, cache.NewMemoryStore(), zap.NewNop())
	cfg := config.Config{
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	engine := gin.New()
	engine.Use(Middleware(resolver, cfg))
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func TestMiddlewareNoOriginPassesThrough(t *testing.T) {
	engine := newTestEngine(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareAllowedOriginEchoed(t *testing.T) {
	engine := newTestEngine(map[string]domain.Project{
		"pk_live_1": {ID: 1, PublicKey: "pk_live_1", AllowedOrigins: []string{"https://app.example.com"}},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?public_key=pk_live_1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestMiddlewareDisallowedOriginRejected(t *testing.T) {
	engine := newTestEngine(map[string]domain.Project{
		"pk_live_1": {ID: 1, PublicKey: "pk_live_1", AllowedOrigins: []string{"https://app.example.com"}},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?public_key=pk_live_1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareEmptyAllowlistIsPermissive(t *testing.T) {
	engine := newTestEngine(map[string]domain.Project{
		"pk_live_1": {ID: 1, PublicKey: "pk_live_1"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?public_key=pk_live_1", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewarePreflightShortCircuits(t *testing.T) {
	engine := newTestEngine(map[string]domain.Project{
		"pk_live_1": {ID: 1, PublicKey: "pk_live_1", AllowedOrigins: []string{"https://app.example.com"}},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping?public_key=pk_live_1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
