package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/health"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/startup"
	"github.com/SlpAus/spam-clicker-backend/internal/user"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Cors: config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}}},
		Clicks: config.ClicksConfig{Timezone: "UTC"},
	}
	engine, err := startup.InitializeApplication(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	return NewRouter(Dependencies{
		Config: cfg,
		Engine: engine,
		Health: health.NewChecker(nil, nil, zap.NewNop()),
		Logger: zap.NewNop(),
	})
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterServesAchievements(t *testing.T) {
	r := newRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/achievements", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Achievements []struct {
			Title     string `json:"title"`
			Threshold int64  `json:"threshold"`
		} `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Achievements, 5)
	assert.Equal(t, int64(1), body.Achievements[0].Threshold)
	assert.Equal(t, int64(10000), body.Achievements[4].Threshold)
}

func TestRouterSessionThenClick(t *testing.T) {
	r := newRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == user.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, user.IsValidUUID(cookie.Value))

	req := httptest.NewRequest(http.MethodPost, "/api/updateSpamCount", strings.NewReader(`{"clickCount":3}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, float64(3), result["globalStats"].(map[string]any)["total_spam_count"])
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := newRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouterCorsPreflight(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/updateSpamCount", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
