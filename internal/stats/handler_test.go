package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
	"github.com/SlpAus/spam-clicker-backend/internal/user"
)

type stubLimiter struct {
	allow bool
	err   error
	calls []int64
}

func (l *stubLimiter) Allow(ctx context.Context, userID string, clicks int64) (bool, error) {
	l.calls = append(l.calls, clicks)
	return l.allow, l.err
}

func newTestRouter(t *testing.T, limiter Limiter) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStore()
	catalog, err := achievement.NewCatalog(achievement.Defaults())
	require.NoError(t, err)
	engine := NewEngine(store, catalog, WithClock(newFakeClock(day0)))

	r := gin.New()
	NewHandler(engine, limiter, zap.NewNop()).RegisterRoutes(r.Group("/api"))
	return r, store
}

func postJSON(r http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUpdateSpamCountEndToEnd(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.NotContains(t, body, "error")
	assert.Equal(t, "ok", body["status"])
	userStats := body["userStats"].(map[string]any)
	assert.Equal(t, float64(1), userStats["total_clicks"])
	assert.Equal(t, float64(1), userStats["streak_days"])
	assert.Equal(t, "2026-03-10", userStats["last_click_date"])
	globalStats := body["globalStats"].(map[string]any)
	assert.Equal(t, float64(1), globalStats["total_spam_count"])
	assert.Equal(t, float64(1), globalStats["total_users"])
	assert.Equal(t, float64(1), body["leaderboardPosition"])

	newAchievements := body["newAchievements"].([]any)
	require.Len(t, newAchievements, 1)
	first := newAchievements[0].(map[string]any)
	assert.Equal(t, "SPAM Beginner", first["title"])
	assert.Equal(t, float64(1), first["threshold"])
}

func TestUpdateSpamCountMissingUserID(t *testing.T) {
	r, store := newTestRouter(t, nil)

	w := postJSON(r, "/api/updateSpamCount", `{"clickCount":3}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	assert.Equal(t, msgUserIDRequired, body["error"])
	assert.Equal(t, map[string]any{"total_clicks": float64(0), "streak_days": float64(0), "last_click_date": nil}, body["userStats"])
	assert.Equal(t, map[string]any{"total_spam_count": float64(0), "total_users": float64(0)}, body["globalStats"])
	assert.Nil(t, body["leaderboardPosition"])
	assert.Equal(t, []any{}, body["newAchievements"])

	g, err := store.GetGlobalStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.TotalSpamCount)
}

func TestUpdateSpamCountCoercesClickCount(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":"12"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(12), decode(t, w)["userStats"].(map[string]any)["total_clicks"])

	w = postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":-4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(13), decode(t, w)["userStats"].(map[string]any)["total_clicks"])

	w = postJSON(r, "/api/updateSpamCount", `{"userId":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(14), decode(t, w)["userStats"].(map[string]any)["total_clicks"])
}

func TestUpdateSpamCountFallsBackToCookie(t *testing.T) {
	r, store := newTestRouter(t, nil)
	id, err := user.CreateProvisionalUser()
	require.NoError(t, err)

	w := postJSON(r, "/api/updateSpamCount", `{"clickCount":2}`, &http.Cookie{Name: user.CookieName, Value: id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "error")

	u, err := store.GetUserStats(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(2), u.TotalClicks)
}

func TestUpdateSpamCountBlankUserIDFallsBackToCookie(t *testing.T) {
	r, store := newTestRouter(t, nil)
	id, err := user.CreateProvisionalUser()
	require.NoError(t, err)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"   ","clickCount":2}`, &http.Cookie{Name: user.CookieName, Value: id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "error")

	u, err := store.GetUserStats(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(2), u.TotalClicks)

	w = postJSON(r, "/api/getUserStats", `{"userId":"\t"}`, &http.Cookie{Name: user.CookieName, Value: id})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "error")
	assert.Equal(t, float64(2), body["userStats"].(map[string]any)["total_clicks"])
}

func TestUpdateSpamCountHugeClickCountIsCapped(t *testing.T) {
	r, store := newTestRouter(t, nil)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":"99999999999999999999"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "error")
	assert.Equal(t, float64(DefaultMaxClicksPerRequest), body["userStats"].(map[string]any)["total_clicks"])
	assert.Equal(t, int64(DefaultMaxClicksPerRequest), store.EventCount("alice"))
}

func TestUpdateSpamCountInvalidBody(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := postJSON(r, "/api/updateSpamCount", `{"userId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgInvalidBody, decode(t, w)["error"])
}

func TestUpdateSpamCountStoreFailure(t *testing.T) {
	r, store := newTestRouter(t, nil)
	store.FailNextTx(errors.New("disk full"))

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, msgRecordFailed, body["error"])
	assert.Equal(t, "failed", body["status"])

	u, err := store.GetUserStats(t.Context(), "alice")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdateSpamCountRateLimited(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	r, store := newTestRouter(t, limiter)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":7}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, msgRateLimited, decode(t, w)["error"])
	assert.Equal(t, []int64{7}, limiter.calls)

	u, err := store.GetUserStats(t.Context(), "alice")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdateSpamCountLimiterFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}
	r, _ := newTestRouter(t, limiter)

	w := postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":2}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "error")
}

func TestGetUserStatsHandler(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	postJSON(r, "/api/updateSpamCount", `{"userId":"alice","clickCount":10}`)

	w := postJSON(r, "/api/getUserStats", `{"userId":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(10), body["userStats"].(map[string]any)["total_clicks"])

	achievements := body["achievements"].([]any)
	require.Len(t, achievements, 2)
	assert.Equal(t, float64(10), achievements[0].(map[string]any)["threshold"])
	assert.Equal(t, float64(1), achievements[1].(map[string]any)["threshold"])
}

func TestGetUserStatsUnknownAndMissing(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := postJSON(r, "/api/getUserStats", `{"userId":"ghost"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "error")
	assert.Equal(t, map[string]any{"total_clicks": float64(0), "streak_days": float64(0), "last_click_date": nil}, body["userStats"])
	assert.Equal(t, []any{}, body["achievements"])
	assert.Nil(t, body["leaderboardPosition"])

	w = postJSON(r, "/api/getUserStats", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, msgUserIDRequired, body["error"])
	assert.Equal(t, []any{}, body["achievements"])
}

func TestGetLeaderboardHandler(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	postJSON(r, "/api/updateSpamCount", `{"userId":"a","clickCount":50}`)
	postJSON(r, "/api/updateSpamCount", `{"userId":"b","clickCount":50}`)
	postJSON(r, "/api/updateSpamCount", `{"userId":"c","clickCount":30}`)

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entries := decode(t, w)["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(1), entries[1].(map[string]any)["rank"])

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=abc", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
