package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/session", EnsureUserCookieMiddleware(zap.NewNop()), SessionHandler)
	r.GET("/whoami", LoadUserMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c))
	})
	return r
}

func TestSessionProvisionsCookie(t *testing.T) {
	r := newSessionRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, IsValidUUID(body["userId"]))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, body["userId"], cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionKeepsValidCookie(t *testing.T) {
	r := newSessionRouter()
	id, err := CreateProvisionalUser()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
	assert.Contains(t, w.Body.String(), id)
}

func TestSessionReplacesInvalidCookie(t *testing.T) {
	r := newSessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "not-a-uuid", cookies[0].Value)
	assert.True(t, IsValidUUID(cookies[0].Value))
}

func TestLoadUserIgnoresInvalidCookie(t *testing.T) {
	r := newSessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "", w.Body.String())

	id, err := CreateProvisionalUser()
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())
}
