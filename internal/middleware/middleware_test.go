package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskhub-service/internal/pkg/jwt"
	"taskhub-service/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type managerVerifier struct{ m *jwt.Manager }

func (v managerVerifier) VerifyAccess(_ context.Context, token string) (*jwt.Claims, error) {
	return v.m.Verify(token)
}

func newManager(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.LoadAndBuild(jwt.Config{
		Secret:    "middleware-secret-0123456789abcdef",
		Issuer:    "taskhub",
		AccessTTL: time.Minute,
	}, nil)
	require.NoError(t, err)
	return m
}

func newEngine(mw *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw.Auth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": MustGetUserID(c), "admin": IsAdmin(c)})
	})
	r.GET("/admin", append(mw.AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	m := newManager(t)
	r := newEngine(NewAuthMiddleware(managerVerifier{m}))

	token, _, err := m.Issue(jwt.Identity{UserID: "u-1", Email: "a@example.com", Role: jwt.RoleUser}, 0)
	require.NoError(t, err)

	w := do(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body["id"])
	assert.Equal(t, false, body["admin"])

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "not-a-token").Code)
}

func TestAuth_RejectionsShareOneBody(t *testing.T) {
	m := newManager(t)
	r := newEngine(NewAuthMiddleware(managerVerifier{m}))

	past, err := jwt.LoadAndBuild(jwt.Config{
		Secret:    "middleware-secret-0123456789abcdef",
		Issuer:    "taskhub",
		AccessTTL: time.Minute,
	}, func() time.Time { return time.Now().Add(-time.Hour) })
	require.NoError(t, err)
	expired, _, err := past.Issue(jwt.Identity{UserID: "u-1", Role: jwt.RoleUser}, 0)
	require.NoError(t, err)

	for _, mode := range []string{gin.TestMode, gin.ReleaseMode} {
		gin.SetMode(mode)
		want := do(r, "/me", expired)
		require.Equal(t, http.StatusUnauthorized, want.Code, mode)
		for _, token := range []string{expired + "x", "not-a-token", ""} {
			w := do(r, "/me", token)
			assert.Equal(t, http.StatusUnauthorized, w.Code, mode)
			assert.JSONEq(t, want.Body.String(), w.Body.String(), mode)
		}
	}
	gin.SetMode(gin.TestMode)
}

func TestAdminOnly(t *testing.T) {
	m := newManager(t)
	r := newEngine(NewAuthMiddleware(managerVerifier{m}))

	user, _, _ := m.Issue(jwt.Identity{UserID: "u-1", Role: jwt.RoleUser}, 0)
	admin, _, _ := m.Issue(jwt.Identity{UserID: "u-2", Role: jwt.RoleAdmin}, 0)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, extractToken(c), header)
	}
}

func TestRecoveryAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(LoggingMiddleware(zap.NewNop(), m), RecoveryMiddleware(zap.NewNop()))
	r.GET("/boom/:id", func(c *gin.Context) { panic("boom") })

	w := do(r, "/boom/7", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/boom/:id", "500")))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
