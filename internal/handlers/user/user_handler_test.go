package user

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskhub-service/internal/domain/auth"
	"taskhub-service/internal/middleware"
	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct {
	page, limit int
	deleted     []string
}

func (s *stubService) Get(_ context.Context, id string) (*auth.User, error) {
	if id == "missing" {
		return nil, xerrors.ErrNotFound
	}
	return &auth.User{ID: id, Email: id + "@example.com", Role: auth.RoleUser}, nil
}

func (s *stubService) List(_ context.Context, page, limit int) (*auth.UserListResponse, error) {
	s.page, s.limit = page, limit
	return &auth.UserListResponse{Users: []*auth.User{}, Page: 1, Limit: 20}, nil
}

func (s *stubService) Update(_ context.Context, actorID, id string, req *auth.UpdateUserRequest) (*auth.User, error) {
	if actorID == id && req.Role != nil && *req.Role != auth.RoleAdmin {
		return nil, xerrors.ErrForbidden
	}
	return &auth.User{ID: id, Role: *req.Role}, nil
}

func (s *stubService) Delete(_ context.Context, actorID, id string) error {
	if actorID == id {
		return xerrors.ErrForbidden
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func setup(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewUserHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, jwt.Identity{UserID: "admin-1", Role: jwt.RoleAdmin})
	})
	r.GET("/users/me", h.Me)
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.PATCH("/users/:id", h.Update)
	r.DELETE("/users/:id", h.Delete)
	return r
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMeAndGet(t *testing.T) {
	r := setup(&stubService{})

	w := call(r, http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"admin-1"`)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/users/missing", "").Code)
}

func TestList_PassesPaging(t *testing.T) {
	svc := &stubService{}
	r := setup(svc)

	require.Equal(t, http.StatusOK, call(r, http.MethodGet, "/users?page=3&limit=50", "").Code)
	assert.Equal(t, 3, svc.page)
	assert.Equal(t, 50, svc.limit)
}

func TestUpdate(t *testing.T) {
	r := setup(&stubService{})

	w := call(r, http.MethodPatch, "/users/u-2", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPatch, "/users/u-2", `{"role":"root"}`).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPatch, "/users/admin-1", `{"role":"user"}`).Code)
}

func TestDelete(t *testing.T) {
	svc := &stubService{}
	r := setup(svc)

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/users/u-2", "").Code)
	assert.Equal(t, []string{"u-2"}, svc.deleted)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/users/admin-1", "").Code)
}
