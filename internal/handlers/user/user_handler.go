// internal/handlers/user/user_handler.go
package user

import (
	"context"
	"net/http"
	"strconv"

	"taskhub-service/internal/domain/auth"
	"taskhub-service/internal/middleware"
	"taskhub-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, id string) (*auth.User, error)
	List(ctx context.Context, page, limit int) (*auth.UserListResponse, error)
	Update(ctx context.Context, actorID, id string, req *auth.UpdateUserRequest) (*auth.User, error)
	Delete(ctx context.Context, actorID, id string) error
}

type UserHandler struct {
	service Service
	logger  *zap.Logger
}

func NewUserHandler(service Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// Me returns the caller's own account.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user retrieved", u)
}

// ========== Admin ==========

func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "users retrieved", resp)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user retrieved", u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req auth.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	actor := middleware.MustGetUserID(c)
	u, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("user updated by admin", zap.String("user_id", u.ID), zap.String("by", actor))
	response.Success(c, http.StatusOK, "user updated", u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	actor := middleware.MustGetUserID(c)
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user deleted", nil)
}
