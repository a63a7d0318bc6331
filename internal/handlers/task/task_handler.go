// internal/handlers/task/task_handler.go
package task

import (
	"context"
	"net/http"
	"strconv"

	"taskhub-service/internal/domain/task"
	"taskhub-service/internal/middleware"
	"taskhub-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Create(ctx context.Context, userID string, req *task.CreateTaskRequest) (*task.Task, error)
	Get(ctx context.Context, id, userID string) (*task.Task, error)
	List(ctx context.Context, userID string, q task.ListQuery) (*task.ListResponse, error)
	Update(ctx context.Context, id, userID string, req *task.UpdateTaskRequest) (*task.Task, error)
	Delete(ctx context.Context, id, userID string) error
}

type TaskHandler struct {
	service Service
}

func NewTaskHandler(service Service) *TaskHandler {
	return &TaskHandler{service: service}
}

// List handles GET /tasks?status=todo,done&priority=high&search=&page=&limit=
func (h *TaskHandler) List(c *gin.Context) {
	statuses, err := task.ParseStatuses(c.Query("status"))
	if err != nil {
		response.ValidationError(c, "invalid status filter", err)
		return
	}
	priorities, err := task.ParsePriorities(c.Query("priority"))
	if err != nil {
		response.ValidationError(c, "invalid priority filter", err)
		return
	}

	q := task.ListQuery{
		Statuses:   statuses,
		Priorities: priorities,
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", task.DefaultPageSize),
	}

	resp, err := h.service.List(c.Request.Context(), middleware.MustGetUserID(c), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "tasks retrieved", resp)
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "task retrieved", t)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req task.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	t, err := h.service.Create(c.Request.Context(), middleware.MustGetUserID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "task created", t)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req task.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	t, err := h.service.Update(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "task updated", t)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "task deleted", nil)
}

// queryInt parses a positive integer query parameter, falling back on
// anything missing or malformed.
func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
