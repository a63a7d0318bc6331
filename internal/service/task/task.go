// internal/service/task/task.go
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskhub-service/internal/domain/task"
	wstypes "taskhub-service/internal/domain/websocket"
	"taskhub-service/internal/pkg/cache"
	xerrors "taskhub-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher delivers realtime events to a user's connections.
type Publisher interface {
	ToUser(userID string, event wstypes.EventType, payload any)
}

type TaskService struct {
	repo      task.Repository
	cache     cache.Store
	publisher Publisher
	logger    *zap.Logger
}

func NewTaskService(repo task.Repository, cacheStore cache.Store, publisher Publisher, logger *zap.Logger) *TaskService {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	return &TaskService{
		repo:      repo,
		cache:     cacheStore,
		publisher: publisher,
		logger:    logger,
	}
}

// Create adds a task for userID and notifies the owner's connections.
func (s *TaskService) Create(ctx context.Context, userID string, req *task.CreateTaskRequest) (*task.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", xerrors.ErrInvalidInput)
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		UserID:      userID,
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if !t.Status.Valid() || !t.Priority.Valid() {
		return nil, xerrors.ErrInvalidInput
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.cache.DeleteByPrefix(ctx, cache.TaskListPrefix(userID))
	s.notify(userID, wstypes.EventTypeTaskCreated, wstypes.TaskEventData{Task: t})

	s.logger.Info("task created", zap.String("task_id", t.ID), zap.String("user_id", userID))
	return t, nil
}

// Get returns one of userID's tasks. A cached task owned by someone else
// is ignored and the store decides.
func (s *TaskService) Get(ctx context.Context, id, userID string) (*task.Task, error) {
	var cached task.Task
	if s.cache.Get(ctx, cache.TaskKey(id), &cached) && cached.UserID == userID {
		return &cached, nil
	}

	t, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.TaskKey(id), t, 0)
	return t, nil
}

// List returns a page of userID's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID string, q task.ListQuery) (*task.ListResponse, error) {
	q.Normalize()

	return cache.GetOrSet(ctx, s.cache, cache.TaskListKey(userID, q.CacheKey()), 0, func(ctx context.Context) (*task.ListResponse, error) {
		tasks, total, err := s.repo.List(ctx, userID, q)
		if err != nil {
			return nil, err
		}
		return &task.ListResponse{
			Tasks:      tasks,
			Total:      total,
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		}, nil
	})
}

// Update applies a partial update to one of userID's tasks.
func (s *TaskService) Update(ctx context.Context, id, userID string, req *task.UpdateTaskRequest) (*task.Task, error) {
	if req.Empty() {
		return nil, fmt.Errorf("no fields to update: %w", xerrors.ErrInvalidInput)
	}

	t, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("title is required: %w", xerrors.ErrInvalidInput)
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, xerrors.ErrInvalidInput
		}
		t.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, xerrors.ErrInvalidInput
		}
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id, userID)
	s.notify(userID, wstypes.EventTypeTaskUpdated, wstypes.TaskEventData{Task: t})

	s.logger.Info("task updated", zap.String("task_id", id))
	return t, nil
}

// Delete removes one of userID's tasks.
func (s *TaskService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return fmt.Errorf("task %s: %w", id, err)
		}
		return err
	}

	s.invalidate(ctx, id, userID)
	s.notify(userID, wstypes.EventTypeTaskDeleted, wstypes.TaskEventData{TaskID: id})

	s.logger.Info("task deleted", zap.String("task_id", id))
	return nil
}

func (s *TaskService) invalidate(ctx context.Context, id, userID string) {
	s.cache.Delete(ctx, cache.TaskKey(id))
	s.cache.DeleteByPrefix(ctx, cache.TaskListPrefix(userID))
}

func (s *TaskService) notify(userID string, event wstypes.EventType, payload wstypes.TaskEventData) {
	if s.publisher != nil {
		s.publisher.ToUser(userID, event, payload)
	}
}
