// internal/service/user/user.go
package user

import (
	"context"
	"fmt"
	"strings"

	"taskhub-service/internal/domain/auth"
	"taskhub-service/internal/pkg/cache"
	xerrors "taskhub-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Disconnector ends the realtime connections of a user.
type Disconnector interface {
	DisconnectUser(userID, reason string) int
}

// UserService is the admin roster plus the caller's own profile.
type UserService struct {
	repo         auth.UserRepository
	cache        cache.Store
	disconnector Disconnector
	logger       *zap.Logger
}

func NewUserService(repo auth.UserRepository, cacheStore cache.Store, disconnector Disconnector, logger *zap.Logger) *UserService {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	return &UserService{
		repo:         repo,
		cache:        cacheStore,
		disconnector: disconnector,
		logger:       logger,
	}
}

// Get returns a user by id, read through the cache.
func (s *UserService) Get(ctx context.Context, id string) (*auth.User, error) {
	return cache.GetOrSet(ctx, s.cache, cache.UserKey(id), 0, func(ctx context.Context) (*auth.User, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// List returns one page of the roster, newest first.
func (s *UserService) List(ctx context.Context, page, limit int) (*auth.UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	users, total, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &auth.UserListResponse{
		Users:      users,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Update edits another account's name or role (admin only). An admin may
// not demote themselves.
func (s *UserService) Update(ctx context.Context, actorID, id string, req *auth.UpdateUserRequest) (*auth.User, error) {
	if req.Name == nil && req.Role == nil {
		return nil, fmt.Errorf("no fields to update: %w", xerrors.ErrInvalidInput)
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name is required: %w", xerrors.ErrInvalidInput)
		}
		u.Name = name
	}
	if req.Role != nil {
		role := *req.Role
		if role != auth.RoleUser && role != auth.RoleAdmin {
			return nil, fmt.Errorf("unknown role %q: %w", role, xerrors.ErrInvalidInput)
		}
		if id == actorID && role != auth.RoleAdmin {
			return nil, fmt.Errorf("cannot demote yourself: %w", xerrors.ErrForbidden)
		}
		u.Role = role
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.UserKey(id), u, 0)

	s.logger.Info("user updated", zap.String("user_id", id), zap.String("by", actorID))
	return u, nil
}

// Delete removes an account (admin only). Its tasks, files and refresh
// tokens go with it; open realtime connections are closed.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if id == actorID {
		return fmt.Errorf("cannot delete yourself: %w", xerrors.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.UserKey(id))
	s.cache.DeleteByPrefix(ctx, cache.TaskListPrefix(id))
	if s.disconnector != nil {
		s.disconnector.DisconnectUser(id, "account deleted")
	}

	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actorID))
	return nil
}
