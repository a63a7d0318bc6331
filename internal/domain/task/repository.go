// internal/domain/task/repository.go
package task

import "context"

// Repository persists tasks. Every lookup is scoped to the owning user and
// returns xerrors.ErrNotFound outside that scope.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id, userID string) (*Task, error)
	List(ctx context.Context, userID string, q ListQuery) ([]*Task, int, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id, userID string) error
}
