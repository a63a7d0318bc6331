// internal/domain/file/repository.go
package file

import "context"

type Repository interface {
	Create(ctx context.Context, f *File) error
	FindByID(ctx context.Context, id string) (*File, error)
	// List returns files owned by userID, or every file when userID is empty.
	List(ctx context.Context, userID string) ([]*File, error)
	Delete(ctx context.Context, id string) error
}
