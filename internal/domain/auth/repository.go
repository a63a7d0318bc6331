// internal/domain/auth/repository.go
package auth

import (
	"context"
	"time"
)

// UserRepository persists accounts. Lookups that miss return
// xerrors.ErrNotFound; a duplicate email on Create returns xerrors.ErrConflict.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository persists rotation records.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	// Consume deletes the record and returns it; a record that is absent
	// (never issued or already consumed) yields xerrors.ErrNotFound.
	Consume(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store groups the credential repositories and runs them transactionally.
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
