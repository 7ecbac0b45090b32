package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type UserRepo interface {
	// Create persists a new user. The unique email constraint must be
	// enforced atomically; a duplicate returns ErrEmailTaken.
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetLastLogin(ctx context.Context, id string, when time.Time) error
}
