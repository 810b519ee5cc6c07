package identity

import (
	"context"
	"time"
)

// CreateUserInput describes a new staff user. Email must be unique; the
// password is hashed by the store before persistence.
type CreateUserInput struct {
	Email       string
	Password    string
	Role        Role
	DisplayName *string
	Now         time.Time
}

// UpdateFieldsInput carries optional field updates; nil pointers are left
// untouched. Role changes are validated against the closed enum.
type UpdateFieldsInput struct {
	DisplayName *string
	Role        *Role
	IsActive    *bool
	Now         time.Time
}

// Directory is the user-directory persistence boundary consumed by the auth
// core. Implementations must provide read-after-write consistency for
// is_active, token_version and password_hash.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)

	Create(ctx context.Context, in CreateUserInput) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateFields(ctx context.Context, id string, in UpdateFieldsInput) (User, error)

	UpdatePasswordHash(ctx context.Context, id string, hash string, now time.Time) error

	// IncrementTokenVersion atomically bumps the user's token_version and
	// returns the new value. Every token minted under a prior value becomes
	// invalid at its next verification.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)

	SetLastLogin(ctx context.Context, id string, now time.Time) error
}
