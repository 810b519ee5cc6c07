package identity

import (
	"strings"
	"time"
)

// Role is the closed staff-role enum. The upstream dashboard treated roles as
// open strings in places; here a role is always one of these three values and
// is validated at every boundary that accepts one from external input.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// ParseRole validates an externally supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", OpError{Op: "identity.ParseRole", Kind: ErrInvalidInput, Msg: "unknown role"}
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is the canonical staff principal.
//
// TokenVersion is the sole global session-invalidation lever: bumping it makes
// every previously issued token referencing the old version invalid,
// regardless of expiry.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	TokenVersion int64

	DisplayName *string
	LastLoginAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
