package session

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for a missing user, an
	// inactive user, and a password mismatch alike. The message must stay
	// identical across the three cases to avoid user-existence leakage.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken is returned by Refresh for every failure mode:
	// bad signature, expired, missing record, version mismatch, inactive user.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidResetToken is returned by ResetPassword for forged, expired
	// and already-used tokens alike; callers cannot distinguish them.
	ErrInvalidResetToken = errors.New("invalid reset token")

	// ErrRecordNotFound is the store-level miss; services normalize it to one
	// of the public errors above before it crosses a package boundary.
	ErrRecordNotFound = errors.New("token record not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
