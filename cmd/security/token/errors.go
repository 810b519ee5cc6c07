package token

import "errors"

var (
	// ErrInvalidToken is returned for any signature, claim, audience, issuer
	// or expiry failure. Callers must not distinguish the causes.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid signing configuration.
	ErrConfig = errors.New("invalid token config")
)
