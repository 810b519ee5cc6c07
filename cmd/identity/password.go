package identity

import (
	"promodesk/cmd/security/password"
)

// HashPassword returns a PHC-style Argon2id hash string for a new credential.
// Policy (length bounds) comes from cmd/security/password env config.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a plaintext password against a stored PHC hash.
//
// Fail closed: any decode or parameter error from the hashing library is
// reported as a non-match alongside the error; callers treat both the same.
func VerifyPassword(plain string, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}
	ok, err := cfg.Verify(encodedPHC, plain)
	if err != nil {
		return false, err
	}
	return ok, nil
}
