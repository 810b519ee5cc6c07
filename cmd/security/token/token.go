package token

import (
	"crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// AccessClaims is the identity envelope carried by access tokens.
//
// TokenVersion is compared against the live user record on every protected
// request; a bump on the user record invalidates every token minted before it.
type AccessClaims struct {
	UserID       string
	Email        string
	Role         string
	TokenVersion int64
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// RefreshClaims is the envelope carried by refresh tokens. TokenID correlates
// with a server-side refresh-token record; no record, no refresh.
type RefreshClaims struct {
	UserID       string
	TokenID      string
	TokenVersion int64
	ExpiresAt    time.Time
}

// ResetClaims is the envelope carried by password-reset tokens.
type ResetClaims struct {
	UserID       string
	TokenID      string
	TokenVersion int64
	ExpiresAt    time.Time
}

// Issuer mints and verifies all three token kinds.
type Issuer struct {
	cfg Config
}

// NewIssuer validates the config and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

type accessJWTClaims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

type storedJWTClaims struct {
	TokenVersion int64 `json:"token_version"`
	jwt.RegisteredClaims
}

// IssueAccess mints a short-lived access token.
func (i *Issuer) IssueAccess(now time.Time, userID, email, role string, tokenVersion int64) (string, time.Time, error) {
	exp := now.Add(i.cfg.AccessTTL)

	claims := accessJWTClaims{
		Email:            email,
		Role:             role,
		TokenVersion:     tokenVersion,
		RegisteredClaims: i.registered(now, exp, userID, ""),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh mints a long-lived refresh token with a fresh ULID token id.
// The caller must persist the returned token id before handing the token out.
func (i *Issuer) IssueRefresh(now time.Time, userID string, tokenVersion int64) (signed string, tokenID string, exp time.Time, err error) {
	tokenID, err = newTokenID(now)
	if err != nil {
		return "", "", time.Time{}, err
	}
	exp = now.Add(i.cfg.RefreshTTL)

	claims := storedJWTClaims{
		TokenVersion:     tokenVersion,
		RegisteredClaims: i.registered(now, exp, userID, tokenID),
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, tokenID, exp, nil
}

// IssueReset mints a short-lived single-use password-reset token.
func (i *Issuer) IssueReset(now time.Time, userID string, tokenVersion int64) (signed string, tokenID string, exp time.Time, err error) {
	tokenID, err = newTokenID(now)
	if err != nil {
		return "", "", time.Time{}, err
	}
	exp = now.Add(i.cfg.ResetTTL)

	claims := storedJWTClaims{
		TokenVersion:     tokenVersion,
		RegisteredClaims: i.registered(now, exp, userID, tokenID),
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.ResetSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, tokenID, exp, nil
}

// VerifyAccess verifies an access token and returns its claims.
func (i *Issuer) VerifyAccess(tokenStr string, now time.Time) (AccessClaims, error) {
	var claims accessJWTClaims
	if err := i.parse(tokenStr, i.cfg.AccessSecret, now, &claims); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID:       claims.Subject,
		Email:        claims.Email,
		Role:         claims.Role,
		TokenVersion: claims.TokenVersion,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// VerifyRefresh verifies a refresh token and returns its claims.
func (i *Issuer) VerifyRefresh(tokenStr string, now time.Time) (RefreshClaims, error) {
	var claims storedJWTClaims
	if err := i.parse(tokenStr, i.cfg.RefreshSecret, now, &claims); err != nil {
		return RefreshClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return RefreshClaims{}, ErrInvalidToken
	}

	out := RefreshClaims{
		UserID:       claims.Subject,
		TokenID:      claims.ID,
		TokenVersion: claims.TokenVersion,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// VerifyReset verifies a password-reset token and returns its claims.
func (i *Issuer) VerifyReset(tokenStr string, now time.Time) (ResetClaims, error) {
	var claims storedJWTClaims
	if err := i.parse(tokenStr, i.cfg.ResetSecret, now, &claims); err != nil {
		return ResetClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return ResetClaims{}, ErrInvalidToken
	}

	out := ResetClaims{
		UserID:       claims.Subject,
		TokenID:      claims.ID,
		TokenVersion: claims.TokenVersion,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (i *Issuer) registered(now, exp time.Time, userID, tokenID string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Audience:  jwt.ClaimStrings{i.cfg.Audience},
		Subject:   userID,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (i *Issuer) parse(tokenStr string, secret []byte, now time.Time, dst jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenStr, dst,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(i.cfg.ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	return err
}

// newTokenID returns a fresh ULID. ULIDs are unique and sortable; the random
// component makes store lookups unguessable enough given the id only ever
// travels inside a signed token.
func newTokenID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
