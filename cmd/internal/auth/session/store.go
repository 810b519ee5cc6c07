package session

import (
	"context"
	"time"
)

// RefreshRecord is one currently-valid refresh token. TokenID is an opaque
// identifier correlated with the jti claim of the signed token, never the
// token itself.
type RefreshRecord struct {
	UserID    string
	TokenID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ResetRecord is a single-use password-reset grant. Once Used flips to true it
// never flips back; a second consumption attempt must fail even inside the
// expiry window.
type ResetRecord struct {
	UserID    string
	TokenID   string
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store abstracts persistence for refresh- and reset-token records.
//
// Rotation safety relies on DeleteRefresh reporting whether a row was
// actually removed: concurrent refreshes with the same token both verify and
// both look up, but only one delete affects a row.
type Store interface {
	// SaveRefresh is an idempotent insert keyed by token id.
	SaveRefresh(ctx context.Context, userID, tokenID string, now, expiresAt time.Time) error

	// FindValidRefresh returns the record iff it exists and is unexpired at
	// now; otherwise ErrRecordNotFound.
	FindValidRefresh(ctx context.Context, tokenID, userID string, now time.Time) (RefreshRecord, error)

	// DeleteRefresh removes the record and reports whether a row was deleted.
	DeleteRefresh(ctx context.Context, tokenID string) (bool, error)

	// DeleteAllRefreshForUser removes every refresh record for a user.
	DeleteAllRefreshForUser(ctx context.Context, userID string) error

	// SaveReset is an idempotent insert of an unused reset record.
	SaveReset(ctx context.Context, userID, tokenID string, now, expiresAt time.Time) error

	// ConsumeReset marks the record used iff it is unused and unexpired at
	// now, and reports whether this call performed the consumption. The mark
	// is permanent regardless of what happens to the caller afterwards.
	ConsumeReset(ctx context.Context, tokenID, userID string, now time.Time) (bool, error)

	// SweepExpired deletes refresh and reset records whose expiry has passed,
	// plus consumed reset records, and returns the number of rows removed. It
	// is a cleanup optimization; validity is always rechecked at lookup time.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
