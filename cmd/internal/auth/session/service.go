package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/internal/metrics"
	"promodesk/cmd/security/token"
)

// Service implements the high-level session operations for promodesk.
//
// It verifies credentials, issues and rotates token pairs, revokes sessions
// individually and en masse, and runs the password-reset flow. All failures
// are normalized to the package's public errors before returning.
type Service struct {
	cfg    Config
	dir    identity.Directory
	store  Store
	tokens *token.Issuer
	mailer Mailer
	log    *slog.Logger

	// dummyHash is verified against when the login user is missing, keeping
	// the not-found path from returning measurably faster than a mismatch.
	dummyHash string
}

// Issued is the result of Login and Refresh.
type Issued struct {
	User identity.User

	AccessToken string
	AccessExp   time.Time

	RefreshToken string
	RefreshExp   time.Time
}

// ResetRequested reports what RequestPasswordReset did, for audit purposes.
// Zero value means the email did not map to an active user (externally
// indistinguishable from success).
type ResetRequested struct {
	UserID  string
	TokenID string
}

// NewService constructs a Service. A nil mailer gets the noop default.
func NewService(cfg Config, dir identity.Directory, store Store, tokens *token.Issuer, mailer Mailer, log *slog.Logger) *Service {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:    cfg,
		dir:    dir,
		store:  store,
		tokens: tokens,
		mailer: mailer,
		log:    log,
	}

	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}

	return s
}

// Login verifies credentials and issues a fresh access+refresh pair.
//
// A missing user, an inactive user and a password mismatch all fail with the
// same ErrInvalidCredentials. The refresh-token store record is persisted
// before the pair is returned; if persistence fails, no token leaves this
// method.
func (s *Service) Login(ctx context.Context, now time.Time, email, password string) (Issued, error) {
	u, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if s.dummyHash != "" {
			_, _ = identity.VerifyPassword(password, s.dummyHash)
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return Issued{}, ErrInvalidCredentials
	}

	ok, err := identity.VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok || !u.IsActive {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return Issued{}, ErrInvalidCredentials
	}

	issued, err := s.issuePair(ctx, now, u)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return Issued{}, err
	}

	if err := s.dir.SetLastLogin(ctx, u.ID, now); err != nil {
		s.log.Error("auth.login.last_login.fail", "err", err, "user_id", u.ID)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return issued, nil
}

// Refresh performs strict single-use rotation.
//
// The submitted token's store record is deleted before a replacement pair is
// issued, so replaying an already-rotated token finds no record and fails.
// Any mismatch (missing record, token-version drift, inactive user) deletes
// the record if present and fails with ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshToken string) (Issued, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken, now)
	if err != nil {
		return Issued{}, ErrInvalidRefreshToken
	}

	if _, err := s.store.FindValidRefresh(ctx, claims.TokenID, claims.UserID, now); err != nil {
		// A transient store failure must not masquerade as a rejected token,
		// or a DB blip would clear the client's cookie.
		if !errors.Is(err, ErrRecordNotFound) {
			return Issued{}, err
		}
		// The record may exist but be expired; remove it either way so the
		// store never accumulates stale rows for replayed tokens.
		if _, delErr := s.store.DeleteRefresh(ctx, claims.TokenID); delErr != nil {
			s.log.Error("auth.refresh.stale_delete.fail", "err", delErr)
		}
		return Issued{}, ErrInvalidRefreshToken
	}

	u, err := s.dir.FindByID(ctx, claims.UserID)
	if err != nil || !u.IsActive || u.TokenVersion != claims.TokenVersion {
		if _, delErr := s.store.DeleteRefresh(ctx, claims.TokenID); delErr != nil {
			s.log.Error("auth.refresh.mismatch_delete.fail", "err", delErr)
		}
		return Issued{}, ErrInvalidRefreshToken
	}

	// Rotation point: exactly one concurrent caller can win this delete.
	deleted, err := s.store.DeleteRefresh(ctx, claims.TokenID)
	if err != nil {
		return Issued{}, err
	}
	if !deleted {
		return Issued{}, ErrInvalidRefreshToken
	}

	issued, err := s.issuePair(ctx, now, u)
	if err != nil {
		return Issued{}, err
	}

	metrics.RotationsTotal.Inc()
	return issued, nil
}

// Logout revokes the session behind a refresh token, best-effort.
//
// Invalid, expired and already-removed tokens are silently accepted as
// already-logged-out. The returned user id is empty unless the token
// verified, letting the caller audit only real logouts.
func (s *Service) Logout(ctx context.Context, now time.Time, refreshToken string) (userID string, err error) {
	claims, verifyErr := s.tokens.VerifyRefresh(refreshToken, now)
	if verifyErr != nil {
		return "", nil
	}

	if _, err := s.store.DeleteRefresh(ctx, claims.TokenID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// InvalidateAllSessions bumps the user's token version and purges every
// stored refresh record. Outstanding access tokens die at their next
// verification (version re-check against the live user record); refresh
// tokens become unusable immediately.
func (s *Service) InvalidateAllSessions(ctx context.Context, userID string) error {
	if _, err := s.dir.IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}
	if err := s.store.DeleteAllRefreshForUser(ctx, userID); err != nil {
		return err
	}
	return nil
}

// RequestPasswordReset issues a single-use reset token and emails a link.
//
// An unknown or inactive email returns a zero result and nil error: there is
// no externally observable difference between "sent" and "no such user", only
// an internal log line. The reset record is persisted before the email send
// is attempted, so a delivery failure never strands the flow.
func (s *Service) RequestPasswordReset(ctx context.Context, now time.Time, email string) (ResetRequested, error) {
	u, err := s.dir.FindByEmail(ctx, email)
	if err != nil || !u.IsActive {
		s.log.Info("auth.reset.request.no_user", "email_norm", identity.NormalizeEmail(email))
		return ResetRequested{}, nil
	}

	signed, tokenID, exp, err := s.tokens.IssueReset(now, u.ID, u.TokenVersion)
	if err != nil {
		return ResetRequested{}, err
	}

	if err := s.store.SaveReset(ctx, u.ID, tokenID, now, exp); err != nil {
		return ResetRequested{}, err
	}

	link := s.resetLink(signed)
	if err := s.mailer.SendPasswordReset(ctx, u.Email, link); err != nil {
		// Record is already persisted; a resend can complete the flow.
		s.log.Error("auth.reset.mail.fail", "err", err, "user_id", u.ID)
	}

	return ResetRequested{UserID: u.ID, TokenID: tokenID}, nil
}

// ResetPassword consumes a reset token and installs a new credential.
//
// Ordering is the safety contract: the record is marked used before the
// password is mutated, so a failure between the two can never leave a
// replayable token behind. Completion bumps the token version and purges all
// refresh records, forcing a global re-login.
func (s *Service) ResetPassword(ctx context.Context, now time.Time, resetToken, newPassword string) (userID string, err error) {
	claims, err := s.tokens.VerifyReset(resetToken, now)
	if err != nil {
		return "", ErrInvalidResetToken
	}

	// Hash first: a policy rejection must not burn the single-use record.
	hash, err := identity.HashPassword(newPassword)
	if err != nil {
		return "", fmt.Errorf("%w: %s", identity.ErrInvalidInput, err.Error())
	}

	consumed, err := s.store.ConsumeReset(ctx, claims.TokenID, claims.UserID, now)
	if err != nil {
		return "", err
	}
	if !consumed {
		return "", ErrInvalidResetToken
	}

	u, err := s.dir.FindByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return "", ErrInvalidResetToken
	}

	if err := s.dir.UpdatePasswordHash(ctx, u.ID, hash, now); err != nil {
		return "", err
	}
	if err := s.InvalidateAllSessions(ctx, u.ID); err != nil {
		return "", err
	}

	return u.ID, nil
}

// issuePair mints an access+refresh pair and persists the refresh record.
// Signing failures are fatal to the calling operation; there is no fallback.
func (s *Service) issuePair(ctx context.Context, now time.Time, u identity.User) (Issued, error) {
	accessToken, accessExp, err := s.tokens.IssueAccess(now, u.ID, u.Email, string(u.Role), u.TokenVersion)
	if err != nil {
		return Issued{}, err
	}

	refreshToken, tokenID, refreshExp, err := s.tokens.IssueRefresh(now, u.ID, u.TokenVersion)
	if err != nil {
		return Issued{}, err
	}

	// Record before token: if this insert fails the pair is never returned.
	if err := s.store.SaveRefresh(ctx, u.ID, tokenID, now, refreshExp); err != nil {
		return Issued{}, err
	}

	return Issued{
		User:         u,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Service) resetLink(signedToken string) string {
	return s.cfg.ResetURL + "?token=" + url.QueryEscape(signedToken)
}
