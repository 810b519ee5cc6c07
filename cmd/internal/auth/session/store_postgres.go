package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on refresh_tokens and password_reset_tokens.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// SaveRefresh inserts a refresh record; a duplicate token id is a no-op.
func (s *PostgresStore) SaveRefresh(ctx context.Context, userID, tokenID string, now, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token_id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`, tokenID, userID, now, expiresAt)
	return err
}

// FindValidRefresh returns only unexpired records.
func (s *PostgresStore) FindValidRefresh(ctx context.Context, tokenID, userID string, now time.Time) (RefreshRecord, error) {
	var rec RefreshRecord
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, user_id, created_at, expires_at
		FROM refresh_tokens
		WHERE token_id = $1 AND user_id = $2 AND expires_at > $3
	`, tokenID, userID, now).Scan(
		&rec.TokenID,
		&rec.UserID,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return RefreshRecord{}, err
	}
	return rec, nil
}

// DeleteRefresh removes a record and reports whether a row was deleted.
func (s *PostgresStore) DeleteRefresh(ctx context.Context, tokenID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE token_id = $1
	`, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllRefreshForUser removes every refresh record for a user.
func (s *PostgresStore) DeleteAllRefreshForUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, userID)
	return err
}

// SaveReset inserts an unused reset record; a duplicate token id is a no-op.
func (s *PostgresStore) SaveReset(ctx context.Context, userID, tokenID string, now, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_id, user_id, used, created_at, expires_at)
		VALUES ($1, $2, FALSE, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`, tokenID, userID, now, expiresAt)
	return err
}

// ConsumeReset flips used to true iff the record is unused and unexpired.
// The single UPDATE makes concurrent consumption attempts race safely: only
// one caller observes an affected row.
func (s *PostgresStore) ConsumeReset(ctx context.Context, tokenID, userID string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used = TRUE, used_at = $3
		WHERE token_id = $1 AND user_id = $2 AND used = FALSE AND expires_at > $3
	`, tokenID, userID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SweepExpired deletes expired refresh records and expired-or-used reset
// records, returning the total rows removed.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at <= $1
	`, now)
	if err != nil {
		return total, err
	}
	total += tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at <= $1 OR used = TRUE
	`, now)
	if err != nil {
		return total, err
	}
	total += tag.RowsAffected()

	return total, nil
}
