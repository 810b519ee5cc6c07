package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"promodesk/cmd/identity/ids"
)

const pgUniqueViolation = "23505"

// PostgresDirectory implements Directory on the users table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a Postgres-backed user directory.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresDirectory", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresDirectory{pool: pool}, nil
}

const userColumns = `
	id, email, password_hash, role, is_active, token_version,
	display_name, last_login_at, created_at, updated_at
`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.TokenVersion,
		&u.DisplayName,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// FindByEmail loads a user by normalized email.
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (User, error) {
	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, OpError{Op: "identity.FindByEmail", Kind: ErrInvalidInput}
	}

	u, err := scanUser(d.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email_norm = $1
	`, norm))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: "identity.FindByEmail", Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// FindByID loads a user by id.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(d.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: "identity.FindByID", Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Create inserts a new active user with token_version 0.
func (d *PostgresDirectory) Create(ctx context.Context, in CreateUserInput) (User, error) {
	norm := NormalizeEmail(in.Email)
	if norm == "" {
		return User{}, OpError{Op: "identity.Create", Kind: ErrInvalidInput, Msg: "email required"}
	}
	if !in.Role.Valid() {
		return User{}, OpError{Op: "identity.Create", Kind: ErrInvalidInput, Msg: "unknown role"}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, OpError{Op: "identity.Create", Kind: ErrInvalidInput, Msg: err.Error()}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	u, err := scanUser(d.pool.QueryRow(ctx, `
		INSERT INTO users (
			id, email, email_norm, password_hash, role, is_active,
			token_version, display_name, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, TRUE, 0, $6, $7, $7)
		RETURNING `+userColumns+`
	`, id, in.Email, norm, hash, in.Role, in.DisplayName, now))
	if isUniqueViolation(err) {
		return User{}, ConflictError{Op: "identity.Create", Field: "email"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// List returns all users, newest first.
func (d *PostgresDirectory) List(ctx context.Context) ([]User, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateFields applies the non-nil fields and returns the updated user.
func (d *PostgresDirectory) UpdateFields(ctx context.Context, id string, in UpdateFieldsInput) (User, error) {
	if in.Role != nil && !in.Role.Valid() {
		return User{}, OpError{Op: "identity.UpdateFields", Kind: ErrInvalidInput, Msg: "unknown role"}
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	u, err := scanUser(d.pool.QueryRow(ctx, `
		UPDATE users
		SET
			display_name = COALESCE($2, display_name),
			role         = COALESCE($3, role),
			is_active    = COALESCE($4, is_active),
			updated_at   = $5
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, in.DisplayName, in.Role, in.IsActive, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: "identity.UpdateFields", Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdatePasswordHash replaces the stored credential hash.
func (d *PostgresDirectory) UpdatePasswordHash(ctx context.Context, id string, hash string, now time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, hash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: "identity.UpdatePasswordHash", Kind: ErrNotFound}
	}
	return nil
}

// IncrementTokenVersion atomically bumps token_version and returns the new value.
func (d *PostgresDirectory) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	var v int64
	err := d.pool.QueryRow(ctx, `
		UPDATE users
		SET token_version = token_version + 1, updated_at = now()
		WHERE id = $1
		RETURNING token_version
	`, id).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, OpError{Op: "identity.IncrementTokenVersion", Kind: ErrNotFound}
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// SetLastLogin records a successful login timestamp (best-effort field).
func (d *PostgresDirectory) SetLastLogin(ctx context.Context, id string, now time.Time) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE users
		SET last_login_at = $2
		WHERE id = $1
	`, id, now)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
