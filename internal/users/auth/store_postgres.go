// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/gatekeeper/internal/platform/dberr"
	"github.com/taibuivan/gatekeeper/internal/platform/postgres"
	"github.com/taibuivan/gatekeeper/pkg/pointer"
)

// PgxPool is the subset of *pgxpool.Pool the adapter uses. pgxmock pools satisfy it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// # Postgres Adapter

// PostgresAdapter implements [Adapter], [LoginRecorder] and [SessionPurger] using pgx.
//
// # Error Mapping
//
// pgx.ErrNoRows becomes [ErrNotFound]; a unique violation on users becomes
// EMAIL_TAKEN; everything else is INTERNAL_ERROR.
type PostgresAdapter struct {
	pool PgxPool
	now  func() time.Time
}

// NewPostgresAdapter creates a new PostgreSQL implementation of the [Adapter].
func NewPostgresAdapter(pool PgxPool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool, now: time.Now}
}

const userColumns = `u.id, u.email, u.display_name, u.password_hash, u.password_salt, u.flags, u.last_login_at, u.created_at`

// Connect pings the pool.
func (adapter *PostgresAdapter) Connect(context context.Context) error {
	return postgres.Ping(context, adapter.pool)
}

/*
LocateUserByAccessToken joins the live session carrying accessToken to its owner.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - *User: Hydrated entity
  - error: ErrNotFound if no unexpired session matches
*/
func (adapter *PostgresAdapter) LocateUserByAccessToken(context context.Context, accessToken string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.access_token = $1 AND s.expires_at > $2`

	user, err := scanUser(adapter.pool.QueryRow(context, query, accessToken, adapter.now()))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_locate_user_by_token")
	}
	return user, nil
}

/*
LocateUserByEmail retrieves a user record by email, case-insensitively.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated entity
  - error: ErrNotFound or database errors
*/
func (adapter *PostgresAdapter) LocateUserByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users u
		WHERE lower(u.email) = lower($1)`

	user, err := scanUser(adapter.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_locate_user_by_email")
	}
	return user, nil
}

// IsEmailUnique reports whether no row in users carries email.
func (adapter *PostgresAdapter) IsEmailUnique(context context.Context, email string) (bool, error) {
	const query = `SELECT NOT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`

	var unique bool
	if err := adapter.pool.QueryRow(context, query, email).Scan(&unique); err != nil {
		return false, dberr.Wrap(err, "postgres_is_email_unique")
	}
	return unique, nil
}

/*
CreateUser persists a new user record into the users table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: EMAIL_TAKEN on a unique violation, otherwise connectivity errors
*/
func (adapter *PostgresAdapter) CreateUser(context context.Context, user *User) error {
	const query = `
		INSERT INTO users (
			id, email, display_name, password_hash, password_salt, flags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = adapter.now()
	}

	_, err := adapter.pool.Exec(context, query,
		user.ID,
		user.Email,
		pointer.Nullable(user.DisplayName),
		user.PasswordHash,
		user.PasswordSalt,
		int64(user.Flags),
		user.CreatedAt,
	)
	return dberr.Wrap(err, "postgres_create_user")
}

// StoreSession persists an issued session.
func (adapter *PostgresAdapter) StoreSession(context context.Context, session *Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := adapter.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.AccessToken,
		session.RefreshToken,
		session.ExpiresAt,
	)
	return dberr.Wrap(err, "postgres_store_session")
}

// RecordLogin implements [LoginRecorder].
func (adapter *PostgresAdapter) RecordLogin(context context.Context, userID string, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2 WHERE id = $1`

	_, err := adapter.pool.Exec(context, query, userID, at)
	return dberr.Wrap(err, "postgres_record_login")
}

// PurgeExpiredSessions implements [SessionPurger].
func (adapter *PostgresAdapter) PurgeExpiredSessions(context context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`

	tag, err := adapter.pool.Exec(context, query, now)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_purge_sessions")
	}
	return tag.RowsAffected(), nil
}

// # Helpers

func scanUser(row pgx.Row) (*User, error) {
	var (
		user        User
		displayName *string
		flags       int64
		lastLogin   *time.Time
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&displayName,
		&user.PasswordHash,
		&user.PasswordSalt,
		&flags,
		&lastLogin,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.DisplayName = pointer.Val(displayName)
	user.LastLogin = pointer.Val(lastLogin)
	user.Flags = UserFlag(flags)
	return &user, nil
}
