package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// Schema creates the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	full_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	last_login_at TIMESTAMPTZ
);
`

const uniqueViolation = "23505"

const selectColumns = `id, username, email, full_name, role, password_hash, active, created_at, last_login_at`

// PostgresUserStore persists accounts in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, full_name, role, password_hash, active, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID.String(), u.Username, models.NormalizeEmail(u.Email), u.FullName, string(u.Role),
		u.PasswordHash, u.Active, u.CreatedAt, u.LastLoginAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", pqErr.Constraint, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, userID.String())
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
}

func (s *PostgresUserStore) UpdateLastLogin(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, u.ID.String(), u.LastLoginAt)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Update replaces the contact details and password hash.
func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET full_name = $2, email = $3, password_hash = $4 WHERE id = $1
	`, u.ID.String(), u.FullName, models.NormalizeEmail(u.Email), u.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", pqErr.Constraint, sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) ListByRole(ctx context.Context, role id.Role) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM users WHERE role = $1 ORDER BY username`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		rawID     string
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&rawID, &u.Username, &u.Email, &u.FullName, &role, &u.PasswordHash, &u.Active, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	userID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", rawID, err)
	}
	u.ID = userID
	u.Role = id.Role(role)
	if lastLogin.Valid {
		at := lastLogin.Time
		u.LastLoginAt = &at
	}
	return &u, nil
}
