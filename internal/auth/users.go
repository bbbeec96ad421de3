package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/reelscout/reelscout/internal/database"
)

// UserRepository persists accounts.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a repository over db.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken username (case-insensitive) yields
// ErrUsernameExists.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.Conn().QueryRowContext(ctx, query, username, passwordHash, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// GetByUsername looks a user up case-insensitively.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE lower(username) = ?`)
	return r.scan(r.db.Conn().QueryRowContext(ctx, query, strings.ToLower(username)))
}

// Get looks a user up by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (*User, error) {
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`)
	return r.scan(r.db.Conn().QueryRowContext(ctx, query, id))
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) scan(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
