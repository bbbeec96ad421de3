package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/database"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// Repository stores watchlist entries.
type Repository interface {
	// Add inserts the entry unless (user, item, type) already exists and
	// reports whether a row was created.
	Add(ctx context.Context, entry Entry) (bool, error)
	// Remove deletes the matching entry and reports whether one existed.
	Remove(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) (bool, error)
	Exists(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) (bool, error)
	// List returns the user's entries, newest first.
	List(ctx context.Context, userID int64) ([]Entry, error)
}

// SQLRepository is the database-backed Repository.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a repository over db.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Add(ctx context.Context, e Entry) (bool, error) {
	data := string(e.ItemData)
	if data == "" {
		data = "{}"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO watchlist (user_id, item_id, item_type, item_data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id, item_type) DO NOTHING`)

	res, err := r.db.Conn().ExecContext(ctx, query, e.UserID, e.ItemID, string(e.ItemType), data, created)
	if err != nil {
		return false, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Remove(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) (bool, error) {
	query := r.db.Rebind(`DELETE FROM watchlist WHERE user_id = ? AND item_id = ? AND item_type = ?`)

	res, err := r.db.Conn().ExecContext(ctx, query, userID, itemID, string(itemType))
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Exists(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) (bool, error) {
	query := r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = ? AND item_id = ? AND item_type = ?)`)

	var exists bool
	if err := r.db.Conn().QueryRowContext(ctx, query, userID, itemID, string(itemType)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return exists, nil
}

func (r *SQLRepository) List(ctx context.Context, userID int64) ([]Entry, error) {
	query := r.db.Rebind(`SELECT id, user_id, item_id, item_type, item_data, created_at
		FROM watchlist WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`)

	rows, err := r.db.Conn().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var itemType, data string
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &itemType, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		e.ItemType = catalog.MediaType(itemType)
		e.ItemData = []byte(data)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return entries, nil
}
