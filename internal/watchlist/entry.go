// Package watchlist persists each user's saved titles and keeps a
// membership cache for rendering.
package watchlist

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/reelscout/reelscout/internal/catalog"
)

var (
	// ErrNotFound means a removal matched nothing. Callers treat it as
	// "nothing to do" rather than a failure.
	ErrNotFound = errors.New("watchlist entry not found")
)

// Entry is one saved title.
type Entry struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"-"`
	ItemID    int               `json:"itemId"`
	ItemType  catalog.MediaType `json:"itemType"`
	ItemData  json.RawMessage   `json:"itemData"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Key matches catalog.Item.Key for the saved title.
func (e Entry) Key() string {
	return catalog.MakeKey(e.ItemType, e.ItemID)
}

// Item decodes the stored snapshot. Missing fields are filled from the
// entry's own id and type.
func (e Entry) Item() catalog.Item {
	var item catalog.Item
	if len(e.ItemData) > 0 {
		_ = json.Unmarshal(e.ItemData, &item)
	}
	item.ID = e.ItemID
	item.MediaType = e.ItemType
	return item
}

// InputError is a field-keyed problem with watchlist input.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

// ParseItemType accepts exactly the wire values "movie" and "tv".
func ParseItemType(s string) (catalog.MediaType, error) {
	switch catalog.MediaType(s) {
	case catalog.Movie, catalog.Series:
		return catalog.MediaType(s), nil
	}
	return "", &InputError{Field: "itemType", Message: `itemType must be "movie" or "tv"`}
}

// ValidateItemID requires a positive id.
func ValidateItemID(id int) error {
	if id <= 0 {
		return &InputError{Field: "itemId", Message: "itemId must be a positive integer"}
	}
	return nil
}
