package watchlist

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/catalog"
)

// Event types published after a change.
const (
	EventAdded   = "watchlist:added"
	EventRemoved = "watchlist:removed"
)

// Publisher fans watchlist changes out to the user's live connections.
type Publisher interface {
	PublishToUser(userID int64, msgType string, payload any)
}

// ChangePayload is the body of a watchlist event.
type ChangePayload struct {
	ItemID   int               `json:"itemId"`
	ItemType catalog.MediaType `json:"itemType"`
	Item     *catalog.Item     `json:"item,omitempty"`
}

// Service applies watchlist operations for a user.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

// NewService creates a watchlist service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "watchlist").Logger(),
	}
}

// SetPublisher wires live change notifications.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Add saves item for the user. It reports false when the entry already
// existed, which is not an error.
func (s *Service) Add(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType, itemData json.RawMessage) (bool, error) {
	if err := ValidateItemID(itemID); err != nil {
		return false, err
	}
	if _, err := ParseItemType(string(itemType)); err != nil {
		return false, err
	}
	if len(itemData) == 0 || !json.Valid(itemData) {
		itemData = json.RawMessage("{}")
	}

	added, err := s.repo.Add(ctx, Entry{UserID: userID, ItemID: itemID, ItemType: itemType, ItemData: itemData})
	if err != nil {
		s.logger.Error().Err(err).Int64("userId", userID).Int("itemId", itemID).Msg("failed to add watchlist entry")
		return false, err
	}

	if added {
		item := Entry{ItemID: itemID, ItemType: itemType, ItemData: itemData}.Item()
		s.publish(userID, EventAdded, ChangePayload{ItemID: itemID, ItemType: itemType, Item: &item})
	}
	return added, nil
}

// AddItem saves a catalog item with itself as the snapshot.
func (s *Service) AddItem(ctx context.Context, userID int64, item catalog.Item) (bool, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	return s.Add(ctx, userID, item.ID, item.MediaType, data)
}

// Remove deletes the entry. ErrNotFound reports that nothing matched.
func (s *Service) Remove(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) error {
	if err := ValidateItemID(itemID); err != nil {
		return err
	}
	if _, err := ParseItemType(string(itemType)); err != nil {
		return err
	}

	removed, err := s.repo.Remove(ctx, userID, itemID, itemType)
	if err != nil {
		s.logger.Error().Err(err).Int64("userId", userID).Int("itemId", itemID).Msg("failed to remove watchlist entry")
		return err
	}
	if !removed {
		return ErrNotFound
	}

	s.publish(userID, EventRemoved, ChangePayload{ItemID: itemID, ItemType: itemType})
	return nil
}

// IsWatchlisted reports whether the user has the title.
func (s *Service) IsWatchlisted(ctx context.Context, userID int64, itemID int, itemType catalog.MediaType) (bool, error) {
	if err := ValidateItemID(itemID); err != nil {
		return false, err
	}
	if _, err := ParseItemType(string(itemType)); err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, userID, itemID, itemType)
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Entry, error) {
	return s.repo.List(ctx, userID)
}

// StoreFor loads the user's membership into a fresh Store.
func (s *Service) StoreFor(ctx context.Context, userID int64) (*Store, error) {
	entries, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	store := NewStore()
	store.Sync(entries)
	return store, nil
}

// Persister returns a Persister acting for userID.
func (s *Service) Persister(userID int64) Persister {
	return userPersister{service: s, userID: userID}
}

func (s *Service) publish(userID int64, msgType string, payload ChangePayload) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishToUser(userID, msgType, payload)
}

type userPersister struct {
	service *Service
	userID  int64
}

func (p userPersister) Add(ctx context.Context, item catalog.Item) error {
	_, err := p.service.AddItem(ctx, p.userID, item)
	return err
}

func (p userPersister) Remove(ctx context.Context, item catalog.Item) error {
	err := p.service.Remove(ctx, p.userID, item.ID, item.MediaType)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
