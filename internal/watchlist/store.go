package watchlist

import (
	"context"
	"sync"

	"github.com/reelscout/reelscout/internal/catalog"
)

// Persister writes membership changes through to storage.
type Persister interface {
	Add(ctx context.Context, item catalog.Item) error
	Remove(ctx context.Context, item catalog.Item) error
}

// Store caches which titles are saved. It is the only write path for
// membership while rendering; Toggle updates it optimistically and rolls
// back when the write fails.
type Store struct {
	mu    sync.RWMutex
	items map[string]struct{}
	// seq counts toggles per key so a failed toggle only rolls back if no
	// newer toggle of the same key has happened since.
	seq map[string]uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]struct{}),
		seq:   make(map[string]uint64),
	}
}

// Add marks key as saved. Adding twice is a no-op.
func (s *Store) Add(t catalog.MediaType, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[catalog.MakeKey(t, id)] = struct{}{}
}

// Remove unmarks key. Removing an absent key is a no-op.
func (s *Store) Remove(t catalog.MediaType, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, catalog.MakeKey(t, id))
}

// Has reports whether the title is saved.
func (s *Store) Has(t catalog.MediaType, id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[catalog.MakeKey(t, id)]
	return ok
}

// HasItem is Has for a catalog item.
func (s *Store) HasItem(item catalog.Item) bool {
	return s.Has(item.MediaType, item.ID)
}

// Sync replaces the contents with entries.
func (s *Store) Sync(entries []Entry) {
	items := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		items[e.Key()] = struct{}{}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Len returns the number of saved titles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Toggle flips membership of item immediately, then persists the change.
// On failure the pre-toggle value is restored and the error returned.
// It returns the membership after the call.
func (s *Store) Toggle(ctx context.Context, item catalog.Item, p Persister) (bool, error) {
	key := item.Key()

	s.mu.Lock()
	_, was := s.items[key]
	if was {
		delete(s.items, key)
	} else {
		s.items[key] = struct{}{}
	}
	s.seq[key]++
	mine := s.seq[key]
	s.mu.Unlock()

	var err error
	if was {
		err = p.Remove(ctx, item)
	} else {
		err = p.Add(ctx, item)
	}
	if err == nil {
		return !was, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[key] == mine {
		if was {
			s.items[key] = struct{}{}
		} else {
			delete(s.items, key)
		}
	}
	_, now := s.items[key]
	return now, err
}
