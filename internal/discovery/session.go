package discovery

import (
	"github.com/reelscout/reelscout/internal/catalog"
)

// PageSession accumulates the pages fetched for one primary key.
// Items are append-only in arrival order and never hold a key twice.
type PageSession struct {
	PrimaryKey string
	Items      []catalog.Item
	Page       int // last committed page, 0 until the first page commits
	HasMore    bool

	seen map[string]struct{}
	// err is the latched fetch error; retryPage is the page Retry asks for.
	err       error
	retryPage int
}

func newSession(key string) *PageSession {
	return &PageSession{
		PrimaryKey: key,
		HasMore:    true,
		seen:       make(map[string]struct{}),
	}
}

// merge appends items not already present and returns the ones it kept.
// The first occurrence of a key keeps its position.
func (s *PageSession) merge(items []catalog.Item) []catalog.Item {
	added := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, dup := s.seen[k]; dup {
			continue
		}
		s.seen[k] = struct{}{}
		s.Items = append(s.Items, it)
		added = append(added, it)
	}
	return added
}

// latch records a failed fetch of page. Loading more stays off until Retry.
func (s *PageSession) latch(err error, page int) {
	s.err = err
	s.retryPage = page
	s.HasMore = false
}

// nextPage is the page a retry or load-more should request.
func (s *PageSession) nextPage() int {
	if s.retryPage > 0 {
		return s.retryPage
	}
	return s.Page + 1
}

// clone returns an independent copy, so a cached session is never mutated
// by the controller that restored it.
func (s *PageSession) clone() *PageSession {
	c := &PageSession{
		PrimaryKey: s.PrimaryKey,
		Items:      append([]catalog.Item(nil), s.Items...),
		Page:       s.Page,
		HasMore:    s.HasMore,
		seen:       make(map[string]struct{}, len(s.Items)),
		err:        s.err,
		retryPage:  s.retryPage,
	}
	for _, it := range c.Items {
		c.seen[it.Key()] = struct{}{}
	}
	return c
}
