package discovery

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

// MaxAutoRetries bounds how many further pages are requested in a row
// when committed pages contribute nothing visible.
const MaxAutoRetries = 3

// Fetcher loads one page of a resolved query.
type Fetcher interface {
	FetchPage(ctx context.Context, q metadata.Query, page int) (catalog.Page, error)
}

// Status is the coarse state of the current session.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusLoadingMore Status = "loading_more"
	StatusPopulated   Status = "populated"
	StatusEmpty       Status = "empty"
	StatusErrored     Status = "error"
)

// Controller owns the browse state for one viewer. All methods are safe
// for concurrent use; fetches run in the background and commit under the
// controller's lock.
type Controller struct {
	fetcher   Fetcher
	blocklist *contentfilter.Blocklist
	cache     *MemoryCache
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	notifyMu sync.Mutex

	mu            sync.Mutex
	filters       FilterState
	session       *PageSession
	generation    uint64
	fetching      bool
	initialLoaded bool
	autoRetries   int
	onChange      func(View)
}

// NewController creates a controller. cache may be nil, in which case a
// private cache is used. Fetches are cancelled by Close.
func NewController(fetcher Fetcher, blocklist *contentfilter.Blocklist, cache *MemoryCache, logger zerolog.Logger) *Controller {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher:   fetcher,
		blocklist: blocklist,
		cache:     cache,
		logger:    logger.With().Str("component", "discovery").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		filters:   DefaultFilters(),
	}
}

// OnChange registers a callback invoked with a fresh view after every
// state change. The callback must not call back into the controller.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Mount seeds the filters from URL parameters when any are present,
// otherwise from the cache's last filters, otherwise from defaults.
func (c *Controller) Mount(q url.Values) {
	base := DefaultFilters()
	if !HasFilterParams(q) {
		if last, ok := c.cache.LastFilters(); ok {
			c.SetFilters(last)
			return
		}
	}
	c.SetFilters(FiltersFromQuery(q, base))
}

// Filters returns the current (normalized) filter state.
func (c *Controller) Filters() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// SetFilters applies a new filter state. A changed primary key replaces
// the session, restoring it from the cache or fetching page 1; any other
// change only re-derives the display list.
func (c *Controller) SetFilters(f FilterState) {
	f = f.Normalize()

	c.mu.Lock()
	c.filters = f
	c.cache.SetLastFilters(f)

	key := f.PrimaryKey()
	if c.session == nil || c.session.PrimaryKey != key {
		c.resetSession(key)
	}
	c.mu.Unlock()

	c.notify()
}

// SetSearch replaces the search term and keeps the other filters.
func (c *Controller) SetSearch(term string) {
	f := c.Filters()
	f.Search = term
	c.SetFilters(f)
}

// resetSession switches to key. Results still in flight for the old key
// become stale through the generation bump. A cached session keeps its
// latched error, except one that failed before anything loaded, which is
// dropped and fetched again. Must hold c.mu.
func (c *Controller) resetSession(key string) {
	c.generation++
	c.autoRetries = 0

	if cached, ok := c.cache.Get(key); ok && cached.err != nil && len(cached.Items) == 0 {
		c.cache.Remove(key)
	} else if ok {
		c.session = cached
		c.initialLoaded = true
		c.fetching = false
		c.logger.Debug().Str("key", key).Int("items", len(cached.Items)).Msg("session restored from cache")
		return
	}

	c.session = newSession(key)
	c.initialLoaded = false
	c.startFetch(1)
}

// LoadMore requests the next page. It is a no-op (returning false) while a
// fetch is in flight, before the first page of the key has committed, once
// upstream is exhausted, or while an error is latched.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.session == nil || c.fetching || !c.initialLoaded || !c.session.HasMore || c.session.err != nil {
		c.mu.Unlock()
		return false
	}
	c.autoRetries = 0
	c.startFetch(c.session.Page + 1)
	c.mu.Unlock()

	c.notify()
	return true
}

// Retry clears a latched error and requests the page that failed. A page
// that only partly loaded is requested again; the merge drops the half
// already shown.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.session == nil || c.session.err == nil || c.fetching {
		c.mu.Unlock()
		return false
	}
	page := c.session.nextPage()
	c.session.err = nil
	c.session.retryPage = 0
	c.autoRetries = 0
	c.session.HasMore = true
	c.startFetch(page)
	c.mu.Unlock()

	c.notify()
	return true
}

// Refresh re-delivers the current view. Use it when something the view
// is rendered with changes outside the controller.
func (c *Controller) Refresh() {
	c.notify()
}

// Wait blocks until no fetch is running or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight fetches and waits for them to finish.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// startFetch launches a fetch of page for the current session. Must hold c.mu.
func (c *Controller) startFetch(page int) {
	c.fetching = true
	gen := c.generation
	key := c.session.PrimaryKey
	query := c.filters.Query()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.fetcher.FetchPage(c.ctx, query, page)
		c.commit(gen, key, page, result, err)
	}()
}

// commit applies a fetch result unless it is stale.
func (c *Controller) commit(gen uint64, key string, page int, result catalog.Page, err error) {
	c.mu.Lock()

	if gen != c.generation || c.session == nil || c.session.PrimaryKey != key {
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Int("page", page).Msg("discarding stale page")
		return
	}

	c.fetching = false
	c.initialLoaded = true

	var partial *metadata.PartialError
	if err != nil && !errors.As(err, &partial) {
		c.session.latch(err, page)
		c.cache.Put(c.session)
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("key", key).Int("page", page).Msg("page fetch failed")
		c.notify()
		return
	}

	added := c.session.merge(result.Items)
	c.session.Page = page
	c.session.HasMore = len(result.Items) > 0 && page < result.TotalPages
	c.session.err = nil
	c.session.retryPage = 0

	if partial != nil {
		c.session.latch(err, page)
		c.cache.Put(c.session)
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("key", key).Int("page", page).Msg("page partially fetched")
		c.notify()
		return
	}

	c.cache.Put(c.session)

	if len(c.visible(added)) == 0 && c.session.HasMore {
		if c.autoRetries < MaxAutoRetries {
			c.autoRetries++
			c.logger.Debug().Str("key", key).Int("page", page+1).Int("attempt", c.autoRetries).Msg("page had nothing visible, fetching next")
			c.startFetch(page + 1)
		}
	} else {
		c.autoRetries = 0
	}

	c.mu.Unlock()
	c.notify()
}

// visible derives the display list from accumulated items: item-type
// narrowing where the fetch ignored the type, then the blocklist, then the
// secondary filters. Must hold c.mu.
func (c *Controller) visible(items []catalog.Item) []catalog.Item {
	f := c.filters
	narrow := f.fetchesAllTypes() && f.ItemType != ItemTypeAll
	sec := f.localSecondary()
	secondary := !sec.IsZero()

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if narrow && it.MediaType != f.ItemType.MediaType() {
			continue
		}
		if c.blocklist.IsBlocked(it) {
			continue
		}
		if secondary && !contentfilter.MatchesSecondary(it, sec) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// View is a snapshot of the controller for rendering.
type View struct {
	Filters           FilterState    `json:"-"`
	Items             []catalog.Item `json:"items"`
	Status            Status         `json:"status"`
	Page              int            `json:"page"`
	HasMore           bool           `json:"hasMore"`
	Loaded            int            `json:"loaded"`
	Error             string         `json:"error,omitempty"`
	PrimaryKey        string         `json:"primaryKey"`
	Query             string         `json:"query"`
	SecondaryDisabled bool           `json:"secondaryDisabled"`
	ItemTypeLocked    bool           `json:"itemTypeLocked"`
}

// CanLoadMore reports whether a load-more action would start a fetch.
func (v View) CanLoadMore() bool {
	return v.HasMore && v.Error == "" && (v.Status == StatusPopulated || v.Status == StatusEmpty)
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Filters:           c.filters,
		Status:            StatusIdle,
		Query:             c.filters.Values().Encode(),
		SecondaryDisabled: c.filters.SecondaryDisabled(),
		ItemTypeLocked:    c.filters.ItemTypeLocked(),
		Items:             []catalog.Item{},
	}
	if c.session == nil {
		return v
	}

	v.Items = c.visible(c.session.Items)
	v.Page = c.session.Page
	v.HasMore = c.session.HasMore
	v.Loaded = len(c.session.Items)
	v.PrimaryKey = c.session.PrimaryKey
	if c.session.err != nil {
		v.Error = UserMessage(c.session.err)
	}

	switch {
	case c.fetching && !c.initialLoaded:
		v.Status = StatusLoading
	case c.fetching:
		v.Status = StatusLoadingMore
	case c.session.err != nil && len(v.Items) == 0:
		v.Status = StatusErrored
	case len(v.Items) == 0:
		v.Status = StatusEmpty
	default:
		v.Status = StatusPopulated
	}
	return v
}

// notify delivers a snapshot to the callback. Deliveries are serialized
// and each snapshot is taken after the previous delivery, so a consumer
// never sees an older view after a newer one.
func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	fn := c.onChange
	var v View
	if fn != nil {
		v = c.viewLocked()
	}
	c.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// UserMessage turns a fetch error into text suitable for display.
func UserMessage(err error) string {
	var partial *metadata.PartialError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &partial):
		return "Some results could not be loaded. Showing what we have."
	case errors.Is(err, tmdb.ErrRateLimited):
		return "The catalog is busy right now. Please try again in a moment."
	case errors.Is(err, metadata.ErrNoProvidersConfigured), errors.Is(err, tmdb.ErrAPIKeyMissing), errors.Is(err, tmdb.ErrUnauthorized):
		return "The catalog is not available on this server."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was interrupted. Please try again."
	default:
		return "We couldn't load titles. Please try again."
	}
}
