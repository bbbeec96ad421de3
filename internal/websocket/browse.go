package websocket

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/debounce"
	"github.com/reelscout/reelscout/internal/discovery"
	"github.com/reelscout/reelscout/internal/visitor"
	"github.com/reelscout/reelscout/internal/watchlist"
)

// SearchDebounce is how long typing must pause before a search runs.
const SearchDebounce = 400 * time.Millisecond

// Message types of the browse channel.
const (
	TypeView           = "view"
	TypeError          = "error"
	TypeSearch         = "search"
	TypeFilters        = "filters"
	TypeMore           = "more"
	TypeRetry          = "retry"
	TypeToggle         = "toggle"
	TypeWatchlistError = "watchlist:error"
)

const toggleTimeout = 10 * time.Second

// Card is a browse result with its watchlist flag.
type Card struct {
	catalog.Item
	Watchlisted bool `json:"watchlisted"`
}

// ViewPayload is the body of a view message.
type ViewPayload struct {
	Items             []Card           `json:"items"`
	Status            discovery.Status `json:"status"`
	Page              int              `json:"page"`
	HasMore           bool             `json:"hasMore"`
	CanLoadMore       bool             `json:"canLoadMore"`
	Loaded            int              `json:"loaded"`
	Error             string           `json:"error,omitempty"`
	Query             string           `json:"query"`
	SecondaryDisabled bool             `json:"secondaryDisabled"`
	ItemTypeLocked    bool             `json:"itemTypeLocked"`
}

// NewViewPayload converts a controller view, flagging the cards for which
// watchlisted reports true.
func NewViewPayload(v discovery.View, watchlisted func(catalog.Item) bool) ViewPayload {
	cards := make([]Card, len(v.Items))
	for i, it := range v.Items {
		cards[i] = Card{Item: it, Watchlisted: watchlisted(it)}
	}
	return ViewPayload{
		Items:             cards,
		Status:            v.Status,
		Page:              v.Page,
		HasMore:           v.HasMore,
		CanLoadMore:       v.CanLoadMore(),
		Loaded:            v.Loaded,
		Error:             v.Error,
		Query:             v.Query,
		SecondaryDisabled: v.SecondaryDisabled,
		ItemTypeLocked:    v.ItemTypeLocked,
	}
}

// SearchPayload carries the search box contents.
type SearchPayload struct {
	Term string `json:"term"`
}

// FiltersPayload carries browse parameters, keyed like the page URL.
// Parameters that are absent keep their current value.
type FiltersPayload map[string]string

// TogglePayload names the card whose watchlist flag flips.
type TogglePayload struct {
	ItemID   int               `json:"itemId"`
	ItemType catalog.MediaType `json:"itemType"`
}

// ToggleErrorPayload reports a failed toggle and the restored flag.
type ToggleErrorPayload struct {
	ItemID      int               `json:"itemId"`
	ItemType    catalog.MediaType `json:"itemType"`
	Watchlisted bool              `json:"watchlisted"`
	Error       string            `json:"error"`
}

// BrowseHandler serves live browse sessions: one discovery controller per
// connection, seeded from the visitor's memory cache.
type BrowseHandler struct {
	hub         *Hub
	fetcher     discovery.Fetcher
	blocklist   *contentfilter.Blocklist
	caches      *discovery.Registry
	watchlist   *watchlist.Service
	searchDelay time.Duration
	logger      zerolog.Logger
}

// NewBrowseHandler creates the handler. caches and watchlist may be nil.
func NewBrowseHandler(hub *Hub, fetcher discovery.Fetcher, blocklist *contentfilter.Blocklist,
	caches *discovery.Registry, wl *watchlist.Service, logger zerolog.Logger) *BrowseHandler {
	return &BrowseHandler{
		hub:         hub,
		fetcher:     fetcher,
		blocklist:   blocklist,
		caches:      caches,
		watchlist:   wl,
		searchDelay: SearchDebounce,
		logger:      logger.With().Str("component", "browse").Logger(),
	}
}

// Handle upgrades the request and starts the session. The query string
// seeds the filters the same way the browse page URL does.
// GET /ws/browse
func (h *BrowseHandler) Handle(c echo.Context) error {
	var userID int64
	if claims := auth.GetUser(c); claims != nil {
		userID = claims.UserID
	}

	store := watchlist.NewStore()
	if userID > 0 && h.watchlist != nil {
		loaded, err := h.watchlist.StoreFor(c.Request().Context(), userID)
		if err != nil {
			h.logger.Warn().Err(err).Int64("userId", userID).Msg("failed to load watchlist")
		} else {
			store = loaded
		}
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return err
	}

	var cache *discovery.MemoryCache
	if h.caches != nil {
		if id := visitor.ID(c); id != "" {
			cache = h.caches.For(id)
		}
	}

	client := newClient(h.hub, conn, userID)
	s := &browseSession{
		client:     client,
		controller: discovery.NewController(h.fetcher, h.blocklist, cache, h.logger),
		store:      store,
		userID:     userID,
		watchlist:  h.watchlist,
		logger:     h.logger,
	}
	s.search = debounce.New(h.searchDelay, s.controller.SetSearch)

	client.onMessage = s.handle
	client.onEvent = s.onEvent
	client.onClose = s.close
	s.controller.OnChange(s.pushView)

	if !h.hub.Register(client) {
		conn.Close()
		s.close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	s.controller.Mount(c.QueryParams())
	return nil
}

type browseSession struct {
	client     *Client
	controller *discovery.Controller
	search     *debounce.Debouncer[string]
	store      *watchlist.Store
	userID     int64
	watchlist  *watchlist.Service
	logger     zerolog.Logger
}

func (s *browseSession) handle(msg Message) {
	switch msg.Type {
	case TypeSearch:
		var p SearchPayload
		if !s.decode(msg, &p) {
			return
		}
		s.search.Push(p.Term)

	case TypeFilters:
		var p FiltersPayload
		if !s.decode(msg, &p) {
			return
		}
		// A pending search term belongs to the filters being replaced.
		s.search.Flush()
		q := url.Values{}
		for k, v := range p {
			q.Set(k, v)
		}
		s.controller.SetFilters(discovery.FiltersFromQuery(q, s.controller.Filters()))

	case TypeMore:
		s.search.Flush()
		s.controller.LoadMore()

	case TypeRetry:
		s.controller.Retry()

	case TypeToggle:
		var p TogglePayload
		if !s.decode(msg, &p) {
			return
		}
		s.toggle(p)

	default:
		s.client.Send(TypeError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func (s *browseSession) decode(msg Message, v any) bool {
	if len(msg.Payload) == 0 {
		msg.Payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		s.client.Send(TypeError, map[string]string{"error": "malformed " + msg.Type + " payload"})
		return false
	}
	return true
}

// toggle flips a visible card. The flag changes immediately; a failed
// write restores it and reports the error to this connection.
func (s *browseSession) toggle(p TogglePayload) {
	fail := func(msg string) {
		s.client.Send(TypeWatchlistError, ToggleErrorPayload{
			ItemID:      p.ItemID,
			ItemType:    p.ItemType,
			Watchlisted: s.store.Has(p.ItemType, p.ItemID),
			Error:       msg,
		})
	}

	if s.userID <= 0 || s.watchlist == nil {
		fail("Sign in to use your watchlist.")
		return
	}

	item, ok := s.findItem(p.ItemType, p.ItemID)
	if !ok {
		fail("That title is no longer on the page.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), toggleTimeout)
	defer cancel()

	_, err := s.store.Toggle(ctx, item, optimistic{
		Persister: s.watchlist.Persister(s.userID),
		show:      s.controller.Refresh,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("item", item.Key()).Msg("watchlist toggle failed")
		fail("Could not update your watchlist. Please try again.")
	}
	s.controller.Refresh()
}

// optimistic pushes the flipped flag before the write starts.
type optimistic struct {
	watchlist.Persister
	show func()
}

func (o optimistic) Add(ctx context.Context, item catalog.Item) error {
	o.show()
	return o.Persister.Add(ctx, item)
}

func (o optimistic) Remove(ctx context.Context, item catalog.Item) error {
	o.show()
	return o.Persister.Remove(ctx, item)
}

func (s *browseSession) findItem(t catalog.MediaType, id int) (catalog.Item, bool) {
	for _, it := range s.controller.View().Items {
		if it.MediaType == t && it.ID == id {
			return it, true
		}
	}
	return catalog.Item{}, false
}

// onEvent keeps the store in line with changes made on other connections
// of the same user.
func (s *browseSession) onEvent(msgType string, payload any) {
	change, ok := payload.(watchlist.ChangePayload)
	if !ok {
		return
	}
	switch msgType {
	case watchlist.EventAdded:
		s.store.Add(change.ItemType, change.ItemID)
	case watchlist.EventRemoved:
		s.store.Remove(change.ItemType, change.ItemID)
	default:
		return
	}
	s.controller.Refresh()
}

func (s *browseSession) pushView(v discovery.View) {
	s.client.Send(TypeView, NewViewPayload(v, s.store.HasItem))
}

func (s *browseSession) close() {
	s.search.Stop()
	s.controller.Close()
}
