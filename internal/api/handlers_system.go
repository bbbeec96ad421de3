package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/config"
	"github.com/reelscout/reelscout/internal/discovery"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/visitor"
	"github.com/reelscout/reelscout/internal/watchlist"
	"github.com/reelscout/reelscout/internal/websocket"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/status
func (s *Server) getStatus(c echo.Context) error {
	response := map[string]any{
		"version":        config.Version,
		"startTime":      s.startTime.Format(time.RFC3339),
		"uptimeSeconds":  int(time.Since(s.startTime).Seconds()),
		"tmdbConfigured": s.metadata.IsConfigured(),
		"blockedTerms":   s.blocklist.Len(),
		"browseVisitors": s.browse.Len(),
		"authenticated":  auth.GetUser(c) != nil,
	}
	if s.hub != nil {
		response["liveConnections"] = s.hub.ClientCount()
	}
	if s.scheduler != nil {
		response["tasks"] = s.scheduler.ListTasks()
	}
	return c.JSON(http.StatusOK, response)
}

// DiscoverResponse is the JSON form of a browse view.
type DiscoverResponse struct {
	websocket.ViewPayload
	URL string `json:"url"`
}

// discover runs the browse controller for the request's parameters and
// returns the settled view. loadMore=true advances one page first;
// retry=true clears a latched error and requests the failed page again.
// GET /api/v1/discover
func (s *Server) discover(c echo.Context) error {
	var action browseAction
	switch {
	case c.QueryParam("retry") == "true":
		action = (*discovery.Controller).Retry
	case c.QueryParam("loadMore") == "true":
		action = (*discovery.Controller).LoadMore
	}

	view, err := s.loadView(c, action)
	if err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out loading titles")
	}

	return c.JSON(http.StatusOK, DiscoverResponse{
		ViewPayload: websocket.NewViewPayload(view, s.watchlistedFunc(c)),
		URL:         view.Filters.URL("/"),
	})
}

// browseAction advances a mounted controller, reporting whether it started
// a fetch.
type browseAction func(*discovery.Controller) bool

// loadView mounts a controller on the visitor's cache with the request
// query, optionally runs action, and waits for fetches to settle.
func (s *Server) loadView(c echo.Context, action browseAction) (discovery.View, error) {
	ctrl := discovery.NewController(s.metadata, s.blocklist, s.browse.For(visitor.ID(c)), s.logger)
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), pageLoadTimeout)
	defer cancel()

	ctrl.Mount(c.QueryParams())
	if err := ctrl.Wait(ctx); err != nil {
		return discovery.View{}, err
	}
	if action != nil && action(ctrl) {
		if err := ctrl.Wait(ctx); err != nil {
			return discovery.View{}, err
		}
	}
	return ctrl.View(), nil
}

// watchlistedFunc reports membership for the signed-in user; anonymous
// requests see nothing saved.
func (s *Server) watchlistedFunc(c echo.Context) func(catalog.Item) bool {
	claims := auth.GetUser(c)
	if claims == nil || s.watchlist == nil {
		return func(catalog.Item) bool { return false }
	}
	store, err := s.watchlist.StoreFor(c.Request().Context(), claims.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("userId", claims.UserID).Msg("failed to load watchlist")
		return func(catalog.Item) bool { return false }
	}
	return store.HasItem
}

// randomRecommendation picks a title recommended from the user's watchlist,
// or a random popular title for anonymous users and empty lists.
// GET /api/v1/recommendations/random
func (s *Server) randomRecommendation(c echo.Context) error {
	item, err := s.pickRecommendation(c)
	if err != nil {
		return recommendationError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) pickRecommendation(c echo.Context) (catalog.Item, error) {
	ctx := c.Request().Context()

	var seeds []catalog.Item
	if claims := auth.GetUser(c); claims != nil && s.watchlist != nil {
		entries, err := s.watchlist.List(ctx, claims.UserID)
		if err != nil {
			return catalog.Item{}, err
		}
		seeds = entriesToItems(entries)
	}
	return s.metadata.RandomRecommendation(ctx, seeds)
}

func recommendationError(err error) error {
	switch {
	case errors.Is(err, metadata.ErrNoProvidersConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no metadata providers configured")
	case errors.Is(err, metadata.ErrNoRecommendation):
		return echo.NewHTTPError(http.StatusNotFound, "no recommendation available")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "could not load a recommendation")
	}
}

func entriesToItems(entries []watchlist.Entry) []catalog.Item {
	items := make([]catalog.Item, len(entries))
	for i, e := range entries {
		items[i] = e.Item()
	}
	return items
}
