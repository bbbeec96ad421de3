package watchlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/auth"
)

// ItemRequest identifies a title in add and remove calls. ItemData is the
// display snapshot stored with a new entry.
type ItemRequest struct {
	ItemID   int             `json:"itemId" form:"itemId"`
	ItemType string          `json:"itemType" form:"itemType"`
	ItemData json.RawMessage `json:"itemData"`
}

// AddResponse reports whether an add created an entry.
type AddResponse struct {
	Added          bool `json:"added"`
	AlreadyPresent bool `json:"alreadyPresent,omitempty"`
}

// Handlers serves the watchlist API. Routes must sit behind
// auth.Middleware.RequireAPI.
type Handlers struct {
	service *Service
}

// NewHandlers creates the watchlist API handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts GET, POST and DELETE on g.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Get)
	g.POST("", h.Add)
	g.DELETE("", h.Remove)
}

// POST /api/watchlist
func (h *Handlers) Add(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemType, err := ParseItemType(req.ItemType)
	if err != nil {
		return inputError(err)
	}

	added, err := h.service.Add(c.Request().Context(), user.UserID, req.ItemID, itemType, req.ItemData)
	if err != nil {
		return serviceError(err)
	}
	if !added {
		return c.JSON(http.StatusOK, AddResponse{Added: false, AlreadyPresent: true})
	}
	return c.JSON(http.StatusCreated, AddResponse{Added: true})
}

// DELETE /api/watchlist
func (h *Handlers) Remove(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemType, err := ParseItemType(req.ItemType)
	if err != nil {
		return inputError(err)
	}

	err = h.service.Remove(c.Request().Context(), user.UserID, req.ItemID, itemType)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "watchlist entry not found")
	}
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": true})
}

// Get checks membership when itemId and itemType are given, otherwise
// lists the user's entries newest first.
// GET /api/watchlist
func (h *Handlers) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	ctx := c.Request().Context()

	rawID, rawType := c.QueryParam("itemId"), c.QueryParam("itemType")
	if rawID == "" && rawType == "" {
		entries, err := h.service.List(ctx, user.UserID)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, entries)
	}

	itemID, err := strconv.Atoi(rawID)
	if err != nil {
		return inputError(ValidateItemID(0))
	}
	itemType, err := ParseItemType(rawType)
	if err != nil {
		return inputError(err)
	}

	ok, err := h.service.IsWatchlisted(ctx, user.UserID, itemID, itemType)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"watchlisted": ok})
}

func inputError(err error) error {
	var ierr *InputError
	if errors.As(err, &ierr) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]map[string]string{
			"errors": {ierr.Field: ierr.Message},
		})
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func serviceError(err error) error {
	var ierr *InputError
	if errors.As(err, &ierr) {
		return inputError(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "watchlist operation failed")
}
