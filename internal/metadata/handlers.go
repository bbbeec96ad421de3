package metadata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/catalog"
)

// Handlers provides HTTP handlers for metadata operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new metadata handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the metadata routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/movie/:id", h.GetMovie)
	g.GET("/tv/:id", h.GetSeries)
	g.GET("/tv/:id/season/:season", h.GetSeason)
	g.GET("/person/:id", h.GetPerson)
	g.GET("/genres", h.GetGenres)
	g.GET("/status", h.GetStatus)
}

// GetMovie returns a movie page payload.
// GET /api/v1/metadata/movie/:id
func (h *Handlers) GetMovie(c echo.Context) error {
	return h.getTitle(c, catalog.Movie)
}

// GetSeries returns a series page payload.
// GET /api/v1/metadata/tv/:id
func (h *Handlers) GetSeries(c echo.Context) error {
	return h.getTitle(c, catalog.Series)
}

func (h *Handlers) getTitle(c echo.Context, mediaType catalog.MediaType) error {
	id, err := positiveParam(c, "id")
	if err != nil {
		return err
	}

	title, err := h.service.GetTitle(c.Request().Context(), mediaType, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, title)
}

// GetSeason returns the episodes of a season.
// GET /api/v1/metadata/tv/:id/season/:season
func (h *Handlers) GetSeason(c echo.Context) error {
	id, err := positiveParam(c, "id")
	if err != nil {
		return err
	}
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid season")
	}

	result, err := h.service.GetSeason(c.Request().Context(), id, season)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetPerson returns a person's filmography.
// GET /api/v1/metadata/person/:id
func (h *Handlers) GetPerson(c echo.Context) error {
	id, err := positiveParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.service.GetPerson(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetGenres returns the combined genre list.
// GET /api/v1/metadata/genres
func (h *Handlers) GetGenres(c echo.Context) error {
	genres, err := h.service.Genres(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genres)
}

// GetStatus reports whether the upstream provider is configured.
// GET /api/v1/metadata/status
func (h *Handlers) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"tmdb": h.service.IsConfigured()})
}

func positiveParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

// httpError maps service errors onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoProvidersConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no metadata providers configured")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
