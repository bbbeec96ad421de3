package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/discovery"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/websocket"
)

const firstDecade = 1920

type browsePage struct {
	View       discovery.View
	Filters    discovery.FilterState
	Cards      []websocket.Card
	Categories []discovery.Category
	ItemTypes  []discovery.ItemType
	Genres     []catalog.Genre
	Ratings    []contentfilter.RatingBand
	Years      []string
	YearValue  string
	Self       string
}

// GET /
func (s *Server) browsePage(c echo.Context) error {
	view, err := s.loadView(c, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out loading titles").SetInternal(err)
	}

	// Bare visits restored from the last filters get the canonical URL.
	if !discovery.HasFilterParams(c.QueryParams()) && view.Query != "" {
		return c.Redirect(http.StatusFound, view.Filters.URL("/"))
	}

	genres, err := s.metadata.Genres(c.Request().Context())
	if err != nil {
		s.logger.Debug().Err(err).Msg("genre list unavailable")
	}

	return s.render(c, http.StatusOK, "browse.html", browsePage{
		View:       view,
		Filters:    view.Filters,
		Cards:      cardsFor(view.Items, s.watchlistedFunc(c)),
		Categories: discovery.Categories,
		ItemTypes:  discovery.ItemTypes,
		Genres:     genres,
		Ratings:    contentfilter.RatingBands,
		Years:      yearOptions(time.Now().Year()),
		YearValue:  view.Filters.Years.String(),
		Self:       view.Filters.URL("/"),
	})
}

// browseMore loads the next page into the visitor's cache and sends the
// browser back to the canonical browse URL, which renders the longer list.
// A failed page stays latched in the cache, so the list comes back with
// the error notice.
// POST /browse/more
func (s *Server) browseMore(c echo.Context) error {
	return s.browseSubmit(c, (*discovery.Controller).LoadMore)
}

// browseRetry requests the page behind a latched error again.
// POST /browse/retry
func (s *Server) browseRetry(c echo.Context) error {
	return s.browseSubmit(c, (*discovery.Controller).Retry)
}

// browseSubmit runs action against the browse state named by the "q" form
// value, then redirects to the canonical browse URL.
func (s *Server) browseSubmit(c echo.Context, action browseAction) error {
	q, err := url.ParseQuery(c.FormValue("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid browse query")
	}
	c.Request().URL.RawQuery = q.Encode()
	// An empty query means default filters, not "restore the last ones".
	if !discovery.HasFilterParams(q) {
		c.Request().URL.RawQuery = discovery.ParamCategory + "=" + string(discovery.CategoryDiscover)
	}

	view, err := s.loadView(c, action)
	if err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out loading titles").SetInternal(err)
	}
	return c.Redirect(http.StatusSeeOther, view.Filters.URL("/"))
}

// yearOptions lists the decades from the current one back to the 1920s.
func yearOptions(current int) []string {
	var out []string
	for d := current - current%10; d >= firstDecade; d -= 10 {
		out = append(out, strconv.Itoa(d)+"s")
	}
	return out
}

type titlePage struct {
	Title           *metadata.Title
	Watchlisted     bool
	Recommendations []websocket.Card
}

// GET /movie/:id
func (s *Server) moviePage(c echo.Context) error {
	return s.titlePage(c, catalog.Movie)
}

// GET /tv/:id
func (s *Server) seriesPage(c echo.Context) error {
	return s.titlePage(c, catalog.Series)
}

func (s *Server) titlePage(c echo.Context, mediaType catalog.MediaType) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), pageLoadTimeout)
	defer cancel()

	title, err := s.metadata.GetTitle(ctx, mediaType, id)
	if err != nil {
		return pageError(err)
	}

	has := s.watchlistedFunc(c)
	return s.render(c, http.StatusOK, "title.html", titlePage{
		Title:           title,
		Watchlisted:     has(title.Item),
		Recommendations: cardsFor(title.Recommendations, has),
	})
}

// GET /tv/:id/season/:season
func (s *Server) seasonPage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(c.Param("season"))
	if err != nil || number < 0 {
		return echo.NewHTTPError(http.StatusNotFound, "season not found")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), pageLoadTimeout)
	defer cancel()

	season, err := s.metadata.GetSeason(ctx, id, number)
	if err != nil {
		return pageError(err)
	}
	return s.render(c, http.StatusOK, "season.html", season)
}

type personPage struct {
	Person *metadata.PersonPage
	Movies []websocket.Card
}

// GET /person/:id
func (s *Server) personPage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), pageLoadTimeout)
	defer cancel()

	person, err := s.metadata.GetPerson(ctx, id)
	if err != nil {
		return pageError(err)
	}
	return s.render(c, http.StatusOK, "person.html", personPage{
		Person: person,
		Movies: cardsFor(person.Movies, s.watchlistedFunc(c)),
	})
}

type watchlistPage struct {
	Cards []websocket.Card
}

// GET /watchlist
func (s *Server) watchlistPage(c echo.Context) error {
	claims := auth.GetUser(c)
	entries, err := s.watchlist.List(c.Request().Context(), claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load watchlist").SetInternal(err)
	}

	cards := make([]websocket.Card, 0, len(entries))
	for _, e := range entries {
		cards = append(cards, websocket.Card{Item: e.Item(), Watchlisted: true})
	}
	return s.render(c, http.StatusOK, "watchlist.html", watchlistPage{Cards: cards})
}

type surprisePage struct {
	Card websocket.Card
}

// GET /surprise
func (s *Server) surprisePage(c echo.Context) error {
	item, err := s.pickRecommendation(c)
	if err != nil {
		return recommendationError(err)
	}
	return s.render(c, http.StatusOK, "surprise.html", surprisePage{
		Card: websocket.Card{Item: item, Watchlisted: s.watchlistedFunc(c)(item)},
	})
}

type loginPage struct {
	Callback string
	Username string
	Error    string
}

// GET /login
func (s *Server) loginPage(c echo.Context) error {
	callback := auth.SafeCallback(c.QueryParam("callbackUrl"))
	if auth.GetUser(c) != nil {
		return c.Redirect(http.StatusSeeOther, callback)
	}
	return s.render(c, http.StatusOK, "login.html", loginPage{Callback: callback})
}

// POST /login
func (s *Server) loginSubmit(c echo.Context) error {
	callback := auth.SafeCallback(c.FormValue("callbackUrl"))
	username := c.FormValue("username")
	password := c.FormValue("password")

	data := loginPage{Callback: callback, Username: username}
	if username == "" || password == "" {
		data.Error = "Enter your username and password."
		return s.render(c, http.StatusBadRequest, "login.html", data)
	}

	user, err := s.authHandlers.Authenticate(c, username, password)
	if err != nil {
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code >= http.StatusInternalServerError {
			return err
		}
		data.Error = "Invalid username or password."
		if he.Code == http.StatusTooManyRequests {
			data.Error = "Too many failed attempts. Please try again later."
		}
		return s.render(c, he.Code, "login.html", data)
	}

	if _, err := s.authHandlers.StartSession(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start session").SetInternal(err)
	}
	return c.Redirect(http.StatusSeeOther, callback)
}

type registerPage struct {
	Username string
	Fields   map[string]string
	Error    string
}

// GET /register
func (s *Server) registerPage(c echo.Context) error {
	return s.render(c, http.StatusOK, "register.html", registerPage{Fields: map[string]string{}})
}

// POST /register
func (s *Server) registerSubmit(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	user, err := s.authService.Register(c.Request().Context(), username, password)
	if err != nil {
		data := registerPage{Username: username, Fields: map[string]string{}}
		var verr *auth.ValidationError
		if !errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusInternalServerError, "registration failed").SetInternal(err)
		}
		data.Fields = verr.Fields
		return s.render(c, http.StatusBadRequest, "register.html", data)
	}

	if _, err := s.authHandlers.StartSession(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start session").SetInternal(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// POST /logout
func (s *Server) logoutSubmit(c echo.Context) error {
	s.authHandlers.EndSession(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

func cardsFor(items []catalog.Item, has func(catalog.Item) bool) []websocket.Card {
	cards := make([]websocket.Card, len(items))
	for i, it := range items {
		cards[i] = websocket.Card{Item: it, Watchlisted: has(it)}
	}
	return cards
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

// pageError maps metadata failures to the error page.
func pageError(err error) error {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found").SetInternal(err)
	case errors.Is(err, metadata.ErrNoProvidersConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "upstream error").SetInternal(err)
	}
}
