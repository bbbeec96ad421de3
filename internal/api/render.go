package api

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/catalog"
)

const layoutTemplate = "layout.html"

var pageTemplates = []string{
	"browse.html",
	"title.html",
	"season.html",
	"person.html",
	"watchlist.html",
	"login.html",
	"register.html",
	"surprise.html",
	"error.html",
}

// Renderer renders pages as the shared layout plus one page template.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the layout and every page template from fsys.
func NewRenderer(fsys fs.FS, funcs template.FuncMap) (*Renderer, error) {
	base, err := template.New(layoutTemplate).Funcs(funcs).ParseFS(fsys, layoutTemplate)
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		tpl, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tpl.ParseFS(fsys, page); err != nil {
			return nil, fmt.Errorf("%s: %w", page, err)
		}
		pages[page] = tpl
	}
	return &Renderer{pages: pages}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tpl.ExecuteTemplate(w, "layout", data)
}

// page is the data every template receives.
type page struct {
	User     *auth.Claims
	LoginURL string
	Data     any
}

func (s *Server) render(c echo.Context, status int, name string, data any) error {
	return c.Render(status, name, page{
		User:     auth.GetUser(c),
		LoginURL: auth.LoginURL(c.Request().URL.RequestURI()),
		Data:     data,
	})
}

func (s *Server) templateFuncs() template.FuncMap {
	imageBase := s.cfg.Metadata.TMDB.ImageBaseURL
	return template.FuncMap{
		"image": func(path, size string) string {
			if path == "" {
				return ""
			}
			return imageBase + "/" + size + path
		},
		"posterBase": func() string {
			return imageBase + "/w342"
		},
		"rating": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 1, 64)
		},
		"itemURL": itemURL,
	}
}

func itemURL(item catalog.Item) string {
	if item.MediaType == catalog.Series {
		return "/tv/" + strconv.Itoa(item.ID)
	}
	return "/movie/" + strconv.Itoa(item.ID)
}

// errorPage is the data of error.html.
type errorPage struct {
	Code    int
	Heading string
	Message string
}

// handleError renders JSON for API routes and the error page otherwise.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var message any = http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = he.Message
		if he.Internal != nil {
			s.logger.Debug().Err(he.Internal).Int("status", code).Msg("request failed")
		}
	} else {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
	}

	if wantsJSON(c) {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if msg, ok := message.(string); ok {
			message = map[string]string{"message": msg}
		}
		_ = c.JSON(code, message)
		return
	}

	data := errorPage{Code: code, Heading: "Something went wrong", Message: "Please try again in a moment."}
	switch code {
	case http.StatusNotFound:
		data.Heading, data.Message = "Not found", "We couldn't find that page."
	case http.StatusTooManyRequests:
		data.Heading, data.Message = "Slow down", "Too many requests. Please wait a moment."
	case http.StatusServiceUnavailable:
		data.Heading, data.Message = "Catalog unavailable", "The catalog is not available on this server."
	}
	if err := s.render(c, code, "error.html", data); err != nil {
		s.logger.Error().Err(err).Msg("failed to render error page")
		_ = c.String(code, data.Heading)
	}
}

func wantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/") || path == "/health" || path == "/ws/browse"
}
