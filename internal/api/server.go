// Package api wires the HTTP surface: JSON APIs, server-rendered pages,
// the live browse websocket and operational endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apimw "github.com/reelscout/reelscout/internal/api/middleware"
	"github.com/reelscout/reelscout/internal/api/ratelimit"
	"github.com/reelscout/reelscout/internal/auth"
	"github.com/reelscout/reelscout/internal/config"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/discovery"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/scheduler"
	"github.com/reelscout/reelscout/internal/watchlist"
	"github.com/reelscout/reelscout/internal/websocket"
	"github.com/reelscout/reelscout/web"
)

// pageLoadTimeout bounds how long a page waits for upstream data.
const pageLoadTimeout = 15 * time.Second

// Deps are the services the server routes to. Scheduler, IPLimiter and
// LoginLimiter may be nil.
type Deps struct {
	Config       *config.Config
	Metadata     *metadata.Service
	Blocklist    *contentfilter.Blocklist
	Auth         *auth.Service
	Watchlist    *watchlist.Service
	Hub          *websocket.Hub
	Browse       *discovery.Registry
	Scheduler    *scheduler.Scheduler
	IPLimiter    *ratelimit.IPLimiter
	LoginLimiter *ratelimit.LoginLimiter
}

// Server handles HTTP requests.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	logger    zerolog.Logger
	startTime time.Time

	metadata     *metadata.Service
	blocklist    *contentfilter.Blocklist
	authService  *auth.Service
	authHandlers *auth.Handlers
	authMW       *auth.Middleware
	watchlist    *watchlist.Service
	hub          *websocket.Hub
	browse       *discovery.Registry
	scheduler    *scheduler.Scheduler
	ipLimiter    *ratelimit.IPLimiter
	renderer     *Renderer
}

// NewServer creates the server and registers every route.
func NewServer(deps Deps, logger zerolog.Logger) (*Server, error) {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Browse == nil {
		deps.Browse = discovery.NewRegistry(deps.Config.Cache.MaxVisitors, 0)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		cfg:         deps.Config,
		logger:      logger.With().Str("component", "http").Logger(),
		startTime:   time.Now(),
		metadata:    deps.Metadata,
		blocklist:   deps.Blocklist,
		authService: deps.Auth,
		watchlist:   deps.Watchlist,
		hub:         deps.Hub,
		browse:      deps.Browse,
		scheduler:   deps.Scheduler,
		ipLimiter:   deps.IPLimiter,
	}

	s.authHandlers = auth.NewHandlers(deps.Auth, deps.Config.Auth.CookieName, deps.Config.Server.SecureCookies)
	if deps.LoginLimiter != nil {
		s.authHandlers.SetLockoutChecker(deps.LoginLimiter)
	}
	s.authMW = auth.NewMiddleware(deps.Auth, deps.Config.Auth.CookieName)

	renderer, err := NewRenderer(web.Templates(), s.templateFuncs())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.renderer = renderer
	e.Renderer = renderer
	e.HTTPErrorHandler = s.handleError

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("requestId", v.RequestID).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("requestId", v.RequestID).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))

	if s.ipLimiter != nil {
		s.echo.Use(s.ipLimiter.Middleware())
	}
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
