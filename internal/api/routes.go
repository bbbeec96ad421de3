package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelscout/reelscout/internal/api/handlers"
	"github.com/reelscout/reelscout/internal/metadata"
	"github.com/reelscout/reelscout/internal/visitor"
	"github.com/reelscout/reelscout/internal/watchlist"
	"github.com/reelscout/reelscout/internal/websocket"
	"github.com/reelscout/reelscout/web"
)

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	e := s.echo

	// Operational
	e.GET("/health", s.healthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.StaticFS("/static", web.Static())

	identify := s.authMW.Identify()
	visitors := visitor.Middleware(s.cfg.Server.SecureCookies)

	// Session API
	s.authHandlers.RegisterRoutes(e.Group("/api/auth"))

	// Watchlist API
	watchlist.NewHandlers(s.watchlist).RegisterRoutes(e.Group("/api/watchlist", s.authMW.RequireAPI()))

	api := e.Group("/api/v1", identify)
	api.GET("/status", s.getStatus)
	api.GET("/discover", s.discover, visitors)
	api.GET("/recommendations/random", s.randomRecommendation)

	metadata.NewHandlers(s.metadata).RegisterRoutes(api.Group("/metadata"))

	if s.scheduler != nil {
		handlers.NewSchedulerHandler(s.scheduler).RegisterRoutes(api.Group("/scheduler", s.authMW.RequireAPI()))
	}

	// Live browse
	browse := websocket.NewBrowseHandler(s.hub, s.metadata, s.blocklist, s.browse, s.watchlist, s.logger)
	e.GET("/ws/browse", browse.Handle, identify, visitors)

	// Pages
	pages := e.Group("", identify)
	pages.GET("/", s.browsePage, visitors)
	pages.POST("/browse/more", s.browseMore, visitors)
	pages.POST("/browse/retry", s.browseRetry, visitors)
	pages.GET("/movie/:id", s.moviePage)
	pages.GET("/tv/:id", s.seriesPage)
	pages.GET("/tv/:id/season/:season", s.seasonPage)
	pages.GET("/person/:id", s.personPage)
	pages.GET("/surprise", s.surprisePage)
	pages.GET("/watchlist", s.watchlistPage, s.authMW.RequirePage())
	pages.GET("/login", s.loginPage)
	pages.POST("/login", s.loginSubmit)
	pages.GET("/register", s.registerPage)
	pages.POST("/register", s.registerSubmit)
	pages.POST("/logout", s.logoutSubmit)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "page not found")
	})
}
