package httpserver

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(echomiddleware.Recover())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(ErrorHandlingMiddleware())

	// Public reads: the hot path used by the host pool before every trade.
	s.echo.GET("/api/fee", s.handleGetFee)
	s.echo.GET("/api/sentiment", s.handleGetSentiment)

	// Keeper updates are authenticated and rate limited per client IP.
	updateLimiter := newRateLimiter(s.config.UpdateRatePerSecond, s.config.UpdateBurst)
	s.echo.POST("/api/sentiment", s.handleUpdateSentiment, s.requireIdentity, updateLimiter)

	admin := s.echo.Group("/api/admin", s.requireIdentity)
	admin.POST("/keepers", s.handleSetKeeperAuthorization)
	admin.PUT("/primary-keeper", s.handleSetPrimaryKeeper)
	admin.PUT("/alpha", s.handleSetAlpha)
	admin.PUT("/staleness-threshold", s.handleSetStalenessThreshold)
	admin.POST("/owner", s.handleTransferOwnership)

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.websocketHandler != nil {
		s.echo.GET("/ws/fee", echo.WrapHandler(s.websocketHandler))
	}
}
