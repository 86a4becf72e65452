package httpserver

import (
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	if len(s.config.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.config.AllowedOrigins}))
	}
	s.echo.Use(middleware.RequestID())

	s.echo.Use(s.middleware.Metrics.WithStreamingRoutes(statusStreamRoute).CollectHTTPMetrics())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}
