package httpserver

const statusStreamRoute = "/api/v1/status/stream"

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.config.MetricsEnabled {
		s.echo.GET(s.metricsPath(), s.metricsEndpoint)
	}

	api := s.echo.Group("/api/v1")
	api.POST("/auth/token", s.issueToken)

	protected := api.Group("")
	if s.authSvc != nil {
		protected.Use(s.middleware.JWT.RequireJWT())
	}

	cache := protected.Group("/cache")
	cache.GET("/stats", s.getCacheStats)
	cache.GET("/:key", s.getCacheEntry)
	cache.PUT("/:key", s.putCacheEntry)
	cache.DELETE("/:key", s.deleteCacheEntry)
	cache.DELETE("", s.clearCache)

	queue := protected.Group("/queue")
	queue.GET("", s.listQueue)
	queue.POST("", s.queueAction)
	queue.DELETE("", s.clearQueue)

	protected.POST("/sync", s.forceSync)
	protected.GET("/sync/last", s.lastSync)

	protected.GET("/status", s.getStatus)
	protected.GET("/status/stream", s.streamStatus)

	protected.GET("/network", s.getNetwork)
	protected.PUT("/network", s.reportNetwork)
	protected.POST("/network/refresh", s.refreshNetwork)
}
