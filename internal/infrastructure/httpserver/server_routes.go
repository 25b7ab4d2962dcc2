package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", metricsEndpoint())

	// API key first so the limiter sees the consumer name
	api := s.echo.Group("/api/v1", s.middleware.APIKey.RequireAPIKey(), s.middleware.RateLimit.Handler())

	properties := api.Group("/properties")
	properties.GET("/search", s.searchProperties)
	properties.GET("/:titleNumber", s.getPropertyByTitleNumber)

	api.GET("/ownership/lookup", s.lookupOwnership)

	pricePaid := api.Group("/price-paid")
	pricePaid.GET("/search", s.searchPricePaid)
	pricePaid.GET("/history/:titleNumber", s.getPriceHistory)

	bulk := api.Group("/bulk-searches")
	bulk.POST("", s.startBulkSearch)
	bulk.GET("/:id", s.getBulkSearchStatus)
	bulk.GET("/:id/download", s.downloadBulkResults)

	api.GET("/registry/health", s.getRegistryHealth)

	cache := api.Group("/cache")
	cache.GET("/stats", s.getCacheStats)
	cache.DELETE("/entries", s.invalidateCacheEntries)
	cache.POST("/clear", s.clearAPICache)

	if s.usageSvc != nil {
		usage := api.Group("/usage")
		usage.GET("/calls", s.getUsageCalls)
		usage.GET("/summary", s.getUsageSummary)
	}
}
