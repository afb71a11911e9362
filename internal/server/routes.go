package server

import (
	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/internal/server/routes"
	"github.com/flowmetrics/semgraph/internal/server/ws"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, hub *ws.Hub) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	// Graph update notifications
	e.GET("/ws", hub.Handler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph query routes
	apiRoutes.GET("/overview", routes.GetOverviewHandler)
	apiRoutes.GET("/sources", routes.GetSourcesHandler)
	apiRoutes.GET("/node-types", routes.GetNodeTypesHandler)
	apiRoutes.POST("/search", routes.SearchHandler)
	apiRoutes.POST("/search/semantic", routes.SemanticSearchHandler)
	apiRoutes.POST("/graph/filtered", routes.FilteredGraphHandler)
	apiRoutes.GET("/graph/audience/:audience", routes.AudienceGraphHandler)
	apiRoutes.POST("/node/neighbors", routes.NeighborsHandler)
	apiRoutes.GET("/analytics", routes.GetAnalyticsHandler)

	// Export routes
	apiRoutes.GET("/export/graph", routes.ExportGraphHandler)
	apiRoutes.GET("/export/download", routes.DownloadLinkHandler)

	// Content generation routes
	apiRoutes.POST("/content/generate", routes.GenerateContentHandler)
	apiRoutes.POST("/content/campaign", routes.CampaignContentHandler)

	// Rebuild routes
	apiRoutes.POST("/graph/rebuild", routes.RebuildGraphHandler, middleware.RequireRole("admin"))
}
