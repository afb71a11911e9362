package routes

import (
	"net/http"

	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetOverviewHandler returns the graph summary statistics.
func GetOverviewHandler(c echo.Context) error {
	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	overview, err := graphStore.Overview(ctx)
	if err != nil {
		logger.Error("Failed to compute overview", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, overview)
}

// GetSourcesHandler lists the data sources present in the graph, most
// frequent first.
func GetSourcesHandler(c echo.Context) error {
	type sourcesResponse struct {
		Sources []store.SourceCount `json:"sources"`
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	overview, err := graphStore.Overview(ctx)
	if err != nil {
		logger.Error("Failed to compute overview", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, sourcesResponse{
		Sources: overview.TopSources,
	})
}

// GetNodeTypesHandler returns the node type distribution.
func GetNodeTypesHandler(c echo.Context) error {
	type nodeTypesResponse struct {
		NodeTypes map[string]int `json:"node_types"`
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	overview, err := graphStore.Overview(ctx)
	if err != nil {
		logger.Error("Failed to compute overview", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, nodeTypesResponse{
		NodeTypes: overview.NodeTypes,
	})
}

// GetAnalyticsHandler returns connectivity and tag statistics.
func GetAnalyticsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	analytics, err := graphStore.Analytics(ctx)
	if err != nil {
		logger.Error("Failed to compute analytics", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, analytics)
}
