package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"

	"github.com/labstack/echo/v4"
)

// AudienceGraphHandler returns the audience-focused view: the nodes most
// relevant to the audience plus their connectivity expansion.
func AudienceGraphHandler(c echo.Context) error {
	audience := c.Param("audience")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"message": "Invalid limit",
			})
		}
		limit = parsed
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	graph, err := graphStore.AudienceFocusedGraph(ctx, audience, limit)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAudience) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "Unknown audience",
			})
		}
		logger.Error("Failed to build audience view", "audience", audience, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, graph)
}
