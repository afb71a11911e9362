package routes

import (
	"errors"
	"net/http"

	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"

	"github.com/labstack/echo/v4"
)

// SearchHandler matches nodes by content, source and tags.
func SearchHandler(c echo.Context) error {
	type searchRequest struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type searchResponse struct {
		Message string        `json:"message,omitempty"`
		Query   string        `json:"query,omitempty"`
		Results []common.Node `json:"results"`
	}

	data := new(searchRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	results, err := graphStore.Search(ctx, data.Query, data.Limit)
	if err != nil {
		logger.Error("Failed to search graph", "query", data.Query, "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{
			Message: "Internal server error",
		})
	}
	if results == nil {
		results = []common.Node{}
	}

	return c.JSON(http.StatusOK, searchResponse{
		Query:   data.Query,
		Results: results,
	})
}

// SemanticSearchHandler embeds the query text and returns the stored nodes
// nearest to it by cosine similarity.
func SemanticSearchHandler(c echo.Context) error {
	type semanticRequest struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type semanticResponse struct {
		Message string        `json:"message,omitempty"`
		Query   string        `json:"query,omitempty"`
		Results []common.Node `json:"results"`
	}

	data := new(semanticRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, semanticResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, semanticResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	embedding, err := app.AiClient.GenerateEmbedding(ctx, []byte(data.Query))
	if err != nil {
		logger.Error("Failed to embed search query", "err", err)
		return c.JSON(http.StatusInternalServerError, semanticResponse{
			Message: "Internal server error",
		})
	}

	results, err := app.Store.SimilarNodes(ctx, embedding, data.Limit)
	if err != nil {
		logger.Error("Failed to query similar nodes", "err", err)
		return c.JSON(http.StatusInternalServerError, semanticResponse{
			Message: "Internal server error",
		})
	}
	if results == nil {
		results = []common.Node{}
	}

	return c.JSON(http.StatusOK, semanticResponse{
		Query:   data.Query,
		Results: results,
	})
}

// FilteredGraphHandler returns the subgraph matching the conjunction of all
// provided filters.
func FilteredGraphHandler(c echo.Context) error {
	type filteredResponse struct {
		Message string           `json:"message,omitempty"`
		Graph   *common.Snapshot `json:"graph,omitempty"`
	}

	data := new(store.GraphFilter)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, filteredResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	graph, err := graphStore.FilteredGraph(ctx, *data)
	if err != nil {
		logger.Error("Failed to filter graph", "err", err)
		return c.JSON(http.StatusInternalServerError, filteredResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, filteredResponse{
		Graph: graph,
	})
}

// NeighborsHandler returns the subgraph around one node up to the requested
// depth, following only edges at or above the weight floor.
func NeighborsHandler(c echo.Context) error {
	type neighborsRequest struct {
		NodeID    string  `json:"node_id" validate:"required"`
		Depth     int     `json:"depth"`
		MinWeight float64 `json:"min_weight"`
	}

	type neighborsResponse struct {
		Message string           `json:"message,omitempty"`
		Graph   *common.Snapshot `json:"graph,omitempty"`
	}

	data := new(neighborsRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, neighborsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, neighborsResponse{
			Message: "Invalid request body",
		})
	}
	if data.Depth <= 0 {
		data.Depth = 1
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	graph, err := graphStore.Neighbors(ctx, data.NodeID, data.Depth, data.MinWeight)
	if err != nil {
		if errors.Is(err, store.ErrNodeNotFound) {
			return c.JSON(http.StatusNotFound, neighborsResponse{
				Message: "Node not found",
			})
		}
		logger.Error("Failed to load neighbors", "node_id", data.NodeID, "err", err)
		return c.JSON(http.StatusInternalServerError, neighborsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, neighborsResponse{
		Graph: graph,
	})
}
