package routes

import (
	"encoding/json"
	"net/http"

	"github.com/flowmetrics/semgraph/internal/queue"
	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RebuildGraphHandler enqueues a full graph rebuild. The worker loads the
// raw documents, rebuilds the snapshot, replaces the stored graph and
// broadcasts the update.
func RebuildGraphHandler(c echo.Context) error {
	type rebuildRequest struct {
		DataDir             string  `json:"data_dir" validate:"required"`
		OutputDir           string  `json:"output_dir" validate:"required"`
		GraphName           string  `json:"graph_name" validate:"required"`
		SimilarityThreshold float64 `json:"similarity_threshold"`
	}

	type rebuildResponse struct {
		Message   string `json:"message"`
		GraphName string `json:"graph_name,omitempty"`
	}

	data := new(rebuildRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, rebuildResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, rebuildResponse{
			Message: "Invalid request body",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if ch == nil {
		return c.JSON(http.StatusServiceUnavailable, rebuildResponse{
			Message: "Queue not available",
		})
	}

	job := queue.RebuildMsg{
		DataDir:             data.DataDir,
		OutputDir:           data.OutputDir,
		GraphName:           data.GraphName,
		SimilarityThreshold: data.SimilarityThreshold,
	}
	body, err := json.Marshal(job)
	if err != nil {
		logger.Error("Failed to marshal rebuild job", "err", err)
		return c.JSON(http.StatusInternalServerError, rebuildResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(ch, queue.RebuildQueue, body); err != nil {
		logger.Error("Failed to publish rebuild job", "err", err)
		return c.JSON(http.StatusInternalServerError, rebuildResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, rebuildResponse{
		Message:   "Rebuild enqueued",
		GraphName: data.GraphName,
	})
}
