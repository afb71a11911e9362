package routes

import (
	"net/http"

	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/internal/storage"
	"github.com/flowmetrics/semgraph/pkg/export"
	"github.com/flowmetrics/semgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ExportGraphHandler streams the full graph in the requested format.
// Supported formats are json (default), csv and graphml.
func ExportGraphHandler(c echo.Context) error {
	format := export.Format(c.QueryParam("format"))
	if format == "" {
		format = export.FormatJSON
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.Store

	snap, err := graphStore.Snapshot(ctx)
	if err != nil {
		logger.Error("Failed to load snapshot for export", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	data, err := export.Encode(snap, format)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Unsupported export format",
		})
	}

	return c.Blob(http.StatusOK, format.ContentType(), data)
}

// DownloadLinkHandler presigns a temporary download link for a stored
// artifact.
func DownloadLinkHandler(c echo.Context) error {
	type downloadResponse struct {
		Message string `json:"message,omitempty"`
		URL     string `json:"url,omitempty"`
	}

	key := c.QueryParam("key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, downloadResponse{
			Message: "Missing artifact key",
		})
	}

	s3Client := c.(*middleware.AppContext).App.S3
	if s3Client == nil {
		return c.JSON(http.StatusServiceUnavailable, downloadResponse{
			Message: "Artifact storage not configured",
		})
	}

	ctx := c.Request().Context()
	url, err := storage.GenerateDownloadLink(ctx, s3Client, key)
	if err != nil {
		logger.Error("Failed to presign download link", "key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, downloadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, downloadResponse{
		URL: url,
	})
}
