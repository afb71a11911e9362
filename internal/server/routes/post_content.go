package routes

import (
	"encoding/json"
	"net/http"

	"github.com/flowmetrics/semgraph/internal/queue"
	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/content"
	"github.com/flowmetrics/semgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GenerateContentHandler drafts one piece of audience-targeted content from
// the stored graph and returns it inline.
func GenerateContentHandler(c echo.Context) error {
	type generateResponse struct {
		Message string             `json:"message,omitempty"`
		Result  *content.Generated `json:"result,omitempty"`
	}

	data := new(content.Request)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, generateResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, generateResponse{
			Message: "Invalid request body",
		})
	}
	if !common.IsKnownAudience(data.Audience) {
		return c.JSON(http.StatusBadRequest, generateResponse{
			Message: "Unknown audience",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	snap, err := app.Store.Snapshot(ctx)
	if err != nil {
		logger.Error("Failed to load snapshot for content", "err", err)
		return c.JSON(http.StatusInternalServerError, generateResponse{
			Message: "Internal server error",
		})
	}
	if len(snap.Nodes) == 0 {
		return c.JSON(http.StatusConflict, generateResponse{
			Message: "No graph data available",
		})
	}

	generator := content.NewGenerator(app.AiClient)
	result, err := generator.Generate(ctx, snap, *data)
	if err != nil {
		logger.Error("Failed to generate content", "audience", data.Audience, "err", err)
		return c.JSON(http.StatusInternalServerError, generateResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, generateResponse{
		Message: "Content generated successfully",
		Result:  result,
	})
}

// CampaignContentHandler enqueues one content job per audience so the
// worker drafts a coordinated campaign in the background.
func CampaignContentHandler(c echo.Context) error {
	type campaignRequest struct {
		Theme       string `json:"theme" validate:"required"`
		ContentType string `json:"content_type"`
		OutputDir   string `json:"output_dir" validate:"required"`
	}

	type campaignResponse struct {
		Message   string   `json:"message"`
		Audiences []string `json:"audiences,omitempty"`
	}

	data := new(campaignRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, campaignResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, campaignResponse{
			Message: "Invalid request body",
		})
	}
	if data.ContentType == "" {
		data.ContentType = "email"
	}

	ch := c.(*middleware.AppContext).App.Queue
	if ch == nil {
		return c.JSON(http.StatusServiceUnavailable, campaignResponse{
			Message: "Queue not available",
		})
	}

	for _, audience := range common.Audiences {
		job := queue.ContentJobMsg{
			Request: content.Request{
				Audience:    audience,
				ContentType: data.ContentType,
				Tone:        "professional",
				Length:      "medium",
				Context:     data.Theme,
			},
			OutputDir: data.OutputDir,
		}
		body, err := json.Marshal(job)
		if err != nil {
			logger.Error("Failed to marshal content job", "audience", audience, "err", err)
			return c.JSON(http.StatusInternalServerError, campaignResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(ch, queue.ContentQueue, body); err != nil {
			logger.Error("Failed to publish content job", "audience", audience, "err", err)
			return c.JSON(http.StatusInternalServerError, campaignResponse{
				Message: "Internal server error",
			})
		}
	}

	return c.JSON(http.StatusOK, campaignResponse{
		Message:   "Campaign jobs enqueued",
		Audiences: common.Audiences,
	})
}
