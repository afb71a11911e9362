package middleware

import (
	"github.com/flowmetrics/semgraph/internal/util"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/flowmetrics/semgraph/internal/server/ws"
	"github.com/flowmetrics/semgraph/pkg/ai"
	oai "github.com/flowmetrics/semgraph/pkg/ai/ollama"
	gai "github.com/flowmetrics/semgraph/pkg/ai/openai"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"
)

type AppUser struct {
	Subject string
	Role    string
}

type App struct {
	Store        store.GraphStorage
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	S3           *s3.Client
	AiClient     ai.GraphAIClient
	Hub          *ws.Hub
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	graphStore store.GraphStorage,
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	s3 *s3.Client,
	hub *ws.Hub,
	masterAPIKey string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			var aiClient ai.GraphAIClient

			switch adapter {
			case "ollama":
				client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

					BaseURL: util.GetEnv("AI_CHAT_URL"),
					ApiKey:  util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				aiClient = client
			default:
				aiClient = gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

					EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
					EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
					ChatURL:      util.GetEnv("AI_CHAT_URL"),
					ChatKey:      util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
			}

			app := &App{
				Store:        graphStore,
				Queue:        queue,
				Key:          key,
				S3:           s3,
				AiClient:     aiClient,
				Hub:          hub,
				MasterAPIKey: masterAPIKey,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
