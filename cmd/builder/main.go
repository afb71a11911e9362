package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/ai"
	oai "github.com/flowmetrics/semgraph/pkg/ai/ollama"
	gai "github.com/flowmetrics/semgraph/pkg/ai/openai"
	"github.com/flowmetrics/semgraph/pkg/extract"
	"github.com/flowmetrics/semgraph/pkg/graph"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/logger/console"
	graphstorage "github.com/flowmetrics/semgraph/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// One-shot graph build: reads the business metric documents from DATA_DIR,
// builds the knowledge graph and writes the artifacts to OUTPUT_DIR. When
// DATABASE_URL is set the stored snapshot is replaced as well.
func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir := util.GetEnvString("DATA_DIR", "data")
	outputDir := util.GetEnvString("OUTPUT_DIR", "output")
	graphName := util.GetEnvString("GRAPH_NAME", "flowmetrics_graph")
	threshold := util.GetEnvFloat("SIMILARITY_THRESHOLD", 0.25)

	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.GraphAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
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
		})
	}

	docs, err := extract.LoadDocuments(dataDir)
	if err != nil {
		logger.Fatal("Failed to load documents", "dir", dataDir, "err", err)
	}
	logger.Info("Loaded documents", "count", len(docs))

	builder := graph.NewGraphBuilder(graph.NewGraphBuilderParams{
		SimilarityThreshold: threshold,
	})
	snap, err := builder.BuildGraph(ctx, docs, aiClient)
	if err != nil {
		logger.Fatal("Failed to build graph", "err", err)
	}
	logger.Info("Graph built", "nodes", len(snap.Nodes), "edges", len(snap.Edges))

	persister := &graph.Persister{}
	if err := persister.SaveArtifacts(outputDir, graphName, snap); err != nil {
		logger.Fatal("Failed to save artifacts", "err", err)
	}
	logger.Info("Artifacts saved", "dir", outputDir, "name", graphName)

	if databaseURL := util.GetEnv("DATABASE_URL"); databaseURL != "" {
		cfg, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			logger.Fatal("Unable to parse database config", "err", err)
		}
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pool.Close()

		store := graphstorage.NewGraphDBStorageWithConnection(pool)
		if err := store.ReplaceSnapshot(ctx, snap); err != nil {
			logger.Fatal("Failed to replace stored snapshot", "err", err)
		}
		logger.Info("Stored snapshot replaced")
	}

	metrics := aiClient.GetMetrics()
	logger.Info("AI Metrics",
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
	)
}
