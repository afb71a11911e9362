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
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/content"
	"github.com/flowmetrics/semgraph/pkg/graph"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/logger/console"
	graphstorage "github.com/flowmetrics/semgraph/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type suiteJob struct {
	Request  content.Request
	Filename string
}

// The standard email suite: one coordinated draft per stakeholder group
// plus a short board pre-read.
var suite = []suiteJob{
	{
		Request: content.Request{
			Audience:    "investors",
			ContentType: "email",
			Tone:        "professional",
			Length:      "medium",
			FocusAreas:  []string{"growth", "revenue"},
			Context:     "Q1 2024 investor update",
		},
		Filename: "investor_update_q1_2024.txt",
	},
	{
		Request: content.Request{
			Audience:    "customers",
			ContentType: "email",
			Tone:        "professional",
			Length:      "short",
			FocusAreas:  []string{"features", "satisfaction"},
			Context:     "Customer newsletter highlighting product improvements",
		},
		Filename: "customer_newsletter_q1_2024.txt",
	},
	{
		Request: content.Request{
			Audience:    "internal_team",
			ContentType: "email",
			Tone:        "casual",
			Length:      "medium",
			FocusAreas:  []string{"performance", "goals"},
			Context:     "Monthly all-hands summary",
		},
		Filename: "team_update_q1_2024.txt",
	},
	{
		Request: content.Request{
			Audience:    "developer_community",
			ContentType: "email",
			Tone:        "technical",
			Length:      "long",
			FocusAreas:  []string{"api", "integration"},
			Context:     "Developer changelog announcement",
		},
		Filename: "developer_update_q1_2024.txt",
	},
	{
		Request: content.Request{
			Audience:    "investors",
			ContentType: "email",
			Tone:        "professional",
			Length:      "short",
			FocusAreas:  []string{"revenue", "market"},
			Context:     "Board meeting pre-read",
		},
		Filename: "board_preread_q1_2024.txt",
	},
}

// One-shot content run: drafts the full email suite from the current graph
// and writes the text files to OUTPUT_DIR.
func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outputDir := util.GetEnvString("OUTPUT_DIR", "generated_content")

	adapter := util.GetEnv("AI_ADAPTER")
	if adapter != "ollama" && util.GetEnv("AI_CHAT_KEY") == "" {
		logger.Fatal("AI_CHAT_KEY is required for content generation")
	}

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

	snap := loadSnapshot(ctx)
	if len(snap.Nodes) == 0 {
		logger.Fatal("No graph data available, build the graph first")
	}
	logger.Info("Loaded graph", "nodes", len(snap.Nodes), "edges", len(snap.Edges))

	generator := content.NewGenerator(aiClient)
	for _, job := range suite {
		result, err := generator.Generate(ctx, snap, job.Request)
		if err != nil {
			logger.Error("Failed to generate draft", "audience", job.Request.Audience, "err", err)
			continue
		}
		path, err := content.SaveEmailText(outputDir, result, job.Filename)
		if err != nil {
			logger.Error("Failed to save draft", "file", job.Filename, "err", err)
			continue
		}
		logger.Info("Draft saved",
			"audience", job.Request.Audience,
			"path", path,
			"tokens", result.Metadata.TokensUsed,
		)
	}
}

// loadSnapshot reads the graph from the database when DATABASE_URL is set,
// otherwise from the artifact files in GRAPH_DIR.
func loadSnapshot(ctx context.Context) *common.Snapshot {
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
		snap, err := store.Snapshot(ctx)
		if err != nil {
			logger.Fatal("Failed to load stored snapshot", "err", err)
		}
		return snap
	}

	dir := util.GetEnvString("GRAPH_DIR", "output")
	name := util.GetEnvString("GRAPH_NAME", "flowmetrics_graph")
	snap, err := graph.LoadSnapshot(dir, name)
	if err != nil {
		logger.Fatal("Failed to load graph artifacts", "dir", dir, "name", name, "err", err)
	}
	return snap
}
