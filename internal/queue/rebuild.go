package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowmetrics/semgraph/internal/storage"
	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/extract"
	"github.com/flowmetrics/semgraph/pkg/graph"
	"github.com/flowmetrics/semgraph/pkg/leaselock"
	"github.com/flowmetrics/semgraph/pkg/logger"
	graphstorage "github.com/flowmetrics/semgraph/pkg/store/pgx"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// RebuildMsg asks the worker to rebuild the graph from a data directory.
type RebuildMsg struct {
	DataDir             string  `json:"data_dir"`
	OutputDir           string  `json:"output_dir"`
	GraphName           string  `json:"graph_name"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// GraphUpdatedEvent is broadcast after a successful rebuild.
type GraphUpdatedEvent struct {
	GraphName  string `json:"graph_name"`
	TotalNodes int    `json:"total_nodes"`
	TotalEdges int    `json:"total_edges"`
	FinishedAt string `json:"finished_at"`
}

// ProcessRebuildMessage runs the full build pipeline: load documents,
// build the snapshot, persist the file artifacts, replace the database
// snapshot and announce the update. The build is all-or-nothing; any step
// failing leaves the previous snapshot in place.
func ProcessRebuildMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(RebuildMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to parse rebuild message: %w", err)
	}
	if data.GraphName == "" {
		return fmt.Errorf("rebuild message missing graph_name")
	}

	logger.Info("[Queue] Rebuilding graph", "name", data.GraphName, "data_dir", data.DataDir)

	// one rebuild per graph at a time, across all workers
	locks := leaselock.New(conn)
	err := locks.WithLease(ctx, "graph_rebuild:"+data.GraphName, leaselock.Options{
		TTL: 10 * time.Minute,
	}, func(ctx context.Context) error {
		return rebuildGraph(ctx, s3Client, aiClient, ch, conn, data)
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Info("[Queue] Rebuild already in progress, skipping", "name", data.GraphName)
		return nil
	}
	return err
}

func rebuildGraph(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	data *RebuildMsg,
) error {
	docs, err := extract.LoadDocuments(data.DataDir)
	if err != nil {
		return err
	}

	builder := graph.NewGraphBuilder(graph.NewGraphBuilderParams{
		SimilarityThreshold: data.SimilarityThreshold,
	})
	snap, err := builder.BuildGraph(ctx, docs, aiClient)
	if err != nil {
		return err
	}

	persister := &graph.Persister{}
	if err := persister.SaveArtifacts(data.OutputDir, data.GraphName, snap); err != nil {
		return err
	}

	dbStore := graphstorage.NewGraphDBStorageWithConnection(conn)
	if err := dbStore.ReplaceSnapshot(ctx, snap); err != nil {
		return err
	}

	prefix := util.GetEnvString("AWS_ARTIFACT_PREFIX", "graphs") + "/" + data.GraphName
	if err := storage.UploadGraphArtifacts(ctx, s3Client, data.OutputDir, data.GraphName, prefix); err != nil {
		logger.Warn("[Queue] Artifact upload failed", "name", data.GraphName, "err", err)
	}

	event := GraphUpdatedEvent{
		GraphName:  data.GraphName,
		TotalNodes: len(snap.Nodes),
		TotalEdges: len(snap.Edges),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal update event: %w", err)
	}
	if err := PublishTopic(ch, GraphUpdatedTopic, eventBytes); err != nil {
		logger.Warn("[Queue] Failed to broadcast graph update", "err", err)
	}

	logger.Info("[Queue] Rebuild completed", "name", data.GraphName,
		"nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}
