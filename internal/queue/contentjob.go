package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowmetrics/semgraph/internal/storage"
	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/content"
	"github.com/flowmetrics/semgraph/pkg/logger"
	graphstorage "github.com/flowmetrics/semgraph/pkg/store/pgx"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// ContentJobMsg asks the worker to draft content from the stored graph.
type ContentJobMsg struct {
	Request   content.Request `json:"request"`
	OutputDir string          `json:"output_dir"`
	Filename  string          `json:"filename,omitempty"`
}

// ProcessContentMessage drafts one piece of audience-targeted content from
// the current snapshot and saves it as a text file, optionally mirroring it
// to S3.
func ProcessContentMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(ContentJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to parse content message: %w", err)
	}

	dbStore := graphstorage.NewGraphDBStorageWithConnection(conn)
	snap, err := dbStore.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(snap.Nodes) == 0 {
		return fmt.Errorf("no graph snapshot available for content generation")
	}

	generator := content.NewGenerator(aiClient)
	result, err := generator.Generate(ctx, snap, data.Request)
	if err != nil {
		return err
	}

	path, err := content.SaveEmailText(data.OutputDir, result, data.Filename)
	if err != nil {
		return err
	}

	if s3Client != nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read saved email: %w", err)
		}
		prefix := util.GetEnvString("AWS_CONTENT_PREFIX", "emails")
		key := prefix + "/" + data.Request.Audience + "/" + filepath.Base(path)
		if err := storage.PutFile(ctx, s3Client, key, bytes.NewReader(raw)); err != nil {
			logger.Warn("[Queue] Email upload failed", "key", key, "err", err)
		}
	}

	logger.Info("[Queue] Content job completed", "audience", data.Request.Audience, "path", path)
	return nil
}
