package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const insertChunkSize = 1000

// ReplaceSnapshot swaps the stored graph wholesale inside one transaction:
// both tables are emptied and refilled, so readers never observe a half
// replaced snapshot.
func (s *GraphDBStorage) ReplaceSnapshot(ctx context.Context, snap *common.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM graph_edges`); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes`); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	err = store.ChunkRange(len(snap.Nodes), insertChunkSize, func(start, end int) error {
		rows := make([][]any, 0, end-start)
		for _, n := range snap.Nodes[start:end] {
			value, err := json.Marshal(n.Value)
			if err != nil {
				return fmt.Errorf("failed to marshal value for node %s: %w", n.ID, err)
			}
			relevance, err := json.Marshal(n.AudienceRelevance)
			if err != nil {
				return fmt.Errorf("failed to marshal relevance for node %s: %w", n.ID, err)
			}
			metadata, err := json.Marshal(n.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for node %s: %w", n.ID, err)
			}
			rows = append(rows, []any{
				n.ID, n.Type, n.Content, value, n.Timestamp, n.Confidence,
				n.Source, n.Tags, relevance, pgvector.NewVector(n.Embedding), metadata,
			})
		}
		_, err := tx.CopyFrom(ctx,
			pgxv5.Identifier{"graph_nodes"},
			[]string{"id", "type", "content", "value", "ts", "confidence", "source", "tags", "audience_relevance", "embedding", "metadata"},
			pgxv5.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert nodes: %w", err)
	}

	err = store.ChunkRange(len(snap.Edges), insertChunkSize, func(start, end int) error {
		rows := make([][]any, 0, end-start)
		for _, e := range snap.Edges[start:end] {
			metadata, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for edge %s-%s: %w", e.SourceID, e.TargetID, err)
			}
			rows = append(rows, []any{
				e.SourceID, e.TargetID, e.RelationshipType, e.Weight,
				e.Confidence, e.SemanticSimilarity, metadata,
			})
		}
		_, err := tx.CopyFrom(ctx,
			pgxv5.Identifier{"graph_edges"},
			[]string{"source_id", "target_id", "relationship_type", "weight", "confidence", "semantic_similarity", "metadata"},
			pgxv5.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert edges: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	logger.Info("[Store] Snapshot replaced", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// Snapshot scans the full stored graph back into memory. Individual nodes
// with malformed JSON columns are skipped rather than failing the query.
func (s *GraphDBStorage) Snapshot(ctx context.Context) (*common.Snapshot, error) {
	snap := &common.Snapshot{Nodes: []common.Node{}, Edges: []common.Edge{}}

	rows, err := s.conn.Query(ctx, `
		SELECT id, type, content, value, ts, confidence, source, tags, audience_relevance, embedding, metadata
		FROM graph_nodes
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n         common.Node
			value     []byte
			relevance []byte
			metadata  []byte
			embedding pgvector.Vector
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Content, &value, &n.Timestamp,
			&n.Confidence, &n.Source, &n.Tags, &relevance, &embedding, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if !decodeNodeJSON(&n, value, relevance, metadata) {
			continue
		}
		n.Embedding = embedding.Slice()
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	rows.Close()

	edgeRows, err := s.conn.Query(ctx, `
		SELECT source_id, target_id, relationship_type, weight, confidence, semantic_similarity, metadata
		FROM graph_edges
		ORDER BY source_id, target_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var (
			e        common.Edge
			metadata []byte
		)
		if err := edgeRows.Scan(&e.SourceID, &e.TargetID, &e.RelationshipType,
			&e.Weight, &e.Confidence, &e.SemanticSimilarity, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				logger.Warn("[Store] Skipping edge with malformed metadata",
					"source", e.SourceID, "target", e.TargetID, "err", err)
				continue
			}
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}

	return snap, nil
}

// decodeNodeJSON fills the node's JSON-backed fields, reporting false when
// a column cannot be decoded so the caller can skip the row.
func decodeNodeJSON(n *common.Node, value, relevance, metadata []byte) bool {
	if len(value) > 0 {
		if err := json.Unmarshal(value, &n.Value); err != nil {
			logger.Warn("[Store] Skipping node with malformed value", "id", n.ID, "err", err)
			return false
		}
	}
	if len(relevance) > 0 {
		if err := json.Unmarshal(relevance, &n.AudienceRelevance); err != nil {
			logger.Warn("[Store] Skipping node with malformed audience relevance", "id", n.ID, "err", err)
			return false
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			logger.Warn("[Store] Skipping node with malformed metadata", "id", n.ID, "err", err)
			return false
		}
	}
	return true
}
