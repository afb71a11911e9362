package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"

	"github.com/pgvector/pgvector-go"
)

// Overview aggregates in SQL; counts match store.ComputeOverview.
func (s *GraphDBStorage) Overview(ctx context.Context) (*store.Overview, error) {
	o := &store.Overview{NodeTypes: map[string]int{}}

	err := s.conn.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM graph_nodes),
			(SELECT count(*) FROM graph_edges),
			(SELECT count(*) FROM graph_nodes WHERE confidence >= 0.8)
	`).Scan(&o.TotalNodes, &o.TotalEdges, &o.HighConfidenceNodes)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	typeRows, err := s.conn.Query(ctx, `SELECT type, count(*) FROM graph_nodes GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query node types: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var (
			nodeType string
			count    int
		)
		if err := typeRows.Scan(&nodeType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan node type: %w", err)
		}
		o.NodeTypes[nodeType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node types: %w", err)
	}

	sourceRows, err := s.conn.Query(ctx, `
		SELECT source, count(*) AS cnt
		FROM graph_nodes
		GROUP BY source
		ORDER BY cnt DESC, source ASC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer sourceRows.Close()
	for sourceRows.Next() {
		var sc store.SourceCount
		if err := sourceRows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		o.TopSources = append(o.TopSources, sc)
	}
	if err := sourceRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}

	return o, nil
}

// Search matches in SQL with ILIKE over content, source and tags.
func (s *GraphDBStorage) Search(ctx context.Context, query string, limit int) ([]common.Node, error) {
	pattern := "%" + escapeLike(query) + "%"
	sql := `
		SELECT id, type, content, value, ts, confidence, source, tags, audience_relevance, embedding, metadata
		FROM graph_nodes
		WHERE content ILIKE $1
		   OR source ILIKE $1
		   OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $1)
		ORDER BY confidence DESC`
	args := []any{pattern}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes: %w", err)
	}
	defer rows.Close()

	nodes := []common.Node{}
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
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return nodes, nil
}

// The structural queries load the snapshot and evaluate through the shared
// helpers, keeping both backends' filter semantics identical.

func (s *GraphDBStorage) FilteredGraph(ctx context.Context, filter store.GraphFilter) (*common.Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.FilterGraph(snap, filter), nil
}

func (s *GraphDBStorage) AudienceFocusedGraph(ctx context.Context, audience string, limit int) (*store.AudienceGraph, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.AudienceFocusedView(snap, audience, limit)
}

func (s *GraphDBStorage) Neighbors(ctx context.Context, nodeID string, depth int, minWeight float64) (*common.Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.NeighborSubgraph(snap, nodeID, depth, minWeight)
}

func (s *GraphDBStorage) Analytics(ctx context.Context) (*store.Analytics, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.ComputeAnalytics(snap), nil
}

// SimilarNodes ranks stored nodes by cosine distance to the given
// embedding, using the pgvector index.
func (s *GraphDBStorage) SimilarNodes(ctx context.Context, embedding []float32, limit int) ([]common.Node, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.conn.Query(ctx, `
		SELECT id, type, content, value, ts, confidence, source, tags, audience_relevance, embedding, metadata
		FROM graph_nodes
		ORDER BY embedding <=> $1
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar nodes: %w", err)
	}
	defer rows.Close()

	nodes := []common.Node{}
	for rows.Next() {
		var (
			n         common.Node
			value     []byte
			relevance []byte
			metadata  []byte
			emb       pgvector.Vector
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Content, &value, &n.Timestamp,
			&n.Confidence, &n.Source, &n.Tags, &relevance, &emb, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if !decodeNodeJSON(&n, value, relevance, metadata) {
			continue
		}
		n.Embedding = emb.Slice()
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similar nodes: %w", err)
	}

	logger.Debug("[Store] Similarity query", "results", len(nodes))
	return nodes, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
