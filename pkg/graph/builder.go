package graph

import (
	"context"
	"fmt"

	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/extract"
	"github.com/flowmetrics/semgraph/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultSimilarityThreshold is the edge-emission cutoff used when the
// caller does not supply one.
const DefaultSimilarityThreshold = 0.3

// GraphBuilder turns raw metric documents into a complete snapshot:
// extraction, audience scoring, batched embedding, pairwise similarity and
// edge classification. A build is all-or-nothing; any failure aborts it and
// no partial snapshot is produced.
type GraphBuilder struct {
	extractor *extract.Extractor
	scanner   PairScanner
	threshold float64
}

// NewGraphBuilderParams contains configuration options for creating a new
// GraphBuilder.
type NewGraphBuilderParams struct {
	// Scanner selects the pair-finding strategy. Defaults to ExactScanner.
	Scanner PairScanner
	// SimilarityThreshold is the minimum raw cosine similarity for an edge.
	// Defaults to DefaultSimilarityThreshold when zero.
	SimilarityThreshold float64
}

// NewGraphBuilder creates a builder with the given pair-scan strategy and
// similarity threshold.
func NewGraphBuilder(params NewGraphBuilderParams) *GraphBuilder {
	scanner := params.Scanner
	if scanner == nil {
		scanner = ExactScanner{}
	}
	threshold := params.SimilarityThreshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &GraphBuilder{
		extractor: extract.NewExtractor(),
		scanner:   scanner,
		threshold: threshold,
	}
}

// BuildGraph runs the full pipeline over the given documents and returns
// the finished snapshot.
func (g *GraphBuilder) BuildGraph(
	ctx context.Context,
	docs []extract.RawDocument,
	aiClient ai.GraphAIClient,
) (*common.Snapshot, error) {
	points, err := g.extractor.ExtractDataPoints(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to extract data points: %w", err)
	}

	nodes, err := g.buildNodes(points)
	if err != nil {
		return nil, err
	}

	if err := g.embedNodes(ctx, nodes, aiClient); err != nil {
		return nil, err
	}

	edges, err := g.classifyEdges(nodes)
	if err != nil {
		return nil, err
	}

	logger.Info("[Graph] Build completed", "nodes", len(nodes), "edges", len(edges))
	return &common.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func (g *GraphBuilder) buildNodes(points []extract.DataPoint) ([]common.Node, error) {
	nodes := make([]common.Node, 0, len(points))
	for _, p := range points {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate node ID: %w", err)
		}
		nodes = append(nodes, common.Node{
			ID:                id,
			Type:              p.Type,
			Content:           p.Content,
			Value:             p.Value,
			Timestamp:         p.Timestamp,
			Confidence:        p.Confidence,
			Source:            p.Source,
			Tags:              p.Tags,
			AudienceRelevance: CalculateAudienceRelevance(p.Content, p.Tags),
			Metadata:          p.Metadata,
		})
	}
	return nodes, nil
}

func (g *GraphBuilder) embedNodes(
	ctx context.Context,
	nodes []common.Node,
	aiClient ai.GraphAIClient,
) error {
	if len(nodes) == 0 {
		return nil
	}

	inputs := make([][]byte, len(nodes))
	for i, n := range nodes {
		inputs[i] = []byte(n.Content)
	}

	logger.Info("[Graph] Generating embeddings", "count", len(inputs))
	embeddings, err := aiClient.GenerateEmbeddings(ctx, inputs)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(nodes) {
		return fmt.Errorf("embedding count mismatch: got %d for %d nodes", len(embeddings), len(nodes))
	}

	dim := len(embeddings[0])
	for i, emb := range embeddings {
		if len(emb) != dim {
			return fmt.Errorf("embedding dimension mismatch at node %d: %d vs %d", i, len(emb), dim)
		}
		nodes[i].Embedding = emb
	}
	return nil
}

func (g *GraphBuilder) classifyEdges(nodes []common.Node) ([]common.Edge, error) {
	pairs, err := g.scanner.ScanPairs(nodes, g.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to scan node pairs: %w", err)
	}

	edges := make([]common.Edge, 0, len(pairs))
	for _, p := range pairs {
		edge := ClassifyRelationship(nodes[p.I], nodes[p.J], p.Similarity)
		if edge.Weight <= 0 {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}
