package store

import (
	"context"

	"github.com/flowmetrics/semgraph/pkg/common"
)

// Overview summarizes the stored graph.
type Overview struct {
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	NodeTypes           map[string]int `json:"node_types"`
	TopSources          []SourceCount  `json:"top_sources"`
	HighConfidenceNodes int            `json:"high_confidence_nodes"`
}

// SourceCount is one entry of a source frequency ranking.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// GraphFilter selects nodes by conjunction of all set predicates. Nil
// slices mean "any"; Limit <= 0 means no truncation.
type GraphFilter struct {
	NodeTypes     []string `json:"node_types,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	MinConfidence float64  `json:"min_confidence"`
	MinWeight     float64  `json:"min_weight"`
	Tags          []string `json:"tags,omitempty"`
	Limit         int      `json:"limit"`
}

// AudienceNode pairs a node with its effective relevance for the requested
// audience. Expanded marks nodes pulled in through the connectivity
// expansion rather than by their own relevance.
type AudienceNode struct {
	common.Node
	Relevance float64 `json:"relevance"`
	Expanded  bool    `json:"expanded,omitempty"`
}

// AudienceGraph is the audience-focused view: relevance-selected nodes plus
// the strong edges among them.
type AudienceGraph struct {
	Audience string         `json:"audience"`
	Nodes    []AudienceNode `json:"nodes"`
	Edges    []common.Edge  `json:"edges"`
}

// NodeDegree is one entry of a connectivity ranking.
type NodeDegree struct {
	NodeID  string `json:"node_id"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Degree  int    `json:"degree"`
}

// TagCount is one entry of a tag frequency ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Analytics holds the derived graph statistics.
type Analytics struct {
	TopConnected   []NodeDegree  `json:"top_connected"`
	StrongestEdges []common.Edge `json:"strongest_edges"`
	TagFrequency   []TagCount    `json:"tag_frequency"`
}

// GraphStorage is the storage-capability interface shared by the in-memory
// and PostgreSQL backends. Both implement identical query semantics; a
// whole snapshot is the unit of replacement, and queries treat stored data
// as read-only.
type GraphStorage interface {
	// ReplaceSnapshot swaps the stored graph wholesale.
	ReplaceSnapshot(ctx context.Context, snap *common.Snapshot) error
	// Snapshot returns the full stored graph.
	Snapshot(ctx context.Context) (*common.Snapshot, error)

	Overview(ctx context.Context) (*Overview, error)
	// Search matches the query case-insensitively against content, source
	// and tags, ordered by confidence descending.
	Search(ctx context.Context, query string, limit int) ([]common.Node, error)
	// SimilarNodes ranks stored nodes by cosine similarity to the given
	// embedding, most similar first.
	SimilarNodes(ctx context.Context, embedding []float32, limit int) ([]common.Node, error)
	FilteredGraph(ctx context.Context, filter GraphFilter) (*common.Snapshot, error)
	AudienceFocusedGraph(ctx context.Context, audience string, limit int) (*AudienceGraph, error)
	Neighbors(ctx context.Context, nodeID string, depth int, minWeight float64) (*common.Snapshot, error)
	Analytics(ctx context.Context) (*Analytics, error)

	Close()
}
