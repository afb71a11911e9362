package graph

import (
	"fmt"

	"github.com/flowmetrics/semgraph/pkg/common"
)

// Pair is one unordered node pair whose raw similarity cleared the scan
// threshold. I and J index into the node slice handed to the scanner, with
// I < J.
type Pair struct {
	I          int
	J          int
	Similarity float64
}

// PairScanner finds candidate node pairs for edge classification. The exact
// scanner visits all pairs; an approximate index can be substituted for
// large graphs without touching the classification rules.
type PairScanner interface {
	ScanPairs(nodes []common.Node, threshold float64) ([]Pair, error)
}

// ExactScanner evaluates every unordered pair exactly once. Cost is
// quadratic in node count, which is the dominant cost of a full rebuild.
type ExactScanner struct{}

// ScanPairs returns all pairs with cosine similarity strictly above
// threshold. A dimension mismatch between any two embeddings is fatal.
func (ExactScanner) ScanPairs(nodes []common.Node, threshold float64) ([]Pair, error) {
	pairs := []Pair{}
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			s, err := CosineSimilarity(nodes[i].Embedding, nodes[j].Embedding)
			if err != nil {
				return nil, fmt.Errorf("pair (%s, %s): %w", nodes[i].ID, nodes[j].ID, err)
			}
			if s > threshold {
				pairs = append(pairs, Pair{I: i, J: j, Similarity: s})
			}
		}
	}
	return pairs, nil
}
