package graph

import (
	"fmt"
	"math"

	"github.com/flowmetrics/semgraph/pkg/common"
)

// Shared tags in this set upgrade an insight-metric pair to a causality
// edge.
var causalTags = map[string]struct{}{
	"growth":      {},
	"improvement": {},
	"performance": {},
}

// CosineSimilarity computes the normalized dot product of two vectors. The
// vectors must have equal, non-zero length.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("empty embedding (len %d, %d)", len(a), len(b))
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// SharedTags returns the tags present in both lists, in first-list order,
// without duplicates.
func SharedTags(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}

	shared := []string{}
	seen := map[string]struct{}{}
	for _, t := range a {
		if _, ok := inB[t]; !ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		shared = append(shared, t)
	}
	return shared
}

// TagOverlap is |shared| / max(|a|, |b|, 1).
func TagOverlap(a, b []string) float64 {
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		denom = 1
	}
	return float64(len(SharedTags(a, b))) / float64(denom)
}

func isPair(a, b common.Node, typeA, typeB string) bool {
	return (a.Type == typeA && b.Type == typeB) || (a.Type == typeB && b.Type == typeA)
}

// ClassifyRelationship decides the edge type, weight and confidence for a
// node pair given their raw cosine similarity. The returned edge references
// a's ID as source and b's as target; the pair is unordered, so callers
// must evaluate each pair exactly once and never pass a == b.
//
// The weight formula: base = min(similarity * multiplier, 1), then
// final = min(base * (1 + 0.5 * overlap), 1). An edge with final weight 0
// should not be emitted.
func ClassifyRelationship(a, b common.Node, similarity float64) common.Edge {
	shared := SharedTags(a.Tags, b.Tags)
	overlap := TagOverlap(a.Tags, b.Tags)

	relationship := common.RelationRelevance
	multiplier := 1.0
	confidence := 0.7

	switch {
	case isPair(a, b, common.NodeTypeInsight, common.NodeTypeMetric) && hasCausalTag(shared):
		relationship = common.RelationCausality
		multiplier = 1.3
		confidence = 0.8
	case a.Type == common.NodeTypeEvent && (b.Type == common.NodeTypeMetric || b.Type == common.NodeTypeInsight),
		b.Type == common.NodeTypeEvent && (a.Type == common.NodeTypeMetric || a.Type == common.NodeTypeInsight):
		relationship = common.RelationInfluence
		multiplier = 1.2
		confidence = 0.75
	}

	base := math.Min(similarity*multiplier, 1.0)
	weight := math.Min(base*(1+overlap*0.5), 1.0)

	return common.Edge{
		SourceID:           a.ID,
		TargetID:           b.ID,
		RelationshipType:   relationship,
		Weight:             weight,
		Confidence:         confidence,
		SemanticSimilarity: similarity,
		Metadata: common.EdgeMetadata{
			SimilarityScore: similarity,
			SourceTypes:     a.Type + "-" + b.Type,
			SharedTags:      shared,
		},
	}
}

func hasCausalTag(tags []string) bool {
	for _, t := range tags {
		if _, ok := causalTags[t]; ok {
			return true
		}
	}
	return false
}
