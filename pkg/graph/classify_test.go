package graph

import (
	"math"
	"testing"

	"github.com/flowmetrics/semgraph/pkg/common"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	s, err := CosineSimilarity(a, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(s, 1.0) {
		t.Fatalf("identical vectors should have similarity 1, got %v", s)
	}

	s, err = CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(s, 0.0) {
		t.Fatalf("orthogonal vectors should have similarity 0, got %v", s)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
	if _, err := CosineSimilarity(nil, []float32{1}); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestCausalityAtFullSimilarity(t *testing.T) {
	insight := common.Node{ID: "a", Type: common.NodeTypeInsight, Tags: []string{"growth"}}
	metric := common.Node{ID: "b", Type: common.NodeTypeMetric, Tags: []string{"growth"}}

	edge := ClassifyRelationship(insight, metric, 1.0)
	if edge.RelationshipType != common.RelationCausality {
		t.Fatalf("expected causality, got %s", edge.RelationshipType)
	}
	if !almostEqual(edge.Weight, 1.0) {
		t.Fatalf("expected weight 1.0, got %v", edge.Weight)
	}
	if edge.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", edge.Confidence)
	}
}

func TestCausalityRequiresCausalSharedTag(t *testing.T) {
	insight := common.Node{ID: "a", Type: common.NodeTypeInsight, Tags: []string{"revenue"}}
	metric := common.Node{ID: "b", Type: common.NodeTypeMetric, Tags: []string{"revenue"}}

	edge := ClassifyRelationship(insight, metric, 0.5)
	if edge.RelationshipType != common.RelationRelevance {
		t.Fatalf("shared non-causal tag should not trigger causality, got %s", edge.RelationshipType)
	}
	if edge.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", edge.Confidence)
	}
}

func TestInfluenceForEventPairs(t *testing.T) {
	event := common.Node{ID: "a", Type: common.NodeTypeEvent}
	metric := common.Node{ID: "b", Type: common.NodeTypeMetric}

	edge := ClassifyRelationship(event, metric, 0.5)
	if edge.RelationshipType != common.RelationInfluence {
		t.Fatalf("expected influence, got %s", edge.RelationshipType)
	}
	if !almostEqual(edge.Weight, 0.6) {
		t.Fatalf("expected weight 0.6 (0.5 * 1.2), got %v", edge.Weight)
	}
	if edge.Confidence != 0.75 {
		t.Fatalf("expected confidence 0.75, got %v", edge.Confidence)
	}
}

func TestRelevanceWeightWithoutTagOverlap(t *testing.T) {
	a := common.Node{ID: "a", Type: common.NodeTypeMetric, Tags: []string{"x"}}
	b := common.Node{ID: "b", Type: common.NodeTypeMetric, Tags: []string{"y"}}

	edge := ClassifyRelationship(a, b, 0.31)
	if edge.RelationshipType != common.RelationRelevance {
		t.Fatalf("expected relevance, got %s", edge.RelationshipType)
	}
	if !almostEqual(edge.Weight, 0.31) {
		t.Fatalf("expected weight 0.31, got %v", edge.Weight)
	}
	if !almostEqual(edge.SemanticSimilarity, 0.31) {
		t.Fatalf("expected semantic similarity 0.31, got %v", edge.SemanticSimilarity)
	}
}

func TestTagOverlap(t *testing.T) {
	cases := []struct {
		a, b []string
		want float64
	}{
		{[]string{"growth", "users"}, []string{"growth"}, 0.5},
		{[]string{}, []string{}, 0},
		{[]string{"a"}, []string{"a"}, 1},
		{[]string{"a", "b", "c", "d"}, []string{"a", "b"}, 0.5},
	}
	for _, c := range cases {
		if got := TagOverlap(c.a, c.b); !almostEqual(got, c.want) {
			t.Fatalf("TagOverlap(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestScanPairsThreshold(t *testing.T) {
	// two near-parallel vectors and one orthogonal
	nodes := []common.Node{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0.95, 0.05}},
		{ID: "c", Embedding: []float32{0, 1}},
	}

	pairs, err := ExactScanner{}.ScanPairs(nodes, 0.3)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair above threshold, got %d", len(pairs))
	}
	if pairs[0].I != 0 || pairs[0].J != 1 {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
}

func TestScanPairsNoSelfLoopsOrDuplicates(t *testing.T) {
	nodes := []common.Node{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{1, 0}},
	}

	pairs, err := ExactScanner{}.ScanPairs(nodes, 0.25)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected exactly 3 unordered pairs, got %d", len(pairs))
	}
	seen := map[[2]int]bool{}
	for _, p := range pairs {
		if p.I == p.J {
			t.Fatalf("self-loop emitted: %+v", p)
		}
		if p.I > p.J {
			t.Fatalf("pair not ordered I < J: %+v", p)
		}
		key := [2]int{p.I, p.J}
		if seen[key] {
			t.Fatalf("duplicate pair: %+v", p)
		}
		seen[key] = true
	}
}

func TestScanPairsJustBelowThreshold(t *testing.T) {
	// cos angle chosen so similarity lands near 0.29
	angle := math.Acos(0.29)
	nodes := []common.Node{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}},
	}

	pairs, err := ExactScanner{}.ScanPairs(nodes, 0.3)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("similarity below threshold must not produce a pair, got %d", len(pairs))
	}
}
