package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flowmetrics/semgraph/pkg/common"
)

func sampleSnapshot() *common.Snapshot {
	return &common.Snapshot{
		Nodes: []common.Node{
			{
				ID: "n1", Type: common.NodeTypeMetric,
				Content: "Monthly Recurring Revenue grew 22.5% QoQ", Source: "billing_api",
				Confidence: 0.96, Tags: []string{"revenue", "growth"},
				AudienceRelevance: map[string]float64{"investors": 0.45, "customers": 0.1},
				Embedding:         []float32{0.1, 0.2},
			},
			{
				ID: "n2", Type: common.NodeTypeInsight,
				Content: "Growth concentrated in mobile", Source: "analytics_api",
				Confidence: 0.82, Tags: []string{"growth"},
				AudienceRelevance: map[string]float64{"investors": 0.31, "customers": 0.0},
				Embedding:         []float32{0.1, 0.21},
			},
		},
		Edges: []common.Edge{
			{
				SourceID: "n1", TargetID: "n2",
				RelationshipType: common.RelationCausality,
				Weight:           0.9, Confidence: 0.8, SemanticSimilarity: 0.92,
				Metadata: common.EdgeMetadata{SimilarityScore: 0.92, SourceTypes: "metric-insight", SharedTags: []string{"growth"}},
			},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := &Persister{Now: func() time.Time { return time.Unix(1700000000, 0) }}

	if err := p.SaveArtifacts(dir, "business", sampleSnapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"business_nodes.json", "business_edges.json", "business.edgelist", "graph_summary.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	loaded, err := LoadSnapshot(dir, "business")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Nodes) != 2 || len(loaded.Edges) != 1 {
		t.Fatalf("round trip lost data: %d nodes %d edges", len(loaded.Nodes), len(loaded.Edges))
	}
	if loaded.Edges[0].RelationshipType != common.RelationCausality {
		t.Fatalf("unexpected relationship type: %s", loaded.Edges[0].RelationshipType)
	}
	if loaded.Nodes[0].AudienceRelevance["investors"] != 0.45 {
		t.Fatalf("audience relevance lost: %+v", loaded.Nodes[0].AudienceRelevance)
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	snap := sampleSnapshot()
	fixed := func() time.Time { return time.Unix(1700000000, 0) }

	dirA := t.TempDir()
	dirB := t.TempDir()
	if err := (&Persister{Now: fixed}).SaveArtifacts(dirA, "g", snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := (&Persister{Now: fixed}).SaveArtifacts(dirB, "g", snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"g_nodes.json", "g_edges.json", "g.edgelist", "graph_summary.json"} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, name))
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(a) != string(b) {
			t.Fatalf("artifact %s differs between identical saves", name)
		}
	}
}

func TestEdgelistFormat(t *testing.T) {
	dir := t.TempDir()
	p := &Persister{}
	if err := p.SaveArtifacts(dir, "g", sampleSnapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "g.edgelist"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 edge line, got %d", len(lines))
	}
	if lines[0] != "n1 n2" {
		t.Fatalf("unexpected edgelist line: %q", lines[0])
	}
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(sampleSnapshot())

	if s.TotalNodes != 2 || s.TotalEdges != 1 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.NodeTypes[common.NodeTypeMetric] != 1 || s.NodeTypes[common.NodeTypeInsight] != 1 {
		t.Fatalf("unexpected node type counts: %v", s.NodeTypes)
	}
	if s.RelationshipTypes[common.RelationCausality] != 1 {
		t.Fatalf("unexpected relationship counts: %v", s.RelationshipTypes)
	}
	if s.SourceDistribution["billing_api"] != 1 || s.SourceDistribution["analytics_api"] != 1 {
		t.Fatalf("unexpected source distribution: %v", s.SourceDistribution)
	}
	// coverage counts relevance strictly above 0.3
	if s.AudienceCoverage["investors"] != 2 {
		t.Fatalf("expected investor coverage 2, got %d", s.AudienceCoverage["investors"])
	}
	if s.AudienceCoverage["customers"] != 0 {
		t.Fatalf("expected customer coverage 0, got %d", s.AudienceCoverage["customers"])
	}
}
