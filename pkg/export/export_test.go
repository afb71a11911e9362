package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/flowmetrics/semgraph/pkg/common"
)

func exportSnapshot() *common.Snapshot {
	return &common.Snapshot{
		Nodes: []common.Node{
			{ID: "a", Type: common.NodeTypeMetric, Content: "Revenue grew 22.5%", Source: "billing_api", Confidence: 0.96},
			{ID: "b", Type: common.NodeTypeInsight, Content: "Upsells drive expansion & retention", Source: "analytics_api", Confidence: 0.8},
		},
		Edges: []common.Edge{
			{SourceID: "a", TargetID: "b", RelationshipType: common.RelationCausality, Weight: 0.9, Confidence: 0.8, SemanticSimilarity: 0.87},
		},
	}
}

func TestEncodeJSON(t *testing.T) {
	data, err := Encode(exportSnapshot(), FormatJSON)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var snap common.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(snap.Nodes) != 2 || len(snap.Edges) != 1 {
		t.Fatalf("round trip lost data: %d nodes %d edges", len(snap.Nodes), len(snap.Edges))
	}
}

func TestEncodeCSV(t *testing.T) {
	data, err := Encode(exportSnapshot(), FormatCSV)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 edge, got %d records", len(records))
	}
	if records[0][0] != "source" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "a" || records[1][1] != "b" || records[1][2] != common.RelationCausality {
		t.Fatalf("unexpected edge record: %v", records[1])
	}
}

func TestEncodeGraphML(t *testing.T) {
	data, err := Encode(exportSnapshot(), FormatGraphML)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var doc graphmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if len(doc.Graph.Nodes) != 2 || len(doc.Graph.Edges) != 1 {
		t.Fatalf("unexpected graph shape: %d nodes %d edges", len(doc.Graph.Nodes), len(doc.Graph.Edges))
	}
	if doc.Graph.EdgeDefault != "undirected" {
		t.Fatalf("graph must be undirected, got %s", doc.Graph.EdgeDefault)
	}
	// ampersand in node content must be escaped, not break the document
	if !strings.Contains(string(data), "&amp;") {
		t.Fatal("expected escaped ampersand in output")
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if _, err := Encode(exportSnapshot(), Format("yaml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestContentTypes(t *testing.T) {
	if FormatJSON.ContentType() != "application/json" {
		t.Fatal("wrong JSON content type")
	}
	if FormatCSV.ContentType() != "text/csv" {
		t.Fatal("wrong CSV content type")
	}
	if FormatGraphML.ContentType() != "application/xml" {
		t.Fatal("wrong GraphML content type")
	}
}
