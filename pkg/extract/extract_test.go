package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowmetrics/semgraph/pkg/common"
)

func dauDocument() RawDocument {
	return RawDocument{
		FileSource: "daily_active_users.json",
		Source:     "analytics_api",
		Fields: map[string]any{
			"metrics": map[string]any{
				"growth_rate":         15.3,
				"current_dau":         12450.0,
				"previous_period_dau": 10800.0,
			},
			"insights": []any{
				map[string]any{
					"content":         "Mobile users drive the majority of growth",
					"confidence":      0.82,
					"type":            "behavioral",
					"supporting_data": "mobile_sessions",
				},
			},
		},
	}
}

func TestExtractDAUPoints(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{dauDocument()})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	metric := points[0]
	if metric.Type != common.NodeTypeMetric {
		t.Fatalf("expected metric type, got %s", metric.Type)
	}
	want := "Daily Active Users grew 15.3% to 12450 users"
	if metric.Content != want {
		t.Fatalf("unexpected content: %q", metric.Content)
	}
	if metric.Confidence != 0.95 {
		t.Fatalf("unexpected confidence: %v", metric.Confidence)
	}

	insight := points[1]
	if insight.Type != common.NodeTypeInsight {
		t.Fatalf("expected insight type, got %s", insight.Type)
	}
	if insight.Confidence != 0.82 {
		t.Fatalf("insight confidence should come from the document, got %v", insight.Confidence)
	}
}

func TestExtractMissingFieldFails(t *testing.T) {
	doc := dauDocument()
	delete(doc.Fields["metrics"].(map[string]any), "growth_rate")

	e := NewExtractor()
	if _, err := e.ExtractDataPoints([]RawDocument{doc}); err == nil {
		t.Fatal("expected error for missing growth_rate")
	} else if !strings.Contains(err.Error(), "growth_rate") {
		t.Fatalf("error should name the missing field: %v", err)
	}
}

func TestExtractSkipsUnknownSource(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{{
		FileSource: "weather_report.json",
		Source:     "weather_api",
		Fields:     map[string]any{"anything": true},
	}})
	if err != nil {
		t.Fatalf("unknown sources must be skipped, not fail: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points, got %d", len(points))
	}
}

func TestExtractRevenuePoint(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{{
		FileSource: "monthly_recurring_revenue.json",
		Source:     "billing_api",
		Fields: map[string]any{
			"current_metrics": map[string]any{
				"mrr_growth_qoq": 22.5,
				"mrr_current":    485000.0,
			},
		},
	}})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	want := "Monthly Recurring Revenue grew 22.5% QoQ to $485,000"
	if points[0].Content != want {
		t.Fatalf("unexpected content: %q", points[0].Content)
	}
	if points[0].Confidence != 0.96 {
		t.Fatalf("unexpected confidence: %v", points[0].Confidence)
	}
}

func TestExtractMarketOpportunity(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{{
		FileSource: "competitor_analysis.json",
		Source:     "market_research",
		Fields: map[string]any{
			"market_opportunities": []any{
				map[string]any{
					"opportunity":         "enterprise_tier",
					"expected_arr_impact": 1200000.0,
					"market_size":         "large",
				},
			},
		},
	}})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	want := "Enterprise Tier: $1,200,000 potential ARR"
	if points[0].Content != want {
		t.Fatalf("unexpected content: %q", points[0].Content)
	}
	if points[0].Type != common.NodeTypeInsight {
		t.Fatalf("market opportunities should be insights, got %s", points[0].Type)
	}
}

func TestExtractCountsRenderWithoutSeparators(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{
		{
			FileSource: "brand_mentions.json",
			Source:     "social_api",
			Fields: map[string]any{
				"summary_metrics": map[string]any{
					"net_sentiment_score": 72.5,
					"total_mentions":      15230.0,
				},
			},
		},
		{
			FileSource: "internal_kpis.json",
			Source:     "hr_api",
			Fields: map[string]any{
				"team_overview": map[string]any{
					"total_employees":       1048.0,
					"employee_satisfaction": 4.1,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if want := "Brand sentiment: 72.5% across 15230 mentions"; points[0].Content != want {
		t.Fatalf("unexpected content: %q", points[0].Content)
	}
	if want := "Team size: 1048 employees with 4.1/5.0 satisfaction"; points[1].Content != want {
		t.Fatalf("unexpected content: %q", points[1].Content)
	}
}

func TestFeatureTagsNormalizeUnderscores(t *testing.T) {
	e := NewExtractor()
	points, err := e.ExtractDataPoints([]RawDocument{{
		FileSource: "feature_adoption.json",
		Source:     "product_analytics",
		Fields: map[string]any{
			"features": []any{
				map[string]any{
					"feature_name": "smart_dashboard",
					"adoption_metrics": map[string]any{
						"adoption_rate": 67.2,
					},
					"launch_date":     "2024-02-01",
					"business_impact": "high",
				},
			},
		},
	}})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	tags := points[0].Tags
	if len(tags) != 3 || tags[2] != "smart-dashboard" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if points[0].Timestamp != "2024-02-01" {
		t.Fatalf("feature timestamp should be the launch date, got %s", points[0].Timestamp)
	}
}

func TestLoadDocumentsOrderAndSource(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	writeFile("b_support_tickets.json", `{"source":"zendesk","summary_metrics":{"customer_satisfaction_score":4.2}}`)
	writeFile("a_internal_kpis.json", `{"team_overview":{"total_employees":48,"employee_satisfaction":4.1}}`)
	writeFile("notes.txt", "ignored")

	docs, err := LoadDocuments(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].FileSource != "a_internal_kpis.json" {
		t.Fatalf("documents should be in lexical order, got %s first", docs[0].FileSource)
	}
	if docs[0].Source != "a_internal_kpis" {
		t.Fatalf("source should default to the file stem, got %s", docs[0].Source)
	}
	if docs[1].Source != "zendesk" {
		t.Fatalf("source field should win when present, got %s", docs[1].Source)
	}
}

func TestFormatCount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{12450, "12,450"},
		{1200000, "1,200,000"},
		{-5400, "-5,400"},
	}
	for _, c := range cases {
		if got := formatCount(c.in); got != c.want {
			t.Fatalf("formatCount(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
