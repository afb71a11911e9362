package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/content"
	"github.com/flowmetrics/semgraph/pkg/store"
	"github.com/flowmetrics/semgraph/pkg/store/memory"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

func testSnapshot() *common.Snapshot {
	return &common.Snapshot{
		Nodes: []common.Node{
			{
				ID: "rev", Type: common.NodeTypeMetric,
				Content: "Monthly Recurring Revenue grew 22.5% QoQ to $485,000",
				Source:  "billing_api", Confidence: 0.96,
				Tags: []string{"revenue", "growth", "mrr"},
				AudienceRelevance: map[string]float64{
					"investors": 0.9, "customers": 0.1, "internal_team": 0.4, "developer_community": 0.0,
				},
			},
			{
				ID: "dau", Type: common.NodeTypeMetric,
				Content: "Daily Active Users grew 15.3% to 12450 users",
				Source:  "product_analytics", Confidence: 0.95,
				Tags: []string{"users", "growth", "engagement"},
				AudienceRelevance: map[string]float64{
					"investors": 0.7, "customers": 0.3, "internal_team": 0.5, "developer_community": 0.1,
				},
			},
			{
				ID: "sup", Type: common.NodeTypeInsight,
				Content: "Customer support satisfaction: 4.6/5.0",
				Source:  "support_system", Confidence: 0.89,
				Tags: []string{"support", "satisfaction"},
				AudienceRelevance: map[string]float64{
					"investors": 0.2, "customers": 0.8, "internal_team": 0.6, "developer_community": 0.0,
				},
			},
		},
		Edges: []common.Edge{
			{
				SourceID: "rev", TargetID: "dau",
				RelationshipType: common.RelationCausality,
				Weight:           0.85, Confidence: 0.8, SemanticSimilarity: 0.72,
			},
			{
				SourceID: "dau", TargetID: "sup",
				RelationshipType: common.RelationRelevance,
				Weight:           0.45, Confidence: 0.7, SemanticSimilarity: 0.45,
			},
		},
	}
}

func newTestContext(t *testing.T, method, target, body string, app *middleware.App) (*middleware.AppContext, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if app == nil {
		app = &middleware.App{}
	}
	if app.Store == nil {
		app.Store = memory.NewGraphMemoryStorage(testSnapshot())
	}
	return &middleware.AppContext{Context: c, App: app}, rec
}

func TestGetOverviewHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/api/overview", "", nil)
	if err := GetOverviewHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var overview store.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if overview.TotalNodes != 3 || overview.TotalEdges != 2 {
		t.Fatalf("unexpected totals: %+v", overview)
	}
}

func TestSearchHandlerValidation(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/search", `{"limit":5}`, nil)
	if err := SearchHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestSearchHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/search", `{"query":"revenue"}`, nil)
	if err := SearchHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []common.Node `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "rev" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestSemanticSearchHandler(t *testing.T) {
	// rev aligns with the stub's query embedding, dau is close, sup orthogonal
	snap := testSnapshot()
	snap.Nodes[0].Embedding = []float32{1, 0}
	snap.Nodes[1].Embedding = []float32{0.6, 0.8}
	snap.Nodes[2].Embedding = []float32{0, 1}
	app := &middleware.App{
		AiClient: &stubDraftClient{},
		Store:    memory.NewGraphMemoryStorage(snap),
	}

	c, rec := newTestContext(t, http.MethodPost, "/api/search/semantic",
		`{"query":"revenue growth","limit":2}`, app)
	if err := SemanticSearchHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []common.Node `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "rev" || resp.Results[1].ID != "dau" {
		t.Fatalf("unexpected ranking: %s, %s", resp.Results[0].ID, resp.Results[1].ID)
	}
}

func TestSemanticSearchHandlerValidation(t *testing.T) {
	app := &middleware.App{AiClient: &stubDraftClient{}}
	c, rec := newTestContext(t, http.MethodPost, "/api/search/semantic", `{"limit":5}`, app)
	if err := SemanticSearchHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestFilteredGraphHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/graph/filtered",
		`{"node_types":["metric"],"min_confidence":0.9}`, nil)
	if err := FilteredGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Graph common.Snapshot `json:"graph"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Graph.Nodes) != 2 {
		t.Fatalf("expected both metric nodes, got %d", len(resp.Graph.Nodes))
	}
	for _, n := range resp.Graph.Nodes {
		if n.Type != common.NodeTypeMetric {
			t.Fatalf("non-metric node survived the filter: %+v", n)
		}
	}
}

func TestAudienceGraphHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/api/graph/audience/investors", "", nil)
	c.SetParamNames("audience")
	c.SetParamValues("investors")
	if err := AudienceGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp store.AudienceGraph
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Audience != "investors" || len(resp.Nodes) == 0 {
		t.Fatalf("unexpected audience graph: %+v", resp)
	}
}

func TestAudienceGraphHandlerUnknown(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/api/graph/audience/shareholders", "", nil)
	c.SetParamNames("audience")
	c.SetParamValues("shareholders")
	if err := AudienceGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown audience, got %d", rec.Code)
	}
}

func TestNeighborsHandlerNotFound(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/node/neighbors", `{"node_id":"ghost"}`, nil)
	if err := NeighborsHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown node, got %d", rec.Code)
	}
}

func TestNeighborsHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/node/neighbors", `{"node_id":"rev","depth":2}`, nil)
	if err := NeighborsHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Graph common.Snapshot `json:"graph"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Graph.Nodes) != 3 {
		t.Fatalf("depth 2 should reach all nodes, got %d", len(resp.Graph.Nodes))
	}
}

func TestExportGraphHandlerCSV(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/api/export/graph?format=csv", "", nil)
	if err := ExportGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "source,target,relationship_type") {
		t.Fatalf("missing CSV header: %q", rec.Body.String())
	}
}

func TestExportGraphHandlerUnsupportedFormat(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/api/export/graph?format=dot", "", nil)
	if err := ExportGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", rec.Code)
	}
}

func TestRebuildGraphHandlerNoQueue(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/api/graph/rebuild",
		`{"data_dir":"data","output_dir":"out","graph_name":"flowmetrics_graph"}`, nil)
	if err := RebuildGraphHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a queue, got %d", rec.Code)
	}
}

type stubDraftClient struct{}

func (s *stubDraftClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (s *stubDraftClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	draft := out.(*content.EmailDraft)
	draft.Subject = "FlowMetrics update"
	draft.Body = "Revenue grew 22.5% QoQ."
	return nil
}

func (s *stubDraftClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubDraftClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	return nil, nil
}

func (s *stubDraftClient) ResetMetrics()               {}
func (s *stubDraftClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestGenerateContentHandler(t *testing.T) {
	app := &middleware.App{AiClient: &stubDraftClient{}}
	c, rec := newTestContext(t, http.MethodPost, "/api/content/generate",
		`{"audience":"investors","content_type":"email","tone":"professional","length":"short"}`, app)
	if err := GenerateContentHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Result content.Generated `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Result.Draft.Subject == "" || resp.Result.Draft.Body == "" {
		t.Fatalf("incomplete draft: %+v", resp.Result.Draft)
	}
}

func TestGenerateContentHandlerUnknownAudience(t *testing.T) {
	app := &middleware.App{AiClient: &stubDraftClient{}}
	c, rec := newTestContext(t, http.MethodPost, "/api/content/generate",
		`{"audience":"press","content_type":"email"}`, app)
	if err := GenerateContentHandler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown audience, got %d", rec.Code)
	}
}
