package content

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/common"
)

func contentSnapshot() *common.Snapshot {
	return &common.Snapshot{
		Nodes: []common.Node{
			{
				ID: "rev", Type: common.NodeTypeMetric,
				Content: "Monthly Recurring Revenue grew 22.5% QoQ to $485,000",
				Source:  "billing_api", Confidence: 0.96, Tags: []string{"revenue", "growth", "mrr"},
			},
			{
				ID: "api", Type: common.NodeTypeMetric,
				Content: "api_v2 has 45.0% adoption rate",
				Source:  "product_analytics", Confidence: 0.88, Tags: []string{"features", "adoption", "api-v2"},
			},
			{
				ID: "team", Type: common.NodeTypeMetric,
				Content: "Team size: 48 employees with 4.1/5.0 satisfaction",
				Source:  "hr_system", Confidence: 0.92, Tags: []string{"team", "headcount", "satisfaction"},
			},
		},
		Edges: []common.Edge{
			{SourceID: "rev", TargetID: "api", Weight: 0.5},
		},
	}
}

func TestFindRelevantNodesForInvestors(t *testing.T) {
	relevant := FindRelevantNodes(contentSnapshot(), "investors", []string{"growth"})
	if len(relevant) == 0 {
		t.Fatal("expected relevant nodes for investors")
	}
	if relevant[0].NodeID != "rev" {
		t.Fatalf("revenue node should rank first for investors, got %s", relevant[0].NodeID)
	}
	for i := 1; i < len(relevant); i++ {
		if relevant[i].Relevance > relevant[i-1].Relevance {
			t.Fatal("relevant nodes not sorted by score descending")
		}
	}
}

func TestFindRelevantNodesCutoff(t *testing.T) {
	// team metrics carry no developer-relevant terms
	relevant := FindRelevantNodes(contentSnapshot(), "developer_community", nil)
	for _, n := range relevant {
		if n.NodeID == "team" {
			t.Fatalf("team node should score below the cutoff: %+v", n)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	relevant := FindRelevantNodes(contentSnapshot(), "investors", []string{"growth"})
	prompt, err := BuildPrompt(Request{
		Audience:    "investors",
		ContentType: "email",
		Tone:        "professional",
		Length:      "medium",
		FocusAreas:  []string{"growth"},
		Context:     "Q1 update",
	}, relevant)
	if err != nil {
		t.Fatalf("prompt build failed: %v", err)
	}

	for _, want := range []string{
		"TARGET AUDIENCE: investors",
		"Monthly Recurring Revenue grew 22.5% QoQ",
		"financial performance and growth potential",
		"ADDITIONAL CONTEXT: Q1 update",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

type draftStubClient struct {
	lastPrompt string
}

func (s *draftStubClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (s *draftStubClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	s.lastPrompt = prompt
	draft := out.(*EmailDraft)
	draft.Subject = "FlowMetrics Q1 momentum"
	draft.Body = "Revenue grew 22.5% QoQ."
	return nil
}

func (s *draftStubClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, nil
}

func (s *draftStubClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	return nil, nil
}

func (s *draftStubClient) ResetMetrics()               {}
func (s *draftStubClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{TotalTokens: 321} }

func TestGenerate(t *testing.T) {
	client := &draftStubClient{}
	g := NewGenerator(client)

	result, err := g.Generate(context.Background(), contentSnapshot(), Request{
		Audience:    "investors",
		ContentType: "email",
		Tone:        "professional",
		Length:      "short",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if result.Draft.Subject == "" || result.Draft.Body == "" {
		t.Fatalf("incomplete draft: %+v", result.Draft)
	}
	if result.Metadata.TokensUsed != 321 {
		t.Fatalf("token usage not recorded: %+v", result.Metadata)
	}
	if result.Metadata.RelevantNodes != len(result.SourceNodes) {
		t.Fatal("metadata node count disagrees with source nodes")
	}
	if !strings.Contains(client.lastPrompt, "TARGET AUDIENCE: investors") {
		t.Fatal("prompt did not reach the AI client")
	}
}

func TestGenerateUnknownAudience(t *testing.T) {
	g := NewGenerator(&draftStubClient{})
	if _, err := g.Generate(context.Background(), contentSnapshot(), Request{Audience: "press"}); err == nil {
		t.Fatal("expected error for unknown audience")
	}
}

func TestSaveEmailText(t *testing.T) {
	dir := t.TempDir()
	result := &Generated{
		Draft: EmailDraft{Subject: "Hello", Body: "World"},
		Metadata: Metadata{
			Audience: "investors", ContentType: "email",
			Tone: "professional", Length: "short",
			DataSources: []string{"billing_api"}, RelevantNodes: 1, TokensUsed: 42,
		},
	}

	path, err := SaveEmailText(dir, result, "investor_update.txt")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	text := string(raw)
	for _, want := range []string{"Subject: Hello", "World", "Audience: investors", "Tokens Used: 42"} {
		if !strings.Contains(text, want) {
			t.Fatalf("saved email missing %q", want)
		}
	}
}
