package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flowmetrics/semgraph/pkg/ai"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const systemPrompt = "You are an expert B2B SaaS content writer with deep understanding of analytics and e-commerce."

// evidenceTokenBudget caps the token count of the evidence block so the
// prompt stays well inside the model's context window.
const evidenceTokenBudget = 1200

// EmailDraft is the structured output the model fills in.
type EmailDraft struct {
	Subject string `json:"subject" jsonschema_description:"Email subject line"`
	Body    string `json:"body" jsonschema_description:"Full email body, ready to send"`
}

// Metadata records how a draft was produced.
type Metadata struct {
	Audience      string   `json:"audience"`
	ContentType   string   `json:"content_type"`
	Tone          string   `json:"tone"`
	Length        string   `json:"length"`
	FocusAreas    []string `json:"focus_areas,omitempty"`
	RelevantNodes int      `json:"relevant_nodes_count"`
	DataSources   []string `json:"data_sources"`
	TokensUsed    int      `json:"tokens_used"`
}

// Generated is one finished draft with its provenance.
type Generated struct {
	Draft       EmailDraft     `json:"draft"`
	Metadata    Metadata       `json:"metadata"`
	SourceNodes []RelevantNode `json:"source_nodes"`
}

// Generator drafts audience-targeted content grounded in a graph snapshot.
type Generator struct {
	aiClient ai.GraphAIClient
}

// NewGenerator creates a Generator using the given AI client for drafting.
func NewGenerator(aiClient ai.GraphAIClient) *Generator {
	return &Generator{aiClient: aiClient}
}

// Generate drafts content for one request, using the most relevant graph
// nodes as evidence.
func (g *Generator) Generate(ctx context.Context, snap *common.Snapshot, req Request) (*Generated, error) {
	if _, ok := AudienceConfigs[req.Audience]; !ok {
		return nil, fmt.Errorf("unknown audience %q", req.Audience)
	}

	relevant := FindRelevantNodes(snap, req.Audience, req.FocusAreas)
	prompt, err := BuildPrompt(req, relevant)
	if err != nil {
		return nil, err
	}

	g.aiClient.ResetMetrics()

	var draft EmailDraft
	err = g.aiClient.GenerateCompletionWithFormat(ctx,
		"email_draft",
		"An audience-targeted email with subject and body",
		prompt,
		&draft,
		ai.WithSystemPrompts(systemPrompt),
		ai.WithTemperature(0.7),
		ai.WithMaxTokens(maxTokensFor(req.Length)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft: %w", err)
	}

	metrics := g.aiClient.GetMetrics()
	logger.Info("[Content] Draft generated", "audience", req.Audience,
		"evidence_nodes", len(relevant), "tokens", metrics.TotalTokens)

	return &Generated{
		Draft: draft,
		Metadata: Metadata{
			Audience:      req.Audience,
			ContentType:   req.ContentType,
			Tone:          req.Tone,
			Length:        req.Length,
			FocusAreas:    req.FocusAreas,
			RelevantNodes: len(relevant),
			DataSources:   uniqueSources(relevant),
			TokensUsed:    metrics.TotalTokens,
		},
		SourceNodes: relevant,
	}, nil
}

// GenerateCampaign drafts coordinated content for every audience around one
// theme. Audiences that fail are skipped with a warning so one bad draft
// does not sink the campaign.
func (g *Generator) GenerateCampaign(ctx context.Context, snap *common.Snapshot, theme, contentType string) map[string]*Generated {
	results := map[string]*Generated{}
	for _, audience := range common.Audiences {
		req := Request{
			Audience:    audience,
			ContentType: contentType,
			Tone:        "professional",
			Length:      "medium",
			FocusAreas:  []string{theme},
			Context:     fmt.Sprintf("Part of coordinated campaign about %s", theme),
		}
		result, err := g.Generate(ctx, snap, req)
		if err != nil {
			logger.Warn("[Content] Campaign draft failed", "audience", audience, "err", err)
			continue
		}
		results[audience] = result
	}
	return results
}

// BuildPrompt assembles the generation prompt: company context, audience
// preferences and the evidence block, trimmed to the token budget.
func BuildPrompt(req Request, relevant []RelevantNode) (string, error) {
	config := AudienceConfigs[req.Audience]

	evidence, err := evidenceBlock(relevant)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are drafting content for FlowMetrics, a B2B SaaS analytics platform for e-commerce businesses.\n\n")
	b.WriteString("COMPANY CONTEXT:\n")
	b.WriteString("- Series A stage, $2.8M ARR, 25% QoQ growth\n")
	b.WriteString("- 450+ customers, $199-$999/month pricing tiers\n")
	b.WriteString("- 25 employees, serving the e-commerce analytics market\n\n")
	fmt.Fprintf(&b, "TARGET AUDIENCE: %s\n", req.Audience)
	fmt.Fprintf(&b, "CONTENT TYPE: %s\n", req.ContentType)
	fmt.Fprintf(&b, "TONE: %s\n", req.Tone)
	fmt.Fprintf(&b, "LENGTH: %s\n", req.Length)
	fmt.Fprintf(&b, "FOCUS: %s\n\n", config.Focus)
	b.WriteString("RELEVANT DATA INSIGHTS:\n")
	b.WriteString(evidence)
	b.WriteString("\nAUDIENCE PREFERENCES:\n")
	fmt.Fprintf(&b, "- Key interests: %s\n", strings.Join(config.PreferredMetrics, ", "))
	fmt.Fprintf(&b, "- Tone keywords: %s\n", strings.Join(config.ToneKeywords, ", "))
	if req.Context != "" {
		fmt.Fprintf(&b, "\nADDITIONAL CONTEXT: %s\n", req.Context)
	}
	b.WriteString("\nREQUIREMENTS:\n")
	b.WriteString("1. Use the provided data insights as supporting evidence\n")
	fmt.Fprintf(&b, "2. Tailor the message specifically for %s\n", req.Audience)
	fmt.Fprintf(&b, "3. Maintain a %s tone throughout\n", req.Tone)
	fmt.Fprintf(&b, "4. Make it %s in length\n", req.Length)
	b.WriteString("5. Include specific metrics and numbers from the data\n")
	b.WriteString("6. Make it actionable and engaging\n")
	b.WriteString("7. Only use the provided data points\n")

	return b.String(), nil
}

// evidenceBlock renders evidence lines until the token budget is spent.
func evidenceBlock(relevant []RelevantNode) (string, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return "", fmt.Errorf("failed to load token encoder: %w", err)
	}

	var b strings.Builder
	used := 0
	for _, n := range relevant {
		line := fmt.Sprintf("- %s (Source: %s, Confidence: %.2f)\n", n.Content, n.Source, n.Confidence)
		tokens := len(enc.Encode(line, nil, nil))
		if used+tokens > evidenceTokenBudget {
			break
		}
		used += tokens
		b.WriteString(line)
	}
	return b.String(), nil
}

func maxTokensFor(length string) int {
	switch length {
	case "long":
		return 2000
	case "short":
		return 500
	default:
		return 1000
	}
}

// SaveEmailText writes the draft as a plain-text email file with a
// provenance header, returning the file path.
func SaveEmailText(dir string, result *Generated, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	if filename == "" {
		filename = fmt.Sprintf("%s_%s_%s.txt",
			result.Metadata.Audience, result.Metadata.ContentType,
			time.Now().Format("20060102_150405"))
	}
	path := filepath.Join(dir, filename)

	var b strings.Builder
	b.WriteString("===============================================\n")
	b.WriteString("EMAIL GENERATED FROM SEMANTIC GRAPH\n")
	b.WriteString("===============================================\n")
	fmt.Fprintf(&b, "Audience: %s\n", result.Metadata.Audience)
	fmt.Fprintf(&b, "Content Type: %s\n", result.Metadata.ContentType)
	fmt.Fprintf(&b, "Tone: %s\n", result.Metadata.Tone)
	fmt.Fprintf(&b, "Length: %s\n", result.Metadata.Length)
	fmt.Fprintf(&b, "Data Sources: %s\n", strings.Join(result.Metadata.DataSources, ", "))
	fmt.Fprintf(&b, "Relevant Nodes: %d\n", result.Metadata.RelevantNodes)
	fmt.Fprintf(&b, "Tokens Used: %d\n", result.Metadata.TokensUsed)
	b.WriteString("===============================================\n\n")
	fmt.Fprintf(&b, "Subject: %s\n\n", result.Draft.Subject)
	b.WriteString(result.Draft.Body)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("[Content] Email saved", "path", path)
	return path, nil
}
