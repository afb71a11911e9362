package content

import (
	"sort"
	"strings"

	"github.com/flowmetrics/semgraph/pkg/common"
)

// AudienceConfig describes what one stakeholder group should hear about and
// how.
type AudienceConfig struct {
	PreferredMetrics []string
	ToneKeywords     []string
	Focus            string
}

// AudienceConfigs is the content-generation taxonomy. Keys mirror
// common.Audiences.
var AudienceConfigs = map[string]AudienceConfig{
	"investors": {
		PreferredMetrics: []string{"revenue", "growth", "mrr", "customers", "market"},
		ToneKeywords:     []string{"strategic", "financial", "scalable", "market opportunity"},
		Focus:            "financial performance and growth potential",
	},
	"customers": {
		PreferredMetrics: []string{"features", "satisfaction", "performance", "reliability"},
		ToneKeywords:     []string{"beneficial", "improved", "enhanced", "value"},
		Focus:            "product benefits and improvements",
	},
	"internal_team": {
		PreferredMetrics: []string{"performance", "efficiency", "goals", "team", "operations"},
		ToneKeywords:     []string{"achievement", "progress", "objectives", "collaboration"},
		Focus:            "operational excellence and team performance",
	},
	"developer_community": {
		PreferredMetrics: []string{"technical", "api", "integration", "features", "development"},
		ToneKeywords:     []string{"technical", "implementation", "developer-friendly", "innovation"},
		Focus:            "technical capabilities and developer experience",
	},
}

// Request describes one content generation job.
type Request struct {
	// Audience is one of common.Audiences.
	Audience string `json:"audience" validate:"required"`
	// ContentType is e.g. "email", "report", "social_post".
	ContentType string `json:"content_type" validate:"required"`
	// Tone is e.g. "professional", "casual", "technical", "marketing".
	Tone string `json:"tone"`
	// Length is "short", "medium" or "long".
	Length string `json:"length"`
	// FocusAreas are topics to emphasize.
	FocusAreas []string `json:"focus_areas,omitempty"`
	// Context is free-form extra guidance for the draft.
	Context string `json:"context,omitempty"`
}

// RelevantNode is an evidence node selected for a draft, with its computed
// relevance score.
type RelevantNode struct {
	NodeID     string   `json:"node_id"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Source     string   `json:"source"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Relevance  float64  `json:"relevance_score"`
}

const (
	relevanceCutoff  = 0.2
	maxRelevantNodes = 8
)

// FindRelevantNodes scores every node against the audience's preferred
// metrics, the requested focus areas and the node's graph centrality, and
// returns the top eight above the relevance cutoff.
func FindRelevantNodes(snap *common.Snapshot, audience string, focusAreas []string) []RelevantNode {
	config := AudienceConfigs[audience]

	degree := map[string]int{}
	for _, e := range snap.Edges {
		degree[e.SourceID]++
		degree[e.TargetID]++
	}
	centralityDenom := float64(len(snap.Nodes) - 1)
	if centralityDenom < 1 {
		centralityDenom = 1
	}

	relevant := []RelevantNode{}
	for _, n := range snap.Nodes {
		score := 0.0
		contentLower := strings.ToLower(n.Content)

		for _, metric := range config.PreferredMetrics {
			if anyTagContains(n.Tags, metric) {
				score += 0.3
			}
			if strings.Contains(contentLower, metric) {
				score += 0.2
			}
		}

		for _, focus := range focusAreas {
			focusLower := strings.ToLower(focus)
			if strings.Contains(contentLower, focusLower) {
				score += 0.4
			}
			if anyTagContains(n.Tags, focusLower) {
				score += 0.3
			}
		}

		score += float64(degree[n.ID]) / centralityDenom * 0.2

		if score > relevanceCutoff {
			relevant = append(relevant, RelevantNode{
				NodeID:     n.ID,
				Content:    n.Content,
				Type:       n.Type,
				Source:     n.Source,
				Tags:       n.Tags,
				Confidence: n.Confidence,
				Relevance:  score,
			})
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Relevance > relevant[j].Relevance
	})
	if len(relevant) > maxRelevantNodes {
		relevant = relevant[:maxRelevantNodes]
	}
	return relevant
}

func anyTagContains(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func uniqueSources(nodes []RelevantNode) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, n := range nodes {
		if _, ok := seen[n.Source]; ok {
			continue
		}
		seen[n.Source] = struct{}{}
		out = append(out, n.Source)
	}
	return out
}
