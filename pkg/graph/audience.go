package graph

import (
	"math"
	"strings"
)

// AudienceProfile describes what one stakeholder group cares about.
// Keywords are matched against node content and tags, interests against
// node tags.
type AudienceProfile struct {
	Keywords  []string
	Interests []string
}

// AudienceProfiles is the fixed stakeholder taxonomy used for relevance
// scoring. The keys mirror common.Audiences.
var AudienceProfiles = map[string]AudienceProfile{
	"investors": {
		Keywords:  []string{"revenue", "growth", "arr", "mrr", "churn", "funding", "runway"},
		Interests: []string{"financial_metrics", "growth_trajectory", "market_position"},
	},
	"customers": {
		Keywords:  []string{"feature", "update", "integration", "dashboard", "support"},
		Interests: []string{"product_updates", "feature_releases", "user_experience"},
	},
	"internal_team": {
		Keywords:  []string{"performance", "velocity", "sprint", "kpi", "productivity"},
		Interests: []string{"team_performance", "operational_metrics", "strategic_initiatives"},
	},
	"developer_community": {
		Keywords:  []string{"api", "integration", "documentation", "technical"},
		Interests: []string{"technical_updates", "integration_capabilities"},
	},
}

// CalculateAudienceRelevance scores the content and tags against every
// audience profile. Keywords are matched against the content and tags
// combined and carry 70% of the score; tags containing an interest carry
// the remaining 30%. Each component saturates at 1 and scores are rounded
// to three decimals.
func CalculateAudienceRelevance(content string, tags []string) map[string]float64 {
	haystack := strings.ToLower(content + " " + strings.Join(tags, " "))

	scores := make(map[string]float64, len(AudienceProfiles))
	for audience, profile := range AudienceProfiles {
		keywordHits := 0
		for _, kw := range profile.Keywords {
			if strings.Contains(haystack, kw) {
				keywordHits++
			}
		}
		keywordScore := math.Min(float64(keywordHits)/float64(len(profile.Keywords)), 1.0)

		interestHits := 0
		for _, tag := range tags {
			tagLower := strings.ToLower(tag)
			for _, interest := range profile.Interests {
				if strings.Contains(tagLower, interest) {
					interestHits++
					break
				}
			}
		}
		interestScore := math.Min(float64(interestHits)*0.2, 1.0)

		score := keywordScore*0.7 + interestScore*0.3
		scores[audience] = math.Round(score*1000) / 1000
	}
	return scores
}
