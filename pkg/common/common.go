package common

// Node types produced by the extractor. The set is closed; the classifier
// relies on exact matches.
const (
	NodeTypeMetric  = "metric"
	NodeTypeInsight = "insight"
	NodeTypeEvent   = "event"
	NodeTypeTrend   = "trend"
)

// Relationship types assigned by the edge classifier.
const (
	RelationRelevance = "relevance"
	RelationCausality = "causality"
	RelationInfluence = "influence"
)

// Audiences is the fixed set of stakeholder groups that nodes are scored
// against. Keys of Node.AudienceRelevance are always drawn from this list.
var Audiences = []string{"investors", "customers", "internal_team", "developer_community"}

// IsKnownAudience reports whether name is one of Audiences.
func IsKnownAudience(name string) bool {
	for _, a := range Audiences {
		if a == name {
			return true
		}
	}
	return false
}

// Node is a single metric or insight record positioned in the knowledge
// graph. Nodes are created once per build run and are immutable afterwards;
// every consumer treats them as read-only.
//
// All embeddings in one graph share the same dimensionality. That invariant
// is enforced by the builder before any pairwise similarity is computed.
type Node struct {
	ID                string             `json:"id"`
	Type              string             `json:"type"`
	Content           string             `json:"content"`
	Value             any                `json:"value"`
	Timestamp         string             `json:"timestamp"`
	Confidence        float64            `json:"confidence"`
	Source            string             `json:"source"`
	Tags              []string           `json:"tags"`
	AudienceRelevance map[string]float64 `json:"audience_relevance"`
	Embedding         []float32          `json:"embedding"`
	Metadata          map[string]any     `json:"metadata"`
}

// Edge is a derived, weighted, typed relationship between two nodes. The
// pair (SourceID, TargetID) is unordered: the builder emits each pair at
// most once and never emits self-loops.
type Edge struct {
	SourceID           string       `json:"source_id"`
	TargetID           string       `json:"target_id"`
	RelationshipType   string       `json:"relationship_type"`
	Weight             float64      `json:"weight"`
	Confidence         float64      `json:"confidence"`
	SemanticSimilarity float64      `json:"semantic_similarity"`
	Metadata           EdgeMetadata `json:"metadata"`
}

// EdgeMetadata carries the classifier's supporting detail for an edge.
type EdgeMetadata struct {
	SimilarityScore float64  `json:"similarity_score"`
	SourceTypes     string   `json:"source_types"`
	SharedTags      []string `json:"shared_tags"`
}

// Snapshot is a fully built graph: the wholesale unit of persistence and
// loading. There is no append or merge operation; a new build replaces the
// previous snapshot entirely.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given ID, or false if absent.
func (s *Snapshot) NodeByID(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
