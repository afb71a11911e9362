package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/graph"
)

var (
	// ErrUnknownAudience is returned for audiences outside common.Audiences.
	ErrUnknownAudience = errors.New("unknown audience")
	// ErrNodeNotFound is returned when a queried node ID does not exist.
	ErrNodeNotFound = errors.New("node not found")
)

// Query semantics shared by every backend. Both adapters evaluate through
// these helpers so their filter behavior cannot drift apart.
const (
	highConfidenceCutoff = 0.8
	topSourcesLimit      = 10

	// audience-focused view
	audienceInclusionThreshold = 0.1
	insightRelevanceBoost      = 1.2
	expansionEdgeWeight        = 0.4
	expansionMaxNodes          = 10
	audienceEdgeWeight         = 0.35

	// analytics
	strongEdgeWeight   = 0.7
	topConnectedLimit  = 10
	strongestEdgeLimit = 20
	tagFrequencyLimit  = 15

	similarNodesLimit = 10
)

// ComputeOverview aggregates totals, per-type counts, the ten most frequent
// sources and the count of high-confidence nodes.
func ComputeOverview(snap *common.Snapshot) *Overview {
	o := &Overview{
		TotalNodes: len(snap.Nodes),
		TotalEdges: len(snap.Edges),
		NodeTypes:  map[string]int{},
	}

	sources := map[string]int{}
	for _, n := range snap.Nodes {
		o.NodeTypes[n.Type]++
		sources[n.Source]++
		if n.Confidence >= highConfidenceCutoff {
			o.HighConfidenceNodes++
		}
	}

	for source, count := range sources {
		o.TopSources = append(o.TopSources, SourceCount{Source: source, Count: count})
	}
	sort.Slice(o.TopSources, func(i, j int) bool {
		if o.TopSources[i].Count != o.TopSources[j].Count {
			return o.TopSources[i].Count > o.TopSources[j].Count
		}
		return o.TopSources[i].Source < o.TopSources[j].Source
	})
	if len(o.TopSources) > topSourcesLimit {
		o.TopSources = o.TopSources[:topSourcesLimit]
	}
	return o
}

// SearchNodes matches query case-insensitively against content, source and
// tags, ordered by confidence descending and truncated to limit.
func SearchNodes(snap *common.Snapshot, query string, limit int) []common.Node {
	q := strings.ToLower(query)

	matched := []common.Node{}
	for _, n := range snap.Nodes {
		if nodeMatches(n, q) {
			matched = append(matched, n)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Confidence > matched[j].Confidence
	})
	return truncateNodes(matched, limit)
}

// RankBySimilarity orders nodes by cosine similarity to the query
// embedding, most similar first, truncated to limit (default 10). Nodes
// whose embedding is missing or of a different dimension are skipped. The
// ordering matches the cosine-distance ranking of the database backend.
func RankBySimilarity(snap *common.Snapshot, embedding []float32, limit int) []common.Node {
	if limit <= 0 {
		limit = similarNodesLimit
	}

	type scoredNode struct {
		node  common.Node
		score float64
	}
	ranked := []scoredNode{}
	for _, n := range snap.Nodes {
		sim, err := graph.CosineSimilarity(embedding, n.Embedding)
		if err != nil {
			continue
		}
		ranked = append(ranked, scoredNode{node: n, score: sim})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	nodes := make([]common.Node, 0, len(ranked))
	for _, r := range ranked {
		nodes = append(nodes, r.node)
	}
	return truncateNodes(nodes, limit)
}

func nodeMatches(n common.Node, q string) bool {
	if strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Source), q) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// FilterGraph returns nodes meeting every set predicate, ordered by
// confidence descending and truncated, plus edges whose endpoints both
// survive and whose weight clears filter.MinWeight.
func FilterGraph(snap *common.Snapshot, filter GraphFilter) *common.Snapshot {
	types := toSet(filter.NodeTypes)
	sources := toSet(filter.Sources)
	tags := toSet(filter.Tags)

	nodes := []common.Node{}
	for _, n := range snap.Nodes {
		if len(types) > 0 {
			if _, ok := types[n.Type]; !ok {
				continue
			}
		}
		if len(sources) > 0 {
			if _, ok := sources[n.Source]; !ok {
				continue
			}
		}
		if n.Confidence < filter.MinConfidence {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(n.Tags, tags) {
			continue
		}
		nodes = append(nodes, n)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Confidence > nodes[j].Confidence
	})
	nodes = truncateNodes(nodes, filter.Limit)

	kept := map[string]struct{}{}
	for _, n := range nodes {
		kept[n.ID] = struct{}{}
	}

	edges := []common.Edge{}
	for _, e := range snap.Edges {
		if e.Weight < filter.MinWeight {
			continue
		}
		if _, ok := kept[e.SourceID]; !ok {
			continue
		}
		if _, ok := kept[e.TargetID]; !ok {
			continue
		}
		edges = append(edges, e)
	}

	return &common.Snapshot{Nodes: nodes, Edges: edges}
}

// AudienceFocusedView selects nodes relevant to the audience, boosts
// insights, expands the set along strong edges and keeps the strong edges
// among the final set.
func AudienceFocusedView(snap *common.Snapshot, audience string, limit int) (*AudienceGraph, error) {
	if !common.IsKnownAudience(audience) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAudience, audience)
	}

	focused := []AudienceNode{}
	for _, n := range snap.Nodes {
		relevance := n.AudienceRelevance[audience]
		if relevance <= audienceInclusionThreshold {
			continue
		}
		if n.Type == common.NodeTypeInsight {
			relevance *= insightRelevanceBoost
		}
		focused = append(focused, AudienceNode{Node: n, Relevance: relevance})
	}

	sort.SliceStable(focused, func(i, j int) bool {
		if focused[i].Relevance != focused[j].Relevance {
			return focused[i].Relevance > focused[j].Relevance
		}
		return focused[i].Confidence > focused[j].Confidence
	})
	if limit > 0 && len(focused) > limit {
		focused = focused[:limit]
	}

	inFocus := map[string]struct{}{}
	for _, n := range focused {
		inFocus[n.ID] = struct{}{}
	}

	result := &AudienceGraph{Audience: audience, Nodes: focused}
	result.Nodes = append(result.Nodes, expandFocusedSet(snap, inFocus, audience)...)

	finalSet := map[string]struct{}{}
	for _, n := range result.Nodes {
		finalSet[n.ID] = struct{}{}
	}
	result.Edges = []common.Edge{}
	for _, e := range snap.Edges {
		if e.Weight < audienceEdgeWeight {
			continue
		}
		if _, ok := finalSet[e.SourceID]; !ok {
			continue
		}
		if _, ok := finalSet[e.TargetID]; !ok {
			continue
		}
		result.Edges = append(result.Edges, e)
	}

	return result, nil
}

// expandFocusedSet adds up to ten extra nodes connected to the focused set
// by edges with weight >= 0.4, ranked by connection count then average
// weight.
func expandFocusedSet(snap *common.Snapshot, inFocus map[string]struct{}, audience string) []AudienceNode {
	type candidate struct {
		id          string
		connections int
		totalWeight float64
	}
	candidates := map[string]*candidate{}

	consider := func(outsideID string, weight float64) {
		if _, ok := inFocus[outsideID]; ok {
			return
		}
		c, ok := candidates[outsideID]
		if !ok {
			c = &candidate{id: outsideID}
			candidates[outsideID] = c
		}
		c.connections++
		c.totalWeight += weight
	}

	for _, e := range snap.Edges {
		if e.Weight < expansionEdgeWeight {
			continue
		}
		_, srcIn := inFocus[e.SourceID]
		_, tgtIn := inFocus[e.TargetID]
		if srcIn && !tgtIn {
			consider(e.TargetID, e.Weight)
		} else if tgtIn && !srcIn {
			consider(e.SourceID, e.Weight)
		}
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].connections != ranked[j].connections {
			return ranked[i].connections > ranked[j].connections
		}
		avgI := ranked[i].totalWeight / float64(ranked[i].connections)
		avgJ := ranked[j].totalWeight / float64(ranked[j].connections)
		if avgI != avgJ {
			return avgI > avgJ
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > expansionMaxNodes {
		ranked = ranked[:expansionMaxNodes]
	}

	expanded := []AudienceNode{}
	for _, c := range ranked {
		node, ok := snap.NodeByID(c.id)
		if !ok {
			continue
		}
		expanded = append(expanded, AudienceNode{
			Node:      node,
			Relevance: node.AudienceRelevance[audience],
			Expanded:  true,
		})
	}
	return expanded
}

// NeighborSubgraph walks out from nodeID up to depth hops over edges with
// weight >= minWeight and returns the visited subgraph.
func NeighborSubgraph(snap *common.Snapshot, nodeID string, depth int, minWeight float64) (*common.Snapshot, error) {
	start, ok := snap.NodeByID(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	if depth < 1 {
		depth = 1
	}

	adjacency := map[string][]common.Edge{}
	for _, e := range snap.Edges {
		if e.Weight < minWeight {
			continue
		}
		adjacency[e.SourceID] = append(adjacency[e.SourceID], e)
		adjacency[e.TargetID] = append(adjacency[e.TargetID], e)
	}

	visited := map[string]struct{}{start.ID: {}}
	frontier := []string{start.ID}
	for hop := 0; hop < depth; hop++ {
		next := []string{}
		for _, id := range frontier {
			for _, e := range adjacency[id] {
				other := e.TargetID
				if other == id {
					other = e.SourceID
				}
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}
				next = append(next, other)
			}
		}
		frontier = next
	}

	sub := &common.Snapshot{Nodes: []common.Node{}, Edges: []common.Edge{}}
	for _, n := range snap.Nodes {
		if _, ok := visited[n.ID]; ok {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, e := range snap.Edges {
		if e.Weight < minWeight {
			continue
		}
		_, srcIn := visited[e.SourceID]
		_, tgtIn := visited[e.TargetID]
		if srcIn && tgtIn {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub, nil
}

// ComputeAnalytics derives the connectivity, strong-edge and tag-frequency
// rankings.
func ComputeAnalytics(snap *common.Snapshot) *Analytics {
	degree := map[string]int{}
	for _, e := range snap.Edges {
		degree[e.SourceID]++
		degree[e.TargetID]++
	}

	top := []NodeDegree{}
	for _, n := range snap.Nodes {
		d := degree[n.ID]
		if d == 0 {
			continue
		}
		top = append(top, NodeDegree{NodeID: n.ID, Content: n.Content, Type: n.Type, Degree: d})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Degree != top[j].Degree {
			return top[i].Degree > top[j].Degree
		}
		return top[i].NodeID < top[j].NodeID
	})
	if len(top) > topConnectedLimit {
		top = top[:topConnectedLimit]
	}

	strongest := []common.Edge{}
	for _, e := range snap.Edges {
		if e.Weight >= strongEdgeWeight {
			strongest = append(strongest, e)
		}
	}
	sort.SliceStable(strongest, func(i, j int) bool {
		return strongest[i].Weight > strongest[j].Weight
	})
	if len(strongest) > strongestEdgeLimit {
		strongest = strongest[:strongestEdgeLimit]
	}

	tagCounts := map[string]int{}
	for _, n := range snap.Nodes {
		for _, tag := range n.Tags {
			tagCounts[tag]++
		}
	}
	tags := []TagCount{}
	for tag, count := range tagCounts {
		tags = append(tags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > tagFrequencyLimit {
		tags = tags[:tagFrequencyLimit]
	}

	return &Analytics{TopConnected: top, StrongestEdges: strongest, TagFrequency: tags}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func hasAnyTag(tags []string, wanted map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := wanted[t]; ok {
			return true
		}
	}
	return false
}

func truncateNodes(nodes []common.Node, limit int) []common.Node {
	if limit > 0 && len(nodes) > limit {
		return nodes[:limit]
	}
	return nodes
}
