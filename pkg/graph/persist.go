package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/logger"
)

// ArtifactMetadata is the header block of the nodes and edges documents.
type ArtifactMetadata struct {
	TotalNodes        int      `json:"total_nodes,omitempty"`
	TotalEdges        int      `json:"total_edges,omitempty"`
	NodeTypes         []string `json:"node_types,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	Created           string   `json:"created"`
}

// NodesDocument is the on-disk shape of <name>_nodes.json.
type NodesDocument struct {
	Metadata ArtifactMetadata `json:"metadata"`
	Nodes    []common.Node    `json:"nodes"`
}

// EdgesDocument is the on-disk shape of <name>_edges.json.
type EdgesDocument struct {
	Metadata ArtifactMetadata `json:"metadata"`
	Edges    []common.Edge    `json:"edges"`
}

// Summary aggregates graph-wide counts, written to graph_summary.json.
// AudienceCoverage counts nodes whose relevance for the audience exceeds
// 0.3.
type Summary struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalEdges         int            `json:"total_edges"`
	NodeTypes          map[string]int `json:"node_types"`
	RelationshipTypes  map[string]int `json:"relationship_types"`
	SourceDistribution map[string]int `json:"source_distribution"`
	AudienceCoverage   map[string]int `json:"audience_coverage"`
	Created            string         `json:"created"`
}

// Persister writes a snapshot's artifacts to a directory. Writes are
// per-artifact all-or-nothing, with no transactional guarantee across
// artifacts: a failure mid-sequence leaves earlier artifacts in place.
type Persister struct {
	// Now supplies the creation timestamp. Defaults to time.Now; fix it to
	// a constant for byte-identical reruns.
	Now func() time.Time
}

func (p *Persister) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// SaveArtifacts writes <name>_nodes.json, <name>_edges.json,
// <name>.edgelist and graph_summary.json into dir.
func (p *Persister) SaveArtifacts(dir, name string, snap *common.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	created := p.now().UTC().Format(time.RFC3339)

	nodesDoc := NodesDocument{
		Metadata: ArtifactMetadata{
			TotalNodes: len(snap.Nodes),
			NodeTypes:  distinctNodeTypes(snap.Nodes),
			Created:    created,
		},
		Nodes: snap.Nodes,
	}
	if err := writeJSON(filepath.Join(dir, name+"_nodes.json"), nodesDoc); err != nil {
		return err
	}

	edgesDoc := EdgesDocument{
		Metadata: ArtifactMetadata{
			TotalEdges:        len(snap.Edges),
			RelationshipTypes: distinctRelationTypes(snap.Edges),
			Created:           created,
		},
		Edges: snap.Edges,
	}
	if err := writeJSON(filepath.Join(dir, name+"_edges.json"), edgesDoc); err != nil {
		return err
	}

	if err := p.writeEdgelist(filepath.Join(dir, name+".edgelist"), snap.Edges); err != nil {
		return err
	}

	summary := BuildSummary(snap)
	summary.Created = created
	if err := writeJSON(filepath.Join(dir, "graph_summary.json"), summary); err != nil {
		return err
	}

	logger.Info("[Graph] Artifacts saved", "dir", dir, "name", name,
		"nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// BuildSummary computes the aggregate counts for a snapshot.
func BuildSummary(snap *common.Snapshot) Summary {
	s := Summary{
		TotalNodes:         len(snap.Nodes),
		TotalEdges:         len(snap.Edges),
		NodeTypes:          map[string]int{},
		RelationshipTypes:  map[string]int{},
		SourceDistribution: map[string]int{},
		AudienceCoverage:   map[string]int{},
	}

	for _, audience := range common.Audiences {
		s.AudienceCoverage[audience] = 0
	}

	for _, n := range snap.Nodes {
		s.NodeTypes[n.Type]++
		s.SourceDistribution[n.Source]++
		for audience, relevance := range n.AudienceRelevance {
			if relevance > 0.3 {
				s.AudienceCoverage[audience]++
			}
		}
	}
	for _, e := range snap.Edges {
		s.RelationshipTypes[e.RelationshipType]++
	}
	return s
}

// LoadSnapshot reads <name>_nodes.json and <name>_edges.json back from dir.
func LoadSnapshot(dir, name string) (*common.Snapshot, error) {
	var nodesDoc NodesDocument
	if err := readJSON(filepath.Join(dir, name+"_nodes.json"), &nodesDoc); err != nil {
		return nil, err
	}

	var edgesDoc EdgesDocument
	if err := readJSON(filepath.Join(dir, name+"_edges.json"), &edgesDoc); err != nil {
		return nil, err
	}

	return &common.Snapshot{Nodes: nodesDoc.Nodes, Edges: edgesDoc.Edges}, nil
}

func (p *Persister) writeEdgelist(path string, edges []common.Edge) error {
	var b strings.Builder
	for _, e := range edges {
		b.WriteString(e.SourceID)
		b.WriteByte(' ')
		b.WriteString(e.TargetID)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func distinctNodeTypes(nodes []common.Node) []string {
	seen := map[string]struct{}{}
	for _, n := range nodes {
		seen[n.Type] = struct{}{}
	}
	return sortedKeys(seen)
}

func distinctRelationTypes(edges []common.Edge) []string {
	seen := map[string]struct{}{}
	for _, e := range edges {
		seen[e.RelationshipType] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
