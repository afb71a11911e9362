package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/flowmetrics/semgraph/pkg/common"
)

// Format identifies a supported export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatGraphML Format = "graphml"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatGraphML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// Encode renders the snapshot in the requested format.
func Encode(snap *common.Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(snap)
	case FormatCSV:
		return encodeCSV(snap)
	case FormatGraphML:
		return encodeGraphML(snap)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func encodeJSON(snap *common.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// encodeCSV writes the edge list with its attributes; node attributes
// travel in the JSON and GraphML formats.
func encodeCSV(snap *common.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"source", "target", "relationship_type", "weight", "confidence", "semantic_similarity"}); err != nil {
		return nil, err
	}
	for _, e := range snap.Edges {
		record := []string{
			e.SourceID,
			e.TargetID,
			e.RelationshipType,
			strconv.FormatFloat(e.Weight, 'f', -1, 64),
			strconv.FormatFloat(e.Confidence, 'f', -1, 64),
			strconv.FormatFloat(e.SemanticSimilarity, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

func encodeGraphML(snap *common.Snapshot) ([]byte, error) {
	doc := graphmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "content", For: "node", AttrName: "content", AttrType: "string"},
			{ID: "type", For: "node", AttrName: "type", AttrType: "string"},
			{ID: "source", For: "node", AttrName: "source", AttrType: "string"},
			{ID: "confidence", For: "node", AttrName: "confidence", AttrType: "double"},
			{ID: "weight", For: "edge", AttrName: "weight", AttrType: "double"},
			{ID: "relationship_type", For: "edge", AttrName: "relationship_type", AttrType: "string"},
		},
		Graph: graphmlGraph{ID: "G", EdgeDefault: "undirected"},
	}

	for _, n := range snap.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: n.ID,
			Data: []graphmlData{
				{Key: "content", Value: n.Content},
				{Key: "type", Value: n.Type},
				{Key: "source", Value: n.Source},
				{Key: "confidence", Value: strconv.FormatFloat(n.Confidence, 'f', -1, 64)},
			},
		})
	}
	for _, e := range snap.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: e.SourceID,
			Target: e.TargetID,
			Data: []graphmlData{
				{Key: "weight", Value: strconv.FormatFloat(e.Weight, 'f', -1, 64)},
				{Key: "relationship_type", Value: e.RelationshipType},
			},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
