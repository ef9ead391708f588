// Package graph models the editor's dataflow graph and resolves the image
// values a consumer node can see through its incoming edges.
package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// NodeID identifies a node in the graph.
type NodeID string

// NodeKind selects the extraction rule used when a node acts as an image
// producer. Unknown kind strings fall back to KindImage so plain producer
// nodes added by newer editors still resolve through the generic field
// convention.
type NodeKind int

const (
	KindImage   NodeKind = iota // generic producer exposing conventional data fields
	KindSplit                   // region-split producer exposing numbered crop outputs
	KindGrid                    // grid compositor exposing one composed output
	KindFrames                  // frame extractor exposing single/range/full-set outputs
	KindQuad                    // fixed-arity four-image generator
	KindDisplay                 // pass-through display, resolves one hop further upstream
)

func (k NodeKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindSplit:
		return "split"
	case KindGrid:
		return "grid"
	case KindFrames:
		return "frames"
	case KindQuad:
		return "quad"
	case KindDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// ParseKind maps a serialized kind string onto the closed NodeKind enum.
func ParseKind(s string) NodeKind {
	switch s {
	case "split", "imageSplit":
		return KindSplit
	case "grid", "imageGrid":
		return KindGrid
	case "frames", "frameExtract":
		return KindFrames
	case "quad", "fourImage":
		return KindQuad
	case "display", "imageDisplay":
		return KindDisplay
	default:
		return KindImage
	}
}

// Node is one node of the dataflow graph. Data holds the editor-owned state
// bag; the engine reads it through the extraction rules and never mutates it
// directly.
type Node struct {
	ID   NodeID         `json:"id"`
	Kind NodeKind       `json:"-"`
	Data map[string]any `json:"data"`
}

// nodeJSON is the wire shape of a node. Older snapshots used "type" for the
// kind field.
type nodeJSON struct {
	ID         NodeID         `json:"id"`
	Kind       string         `json:"kind"`
	LegacyType string         `json:"type"`
	Data       map[string]any `json:"data"`
}

// UnmarshalJSON decodes a node, accepting both the current "kind" and the
// legacy "type" field.
func (n *Node) UnmarshalJSON(data []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return err
	}
	kind := nj.Kind
	if kind == "" {
		kind = nj.LegacyType
	}
	n.ID = nj.ID
	n.Kind = ParseKind(kind)
	n.Data = nj.Data
	return nil
}

// Edge is a directed connection between two node handles. Empty handles mean
// the edge predates named ports and matches any handle on its end.
type Edge struct {
	Source       NodeID `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       NodeID `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// Graph is an immutable snapshot of nodes and edges for one resolution pass.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`

	byID     map[NodeID]*Node
	incoming map[NodeID][]Edge
}

// New builds a graph snapshot with its lookup indexes.
func New(nodes []*Node, edges []Edge) *Graph {
	g := &Graph{Nodes: nodes, Edges: edges}
	g.index()
	return g
}

// Decode reads a serialized graph snapshot.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	g.index()
	return &g, nil
}

func (g *Graph) index() {
	g.byID = make(map[NodeID]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.byID[n.ID] = n
	}
	g.incoming = make(map[NodeID][]Edge)
	for _, e := range g.Edges {
		g.incoming[e.Target] = append(g.incoming[e.Target], e)
	}
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	return g.byID[id]
}

// Incoming returns the edges arriving at target whose handle matches the
// requested one. Edges with an empty target handle always match, for
// compatibility with snapshots that predate named ports.
func (g *Graph) Incoming(target NodeID, handle string) []Edge {
	var out []Edge
	for _, e := range g.incoming[target] {
		if e.TargetHandle == handle || e.TargetHandle == "" {
			out = append(out, e)
		}
	}
	return out
}
