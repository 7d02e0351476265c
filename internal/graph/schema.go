package graph

import (
	"errors"
	"fmt"
)

// ErrMalformedResult is returned when a database result cannot be classified
// as a vertex or an edge, or lacks the identifiers the projection relies on.
var ErrMalformedResult = errors.New("malformed graph result")

// Kind tags a RawNode as a vertex or an edge.
type Kind int

const (
	KindVertex Kind = iota + 1
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Vertex is a vertex as returned by the graph database.
type Vertex struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Property returns the first value of the named property rendered as a string.
// Multi-valued properties ([]any, []string) yield their first element.
func (v *Vertex) Property(name string) (string, bool) {
	raw, ok := v.Properties[name]
	if !ok || raw == nil {
		return "", false
	}
	switch val := raw.(type) {
	case string:
		return val, true
	case []string:
		if len(val) == 0 {
			return "", false
		}
		return val[0], true
	case []any:
		if len(val) == 0 || val[0] == nil {
			return "", false
		}
		return fmt.Sprint(val[0]), true
	default:
		return fmt.Sprint(val), true
	}
}

// Edge is a relationship as returned by the graph database.
type Edge struct {
	ID       string `json:"id,omitempty"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
}

// RawNode is a single element of a query result: exactly one of Vertex or
// Edge is set, matching Kind.
type RawNode struct {
	Kind   Kind
	Vertex *Vertex
	Edge   *Edge
}

func NewVertexNode(v *Vertex) RawNode {
	return RawNode{Kind: KindVertex, Vertex: v}
}

func NewEdgeNode(e *Edge) RawNode {
	return RawNode{Kind: KindEdge, Edge: e}
}

// Validate checks the variant is consistent and carries its identifiers.
func (n RawNode) Validate() error {
	switch n.Kind {
	case KindVertex:
		if n.Vertex == nil || n.Edge != nil {
			return fmt.Errorf("%w: vertex node without vertex payload", ErrMalformedResult)
		}
		if n.Vertex.ID == "" {
			return fmt.Errorf("%w: vertex %q has no id", ErrMalformedResult, n.Vertex.Label)
		}
	case KindEdge:
		if n.Edge == nil || n.Vertex != nil {
			return fmt.Errorf("%w: edge node without edge payload", ErrMalformedResult)
		}
		if n.Edge.SourceID == "" || n.Edge.TargetID == "" {
			return fmt.Errorf("%w: edge %q is missing an endpoint", ErrMalformedResult, n.Edge.ID)
		}
	default:
		return fmt.Errorf("%w: node is neither vertex nor edge (%s)", ErrMalformedResult, n.Kind)
	}
	return nil
}
