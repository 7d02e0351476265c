package storage

import "graphbrowser/internal/graph"

type Emitter interface {
	EmitVertex(v *graph.VisualVertex) error
	EmitEdge(e *graph.VisualEdge) error
	Close() error
}

// WriteGraph emits every vertex of g, then every edge, in graph order.
func WriteGraph(em Emitter, g *graph.VisualGraph) error {
	for i := range g.Nodes {
		if err := em.EmitVertex(&g.Nodes[i]); err != nil {
			return err
		}
	}
	for i := range g.Edges {
		if err := em.EmitEdge(&g.Edges[i]); err != nil {
			return err
		}
	}
	return nil
}
