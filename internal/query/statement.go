package query

import (
	"fmt"

	"graphbrowser/internal/graph"
)

const (
	DefaultClusterDepth = 4
	MaxClusterDepth     = 10
)

// Statement is a Cypher query with its parameters. User supplied values
// always travel in Params.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Raw wraps a caller supplied query without parameters.
func Raw(cypher string) Statement {
	return Statement{Cypher: cypher}
}

// AllVertices selects every vertex of the graph.
func AllVertices() Statement {
	return Statement{Cypher: "MATCH (n) RETURN n"}
}

// InducedEdges selects the outgoing relationships of the given vertices whose
// target is also in the set.
func InducedEdges(ids []string) Statement {
	set := make([]string, len(ids))
	copy(set, ids)
	return Statement{
		Cypher: `
		MATCH (a)-[r]->(b)
		WHERE elementId(a) IN $ids AND elementId(b) IN $ids
		RETURN r
	`,
		Params: map[string]any{"ids": set},
	}
}

// ClusterNeighborhood selects the cluster vertex with the given id and every
// vertex reachable from it in at most depth hops, in either direction.
// depth is clamped to [1, MaxClusterDepth].
func ClusterNeighborhood(clusterID string, depth int) Statement {
	if depth < 1 {
		depth = 1
	}
	if depth > MaxClusterDepth {
		depth = MaxClusterDepth
	}
	return Statement{
		Cypher: fmt.Sprintf(`
		MATCH (c:%s {%s: $clusterId})
		MATCH (c)-[*0..%d]-(n)
		RETURN DISTINCT n
	`, graph.VertexCluster, graph.PropClusterID, depth),
		Params: map[string]any{"clusterId": clusterID},
	}
}

func (s Statement) String() string {
	return s.Cypher
}
