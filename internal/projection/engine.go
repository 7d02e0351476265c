// Package projection turns graph query results into the vertex/edge lists
// rendered by the browser.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/metrics"
	"graphbrowser/internal/query"
)

// Engine projects query results into VisualGraphs. It holds no per-request
// state and is safe for concurrent use as long as its client is.
type Engine struct {
	client query.GraphClient
	logger *slog.Logger
}

func New(client query.GraphClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client: client,
		logger: logger,
	}
}

// Project runs q on graphID and maps the result into a VisualGraph. When
// populateEdges is set, a second query fetches the edges between the vertices
// returned by the first one. Any failure aborts the projection; no partial
// graph is returned.
func (e *Engine) Project(ctx context.Context, graphID, q string, populateEdges bool) (*graph.VisualGraph, error) {
	if strings.TrimSpace(graphID) == "" {
		return nil, invalidArgument("graphName")
	}
	if strings.TrimSpace(q) == "" {
		return nil, invalidArgument("query")
	}
	return e.project(ctx, graphID, query.Raw(q), populateEdges)
}

// LoadGraph projects every vertex of graphID together with the edges between them.
func (e *Engine) LoadGraph(ctx context.Context, graphID string) (*graph.VisualGraph, error) {
	if strings.TrimSpace(graphID) == "" {
		return nil, invalidArgument("graphName")
	}
	return e.project(ctx, graphID, query.AllVertices(), true)
}

// LoadCluster projects the neighbourhood of a cluster vertex.
func (e *Engine) LoadCluster(ctx context.Context, graphID, clusterID string) (*graph.VisualGraph, error) {
	if strings.TrimSpace(graphID) == "" {
		return nil, invalidArgument("graphName")
	}
	if strings.TrimSpace(clusterID) == "" {
		return nil, invalidArgument("clusterId")
	}
	e.logger.Info("loading cluster", "cluster_id", clusterID, "graph", graphID)
	return e.project(ctx, graphID, query.ClusterNeighborhood(clusterID, query.DefaultClusterDepth), true)
}

func (e *Engine) project(ctx context.Context, graphID string, stmt query.Statement, populateEdges bool) (*graph.VisualGraph, error) {
	e.logger.Info("executing query", "graph", graphID, "query", stmt.Cypher, "populate_edges", populateEdges)

	nodes, err := e.execute(ctx, graphID, PassPrimary, stmt)
	if err != nil {
		return nil, err
	}

	out := graph.NewVisualGraph()
	var seenVertexIDs []string
	for _, n := range nodes {
		inserted, err := addRawNode(out, n)
		if err != nil {
			return nil, err
		}
		if populateEdges && inserted {
			seenVertexIDs = append(seenVertexIDs, n.Vertex.ID)
		}
	}

	if populateEdges && len(seenVertexIDs) > 0 {
		e.logger.Debug("fetching induced edges", "graph", graphID, "vertices", len(seenVertexIDs))

		edges, err := e.execute(ctx, graphID, PassEdges, query.InducedEdges(seenVertexIDs))
		if err != nil {
			return nil, err
		}
		for _, n := range edges {
			if _, err := addRawNode(out, n); err != nil {
				return nil, err
			}
		}
	}

	metrics.ProjectedVertices.Observe(float64(len(out.Nodes)))
	return out, nil
}

func (e *Engine) execute(ctx context.Context, graphID, pass string, stmt query.Statement) ([]graph.RawNode, error) {
	start := time.Now()
	nodes, err := e.client.Execute(ctx, graphID, stmt)
	metrics.GraphQueryDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GraphQueriesTotal.WithLabelValues(pass, "error").Inc()
		e.logger.Error("graph query failed", "graph", graphID, "pass", pass, "error", err)
		if errors.Is(err, graph.ErrMalformedResult) {
			return nil, fmt.Errorf("%s query on graph %s: %w", pass, graphID, err)
		}
		return nil, &QueryExecutionError{GraphID: graphID, Pass: pass, Err: err}
	}
	metrics.GraphQueriesTotal.WithLabelValues(pass, "ok").Inc()
	return nodes, nil
}

// addRawNode maps n into g. It reports whether n was a vertex not yet in g.
func addRawNode(g *graph.VisualGraph, n graph.RawNode) (bool, error) {
	if err := n.Validate(); err != nil {
		return false, err
	}

	switch n.Kind {
	case graph.KindVertex:
		if g.HasVertex(n.Vertex.ID) {
			return false, nil
		}
		return g.AddVertex(graph.VisualVertex{
			ID:    n.Vertex.ID,
			Label: DisplayLabel(n.Vertex),
			Group: n.Vertex.Label,
		}), nil
	case graph.KindEdge:
		g.AddEdge(graph.VisualEdge{
			From: n.Edge.SourceID,
			To:   n.Edge.TargetID,
		})
		return false, nil
	}
	return false, fmt.Errorf("%w: unexpected kind %s", graph.ErrMalformedResult, n.Kind)
}
