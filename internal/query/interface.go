package query

import (
	"context"

	"graphbrowser/internal/graph"
)

// GraphClient executes a statement against one graph and returns the result
// classified into vertices and edges.
type GraphClient interface {
	Execute(ctx context.Context, graphID string, stmt Statement) ([]graph.RawNode, error)
}

// Catalog lists what can be browsed.
type Catalog interface {
	// ListGraphs returns the names of the graphs available on the server.
	ListGraphs(ctx context.Context) ([]string, error)
	// ListClusters maps cluster display names to cluster ids.
	ListClusters(ctx context.Context, graphID string) (map[string]string, error)
	// EdgeTypes returns the relationship types touching vertices of label.
	EdgeTypes(ctx context.Context, graphID, label string) ([]string, error)
	// ServerInfo describes the connected server and the driver.
	ServerInfo(ctx context.Context) (ServerInfo, error)
}

// ServerInfo identifies the database server a client talks to.
type ServerInfo struct {
	Address         string `json:"address"`
	Agent           string `json:"agent"`
	ProtocolVersion string `json:"protocol_version"`
	DriverVersion   string `json:"driver_version"`
}
