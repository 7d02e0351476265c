package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"graphbrowser/internal/graph"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

const systemDatabase = "system"

// ErrEmptyLabel is returned when a vertex label argument is blank.
var ErrEmptyLabel = errors.New("label is required")

// Neo4jClient implements GraphClient and Catalog using the official Neo4j Go
// driver. A graph id is a Neo4j database name. The driver is safe for
// concurrent use, so one client serves every request.
type Neo4jClient struct {
	driver  neo4j.DriverWithContext
	timeout time.Duration
	logger  *slog.Logger
}

// NewNeo4jClient wraps an existing driver. A zero timeout leaves the server
// default transaction timeout in place.
func NewNeo4jClient(driver neo4j.DriverWithContext, timeout time.Duration, logger *slog.Logger) *Neo4jClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jClient{
		driver:  driver,
		timeout: timeout,
		logger:  logger,
	}
}

// Driver exposes the underlying driver, e.g. for the loader.
func (c *Neo4jClient) Driver() neo4j.DriverWithContext {
	return c.driver
}

// Close closes the Neo4j driver connection.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Execute runs stmt on the graphID database and flattens every returned
// value into vertices and edges, in record order.
func (c *Neo4jClient) Execute(ctx context.Context, graphID string, stmt Statement) ([]graph.RawNode, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{
		neo4j.ExecuteQueryWithDatabase(graphID),
		neo4j.ExecuteQueryWithReadersRouting(),
	}
	if c.timeout > 0 {
		opts = append(opts, neo4j.ExecuteQueryWithTransactionConfig(neo4j.WithTxTimeout(c.timeout)))
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, stmt.Cypher, stmt.Params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query on graph %s: %w", graphID, err)
	}

	nodes := make([]graph.RawNode, 0, len(result.Records))
	for _, record := range result.Records {
		for i, value := range record.Values {
			nodes, err = appendRawNodes(nodes, value)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", columnName(record, i), err)
			}
		}
	}
	return nodes, nil
}

func columnName(record *neo4j.Record, i int) string {
	if i < len(record.Keys) {
		return record.Keys[i]
	}
	return fmt.Sprintf("#%d", i)
}

// appendRawNodes classifies a single record value. Paths contribute their
// vertices then their relationships, lists are flattened and nulls skipped.
func appendRawNodes(out []graph.RawNode, value any) ([]graph.RawNode, error) {
	switch v := value.(type) {
	case nil:
		return out, nil
	case neo4j.Node:
		return append(out, graph.NewVertexNode(vertexFromNode(v))), nil
	case neo4j.Relationship:
		return append(out, graph.NewEdgeNode(edgeFromRelationship(v))), nil
	case neo4j.Path:
		for _, n := range v.Nodes {
			out = append(out, graph.NewVertexNode(vertexFromNode(n)))
		}
		for _, r := range v.Relationships {
			out = append(out, graph.NewEdgeNode(edgeFromRelationship(r)))
		}
		return out, nil
	case []any:
		var err error
		for _, item := range v {
			if out, err = appendRawNodes(out, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: value of type %T is neither vertex nor edge", graph.ErrMalformedResult, value)
	}
}

func vertexFromNode(n neo4j.Node) *graph.Vertex {
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	props := n.Props
	if props == nil {
		props = map[string]any{}
	}
	return &graph.Vertex{
		ID:         n.ElementId,
		Label:      label,
		Properties: props,
	}
}

func edgeFromRelationship(r neo4j.Relationship) *graph.Edge {
	return &graph.Edge{
		ID:       r.ElementId,
		SourceID: r.StartElementId,
		TargetID: r.EndElementId,
		Type:     r.Type,
	}
}

// ListGraphs returns the user databases of the server, sorted.
func (c *Neo4jClient) ListGraphs(ctx context.Context) ([]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, buildListGraphsQuery(), nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(systemDatabase),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	seen := make(map[string]bool, len(result.Records))
	names := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		name, _, err := neo4j.GetRecordValue[string](record, "name")
		if err != nil {
			return nil, fmt.Errorf("failed to read graph name: %w", err)
		}
		if name == systemDatabase || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListClusters maps the display name of every cluster vertex to its cluster
// id. Clusters without a display name are listed under their id.
func (c *Neo4jClient) ListClusters(ctx context.Context, graphID string) (map[string]string, error) {
	cypher, params, err := buildListClustersQuery()
	if err != nil {
		return nil, fmt.Errorf("failed to build cluster query: %w", err)
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(graphID),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters on graph %s: %w", graphID, err)
	}

	clusters := make(map[string]string, len(result.Records))
	for _, record := range result.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "c")
		if err != nil {
			return nil, fmt.Errorf("failed to read cluster vertex: %w", err)
		}
		name, id, ok := clusterEntry(vertexFromNode(node))
		if !ok {
			c.logger.Warn("cluster vertex without cluster id", "graph", graphID, "element_id", node.ElementId)
			continue
		}
		clusters[name] = id
	}
	return clusters, nil
}

// EdgeTypes lists the distinct relationship types incident to vertices
// labelled label, sorted.
func (c *Neo4jClient) EdgeTypes(ctx context.Context, graphID, label string) ([]string, error) {
	cypher, params, err := buildEdgeTypesQuery(label)
	if err != nil {
		return nil, err
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(graphID),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edge types of %s on graph %s: %w", label, graphID, err)
	}

	types := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		t, _, err := neo4j.GetRecordValue[string](record, "type")
		if err != nil {
			return nil, fmt.Errorf("failed to read edge type: %w", err)
		}
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}

// ServerInfo reports the server the driver is connected to.
func (c *Neo4jClient) ServerInfo(ctx context.Context) (ServerInfo, error) {
	info, err := c.driver.GetServerInfo(ctx)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to get server info: %w", err)
	}
	v := info.ProtocolVersion()
	return ServerInfo{
		Address:         info.Address(),
		Agent:           info.Agent(),
		ProtocolVersion: fmt.Sprintf("%d.%d", v.Major, v.Minor),
		DriverVersion:   neo4j.UserAgent,
	}, nil
}

func clusterEntry(v *graph.Vertex) (name, id string, ok bool) {
	id, ok = v.Property(graph.PropClusterID)
	if !ok {
		return "", "", false
	}
	name, hasName := v.Property(graph.PropGoldenDisplayName)
	if !hasName || name == "" {
		name = id
	}
	return name, id, true
}

func buildListGraphsQuery() string {
	return "SHOW DATABASES YIELD name RETURN DISTINCT name"
}

func buildListClustersQuery() (string, map[string]interface{}, error) {
	return gocypher.NewQueryBuilder().
		Match(gocypher.N("c", graph.VertexCluster)).
		Return("c").
		Build()
}

func buildEdgeTypesQuery(label string) (string, map[string]interface{}, error) {
	if strings.TrimSpace(label) == "" {
		return "", nil, ErrEmptyLabel
	}
	return gocypher.NewQueryBuilder().
		Match(gocypher.N("n", quoteIdentifier(label)), gocypher.R("r", ""), gocypher.NRef("")).
		Return("DISTINCT type(r) AS type").
		Build()
}

func quoteIdentifier(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
