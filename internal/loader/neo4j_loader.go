package loader

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Relation describes how the endpoints of an edge batch are matched.
type Relation struct {
	Type        string
	SourceLabel string
	SourceKey   string
	TargetLabel string
	TargetKey   string
}

// Pair is one edge row: the key values of its source and target vertices.
type Pair struct {
	Source any
	Target any
}

// Neo4jLoader handles batch loading of graph data into Neo4j.
type Neo4jLoader struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jLoader creates a new loader instance.
func NewNeo4jLoader(driver neo4j.DriverWithContext, dbName string) *Neo4jLoader {
	return &Neo4jLoader{
		Driver: driver,
		DBName: dbName,
	}
}

// BatchLoadVertices merges rows as vertices of label, keyed by the key property.
// Every row must carry the key.
func (l *Neo4jLoader) BatchLoadVertices(ctx context.Context, label, key string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := l.write(ctx, buildVertexQuery(label, key), map[string]any{"batch": rows}); err != nil {
		return fmt.Errorf("failed to load vertices for label %s: %w", label, err)
	}
	return nil
}

// BatchLoadEdges merges one rel.Type relationship per pair. Pairs whose
// endpoints do not exist are silently skipped by the MATCH.
func (l *Neo4jLoader) BatchLoadEdges(ctx context.Context, rel Relation, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	if err := l.write(ctx, buildEdgeQuery(rel), map[string]any{"batch": pairRows(pairs)}); err != nil {
		return fmt.Errorf("failed to load edges for type %s: %w", rel.Type, err)
	}
	return nil
}

// Wipe deletes all data from the database.
func (l *Neo4jLoader) Wipe(ctx context.Context) error {
	return l.write(ctx, buildWipeQuery(), nil)
}

// ApplyConstraints creates uniqueness constraints on the vertex keys.
func (l *Neo4jLoader) ApplyConstraints(ctx context.Context, keys map[string]string) error {
	for _, query := range buildConstraintQueries(keys) {
		if err := l.write(ctx, query, nil); err != nil {
			return fmt.Errorf("failed to apply constraint '%s': %w", query, err)
		}
	}
	return nil
}

// CreateDatabase creates the loader's database when it does not exist yet.
// Requires an edition that supports multiple databases.
func (l *Neo4jLoader) CreateDatabase(ctx context.Context) error {
	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "system"})
	defer session.Close(ctx)

	result, err := session.Run(ctx, buildCreateDatabaseQuery(l.DBName), nil)
	if err == nil {
		_, err = result.Consume(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", l.DBName, err)
	}
	return nil
}

func (l *Neo4jLoader) write(ctx context.Context, query string, params map[string]any) error {
	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// Helpers extracted for testing
func pairRows(pairs []Pair) []map[string]any {
	rows := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		rows[i] = map[string]any{"source": p.Source, "target": p.Target}
	}
	return rows
}

func buildVertexQuery(label, key string) string {
	return fmt.Sprintf(`
			UNWIND $batch AS row
			MERGE (n:%s {%s: row.%s})
			SET n += row
		`, quote(label), quote(key), quote(key))
}

func buildEdgeQuery(rel Relation) string {
	return fmt.Sprintf(`
			UNWIND $batch AS row
			MATCH (source:%s {%s: row.source})
			MATCH (target:%s {%s: row.target})
			MERGE (source)-[r:%s]->(target)
		`, quote(rel.SourceLabel), quote(rel.SourceKey),
		quote(rel.TargetLabel), quote(rel.TargetKey),
		quote(rel.Type))
}

func buildWipeQuery() string {
	return "MATCH (n) DETACH DELETE n"
}

func buildConstraintQueries(keys map[string]string) []string {
	labels := make([]string, 0, len(keys))
	for label := range keys {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	queries := make([]string, 0, len(labels))
	for _, label := range labels {
		queries = append(queries, fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			quote(label), quote(keys[label])))
	}
	return queries
}

func buildCreateDatabaseQuery(name string) string {
	return fmt.Sprintf("CREATE DATABASE %s IF NOT EXISTS", quote(name))
}

// quote backtick-escapes an identifier. Cypher cannot parameterize labels,
// relationship types, property keys or database names.
func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
