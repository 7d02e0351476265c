package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/loader"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vertexCall struct {
	Label string
	Key   string
	Rows  []map[string]any
}

// MockLoader records every batch it receives.
type MockLoader struct {
	mu       sync.Mutex
	Vertices []vertexCall
	Edges    [][]loader.Pair
	Relation loader.Relation
	FailOn   int // fail the n-th vertex call when > 0
	calls    int
}

func (m *MockLoader) BatchLoadVertices(ctx context.Context, label, key string, rows []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.FailOn > 0 && m.calls == m.FailOn {
		return errors.New("write failed")
	}
	m.Vertices = append(m.Vertices, vertexCall{Label: label, Key: key, Rows: rows})
	return nil
}

func (m *MockLoader) BatchLoadEdges(ctx context.Context, rel loader.Relation, pairs []loader.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Relation = rel
	m.Edges = append(m.Edges, pairs)
	return nil
}

const sampleCSV = `cluster_id;cluster_size;confidence_level;golden_display_name;golden_dob;src_customer_id;cd_si_ext;customer_type;firstname;surname;dob
c1;2;HIGH;Jane Doe;1980-05-17;p1;SI1;person;Jane;Doe;1980-05-17
c1;2;HIGH;Jane Doe;1980-05-17;p2;SI2;person;Jane;;
c2;1;LOW;ACME;;p3;SI1;company;;;
`

func TestImporter_Import(t *testing.T) {
	l := &MockLoader{}
	im := NewImporter(l, Options{Separator: ';'}, nil)

	stats, err := im.Import(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 3, Clusters: 2, Customers: 3, Edges: 3, Batches: 1}, stats)

	require.Len(t, l.Vertices, 2)
	clusters, customers := l.Vertices[0], l.Vertices[1]

	assert.Equal(t, graph.VertexCluster, clusters.Label)
	assert.Equal(t, graph.PropClusterID, clusters.Key)
	require.Len(t, clusters.Rows, 2, "cluster rows are merged within a batch")
	assert.Equal(t, "Jane Doe", clusters.Rows[0][graph.PropGoldenDisplayName])
	assert.Equal(t, neo4j.DateOf(time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)), clusters.Rows[0][graph.PropGoldenDOB])
	assert.NotContains(t, clusters.Rows[1], graph.PropGoldenDOB, "empty cells are skipped")

	assert.Equal(t, graph.VertexCustomer, customers.Label)
	require.Len(t, customers.Rows, 3)
	assert.Equal(t, map[string]any{
		graph.PropSrcCustomerID: "p2",
		graph.PropCdSiExt:       "SI2",
		graph.PropCustomerType:  "person",
		graph.PropFirstname:     "Jane",
	}, customers.Rows[1])

	assert.Equal(t, ContainsCustomer, l.Relation)
	require.Len(t, l.Edges, 1)
	assert.Equal(t, []loader.Pair{
		{Source: "c1", Target: "p1"},
		{Source: "c1", Target: "p2"},
		{Source: "c2", Target: "p3"},
	}, l.Edges[0])
}

func TestImporter_Batches(t *testing.T) {
	l := &MockLoader{}
	im := NewImporter(l, Options{Separator: ';', BatchSize: 2}, nil)

	stats, err := im.Import(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 2, stats.Clusters, "clusters are counted once across batches")
	require.Len(t, l.Edges, 2)
	assert.Len(t, l.Edges[0], 2)
	assert.Len(t, l.Edges[1], 1)
	// vertices of a batch are written before its edges
	assert.Len(t, l.Vertices, 4)
}

func TestImporter_DefaultSeparator(t *testing.T) {
	l := &MockLoader{}
	csv := "cluster_id,src_customer_id,surname\nc1,p1,Doe\n"

	stats, err := NewImporter(l, Options{}, nil).Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rows)
	assert.Equal(t, "Doe", l.Vertices[1].Rows[0][graph.PropSurname])
}

func TestImporter_EmptyInput(t *testing.T) {
	l := &MockLoader{}
	stats, err := NewImporter(l, Options{}, nil).Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, l.Vertices)
}

func TestImporter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
	}{
		{
			name:    "missing key column",
			csv:     "cluster_id,surname\nc1,Doe\n",
			wantErr: `missing column "src_customer_id"`,
		},
		{
			name:    "empty cluster id",
			csv:     "cluster_id,src_customer_id\nc1,p1\n,p2\n",
			wantErr: "line 3: empty cluster_id",
		},
		{
			name:    "bad date",
			csv:     "cluster_id,src_customer_id,dob\nc1,p1,17/05/1980\n",
			wantErr: "line 2: invalid dob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImporter(&MockLoader{}, Options{}, nil).Import(context.Background(), strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImporter_LoaderFailureStopsImport(t *testing.T) {
	l := &MockLoader{FailOn: 1}
	im := NewImporter(l, Options{Separator: ';', BatchSize: 1}, nil)

	stats, err := im.Import(context.Background(), strings.NewReader(sampleCSV))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write failed")
	assert.Equal(t, 0, stats.Batches)
	assert.Empty(t, l.Edges)
}

func TestImporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(&MockLoader{}, Options{Separator: ';'}, nil).Import(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}
