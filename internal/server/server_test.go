package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/projection"
	"graphbrowser/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectCall struct {
	GraphID       string
	Query         string
	PopulateEdges bool
}

type fakeProjector struct {
	graph *graph.VisualGraph
	err   error
	calls []projectCall
	panic bool
}

func (f *fakeProjector) Project(ctx context.Context, graphID, q string, populateEdges bool) (*graph.VisualGraph, error) {
	if f.panic {
		panic("boom")
	}
	f.calls = append(f.calls, projectCall{graphID, q, populateEdges})
	return f.graph, f.err
}

func (f *fakeProjector) LoadGraph(ctx context.Context, graphID string) (*graph.VisualGraph, error) {
	f.calls = append(f.calls, projectCall{GraphID: graphID})
	return f.graph, f.err
}

func (f *fakeProjector) LoadCluster(ctx context.Context, graphID, clusterID string) (*graph.VisualGraph, error) {
	f.calls = append(f.calls, projectCall{GraphID: graphID, Query: clusterID})
	return f.graph, f.err
}

type fakeCatalog struct {
	graphs    []string
	clusters  map[string]string
	edgeTypes map[string][]string
	info      query.ServerInfo
	err       error
}

func (f *fakeCatalog) ListGraphs(ctx context.Context) ([]string, error) {
	return f.graphs, f.err
}

func (f *fakeCatalog) ListClusters(ctx context.Context, graphID string) (map[string]string, error) {
	return f.clusters, f.err
}

func (f *fakeCatalog) EdgeTypes(ctx context.Context, graphID, label string) ([]string, error) {
	if strings.TrimSpace(label) == "" {
		return nil, query.ErrEmptyLabel
	}
	return f.edgeTypes[label], f.err
}

func (f *fakeCatalog) ServerInfo(ctx context.Context) (query.ServerInfo, error) {
	return f.info, f.err
}

func sampleGraph() *graph.VisualGraph {
	g := graph.NewVisualGraph()
	g.AddVertex(graph.VisualVertex{ID: "1", Label: "Doe", Group: "customer"})
	g.AddVertex(graph.VisualVertex{ID: "2", Label: "ACME", Group: "cluster"})
	g.AddEdge(graph.VisualEdge{From: "2", To: "1"})
	return g
}

func newTestServer(p *fakeProjector, c *fakeCatalog) *Server {
	return NewServer(p, c, ":0", nil)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "text/plain")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthzEndpoint(t *testing.T) {
	s := newTestServer(&fakeProjector{}, &fakeCatalog{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeProjector{graph: sampleGraph()}, &fakeCatalog{})
	do(t, s, http.MethodGet, "/api/v1/graphs/g1", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "graphbrowser_http_requests_total")
}

func TestQuery(t *testing.T) {
	p := &fakeProjector{graph: sampleGraph()}
	s := newTestServer(p, &fakeCatalog{})

	rec := do(t, s, http.MethodPost, "/api/v1/graphs/graphc360", "MATCH (n:customer) RETURN n")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"nodes": [
			{"id": "1", "label": "Doe", "group": "customer"},
			{"id": "2", "label": "ACME", "group": "cluster"}
		],
		"edges": [{"from": "2", "to": "1"}]
	}`, rec.Body.String())

	require.Len(t, p.calls, 1)
	assert.Equal(t, projectCall{"graphc360", "MATCH (n:customer) RETURN n", true}, p.calls[0])
}

func TestQuery_PopulateEdgesFlag(t *testing.T) {
	p := &fakeProjector{graph: graph.NewVisualGraph()}
	s := newTestServer(p, &fakeCatalog{})

	rec := do(t, s, http.MethodPost, "/api/v1/graphs/g1?populateEdges=false", "MATCH (n) RETURN n")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, p.calls[0].PopulateEdges)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/graphs/g1?populateEdges=maybe", "MATCH (n) RETURN n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, p.calls, 1)
}

func TestQuery_TooLarge(t *testing.T) {
	p := &fakeProjector{}
	s := newTestServer(p, &fakeCatalog{})

	rec := do(t, s, http.MethodPost, "/api/v1/graphs/g1", strings.Repeat("x", maxQueryBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, p.calls)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "invalid argument",
			err:     fmt.Errorf("%w: 'query' is required", projection.ErrInvalidArgument),
			status:  http.StatusBadRequest,
			message: "invalid argument: 'query' is required",
		},
		{
			name:    "query failure",
			err:     &projection.QueryExecutionError{GraphID: "g1", Pass: projection.PassPrimary, Err: errors.New("syntax error")},
			status:  http.StatusInternalServerError,
			message: "graph query failed",
		},
		{
			name:    "malformed result",
			err:     graph.ErrMalformedResult,
			status:  http.StatusInternalServerError,
			message: "graph query failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeProjector{err: tt.err}, &fakeCatalog{})
			rec := do(t, s, http.MethodPost, "/api/v1/graphs/g1", "")

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestLoadGraphAndCluster(t *testing.T) {
	p := &fakeProjector{graph: sampleGraph()}
	s := newTestServer(p, &fakeCatalog{})

	rec := do(t, s, http.MethodGet, "/api/v1/graphs/graphc360", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/clusters/c-42", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, p.calls, 2)
	assert.Equal(t, "graphc360", p.calls[0].GraphID)
	assert.Equal(t, projectCall{GraphID: "graphc360", Query: "c-42"}, p.calls[1])
}

func TestListGraphs(t *testing.T) {
	s := newTestServer(&fakeProjector{}, &fakeCatalog{graphs: []string{"graphc360", "neo4j"}})
	rec := do(t, s, http.MethodGet, "/api/v1/graphs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["graphc360", "neo4j"]`, rec.Body.String())

	s = newTestServer(&fakeProjector{}, &fakeCatalog{})
	rec = do(t, s, http.MethodGet, "/api/v1/graphs", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListClusters(t *testing.T) {
	s := newTestServer(&fakeProjector{}, &fakeCatalog{clusters: map[string]string{"ACME": "c-1"}})
	rec := do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/clusters", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ACME": "c-1"}`, rec.Body.String())

	s = newTestServer(&fakeProjector{}, &fakeCatalog{err: errors.New("unavailable")})
	rec = do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/clusters", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEdgeTypes(t *testing.T) {
	c := &fakeCatalog{edgeTypes: map[string][]string{"customer": {"containsCustomer", "owns"}}}
	s := newTestServer(&fakeProjector{}, c)

	rec := do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/labels/customer/edges", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["containsCustomer", "owns"]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/labels/vehicule/edges", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/labels/%20/edges", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "label is required", decodeError(t, rec))

	s = newTestServer(&fakeProjector{}, &fakeCatalog{err: errors.New("unavailable")})
	rec = do(t, s, http.MethodGet, "/api/v1/graphs/graphc360/labels/customer/edges", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServerInfo(t *testing.T) {
	info := query.ServerInfo{Address: "localhost:7687", Agent: "Neo4j/5.26.0", ProtocolVersion: "5.4", DriverVersion: "Go Driver/5.28.4"}
	s := newTestServer(&fakeProjector{}, &fakeCatalog{info: info})

	rec := do(t, s, http.MethodGet, "/api/v1/server", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"address": "localhost:7687",
		"agent": "Neo4j/5.26.0",
		"protocol_version": "5.4",
		"driver_version": "Go Driver/5.28.4"
	}`, rec.Body.String())

	s = newTestServer(&fakeProjector{}, &fakeCatalog{err: errors.New("unavailable")})
	rec = do(t, s, http.MethodGet, "/api/v1/server", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeProjector{}, &fakeCatalog{})
	rec := do(t, s, http.MethodDelete, "/api/v1/graphs/g1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(&fakeProjector{graph: sampleGraph()}, &fakeCatalog{})

	rec := do(t, s, http.MethodGet, "/api/v1/graphs/g1", "")
	assert.Len(t, rec.Header().Get(requestIDHeader), 36, "a uuid is assigned")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/graphs/g1", nil)
	req.Header.Set(requestIDHeader, "caller-id")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", rec.Header().Get(requestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(&fakeProjector{panic: true}, &fakeCatalog{})
	rec := do(t, s, http.MethodPost, "/api/v1/graphs/g1", "MATCH (n) RETURN n")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec))
}
