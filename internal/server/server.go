package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/query"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxQueryBytes bounds the body of a query request.
const maxQueryBytes = 1 << 20

// Projector builds display graphs. It is satisfied by *projection.Engine.
type Projector interface {
	Project(ctx context.Context, graphID, q string, populateEdges bool) (*graph.VisualGraph, error)
	LoadGraph(ctx context.Context, graphID string) (*graph.VisualGraph, error)
	LoadCluster(ctx context.Context, graphID, clusterID string) (*graph.VisualGraph, error)
}

// Server exposes the projection engine and the graph catalog over HTTP.
type Server struct {
	projector Projector
	catalog   query.Catalog
	logger    *slog.Logger

	handler    http.Handler
	httpServer *http.Server
}

func NewServer(projector Projector, catalog query.Catalog, httpAddr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		projector: projector,
		catalog:   catalog,
		logger:    logger,
	}

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	// Recovery -> Logging -> Mux
	var handler http.Handler = mux
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	s.handler = rootMux
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests. It does not close the graph client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
