package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/projection"
	"graphbrowser/internal/query"
)

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/graphs", s.handleListGraphs)
	mux.HandleFunc("GET /api/v1/graphs/{graph}", s.handleLoadGraph)
	mux.HandleFunc("POST /api/v1/graphs/{graph}", s.handleQuery)
	mux.HandleFunc("GET /api/v1/graphs/{graph}/clusters", s.handleListClusters)
	mux.HandleFunc("GET /api/v1/graphs/{graph}/clusters/{cluster}", s.handleLoadCluster)
	mux.HandleFunc("GET /api/v1/graphs/{graph}/labels/{label}/edges", s.handleEdgeTypes)
	mux.HandleFunc("GET /api/v1/server", s.handleServerInfo)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	names, err := s.catalog.ListGraphs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeHTTPResponse(w, http.StatusOK, names)
}

func (s *Server) handleLoadGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.projector.LoadGraph(r.Context(), r.PathValue("graph"))
	s.writeGraph(w, r, http.StatusOK, g, err)
}

// handleQuery runs the text/plain body as a query. The edge pass can be
// turned off with ?populateEdges=false.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	populateEdges := true
	if v := r.URL.Query().Get("populateEdges"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "invalid populateEdges: "+v)
			return
		}
		populateEdges = b
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeHTTPError(w, http.StatusRequestEntityTooLarge, "query too large")
			return
		}
		s.writeHTTPError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	g, err := s.projector.Project(r.Context(), r.PathValue("graph"), string(body), populateEdges)
	s.writeGraph(w, r, http.StatusAccepted, g, err)
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.catalog.ListClusters(r.Context(), r.PathValue("graph"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if clusters == nil {
		clusters = map[string]string{}
	}
	s.writeHTTPResponse(w, http.StatusOK, clusters)
}

func (s *Server) handleLoadCluster(w http.ResponseWriter, r *http.Request) {
	g, err := s.projector.LoadCluster(r.Context(), r.PathValue("graph"), r.PathValue("cluster"))
	s.writeGraph(w, r, http.StatusOK, g, err)
}

func (s *Server) handleEdgeTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.EdgeTypes(r.Context(), r.PathValue("graph"), r.PathValue("label"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	s.writeHTTPResponse(w, http.StatusOK, types)
}

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.catalog.ServerInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, info)
}

func (s *Server) writeGraph(w http.ResponseWriter, r *http.Request, status int, g *graph.VisualGraph, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, status, g)
}

// writeError maps argument errors to 400; everything else is a 500 whose
// cause is logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, projection.ErrInvalidArgument) || errors.Is(err, query.ErrEmptyLabel) {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	s.writeHTTPError(w, http.StatusInternalServerError, "graph query failed")
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
