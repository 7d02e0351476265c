package storage

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"graphbrowser/internal/graph"
)

// JSONLEmitter writes a projected graph as JSON lines, one object per vertex
// or edge. Vertex lines carry "kind":"vertex", edge lines "kind":"edge".
type JSONLEmitter struct {
	w       io.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLEmitter creates a new JSONLEmitter writing to w.
func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

type vertexLine struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

type edgeLine struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
}

func newVertexLine(v *graph.VisualVertex) vertexLine {
	return vertexLine{Kind: "vertex", ID: v.ID, Label: v.Label, Group: v.Group}
}

func newEdgeLine(e *graph.VisualEdge) edgeLine {
	return edgeLine{Kind: "edge", From: e.From, To: e.To}
}

// EmitVertex writes a vertex line.
func (e *JSONLEmitter) EmitVertex(v *graph.VisualVertex) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(newVertexLine(v))
}

// EmitEdge writes an edge line.
func (e *JSONLEmitter) EmitEdge(edge *graph.VisualEdge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(newEdgeLine(edge))
}

// Close closes the underlying writer if it implements io.Closer.
func (e *JSONLEmitter) Close() error {
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SplitJSONLEmitter implements Emitter for writing vertices and edges to separate files.
type SplitJSONLEmitter struct {
	vertexEncoder *json.Encoder
	edgeEncoder   *json.Encoder
	vertexCloser  io.Closer
	edgeCloser    io.Closer
	mu            sync.Mutex
}

// NewSplitJSONLEmitter creates a new SplitJSONLEmitter.
func NewSplitJSONLEmitter(vertexW, edgeW io.Writer) *SplitJSONLEmitter {
	s := &SplitJSONLEmitter{
		vertexEncoder: json.NewEncoder(vertexW),
		edgeEncoder:   json.NewEncoder(edgeW),
	}
	if c, ok := vertexW.(io.Closer); ok {
		s.vertexCloser = c
	}
	if c, ok := edgeW.(io.Closer); ok {
		s.edgeCloser = c
	}
	return s
}

func (e *SplitJSONLEmitter) EmitVertex(v *graph.VisualVertex) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vertexEncoder.Encode(newVertexLine(v))
}

func (e *SplitJSONLEmitter) EmitEdge(edge *graph.VisualEdge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edgeEncoder.Encode(newEdgeLine(edge))
}

func (e *SplitJSONLEmitter) Close() error {
	var errs []error
	if e.vertexCloser != nil {
		errs = append(errs, e.vertexCloser.Close())
	}
	if e.edgeCloser != nil {
		errs = append(errs, e.edgeCloser.Close())
	}
	return errors.Join(errs...)
}
