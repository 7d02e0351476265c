package graph

// VisualVertex is a vertex shaped for the browser graph widget.
type VisualVertex struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

// VisualEdge connects two VisualVertex ids.
type VisualEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// VisualGraph holds one projected result. Vertices are unique by ID and keep
// their insertion order; edges are kept as encountered.
type VisualGraph struct {
	Nodes []VisualVertex `json:"nodes"`
	Edges []VisualEdge   `json:"edges"`

	index map[string]int
}

func NewVisualGraph() *VisualGraph {
	return &VisualGraph{
		Nodes: make([]VisualVertex, 0),
		Edges: make([]VisualEdge, 0),
		index: make(map[string]int),
	}
}

// AddVertex inserts v unless a vertex with the same ID is already present.
// It reports whether v was inserted.
func (g *VisualGraph) AddVertex(v VisualVertex) bool {
	g.ensureIndex()
	if _, ok := g.index[v.ID]; ok {
		return false
	}
	g.index[v.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, v)
	return true
}

// AddEdge appends e. Parallel edges are allowed.
func (g *VisualGraph) AddEdge(e VisualEdge) {
	g.Edges = append(g.Edges, e)
}

// HasVertex reports whether a vertex with the given id is present.
func (g *VisualGraph) HasVertex(id string) bool {
	_, ok := g.vertex(id)
	return ok
}

func (g *VisualGraph) vertex(id string) (VisualVertex, bool) {
	g.ensureIndex()
	i, ok := g.index[id]
	if !ok {
		return VisualVertex{}, false
	}
	return g.Nodes[i], true
}

// ensureIndex rebuilds the id index for graphs not built with NewVisualGraph,
// e.g. decoded from JSON.
func (g *VisualGraph) ensureIndex() {
	if g.index != nil {
		return
	}
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, ok := g.index[n.ID]; !ok {
			g.index[n.ID] = i
		}
	}
}
