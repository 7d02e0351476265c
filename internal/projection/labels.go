package projection

import (
	"strings"

	"graphbrowser/internal/graph"
)

// DisplayLabel returns the label shown for v. It starts from the raw vertex
// label (or the id when the vertex has none) and upgrades it when the vertex
// group carries a friendlier name. It never returns an empty label for a
// vertex that has an id.
func DisplayLabel(v *graph.Vertex) string {
	def := v.Label
	if def == "" {
		def = v.ID
	}
	if derived := derivedLabel(v); derived != "" {
		return derived
	}
	return def
}

func derivedLabel(v *graph.Vertex) string {
	// cluster is matched exactly, the other groups ignore case.
	if v.Label == graph.VertexCluster {
		name, _ := v.Property(graph.PropGoldenDisplayName)
		return name
	}

	switch strings.ToLower(v.Label) {
	case graph.VertexCustomer:
		var b strings.Builder
		if surname, ok := v.Property(graph.PropSurname); ok {
			b.WriteString(surname)
			b.WriteString(" ")
		}
		if firstname, ok := v.Property(graph.PropFirstname); ok {
			b.WriteString(firstname)
		}
		return strings.TrimSpace(b.String())

	case graph.VertexContract:
		var b strings.Builder
		if agreement, ok := v.Property(graph.PropAgreementID); ok {
			b.WriteString(agreement)
		}
		if sysAPL, ok := v.Property(graph.PropSysAPL); ok {
			b.WriteString(" (" + sysAPL + ")")
		}
		return strings.TrimSpace(b.String())

	case graph.VertexVehicule:
		vin, _ := v.Property(graph.PropVinNo)
		return vin
	}
	return ""
}
