package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer renders a dependency graph.
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Roots (nothing depends on
// them) are filled light blue and leaves light green.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	nodes := v.graph.Nodes()
	ids := make(map[NodeKey]string, len(nodes))

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for i, n := range nodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.Key] = id
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n", id, n.Label, color(n))
	}
	for _, n := range nodes {
		for _, d := range n.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[n.Key], ids[d])
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes one line per node listing its dependencies, dependencies
// first. A cyclic graph is written in insertion order and the cycle error is
// returned after writing.
func (v *Visualizer) WriteText(w io.Writer) error {
	order, err := v.graph.TopologicalSort()
	if err != nil {
		order = nil
		for _, n := range v.graph.Nodes() {
			order = append(order, n.Key)
		}
	}

	for _, k := range order {
		n, _ := v.graph.Node(k)
		deps := make([]string, 0, len(n.Dependencies))
		for _, d := range n.Dependencies {
			dn, _ := v.graph.Node(d)
			deps = append(deps, dn.Label)
		}
		if _, werr := fmt.Fprintf(w, "%s <- [%s]\n", n.Label, strings.Join(deps, ", ")); werr != nil {
			return werr
		}
	}
	return err
}

func color(n Node) string {
	switch {
	case len(n.Dependents) == 0:
		return "lightblue"
	case len(n.Dependencies) == 0:
		return "lightgreen"
	default:
		return "white"
	}
}
