package graph

import (
	"strings"
)

// CircularDependencyError represents a dependency cycle. Keys and Path list
// the participating nodes and their labels in resolution order; the last node
// depends on the first.
type CircularDependencyError struct {
	Keys []NodeKey
	Path []string
}

func (e CircularDependencyError) Error() string {
	return "circular dependency detected:\n\n" + RenderCycle(e.Path)
}

// RenderCycle draws a cycle path top to bottom and closes it back to the
// first node.
func RenderCycle(path []string) string {
	var b strings.Builder
	if len(path) == 0 {
		return ""
	}

	for i, node := range path {
		b.WriteString("    " + node + "\n")
		if i < len(path)-1 {
			b.WriteString("      ↓\n")
		}
	}
	b.WriteString("      ↓\n")
	b.WriteString("    " + path[0] + " (cycle)\n")

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Depend on an interface implemented elsewhere to break the cycle\n")
	b.WriteString("  • Resolve one side lazily through the container\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}
