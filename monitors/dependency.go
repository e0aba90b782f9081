package monitors

import (
	"bytes"
	"context"
	"reflect"
	"time"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/graph"
)

// DependencyMonitor records which component was instantiated for which as
// the container wires the graph. Components are identified by key.
type DependencyMonitor struct {
	ioc.NullMonitor

	graph *graph.DependencyGraph
}

var _ ioc.ComponentMonitor = (*DependencyMonitor)(nil)

func NewDependency() *DependencyMonitor {
	return &DependencyMonitor{graph: graph.NewDependencyGraph()}
}

func (m *DependencyMonitor) Instantiated(ctx context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type, _ any, _ []any, _ time.Duration) {
	m.graph.AddNode(a.Key(), ioc.FormatKey(a.Key()))
	if d := ioc.Dependent(ctx); d != nil {
		m.graph.AddNode(d.Key(), ioc.FormatKey(d.Key()))
		m.graph.AddEdge(d.Key(), a.Key())
	}
}

// Dependencies returns the keys a component was wired with, in first-seen
// order.
func (m *DependencyMonitor) Dependencies(key any) []any {
	n, ok := m.graph.Node(key)
	if !ok {
		return nil
	}
	return n.Dependencies
}

// Order returns the recorded keys with dependencies before their dependents.
func (m *DependencyMonitor) Order() ([]any, error) {
	return m.graph.TopologicalSort()
}

// DOT renders the recorded graph in Graphviz DOT format.
func (m *DependencyMonitor) DOT() string {
	var b bytes.Buffer
	_ = graph.NewVisualizer(m.graph).WriteDOT(&b)
	return b.String()
}

// Text renders one line per component listing what it was wired with.
func (m *DependencyMonitor) Text() string {
	var b bytes.Buffer
	_ = graph.NewVisualizer(m.graph).WriteText(&b)
	return b.String()
}
