package graph_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddEdge("service", "repo")
	g.AddEdge("repo", "db")
	g.AddEdge("service", "logger")

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeKey{"db", "logger", "repo", "service"}, order)
	assert.Equal(t, 4, g.Size())
}

func TestDependencyGraph_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		edges [][2]string
		path  []string
	}{
		{
			name:  "self-cycle",
			edges: [][2]string{{"a", "a"}},
			path:  []string{"a"},
		},
		{
			name:  "two nodes",
			edges: [][2]string{{"a", "b"}, {"b", "a"}},
			path:  []string{"a", "b"},
		},
		{
			name:  "cycle behind a tail",
			edges: [][2]string{{"root", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"}},
			path:  []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.NewDependencyGraph()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}

			err := g.DetectCycles()
			require.Error(t, err)

			var cycle graph.CircularDependencyError
			require.True(t, errors.As(err, &cycle))
			assert.Equal(t, tt.path, cycle.Path)
			assert.Contains(t, err.Error(), "(cycle)")

			_, err = g.TopologicalSort()
			assert.Error(t, err)
		})
	}
}

func TestDependencyGraph_RemoveNode(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	require.Error(t, g.DetectCycles())

	g.RemoveNode("b")
	assert.NoError(t, g.DetectCycles())

	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Empty(t, n.Dependencies)
	assert.Empty(t, n.Dependents)
}

func TestVisualizer(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode("svc", "*Service")
	g.AddEdge("svc", "db")

	var dot bytes.Buffer
	require.NoError(t, graph.NewVisualizer(g).WriteDOT(&dot))
	assert.Contains(t, dot.String(), "digraph dependencies {")
	assert.Contains(t, dot.String(), `n0 [label="*Service", fillcolor="lightblue", style=filled];`)
	assert.Contains(t, dot.String(), `n1 [label="db", fillcolor="lightgreen", style=filled];`)
	assert.Contains(t, dot.String(), "n0 -> n1;")

	var text bytes.Buffer
	require.NoError(t, graph.NewVisualizer(g).WriteText(&text))
	assert.Equal(t, "db <- []\n*Service <- [db]\n", text.String())
}
