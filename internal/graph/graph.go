package graph

import (
	"fmt"
	"sync"
)

// NodeKey identifies a node. Any comparable value is accepted; the component
// key of an adapter is the usual choice.
type NodeKey = any

// Node is a component in the dependency graph.
type Node struct {
	Key   NodeKey
	Label string

	// Dependencies are the nodes this node was wired with, in first-seen order.
	Dependencies []NodeKey
	// Dependents are the nodes that depend on this node.
	Dependents []NodeKey
}

// DependencyGraph records which components were wired into which.
// Node and edge order is insertion order so output is deterministic.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
	order []NodeKey
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[NodeKey]*Node),
	}
}

// AddNode adds a node, or updates its label if it already exists.
// An empty label falls back to the formatted key.
func (g *DependencyGraph) AddNode(key NodeKey, label string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.ensure(key)
	if label != "" {
		n.Label = label
	}
}

// AddEdge records that from depends on to. Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to NodeKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f := g.ensure(from)
	t := g.ensure(to)
	for _, d := range f.Dependencies {
		if d == to {
			return
		}
	}
	f.Dependencies = append(f.Dependencies, to)
	t.Dependents = append(t.Dependents, from)
}

// RemoveNode removes a node and every edge touching it.
func (g *DependencyGraph) RemoveNode(key NodeKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[key]; !ok {
		return
	}
	delete(g.nodes, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	for _, n := range g.nodes {
		n.Dependencies = without(n.Dependencies, key)
		n.Dependents = without(n.Dependents, key)
	}
}

// ensure must be called with the write lock held.
func (g *DependencyGraph) ensure(key NodeKey) *Node {
	n, ok := g.nodes[key]
	if !ok {
		n = &Node{Key: key, Label: fmt.Sprint(key)}
		g.nodes[key] = n
		g.order = append(g.order, key)
	}
	return n
}

func without(keys []NodeKey, key NodeKey) []NodeKey {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Node returns a copy of the node for key.
func (g *DependencyGraph) Node(key NodeKey) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[key]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Dependencies = append([]NodeKey(nil), n.Dependencies...)
	cp.Dependents = append([]NodeKey(nil), n.Dependents...)
	return cp, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *DependencyGraph) Nodes() []Node {
	g.mu.RLock()
	keys := append([]NodeKey(nil), g.order...)
	g.mu.RUnlock()

	out := make([]Node, 0, len(keys))
	for _, k := range keys {
		if n, ok := g.Node(k); ok {
			out = append(out, n)
		}
	}
	return out
}

// TopologicalSort returns node keys with dependencies before dependents.
// Among nodes that are ready at the same time, insertion order is kept.
func (g *DependencyGraph) TopologicalSort() ([]NodeKey, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[NodeKey]int, len(g.nodes))
	for _, k := range g.order {
		remaining[k] = len(g.nodes[k].Dependencies)
	}

	result := make([]NodeKey, 0, len(g.nodes))
	done := make(map[NodeKey]bool, len(g.nodes))
	for len(result) < len(g.order) {
		progressed := false
		for _, k := range g.order {
			if done[k] || remaining[k] > 0 {
				continue
			}
			done[k] = true
			result = append(result, k)
			progressed = true
			for _, dep := range g.nodes[k].Dependents {
				remaining[dep]--
			}
		}
		if !progressed {
			path := g.findCycle()
			return nil, CircularDependencyError{Keys: path, Path: g.labels(path)}
		}
	}

	return result, nil
}

// DetectCycles returns a CircularDependencyError for the first cycle found.
func (g *DependencyGraph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if path := g.findCycle(); len(path) > 0 {
		return CircularDependencyError{Keys: path, Path: g.labels(path)}
	}
	return nil
}

// findCycle walks the graph depth first and returns the nodes of the first
// cycle, starting at the node the cycle re-enters. Read lock must be held.
func (g *DependencyGraph) findCycle() []NodeKey {
	const (
		white = iota
		grey
		black
	)
	color := make(map[NodeKey]int, len(g.nodes))
	var stack []NodeKey

	var visit func(k NodeKey) []NodeKey
	visit = func(k NodeKey) []NodeKey {
		color[k] = grey
		stack = append(stack, k)
		for _, d := range g.nodes[k].Dependencies {
			switch color[d] {
			case grey:
				for i, s := range stack {
					if s == d {
						return append([]NodeKey(nil), stack[i:]...)
					}
				}
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[k] = black
		return nil
	}

	for _, k := range g.order {
		if color[k] == white {
			if c := visit(k); c != nil {
				return c
			}
		}
	}
	return nil
}

func (g *DependencyGraph) labels(keys []NodeKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k].Label
	}
	return out
}
