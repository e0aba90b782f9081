package ioc

import (
	"context"
	"errors"
	"fmt"

	"github.com/junioryono/ioc/internal/graph"
)

// Visitor walks a container tree. Container.Accept calls VisitContainer for
// itself, then VisitComponentAdapter for each adapter followed by the
// adapter's parameters, then descends into its children.
type Visitor interface {
	VisitContainer(c Container) error
	VisitComponentAdapter(a ComponentAdapter) error
	VisitParameter(p Parameter) error
}

func (c *DefaultContainer) Accept(v Visitor) error {
	if err := v.VisitContainer(c); err != nil {
		return err
	}
	for _, a := range c.GetComponentAdapters() {
		if err := v.VisitComponentAdapter(a); err != nil {
			return err
		}
		if err := a.Accept(v); err != nil {
			return err
		}
	}
	for _, child := range c.Children() {
		if err := child.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

// VisitorFuncs is a Visitor built from optional functions.
type VisitorFuncs struct {
	Container func(Container) error
	Adapter   func(ComponentAdapter) error
	Parameter func(Parameter) error
}

func (f VisitorFuncs) VisitContainer(c Container) error {
	if f.Container == nil {
		return nil
	}
	return f.Container(c)
}

func (f VisitorFuncs) VisitComponentAdapter(a ComponentAdapter) error {
	if f.Adapter == nil {
		return nil
	}
	return f.Adapter(a)
}

func (f VisitorFuncs) VisitParameter(p Parameter) error {
	if f.Parameter == nil {
		return nil
	}
	return f.Parameter(p)
}

// Traverse calls fn for every adapter in the tree rooted at c together with
// the container holding it.
func Traverse(c Container, fn func(Container, ComponentAdapter) error) error {
	var current Container
	return c.Accept(VisitorFuncs{
		Container: func(x Container) error {
			current = x
			return nil
		},
		Adapter: func(a ComponentAdapter) error {
			return fn(current, a)
		},
	})
}

// Verify checks every component of the tree rooted at c without
// instantiating anything. Unsatisfiable and ambiguous dependencies and
// dependency cycles are all reported in one VerificationError.
func Verify(ctx context.Context, c Container) error {
	deps := graph.NewDependencyGraph()
	var errs []error

	err := Traverse(c, func(owner Container, a ComponentAdapter) error {
		raw := innermost(a)
		deps.AddNode(raw, formatKey(a.Key()))

		if err := a.Verify(ctx, owner); err != nil {
			errs = append(errs, err)
			return nil
		}
		in, ok := raw.(*ConstructorInjector)
		if !ok {
			return nil
		}
		ds, err := in.Dependencies(ctx, owner)
		if err != nil {
			return nil
		}
		for _, d := range ds {
			deps.AddNode(innermost(d), formatKey(d.Key()))
			deps.AddEdge(raw, innermost(d))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := deps.DetectCycles(); err != nil && !hasCycle(errs) {
		var cycle graph.CircularDependencyError
		if errors.As(err, &cycle) {
			keys := make([]any, len(cycle.Keys))
			for i, k := range cycle.Keys {
				keys[i] = k.(ComponentAdapter).Key()
			}
			errs = append(errs, CyclicDependencyError{Keys: keys})
		} else {
			errs = append(errs, fmt.Errorf("dependency graph: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return VerificationError{Errors: errs}
}

func hasCycle(errs []error) bool {
	for _, err := range errs {
		if IsCyclic(err) {
			return true
		}
	}
	return false
}
