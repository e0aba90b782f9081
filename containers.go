package ioc

import (
	"context"
	"reflect"
	"strings"
)

// EmptyContainer holds nothing. It is a convenient root for lookups that
// must fail.
type EmptyContainer struct{}

var _ Container = EmptyContainer{}

func (EmptyContainer) GetComponent(key any) (any, error) {
	return nil, ComponentNotFoundError{Key: key}
}

func (EmptyContainer) GetComponentContext(_ context.Context, key any) (any, error) {
	return nil, ComponentNotFoundError{Key: key}
}

func (EmptyContainer) GetComponents(reflect.Type) ([]any, error) { return nil, nil }

func (EmptyContainer) GetComponentsContext(context.Context, reflect.Type) ([]any, error) {
	return nil, nil
}

func (EmptyContainer) GetComponentAdapter(any) ComponentAdapter { return nil }

func (EmptyContainer) GetComponentAdapterOfType(context.Context, reflect.Type, string) (ComponentAdapter, error) {
	return nil, nil
}

func (EmptyContainer) GetComponentAdapters() []ComponentAdapter { return nil }

func (EmptyContainer) GetComponentAdaptersOfType(reflect.Type) []ComponentAdapter { return nil }

func (EmptyContainer) ComponentInstance(_ context.Context, a ComponentAdapter) (any, error) {
	if a == nil {
		return nil, ComponentNotFoundError{}
	}
	return nil, ComponentNotFoundError{Key: a.Key()}
}

func (EmptyContainer) Parent() Container { return nil }

func (e EmptyContainer) Accept(v Visitor) error { return v.VisitContainer(e) }

func (EmptyContainer) String() string { return "empty" }

func (EmptyContainer) shape() (string, bool) { return "empty", true }

// ImmutableContainer is a read-only view of another container. Lookups go
// to the wrapped container; there is no way to register, remove or drive
// the lifecycle through the view.
type ImmutableContainer struct {
	delegate Container
}

var _ Container = (*ImmutableContainer)(nil)

// Immutable returns a read-only view of c.
func Immutable(c Container) *ImmutableContainer {
	return &ImmutableContainer{delegate: c}
}

func (c *ImmutableContainer) GetComponent(key any) (any, error) {
	return c.delegate.GetComponent(key)
}

func (c *ImmutableContainer) GetComponentContext(ctx context.Context, key any) (any, error) {
	return c.delegate.GetComponentContext(ctx, key)
}

func (c *ImmutableContainer) GetComponents(t reflect.Type) ([]any, error) {
	return c.delegate.GetComponents(t)
}

func (c *ImmutableContainer) GetComponentsContext(ctx context.Context, t reflect.Type) ([]any, error) {
	return c.delegate.GetComponentsContext(ctx, t)
}

func (c *ImmutableContainer) GetComponentAdapter(key any) ComponentAdapter {
	return c.delegate.GetComponentAdapter(key)
}

func (c *ImmutableContainer) GetComponentAdapterOfType(ctx context.Context, t reflect.Type, name string) (ComponentAdapter, error) {
	return c.delegate.GetComponentAdapterOfType(ctx, t, name)
}

func (c *ImmutableContainer) GetComponentAdapters() []ComponentAdapter {
	return c.delegate.GetComponentAdapters()
}

func (c *ImmutableContainer) GetComponentAdaptersOfType(t reflect.Type) []ComponentAdapter {
	return c.delegate.GetComponentAdaptersOfType(t)
}

func (c *ImmutableContainer) ComponentInstance(ctx context.Context, a ComponentAdapter) (any, error) {
	return c.delegate.ComponentInstance(ctx, a)
}

func (c *ImmutableContainer) Parent() Container { return c.delegate.Parent() }

func (c *ImmutableContainer) Accept(v Visitor) error { return c.delegate.Accept(v) }

func (c *ImmutableContainer) shape() (string, bool) {
	if s, ok := c.delegate.(shaper); ok {
		return s.shape()
	}
	return "", false
}

func (c *ImmutableContainer) String() string { return "immutable(" + containerName(c.delegate) + ")" }

// CompositeContainer reads through several containers in order. The first
// container that knows a key or type answers. It has no parent of its own.
type CompositeContainer struct {
	containers []Container
}

var _ Container = (*CompositeContainer)(nil)

// Composite returns a container reading through cs in order.
func Composite(cs ...Container) *CompositeContainer {
	return &CompositeContainer{containers: cs}
}

func (c *CompositeContainer) GetComponent(key any) (any, error) {
	return c.GetComponentContext(context.Background(), key)
}

func (c *CompositeContainer) GetComponentContext(ctx context.Context, key any) (any, error) {
	var a ComponentAdapter
	if t, ok := key.(reflect.Type); ok {
		var err error
		if a, err = c.GetComponentAdapterOfType(ctx, t, ""); err != nil {
			return nil, err
		}
	} else {
		a = c.GetComponentAdapter(key)
	}
	if a == nil {
		return nil, ComponentNotFoundError{Key: key, Container: c.String()}
	}
	return c.ComponentInstance(ctx, a)
}

func (c *CompositeContainer) GetComponents(t reflect.Type) ([]any, error) {
	return c.GetComponentsContext(context.Background(), t)
}

func (c *CompositeContainer) GetComponentsContext(ctx context.Context, t reflect.Type) ([]any, error) {
	var out []any
	for _, x := range c.containers {
		vs, err := x.GetComponentsContext(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

func (c *CompositeContainer) GetComponentAdapter(key any) ComponentAdapter {
	for _, x := range c.containers {
		if a := x.GetComponentAdapter(key); a != nil {
			return a
		}
	}
	return nil
}

func (c *CompositeContainer) GetComponentAdapterOfType(ctx context.Context, t reflect.Type, name string) (ComponentAdapter, error) {
	for _, x := range c.containers {
		a, err := x.GetComponentAdapterOfType(ctx, t, name)
		if err != nil || a != nil {
			return a, err
		}
	}
	return nil, nil
}

func (c *CompositeContainer) GetComponentAdapters() []ComponentAdapter {
	var out []ComponentAdapter
	for _, x := range c.containers {
		out = append(out, x.GetComponentAdapters()...)
	}
	return out
}

func (c *CompositeContainer) GetComponentAdaptersOfType(t reflect.Type) []ComponentAdapter {
	var out []ComponentAdapter
	for _, x := range c.containers {
		out = append(out, x.GetComponentAdaptersOfType(t)...)
	}
	return out
}

// ComponentInstance hands a to the first member whose chain holds it.
func (c *CompositeContainer) ComponentInstance(ctx context.Context, a ComponentAdapter) (any, error) {
	for _, x := range c.containers {
		for y := x; y != nil; y = y.Parent() {
			for _, local := range y.GetComponentAdapters() {
				if local == a {
					return x.ComponentInstance(ctx, a)
				}
			}
		}
	}
	return nil, ComponentNotFoundError{Key: a.Key(), Container: c.String()}
}

func (c *CompositeContainer) Parent() Container { return nil }

func (c *CompositeContainer) Accept(v Visitor) error {
	for _, x := range c.containers {
		if err := x.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *CompositeContainer) String() string {
	names := make([]string, len(c.containers))
	for i, x := range c.containers {
		names[i] = containerName(x)
	}
	return "composite[" + strings.Join(names, ", ") + "]"
}

func (c *CompositeContainer) shape() (string, bool) {
	var b strings.Builder
	for i, x := range c.containers {
		s, ok := shapeOf(x)
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte('+')
		}
		b.WriteString(s)
	}
	return "(" + b.String() + ")", true
}
