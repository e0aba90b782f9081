package ioc

import (
	"context"
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
)

// Parameter fills one slot of an injection point.
type Parameter interface {
	// Resolve looks for a value for slot without producing it. A Resolver
	// reporting IsResolved false means this parameter cannot fill the slot;
	// an error means the lookup itself failed, for example on ambiguity.
	Resolve(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) (Resolver, error)

	// Verify checks that the slot could be filled, including the dependencies
	// of whatever would fill it.
	Verify(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) error

	Accept(v Visitor) error
}

// Resolver is the outcome of Parameter.Resolve.
type Resolver interface {
	IsResolved() bool

	// ResolveInstance produces the value. It must only be called on a
	// resolved Resolver.
	ResolveInstance(ctx context.Context) (any, error)

	// ResolvedAdapter returns the single adapter providing the value, or nil.
	ResolvedAdapter() ComponentAdapter
}

// unresolved is the shared not-resolved outcome.
type unresolved struct{}

func (unresolved) IsResolved() bool { return false }

func (unresolved) ResolveInstance(context.Context) (any, error) {
	return nil, fmt.Errorf("resolve instance: %w", ErrUnsatisfiable)
}

func (unresolved) ResolvedAdapter() ComponentAdapter { return nil }

type valueResolver struct {
	value reflect.Value
}

func (r valueResolver) IsResolved() bool { return true }

func (r valueResolver) ResolveInstance(context.Context) (any, error) { return r.value.Interface(), nil }

func (r valueResolver) ResolvedAdapter() ComponentAdapter { return nil }

// adapterResolver produces the instance of one adapter through the container
// that owns it.
type adapterResolver struct {
	container Container
	adapter   ComponentAdapter
}

func (r adapterResolver) IsResolved() bool { return true }

func (r adapterResolver) ResolveInstance(ctx context.Context) (any, error) {
	return r.container.ComponentInstance(ctx, r.adapter)
}

func (r adapterResolver) ResolvedAdapter() ComponentAdapter { return r.adapter }

func unsatisfied(c Container, forAdapter ComponentAdapter, slot Slot) error {
	err := UnsatisfiableDependenciesError{Unsatisfied: []Slot{slot}, Container: containerName(c)}
	if forAdapter != nil {
		err.Key = forAdapter.Key()
		err.Implementation = forAdapter.Implementation()
	}
	return err
}

// ----------------------------------------------------------------------------
// Constant

type constantParameter struct {
	value any
}

// Constant fills a slot with a fixed value. Values convert between numeric
// kinds and between string kinds, and nil fills any nillable slot.
//
//	c.AddComponent("pool", NewPool, ioc.Constant("postgres://db"), ioc.Constant(16))
func Constant(value any) Parameter {
	return constantParameter{value: value}
}

func (p constantParameter) Resolve(_ context.Context, _ Container, _ ComponentAdapter, slot Slot) (Resolver, error) {
	v, ok := reflection.Convert(p.value, slot.Type)
	if !ok {
		return unresolved{}, nil
	}
	return valueResolver{value: v}, nil
}

func (p constantParameter) Verify(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) error {
	r, _ := p.Resolve(ctx, c, forAdapter, slot)
	if !r.IsResolved() {
		return unsatisfied(c, forAdapter, slot)
	}
	return nil
}

func (p constantParameter) Accept(v Visitor) error { return v.VisitParameter(p) }

func (p constantParameter) String() string { return fmt.Sprintf("Constant(%v)", p.value) }

// ----------------------------------------------------------------------------
// Null

type nullParameter struct{}

// Null fills nillable slots with nil. It never fills booleans, numbers,
// strings or structs.
var Null Parameter = nullParameter{}

func (nullParameter) Resolve(_ context.Context, _ Container, _ ComponentAdapter, slot Slot) (Resolver, error) {
	if !reflection.IsNillable(slot.Type) {
		return unresolved{}, nil
	}
	return valueResolver{value: reflect.Zero(slot.Type)}, nil
}

func (p nullParameter) Verify(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) error {
	if !reflection.IsNillable(slot.Type) {
		return unsatisfied(c, forAdapter, slot)
	}
	return nil
}

func (p nullParameter) Accept(v Visitor) error { return v.VisitParameter(p) }

func (nullParameter) String() string { return "Null" }

// ----------------------------------------------------------------------------
// ForceDefault

type forceDefaultParameter struct{}

// ForceDefault selects the zero-argument injection point. Registration with
// ForceDefault fails at resolution time when the implementation has none.
var ForceDefault Parameter = forceDefaultParameter{}

func (forceDefaultParameter) Resolve(context.Context, Container, ComponentAdapter, Slot) (Resolver, error) {
	return unresolved{}, nil
}

func (forceDefaultParameter) Verify(context.Context, Container, ComponentAdapter, Slot) error {
	return nil
}

func (p forceDefaultParameter) Accept(v Visitor) error { return v.VisitParameter(p) }

func (forceDefaultParameter) String() string { return "ForceDefault" }

func isForceDefault(params []Parameter) bool {
	return len(params) == 1 && params[0] == ForceDefault
}

// ----------------------------------------------------------------------------
// Component lookup

type componentParameter struct {
	key     any
	typ     reflect.Type
	byType  bool
	collect bool
}

// DefaultParameter looks the slot type up in the container. Slice and map
// slots fall back to collecting every matching component when no single
// component has the slot's type.
var DefaultParameter Parameter = &componentParameter{collect: true}

// Component fills a slot with the component registered under key.
func Component(key any) Parameter {
	return &componentParameter{key: key}
}

// ComponentOfType fills a slot with the unique component of type t, which may
// be narrower than the slot type.
func ComponentOfType(t reflect.Type) Parameter {
	return &componentParameter{typ: t, byType: true}
}

func (p *componentParameter) Resolve(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) (Resolver, error) {
	adapter, err := p.lookup(ctx, c, forAdapter, slot)
	if err != nil {
		return nil, err
	}
	if adapter != nil {
		return adapterResolver{container: c, adapter: adapter}, nil
	}
	if p.collect && reflection.IsCollection(slot.Type) {
		return collectionFallback.Resolve(ctx, c, forAdapter, slot)
	}
	return unresolved{}, nil
}

func (p *componentParameter) lookup(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) (ComponentAdapter, error) {
	if p.key != nil {
		a := c.GetComponentAdapter(p.key)
		if a == nil || sameComponent(a, forAdapter) || !compatible(a, slot.Type) {
			return nil, nil
		}
		return a, nil
	}

	t := slot.Type
	if p.byType {
		t = p.typ
	}
	a, err := c.GetComponentAdapterOfType(ctx, t, slot.Name)
	if err != nil || a == nil {
		return nil, err
	}
	if sameComponent(a, forAdapter) || !compatible(a, slot.Type) {
		return nil, nil
	}
	return a, nil
}

func (p *componentParameter) Verify(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) error {
	r, err := p.Resolve(ctx, c, forAdapter, slot)
	if err != nil {
		return err
	}
	if !r.IsResolved() {
		return unsatisfied(c, forAdapter, slot)
	}
	return verifyResolved(ctx, c, r)
}

func (p *componentParameter) Accept(v Visitor) error { return v.VisitParameter(p) }

func (p *componentParameter) String() string {
	switch {
	case p.key != nil:
		return "Component(" + formatKey(p.key) + ")"
	case p.byType:
		return "ComponentOfType(" + reflection.FormatType(p.typ) + ")"
	}
	return "Default"
}

// verifyResolved verifies every adapter behind r in the container owning it.
func verifyResolved(ctx context.Context, c Container, r Resolver) error {
	for _, a := range resolvedAdapters(r) {
		if err := a.Verify(ctx, ownerOf(c, a)); err != nil {
			return err
		}
	}
	return nil
}

func resolvedAdapters(r Resolver) []ComponentAdapter {
	if m, ok := r.(interface{ ResolvedAdapters() []ComponentAdapter }); ok {
		return m.ResolvedAdapters()
	}
	if a := r.ResolvedAdapter(); a != nil {
		return []ComponentAdapter{a}
	}
	return nil
}

// compatible reports whether a's values can fill a slot of type t.
func compatible(a ComponentAdapter, t reflect.Type) bool {
	impl := a.Implementation()
	return impl != nil && impl.AssignableTo(t)
}
