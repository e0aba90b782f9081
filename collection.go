package ioc

import (
	"context"
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
)

// CollectionOption configures a Collection parameter.
type CollectionOption func(*collectionParameter)

// CollectionOf sets the element type to collect. It defaults to the slot's
// element type.
func CollectionOf(t reflect.Type) CollectionOption {
	return func(p *collectionParameter) { p.elem = t }
}

// Matching keeps only the adapters for which fn returns true.
func Matching(fn func(ComponentAdapter) bool) CollectionOption {
	return func(p *collectionParameter) { p.filter = fn }
}

// AllowEmpty lets the collection resolve when nothing matches.
func AllowEmpty() CollectionOption {
	return func(p *collectionParameter) { p.allowEmpty = true }
}

type collectionParameter struct {
	elem       reflect.Type
	filter     func(ComponentAdapter) bool
	allowEmpty bool
}

// Collection fills a slice or map slot with every matching component. The
// components of the farthest ancestor come first; a nearer container
// replaces an ancestor's component registered under the same key. Map slots
// are keyed by component key, and components whose key does not fit the map
// key type are left out.
//
//	c.AddComponent("router", NewRouter, ioc.Collection(ioc.CollectionOf(ioc.TypeKey[Handler]())))
func Collection(opts ...CollectionOption) Parameter {
	p := &collectionParameter{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var collectionFallback = &collectionParameter{allowEmpty: true}

func (p *collectionParameter) Resolve(_ context.Context, c Container, forAdapter ComponentAdapter, slot Slot) (Resolver, error) {
	if !reflection.IsCollection(slot.Type) {
		return unresolved{}, nil
	}

	elem := p.elem
	if elem == nil {
		elem = slot.Type.Elem()
	}
	if !elem.AssignableTo(slot.Type.Elem()) {
		return unresolved{}, nil
	}

	var keyType reflect.Type
	if slot.Type.Kind() == reflect.Map {
		keyType = slot.Type.Key()
	}

	found := p.gather(c, forAdapter, elem, keyType)
	if len(found) == 0 && !p.allowEmpty {
		return unresolved{}, nil
	}
	return &collectionResolver{container: c, slot: slot, adapters: found}, nil
}

// gather walks from the farthest ancestor down to c.
func (p *collectionParameter) gather(c Container, forAdapter ComponentAdapter, elem, keyType reflect.Type) []ComponentAdapter {
	var chain []Container
	for x := c; x != nil; x = x.Parent() {
		chain = append(chain, x)
	}

	var found []ComponentAdapter
	index := make(map[any]int)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, a := range chain[i].GetComponentAdaptersOfType(elem) {
			if sameComponent(a, forAdapter) {
				continue
			}
			if keyType != nil && !reflect.TypeOf(a.Key()).AssignableTo(keyType) {
				continue
			}
			if p.filter != nil && !p.filter(a) {
				continue
			}
			if at, ok := index[a.Key()]; ok {
				found[at] = a
				continue
			}
			index[a.Key()] = len(found)
			found = append(found, a)
		}
	}
	return found
}

func (p *collectionParameter) Verify(ctx context.Context, c Container, forAdapter ComponentAdapter, slot Slot) error {
	r, err := p.Resolve(ctx, c, forAdapter, slot)
	if err != nil {
		return err
	}
	if !r.IsResolved() {
		return unsatisfied(c, forAdapter, slot)
	}
	return verifyResolved(ctx, c, r)
}

func (p *collectionParameter) Accept(v Visitor) error { return v.VisitParameter(p) }

func (p *collectionParameter) String() string {
	if p.elem != nil {
		return "Collection(" + reflection.FormatType(p.elem) + ")"
	}
	return "Collection"
}

type collectionResolver struct {
	container Container
	slot      Slot
	adapters  []ComponentAdapter
}

func (r *collectionResolver) IsResolved() bool { return true }

func (r *collectionResolver) ResolvedAdapter() ComponentAdapter { return nil }

func (r *collectionResolver) ResolvedAdapters() []ComponentAdapter { return r.adapters }

func (r *collectionResolver) ResolveInstance(ctx context.Context) (any, error) {
	t := r.slot.Type
	elem := t.Elem()

	if t.Kind() == reflect.Map {
		out := reflect.MakeMapWithSize(t, len(r.adapters))
		for _, a := range r.adapters {
			v, err := r.instance(ctx, a, elem)
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(reflect.ValueOf(a.Key()).Convert(t.Key()), v)
		}
		return out.Interface(), nil
	}

	out := reflect.MakeSlice(t, 0, len(r.adapters))
	for _, a := range r.adapters {
		v, err := r.instance(ctx, a, elem)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, v)
	}
	return out.Interface(), nil
}

func (r *collectionResolver) instance(ctx context.Context, a ComponentAdapter, elem reflect.Type) (reflect.Value, error) {
	v, err := r.container.ComponentInstance(ctx, a)
	if err != nil {
		return reflect.Value{}, err
	}
	rv, ok := reflection.Convert(v, elem)
	if !ok {
		return reflect.Value{}, fmt.Errorf("component %s produced %T, not assignable to %s",
			formatKey(a.Key()), v, reflection.FormatType(elem))
	}
	return rv, nil
}
