package ioc

import (
	"context"
	"reflect"
)

func (c *DefaultContainer) GetComponent(key any) (any, error) {
	return c.GetComponentContext(context.Background(), key)
}

func (c *DefaultContainer) GetComponentContext(ctx context.Context, key any) (any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, RegistrationError{Operation: "get-component", Cause: ErrKeyNil}
	}
	if !validKey(key) {
		return nil, RegistrationError{Key: key, Operation: "get-component", Cause: ErrKeyNotComparable}
	}

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
		c.monitor.NoComponentFound(ctx, c, key)
		return nil, ComponentNotFoundError{Key: key, Container: c.String()}
	}
	return c.ComponentInstance(ctx, a)
}

func (c *DefaultContainer) GetComponents(t reflect.Type) ([]any, error) {
	return c.GetComponentsContext(context.Background(), t)
}

func (c *DefaultContainer) GetComponentsContext(ctx context.Context, t reflect.Type) ([]any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	adapters := c.GetComponentAdaptersOfType(t)
	out := make([]any, 0, len(adapters))
	for _, a := range adapters {
		v, err := c.ComponentInstance(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *DefaultContainer) GetComponentAdapter(key any) ComponentAdapter {
	if !validKey(key) {
		return nil
	}
	c.mu.RLock()
	a := c.components[key]
	c.mu.RUnlock()
	if a != nil {
		return a
	}
	if c.parent != nil {
		return c.parent.GetComponentAdapter(key)
	}
	return nil
}

// GetComponentAdapterOfType looks t up locally before asking the parent:
//
//  1. an adapter registered under t itself wins;
//  2. with a name, an adapter registered under the name, or under
//     Qualified{t, name}, wins when its values fit t;
//  3. otherwise the local adapters assignable to t are collected. One wins,
//     none defers to the parent, and several are ambiguous unless exactly
//     one of their keys answers to the name.
func (c *DefaultContainer) GetComponentAdapterOfType(ctx context.Context, t reflect.Type, name string) (ComponentAdapter, error) {
	if t == nil {
		return nil, nil
	}
	exclude := Current(ctx)

	c.mu.RLock()
	if a, ok := c.components[t]; ok && !sameComponent(a, exclude) {
		c.mu.RUnlock()
		return a, nil
	}
	if name != "" {
		for _, k := range []any{name, Qualified{Type: t, Name: name}} {
			if a, ok := c.components[k]; ok && !sameComponent(a, exclude) && compatible(a, t) {
				c.mu.RUnlock()
				return a, nil
			}
		}
	}
	var found []ComponentAdapter
	for _, a := range c.order {
		if compatible(a, t) && !sameComponent(a, exclude) {
			found = append(found, a)
		}
	}
	c.mu.RUnlock()

	switch len(found) {
	case 0:
		if c.parent != nil {
			return c.parent.GetComponentAdapterOfType(ctx, t, name)
		}
		return nil, nil
	case 1:
		return found[0], nil
	}

	if name != "" {
		var named ComponentAdapter
		matches := 0
		for _, a := range found {
			if n, ok := keyName(a.Key()); ok && n == name {
				named = a
				matches++
			}
		}
		if matches == 1 {
			return named, nil
		}
	}

	keys := make([]any, len(found))
	for i, a := range found {
		keys[i] = a.Key()
	}
	return nil, AmbiguousResolutionError{Type: t, Candidates: keys}
}

func (c *DefaultContainer) GetComponentAdapters() []ComponentAdapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ComponentAdapter, len(c.order))
	copy(out, c.order)
	return out
}

func (c *DefaultContainer) GetComponentAdaptersOfType(t reflect.Type) []ComponentAdapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ComponentAdapter
	for _, a := range c.order {
		if t == nil || compatible(a, t) {
			out = append(out, a)
		}
	}
	return out
}

// owns reports whether a is registered here.
func (c *DefaultContainer) owns(a ComponentAdapter) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.components[a.Key()] == a
}

// ComponentInstance instantiates a on behalf of the container that owns it,
// so that a parent's component never sees a child's registrations. The
// resolution path on ctx is extended with a, which fails on cycles.
func (c *DefaultContainer) ComponentInstance(ctx context.Context, a ComponentAdapter) (any, error) {
	if a == nil {
		return nil, ComponentNotFoundError{Container: c.String()}
	}
	if !c.owns(a) {
		if c.parent != nil {
			return c.parent.ComponentInstance(ctx, a)
		}
		return nil, ComponentNotFoundError{Key: a.Key(), Container: c.String()}
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	ctx, err := enter(ctx, a)
	if err != nil {
		return nil, err
	}

	instance, err := a.Instance(ctx, c)
	if err != nil {
		return nil, err
	}

	if cl, ok := lifecycleOf(a); ok {
		c.ordered.Track(a)
		// A lazy component catches up with a container that is already started.
		// Instances kept for a request scope are started by their Stored.
		if isLazy(a) && c.state.IsStarted() && !inRequestScope(ctx, a) {
			if err := c.startTracked(ctx, a, cl); err != nil {
				return nil, err
			}
		}
	}
	return instance, nil
}

func inRequestScope(ctx context.Context, a ComponentAdapter) bool {
	st, ok := FindAdapter[*Stored](a)
	return ok && st.scoped(ctx)
}

func isLazy(a ComponentAdapter) bool {
	inv := invokerOf(a)
	return inv != nil && inv.lazy()
}

// ownerOf returns the container in c's chain that holds a, or c itself.
func ownerOf(c Container, a ComponentAdapter) Container {
	for x := c; x != nil; x = x.Parent() {
		for _, local := range x.GetComponentAdapters() {
			if local == a {
				return x
			}
		}
	}
	return c
}
