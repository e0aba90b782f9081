package ioc

import (
	"context"
)

type resolvingKey struct{}

// resolving is one frame of the resolution path. Frames form an immutable
// linked list so concurrent resolutions never share mutable state.
type resolving struct {
	adapter ComponentAdapter
	prev    *resolving
}

// enter pushes adapter onto the resolution path carried by ctx. It fails with
// a CyclicDependencyError when the adapter is already being resolved.
func enter(ctx context.Context, adapter ComponentAdapter) (context.Context, error) {
	top, _ := ctx.Value(resolvingKey{}).(*resolving)
	target := innermost(adapter)

	for f := top; f != nil; f = f.prev {
		if innermost(f.adapter) != target {
			continue
		}
		// Collect the frames from the repeated adapter up to the top.
		var keys []any
		for g := top; g != f; g = g.prev {
			keys = append(keys, g.adapter.Key())
		}
		keys = append(keys, f.adapter.Key())
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
		return ctx, CyclicDependencyError{Keys: keys}
	}

	return context.WithValue(ctx, resolvingKey{}, &resolving{adapter: adapter, prev: top}), nil
}

// within makes sure adapter is the current frame of ctx without cycle checks.
func within(ctx context.Context, adapter ComponentAdapter) context.Context {
	top, _ := ctx.Value(resolvingKey{}).(*resolving)
	if top != nil && sameComponent(top.adapter, adapter) {
		return ctx
	}
	return context.WithValue(ctx, resolvingKey{}, &resolving{adapter: adapter, prev: top})
}

// ResolutionPath returns the keys of the components being resolved on ctx,
// outermost first. The last key is the component currently being built.
func ResolutionPath(ctx context.Context) []any {
	var keys []any
	for f, _ := ctx.Value(resolvingKey{}).(*resolving); f != nil; f = f.prev {
		keys = append(keys, f.adapter.Key())
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

// Dependent returns the adapter that requested the component currently
// being built, or nil at the top of the path.
func Dependent(ctx context.Context) ComponentAdapter {
	if f, _ := ctx.Value(resolvingKey{}).(*resolving); f != nil && f.prev != nil {
		return f.prev.adapter
	}
	return nil
}

// Current returns the adapter currently being built on ctx, or nil.
func Current(ctx context.Context) ComponentAdapter {
	if f, _ := ctx.Value(resolvingKey{}).(*resolving); f != nil {
		return f.adapter
	}
	return nil
}
