package ioc

import (
	"context"
	"reflect"
)

// BehaviorFactory wraps an adapter during registration. Factories passed to
// WithBehaviors run after caching or pooling is applied and before locking.
type BehaviorFactory func(props Properties, adapter ComponentAdapter) ComponentAdapter

// decorate builds the behavior chain around raw, outermost last:
// Locked or Synchronized, then Cached or Pooled, then Stored.
func decorate(props Properties, raw ComponentAdapter, byDefault bool, extra []BehaviorFactory) ComponentAdapter {
	a := raw
	if props.Store != nil {
		a = newStored(a, props.Store)
	}
	switch {
	case props.Pool != nil:
		a = newPooled(a, *props.Pool)
	case props.caching(byDefault):
		a = newCached(a)
	}
	for _, f := range extra {
		if next := f(props, a); next != nil {
			a = next
		}
	}
	switch {
	case props.Lock:
		a = newLocked(a)
	case props.Synchronize:
		a = newSynchronized(a)
	}
	return a
}

// behavior is embedded by every decorator and forwards the parts of
// ComponentAdapter decorators do not change.
type behavior struct {
	delegate ComponentAdapter
}

func (b *behavior) Key() any { return b.delegate.Key() }

func (b *behavior) Implementation() reflect.Type { return b.delegate.Implementation() }

func (b *behavior) Verify(ctx context.Context, c Container) error { return b.delegate.Verify(ctx, c) }

func (b *behavior) Accept(v Visitor) error { return b.delegate.Accept(v) }

func (b *behavior) Delegate() ComponentAdapter { return b.delegate }

func (b *behavior) describe(name string) string {
	return describeLifecycle(name, invokerOf(b.delegate)) + "-" + b.delegate.Descriptor()
}

// delegateLifecycle forwards lifecycle calls to the delegate when it has any.
type delegateLifecycle struct {
	behavior
}

func (b *delegateLifecycle) lifecycle() (ComponentLifecycle, bool) {
	cl, ok := b.delegate.(ComponentLifecycle)
	return cl, ok
}

func (b *delegateLifecycle) HasLifecycle() bool {
	cl, ok := b.lifecycle()
	return ok && cl.HasLifecycle()
}

func (b *delegateLifecycle) IsStarted() bool {
	cl, ok := b.lifecycle()
	return ok && cl.IsStarted()
}

func (b *delegateLifecycle) start(ctx context.Context, c Container) error {
	if cl, ok := b.lifecycle(); ok {
		return cl.Start(ctx, c)
	}
	return nil
}

func (b *delegateLifecycle) stop(ctx context.Context, c Container) error {
	if cl, ok := b.lifecycle(); ok {
		return cl.Stop(ctx, c)
	}
	return nil
}

func (b *delegateLifecycle) dispose(ctx context.Context, c Container) error {
	if cl, ok := b.lifecycle(); ok {
		return cl.Dispose(ctx, c)
	}
	return nil
}
