package ioc

import (
	"context"
	"sync"
)

// Cached keeps the first instance its delegate produces and hands it out for
// the life of the container. Start, stop and dispose apply to that instance.
//
// Two goroutines racing on the first Instance may both construct a value;
// the first one stored wins. Register with Lock or Synchronize to rule that out.
type Cached struct {
	behavior

	mu       sync.Mutex
	instance any
	has      bool
	started  bool
	disposed bool
}

var (
	_ ComponentAdapter   = (*Cached)(nil)
	_ ComponentLifecycle = (*Cached)(nil)
)

func newCached(delegate ComponentAdapter) *Cached {
	return &Cached{behavior: behavior{delegate: delegate}}
}

// NewCached wraps delegate with caching.
func NewCached(delegate ComponentAdapter) *Cached {
	return newCached(delegate)
}

func (b *Cached) Instance(ctx context.Context, c Container) (any, error) {
	b.mu.Lock()
	if b.has {
		v := b.instance
		b.mu.Unlock()
		return v, nil
	}
	b.mu.Unlock()

	v, err := b.delegate.Instance(ctx, c)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.has {
		return b.instance, nil
	}
	b.instance, b.has = v, true
	return v, nil
}

func (b *Cached) Descriptor() string { return b.describe("Cached") }

func (b *Cached) HasLifecycle() bool {
	inv := invokerOf(b.delegate)
	return inv != nil && inv.componentHasLifecycle()
}

func (b *Cached) IsStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Start instantiates the component if needed and starts it.
func (b *Cached) Start(ctx context.Context, c Container) error {
	if _, err := b.Instance(ctx, c); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed || b.started {
		return b.conflict(c, methodStart)
	}
	if err := b.invoke(ctx, c, methodStart, b.instance); err != nil {
		return err
	}
	b.started = true
	return nil
}

func (b *Cached) Stop(ctx context.Context, c Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has || !b.started {
		return b.conflict(c, methodStop)
	}
	if err := b.invoke(ctx, c, methodStop, b.instance); err != nil {
		return err
	}
	b.started = false
	return nil
}

// Dispose disposes the cached instance. Without an instance there is
// nothing to dispose.
func (b *Cached) Dispose(ctx context.Context, c Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has {
		return nil
	}
	if b.disposed || b.started {
		return b.conflict(c, methodDispose)
	}
	if err := b.invoke(ctx, c, methodDispose, b.instance); err != nil {
		return err
	}
	b.disposed = true
	return nil
}

// Flush drops the cached instance, stopping and disposing it first as its
// state requires. The next Instance builds a new one.
func (b *Cached) Flush(ctx context.Context, c Container) error {
	b.mu.Lock()
	instance, has, started, disposed := b.instance, b.has, b.started, b.disposed
	b.instance, b.has, b.started, b.disposed = nil, false, false, false
	b.mu.Unlock()

	if !has {
		return nil
	}
	var errs []error
	if started {
		if err := b.invoke(ctx, c, methodStop, instance); err != nil {
			errs = append(errs, err)
		}
	}
	if !disposed && b.HasLifecycle() {
		if err := b.invoke(ctx, c, methodDispose, instance); err != nil {
			errs = append(errs, err)
		}
	}
	return collect("flush", errs)
}

func (b *Cached) invoke(ctx context.Context, c Container, method string, instance any) error {
	if inv := invokerOf(b.delegate); inv != nil && inv.componentHasLifecycle() {
		return inv.invoke(ctx, c, method, instance)
	}
	return nil
}

// conflict must be called with b.mu held.
func (b *Cached) conflict(c Container, method string) error {
	return LifecycleStateConflictError{
		Container:  containerName(c),
		Component:  b.Key(),
		From:       stateOf(b.started, b.disposed),
		Transition: method,
	}
}
