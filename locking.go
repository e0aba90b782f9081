package ioc

import (
	"context"
	"sync"
)

// Locked serializes Instance and lifecycle calls on its delegate. Waiting
// for the lock ends early when the context is done.
type Locked struct {
	delegateLifecycle
	sem chan struct{}
}

var (
	_ ComponentAdapter   = (*Locked)(nil)
	_ ComponentLifecycle = (*Locked)(nil)
)

func newLocked(delegate ComponentAdapter) *Locked {
	return &Locked{
		delegateLifecycle: delegateLifecycle{behavior{delegate: delegate}},
		sem:               make(chan struct{}, 1),
	}
}

func (b *Locked) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Locked) release() { <-b.sem }

func (b *Locked) Instance(ctx context.Context, c Container) (any, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.delegate.Instance(ctx, c)
}

func (b *Locked) Descriptor() string { return "Locked-" + b.delegate.Descriptor() }

func (b *Locked) Start(ctx context.Context, c Container) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return b.start(ctx, c)
}

func (b *Locked) Stop(ctx context.Context, c Container) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return b.stop(ctx, c)
}

func (b *Locked) Dispose(ctx context.Context, c Container) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return b.dispose(ctx, c)
}

// Synchronized serializes Instance and lifecycle calls on its delegate with
// a plain mutex.
type Synchronized struct {
	delegateLifecycle
	mu sync.Mutex
}

var (
	_ ComponentAdapter   = (*Synchronized)(nil)
	_ ComponentLifecycle = (*Synchronized)(nil)
)

func newSynchronized(delegate ComponentAdapter) *Synchronized {
	return &Synchronized{delegateLifecycle: delegateLifecycle{behavior{delegate: delegate}}}
}

func (b *Synchronized) Instance(ctx context.Context, c Container) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delegate.Instance(ctx, c)
}

func (b *Synchronized) Descriptor() string { return "Synchronized-" + b.delegate.Descriptor() }

func (b *Synchronized) Start(ctx context.Context, c Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.start(ctx, c)
}

func (b *Synchronized) Stop(ctx context.Context, c Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stop(ctx, c)
}

func (b *Synchronized) Dispose(ctx context.Context, c Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispose(ctx, c)
}
