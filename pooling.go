package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"
)

const (
	// DefaultPoolSize is the pool bound used when PoolConfig.MaxSize is zero.
	DefaultPoolSize = 8

	// UnlimitedPoolSize removes the bound.
	UnlimitedPoolSize = -1
)

// WaitPolicy decides what a caller does when the pool is at its bound.
type WaitPolicy int

const (
	// FailOnWait fails immediately with PoolExhaustedError.
	FailOnWait WaitPolicy = iota

	// BlockOnWait waits for an instance to be returned, up to Timeout when
	// it is positive.
	BlockOnWait

	// RetryAfterGC runs a garbage collection and yields once before a single
	// retry, then fails. The pool keeps a reference to every lent instance,
	// so the collection never frees a slot by itself; the retry only succeeds
	// when another goroutine returned an instance in the meantime.
	RetryAfterGC
)

func (w WaitPolicy) String() string {
	switch w {
	case FailOnWait:
		return "FailOnWait"
	case BlockOnWait:
		return "BlockOnWait"
	case RetryAfterGC:
		return "RetryAfterGC"
	default:
		return fmt.Sprintf("WaitPolicy(%d)", int(w))
	}
}

// PoolConfig configures a Pooled behavior.
type PoolConfig struct {
	// MaxSize bounds the number of instances. Zero means DefaultPoolSize and
	// UnlimitedPoolSize removes the bound.
	MaxSize int

	Wait WaitPolicy

	// Timeout bounds a BlockOnWait wait. Zero waits until an instance is
	// returned or the context is done.
	Timeout time.Duration

	// Resetter prepares a returned instance for reuse. An instance whose
	// reset fails is evicted from the pool.
	Resetter func(instance any) error
}

func (cfg PoolConfig) maxSize() int {
	if cfg.MaxSize == 0 {
		return DefaultPoolSize
	}
	return cfg.MaxSize
}

// Pooled lends instances from a bounded pool. Borrowed instances go back
// with Return. Pooled instances must be comparable values, typically pointers.
type Pooled struct {
	behavior

	cfg PoolConfig

	mu        sync.Mutex
	instances []any
	available []any
	lent      map[any]struct{}
	reserved  int
	returned  chan struct{}
	started   bool
	disposed  bool
}

var (
	_ ComponentAdapter   = (*Pooled)(nil)
	_ ComponentLifecycle = (*Pooled)(nil)
)

func newPooled(delegate ComponentAdapter, cfg PoolConfig) *Pooled {
	return &Pooled{
		behavior: behavior{delegate: delegate},
		cfg:      cfg,
		lent:     make(map[any]struct{}),
		returned: make(chan struct{}),
	}
}

// NewPooled wraps delegate with pooling.
func NewPooled(delegate ComponentAdapter, cfg PoolConfig) (*Pooled, error) {
	if cfg.MaxSize < UnlimitedPoolSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, cfg.MaxSize)
	}
	return newPooled(delegate, cfg), nil
}

func (b *Pooled) Descriptor() string { return b.describe("Pooled") }

// Size returns the number of instances the pool holds, lent or not.
func (b *Pooled) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.instances)
}

// Available returns the number of instances ready to be lent.
func (b *Pooled) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.available)
}

func (b *Pooled) full() bool {
	max := b.cfg.maxSize()
	return max != UnlimitedPoolSize && len(b.instances)+b.reserved >= max
}

// Instance lends an instance, creating one while the pool is below its bound.
func (b *Pooled) Instance(ctx context.Context, c Container) (any, error) {
	begin := time.Now()
	collected := false

	var deadline <-chan time.Time
	if b.cfg.Wait == BlockOnWait && b.cfg.Timeout > 0 {
		timer := time.NewTimer(b.cfg.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		b.mu.Lock()
		if b.disposed {
			b.mu.Unlock()
			return nil, ErrPoolDisposed
		}
		if n := len(b.available); n > 0 {
			v := b.available[n-1]
			b.available = b.available[:n-1]
			b.lent[v] = struct{}{}
			b.mu.Unlock()
			return v, nil
		}
		if !b.full() {
			b.reserved++
			b.mu.Unlock()
			return b.create(ctx, c)
		}
		wait := b.returned
		b.mu.Unlock()

		switch b.cfg.Wait {
		case BlockOnWait:
			select {
			case <-wait:
			case <-ctx.Done():
				return nil, PoolWaitInterruptedError{Key: b.Key(), Cause: ctx.Err()}
			case <-deadline:
				return nil, PoolExhaustedError{Key: b.Key(), MaxSize: b.cfg.maxSize(), Waited: time.Since(begin)}
			}
		case RetryAfterGC:
			if collected {
				return nil, PoolExhaustedError{Key: b.Key(), MaxSize: b.cfg.maxSize()}
			}
			collected = true
			runtime.GC()
			runtime.Gosched()
		default:
			return nil, PoolExhaustedError{Key: b.Key(), MaxSize: b.cfg.maxSize()}
		}
	}
}

// create builds a new instance into a reserved slot and lends it.
func (b *Pooled) create(ctx context.Context, c Container) (any, error) {
	v, err := b.delegate.Instance(ctx, c)

	b.mu.Lock()
	b.reserved--
	if err == nil && (v == nil || !reflect.TypeOf(v).Comparable()) {
		err = InstantiationError{
			Key:            b.Key(),
			Implementation: b.Implementation(),
			Cause:          fmt.Errorf("pooled instance %T is not comparable", v),
		}
	}
	if err != nil {
		b.signal()
		b.mu.Unlock()
		return nil, err
	}
	b.instances = append(b.instances, v)
	b.lent[v] = struct{}{}
	started := b.started
	b.mu.Unlock()

	if started {
		if err := b.invoke(ctx, c, methodStart, v); err != nil {
			b.mu.Lock()
			b.remove(v)
			delete(b.lent, v)
			b.signal()
			b.mu.Unlock()
			if b.HasLifecycle() {
				return nil, errors.Join(err, b.invoke(ctx, c, methodDispose, v))
			}
			return nil, err
		}
	}
	return v, nil
}

// Return gives a lent instance back. The Resetter runs first; an instance
// that fails to reset is stopped and disposed as its state requires and
// leaves the pool.
func (b *Pooled) Return(ctx context.Context, c Container, instance any) error {
	if instance == nil || !reflect.TypeOf(instance).Comparable() {
		return ErrNotPooled
	}

	b.mu.Lock()
	if _, ok := b.lent[instance]; !ok {
		b.mu.Unlock()
		return ErrNotPooled
	}
	delete(b.lent, instance)
	b.mu.Unlock()

	if b.cfg.Resetter != nil {
		if err := b.cfg.Resetter(instance); err != nil {
			return b.evict(ctx, c, instance)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil
	}
	b.available = append(b.available, instance)
	b.signal()
	return nil
}

func (b *Pooled) evict(ctx context.Context, c Container, instance any) error {
	b.mu.Lock()
	b.remove(instance)
	started := b.started
	b.signal()
	b.mu.Unlock()

	var errs []error
	if started {
		if err := b.invoke(ctx, c, methodStop, instance); err != nil {
			errs = append(errs, err)
		}
	}
	if b.HasLifecycle() {
		if err := b.invoke(ctx, c, methodDispose, instance); err != nil {
			errs = append(errs, err)
		}
	}
	return collect("evict", errs)
}

// remove drops instance from the pool. Must be called with b.mu held.
func (b *Pooled) remove(instance any) {
	for i, v := range b.instances {
		if v == instance {
			b.instances = append(b.instances[:i], b.instances[i+1:]...)
			return
		}
	}
}

// signal wakes every waiter. Must be called with b.mu held.
func (b *Pooled) signal() {
	close(b.returned)
	b.returned = make(chan struct{})
}

func (b *Pooled) HasLifecycle() bool {
	inv := invokerOf(b.delegate)
	return inv != nil && inv.componentHasLifecycle()
}

func (b *Pooled) IsStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Start starts every pooled instance, creating one when the pool is empty.
func (b *Pooled) Start(ctx context.Context, c Container) error {
	b.mu.Lock()
	if b.disposed || b.started {
		defer b.mu.Unlock()
		return b.conflict(c, methodStart)
	}
	empty := len(b.instances) == 0 && b.reserved == 0
	if empty {
		b.reserved++
	}
	b.mu.Unlock()

	if empty {
		v, err := b.create(ctx, c)
		if err != nil {
			return err
		}
		if err := b.Return(ctx, c, v); err != nil {
			return err
		}
	}

	b.mu.Lock()
	all := append([]any(nil), b.instances...)
	b.started = true
	b.mu.Unlock()

	for _, v := range all {
		if err := b.invoke(ctx, c, methodStart, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *Pooled) Stop(ctx context.Context, c Container) error {
	b.mu.Lock()
	if !b.started {
		defer b.mu.Unlock()
		return b.conflict(c, methodStop)
	}
	all := append([]any(nil), b.instances...)
	b.started = false
	b.mu.Unlock()

	var errs []error
	for i := len(all) - 1; i >= 0; i-- {
		if err := b.invoke(ctx, c, methodStop, all[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return collect("stop", errs)
}

// Dispose disposes every pooled instance and closes the pool.
func (b *Pooled) Dispose(ctx context.Context, c Container) error {
	b.mu.Lock()
	if b.started || b.disposed {
		defer b.mu.Unlock()
		return b.conflict(c, methodDispose)
	}
	all := b.instances
	b.instances, b.available = nil, nil
	b.lent = make(map[any]struct{})
	b.disposed = true
	b.signal()
	b.mu.Unlock()

	var errs []error
	for i := len(all) - 1; i >= 0; i-- {
		if err := b.invoke(ctx, c, methodDispose, all[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return collect("dispose", errs)
}

func (b *Pooled) invoke(ctx context.Context, c Container, method string, instance any) error {
	if inv := invokerOf(b.delegate); inv != nil && inv.componentHasLifecycle() {
		return inv.invoke(ctx, c, method, instance)
	}
	return nil
}

// conflict must be called with b.mu held.
func (b *Pooled) conflict(c Container, method string) error {
	return LifecycleStateConflictError{
		Container:  containerName(c),
		Component:  b.Key(),
		From:       stateOf(b.started, b.disposed),
		Transition: method,
	}
}
