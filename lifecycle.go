package ioc

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/junioryono/ioc/internal/lifetime"
)

// LifecycleState is the lifecycle state of a container.
type LifecycleState = lifetime.State

const (
	StateConstructed = lifetime.Constructed
	StateStarted     = lifetime.Started
	StateStopped     = lifetime.Stopped
	StateDisposed    = lifetime.Disposed
)

// Startable is implemented by components that start and stop with their container.
type Startable interface {
	Start() error
	Stop() error
}

// Disposable is implemented by components that release resources when their
// container is disposed.
type Disposable interface {
	Dispose() error
}

// LifecycleStrategy decides how start, stop and dispose are invoked on
// component instances.
type LifecycleStrategy interface {
	Start(ctx context.Context, instance any) error
	Stop(ctx context.Context, instance any) error
	Dispose(ctx context.Context, instance any) error

	// HasLifecycle reports whether instances of t have anything to invoke.
	HasLifecycle(t reflect.Type) bool

	// IsLazy reports whether the adapter should only join the lifecycle once
	// it has been instantiated.
	IsLazy(adapter ComponentAdapter) bool
}

var (
	startableType  = reflect.TypeFor[Startable]()
	disposableType = reflect.TypeFor[Disposable]()
	closerType     = reflect.TypeFor[io.Closer]()
	contextType    = reflect.TypeFor[context.Context]()
	errorType      = reflect.TypeFor[error]()
)

// NullLifecycleStrategy never invokes anything.
type NullLifecycleStrategy struct{}

func (NullLifecycleStrategy) Start(context.Context, any) error   { return nil }
func (NullLifecycleStrategy) Stop(context.Context, any) error    { return nil }
func (NullLifecycleStrategy) Dispose(context.Context, any) error { return nil }
func (NullLifecycleStrategy) HasLifecycle(reflect.Type) bool     { return false }
func (NullLifecycleStrategy) IsLazy(ComponentAdapter) bool       { return false }

// StartableLifecycleStrategy drives components implementing Startable and
// Disposable. It is the default strategy.
type StartableLifecycleStrategy struct{}

func (StartableLifecycleStrategy) Start(_ context.Context, instance any) error {
	if s, ok := instance.(Startable); ok {
		return s.Start()
	}
	return nil
}

func (StartableLifecycleStrategy) Stop(_ context.Context, instance any) error {
	if s, ok := instance.(Startable); ok {
		return s.Stop()
	}
	return nil
}

func (StartableLifecycleStrategy) Dispose(_ context.Context, instance any) error {
	if d, ok := instance.(Disposable); ok {
		return d.Dispose()
	}
	return nil
}

func (StartableLifecycleStrategy) HasLifecycle(t reflect.Type) bool {
	return t != nil && (t.Implements(startableType) || t.Implements(disposableType))
}

func (StartableLifecycleStrategy) IsLazy(ComponentAdapter) bool { return false }

// CloserLifecycleStrategy disposes components implementing io.Closer. It has
// no start or stop.
type CloserLifecycleStrategy struct{}

func (CloserLifecycleStrategy) Start(context.Context, any) error { return nil }
func (CloserLifecycleStrategy) Stop(context.Context, any) error  { return nil }

func (CloserLifecycleStrategy) Dispose(_ context.Context, instance any) error {
	if c, ok := instance.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (CloserLifecycleStrategy) HasLifecycle(t reflect.Type) bool {
	return t != nil && t.Implements(closerType)
}

func (CloserLifecycleStrategy) IsLazy(ComponentAdapter) bool { return false }

// ReflectionLifecycleStrategy calls methods found by name. A method may be
// func(), func() error or func(context.Context) error. Empty names disable
// the corresponding phase.
type ReflectionLifecycleStrategy struct {
	StartMethod   string
	StopMethod    string
	DisposeMethod string
}

// NewReflectionLifecycleStrategy returns a strategy using the method names
// Start, Stop and Dispose.
func NewReflectionLifecycleStrategy() ReflectionLifecycleStrategy {
	return ReflectionLifecycleStrategy{
		StartMethod:   "Start",
		StopMethod:    "Stop",
		DisposeMethod: "Dispose",
	}
}

func (s ReflectionLifecycleStrategy) Start(ctx context.Context, instance any) error {
	return callLifecycleMethod(ctx, instance, s.StartMethod)
}

func (s ReflectionLifecycleStrategy) Stop(ctx context.Context, instance any) error {
	return callLifecycleMethod(ctx, instance, s.StopMethod)
}

func (s ReflectionLifecycleStrategy) Dispose(ctx context.Context, instance any) error {
	return callLifecycleMethod(ctx, instance, s.DisposeMethod)
}

func (s ReflectionLifecycleStrategy) HasLifecycle(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for _, name := range []string{s.StartMethod, s.StopMethod, s.DisposeMethod} {
		if name == "" {
			continue
		}
		if m, ok := t.MethodByName(name); ok && lifecycleSignature(m.Type, t.Kind() != reflect.Interface) {
			return true
		}
	}
	return false
}

func (ReflectionLifecycleStrategy) IsLazy(ComponentAdapter) bool { return false }

// lifecycleSignature reports whether a method type is one of the accepted
// shapes. Method types taken from a concrete type include the receiver.
func lifecycleSignature(ft reflect.Type, hasReceiver bool) bool {
	in := ft.NumIn()
	first := 0
	if hasReceiver {
		first = 1
	}
	switch in - first {
	case 0:
		return ft.NumOut() == 0 || (ft.NumOut() == 1 && ft.Out(0) == errorType)
	case 1:
		return ft.In(first) == contextType && ft.NumOut() == 1 && ft.Out(0) == errorType
	}
	return false
}

func callLifecycleMethod(ctx context.Context, instance any, name string) error {
	if name == "" || instance == nil {
		return nil
	}
	m := reflect.ValueOf(instance).MethodByName(name)
	if !m.IsValid() || !lifecycleSignature(m.Type(), false) {
		return nil
	}

	var out []reflect.Value
	if m.Type().NumIn() == 1 {
		out = m.Call([]reflect.Value{reflect.ValueOf(ctx)})
	} else {
		out = m.Call(nil)
	}
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// CompositeLifecycleStrategy runs several strategies in order. A component
// has lifecycle when any of them says so and is lazy when any of them says so.
type CompositeLifecycleStrategy []LifecycleStrategy

func (c CompositeLifecycleStrategy) Start(ctx context.Context, instance any) error {
	return c.each(func(s LifecycleStrategy) error { return s.Start(ctx, instance) })
}

func (c CompositeLifecycleStrategy) Stop(ctx context.Context, instance any) error {
	return c.each(func(s LifecycleStrategy) error { return s.Stop(ctx, instance) })
}

func (c CompositeLifecycleStrategy) Dispose(ctx context.Context, instance any) error {
	return c.each(func(s LifecycleStrategy) error { return s.Dispose(ctx, instance) })
}

func (c CompositeLifecycleStrategy) HasLifecycle(t reflect.Type) bool {
	for _, s := range c {
		if s.HasLifecycle(t) {
			return true
		}
	}
	return false
}

func (c CompositeLifecycleStrategy) IsLazy(adapter ComponentAdapter) bool {
	for _, s := range c {
		if s.IsLazy(adapter) {
			return true
		}
	}
	return false
}

// each stops at the first failing strategy.
func (c CompositeLifecycleStrategy) each(fn func(LifecycleStrategy) error) error {
	for i, s := range c {
		if err := fn(s); err != nil {
			if len(c) > 1 {
				return fmt.Errorf("strategy %d (%T): %w", i, s, err)
			}
			return err
		}
	}
	return nil
}
