package ioc

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/junioryono/ioc/internal/reflection"
)

// ComponentAdapter is the resolved binding for one registered component. The
// raw adapters (constructor injection and instances) produce values; behaviors
// wrap another adapter and add caching, pooling, locking or scoping.
type ComponentAdapter interface {
	// Key returns the key the component is registered under.
	Key() any

	// Implementation returns the type of the values the adapter produces.
	Implementation() reflect.Type

	// Instance returns a value, creating it if the adapter's policy requires.
	// c is the container that owns the adapter; nested dependencies are
	// resolved against it.
	Instance(ctx context.Context, c Container) (any, error)

	// Verify checks that the component could be built in c without building it.
	Verify(ctx context.Context, c Container) error

	// Accept passes the adapter's parameters to v.
	Accept(v Visitor) error

	// Delegate returns the wrapped adapter, or nil for a raw adapter.
	Delegate() ComponentAdapter

	// Descriptor returns a short description such as "Cached+Lifecycle".
	Descriptor() string
}

// ComponentLifecycle is implemented by adapters whose instances take part in
// the container's start, stop and dispose.
type ComponentLifecycle interface {
	Start(ctx context.Context, c Container) error
	Stop(ctx context.Context, c Container) error
	Dispose(ctx context.Context, c Container) error

	// HasLifecycle reports whether the component's instances have lifecycle
	// methods the strategy would call.
	HasLifecycle() bool

	// IsStarted reports whether the adapter's instance is started.
	IsStarted() bool
}

// innermost follows Delegate to the raw adapter.
func innermost(a ComponentAdapter) ComponentAdapter {
	for a != nil {
		d := a.Delegate()
		if d == nil {
			return a
		}
		a = d
	}
	return nil
}

// sameComponent reports whether a and b are views of the same raw adapter.
func sameComponent(a, b ComponentAdapter) bool {
	if a == nil || b == nil {
		return false
	}
	return innermost(a) == innermost(b)
}

// FindAdapter walks the delegate chain starting at a and returns the first
// adapter of type T.
//
//	pooled, ok := ioc.FindAdapter[*ioc.Pooled](c.GetComponentAdapter(key))
func FindAdapter[T ComponentAdapter](a ComponentAdapter) (T, bool) {
	for a != nil {
		if t, ok := a.(T); ok {
			return t, true
		}
		a = a.Delegate()
	}
	var zero T
	return zero, false
}

// lifecycleOf returns a's ComponentLifecycle when it has one that matters.
func lifecycleOf(a ComponentAdapter) (ComponentLifecycle, bool) {
	cl, ok := a.(ComponentLifecycle)
	if !ok || !cl.HasLifecycle() {
		return nil, false
	}
	return cl, true
}

// lifecycleInvoker is implemented by raw adapters. Behaviors use it to run
// the lifecycle strategy on the instances they hold.
type lifecycleInvoker interface {
	invoke(ctx context.Context, c Container, method string, instance any) error
	componentHasLifecycle() bool
	lazy() bool
}

func invokerOf(a ComponentAdapter) lifecycleInvoker {
	if inv, ok := innermost(a).(lifecycleInvoker); ok {
		return inv
	}
	return nil
}

const (
	methodStart   = "start"
	methodStop    = "stop"
	methodDispose = "dispose"
)

// lifecycleSupport is embedded by raw adapters. It runs the strategy and
// reports each call to the monitor.
type lifecycleSupport struct {
	self     ComponentAdapter
	strategy LifecycleStrategy
	monitor  ComponentMonitor
	isLazy   bool
}

func (s *lifecycleSupport) invoke(ctx context.Context, c Container, method string, instance any) error {
	s.monitor.Invoking(ctx, c, s.self, method, instance)
	begin := time.Now()

	var err error
	switch method {
	case methodStart:
		err = s.strategy.Start(ctx, instance)
	case methodStop:
		err = s.strategy.Stop(ctx, instance)
	case methodDispose:
		err = s.strategy.Dispose(ctx, instance)
	default:
		err = fmt.Errorf("unknown lifecycle method %q", method)
	}

	if err != nil {
		s.monitor.LifecycleInvocationFailed(ctx, c, s.self, method, instance, err)
		return LifecycleError{Component: s.self.Key(), Method: method, Cause: err}
	}
	s.monitor.Invoked(ctx, c, s.self, method, instance, time.Since(begin))
	return nil
}

func (s *lifecycleSupport) componentHasLifecycle() bool {
	return s.strategy.HasLifecycle(s.self.Implementation())
}

func (s *lifecycleSupport) lazy() bool {
	return s.isLazy || s.strategy.IsLazy(s.self)
}

// InstanceAdapter holds a prebuilt value. It resolves nothing and, when the
// value has lifecycle methods, starts, stops and disposes it with the
// container.
type InstanceAdapter struct {
	lifecycleSupport

	key   any
	value any

	mu       sync.Mutex
	started  bool
	disposed bool
}

var (
	_ ComponentAdapter   = (*InstanceAdapter)(nil)
	_ ComponentLifecycle = (*InstanceAdapter)(nil)
)

// NewInstanceAdapter creates an adapter for value. A nil strategy means no
// lifecycle and a nil monitor means NullMonitor.
func NewInstanceAdapter(key, value any, strategy LifecycleStrategy, monitor ComponentMonitor) *InstanceAdapter {
	if strategy == nil {
		strategy = NullLifecycleStrategy{}
	}
	if monitor == nil {
		monitor = NullMonitor{}
	}
	a := &InstanceAdapter{key: key, value: value}
	a.lifecycleSupport = lifecycleSupport{self: a, strategy: strategy, monitor: monitor}
	return a
}

func (a *InstanceAdapter) Key() any { return a.key }

func (a *InstanceAdapter) Implementation() reflect.Type { return reflect.TypeOf(a.value) }

func (a *InstanceAdapter) Instance(context.Context, Container) (any, error) { return a.value, nil }

func (a *InstanceAdapter) Verify(context.Context, Container) error { return nil }

func (a *InstanceAdapter) Accept(Visitor) error { return nil }

func (a *InstanceAdapter) Delegate() ComponentAdapter { return nil }

func (a *InstanceAdapter) Descriptor() string { return "Instance" }

func (a *InstanceAdapter) String() string {
	return fmt.Sprintf("Instance[%s]", formatKey(a.key))
}

func (a *InstanceAdapter) HasLifecycle() bool {
	return a.value != nil && a.componentHasLifecycle()
}

func (a *InstanceAdapter) IsStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

func (a *InstanceAdapter) Start(ctx context.Context, c Container) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.guard(c, methodStart, !a.started); err != nil {
		return err
	}
	if err := a.invoke(ctx, c, methodStart, a.value); err != nil {
		return err
	}
	a.started = true
	return nil
}

func (a *InstanceAdapter) Stop(ctx context.Context, c Container) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.guard(c, methodStop, a.started); err != nil {
		return err
	}
	if err := a.invoke(ctx, c, methodStop, a.value); err != nil {
		return err
	}
	a.started = false
	return nil
}

func (a *InstanceAdapter) Dispose(ctx context.Context, c Container) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.guard(c, methodDispose, !a.started); err != nil {
		return err
	}
	if err := a.invoke(ctx, c, methodDispose, a.value); err != nil {
		return err
	}
	a.disposed = true
	return nil
}

// guard must be called with a.mu held.
func (a *InstanceAdapter) guard(c Container, method string, ok bool) error {
	if !a.disposed && ok {
		return nil
	}
	return LifecycleStateConflictError{
		Container:  containerName(c),
		Component:  a.key,
		From:       stateOf(a.started, a.disposed),
		Transition: method,
	}
}

// stateOf maps an instance's flags onto the shared lifecycle states.
func stateOf(started, disposed bool) LifecycleState {
	switch {
	case disposed:
		return StateDisposed
	case started:
		return StateStarted
	default:
		return StateStopped
	}
}

func containerName(c Container) string {
	if c == nil {
		return "<nil>"
	}
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}

// describeLifecycle appends "+Lifecycle" to a descriptor when a has lifecycle.
func describeLifecycle(name string, inv lifecycleInvoker) string {
	if inv != nil && inv.componentHasLifecycle() {
		return name + "+Lifecycle"
	}
	return name
}

func formatImpl(t reflect.Type) string {
	return reflection.FormatType(t)
}
