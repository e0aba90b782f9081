package ioc

import (
	"context"
	"reflect"
	"time"
)

// ComponentMonitor observes instantiation and lifecycle invocation. Monitors
// are purely observational: they cannot change the outcome of the operation
// they are told about.
//
// The context passed to every method carries the resolution path, see
// ResolutionPath.
type ComponentMonitor interface {
	// Instantiating is called before a constructor runs. ctor is the
	// constructor's function type, or the implementation type for
	// allocation-only components.
	Instantiating(ctx context.Context, c Container, adapter ComponentAdapter, ctor reflect.Type)

	// Instantiated is called after a constructor returned successfully.
	Instantiated(ctx context.Context, c Container, adapter ComponentAdapter, ctor reflect.Type, instance any, args []any, d time.Duration)

	// InstantiationFailed is called when a constructor returned an error or panicked.
	InstantiationFailed(ctx context.Context, c Container, adapter ComponentAdapter, ctor reflect.Type, err error)

	// Invoking is called before a lifecycle method ("start", "stop" or "dispose").
	Invoking(ctx context.Context, c Container, adapter ComponentAdapter, method string, instance any)

	// Invoked is called after a lifecycle method returned successfully.
	Invoked(ctx context.Context, c Container, adapter ComponentAdapter, method string, instance any, d time.Duration)

	// LifecycleInvocationFailed is called when a lifecycle method failed.
	LifecycleInvocationFailed(ctx context.Context, c Container, adapter ComponentAdapter, method string, instance any, err error)

	// NoComponentFound is called when a lookup by key or type found nothing.
	NoComponentFound(ctx context.Context, c Container, key any)
}

// NullMonitor ignores every event. It is the default monitor.
type NullMonitor struct{}

var _ ComponentMonitor = NullMonitor{}

func (NullMonitor) Instantiating(context.Context, Container, ComponentAdapter, reflect.Type) {}

func (NullMonitor) Instantiated(context.Context, Container, ComponentAdapter, reflect.Type, any, []any, time.Duration) {
}

func (NullMonitor) InstantiationFailed(context.Context, Container, ComponentAdapter, reflect.Type, error) {
}

func (NullMonitor) Invoking(context.Context, Container, ComponentAdapter, string, any) {}

func (NullMonitor) Invoked(context.Context, Container, ComponentAdapter, string, any, time.Duration) {
}

func (NullMonitor) LifecycleInvocationFailed(context.Context, Container, ComponentAdapter, string, any, error) {
}

func (NullMonitor) NoComponentFound(context.Context, Container, any) {}
