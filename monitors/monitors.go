// Package monitors provides ioc.ComponentMonitor implementations that log
// container activity, collect lifecycle failures and record the dependency
// graph as it is wired.
//
//	logger, _ := zap.NewProduction()
//	failures := monitors.NewLifecycle()
//	c := ioc.New(ioc.WithMonitor(monitors.Multi(monitors.Zap(logger), failures)))
//
//	_ = c.Start(ctx)
//	if err := failures.Err(); err != nil {
//	    ...
//	}
package monitors

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/junioryono/ioc"
)

// MultiMonitor forwards every event to each of its monitors in order.
type MultiMonitor struct {
	monitors []ioc.ComponentMonitor
}

var _ ioc.ComponentMonitor = (*MultiMonitor)(nil)

// Multi combines monitors. Nil monitors are skipped.
func Multi(monitors ...ioc.ComponentMonitor) *MultiMonitor {
	m := &MultiMonitor{}
	for _, x := range monitors {
		if x != nil {
			m.monitors = append(m.monitors, x)
		}
	}
	return m
}

func (m *MultiMonitor) Instantiating(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type) {
	for _, x := range m.monitors {
		x.Instantiating(ctx, c, a, ctor)
	}
}

func (m *MultiMonitor) Instantiated(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, instance any, args []any, d time.Duration) {
	for _, x := range m.monitors {
		x.Instantiated(ctx, c, a, ctor, instance, args, d)
	}
}

func (m *MultiMonitor) InstantiationFailed(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, err error) {
	for _, x := range m.monitors {
		x.InstantiationFailed(ctx, c, a, ctor, err)
	}
}

func (m *MultiMonitor) Invoking(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, instance any) {
	for _, x := range m.monitors {
		x.Invoking(ctx, c, a, method, instance)
	}
}

func (m *MultiMonitor) Invoked(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, instance any, d time.Duration) {
	for _, x := range m.monitors {
		x.Invoked(ctx, c, a, method, instance, d)
	}
}

func (m *MultiMonitor) LifecycleInvocationFailed(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, instance any, err error) {
	for _, x := range m.monitors {
		x.LifecycleInvocationFailed(ctx, c, a, method, instance, err)
	}
}

func (m *MultiMonitor) NoComponentFound(ctx context.Context, c ioc.Container, key any) {
	for _, x := range m.monitors {
		x.NoComponentFound(ctx, c, key)
	}
}

func containerName(c ioc.Container) string {
	if c == nil {
		return "<nil>"
	}
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}

// path renders the resolution path on ctx.
func path(ctx context.Context) []string {
	keys := ioc.ResolutionPath(ctx)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = ioc.FormatKey(k)
	}
	return out
}
