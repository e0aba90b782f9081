package testutil

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// NewContainer creates a container and installs modules, failing the test
// on error.
func NewContainer(t *testing.T, modules ...ioc.Module) *ioc.DefaultContainer {
	t.Helper()

	c := ioc.New(ioc.WithName(t.Name()))
	require.NoError(t, c.Install(modules...))
	return c
}

// PartsModule registers a recorder and the A, B and C parts in the given
// order, so tests can check that lifecycle order follows dependencies and
// not registration.
func PartsModule(rec *Recorder, order ...string) ioc.Module {
	ctors := map[string]any{"A": NewPartA, "B": NewPartB, "C": NewPartC}
	builders := []ioc.Module{ioc.AddInstance(nil, rec)}
	for _, name := range order {
		builders = append(builders, ioc.AddComponent(nil, ctors[name]))
	}
	return ioc.NewModule("parts", builders...)
}

// ========================================
// Recording monitor
// ========================================

// Event is one call seen by a RecordingMonitor.
type Event struct {
	Kind   string
	Key    any
	Method string
	Err    error
}

// RecordingMonitor remembers every monitor call in order.
type RecordingMonitor struct {
	mu     sync.Mutex
	events []Event
}

var _ ioc.ComponentMonitor = (*RecordingMonitor)(nil)

func (m *RecordingMonitor) add(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of the recorded events.
func (m *RecordingMonitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Kinds returns the kinds of the recorded events.
func (m *RecordingMonitor) Kinds() []string {
	var out []string
	for _, e := range m.Events() {
		out = append(out, e.Kind)
	}
	return out
}

func (m *RecordingMonitor) Instantiating(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type) {
	m.add(Event{Kind: "instantiating", Key: a.Key()})
}

func (m *RecordingMonitor) Instantiated(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type, _ any, _ []any, _ time.Duration) {
	m.add(Event{Kind: "instantiated", Key: a.Key()})
}

func (m *RecordingMonitor) InstantiationFailed(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type, err error) {
	m.add(Event{Kind: "instantiation-failed", Key: a.Key(), Err: err})
}

func (m *RecordingMonitor) Invoking(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any) {
	m.add(Event{Kind: "invoking", Key: a.Key(), Method: method})
}

func (m *RecordingMonitor) Invoked(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any, _ time.Duration) {
	m.add(Event{Kind: "invoked", Key: a.Key(), Method: method})
}

func (m *RecordingMonitor) LifecycleInvocationFailed(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any, err error) {
	m.add(Event{Kind: "invocation-failed", Key: a.Key(), Method: method, Err: err})
}

func (m *RecordingMonitor) NoComponentFound(_ context.Context, _ ioc.Container, key any) {
	m.add(Event{Kind: "not-found", Key: key})
}
