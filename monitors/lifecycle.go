package monitors

import (
	"context"
	"sync"

	"github.com/junioryono/ioc"
)

// Failure is one failed lifecycle invocation.
type Failure struct {
	Key    any
	Method string
	Err    error
}

// LifecycleMonitor collects lifecycle failures so a caller can inspect them
// after Start, Stop or Dispose returned. Other events are ignored.
type LifecycleMonitor struct {
	ioc.NullMonitor

	mu       sync.Mutex
	failures []Failure
}

var _ ioc.ComponentMonitor = (*LifecycleMonitor)(nil)

func NewLifecycle() *LifecycleMonitor {
	return &LifecycleMonitor{}
}

func (m *LifecycleMonitor) LifecycleInvocationFailed(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, Failure{Key: a.Key(), Method: method, Err: err})
}

// Failures returns the collected failures in the order they happened.
func (m *LifecycleMonitor) Failures() []Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Failure, len(m.failures))
	copy(out, m.failures)
	return out
}

// Err returns nil when nothing failed and a DisposalError listing every
// failure otherwise.
func (m *LifecycleMonitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) == 0 {
		return nil
	}
	errs := make([]error, len(m.failures))
	for i, f := range m.failures {
		errs[i] = ioc.LifecycleError{Component: f.Key, Method: f.Method, Cause: f.Err}
	}
	return ioc.DisposalError{Context: "lifecycle", Errors: errs}
}

// Reset forgets every collected failure.
func (m *LifecycleMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}
