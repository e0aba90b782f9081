package monitors

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/reflection"
)

// WriterMonitor writes one plain line per event to an io.Writer. It suits
// tests and command-line tools that do not carry a structured logger.
type WriterMonitor struct {
	mu sync.Mutex
	w  io.Writer
}

var _ ioc.ComponentMonitor = (*WriterMonitor)(nil)

// Writer returns a monitor writing to w.
func Writer(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format+"\n", args...)
}

func (m *WriterMonitor) Instantiating(ctx context.Context, _ ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type) {
	m.printf("ioc: instantiating %s with %s (path %s)",
		ioc.FormatKey(a.Key()), reflection.FormatType(ctor), strings.Join(path(ctx), " -> "))
}

func (m *WriterMonitor) Instantiated(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type, _ any, args []any, d time.Duration) {
	m.printf("ioc: instantiated %s with %d argument(s) in %v", ioc.FormatKey(a.Key()), len(args), d)
}

func (m *WriterMonitor) InstantiationFailed(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, _ reflect.Type, err error) {
	m.printf("ioc: instantiation of %s failed: %v", ioc.FormatKey(a.Key()), err)
}

func (m *WriterMonitor) Invoking(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any) {
	m.printf("ioc: invoking %s on %s", method, ioc.FormatKey(a.Key()))
}

func (m *WriterMonitor) Invoked(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any, d time.Duration) {
	m.printf("ioc: invoked %s on %s in %v", method, ioc.FormatKey(a.Key()), d)
}

func (m *WriterMonitor) LifecycleInvocationFailed(_ context.Context, _ ioc.Container, a ioc.ComponentAdapter, method string, _ any, err error) {
	m.printf("ioc: %s on %s failed: %v", method, ioc.FormatKey(a.Key()), err)
}

func (m *WriterMonitor) NoComponentFound(_ context.Context, c ioc.Container, key any) {
	m.printf("ioc: no component %s in %s", ioc.FormatKey(key), containerName(c))
}
