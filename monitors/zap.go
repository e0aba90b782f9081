package monitors

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/reflection"
)

// ZapMonitor logs container events to a zap logger. Construction and
// lifecycle progress are logged at debug level, completions at info level
// and failures at error level. Missing components are warnings.
type ZapMonitor struct {
	log *zap.Logger
}

var _ ioc.ComponentMonitor = (*ZapMonitor)(nil)

// Zap returns a monitor logging to log. A nil logger discards everything.
func Zap(log *zap.Logger) *ZapMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapMonitor{log: log.Named("ioc")}
}

func (m *ZapMonitor) fields(c ioc.Container, a ioc.ComponentAdapter, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("component", ioc.FormatKey(a.Key())),
		zap.String("container", containerName(c)),
	}, extra...)
}

func (m *ZapMonitor) Instantiating(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type) {
	m.log.Debug("instantiating component", m.fields(c, a,
		zap.String("constructor", reflection.FormatType(ctor)),
		zap.Strings("path", path(ctx)),
	)...)
}

func (m *ZapMonitor) Instantiated(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, _ any, args []any, d time.Duration) {
	m.log.Info("instantiated component", m.fields(c, a,
		zap.String("constructor", reflection.FormatType(ctor)),
		zap.Int("arguments", len(args)),
		zap.Duration("duration", d),
	)...)
}

func (m *ZapMonitor) InstantiationFailed(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, err error) {
	m.log.Error("instantiation failed", m.fields(c, a,
		zap.String("constructor", reflection.FormatType(ctor)),
		zap.Strings("path", path(ctx)),
		zap.Error(err),
	)...)
}

func (m *ZapMonitor) Invoking(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any) {
	m.log.Debug("invoking lifecycle method", m.fields(c, a, zap.String("method", method))...)
}

func (m *ZapMonitor) Invoked(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any, d time.Duration) {
	m.log.Info("invoked lifecycle method", m.fields(c, a,
		zap.String("method", method),
		zap.Duration("duration", d),
	)...)
}

func (m *ZapMonitor) LifecycleInvocationFailed(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any, err error) {
	m.log.Error("lifecycle method failed", m.fields(c, a,
		zap.String("method", method),
		zap.Error(err),
	)...)
}

func (m *ZapMonitor) NoComponentFound(ctx context.Context, c ioc.Container, key any) {
	m.log.Warn("no component found",
		zap.String("key", ioc.FormatKey(key)),
		zap.String("container", containerName(c)),
		zap.Strings("path", path(ctx)),
	)
}
