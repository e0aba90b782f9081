package monitors

import (
	"context"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/reflection"
)

// LogrusMonitor logs container events through logrus using the same levels
// as ZapMonitor.
type LogrusMonitor struct {
	log logrus.FieldLogger
}

var _ ioc.ComponentMonitor = (*LogrusMonitor)(nil)

// Logrus returns a monitor logging to log. A nil logger uses
// logrus.StandardLogger.
func Logrus(log logrus.FieldLogger) *LogrusMonitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogrusMonitor{log: log.WithField("logger", "ioc")}
}

func (m *LogrusMonitor) entry(c ioc.Container, a ioc.ComponentAdapter) logrus.FieldLogger {
	return m.log.WithFields(logrus.Fields{
		"component": ioc.FormatKey(a.Key()),
		"container": containerName(c),
	})
}

func (m *LogrusMonitor) Instantiating(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type) {
	m.entry(c, a).WithFields(logrus.Fields{
		"constructor": reflection.FormatType(ctor),
		"path":        path(ctx),
	}).Debug("instantiating component")
}

func (m *LogrusMonitor) Instantiated(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, _ any, args []any, d time.Duration) {
	m.entry(c, a).WithFields(logrus.Fields{
		"constructor": reflection.FormatType(ctor),
		"arguments":   len(args),
		"duration":    d,
	}).Info("instantiated component")
}

func (m *LogrusMonitor) InstantiationFailed(ctx context.Context, c ioc.Container, a ioc.ComponentAdapter, ctor reflect.Type, err error) {
	m.entry(c, a).WithFields(logrus.Fields{
		"constructor": reflection.FormatType(ctor),
		"path":        path(ctx),
	}).WithError(err).Error("instantiation failed")
}

func (m *LogrusMonitor) Invoking(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any) {
	m.entry(c, a).WithField("method", method).Debug("invoking lifecycle method")
}

func (m *LogrusMonitor) Invoked(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any, d time.Duration) {
	m.entry(c, a).WithFields(logrus.Fields{
		"method":   method,
		"duration": d,
	}).Info("invoked lifecycle method")
}

func (m *LogrusMonitor) LifecycleInvocationFailed(_ context.Context, c ioc.Container, a ioc.ComponentAdapter, method string, _ any, err error) {
	m.entry(c, a).WithField("method", method).WithError(err).Error("lifecycle method failed")
}

func (m *LogrusMonitor) NoComponentFound(ctx context.Context, c ioc.Container, key any) {
	m.log.WithFields(logrus.Fields{
		"key":       ioc.FormatKey(key),
		"container": containerName(c),
		"path":      path(ctx),
	}).Warn("no component found")
}
