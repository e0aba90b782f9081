package digbridge

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/ioc"
)

// Adapter produces the value dig provides for one type. dig builds the
// value once and keeps it, so the adapter needs no caching of its own.
type Adapter[T any] struct {
	key any
	dig *dig.Container
}

var _ ioc.ComponentAdapter = (*Adapter[any])(nil)

func (a *Adapter[T]) Key() any { return a.key }

func (a *Adapter[T]) Implementation() reflect.Type { return reflect.TypeFor[T]() }

func (a *Adapter[T]) Instance(context.Context, ioc.Container) (any, error) {
	var out T
	if err := a.dig.Invoke(func(v T) { out = v }); err != nil {
		return nil, fmt.Errorf("digbridge: %s: %w", ioc.FormatKey(a.key), err)
	}
	return out, nil
}

// Verify is a no-op: dig checks its own graph when the value is invoked.
func (a *Adapter[T]) Verify(context.Context, ioc.Container) error { return nil }

func (a *Adapter[T]) Accept(ioc.Visitor) error { return nil }

func (a *Adapter[T]) Delegate() ioc.ComponentAdapter { return nil }

func (a *Adapter[T]) Descriptor() string { return "Dig" }

func (a *Adapter[T]) String() string { return "Dig-" + ioc.FormatKey(a.key) }

// Import registers the T provided to d in c under key. A nil key is the
// type key of T.
//
//	d.Provide(NewLegacyMailer)
//	digbridge.Import[*LegacyMailer](c, d, nil)
func Import[T any](c ioc.Registrar, d *dig.Container, key any) (ioc.ComponentAdapter, error) {
	if key == nil {
		key = ioc.TypeKey[T]()
	}
	return c.AddAdapter(&Adapter[T]{key: key, dig: d})
}
