// Package digbridge connects ioc containers with go.uber.org/dig.
//
// Export makes every component of an ioc container available to a dig
// container, and Import makes a type provided to dig available to an ioc
// container. Instances keep coming from the side that owns them, so an
// exported cached component is the same value on both sides.
//
//	d := dig.New()
//	if err := digbridge.Export(c, d); err != nil {
//	    return err
//	}
//	err := d.Invoke(func(svc *UserService) { ... })
package digbridge

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/ioc"
)

var errorType = reflect.TypeFor[error]()

type exportOptions struct {
	ctx  context.Context
	keep func(ioc.ComponentAdapter) bool
}

// ExportOption configures Export.
type ExportOption func(*exportOptions)

// WithContext sets the context instances are resolved with. The default is
// context.Background.
func WithContext(ctx context.Context) ExportOption {
	return func(o *exportOptions) { o.ctx = ctx }
}

// Only exports the components with the given keys.
func Only(keys ...any) ExportOption {
	set := make(map[any]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return func(o *exportOptions) {
		o.keep = func(a ioc.ComponentAdapter) bool { return set[a.Key()] }
	}
}

// Export provides every component visible from c to d. Components of a
// child shadow those of its parents with the same key.
//
// A component registered under a type is provided as that type. One
// registered under a string, or any other key, is provided as its
// implementation type named after the key. A Qualified key provides its
// type named after its name.
func Export(c ioc.Container, d *dig.Container, opts ...ExportOption) error {
	o := exportOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[any]bool)
	for x := c; x != nil; x = x.Parent() {
		for _, a := range x.GetComponentAdapters() {
			if seen[a.Key()] {
				continue
			}
			seen[a.Key()] = true
			if o.keep != nil && !o.keep(a) {
				continue
			}
			if err := provide(o.ctx, c, d, a); err != nil {
				return fmt.Errorf("digbridge: export %s: %w", ioc.FormatKey(a.Key()), err)
			}
		}
	}
	return nil
}

func provide(ctx context.Context, c ioc.Container, d *dig.Container, a ioc.ComponentAdapter) error {
	t, name := exportedAs(a)
	if t == nil {
		return fmt.Errorf("no implementation type")
	}

	fn := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{t, errorType}, false),
		func([]reflect.Value) []reflect.Value {
			v, err := c.ComponentInstance(ctx, a)
			if err != nil {
				return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
			}
			out := reflect.Zero(t)
			if v != nil {
				out = reflect.ValueOf(v).Convert(t)
			}
			return []reflect.Value{out, reflect.Zero(errorType)}
		})

	var popts []dig.ProvideOption
	if name != "" {
		popts = append(popts, dig.Name(name))
	}
	return d.Provide(fn.Interface(), popts...)
}

// exportedAs returns the type and name a is provided to dig with.
func exportedAs(a ioc.ComponentAdapter) (reflect.Type, string) {
	switch k := a.Key().(type) {
	case reflect.Type:
		return k, ""
	case ioc.Qualified:
		return k.Type, k.Name
	case string:
		return a.Implementation(), k
	default:
		return a.Implementation(), fmt.Sprint(k)
	}
}
