package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/reflection"
)

// Lookup returns the property key from c as a T. Strings are parsed into
// booleans, numbers and durations; numbers convert between kinds; lists
// convert element by element.
//
//	port, err := config.Lookup[int](props, "http.port")
func Lookup[T any](c ioc.Container, key string) (T, error) {
	var zero T
	v, err := c.GetComponent(key)
	if err != nil {
		if ioc.IsNotFound(err) {
			return zero, fmt.Errorf("config: %q: %w", key, ErrNoProperty)
		}
		return zero, err
	}
	rv, err := convert(v, reflect.TypeFor[T]())
	if err != nil {
		return zero, fmt.Errorf("config: %q: %w", key, err)
	}
	return rv.Interface().(T), nil
}

// LookupOr is Lookup returning fallback when the property is missing.
func LookupOr[T any](c ioc.Container, key string, fallback T) (T, error) {
	v, err := Lookup[T](c, key)
	if errors.Is(err, ErrNoProperty) {
		return fallback, nil
	}
	return v, err
}

// Property fills a constructor argument with the property key, converted
// like Lookup converts. The property is found through the container the
// component is resolved in, usually in a parent property container.
func Property(key string) ioc.Parameter {
	return property{key: key}
}

type property struct {
	key string
}

func (p property) Resolve(_ context.Context, c ioc.Container, _ ioc.ComponentAdapter, slot ioc.Slot) (ioc.Resolver, error) {
	a := c.GetComponentAdapter(p.key)
	if a == nil || !convertible(a.Implementation(), slot.Type) {
		return propertyResolver{}, nil
	}
	return propertyResolver{container: c, adapter: a, slot: slot}, nil
}

func (p property) Verify(ctx context.Context, c ioc.Container, forAdapter ioc.ComponentAdapter, slot ioc.Slot) error {
	r, err := p.Resolve(ctx, c, forAdapter, slot)
	if err != nil {
		return err
	}
	if r.IsResolved() {
		return nil
	}
	e := ioc.UnsatisfiableDependenciesError{Unsatisfied: []ioc.Slot{slot}, Container: fmt.Sprint(c)}
	if forAdapter != nil {
		e.Key, e.Implementation = forAdapter.Key(), forAdapter.Implementation()
	}
	return e
}

func (p property) Accept(v ioc.Visitor) error { return v.VisitParameter(p) }

func (p property) String() string { return "Property(" + p.key + ")" }

type propertyResolver struct {
	container ioc.Container
	adapter   ioc.ComponentAdapter
	slot      ioc.Slot
}

func (r propertyResolver) IsResolved() bool { return r.adapter != nil }

func (r propertyResolver) ResolveInstance(ctx context.Context) (any, error) {
	v, err := r.container.ComponentInstance(ctx, r.adapter)
	if err != nil {
		return nil, err
	}
	rv, err := convert(v, r.slot.Type)
	if err != nil {
		return nil, fmt.Errorf("config: %s for %s: %w", ioc.FormatKey(r.adapter.Key()), r.slot, err)
	}
	return rv.Interface(), nil
}

func (r propertyResolver) ResolvedAdapter() ioc.ComponentAdapter { return r.adapter }

var durationType = reflect.TypeFor[time.Duration]()

// convertible reports whether values of type from may convert to to. A
// string may still fail to parse when the value is converted.
func convertible(from, to reflect.Type) bool {
	switch {
	case from == nil || to == nil:
		return false
	case from.AssignableTo(to):
		return true
	case reflection.IsNumeric(from) && reflection.IsNumeric(to):
		return true
	case from.Kind() == reflect.String && reflection.IsPrimitive(to):
		return true
	case from.Kind() == reflect.Slice && to.Kind() == reflect.Slice:
		return true
	}
	return false
}

func convert(v any, t reflect.Type) (reflect.Value, error) {
	if rv, ok := reflection.Convert(v, t); ok {
		return rv, nil
	}

	src := reflect.ValueOf(v)
	switch {
	case v == nil:
	case src.Kind() == reflect.String:
		return parse(src.String(), t)
	case src.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			e, err := convert(src.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(e)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%T to %s: %w", v, reflection.FormatType(t), ErrConversion)
}

func parse(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	var err error

	switch {
	case t == durationType:
		var d time.Duration
		if d, err = time.ParseDuration(s); err == nil {
			out.SetInt(int64(d))
		}
	case t.Kind() == reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			out.SetBool(b)
		}
	case out.CanInt():
		var i int64
		if i, err = strconv.ParseInt(s, 10, t.Bits()); err == nil {
			out.SetInt(i)
		}
	case out.CanUint():
		var u uint64
		if u, err = strconv.ParseUint(s, 10, t.Bits()); err == nil {
			out.SetUint(u)
		}
	case out.CanFloat():
		var f float64
		if f, err = strconv.ParseFloat(s, t.Bits()); err == nil {
			out.SetFloat(f)
		}
	default:
		return reflect.Value{}, fmt.Errorf("%q to %s: %w", s, reflection.FormatType(t), ErrConversion)
	}

	if err != nil {
		return reflect.Value{}, fmt.Errorf("parse %q as %s: %w: %w", s, reflection.FormatType(t), ErrConversion, err)
	}
	return out, nil
}
