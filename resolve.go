package ioc

import (
	"context"
	"fmt"
	"reflect"
)

// Resolve returns the unique component of type T.
//
//	svc, err := ioc.Resolve[*UserService](c)
func Resolve[T any](c Container) (T, error) {
	return ResolveContext[T](context.Background(), c)
}

// ResolveContext is Resolve with a context, for example one carrying a scope.
func ResolveContext[T any](ctx context.Context, c Container) (T, error) {
	var zero T
	v, err := c.GetComponentContext(ctx, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return cast[T](v, reflect.TypeFor[T]())
}

// ResolveKey returns the component registered under key as a T.
func ResolveKey[T any](c Container, key any) (T, error) {
	var zero T
	v, err := c.GetComponent(key)
	if err != nil {
		return zero, err
	}
	return cast[T](v, key)
}

// MustResolve is Resolve that panics on error. Use it in program setup only.
func MustResolve[T any](c Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll returns every local component assignable to T, in registration order.
func ResolveAll[T any](c Container) ([]T, error) {
	vs, err := c.GetComponents(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		t, err := cast[T](v, reflect.TypeFor[T]())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func cast[T any](v any, key any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("component %s is %T, not %s", formatKey(key), v, formatImpl(reflect.TypeFor[T]()))
	}
	return t, nil
}
