package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
)

// Qualified is a component key made of a type and a qualifier name. It lets
// several implementations of one type live side by side while still being
// addressable by name.
//
//	c.AddComponent(ioc.Qualified{Type: ioc.TypeKey[Store](), Name: "primary"}, NewPostgresStore)
type Qualified struct {
	Type reflect.Type
	Name string
}

func (q Qualified) String() string {
	return fmt.Sprintf("%s(%s)", q.Name, reflection.FormatType(q.Type))
}

// TypeKey returns the type key for T.
func TypeKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// FormatKey renders a key the way error messages do: types without their
// package path, strings quoted and Stringers through String.
func FormatKey(key any) string { return formatKey(key) }

func formatKey(key any) string {
	switch k := key.(type) {
	case nil:
		return "<nil>"
	case reflect.Type:
		return reflection.FormatType(k)
	case fmt.Stringer:
		return k.String()
	case string:
		return fmt.Sprintf("%q", k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

// keyName returns the name a key answers to for name-based binding.
func keyName(key any) (string, bool) {
	switch k := key.(type) {
	case string:
		return k, true
	case Qualified:
		return k.Name, true
	}
	return "", false
}

func validKey(key any) bool {
	return key != nil && reflect.TypeOf(key).Comparable()
}
