package reflection

import (
	"math"
	"reflect"
	"strings"
)

// IsPrimitive reports whether values of t can never be nil and are not
// composite: booleans, numbers and strings.
func IsPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	}
	return false
}

// IsNumeric reports whether t is an integer, unsigned or float kind.
func IsNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsNillable reports whether the zero value of t is nil.
func IsNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}

// IsCollection reports whether t is a slice or a map, the shapes a
// collection lookup can fill. []byte is treated as a value.
func IsCollection(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	}
	return false
}

// IsConcrete reports whether a value of t can be produced by allocation.
func IsConcrete(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Invalid:
		return false
	case reflect.Pointer:
		return IsConcrete(t.Elem())
	}
	return true
}

// Zero allocates a new value for t. Pointer types get a pointer to a new
// zero element, everything else the zero value.
func Zero(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem())
	}
	return reflect.New(t).Elem()
}

// Assignable reports whether a value of type from can fill a slot of type to.
func Assignable(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	return from.AssignableTo(to)
}

// Convert converts v to t when it is assignable, when both are numeric
// kinds and the value survives the conversion, or when both are string
// kinds. It reports false otherwise.
func Convert(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		if IsNillable(t) {
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}

	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(t) {
		return val, true
	}
	if IsNumeric(val.Type()) && IsNumeric(t) {
		if !fits(val, t) {
			return reflect.Value{}, false
		}
		return val.Convert(t), true
	}
	if val.Kind() == reflect.String && t.Kind() == reflect.String {
		return val.Convert(t), true
	}
	return reflect.Value{}, false
}

// fits reports whether the numeric value v converts to t without losing
// its value. Floats only fill integer slots when they are whole.
func fits(v reflect.Value, t reflect.Type) bool {
	out := reflect.New(t).Elem()

	switch {
	case v.CanInt():
		n := v.Int()
		switch {
		case out.CanInt():
			return !out.OverflowInt(n)
		case out.CanUint():
			return n >= 0 && !out.OverflowUint(uint64(n))
		}
		return true
	case v.CanUint():
		n := v.Uint()
		switch {
		case out.CanInt():
			return n <= math.MaxInt64 && !out.OverflowInt(int64(n))
		case out.CanUint():
			return !out.OverflowUint(n)
		}
		return true
	}

	f := v.Float()
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return out.CanFloat()
	case out.CanFloat():
		return !out.OverflowFloat(f)
	case f != math.Trunc(f):
		return false
	case out.CanInt():
		return f >= math.MinInt64 && f < math.MaxInt64 && !out.OverflowInt(int64(f))
	case out.CanUint():
		return f >= 0 && f < math.MaxUint64 && !out.OverflowUint(uint64(f))
	}
	return false
}

// FormatType formats a type for error messages, dropping package paths.
func FormatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + FormatType(t.Elem())
	case reflect.Slice:
		return "[]" + FormatType(t.Elem())
	case reflect.Map:
		return "map[" + FormatType(t.Key()) + "]" + FormatType(t.Elem())
	case reflect.Func:
		return formatFunc(t)
	}

	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func formatFunc(t reflect.Type) string {
	var b strings.Builder
	b.WriteString("func(")
	for i := 0; i < t.NumIn(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(FormatType(t.In(i)))
	}
	b.WriteString(")")

	switch t.NumOut() {
	case 0:
	case 1:
		b.WriteString(" " + FormatType(t.Out(0)))
	default:
		b.WriteString(" (")
		for i := 0; i < t.NumOut(); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatType(t.Out(i)))
		}
		b.WriteString(")")
	}
	return b.String()
}
