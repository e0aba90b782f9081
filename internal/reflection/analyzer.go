package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

var (
	// ErrNilConstructor is returned when a nil function is analyzed.
	ErrNilConstructor = errors.New("constructor cannot be nil")

	// ErrNotFunction is returned when the analyzed value is not a function.
	ErrNotFunction = errors.New("constructor must be a function")

	// ErrVariadic is returned for variadic constructors. A variadic slot has no
	// single expected type.
	ErrVariadic = errors.New("variadic constructors are not supported")

	// ErrBadReturns is returned when the constructor does not return T or (T, error).
	ErrBadReturns = errors.New("constructor must return T or (T, error)")
)

// Analyzer performs reflection-based analysis of constructors.
// It caches analysis results keyed by function pointer.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// ConstructorInfo describes one constructor function.
type ConstructorInfo struct {
	Type           reflect.Type
	Value          reflect.Value
	Parameters     []ParameterInfo
	Result         reflect.Type
	HasErrorReturn bool
}

// ParameterInfo describes one constructor parameter.
type ParameterInfo struct {
	Type  reflect.Type
	Index int
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Default is the process-wide analyzer.
var Default = New()

// Analyze analyzes a constructor function. Results are cached, so callers
// must not modify the returned value.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrNilConstructor
	}

	val := reflect.ValueOf(constructor)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %T", ErrNotFunction, constructor)
	}
	if val.IsNil() {
		return nil, ErrNilConstructor
	}

	// Closures built from one literal share a code pointer, so the cached
	// entry is only reused when it also carries the same function value.
	key := val.Pointer()
	a.mu.RLock()
	if cached, ok := a.cache[key]; ok && cached.Type == val.Type() {
		a.mu.RUnlock()
		return &ConstructorInfo{
			Type:           cached.Type,
			Value:          val,
			Parameters:     cached.Parameters,
			Result:         cached.Result,
			HasErrorReturn: cached.HasErrorReturn,
		}, nil
	}
	a.mu.RUnlock()

	typ := val.Type()
	if typ.IsVariadic() {
		return nil, ErrVariadic
	}

	info := &ConstructorInfo{
		Type:  typ,
		Value: val,
	}

	switch typ.NumOut() {
	case 1:
		if typ.Out(0) == errType {
			return nil, ErrBadReturns
		}
	case 2:
		if typ.Out(1) != errType {
			return nil, ErrBadReturns
		}
		info.HasErrorReturn = true
	default:
		return nil, ErrBadReturns
	}
	info.Result = typ.Out(0)

	info.Parameters = make([]ParameterInfo, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		info.Parameters[i] = ParameterInfo{Type: typ.In(i), Index: i}
	}

	a.mu.Lock()
	a.cache[key] = info
	a.mu.Unlock()

	return info, nil
}

// Len returns the number of cached analyses.
func (a *Analyzer) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// Call invokes the constructor. A non-nil error return is passed back as is.
func (info *ConstructorInfo) Call(args []reflect.Value) (any, error) {
	out := info.Value.Call(args)
	if info.HasErrorReturn {
		if errVal := out[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}
	return Interface(out[0]), nil
}

// Interface returns v as an interface value. Invalid values and nil
// interfaces become an untyped nil.
func Interface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Interface && v.IsNil() {
		return nil
	}
	return v.Interface()
}
