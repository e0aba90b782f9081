package ioc

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/junioryono/ioc/internal/reflection"
)

// ConstructorInjector is the raw adapter for constructed components. It picks
// the greediest injection point whose arguments all resolve and remembers the
// choice for each container shape, so repeated instantiation does not search
// the container again until the container chain changes.
type ConstructorInjector struct {
	lifecycleSupport

	key      any
	impl     reflect.Type
	points   []*injectionPoint
	params   []Parameter
	useNames bool

	memoMu sync.RWMutex
	memo   map[string]*selection
	flight singleflight.Group

	searches atomic.Int64
}

// selection is a chosen injection point with a resolver per slot.
type selection struct {
	point     *injectionPoint
	resolvers []Resolver
}

var _ ComponentAdapter = (*ConstructorInjector)(nil)

// InjectorOption configures a ConstructorInjector built with NewConstructorInjector.
type InjectorOption func(*ConstructorInjector)

// InjectorStrategy sets the lifecycle strategy. The default is StartableLifecycleStrategy.
func InjectorStrategy(s LifecycleStrategy) InjectorOption {
	return func(in *ConstructorInjector) { in.strategy = s }
}

// InjectorMonitor sets the monitor. The default is NullMonitor.
func InjectorMonitor(m ComponentMonitor) InjectorOption {
	return func(in *ConstructorInjector) { in.monitor = m }
}

// InjectorParameters sets explicit parameters, one per slot.
func InjectorParameters(params ...Parameter) InjectorOption {
	return func(in *ConstructorInjector) { in.params = params }
}

// InjectorUseNames enables name binding for named slots.
func InjectorUseNames() InjectorOption {
	return func(in *ConstructorInjector) { in.useNames = true }
}

// NewConstructorInjector creates a raw adapter for impl. impl is a
// constructor, a Named constructor, an Implementation or a reflect.Type. A nil
// key defaults to the implementation type.
func NewConstructorInjector(key, impl any, opts ...InjectorOption) (*ConstructorInjector, error) {
	return newConstructorInjector(reflection.Default, key, impl, opts...)
}

func newConstructorInjector(analyzer *reflection.Analyzer, key, impl any, opts ...InjectorOption) (*ConstructorInjector, error) {
	points, result, err := buildPoints(analyzer, key, impl)
	if err != nil {
		return nil, RegistrationError{Key: key, Operation: "analyze", Cause: err}
	}
	if key == nil {
		key = result
	}
	if !validKey(key) {
		return nil, RegistrationError{Key: key, Operation: "add-component", Cause: ErrKeyNotComparable}
	}

	in := &ConstructorInjector{
		key:    key,
		impl:   result,
		points: points,
		memo:   make(map[string]*selection),
	}
	in.lifecycleSupport = lifecycleSupport{
		self:     in,
		strategy: StartableLifecycleStrategy{},
		monitor:  NullMonitor{},
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.strategy == nil {
		in.strategy = NullLifecycleStrategy{}
	}
	if in.monitor == nil {
		in.monitor = NullMonitor{}
	}
	return in, nil
}

func (in *ConstructorInjector) Key() any { return in.key }

func (in *ConstructorInjector) Implementation() reflect.Type { return in.impl }

func (in *ConstructorInjector) Delegate() ComponentAdapter { return nil }

func (in *ConstructorInjector) Descriptor() string { return "ConstructorInjector" }

func (in *ConstructorInjector) String() string {
	return fmt.Sprintf("ConstructorInjector[%s]", formatKey(in.key))
}

// Searches returns how many times the injector searched a container for an
// injection point.
func (in *ConstructorInjector) Searches() int64 { return in.searches.Load() }

func (in *ConstructorInjector) Accept(v Visitor) error {
	for _, p := range in.params {
		if err := p.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

// Instance builds a new value with the selected injection point.
func (in *ConstructorInjector) Instance(ctx context.Context, c Container) (any, error) {
	sel, err := in.selection(ctx, c)
	if err != nil {
		return nil, err
	}

	args := make([]reflect.Value, len(sel.resolvers))
	values := make([]any, len(sel.resolvers))
	for i, r := range sel.resolvers {
		v, err := r.ResolveInstance(ctx)
		if err != nil {
			return nil, err
		}
		slot := sel.point.slots[i]
		rv, ok := reflection.Convert(v, slot.Type)
		if !ok {
			return nil, InstantiationError{
				Key:            in.key,
				Implementation: in.impl,
				Cause:          fmt.Errorf("argument %s received %T", slot, v),
			}
		}
		args[i], values[i] = rv, v
	}

	ctor := sel.point.ctorType()
	in.monitor.Instantiating(ctx, c, in, ctor)
	begin := time.Now()

	instance, err := in.call(sel.point, args)
	if err != nil {
		in.monitor.InstantiationFailed(ctx, c, in, ctor, err)
		return nil, err
	}
	in.monitor.Instantiated(ctx, c, in, ctor, instance, values, time.Since(begin))
	return instance, nil
}

func (in *ConstructorInjector) call(p *injectionPoint, args []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = InstantiationError{
				Key:            in.key,
				Implementation: in.impl,
				Cause: ConstructorPanicError{
					Constructor: p.ctorType(),
					Panic:       r,
					Stack:       debug.Stack(),
				},
			}
		}
	}()

	instance, err = p.call(args)
	if err != nil {
		return nil, InstantiationError{Key: in.key, Implementation: in.impl, Cause: err}
	}
	return instance, nil
}

// Verify checks that an injection point is satisfiable and verifies the
// components its arguments would come from.
func (in *ConstructorInjector) Verify(ctx context.Context, c Container) error {
	ctx, err := enter(ctx, in)
	if err != nil {
		return err
	}

	sel, err := in.search(ctx, c)
	if err != nil {
		return err
	}
	for i, slot := range sel.point.slots {
		if err := in.parameter(i).Verify(ctx, c, in, in.bind(slot)); err != nil {
			return err
		}
	}
	return nil
}

// Dependencies returns the adapters the selected injection point draws from.
func (in *ConstructorInjector) Dependencies(ctx context.Context, c Container) ([]ComponentAdapter, error) {
	sel, err := in.selection(ctx, c)
	if err != nil {
		return nil, err
	}
	var deps []ComponentAdapter
	for _, r := range sel.resolvers {
		deps = append(deps, resolvedAdapters(r)...)
	}
	return deps, nil
}

// selection returns the memoized choice for c's shape, searching once per
// shape even under concurrent first calls.
func (in *ConstructorInjector) selection(ctx context.Context, c Container) (*selection, error) {
	shape, ok := shapeOf(c)
	if !ok {
		return in.search(ctx, c)
	}

	in.memoMu.RLock()
	sel := in.memo[shape]
	in.memoMu.RUnlock()
	if sel != nil {
		return sel, nil
	}

	v, err, _ := in.flight.Do(shape, func() (any, error) {
		in.memoMu.RLock()
		sel := in.memo[shape]
		in.memoMu.RUnlock()
		if sel != nil {
			return sel, nil
		}

		sel, err := in.search(ctx, c)
		if err != nil {
			return nil, err
		}
		in.memoMu.Lock()
		in.memo[shape] = sel
		in.memoMu.Unlock()
		return sel, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*selection), nil
}

// search runs the greediest-satisfiable selection against c.
func (in *ConstructorInjector) search(ctx context.Context, c Container) (*selection, error) {
	in.searches.Add(1)
	ctx = within(ctx, in)

	candidates, err := in.candidates(c)
	if err != nil {
		return nil, err
	}

	var greediest []Slot
	for i, p := range candidates {
		resolvers, missing, err := in.resolvePoint(ctx, c, p)
		if err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			return &selection{point: p, resolvers: resolvers}, nil
		}
		if i == 0 {
			greediest = missing
		}
	}

	return nil, UnsatisfiableDependenciesError{
		Key:            in.key,
		Implementation: in.impl,
		Unsatisfied:    greediest,
		Container:      containerName(c),
	}
}

func (in *ConstructorInjector) candidates(c Container) ([]*injectionPoint, error) {
	if isForceDefault(in.params) {
		for _, p := range in.points {
			if p.arity() == 0 {
				return []*injectionPoint{p}, nil
			}
		}
		return nil, UnsatisfiableDependenciesError{
			Key:            in.key,
			Implementation: in.impl,
			ForcedDefault:  true,
			Container:      containerName(c),
		}
	}

	if len(in.params) == 0 {
		return in.points, nil
	}

	var out []*injectionPoint
	for _, p := range in.points {
		if p.arity() == len(in.params) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, RegistrationError{
			Key:       in.key,
			Operation: "select injection point",
			Cause:     fmt.Errorf("no injection point takes %d arguments", len(in.params)),
		}
	}
	return out, nil
}

func (in *ConstructorInjector) resolvePoint(ctx context.Context, c Container, p *injectionPoint) ([]Resolver, []Slot, error) {
	resolvers := make([]Resolver, len(p.slots))
	var missing []Slot
	for i, slot := range p.slots {
		r, err := in.parameter(i).Resolve(ctx, c, in, in.bind(slot))
		if err != nil {
			return nil, nil, err
		}
		if !r.IsResolved() {
			missing = append(missing, slot)
			continue
		}
		resolvers[i] = r
	}
	return resolvers, missing, nil
}

func (in *ConstructorInjector) parameter(i int) Parameter {
	if len(in.params) > 0 && !isForceDefault(in.params) {
		return in.params[i]
	}
	return DefaultParameter
}

// bind drops the slot name unless name binding is enabled.
func (in *ConstructorInjector) bind(slot Slot) Slot {
	if !in.useNames {
		slot.Name = ""
	}
	return slot
}
