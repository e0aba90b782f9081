package ioc

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/junioryono/ioc/internal/lifetime"
	"github.com/junioryono/ioc/internal/reflection"
)

// Container is the read side of a registry of components.
type Container interface {
	// GetComponent returns the instance for key. A reflect.Type key is a
	// lookup by type; any other key is looked up as is. The local registry is
	// searched first, then the parent chain.
	GetComponent(key any) (any, error)
	GetComponentContext(ctx context.Context, key any) (any, error)

	// GetComponents returns an instance of every local component assignable
	// to t, in registration order. A nil t returns every local component.
	GetComponents(t reflect.Type) ([]any, error)
	GetComponentsContext(ctx context.Context, t reflect.Type) ([]any, error)

	// GetComponentAdapter returns the adapter registered under key here or in
	// an ancestor, or nil.
	GetComponentAdapter(key any) ComponentAdapter

	// GetComponentAdapterOfType returns the unique adapter for type t. name,
	// when not empty, breaks ties between several candidates. The adapter
	// currently being resolved on ctx is never returned. A nil adapter with a
	// nil error means no container in the chain has one.
	GetComponentAdapterOfType(ctx context.Context, t reflect.Type, name string) (ComponentAdapter, error)

	// GetComponentAdapters returns the local adapters in registration order.
	GetComponentAdapters() []ComponentAdapter

	// GetComponentAdaptersOfType returns the local adapters assignable to t.
	GetComponentAdaptersOfType(t reflect.Type) []ComponentAdapter

	// ComponentInstance produces the instance of adapter in the container
	// that owns it.
	ComponentInstance(ctx context.Context, adapter ComponentAdapter) (any, error)

	Parent() Container

	Accept(v Visitor) error
}

// Registrar registers components. A MutableContainer is a Registrar, and so
// is the value returned by MutableContainer.As.
type Registrar interface {
	// AddComponent registers impl under key. impl is a constructor, a Named
	// constructor, an Implementation or a reflect.Type. A nil key defaults to
	// the implementation type. params, when given, fill the injection point
	// slot by slot.
	//
	// A component with lifecycle added to a started container is started
	// at once, under the values of the context given to Start but without
	// its cancellation.
	AddComponent(key, impl any, params ...Parameter) (ComponentAdapter, error)

	// AddInstance registers a prebuilt value. A nil key defaults to the
	// value's dynamic type.
	AddInstance(key, value any) (ComponentAdapter, error)

	// AddAdapter registers a prebuilt adapter.
	AddAdapter(adapter ComponentAdapter) (ComponentAdapter, error)
}

// MutableContainer is a Container that can be changed and driven through
// its lifecycle.
type MutableContainer interface {
	Container
	Registrar

	// As returns a Registrar applying chars to the next registration only.
	As(chars ...Characteristic) Registrar

	RemoveComponent(key any) (ComponentAdapter, error)
	RemoveComponentByInstance(instance any) (ComponentAdapter, error)

	MakeChildContainer() MutableContainer
	AddChildContainer(child MutableContainer) error
	RemoveChildContainer(child MutableContainer) bool
	Children() []MutableContainer

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dispose(ctx context.Context) error
	LifecycleState() LifecycleState

	Install(modules ...Module) error
	SetName(name string)
	String() string
}

// DefaultContainer is the standard MutableContainer.
type DefaultContainer struct {
	id        string
	name      string
	parent    Container
	monitor   ComponentMonitor
	strategy  LifecycleStrategy
	defaults  Properties
	factories []BehaviorFactory
	analyzer  *reflection.Analyzer

	mu         sync.RWMutex
	components map[any]ComponentAdapter
	order      []ComponentAdapter
	children   []MutableContainer
	generation atomic.Uint64

	state   lifetime.Machine
	ordered lifetime.Order[ComponentAdapter] // instantiated lifecycle adapters
	started lifetime.Order[ComponentAdapter]
	running atomic.Pointer[context.Context] // Start's context, for late additions
}

var _ MutableContainer = (*DefaultContainer)(nil)

// New creates a container.
//
//	c := ioc.New(ioc.WithName("app"), ioc.WithMonitor(monitors.Zap(logger)))
func New(opts ...Option) *DefaultContainer {
	o := &containerOptions{
		monitor:  NullMonitor{},
		strategy: StartableLifecycleStrategy{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	return &DefaultContainer{
		id:         uuid.NewString(),
		name:       o.name,
		parent:     o.parent,
		monitor:    o.monitor,
		strategy:   o.strategy,
		defaults:   newProperties(Properties{}, o.characteristics),
		factories:  o.behaviors,
		analyzer:   reflection.Default,
		components: make(map[any]ComponentAdapter),
	}
}

// ID returns the container's unique identifier.
func (c *DefaultContainer) ID() string { return c.id }

func (c *DefaultContainer) Parent() Container { return c.parent }

func (c *DefaultContainer) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// String renders the container as name:count<parent, where count is the
// number of local components and "|" stands for no parent.
func (c *DefaultContainer) String() string {
	c.mu.RLock()
	name, n := c.name, len(c.order)
	c.mu.RUnlock()

	if name == "" {
		name = c.id[:8]
	}
	parent := "|"
	if c.parent != nil {
		parent = containerName(c.parent)
	}
	return fmt.Sprintf("%s:%d<%s", name, n, parent)
}

// Generation returns a counter bumped by every registry change.
func (c *DefaultContainer) Generation() uint64 { return c.generation.Load() }

func (c *DefaultContainer) shape() (string, bool) {
	return c.id + ":" + strconv.FormatUint(c.generation.Load(), 10), true
}

// shaper is implemented by containers whose registry state can be described
// by a string that changes whenever the registry does.
type shaper interface {
	shape() (string, bool)
}

// shapeOf describes c and its ancestors. Selections made against equal
// shapes are interchangeable. Containers that cannot describe themselves
// are never memoized.
func shapeOf(c Container) (string, bool) {
	var b strings.Builder
	for x := c; x != nil; x = x.Parent() {
		s, ok := x.(shaper)
		if !ok {
			return "", false
		}
		part, ok := s.shape()
		if !ok {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(part)
	}
	return b.String(), true
}

func (c *DefaultContainer) checkOpen() error {
	if c.state.IsDisposed() {
		return ErrContainerDisposed
	}
	return nil
}

// ----------------------------------------------------------------------------
// Registration

func (c *DefaultContainer) AddComponent(key, impl any, params ...Parameter) (ComponentAdapter, error) {
	return c.addComponent(c.defaults, key, impl, params)
}

func (c *DefaultContainer) AddInstance(key, value any) (ComponentAdapter, error) {
	return c.addInstance(c.defaults, key, value)
}

func (c *DefaultContainer) AddAdapter(adapter ComponentAdapter) (ComponentAdapter, error) {
	return c.addAdapter(Properties{}, adapter)
}

func (c *DefaultContainer) As(chars ...Characteristic) Registrar {
	return registration{
		container: c,
		props:     newProperties(c.defaults, chars),
		explicit:  newProperties(Properties{}, chars),
	}
}

// registration is the Registrar returned by As.
type registration struct {
	container *DefaultContainer
	props     Properties
	explicit  Properties
}

func (r registration) AddComponent(key, impl any, params ...Parameter) (ComponentAdapter, error) {
	return r.container.addComponent(r.props, key, impl, params)
}

func (r registration) AddInstance(key, value any) (ComponentAdapter, error) {
	return r.container.addInstance(r.props, key, value)
}

func (r registration) AddAdapter(adapter ComponentAdapter) (ComponentAdapter, error) {
	return r.container.addAdapter(r.explicit, adapter)
}

func (c *DefaultContainer) strategyFor(props Properties) LifecycleStrategy {
	if props.NoLifecycle {
		return NullLifecycleStrategy{}
	}
	return c.strategy
}

func (c *DefaultContainer) addComponent(props Properties, key, impl any, params []Parameter) (ComponentAdapter, error) {
	opts := []InjectorOption{
		InjectorStrategy(c.strategyFor(props)),
		InjectorMonitor(c.monitor),
		InjectorParameters(params...),
	}
	if props.UseNames {
		opts = append(opts, InjectorUseNames())
	}

	raw, err := newConstructorInjector(c.analyzer, key, impl, opts...)
	if err != nil {
		return nil, err
	}
	raw.isLazy = props.Lazy
	if props.Pool != nil && props.Pool.MaxSize < UnlimitedPoolSize {
		return nil, RegistrationError{Key: raw.Key(), Operation: "add-component", Cause: ErrInvalidPoolSize}
	}
	return c.register(decorate(props, raw, true, c.factories))
}

func (c *DefaultContainer) addInstance(props Properties, key, value any) (ComponentAdapter, error) {
	if value == nil {
		return nil, RegistrationError{Key: key, Operation: "add-instance", Cause: ErrNilImplementation}
	}
	if key == nil {
		key = reflect.TypeOf(value)
	}
	raw := NewInstanceAdapter(key, value, c.strategyFor(props), c.monitor)
	raw.isLazy = props.Lazy

	var a ComponentAdapter = raw
	switch {
	case props.Lock:
		a = newLocked(a)
	case props.Synchronize:
		a = newSynchronized(a)
	}
	return c.register(a)
}

func (c *DefaultContainer) addAdapter(props Properties, adapter ComponentAdapter) (ComponentAdapter, error) {
	if adapter == nil {
		return nil, RegistrationError{Operation: "add-adapter", Cause: ErrNilImplementation}
	}
	return c.register(decorate(props, adapter, false, nil))
}

// register adds a to the local registry. A container that is already
// started starts a's component right away.
func (c *DefaultContainer) register(a ComponentAdapter) (ComponentAdapter, error) {
	key := a.Key()
	if key == nil {
		return nil, RegistrationError{Operation: "add-component", Cause: ErrKeyNil}
	}
	if !validKey(key) {
		return nil, RegistrationError{Key: key, Operation: "add-component", Cause: ErrKeyNotComparable}
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, exists := c.components[key]; exists {
		c.mu.Unlock()
		return nil, DuplicateKeyError{Key: key}
	}
	c.components[key] = a
	c.order = append(c.order, a)
	c.generation.Add(1)
	c.mu.Unlock()

	if c.state.IsStarted() {
		if cl, ok := lifecycleOf(a); ok && !isLazy(a) {
			if err := c.startAdapter(c.runningContext(), a, cl); err != nil {
				return a, err
			}
		}
	}
	return a, nil
}

// runningContext returns the context late additions start under.
func (c *DefaultContainer) runningContext() context.Context {
	if ctx := c.running.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// RemoveComponent unregisters key. It returns nil when nothing local is
// registered under key and fails while the component is started.
func (c *DefaultContainer) RemoveComponent(key any) (ComponentAdapter, error) {
	if !validKey(key) {
		return nil, nil
	}

	name := c.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.components[key]
	if !ok {
		return nil, nil
	}
	if c.isStarted(a) {
		return nil, LifecycleStateConflictError{
			Container:  name,
			Component:  key,
			From:       StateStarted,
			Transition: "remove",
		}
	}

	delete(c.components, key)
	for i, x := range c.order {
		if x == a {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.ordered.Forget(a)
	c.generation.Add(1)
	return a, nil
}

// isStarted reports whether the container started a and has not stopped it.
func (c *DefaultContainer) isStarted(a ComponentAdapter) bool {
	for _, s := range c.started.Forward() {
		if s == a {
			return true
		}
	}
	return false
}

// RemoveComponentByInstance unregisters the local component that produced
// instance. Only cached instances and prebuilt values can be matched.
func (c *DefaultContainer) RemoveComponentByInstance(instance any) (ComponentAdapter, error) {
	if instance == nil || !reflect.TypeOf(instance).Comparable() {
		return nil, nil
	}
	for _, a := range c.GetComponentAdapters() {
		if held, ok := heldInstance(a); ok && held == instance {
			return c.RemoveComponent(a.Key())
		}
	}
	return nil, nil
}

// heldInstance returns the instance an adapter already holds without
// creating one.
func heldInstance(a ComponentAdapter) (any, bool) {
	for x := a; x != nil; x = x.Delegate() {
		switch b := x.(type) {
		case *Cached:
			b.mu.Lock()
			v, ok := b.instance, b.has
			b.mu.Unlock()
			if ok && v != nil && reflect.TypeOf(v).Comparable() {
				return v, true
			}
			return nil, false
		case *InstanceAdapter:
			if b.value != nil && reflect.TypeOf(b.value).Comparable() {
				return b.value, true
			}
			return nil, false
		}
	}
	return nil, false
}

// ----------------------------------------------------------------------------
// Children

// MakeChildContainer creates a child sharing this container's monitor,
// lifecycle strategy, default characteristics and behaviors.
func (c *DefaultContainer) MakeChildContainer() MutableContainer {
	child := &DefaultContainer{
		id:         uuid.NewString(),
		parent:     c,
		monitor:    c.monitor,
		strategy:   c.strategy,
		defaults:   c.defaults,
		factories:  c.factories,
		analyzer:   c.analyzer,
		components: make(map[any]ComponentAdapter),
	}
	c.mu.Lock()
	c.children = append(c.children, child)
	c.mu.Unlock()
	return child
}

// AddChildContainer attaches child so that it follows this container's
// lifecycle. It does not change child's parent.
func (c *DefaultContainer) AddChildContainer(child MutableContainer) error {
	if child == nil {
		return nil
	}
	if child == MutableContainer(c) {
		return ErrChildIsSelf
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, x := range c.children {
		if x == child {
			return nil
		}
	}
	c.children = append(c.children, child)
	return nil
}

// RemoveChildContainer detaches child and reports whether it was attached.
func (c *DefaultContainer) RemoveChildContainer(child MutableContainer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.children {
		if x == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return true
		}
	}
	return false
}

func (c *DefaultContainer) Children() []MutableContainer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MutableContainer, len(c.children))
	copy(out, c.children)
	return out
}

// Install runs each module against the container.
func (c *DefaultContainer) Install(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}
