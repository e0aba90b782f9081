package ioc

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Scope is a bounded lifetime, such as one request, under which Stored
// components keep their own instances. Bring a scope into effect with
// WithScope and end it with Close.
//
//	scope := ioc.NewScope()
//	ctx = ioc.WithScope(ctx, scope)
//	defer scope.Close(ctx)
type Scope struct {
	id string

	mu     sync.Mutex
	stores map[*Storing]struct{}
	closed bool
}

// NewScope creates a scope with a random ID.
func NewScope() *Scope {
	return &Scope{
		id:     uuid.NewString(),
		stores: make(map[*Storing]struct{}),
	}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

func (s *Scope) String() string { return "Scope[" + s.id + "]" }

// Close ends the scope. Every Stored instance kept for it is stopped when
// started and disposed when it has lifecycle. Closing twice is a no-op.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stores := make([]*Storing, 0, len(s.stores))
	for st := range s.stores {
		stores = append(stores, st)
	}
	s.stores = nil
	s.mu.Unlock()

	var errs []error
	for _, st := range stores {
		if err := st.release(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return collect("scope", errs)
}

func (s *Scope) join(st *Storing) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.stores[st] = struct{}{}
	return true
}

type scopeKey struct{}

// WithScope returns a context under which Stored components use scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope carried by ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Storing is the backing store shared by Stored components. Outside any
// scope, a store-wide default scope is used.
type Storing struct {
	mu     sync.RWMutex
	scopes map[*Scope]*slots
	def    *Scope
}

// slots holds one entry per Stored adapter for one scope.
type slots struct {
	mu      sync.Mutex
	entries map[*Stored]*storedEntry
	dead    bool
}

type storedEntry struct {
	mu       sync.Mutex
	owner    Container
	instance any
	has      bool
	started  bool
	disposed bool
	// dead marks an entry flushed out of its slots; callers holding it
	// look the entry up again.
	dead bool
}

// NewStoring creates an empty store.
func NewStoring() *Storing {
	return &Storing{
		scopes: make(map[*Scope]*slots),
		def:    NewScope(),
	}
}

func (s *Storing) scopeOf(ctx context.Context) *Scope {
	if sc := ScopeFrom(ctx); sc != nil {
		return sc
	}
	return s.def
}

func (s *Storing) slotsFor(scope *Scope, create bool) *slots {
	s.mu.RLock()
	sl := s.scopes[scope]
	s.mu.RUnlock()
	if sl != nil || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl = s.scopes[scope]; sl != nil {
		return sl
	}
	sl = &slots{entries: make(map[*Stored]*storedEntry)}
	if scope.join(s) || scope == s.def {
		s.scopes[scope] = sl
	}
	return sl
}

func (s *Storing) entry(ctx context.Context, b *Stored, create bool) *storedEntry {
	scope := s.scopeOf(ctx)
	for {
		sl := s.slotsFor(scope, create)
		if sl == nil {
			return nil
		}
		sl.mu.Lock()
		if sl.dead {
			sl.mu.Unlock()
			continue
		}
		e := sl.entries[b]
		if e == nil && create {
			e = &storedEntry{}
			sl.entries[b] = e
		}
		sl.mu.Unlock()
		return e
	}
}

// lock returns the live entry for b in the scope of ctx with its lock held,
// or nil when create is false and there is none.
func (s *Storing) lock(ctx context.Context, b *Stored, create bool) *storedEntry {
	for {
		e := s.entry(ctx, b, create)
		if e == nil {
			return nil
		}
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// CacheSize returns the number of instances kept for the scope in ctx.
func (s *Storing) CacheSize(ctx context.Context) int {
	sl := s.slotsFor(s.scopeOf(ctx), false)
	if sl == nil {
		return 0
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	n := 0
	for _, e := range sl.entries {
		e.mu.Lock()
		if e.has {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Invalidate drops the instances kept for the scope in ctx without touching
// other scopes.
func (s *Storing) Invalidate(ctx context.Context) error {
	return s.release(ctx, s.scopeOf(ctx))
}

// ResetAll drops the instances of every scope.
func (s *Storing) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	old := s.scopes
	s.scopes = make(map[*Scope]*slots)
	s.mu.Unlock()

	var errs []error
	for _, sl := range old {
		errs = append(errs, sl.flush(ctx)...)
	}
	return collect("reset", errs)
}

func (s *Storing) release(ctx context.Context, scope *Scope) error {
	s.mu.Lock()
	sl := s.scopes[scope]
	delete(s.scopes, scope)
	s.mu.Unlock()
	if sl == nil {
		return nil
	}
	return collect("invalidate", sl.flush(ctx))
}

// flush stops and disposes every entry. Entries still being created are
// waited for through their own lock.
func (sl *slots) flush(ctx context.Context) []error {
	sl.mu.Lock()
	entries := sl.entries
	sl.entries = make(map[*Stored]*storedEntry)
	sl.dead = true
	sl.mu.Unlock()

	var errs []error
	for b, e := range entries {
		e.mu.Lock()
		if e.has {
			if e.started {
				if err := b.invoke(ctx, e.owner, methodStop, e.instance); err != nil {
					errs = append(errs, err)
				}
			}
			if !e.disposed && b.HasLifecycle() {
				if err := b.invoke(ctx, e.owner, methodDispose, e.instance); err != nil {
					errs = append(errs, err)
				}
			}
		}
		e.instance, e.has, e.started, e.disposed = nil, false, false, false
		e.dead = true
		e.mu.Unlock()
	}
	return errs
}

// Stored keeps one instance per scope. The scope comes from the context of
// each call; see WithScope.
type Stored struct {
	behavior
	store *Storing
}

var (
	_ ComponentAdapter   = (*Stored)(nil)
	_ ComponentLifecycle = (*Stored)(nil)
)

func newStored(delegate ComponentAdapter, store *Storing) *Stored {
	return &Stored{behavior: behavior{delegate: delegate}, store: store}
}

// NewStored wraps delegate with per-scope storage in store.
func NewStored(delegate ComponentAdapter, store *Storing) *Stored {
	return newStored(delegate, store)
}

func (b *Stored) Descriptor() string { return b.describe("Stored") }

// Instance returns the instance of the current scope, creating it once.
func (b *Stored) Instance(ctx context.Context, c Container) (any, error) {
	e := b.store.lock(ctx, b, true)
	defer e.mu.Unlock()
	return b.fill(ctx, c, e, true)
}

// fill creates e's instance when it has none. An instance made for a request
// scope while the container runs starts right away when autoStart is set;
// Scope.Close stops it again. It must be called with e.mu held.
func (b *Stored) fill(ctx context.Context, c Container, e *storedEntry, autoStart bool) (any, error) {
	if e.has {
		return e.instance, nil
	}

	v, err := b.delegate.Instance(ctx, c)
	if err != nil {
		return nil, err
	}

	if autoStart && b.scoped(ctx) && isRunning(c) && b.HasLifecycle() {
		if err := b.invoke(ctx, c, methodStart, v); err != nil {
			return nil, errors.Join(err, b.invoke(ctx, c, methodDispose, v))
		}
		e.started = true
	}
	e.instance, e.has, e.owner = v, true, c
	return v, nil
}

// scoped reports whether ctx selects a scope other than the store's default.
func (b *Stored) scoped(ctx context.Context) bool {
	return b.store.scopeOf(ctx) != b.store.def
}

func isRunning(c Container) bool {
	s, ok := c.(interface{ LifecycleState() LifecycleState })
	return ok && s.LifecycleState() == StateStarted
}

// Flush drops the instance of the current scope.
func (b *Stored) Flush(ctx context.Context) error {
	e := b.store.lock(ctx, b, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()
	var errs []error
	if e.has {
		if e.started {
			if err := b.invoke(ctx, e.owner, methodStop, e.instance); err != nil {
				errs = append(errs, err)
			}
		}
		if !e.disposed && b.HasLifecycle() {
			if err := b.invoke(ctx, e.owner, methodDispose, e.instance); err != nil {
				errs = append(errs, err)
			}
		}
	}
	e.instance, e.has, e.started, e.disposed = nil, false, false, false
	return collect("flush", errs)
}

func (b *Stored) HasLifecycle() bool {
	inv := invokerOf(b.delegate)
	return inv != nil && inv.componentHasLifecycle()
}

// IsStarted reports whether the default scope's instance is started.
func (b *Stored) IsStarted() bool {
	e := b.store.lock(context.Background(), b, false)
	if e == nil {
		return false
	}
	defer e.mu.Unlock()
	return e.started
}

// Start starts the current scope's instance, creating it if needed.
func (b *Stored) Start(ctx context.Context, c Container) error {
	e := b.store.lock(ctx, b, true)
	defer e.mu.Unlock()
	if _, err := b.fill(ctx, c, e, false); err != nil {
		return err
	}
	if e.started || e.disposed {
		return b.conflict(c, e, methodStart)
	}
	if err := b.invoke(ctx, c, methodStart, e.instance); err != nil {
		return err
	}
	e.started = true
	return nil
}

func (b *Stored) Stop(ctx context.Context, c Container) error {
	e := b.store.lock(ctx, b, true)
	defer e.mu.Unlock()
	if !e.has || !e.started {
		return b.conflict(c, e, methodStop)
	}
	if err := b.invoke(ctx, c, methodStop, e.instance); err != nil {
		return err
	}
	e.started = false
	return nil
}

func (b *Stored) Dispose(ctx context.Context, c Container) error {
	e := b.store.lock(ctx, b, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()
	if !e.has {
		return nil
	}
	if e.started || e.disposed {
		return b.conflict(c, e, methodDispose)
	}
	if err := b.invoke(ctx, c, methodDispose, e.instance); err != nil {
		return err
	}
	e.disposed = true
	return nil
}

func (b *Stored) invoke(ctx context.Context, c Container, method string, instance any) error {
	if inv := invokerOf(b.delegate); inv != nil && inv.componentHasLifecycle() {
		return inv.invoke(ctx, c, method, instance)
	}
	return nil
}

// conflict must be called with e.mu held.
func (b *Stored) conflict(c Container, e *storedEntry, method string) error {
	return LifecycleStateConflictError{
		Container:  containerName(c),
		Component:  b.Key(),
		From:       stateOf(e.started, e.disposed),
		Transition: method,
	}
}
