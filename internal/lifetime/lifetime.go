package lifetime

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a container or of a scope.
type State int32

const (
	// Constructed is the initial state. Nothing has been started yet.
	Constructed State = iota

	// Started means start has been issued and not yet undone by stop.
	Started

	// Stopped means the last successful transition was a stop.
	Stopped

	// Disposed is terminal.
	Disposed
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case Started:
		return "Started"
	case Stopped:
		return "Stopped"
	case Disposed:
		return "Disposed"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// Transition names an attempted change of state.
type Transition string

const (
	Start   Transition = "start"
	Stop    Transition = "stop"
	Dispose Transition = "dispose"
)

// target returns the state reached by t.
func (t Transition) target() State {
	switch t {
	case Start:
		return Started
	case Stop:
		return Stopped
	default:
		return Disposed
	}
}

// Allowed reports whether t may be applied from s.
func Allowed(s State, t Transition) bool {
	switch t {
	case Start:
		return s == Constructed || s == Stopped
	case Stop:
		return s == Started
	case Dispose:
		return s == Constructed || s == Stopped
	}
	return false
}

// ConflictError is returned when a transition is not allowed from the current state.
type ConflictError struct {
	From       State
	Transition Transition
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Transition, e.From)
}

// Machine validates and records state transitions. The zero value is a
// Machine in the Constructed state.
type Machine struct {
	state int32
	stats Statistics
}

// Statistics counts completed transitions.
type Statistics struct {
	Starts   int64
	Stops    int64
	Disposes int64
}

// State returns the current state.
func (m *Machine) State() State {
	return State(atomic.LoadInt32(&m.state))
}

// IsStarted reports whether the machine is in the Started state.
func (m *Machine) IsStarted() bool {
	return m.State() == Started
}

// IsDisposed reports whether the machine reached the terminal state.
func (m *Machine) IsDisposed() bool {
	return m.State() == Disposed
}

// Check returns a ConflictError if t is not allowed from the current state.
func (m *Machine) Check(t Transition) error {
	if s := m.State(); !Allowed(s, t) {
		return ConflictError{From: s, Transition: t}
	}
	return nil
}

// Apply performs t atomically. It fails without changing state when t is
// not allowed.
func (m *Machine) Apply(t Transition) error {
	for {
		cur := atomic.LoadInt32(&m.state)
		if !Allowed(State(cur), t) {
			return ConflictError{From: State(cur), Transition: t}
		}
		if atomic.CompareAndSwapInt32(&m.state, cur, int32(t.target())) {
			switch t {
			case Start:
				atomic.AddInt64(&m.stats.Starts, 1)
			case Stop:
				atomic.AddInt64(&m.stats.Stops, 1)
			case Dispose:
				atomic.AddInt64(&m.stats.Disposes, 1)
			}
			return nil
		}
	}
}

// Stats returns a snapshot of the transition counters.
func (m *Machine) Stats() Statistics {
	return Statistics{
		Starts:   atomic.LoadInt64(&m.stats.Starts),
		Stops:    atomic.LoadInt64(&m.stats.Stops),
		Disposes: atomic.LoadInt64(&m.stats.Disposes),
	}
}

// Order records items in the order they were first started so that stop and
// dispose can walk them in reverse (LIFO).
type Order[T comparable] struct {
	mu    sync.Mutex
	items []T
	seen  map[T]struct{}
}

// Track appends item unless it is already tracked. It reports whether the
// item was added.
func (o *Order[T]) Track(item T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seen == nil {
		o.seen = make(map[T]struct{})
	}
	if _, ok := o.seen[item]; ok {
		return false
	}
	o.seen[item] = struct{}{}
	o.items = append(o.items, item)
	return true
}

// Forget removes item from the order.
func (o *Order[T]) Forget(item T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.seen[item]; !ok {
		return
	}
	delete(o.seen, item)
	for i, it := range o.items {
		if it == item {
			o.items = append(o.items[:i], o.items[i+1:]...)
			break
		}
	}
}

// Forward returns a copy of the tracked items in insertion order.
func (o *Order[T]) Forward() []T {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]T, len(o.items))
	copy(out, o.items)
	return out
}

// Reverse returns a copy of the tracked items, newest first.
func (o *Order[T]) Reverse() []T {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]T, len(o.items))
	for i, it := range o.items {
		out[len(o.items)-1-i] = it
	}
	return out
}

// Len returns the number of tracked items.
func (o *Order[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
