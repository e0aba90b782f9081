package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/junioryono/ioc/internal/lifetime"
	"github.com/junioryono/ioc/internal/reflection"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Typed errors below unwrap to these so callers can use errors.Is.

var (
	// Registration errors.
	ErrKeyNil            = errors.New("component key cannot be nil")
	ErrKeyNotComparable  = errors.New("component key must be comparable")
	ErrNilImplementation = errors.New("component implementation cannot be nil")
	ErrDuplicateKey      = errors.New("duplicate keys not allowed")

	// Resolution errors.
	ErrComponentNotFound = errors.New("component not found")
	ErrUnsatisfiable     = errors.New("unsatisfiable dependencies")
	ErrAmbiguous         = errors.New("ambiguous component resolution")
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrNotConcrete       = errors.New("implementation is not concrete")

	// Container errors.
	ErrContainerDisposed = errors.New("container has been disposed")
	ErrChildIsSelf       = errors.New("container cannot be its own child")
	ErrLifecycleConflict = errors.New("lifecycle state conflict")

	// Pooling errors.
	ErrPoolExhausted       = errors.New("pool exhausted")
	ErrPoolWaitInterrupted = errors.New("interrupted while waiting for a pooled instance")
	ErrPoolDisposed        = errors.New("pool has been disposed")
	ErrNotPooled           = errors.New("instance was not lent by this pool")
	ErrInvalidPoolSize     = errors.New("invalid maximum pool size")
)

var (
	_ error = ComponentNotFoundError{}
	_ error = DuplicateKeyError{}
	_ error = RegistrationError{}
	_ error = UnsatisfiableDependenciesError{}
	_ error = AmbiguousResolutionError{}
	_ error = CyclicDependencyError{}
	_ error = NotConcreteError{}
	_ error = LifecycleStateConflictError{}
	_ error = LifecycleError{}
	_ error = PoolExhaustedError{}
	_ error = PoolWaitInterruptedError{}
	_ error = InstantiationError{}
	_ error = ConstructorPanicError{}
	_ error = ModuleError{}
	_ error = DisposalError{}
	_ error = VerificationError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ComponentNotFoundError indicates no container in the chain holds the key.
type ComponentNotFoundError struct {
	Key       any
	Container string
}

func (e ComponentNotFoundError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("component not found: %s in %s", formatKey(e.Key), e.Container)
	}
	return fmt.Sprintf("component not found: %s", formatKey(e.Key))
}

func (e ComponentNotFoundError) Unwrap() error {
	return ErrComponentNotFound
}

// DuplicateKeyError indicates the key is already registered in the same container.
type DuplicateKeyError struct {
	Key any
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate keys not allowed: %s is already registered", formatKey(e.Key))
}

func (e DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// RegistrationError wraps errors during component registration.
type RegistrationError struct {
	Key       any
	Operation string // "add-component", "add-instance", "analyze", ...
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatKey(e.Key), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// UnsatisfiableDependenciesError indicates no injection point of a component
// could be fully resolved. Unsatisfied lists the slots of the greediest
// candidate that failed.
type UnsatisfiableDependenciesError struct {
	Key            any
	Implementation reflect.Type
	Unsatisfied    []Slot
	ForcedDefault  bool
	Container      string
}

func (e UnsatisfiableDependenciesError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s has unsatisfied dependencies", formatKey(e.Key)))
	if e.ForcedDefault {
		b.WriteString(": no zero-argument injection point to force")
	}
	if len(e.Unsatisfied) > 0 {
		parts := make([]string, len(e.Unsatisfied))
		for i, s := range e.Unsatisfied {
			parts[i] = s.String()
		}
		b.WriteString(": [" + strings.Join(parts, ", ") + "]")
	}
	if e.Container != "" {
		b.WriteString(" from " + e.Container)
	}
	return b.String()
}

func (e UnsatisfiableDependenciesError) Unwrap() error {
	return ErrUnsatisfiable
}

// AmbiguousResolutionError indicates several components satisfy a type lookup
// and nothing breaks the tie.
type AmbiguousResolutionError struct {
	Type       reflect.Type
	Candidates []any
}

func (e AmbiguousResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s needs a unique component, but %d satisfy it:\n",
		reflection.FormatType(e.Type), len(e.Candidates)))
	for _, k := range e.Candidates {
		b.WriteString(fmt.Sprintf("  • %s\n", formatKey(k)))
	}
	b.WriteString("\nTo resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Register one of them under the key %s\n", reflection.FormatType(e.Type)))
	b.WriteString("  • Pass an explicit ioc.Component(key) parameter\n")
	b.WriteString("  • Register with ioc.UseNames and name the constructor slots\n")
	return b.String()
}

func (e AmbiguousResolutionError) Unwrap() error {
	return ErrAmbiguous
}

// CyclicDependencyError indicates resolution re-entered a component that was
// already being resolved. Keys lists the cycle in resolution order.
type CyclicDependencyError struct {
	Keys []any
}

func (e CyclicDependencyError) Error() string {
	path := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		path[i] = formatKey(k)
	}
	return "cyclic dependency detected:\n\n" + graph.RenderCycle(path)
}

func (e CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// NotConcreteError indicates an implementation type that cannot be allocated.
type NotConcreteError struct {
	Key  any
	Type reflect.Type
}

func (e NotConcreteError) Error() string {
	return fmt.Sprintf("%s: %s is not a concrete implementation, register a constructor instead",
		formatKey(e.Key), reflection.FormatType(e.Type))
}

func (e NotConcreteError) Unwrap() error {
	return ErrNotConcrete
}

// LifecycleStateConflictError indicates an invalid lifecycle transition.
// Component is nil when the transition was attempted on the container itself.
type LifecycleStateConflictError struct {
	Container  string
	Component  any
	From       LifecycleState
	Transition string
}

func (e LifecycleStateConflictError) Error() string {
	if e.Component != nil {
		return fmt.Sprintf("cannot %s component %s in %s: component is %s",
			e.Transition, formatKey(e.Component), e.Container, e.From)
	}
	return fmt.Sprintf("cannot %s container %s: container is %s", e.Transition, e.Container, e.From)
}

func (e LifecycleStateConflictError) Unwrap() error {
	return ErrLifecycleConflict
}

// LifecycleError wraps a failure raised by a component's own start, stop or
// dispose method.
type LifecycleError struct {
	Component any
	Method    string
	Cause     error
}

func (e LifecycleError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Method, formatKey(e.Component), e.Cause)
}

func (e LifecycleError) Unwrap() error {
	return e.Cause
}

// PoolExhaustedError indicates a pool could not lend an instance under its
// wait policy. Waited is non-zero when a bounded wait timed out.
type PoolExhaustedError struct {
	Key     any
	MaxSize int
	Waited  time.Duration
}

func (e PoolExhaustedError) Error() string {
	if e.Waited > 0 {
		return fmt.Sprintf("pool for %s exhausted: timed out after %v waiting for one of %d instances",
			formatKey(e.Key), e.Waited, e.MaxSize)
	}
	return fmt.Sprintf("pool for %s exhausted: all %d instances are in use", formatKey(e.Key), e.MaxSize)
}

func (e PoolExhaustedError) Unwrap() error {
	return ErrPoolExhausted
}

// PoolWaitInterruptedError indicates the context ended while waiting for a
// pooled instance.
type PoolWaitInterruptedError struct {
	Key   any
	Cause error
}

func (e PoolWaitInterruptedError) Error() string {
	return fmt.Sprintf("interrupted while waiting for a pooled %s: %v", formatKey(e.Key), e.Cause)
}

func (e PoolWaitInterruptedError) Is(target error) bool {
	return target == ErrPoolWaitInterrupted
}

func (e PoolWaitInterruptedError) Unwrap() error {
	return e.Cause
}

// InstantiationError wraps a failure raised by a component's constructor.
type InstantiationError struct {
	Key            any
	Implementation reflect.Type
	Cause          error
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate %s (%s): %v",
		formatKey(e.Key), reflection.FormatType(e.Implementation), e.Cause)
}

func (e InstantiationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v\n", reflection.FormatType(e.Constructor), e.Panic))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Check for nil pointer dereferences in your constructor\n")
	b.WriteString("  • Move panic-prone initialization into Start\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// ModuleError wraps errors from module installation.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates errors collected while stopping or disposing
// several components.
type DisposalError struct {
	Context string // "stop", "dispose", "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// VerificationError aggregates every problem found by Verify.
type VerificationError struct {
	Errors []error
}

func (e VerificationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("verification found %d problem(s):", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e VerificationError) Unwrap() []error {
	return e.Errors
}

// collect returns nil when errs is empty and a DisposalError otherwise.
func collect(what string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return DisposalError{Context: what, Errors: errs}
}

// conflict converts a state machine conflict into the public error type.
func conflict(container string, component any, err error) error {
	var c lifetime.ConflictError
	if errors.As(err, &c) {
		return LifecycleStateConflictError{
			Container:  container,
			Component:  component,
			From:       c.From,
			Transition: string(c.Transition),
		}
	}
	return err
}

// IsNotFound reports whether err means a component was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound)
}

// IsUnsatisfiable reports whether err is an UnsatisfiableDependenciesError.
func IsUnsatisfiable(err error) bool {
	return errors.Is(err, ErrUnsatisfiable)
}

// IsAmbiguous reports whether err is an AmbiguousResolutionError.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsCyclic reports whether err is a CyclicDependencyError.
func IsCyclic(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}

// IsLifecycleConflict reports whether err is a LifecycleStateConflictError.
func IsLifecycleConflict(err error) bool {
	return errors.Is(err, ErrLifecycleConflict)
}
