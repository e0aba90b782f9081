// Package testutil holds fixtures shared by the container tests.
package testutil

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

// ========================================
// Lifecycle recording
// ========================================

// Recorder collects lifecycle events as a compact string: "<" for start,
// ">" for stop and "!" for dispose, each followed by the component name.
type Recorder struct {
	mu     sync.Mutex
	b      strings.Builder
	events []string
}

// Record appends one event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b.WriteString(event)
	r.events = append(r.events, event)
}

func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.b.String()
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b.Reset()
	r.events = nil
}

// Part is a Startable and Disposable component that records every call.
// The Fail fields make the matching call return an error.
type Part struct {
	Name string
	Rec  *Recorder

	FailStart   bool
	FailStop    bool
	FailDispose bool
}

var ErrPart = errors.New("part failure")

func (p *Part) Start() error {
	p.Rec.Record("<" + p.Name)
	if p.FailStart {
		return ErrPart
	}
	return nil
}

func (p *Part) Stop() error {
	p.Rec.Record(">" + p.Name)
	if p.FailStop {
		return ErrPart
	}
	return nil
}

func (p *Part) Dispose() error {
	p.Rec.Record("!" + p.Name)
	if p.FailDispose {
		return ErrPart
	}
	return nil
}

// PartA has no dependencies besides the recorder.
type PartA struct{ Part }

func NewPartA(rec *Recorder) *PartA {
	return &PartA{Part{Name: "A", Rec: rec}}
}

// PartB depends on PartA.
type PartB struct {
	Part
	A *PartA
}

func NewPartB(rec *Recorder, a *PartA) *PartB {
	return &PartB{Part: Part{Name: "B", Rec: rec}, A: a}
}

// PartC depends on PartB.
type PartC struct {
	Part
	B *PartB
}

func NewPartC(rec *Recorder, b *PartB) *PartC {
	return &PartC{Part: Part{Name: "C", Rec: rec}, B: b}
}

// Single is a lone recording component.
type Single struct{ Part }

func NewSingle(rec *Recorder) *Single {
	return &Single{Part{Name: "", Rec: rec}}
}

// ========================================
// Plain services
// ========================================

// Greeter is implemented by several services so lookups by interface have
// something to choose between.
type Greeter interface {
	Greet() string
}

type English struct{ Word string }

func (e English) Greet() string { return e.Word }

type French struct{ Word string }

func (f French) Greet() string { return f.Word }

func NewEnglish() *English { return &English{Word: "hello"} }

func NewFrench() *French { return &French{Word: "bonjour"} }

func (*English) Name() string { return "english" }

func (*French) Name() string { return "french" }

// Welcome depends on a Greeter.
type Welcome struct {
	Greeter Greeter
}

func NewWelcome(g Greeter) *Welcome { return &Welcome{Greeter: g} }

func (w *Welcome) Message() string { return w.Greeter.Greet() + ", world" }

// Config is a simple value type.
type Config struct {
	DSN  string
	Size int
}

// Database depends on a Config.
type Database struct {
	Config *Config
}

func NewDatabase(cfg *Config) *Database { return &Database{Config: cfg} }

// Repository depends on a Database.
type Repository struct {
	DB *Database
}

func NewRepository(db *Database) *Repository { return &Repository{DB: db} }

// Service depends on a Repository and a Greeter.
type Service struct {
	Repo    *Repository
	Greeter Greeter
}

func NewService(repo *Repository, g Greeter) *Service {
	return &Service{Repo: repo, Greeter: g}
}

// ========================================
// Cycles
// ========================================

type CycleA struct{ B *CycleB }

type CycleB struct{ A *CycleA }

func NewCycleA(b *CycleB) *CycleA { return &CycleA{B: b} }

func NewCycleB(a *CycleA) *CycleB { return &CycleB{A: a} }

// ========================================
// Counting
// ========================================

// Counter counts constructions.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 { return c.n.Add(1) }

func (c *Counter) Load() int64 { return c.n.Load() }

// Counted is a component whose constructor bumps a Counter.
type Counted struct {
	Serial int64
}

// CountedConstructor returns a constructor that counts its calls in c.
func CountedConstructor(c *Counter) func() *Counted {
	return func() *Counted {
		return &Counted{Serial: c.Inc()}
	}
}
