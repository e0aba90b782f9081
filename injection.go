package ioc

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/junioryono/ioc/internal/reflection"
)

// Slot is one argument of an injection point.
type Slot struct {
	// Type is the type the argument must be assignable to.
	Type reflect.Type

	// Name is the binding name attached with Named. It is only consulted for
	// components registered with UseNames.
	Name string

	// Index is the argument position.
	Index int
}

func (s Slot) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%s %s", s.Name, reflection.FormatType(s.Type))
	}
	return fmt.Sprintf("#%d %s", s.Index, reflection.FormatType(s.Type))
}

// NamedConstructor is a constructor with binding names for its arguments.
type NamedConstructor struct {
	Constructor any
	Names       []string
}

// Named attaches binding names to the arguments of fn, in order. Missing
// trailing names leave those arguments unnamed and an empty name skips one.
//
//	c.As(ioc.UseNames).AddComponent("report", ioc.Named(NewReport, "primary", "audit"))
func Named(fn any, names ...string) NamedConstructor {
	return NamedConstructor{Constructor: fn, Names: names}
}

// Implementation lists several injection points for one component. The
// greediest point whose arguments all resolve is used; points with the same
// number of arguments are tried in the order given here.
type Implementation struct {
	Points []any
}

// Constructors builds an Implementation from constructor functions, Named
// constructors or a reflect.Type for zero-argument allocation.
//
//	c.AddComponent(ioc.TypeKey[*Client](), ioc.Constructors(NewClient, NewClientWithRetry))
func Constructors(points ...any) Implementation {
	return Implementation{Points: points}
}

// injectionPoint is one way of building a component.
type injectionPoint struct {
	info  *reflection.ConstructorInfo // nil for allocation
	alloc reflect.Type
	slots []Slot
	order int
}

// ctorType identifies the point to monitors.
func (p *injectionPoint) ctorType() reflect.Type {
	if p.info != nil {
		return p.info.Type
	}
	return p.alloc
}

func (p *injectionPoint) arity() int { return len(p.slots) }

func (p *injectionPoint) call(args []reflect.Value) (any, error) {
	if p.info == nil {
		return reflection.Zero(p.alloc).Interface(), nil
	}
	return p.info.Call(args)
}

func (p *injectionPoint) String() string {
	if p.info == nil {
		return "new(" + reflection.FormatType(p.alloc) + ")"
	}
	return reflection.FormatType(p.info.Type)
}

// buildPoints turns an implementation value into its injection points,
// greediest first with declaration order kept among equal arities.
func buildPoints(analyzer *reflection.Analyzer, key, impl any) ([]*injectionPoint, reflect.Type, error) {
	if impl == nil {
		return nil, nil, ErrNilImplementation
	}

	var decls []any
	if i, ok := impl.(Implementation); ok {
		if len(i.Points) == 0 {
			return nil, nil, ErrNilImplementation
		}
		decls = i.Points
	} else {
		decls = []any{impl}
	}

	points := make([]*injectionPoint, 0, len(decls))
	var result reflect.Type
	for i, d := range decls {
		p, err := buildPoint(analyzer, key, d)
		if err != nil {
			return nil, nil, err
		}
		p.order = i

		typ := p.alloc
		if p.info != nil {
			typ = p.info.Result
		}
		if result == nil {
			result = typ
		} else if typ != result {
			return nil, nil, fmt.Errorf("injection point %d yields %s, expected %s",
				i, reflection.FormatType(typ), reflection.FormatType(result))
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].arity() > points[j].arity()
	})
	return points, result, nil
}

func buildPoint(analyzer *reflection.Analyzer, key, decl any) (*injectionPoint, error) {
	var names []string
	if n, ok := decl.(NamedConstructor); ok {
		decl, names = n.Constructor, n.Names
	}

	if t, ok := decl.(reflect.Type); ok {
		if !reflection.IsConcrete(t) || !allocatable(t) {
			return nil, NotConcreteError{Key: key, Type: t}
		}
		return &injectionPoint{alloc: t}, nil
	}

	info, err := analyzer.Analyze(decl)
	if err != nil {
		return nil, err
	}
	if len(names) > len(info.Parameters) {
		return nil, fmt.Errorf("%d names given for %d arguments", len(names), len(info.Parameters))
	}

	slots := make([]Slot, len(info.Parameters))
	for i, p := range info.Parameters {
		slots[i] = Slot{Type: p.Type, Index: p.Index}
		if i < len(names) {
			slots[i].Name = names[i]
		}
	}
	return &injectionPoint{info: info, slots: slots}, nil
}

// allocatable restricts type implementations to structs and pointers to
// structs. Other kinds have no meaningful zero-argument construction.
func allocatable(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
