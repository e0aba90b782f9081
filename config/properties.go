// Package config builds property containers: containers holding one
// instance per configuration value, keyed by the property name. They are
// meant to be used as parents of application containers, with Property
// filling constructor arguments from them.
//
//	props, err := config.YAMLFile("app.yaml")
//	if err != nil {
//	    return err
//	}
//	parent, err := props.Container()
//	if err != nil {
//	    return err
//	}
//
//	c := ioc.New(ioc.WithParent(parent))
//	c.AddComponent(nil, NewPool, config.Property("db.dsn"), config.Property("db.size"))
package config

import (
	"errors"
	"fmt"

	"github.com/junioryono/ioc"
)

var (
	// ErrMalformedArgument is returned for a command-line argument with
	// more than one separator.
	ErrMalformedArgument = errors.New("malformed argument")

	// ErrNoProperty is returned by Lookup for a key no container holds.
	ErrNoProperty = errors.New("no such property")

	// ErrConversion is returned when a property cannot become the
	// requested type.
	ErrConversion = errors.New("property conversion failed")
)

// Properties is an ordered set of named values. Setting a name again
// replaces its value but keeps its first position.
type Properties struct {
	name   string
	keys   []string
	values map[string]any
}

// NewProperties returns an empty set whose container will carry name.
func NewProperties(name string) *Properties {
	return &Properties{name: name, values: make(map[string]any)}
}

// Set stores value under key. A nil value removes the key.
func (p *Properties) Set(key string, value any) *Properties {
	if value == nil {
		p.Delete(key)
		return p
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

func (p *Properties) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

func (p *Properties) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the property names in the order they were first set.
func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int { return len(p.keys) }

// Merge copies every property of other into p. Values from other win.
func (p *Properties) Merge(other *Properties) *Properties {
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
	return p
}

// Container registers every property as an instance under its name in a
// new container. The container is named after the source; opts are applied
// after that and may rename it or give it a parent.
func (p *Properties) Container(opts ...ioc.Option) (*ioc.DefaultContainer, error) {
	c := ioc.New(append([]ioc.Option{ioc.WithName(p.name)}, opts...)...)
	for _, k := range p.keys {
		if _, err := c.As(ioc.NoLifecycle).AddInstance(k, p.values[k]); err != nil {
			return nil, fmt.Errorf("config: property %q: %w", k, err)
		}
	}
	return c, nil
}
