package ioc

// Properties are the registration flags that decide which behaviors wrap a
// component and how its raw adapter is configured.
type Properties struct {
	Cache       bool
	NoCache     bool
	UseNames    bool
	Lock        bool
	Synchronize bool
	Lazy        bool
	NoLifecycle bool
	Pool        *PoolConfig
	Store       *Storing
}

// caching reports whether a Cached behavior applies. Caching is the default
// for constructed components unless pooling, storing or NoCache is asked for.
func (p Properties) caching(byDefault bool) bool {
	if p.Cache {
		return true
	}
	return byDefault && !p.NoCache && p.Pool == nil && p.Store == nil
}

// Characteristic sets one property.
type Characteristic func(*Properties)

var (
	// Cache keeps the first instance for the life of the container.
	Cache Characteristic = func(p *Properties) { p.Cache, p.NoCache = true, false }

	// NoCache builds a new instance for every request.
	NoCache Characteristic = func(p *Properties) { p.Cache, p.NoCache = false, true }

	// UseNames binds named slots to components whose key matches the name.
	UseNames Characteristic = func(p *Properties) { p.UseNames = true }

	// Lock serializes instantiation and lifecycle calls with a lock that
	// honors context cancellation.
	Lock Characteristic = func(p *Properties) { p.Lock, p.Synchronize = true, false }

	// Synchronize serializes instantiation and lifecycle calls with a mutex.
	Synchronize Characteristic = func(p *Properties) { p.Synchronize, p.Lock = true, false }

	// Lazy keeps the component out of container start until it is first
	// instantiated.
	Lazy Characteristic = func(p *Properties) { p.Lazy = true }

	// NoLifecycle never invokes start, stop or dispose on the component.
	NoLifecycle Characteristic = func(p *Properties) { p.NoLifecycle = true }
)

// Pool keeps instances in a bounded pool.
func Pool(cfg PoolConfig) Characteristic {
	return func(p *Properties) { p.Pool = &cfg }
}

// Store keeps one instance per scope in s. See WithScope.
func Store(s *Storing) Characteristic {
	return func(p *Properties) { p.Store = s }
}

func newProperties(defaults Properties, chars []Characteristic) Properties {
	p := defaults
	for _, ch := range chars {
		if ch != nil {
			ch(&p)
		}
	}
	return p
}
