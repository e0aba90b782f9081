package ioc

import (
	"context"

	"github.com/junioryono/ioc/internal/lifetime"
)

func (c *DefaultContainer) LifecycleState() LifecycleState {
	return c.state.State()
}

// Start instantiates every non-lazy component that has lifecycle, in
// registration order, then starts the instantiated components in the order
// they were created so that dependencies start before their dependents.
// Children are started last.
func (c *DefaultContainer) Start(ctx context.Context) error {
	if err := c.state.Apply(lifetime.Start); err != nil {
		return conflict(c.String(), nil, err)
	}
	running := context.WithoutCancel(ctx)
	c.running.Store(&running)

	for _, a := range c.GetComponentAdapters() {
		if _, ok := lifecycleOf(a); !ok || isLazy(a) {
			continue
		}
		if err := c.instantiate(ctx, a); err != nil {
			return err
		}
	}

	for _, a := range c.ordered.Forward() {
		cl, ok := lifecycleOf(a)
		if !ok {
			continue
		}
		if err := c.startTracked(ctx, a, cl); err != nil {
			return err
		}
	}

	for _, child := range c.Children() {
		switch child.LifecycleState() {
		case StateConstructed, StateStopped:
			if err := child.Start(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop stops the children, then every started component in reverse start
// order. Every component is attempted and the failures are aggregated.
func (c *DefaultContainer) Stop(ctx context.Context) error {
	if err := c.state.Apply(lifetime.Stop); err != nil {
		return conflict(c.String(), nil, err)
	}

	var errs []error
	children := c.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].LifecycleState() != StateStarted {
			continue
		}
		if err := children[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, a := range c.started.Reverse() {
		c.started.Forget(a)
		if cl, ok := a.(ComponentLifecycle); ok {
			if err := cl.Stop(ctx, c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return collect("stop", errs)
}

// Dispose disposes the children, then every instantiated component in
// reverse order. It is only allowed before the first start or after a stop;
// the container cannot be used afterwards.
func (c *DefaultContainer) Dispose(ctx context.Context) error {
	if err := c.state.Apply(lifetime.Dispose); err != nil {
		return conflict(c.String(), nil, err)
	}

	var errs []error
	children := c.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].LifecycleState() == StateDisposed {
			continue
		}
		if err := children[i].Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, a := range c.ordered.Reverse() {
		if cl, ok := lifecycleOf(a); ok {
			if err := cl.Dispose(ctx, c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return collect("dispose", errs)
}

// instantiate creates a's instance so that it and its dependencies are
// recorded in creation order. Pooled instances go straight back to the pool.
func (c *DefaultContainer) instantiate(ctx context.Context, a ComponentAdapter) error {
	v, err := c.ComponentInstance(ctx, a)
	if err != nil {
		return err
	}
	if p, ok := FindAdapter[*Pooled](a); ok {
		return p.Return(ctx, c, v)
	}
	return nil
}

// startTracked starts a unless the container already started it.
func (c *DefaultContainer) startTracked(ctx context.Context, a ComponentAdapter, cl ComponentLifecycle) error {
	if !c.started.Track(a) {
		return nil
	}
	if err := cl.Start(ctx, c); err != nil {
		c.started.Forget(a)
		return err
	}
	return nil
}

// startAdapter brings a component added to a started container up to date.
func (c *DefaultContainer) startAdapter(ctx context.Context, a ComponentAdapter, cl ComponentLifecycle) error {
	if err := c.instantiate(ctx, a); err != nil {
		return err
	}
	return c.startTracked(ctx, a, cl)
}
