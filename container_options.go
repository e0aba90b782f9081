package ioc

// Option configures a container created with New.
type Option interface {
	apply(*containerOptions)
}

// containerOptions holds container configuration.
type containerOptions struct {
	name            string
	parent          Container
	monitor         ComponentMonitor
	strategy        LifecycleStrategy
	characteristics []Characteristic
	behaviors       []BehaviorFactory
}

// optionFunc adapts a function to Option.
type optionFunc func(*containerOptions)

func (f optionFunc) apply(opts *containerOptions) {
	f(opts)
}

// WithName names the container. The name shows up in errors and String.
func WithName(name string) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.name = name
	})
}

// WithParent sets the container lookups fall back to. The parent does not
// drive the new container's lifecycle; use AddChildContainer for that or
// MakeChildContainer to do both.
func WithParent(parent Container) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.parent = parent
	})
}

// WithMonitor sets the monitor told about instantiation and lifecycle calls.
func WithMonitor(m ComponentMonitor) Option {
	return optionFunc(func(opts *containerOptions) {
		if m != nil {
			opts.monitor = m
		}
	})
}

// WithLifecycleStrategy sets how start, stop and dispose are invoked.
func WithLifecycleStrategy(s LifecycleStrategy) Option {
	return optionFunc(func(opts *containerOptions) {
		if s != nil {
			opts.strategy = s
		}
	})
}

// WithCharacteristics sets characteristics applied to every registration.
// Characteristics given to As are applied on top.
func WithCharacteristics(chars ...Characteristic) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.characteristics = append(opts.characteristics, chars...)
	})
}

// WithBehaviors adds behavior factories run for every constructed component.
func WithBehaviors(factories ...BehaviorFactory) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.behaviors = append(opts.behaviors, factories...)
	})
}
