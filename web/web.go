// Package web gives every HTTP request its own container.
//
// The request container is a child of an application container, so
// request components may depend on application components but not the
// other way around. It holds the *http.Request itself, is started before
// the handler runs and is stopped and disposed once the handler returns.
//
//	app := ioc.New(ioc.WithName("app"))
//	app.AddComponent(nil, NewUserRepository)
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /users/{id}", web.Handle(UserController.GetByID))
//	srv := &http.Server{Handler: web.RequestContainer(app,
//	    web.WithSetup(func(c ioc.MutableContainer, r *http.Request) error {
//	        _, err := c.AddComponent(nil, NewUserController)
//	        return err
//	    }),
//	)(mux)}
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
)

// ErrNoContainer is returned by FromContext when no request container is
// attached.
var ErrNoContainer = errors.New("web: no request container in context")

// Setup registers request components in a new request container.
type Setup func(c ioc.MutableContainer, r *http.Request) error

// Config holds the configuration of the request container middleware.
type Config struct {
	// ErrorHandler answers requests whose container could not be set up or
	// started. The default answers 500 Internal Server Error.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// CloseErrorHandler receives errors from stopping and disposing a
	// request container. The default logs them through logrus.
	CloseErrorHandler func(error)

	// Setups run in order against every new request container.
	Setups []Setup

	// ContainerOptions are applied to every request container.
	ContainerOptions []ioc.Option
}

// Option configures the middleware.
type Option func(*Config)

func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithSetup adds a Setup. Setups run in the order they are added.
func WithSetup(s Setup) Option {
	return func(c *Config) {
		c.Setups = append(c.Setups, s)
	}
}

// WithContainerOptions adds options for the request containers, such as
// a monitor.
func WithContainerOptions(opts ...ioc.Option) Option {
	return func(c *Config) {
		c.ContainerOptions = append(c.ContainerOptions, opts...)
	}
}

// DefaultConfig returns the configuration the middleware starts from.
func DefaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		CloseErrorHandler: func(err error) {
			logrus.WithError(err).Error("failed to close request container")
		},
	}
}

// NewConfig applies opts to DefaultConfig.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c ioc.MutableContainer) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the request container attached to ctx.
func FromContext(ctx context.Context) (ioc.MutableContainer, error) {
	switch v := ctx.Value(contextKey{}).(type) {
	case *requestHolder:
		if v.c != nil {
			return v.c, nil
		}
	case ioc.MutableContainer:
		return v, nil
	}
	return nil, ErrNoContainer
}

// Open creates and starts a request container under parent. r, when not
// nil, is registered under its type and passed to the setups. Callers must
// Close the container.
func Open(ctx context.Context, parent ioc.Container, cfg *Config, r *http.Request) (*ioc.DefaultContainer, error) {
	opts := append([]ioc.Option{ioc.WithName("request"), ioc.WithParent(parent)}, cfg.ContainerOptions...)
	c := ioc.New(opts...)

	if r != nil {
		if _, err := c.AddInstance(ioc.TypeKey[*http.Request](), r); err != nil {
			return nil, err
		}
	}
	for _, setup := range cfg.Setups {
		if err := setup(c, r); err != nil {
			return nil, err
		}
	}
	if err := c.Start(ctx); err != nil {
		return nil, errors.Join(err, Close(ctx, c))
	}
	return c, nil
}

// Close stops c when it is started and disposes it.
func Close(ctx context.Context, c ioc.MutableContainer) error {
	var errs []error
	if c.LifecycleState() == ioc.StateStarted {
		errs = append(errs, c.Stop(ctx))
	}
	errs = append(errs, c.Dispose(ctx))
	return errors.Join(errs...)
}

// RequestContainer returns middleware that serves each request with its
// own container, attached to the request context.
func RequestContainer(parent ioc.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := NewConfig(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			holder := &requestHolder{}
			ctx := context.WithValue(r.Context(), contextKey{}, holder)
			r = r.WithContext(ctx)

			c, err := Open(ctx, parent, cfg, r)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}
			defer func() {
				if err := Close(context.WithoutCancel(ctx), c); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			holder.c = c
			next.ServeHTTP(w, r)
		})
	}
}

// requestHolder lets the request registered in the container carry the
// container it belongs to, which only exists after the request does.
type requestHolder struct {
	c ioc.MutableContainer
}
