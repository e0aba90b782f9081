// Package echo serves Echo requests with a container per request.
//
//	e := echo.New()
//	e.Use(iocecho.RequestContainer(app, iocecho.WithSetup(
//	    func(c ioc.MutableContainer, ctx echo.Context) error {
//	        _, err := c.AddComponent(nil, NewUserController)
//	        return err
//	    })))
//	e.GET("/users/:id", iocecho.Handle((*UserController).GetByID))
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/web"
)

// Setup registers request components in a new request container.
type Setup func(ioc.MutableContainer, echo.Context) error

// Config holds the configuration of the request container middleware.
type Config struct {
	// ErrorHandler turns a failed container setup or start into the error
	// the middleware returns. The default returns a 500 HTTPError.
	ErrorHandler func(echo.Context, error) error

	// CloseErrorHandler receives errors from stopping and disposing a
	// request container. The default logs them through logrus.
	CloseErrorHandler func(error)

	Setups           []Setup
	ContainerOptions []ioc.Option
}

// Option configures the middleware.
type Option func(*Config)

func WithErrorHandler(h func(echo.Context, error) error) Option {
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

func WithContainerOptions(opts ...ioc.Option) Option {
	return func(c *Config) {
		c.ContainerOptions = append(c.ContainerOptions, opts...)
	}
}

func internalError() error {
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(echo.Context, error) error {
			return internalError()
		},
		CloseErrorHandler: func(err error) {
			logrus.WithError(err).Error("failed to close request container")
		},
	}
}

// RequestContainer returns middleware that serves each request with its
// own container. The container holds the echo.Context and the
// *http.Request, and is attached to the request context.
func RequestContainer(parent ioc.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			wcfg := &web.Config{
				ContainerOptions: cfg.ContainerOptions,
				Setups: []web.Setup{func(c ioc.MutableContainer, _ *http.Request) error {
					if _, err := c.AddInstance(ioc.TypeKey[echo.Context](), ctx); err != nil {
						return err
					}
					for _, setup := range cfg.Setups {
						if err := setup(c, ctx); err != nil {
							return err
						}
					}
					return nil
				}},
			}

			req := ctx.Request()
			c, err := web.Open(req.Context(), parent, wcfg, req)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			defer func() {
				if err := web.Close(req.Context(), c); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			ctx.SetRequest(req.WithContext(web.NewContext(req.Context(), c)))
			return next(ctx)
		}
	}
}

// FromContext returns the request container of ctx.
func FromContext(ctx echo.Context) (ioc.MutableContainer, error) {
	return web.FromContext(ctx.Request().Context())
}

// HandlerConfig holds the configuration of Handle.
type HandlerConfig struct {
	PanicRecovery bool

	PanicHandler           func(echo.Context, any) error
	ContainerErrorHandler  func(echo.Context, error) error
	ResolutionErrorHandler func(echo.Context, error) error
}

// HandlerOption configures Handle.
type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(_ echo.Context, v any) error {
			logrus.WithField("panic", v).Error("panic in handler")
			return internalError()
		},
		ContainerErrorHandler: func(_ echo.Context, err error) error {
			logrus.WithError(err).Error("no request container")
			return internalError()
		},
		ResolutionErrorHandler: func(_ echo.Context, err error) error {
			logrus.WithError(err).Error("failed to resolve controller")
			return internalError()
		},
	}
}

// Handle wraps a controller method. The controller T is resolved by type
// from the request container on every request.
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(ctx, v)
				}
			}()
		}

		c, err := FromContext(ctx)
		if err != nil {
			return cfg.ContainerErrorHandler(ctx, err)
		}

		controller, err := ioc.ResolveContext[T](ctx.Request().Context(), c)
		if err != nil {
			return cfg.ResolutionErrorHandler(ctx, err)
		}

		return method(controller, ctx)
	}
}
