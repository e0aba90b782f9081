// Package fiber serves Fiber requests with a container per request.
//
// Fiber runs on fasthttp, so request containers hold the *fiber.Ctx but no
// *http.Request. The container is kept in the context locals and in the
// user context.
//
//	app := fiber.New()
//	app.Use(iocfiber.RequestContainer(root, iocfiber.WithSetup(
//	    func(c ioc.MutableContainer, ctx *fiber.Ctx) error {
//	        _, err := c.AddComponent(nil, NewUserController)
//	        return err
//	    })))
//	app.Get("/users/:id", iocfiber.Handle((*UserController).GetByID))
package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/web"
)

// containerKey is the fiber.Ctx.Locals key of the request container.
const containerKey = "ioc.container"

// Setup registers request components in a new request container.
type Setup func(ioc.MutableContainer, *fiber.Ctx) error

// Config holds the configuration of the request container middleware.
type Config struct {
	// ErrorHandler answers requests whose container could not be set up or
	// started. The default answers a 500 JSON body.
	ErrorHandler func(*fiber.Ctx, error) error

	// CloseErrorHandler receives errors from stopping and disposing a
	// request container. The default logs them through logrus.
	CloseErrorHandler func(error)

	Setups           []Setup
	ContainerOptions []ioc.Option
}

// Option configures the middleware.
type Option func(*Config)

func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return internalError(c)
		},
		CloseErrorHandler: func(err error) {
			logrus.WithError(err).Error("failed to close request container")
		},
	}
}

// RequestContainer returns middleware that serves each request with its
// own container.
func RequestContainer(parent ioc.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx *fiber.Ctx) error {
		wcfg := &web.Config{
			ContainerOptions: cfg.ContainerOptions,
			Setups: []web.Setup{func(c ioc.MutableContainer, _ *http.Request) error {
				if _, err := c.AddInstance(ioc.TypeKey[*fiber.Ctx](), ctx); err != nil {
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

		uctx := ctx.UserContext()
		c, err := web.Open(uctx, parent, wcfg, nil)
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}
		defer func() {
			if err := web.Close(uctx, c); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		ctx.SetUserContext(web.NewContext(uctx, c))
		ctx.Locals(containerKey, c)
		return ctx.Next()
	}
}

// FromContext returns the request container of ctx.
func FromContext(ctx *fiber.Ctx) (ioc.MutableContainer, error) {
	if c, ok := ctx.Locals(containerKey).(ioc.MutableContainer); ok {
		return c, nil
	}
	return web.FromContext(ctx.UserContext())
}

// HandlerConfig holds the configuration of Handle.
type HandlerConfig struct {
	PanicRecovery bool

	PanicHandler           func(*fiber.Ctx, any) error
	ContainerErrorHandler  func(*fiber.Ctx, error) error
	ResolutionErrorHandler func(*fiber.Ctx, error) error
}

// HandlerOption configures Handle.
type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			logrus.WithField("panic", v).Error("panic in handler")
			return internalError(c)
		},
		ContainerErrorHandler: func(c *fiber.Ctx, err error) error {
			logrus.WithError(err).Error("no request container")
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			logrus.WithError(err).Error("failed to resolve controller")
			return internalError(c)
		},
	}
}

// Handle wraps a controller method. The controller T is resolved by type
// from the request container on every request.
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx *fiber.Ctx) (err error) {
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

		controller, err := ioc.ResolveContext[T](ctx.UserContext(), c)
		if err != nil {
			return cfg.ResolutionErrorHandler(ctx, err)
		}

		return method(controller, ctx)
	}
}
