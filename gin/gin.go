// Package gin serves Gin requests with a container per request.
//
//	app := ioc.New(ioc.WithName("app"))
//
//	g := gin.New()
//	g.Use(iocgin.RequestContainer(app, iocgin.WithSetup(
//	    func(c ioc.MutableContainer, ctx *gin.Context) error {
//	        _, err := c.AddComponent(nil, NewUserController)
//	        return err
//	    })))
//	g.GET("/users/:id", iocgin.Handle((*UserController).GetByID))
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/web"
)

// Setup registers request components in a new request container.
type Setup func(ioc.MutableContainer, *gin.Context) error

// Config holds the configuration of the request container middleware.
type Config struct {
	// ErrorHandler answers requests whose container could not be set up or
	// started. The default aborts with a 500 JSON body.
	ErrorHandler func(*gin.Context, error)

	// CloseErrorHandler receives errors from stopping and disposing a
	// request container. The default logs them through logrus.
	CloseErrorHandler func(error)

	Setups           []Setup
	ContainerOptions []ioc.Option
}

// Option configures the middleware.
type Option func(*Config)

func WithErrorHandler(h func(*gin.Context, error)) Option {
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
//
//	iocgin.WithSetup(func(c ioc.MutableContainer, ctx *gin.Context) error {
//	    _, err := c.AddInstance("user", ctx.GetString("user"))
//	    return err
//	})
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

func internalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			internalError(c)
		},
		CloseErrorHandler: func(err error) {
			logrus.WithError(err).Error("failed to close request container")
		},
	}
}

// RequestContainer returns middleware that serves each request with its
// own container. The container holds the *gin.Context and the
// *http.Request, and is attached to the request context.
func RequestContainer(parent ioc.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx *gin.Context) {
		wcfg := &web.Config{
			ContainerOptions: cfg.ContainerOptions,
			Setups: []web.Setup{func(c ioc.MutableContainer, _ *http.Request) error {
				if _, err := c.AddInstance(ioc.TypeKey[*gin.Context](), ctx); err != nil {
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

		c, err := web.Open(ctx.Request.Context(), parent, wcfg, ctx.Request)
		if err != nil {
			cfg.ErrorHandler(ctx, err)
			return
		}
		defer func() {
			if err := web.Close(ctx.Request.Context(), c); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		ctx.Request = ctx.Request.WithContext(web.NewContext(ctx.Request.Context(), c))
		ctx.Next()
	}
}

// FromContext returns the request container of ctx.
func FromContext(ctx *gin.Context) (ioc.MutableContainer, error) {
	return web.FromContext(ctx.Request.Context())
}

// HandlerConfig holds the configuration of Handle.
type HandlerConfig struct {
	PanicRecovery bool

	PanicHandler           func(*gin.Context, any)
	ContainerErrorHandler  func(*gin.Context, error)
	ResolutionErrorHandler func(*gin.Context, error)
}

// HandlerOption configures Handle.
type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics. It only runs with
// WithPanicRecovery(true).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, v any) {
			logrus.WithField("panic", v).Error("panic in handler")
			internalError(c)
		},
		ContainerErrorHandler: func(c *gin.Context, err error) {
			logrus.WithError(err).Error("no request container")
			internalError(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			logrus.WithError(err).Error("failed to resolve controller")
			internalError(c)
		},
	}
}

// Handle wraps a controller method. The controller T is resolved by type
// from the request container on every request.
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(ctx, v)
				}
			}()
		}

		c, err := FromContext(ctx)
		if err != nil {
			cfg.ContainerErrorHandler(ctx, err)
			return
		}

		controller, err := ioc.ResolveContext[T](ctx.Request.Context(), c)
		if err != nil {
			cfg.ResolutionErrorHandler(ctx, err)
			return
		}

		method(controller, ctx)
	}
}
