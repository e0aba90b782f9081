package web

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/junioryono/ioc"
)

// HandlerConfig holds the configuration of Handle.
type HandlerConfig struct {
	PanicRecovery bool

	// PanicHandler answers a request whose handler panicked, when
	// PanicRecovery is set.
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler answers a request without a request container.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler answers a request whose controller could not be
	// resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures Handle.
type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			logrus.WithField("panic", v).Error("panic in handler")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ContainerErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logrus.WithError(err).Error("no request container")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logrus.WithError(err).Error("failed to resolve controller")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// NewHandlerConfig applies opts to DefaultHandlerConfig.
func NewHandlerConfig(opts ...HandlerOption) *HandlerConfig {
	cfg := DefaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Handle wraps a controller method. The controller T is resolved by type
// from the request container on every request.
//
//	mux.Handle("GET /users/{id}", web.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := NewHandlerConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := ioc.ResolveContext[T](r.Context(), c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
