package gin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type userStore struct {
	Name string
}

type userController struct {
	Store *userStore
	Ctx   *gin.Context
}

func newUserController(store *userStore, ctx *gin.Context) *userController {
	return &userController{Store: store, Ctx: ctx}
}

func (c *userController) Get(ctx *gin.Context) {
	ctx.String(http.StatusOK, c.Store.Name+" "+c.Ctx.Param("id"))
}

func (c *userController) Panic(*gin.Context) {
	panic("controller panic")
}

func registerController(c ioc.MutableContainer, _ *gin.Context) error {
	_, err := c.AddComponent(nil, newUserController)
	return err
}

func newApp(t *testing.T) *ioc.DefaultContainer {
	t.Helper()

	app := ioc.New(ioc.WithName("app"))
	_, err := app.AddInstance(nil, &userStore{Name: "users"})
	require.NoError(t, err)
	return app
}

func serve(g *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRequestContainer(t *testing.T) {
	t.Run("attaches a request container", func(t *testing.T) {
		app := newApp(t)

		g := gin.New()
		g.Use(RequestContainer(app, WithSetup(registerController)))
		g.GET("/users/:id", func(ctx *gin.Context) {
			c, err := FromContext(ctx)
			require.NoError(t, err)

			ctl, err := ioc.Resolve[*userController](c)
			require.NoError(t, err)
			assert.Same(t, ctx, ctl.Ctx)

			req, err := ioc.Resolve[*http.Request](c)
			require.NoError(t, err)
			assert.Equal(t, "/users/7", req.URL.Path)

			ctx.Status(http.StatusNoContent)
		})

		assert.Equal(t, http.StatusNoContent, serve(g, "/users/7").Code)
	})

	t.Run("setups run in order", func(t *testing.T) {
		var order []int
		step := func(n int) Setup {
			return func(ioc.MutableContainer, *gin.Context) error {
				order = append(order, n)
				return nil
			}
		}

		g := gin.New()
		g.Use(RequestContainer(ioc.New(), WithSetup(step(1)), WithSetup(step(2))))
		g.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

		serve(g, "/")
		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("failed setup calls the error handler", func(t *testing.T) {
		boom := errors.New("setup failed")
		var got error

		g := gin.New()
		g.Use(RequestContainer(ioc.New(),
			WithSetup(func(ioc.MutableContainer, *gin.Context) error { return boom }),
			WithErrorHandler(func(ctx *gin.Context, err error) {
				got = err
				ctx.AbortWithStatus(http.StatusBadRequest)
			}),
		))
		g.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

		assert.Equal(t, http.StatusBadRequest, serve(g, "/").Code)
		assert.ErrorIs(t, got, boom)
	})

	t.Run("default error handler answers JSON", func(t *testing.T) {
		g := gin.New()
		g.Use(RequestContainer(ioc.New(),
			WithSetup(func(ioc.MutableContainer, *gin.Context) error { return errors.New("x") })))
		g.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

		rec := serve(g, "/")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves the controller", func(t *testing.T) {
		g := gin.New()
		g.Use(RequestContainer(newApp(t), WithSetup(registerController)))
		g.GET("/users/:id", Handle((*userController).Get))

		rec := serve(g, "/users/42")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "users 42", rec.Body.String())
	})

	t.Run("no request container", func(t *testing.T) {
		var got error

		g := gin.New()
		g.GET("/", Handle((*userController).Get, WithContainerErrorHandler(func(ctx *gin.Context, err error) {
			got = err
			ctx.AbortWithStatus(http.StatusServiceUnavailable)
		})))

		assert.Equal(t, http.StatusServiceUnavailable, serve(g, "/").Code)
		assert.Error(t, got)
	})

	t.Run("controller not registered", func(t *testing.T) {
		var got error

		g := gin.New()
		g.Use(RequestContainer(newApp(t)))
		g.GET("/", Handle((*userController).Get, WithResolutionErrorHandler(func(ctx *gin.Context, err error) {
			got = err
			ctx.AbortWithStatus(http.StatusNotFound)
		})))

		assert.Equal(t, http.StatusNotFound, serve(g, "/").Code)
		assert.True(t, ioc.IsNotFound(got))
	})

	t.Run("recovers from panics when enabled", func(t *testing.T) {
		var recovered any

		g := gin.New()
		g.Use(RequestContainer(newApp(t), WithSetup(registerController)))
		g.GET("/", Handle((*userController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(ctx *gin.Context, v any) {
				recovered = v
				ctx.AbortWithStatus(http.StatusTeapot)
			}),
		))

		assert.Equal(t, http.StatusTeapot, serve(g, "/").Code)
		assert.Equal(t, "controller panic", recovered)
	})

	t.Run("panics pass through by default", func(t *testing.T) {
		g := gin.New()
		g.Use(RequestContainer(newApp(t), WithSetup(registerController)))
		g.GET("/", Handle((*userController).Panic))

		assert.Panics(t, func() { serve(g, "/") })
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	cfg := defaultHandlerConfig()
	assert.False(t, cfg.PanicRecovery)
	assert.NotNil(t, cfg.PanicHandler)
	assert.NotNil(t, cfg.ContainerErrorHandler)
	assert.NotNil(t, cfg.ResolutionErrorHandler)
}
