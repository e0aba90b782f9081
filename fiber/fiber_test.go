package fiber

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

type userStore struct {
	Name string
}

type userController struct {
	Store *userStore
	Ctx   *fiber.Ctx
}

func newUserController(store *userStore, ctx *fiber.Ctx) *userController {
	return &userController{Store: store, Ctx: ctx}
}

func (c *userController) Get(ctx *fiber.Ctx) error {
	return ctx.SendString(c.Store.Name + " " + c.Ctx.Params("id"))
}

func (c *userController) Panic(*fiber.Ctx) error {
	panic("controller panic")
}

func registerController(c ioc.MutableContainer, _ *fiber.Ctx) error {
	_, err := c.AddComponent(nil, newUserController)
	return err
}

func newRoot(t *testing.T) *ioc.DefaultContainer {
	t.Helper()

	root := ioc.New(ioc.WithName("app"))
	_, err := root.AddInstance(nil, &userStore{Name: "users"})
	require.NoError(t, err)
	return root
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRequestContainer(t *testing.T) {
	t.Run("attaches a request container", func(t *testing.T) {
		app := fiber.New()
		app.Use(RequestContainer(newRoot(t), WithSetup(registerController)))
		app.Get("/", func(ctx *fiber.Ctx) error {
			c, err := FromContext(ctx)
			require.NoError(t, err)

			ctl, err := ioc.Resolve[*userController](c)
			require.NoError(t, err)
			assert.Same(t, ctx, ctl.Ctx)

			return ctx.SendStatus(http.StatusNoContent)
		})

		code, _ := get(t, app, "/")
		assert.Equal(t, http.StatusNoContent, code)
	})

	t.Run("components are disposed after the request", func(t *testing.T) {
		rec := &testutil.Recorder{}

		app := fiber.New()
		app.Use(RequestContainer(ioc.New(), WithSetup(func(c ioc.MutableContainer, _ *fiber.Ctx) error {
			_, err := c.AddInstance("part", &testutil.Part{Name: "r", Rec: rec})
			return err
		})))
		app.Get("/", func(ctx *fiber.Ctx) error {
			rec.Record("|")
			return ctx.SendStatus(http.StatusOK)
		})

		get(t, app, "/")
		assert.Equal(t, "<r|>r!r", rec.String())
	})

	t.Run("failed setup goes through the error handler", func(t *testing.T) {
		boom := errors.New("setup failed")
		var got error

		app := fiber.New()
		app.Use(RequestContainer(ioc.New(),
			WithSetup(func(ioc.MutableContainer, *fiber.Ctx) error { return boom }),
			WithErrorHandler(func(ctx *fiber.Ctx, err error) error {
				got = err
				return ctx.SendStatus(http.StatusBadRequest)
			}),
		))
		app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendStatus(http.StatusOK) })

		code, _ := get(t, app, "/")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.ErrorIs(t, got, boom)
	})

	t.Run("default error handler answers JSON", func(t *testing.T) {
		app := fiber.New()
		app.Use(RequestContainer(ioc.New(),
			WithSetup(func(ioc.MutableContainer, *fiber.Ctx) error { return errors.New("x") })))
		app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendStatus(http.StatusOK) })

		code, body := get(t, app, "/")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, body)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves the controller", func(t *testing.T) {
		app := fiber.New()
		app.Use(RequestContainer(newRoot(t), WithSetup(registerController)))
		app.Get("/users/:id", Handle((*userController).Get))

		code, body := get(t, app, "/users/42")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "users 42", body)
	})

	t.Run("no request container", func(t *testing.T) {
		var got error

		app := fiber.New()
		app.Get("/", Handle((*userController).Get, WithContainerErrorHandler(func(ctx *fiber.Ctx, err error) error {
			got = err
			return ctx.SendStatus(http.StatusServiceUnavailable)
		})))

		code, _ := get(t, app, "/")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Error(t, got)
	})

	t.Run("controller not registered", func(t *testing.T) {
		var got error

		app := fiber.New()
		app.Use(RequestContainer(newRoot(t)))
		app.Get("/", Handle((*userController).Get, WithResolutionErrorHandler(func(ctx *fiber.Ctx, err error) error {
			got = err
			return ctx.SendStatus(http.StatusNotFound)
		})))

		code, _ := get(t, app, "/")
		assert.Equal(t, http.StatusNotFound, code)
		assert.True(t, ioc.IsNotFound(got))
	})

	t.Run("recovers from panics when enabled", func(t *testing.T) {
		var recovered any

		app := fiber.New()
		app.Use(RequestContainer(newRoot(t), WithSetup(registerController)))
		app.Get("/", Handle((*userController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(ctx *fiber.Ctx, v any) error {
				recovered = v
				return ctx.SendStatus(http.StatusTeapot)
			}),
		))

		code, _ := get(t, app, "/")
		assert.Equal(t, http.StatusTeapot, code)
		assert.Equal(t, "controller panic", recovered)
	})
}
