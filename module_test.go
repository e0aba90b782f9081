package ioc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestModule(t *testing.T) {
	greetings := ioc.NewModule("greetings",
		ioc.AddComponent("en", testutil.NewEnglish),
		nil,
		ioc.AddComponent(nil, testutil.NewWelcome, ioc.Component("en")),
	)

	t.Run("install", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t, greetings)
		w := testutil.AssertResolvable[*testutil.Welcome](t, c)
		assert.Equal(t, "hello, world", w.Message())
	})

	t.Run("failures name the module", func(t *testing.T) {
		t.Parallel()

		app := ioc.NewModule("app",
			greetings,
			ioc.NewModule("again", ioc.AddComponent("en", testutil.NewFrench)),
		)

		err := ioc.New().Install(app)
		require.Error(t, err)
		assert.ErrorIs(t, err, ioc.ErrDuplicateKey)

		var outer ioc.ModuleError
		require.True(t, errors.As(err, &outer))
		assert.Equal(t, "app", outer.Module)

		var inner ioc.ModuleError
		require.True(t, errors.As(outer.Cause, &inner))
		assert.Equal(t, "again", inner.Module)
		assert.Contains(t, err.Error(), `module "app": module "again"`)
	})

	t.Run("install stops at the first failure", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		err := c.Install(
			ioc.AddInstance([]string{"not", "comparable"}, 1),
			ioc.AddComponent("late", testutil.NewEnglish),
		)
		require.ErrorIs(t, err, ioc.ErrKeyNotComparable)
		assert.Nil(t, c.GetComponentAdapter("late"))
	})

	t.Run("custom modules", func(t *testing.T) {
		t.Parallel()

		custom := func(c ioc.MutableContainer) error {
			_, err := c.As(ioc.NoCache).AddComponent("fresh", testutil.NewEnglish)
			return err
		}
		c := testutil.NewContainer(t, custom)

		a, err := ioc.ResolveKey[*testutil.English](c, "fresh")
		require.NoError(t, err)
		b, err := ioc.ResolveKey[*testutil.English](c, "fresh")
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})
}

func TestModule_Child(t *testing.T) {
	t.Parallel()

	c := testutil.NewContainer(t,
		ioc.AddComponent("en", testutil.NewEnglish),
		ioc.Child("web", ioc.AddComponent(nil, testutil.NewWelcome)),
	)

	children := c.Children()
	require.Len(t, children, 1)
	assert.Equal(t, "web:1<"+c.String(), children[0].String())

	w := testutil.AssertResolvable[*testutil.Welcome](t, children[0])
	assert.Equal(t, "hello, world", w.Message())
	testutil.AssertNotFound(t, c, ioc.TypeKey[*testutil.Welcome]())
}
