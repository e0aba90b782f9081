package ioc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestEmptyContainer(t *testing.T) {
	t.Parallel()

	var c ioc.EmptyContainer
	_, err := c.GetComponent("anything")
	assert.True(t, ioc.IsNotFound(err))

	_, err = ioc.Resolve[*testutil.English](c)
	assert.True(t, ioc.IsNotFound(err))

	all, err := ioc.ResolveAll[testutil.Greeter](c)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Nil(t, c.Parent())
	assert.Equal(t, "empty", c.String())
}

func TestImmutableContainer(t *testing.T) {
	t.Parallel()

	inner := testutil.NewContainer(t,
		ioc.AddComponent("en", testutil.NewEnglish),
		ioc.AddComponent(nil, testutil.NewWelcome),
	)
	view := ioc.Immutable(inner)

	var asContainer ioc.Container = view
	_, mutable := asContainer.(ioc.MutableContainer)
	assert.False(t, mutable)

	w := testutil.AssertResolvable[*testutil.Welcome](t, view)
	assert.Same(t, w, testutil.AssertResolvable[*testutil.Welcome](t, inner))
	assert.Equal(t, "immutable("+inner.String()+")", view.String())

	_, err := inner.AddComponent("fr", testutil.NewFrench)
	require.NoError(t, err)
	assert.Len(t, view.GetComponentAdapters(), 3, "the view reads through to later registrations")
}

func TestCompositeContainer(t *testing.T) {
	ctx := context.Background()

	newPair := func(t *testing.T) (*ioc.DefaultContainer, *ioc.DefaultContainer) {
		t.Helper()
		first := testutil.NewContainer(t,
			ioc.AddComponent("greeting", testutil.NewEnglish),
			ioc.AddInstance("only-first", 1),
		)
		second := ioc.New(ioc.WithName("second"))
		require.NoError(t, second.Install(
			ioc.AddComponent("greeting", testutil.NewFrench),
			ioc.AddInstance("only-second", 2),
		))
		return first, second
	}

	t.Run("first member that knows a key answers", func(t *testing.T) {
		t.Parallel()

		first, second := newPair(t)
		c := ioc.Composite(first, second)

		g, err := ioc.ResolveKey[testutil.Greeter](c, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hello", g.Greet())

		n, err := ioc.ResolveKey[int](c, "only-second")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = c.GetComponent("nowhere")
		assert.True(t, ioc.IsNotFound(err))
	})

	t.Run("type lookups and collections", func(t *testing.T) {
		t.Parallel()

		first, second := newPair(t)
		c := ioc.Composite(second, first)

		fr, err := ioc.Resolve[*testutil.French](c)
		require.NoError(t, err)
		assert.Equal(t, "bonjour", fr.Greet())

		all, err := c.GetComponentsContext(ctx, ioc.TypeKey[testutil.Greeter]())
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Len(t, c.GetComponentAdapters(), 4)
	})

	t.Run("instances come from the owning member", func(t *testing.T) {
		t.Parallel()

		first, second := newPair(t)
		c := ioc.Composite(first, second)

		a := second.GetComponentAdapter("greeting")
		require.NotNil(t, a)
		v, err := c.ComponentInstance(ctx, a)
		require.NoError(t, err)

		direct, err := second.GetComponent("greeting")
		require.NoError(t, err)
		assert.Same(t, direct, v)

		foreign := ioc.NewInstanceAdapter("foreign", 3, nil, nil)
		_, err = c.ComponentInstance(ctx, foreign)
		assert.True(t, ioc.IsNotFound(err))
	})

	t.Run("string and parent", func(t *testing.T) {
		t.Parallel()

		first, second := newPair(t)
		c := ioc.Composite(first, second)
		assert.Nil(t, c.Parent())
		assert.Equal(t, "composite["+first.String()+", "+second.String()+"]", c.String())
	})
}
