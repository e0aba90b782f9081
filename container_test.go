package ioc_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestContainer_Registration(t *testing.T) {
	t.Run("nil key defaults to the implementation type", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		a, err := c.AddComponent(nil, testutil.NewEnglish)
		require.NoError(t, err)
		assert.Equal(t, ioc.TypeKey[*testutil.English](), a.Key())
		assert.Equal(t, ioc.TypeKey[*testutil.English](), a.Implementation())

		english := testutil.AssertResolvable[*testutil.English](t, c)
		assert.Equal(t, "hello", english.Greet())
	})

	t.Run("instance key defaults to the dynamic type", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		cfg := &testutil.Config{DSN: "postgres://db"}
		a, err := c.AddInstance(nil, cfg)
		require.NoError(t, err)
		assert.Equal(t, ioc.TypeKey[*testutil.Config](), a.Key())
		assert.Same(t, cfg, testutil.AssertResolvable[*testutil.Config](t, c))
	})

	tests := []struct {
		name     string
		register func(c *ioc.DefaultContainer) error
		sentinel error
	}{
		{
			name: "duplicate key",
			register: func(c *ioc.DefaultContainer) error {
				if _, err := c.AddComponent("greeter", testutil.NewEnglish); err != nil {
					return err
				}
				_, err := c.AddComponent("greeter", testutil.NewFrench)
				return err
			},
			sentinel: ioc.ErrDuplicateKey,
		},
		{
			name: "nil implementation",
			register: func(c *ioc.DefaultContainer) error {
				_, err := c.AddComponent("x", nil)
				return err
			},
			sentinel: ioc.ErrNilImplementation,
		},
		{
			name: "nil instance",
			register: func(c *ioc.DefaultContainer) error {
				_, err := c.AddInstance("x", nil)
				return err
			},
			sentinel: ioc.ErrNilImplementation,
		},
		{
			name: "key that is not comparable",
			register: func(c *ioc.DefaultContainer) error {
				_, err := c.AddComponent([]string{"a"}, testutil.NewEnglish)
				return err
			},
			sentinel: ioc.ErrKeyNotComparable,
		},
		{
			name: "interface type as implementation",
			register: func(c *ioc.DefaultContainer) error {
				_, err := c.AddComponent(nil, ioc.TypeKey[testutil.Greeter]())
				return err
			},
			sentinel: ioc.ErrNotConcrete,
		},
		{
			name: "negative pool size",
			register: func(c *ioc.DefaultContainer) error {
				_, err := c.As(ioc.Pool(ioc.PoolConfig{MaxSize: -2})).AddComponent(nil, testutil.NewEnglish)
				return err
			},
			sentinel: ioc.ErrInvalidPoolSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.register(ioc.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "expected %v, got %v", tt.sentinel, err)
		})
	}

	t.Run("type implementation allocates a zero value", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		_, err := c.AddComponent(nil, ioc.TypeKey[*testutil.Config]())
		require.NoError(t, err)

		cfg := testutil.AssertResolvable[*testutil.Config](t, c)
		assert.Equal(t, testutil.Config{}, *cfg)
	})

	t.Run("duplicate key leaves the first registration", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		_, err := c.AddComponent("greeter", testutil.NewEnglish)
		require.NoError(t, err)
		_, err = c.AddComponent("greeter", testutil.NewFrench)
		var dup ioc.DuplicateKeyError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "greeter", dup.Key)

		g, err := ioc.ResolveKey[testutil.Greeter](c, "greeter")
		require.NoError(t, err)
		assert.Equal(t, "hello", g.Greet())
	})
}

func TestContainer_GetComponent(t *testing.T) {
	t.Run("nil key", func(t *testing.T) {
		t.Parallel()

		_, err := ioc.New().GetComponent(nil)
		assert.ErrorIs(t, err, ioc.ErrKeyNil)
	})

	t.Run("key that is not comparable", func(t *testing.T) {
		t.Parallel()

		_, err := ioc.New().GetComponent(map[string]int{})
		assert.ErrorIs(t, err, ioc.ErrKeyNotComparable)
	})

	t.Run("missing key names the container", func(t *testing.T) {
		t.Parallel()

		c := ioc.New(ioc.WithName("app"))
		_, err := c.GetComponent("missing")

		var nf ioc.ComponentNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "missing", nf.Key)
		assert.Equal(t, "app:0<|", nf.Container)
	})

	t.Run("dependency chain", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddInstance(nil, &testutil.Config{DSN: "postgres://db"}),
			ioc.AddComponent(nil, testutil.NewDatabase),
			ioc.AddComponent(nil, testutil.NewRepository),
			ioc.AddComponent(nil, testutil.NewService),
			ioc.AddComponent(nil, testutil.NewEnglish),
		)

		svc := testutil.AssertResolvable[*testutil.Service](t, c)
		assert.Equal(t, "postgres://db", svc.Repo.DB.Config.DSN)
		assert.Equal(t, "hello", svc.Greeter.Greet())
		assert.Same(t, svc.Repo, testutil.AssertResolvable[*testutil.Repository](t, c))
	})

	t.Run("GetComponents with nil type returns everything", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent("en", testutil.NewEnglish),
			ioc.AddInstance("answer", 42),
		)

		all, err := c.GetComponents(nil)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 42, all[1])
	})
}

func TestContainer_TypeLookup(t *testing.T) {
	greeter := ioc.TypeKey[testutil.Greeter]()

	t.Run("single candidate", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t, ioc.AddComponent("en", testutil.NewEnglish))
		g := testutil.AssertResolvable[testutil.Greeter](t, c)
		assert.Equal(t, "hello", g.Greet())
	})

	t.Run("several candidates are ambiguous", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent("en", testutil.NewEnglish),
			ioc.AddComponent("fr", testutil.NewFrench),
		)

		_, err := c.GetComponent(greeter)
		require.Error(t, err)
		assert.True(t, ioc.IsAmbiguous(err))

		var amb ioc.AmbiguousResolutionError
		require.True(t, errors.As(err, &amb))
		assert.Equal(t, []any{"en", "fr"}, amb.Candidates)
		assert.Contains(t, err.Error(), "To resolve this")
	})

	t.Run("class key wins over other candidates", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent("en", testutil.NewEnglish),
			ioc.AddComponent(greeter, testutil.NewFrench),
		)

		g := testutil.AssertResolvable[testutil.Greeter](t, c)
		assert.Equal(t, "bonjour", g.Greet())
	})

	t.Run("adapter lookup with a name breaks ties", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent("en", testutil.NewEnglish),
			ioc.AddComponent("fr", testutil.NewFrench),
		)

		a, err := c.GetComponentAdapterOfType(context.Background(), greeter, "fr")
		require.NoError(t, err)
		assert.Equal(t, "fr", a.Key())
	})

	t.Run("qualified key answers to its name", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent(ioc.Qualified{Type: greeter, Name: "primary"}, testutil.NewEnglish),
			ioc.AddComponent(ioc.Qualified{Type: greeter, Name: "backup"}, testutil.NewFrench),
		)

		a, err := c.GetComponentAdapterOfType(context.Background(), greeter, "backup")
		require.NoError(t, err)
		assert.Equal(t, ioc.Qualified{Type: greeter, Name: "backup"}, a.Key())
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		a, err := c.GetComponentAdapterOfType(context.Background(), greeter, "")
		require.NoError(t, err)
		assert.Nil(t, a)
		testutil.AssertNotFound(t, c, greeter)
	})

	t.Run("GetComponentAdaptersOfType keeps registration order", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t,
			ioc.AddComponent("fr", testutil.NewFrench),
			ioc.AddInstance("answer", 42),
			ioc.AddComponent("en", testutil.NewEnglish),
		)

		adapters := c.GetComponentAdaptersOfType(greeter)
		require.Len(t, adapters, 2)
		assert.Equal(t, "fr", adapters[0].Key())
		assert.Equal(t, "en", adapters[1].Key())
	})
}

func TestContainer_Children(t *testing.T) {
	t.Run("child sees the parent", func(t *testing.T) {
		t.Parallel()

		parent := testutil.NewContainer(t, ioc.AddComponent("en", testutil.NewEnglish))
		child := parent.MakeChildContainer()

		g, err := ioc.ResolveKey[testutil.Greeter](child, "en")
		require.NoError(t, err)
		assert.Equal(t, "hello", g.Greet())
		assert.Same(t, parent, child.Parent())
	})

	t.Run("parent does not see the child", func(t *testing.T) {
		t.Parallel()

		parent := ioc.New()
		child := parent.MakeChildContainer()
		_, err := child.AddInstance("user", "alice")
		require.NoError(t, err)

		testutil.AssertNotFound(t, parent, "user")
	})

	t.Run("child shadows the parent", func(t *testing.T) {
		t.Parallel()

		parent := testutil.NewContainer(t, ioc.AddComponent("greeter", testutil.NewEnglish))
		child := parent.MakeChildContainer()
		_, err := child.AddComponent("greeter", testutil.NewFrench)
		require.NoError(t, err)

		fromChild, err := ioc.ResolveKey[testutil.Greeter](child, "greeter")
		require.NoError(t, err)
		fromParent, err := ioc.ResolveKey[testutil.Greeter](parent, "greeter")
		require.NoError(t, err)

		assert.Equal(t, "bonjour", fromChild.Greet())
		assert.Equal(t, "hello", fromParent.Greet())
	})

	t.Run("type lookup prefers local candidates", func(t *testing.T) {
		t.Parallel()

		parent := testutil.NewContainer(t, ioc.AddComponent("en", testutil.NewEnglish))
		child := parent.MakeChildContainer()
		_, err := child.AddComponent("fr", testutil.NewFrench)
		require.NoError(t, err)

		g := testutil.AssertResolvable[testutil.Greeter](t, child)
		assert.Equal(t, "bonjour", g.Greet())
	})

	t.Run("parent component never sees child registrations", func(t *testing.T) {
		t.Parallel()

		parent := testutil.NewContainer(t,
			ioc.AddComponent("en", testutil.NewEnglish),
			ioc.AddComponentAs([]ioc.Characteristic{ioc.NoCache}, nil, testutil.NewWelcome),
		)
		child := parent.MakeChildContainer()
		_, err := child.AddComponent("fr", testutil.NewFrench)
		require.NoError(t, err)

		w := testutil.AssertResolvable[*testutil.Welcome](t, child)
		assert.Equal(t, "hello, world", w.Message())
	})

	t.Run("child cannot be its own parent", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		assert.ErrorIs(t, c.AddChildContainer(c), ioc.ErrChildIsSelf)
	})

	t.Run("add and remove children", func(t *testing.T) {
		t.Parallel()

		parent := ioc.New()
		other := ioc.New(ioc.WithParent(parent))
		require.NoError(t, parent.AddChildContainer(other))
		require.NoError(t, parent.AddChildContainer(other))
		assert.Len(t, parent.Children(), 1)

		assert.True(t, parent.RemoveChildContainer(other))
		assert.False(t, parent.RemoveChildContainer(other))
		assert.Empty(t, parent.Children())
	})
}

func TestContainer_String(t *testing.T) {
	t.Parallel()

	parent := ioc.New(ioc.WithName("app"))
	assert.Equal(t, "app:0<|", parent.String())

	_, err := parent.AddComponent(nil, testutil.NewEnglish)
	require.NoError(t, err)
	assert.Equal(t, "app:1<|", parent.String())

	child := parent.MakeChildContainer()
	child.SetName("request")
	assert.Equal(t, "request:0<app:1<|", child.String())

	unnamed := ioc.New()
	assert.Equal(t, unnamed.ID()[:8]+":0<|", unnamed.String())
}

func TestContainer_Remove(t *testing.T) {
	t.Run("by key", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t, ioc.AddComponent("en", testutil.NewEnglish))
		before := c.Generation()

		a, err := c.RemoveComponent("en")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "en", a.Key())
		assert.Greater(t, c.Generation(), before)
		testutil.AssertNotFound(t, c, "en")

		a, err = c.RemoveComponent("en")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("by instance", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t, ioc.AddComponent("en", testutil.NewEnglish))
		g := testutil.AssertResolvable[*testutil.English](t, c)

		a, err := c.RemoveComponentByInstance(g)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "en", a.Key())

		a, err = c.RemoveComponentByInstance(testutil.NewEnglish())
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("started component cannot be removed", func(t *testing.T) {
		t.Parallel()

		rec := &testutil.Recorder{}
		c := testutil.NewContainer(t,
			ioc.AddInstance(nil, rec),
			ioc.AddComponent("single", testutil.NewSingle),
		)
		ctx := context.Background()
		require.NoError(t, c.Start(ctx))

		_, err := c.RemoveComponent("single")
		require.Error(t, err)
		assert.True(t, ioc.IsLifecycleConflict(err))

		require.NoError(t, c.Stop(ctx))
		a, err := c.RemoveComponent("single")
		require.NoError(t, err)
		assert.NotNil(t, a)
	})
}

func TestContainer_Descriptor(t *testing.T) {
	tests := []struct {
		name  string
		chars []ioc.Characteristic
		impl  any
		want  string
	}{
		{name: "cached", impl: testutil.NewEnglish, want: "Cached-ConstructorInjector"},
		{name: "cached with lifecycle", impl: testutil.NewSingle, want: "Cached+Lifecycle-ConstructorInjector"},
		{name: "not cached", chars: []ioc.Characteristic{ioc.NoCache}, impl: testutil.NewEnglish, want: "ConstructorInjector"},
		{name: "locked", chars: []ioc.Characteristic{ioc.Lock}, impl: testutil.NewEnglish, want: "Locked-Cached-ConstructorInjector"},
		{name: "synchronized", chars: []ioc.Characteristic{ioc.Synchronize}, impl: testutil.NewEnglish, want: "Synchronized-Cached-ConstructorInjector"},
		{name: "pooled", chars: []ioc.Characteristic{ioc.Pool(ioc.PoolConfig{})}, impl: testutil.NewEnglish, want: "Pooled-ConstructorInjector"},
		{name: "stored", chars: []ioc.Characteristic{ioc.Store(ioc.NewStoring())}, impl: testutil.NewEnglish, want: "Stored-ConstructorInjector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := ioc.New()
			c.AddInstance(nil, &testutil.Recorder{})
			a, err := c.As(tt.chars...).AddComponent(nil, tt.impl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Descriptor())
		})
	}
}

func TestContainer_Disposed(t *testing.T) {
	t.Parallel()

	c := testutil.NewContainer(t, ioc.AddComponent(nil, testutil.NewEnglish))
	require.NoError(t, c.Dispose(context.Background()))

	_, err := c.GetComponent(reflect.TypeFor[*testutil.English]())
	assert.ErrorIs(t, err, ioc.ErrContainerDisposed)

	_, err = c.AddComponent("fr", testutil.NewFrench)
	assert.ErrorIs(t, err, ioc.ErrContainerDisposed)
}

func TestContainer_Monitor(t *testing.T) {
	t.Parallel()

	m := &testutil.RecordingMonitor{}
	c := ioc.New(ioc.WithMonitor(m))
	_, err := c.AddComponent("en", testutil.NewEnglish)
	require.NoError(t, err)

	_, err = c.GetComponent("en")
	require.NoError(t, err)
	_, err = c.GetComponent("missing")
	require.Error(t, err)

	assert.Equal(t, []string{"instantiating", "instantiated", "not-found"}, m.Kinds())
	assert.Equal(t, "missing", m.Events()[2].Key)
}
