package testutil

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// AssertResolvable resolves T from c and fails the test on error.
func AssertResolvable[T any](t *testing.T, c ioc.Container) T {
	t.Helper()

	v, err := ioc.Resolve[T](c)
	require.NoError(t, err, "failed to resolve %s", reflect.TypeFor[T]())
	return v
}

// AssertSameInstance resolves T twice and asserts both are the same pointer.
func AssertSameInstance[T any](t *testing.T, c ioc.Container) {
	t.Helper()

	first := AssertResolvable[T](t, c)
	second := AssertResolvable[T](t, c)
	assert.Same(t, any(first), any(second), "expected one cached instance of %s", reflect.TypeFor[T]())
}

// AssertDistinctInstances resolves T twice and asserts two different pointers.
func AssertDistinctInstances[T any](t *testing.T, c ioc.Container) {
	t.Helper()

	first := AssertResolvable[T](t, c)
	second := AssertResolvable[T](t, c)
	assert.NotSame(t, any(first), any(second), "expected a new instance of %s each time", reflect.TypeFor[T]())
}

// AssertNotFound asserts that key has no component in c.
func AssertNotFound(t *testing.T, c ioc.Container, key any) {
	t.Helper()

	_, err := c.GetComponent(key)
	require.Error(t, err)
	assert.True(t, ioc.IsNotFound(err), "expected not found, got %v", err)
}

// AssertLifecycle runs start, stop and dispose on c and compares the recorded
// events with want.
func AssertLifecycle(t *testing.T, c ioc.MutableContainer, rec *Recorder, want string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Dispose(ctx))
	assert.Equal(t, want, rec.String())
}
