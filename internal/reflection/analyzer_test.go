package reflection_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/junioryono/ioc/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type database struct{ dsn string }

type logger interface{ Log(string) }

type service struct {
	db  *database
	log logger
}

func newService(db *database, log logger) *service { return &service{db: db, log: log} }

func newServiceErr(db *database) (*service, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	return &service{db: db}, nil
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := reflection.New()

	t.Run("plain constructor", func(t *testing.T) {
		info, err := a.Analyze(newService)
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(&service{}), info.Result)
		assert.False(t, info.HasErrorReturn)
		require.Len(t, info.Parameters, 2)
		assert.Equal(t, reflect.TypeOf(&database{}), info.Parameters[0].Type)
		assert.Equal(t, reflect.TypeOf((*logger)(nil)).Elem(), info.Parameters[1].Type)
		assert.Equal(t, 1, info.Parameters[1].Index)
	})

	t.Run("error return", func(t *testing.T) {
		info, err := a.Analyze(newServiceErr)
		require.NoError(t, err)
		assert.True(t, info.HasErrorReturn)

		_, err = info.Call([]reflect.Value{reflect.Zero(reflect.TypeOf(&database{}))})
		assert.EqualError(t, err, "db required")

		v, err := info.Call([]reflect.Value{reflect.ValueOf(&database{dsn: "x"})})
		require.NoError(t, err)
		assert.Equal(t, "x", v.(*service).db.dsn)
	})

	t.Run("cache hit", func(t *testing.T) {
		before := a.Len()
		_, err := a.Analyze(newService)
		require.NoError(t, err)
		assert.Equal(t, before, a.Len())
	})

	t.Run("closures keep their own value", func(t *testing.T) {
		mk := func(n int) func() int { return func() int { return n } }

		one, err := a.Analyze(mk(1))
		require.NoError(t, err)
		two, err := a.Analyze(mk(2))
		require.NoError(t, err)

		v1, _ := one.Call(nil)
		v2, _ := two.Call(nil)
		assert.Equal(t, 1, v1)
		assert.Equal(t, 2, v2)
	})

	tests := []struct {
		name string
		fn   any
		want error
	}{
		{"nil", nil, reflection.ErrNilConstructor},
		{"typed nil", (func() int)(nil), reflection.ErrNilConstructor},
		{"not a function", 42, reflection.ErrNotFunction},
		{"variadic", func(xs ...int) int { return len(xs) }, reflection.ErrVariadic},
		{"no returns", func() {}, reflection.ErrBadReturns},
		{"only error", func() error { return nil }, reflection.ErrBadReturns},
		{"second not error", func() (int, int) { return 0, 0 }, reflection.ErrBadReturns},
		{"three returns", func() (int, int, error) { return 0, 0, nil }, reflection.ErrBadReturns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(tt.fn)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTypeHelpers(t *testing.T) {
	intT := reflect.TypeOf(0)
	strT := reflect.TypeOf("")
	ptrT := reflect.TypeOf(&database{})
	ifaceT := reflect.TypeOf((*logger)(nil)).Elem()
	sliceT := reflect.TypeOf([]logger{})
	bytesT := reflect.TypeOf([]byte{})

	assert.True(t, reflection.IsPrimitive(intT))
	assert.True(t, reflection.IsPrimitive(strT))
	assert.False(t, reflection.IsPrimitive(ptrT))

	assert.True(t, reflection.IsNillable(ptrT))
	assert.True(t, reflection.IsNillable(ifaceT))
	assert.False(t, reflection.IsNillable(intT))

	assert.True(t, reflection.IsCollection(sliceT))
	assert.True(t, reflection.IsCollection(reflect.TypeOf(map[string]logger{})))
	assert.False(t, reflection.IsCollection(bytesT))

	assert.True(t, reflection.IsConcrete(ptrT))
	assert.False(t, reflection.IsConcrete(ifaceT))
	assert.False(t, reflection.IsConcrete(reflect.TypeOf(newService)))

	v, ok := reflection.Convert(int32(7), reflect.TypeOf(int64(0)))
	require.True(t, ok)
	assert.Equal(t, int64(7), v.Interface())

	_, ok = reflection.Convert("7", intT)
	assert.False(t, ok)

	_, ok = reflection.Convert(300, reflect.TypeOf(int8(0)))
	assert.False(t, ok)
	_, ok = reflection.Convert(-1, reflect.TypeOf(uint32(0)))
	assert.False(t, ok)
	_, ok = reflection.Convert(2.5, intT)
	assert.False(t, ok)
	v, ok = reflection.Convert(uint8(255), reflect.TypeOf(int16(0)))
	require.True(t, ok)
	assert.Equal(t, int16(255), v.Interface())
	v, ok = reflection.Convert(4.0, reflect.TypeOf(uint(0)))
	require.True(t, ok)
	assert.Equal(t, uint(4), v.Interface())

	_, ok = reflection.Convert(nil, intT)
	assert.False(t, ok)

	v, ok = reflection.Convert(nil, ptrT)
	require.True(t, ok)
	assert.True(t, v.IsNil())

	z := reflection.Zero(ptrT)
	assert.NotNil(t, z.Interface().(*database))

	assert.Equal(t, "*database", reflection.FormatType(ptrT))
	assert.Equal(t, "[]logger", reflection.FormatType(sliceT))
	assert.Equal(t, "func(*database, logger) *service", reflection.FormatType(reflect.TypeOf(newService)))
	assert.Equal(t, "<nil>", reflection.FormatType(nil))
}
