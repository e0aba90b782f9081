package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/config"
)

const yamlDoc = `
db:
  dsn: postgres://localhost/app
  size: 16
  timeout: 5s
http:
  port: "8080"
  debug: true
tags: [a, b]
ratios: [1, 2.5]
empty:
`

const jsonDoc = `{
  "db": {"dsn": "postgres://localhost/app", "size": 16, "load": 0.75},
  "http": {"port": 8080, "debug": true},
  "tags": ["a", "b"]
}`

type pool struct {
	dsn     string
	size    int
	timeout time.Duration
}

func newPool(dsn string, size int, timeout time.Duration) *pool {
	return &pool{dsn: dsn, size: size, timeout: timeout}
}

func TestYAML(t *testing.T) {
	t.Parallel()

	props, err := config.YAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"db.dsn", "db.size", "db.timeout", "http.debug", "http.port", "ratios", "tags"}, props.Keys())

	c, err := props.Container()
	require.NoError(t, err)
	assert.Equal(t, "yaml:7<|", c.String())

	size, err := config.Lookup[int](c, "db.size")
	require.NoError(t, err)
	assert.Equal(t, 16, size)

	timeout, err := config.Lookup[time.Duration](c, "db.timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)

	port, err := config.Lookup[uint16](c, "http.port")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), port)

	tags, err := config.Lookup[[]string](c, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	ratios, err := config.Lookup[[]float64](c, "ratios")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, ratios)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	props, err := config.JSON(strings.NewReader(jsonDoc))
	require.NoError(t, err)

	size, ok := props.Get("db.size")
	require.True(t, ok)
	assert.Equal(t, int64(16), size)

	load, ok := props.Get("db.load")
	require.True(t, ok)
	assert.Equal(t, 0.75, load)

	c, err := props.Container(ioc.WithName("settings"))
	require.NoError(t, err)
	assert.Equal(t, "settings:6<|", c.String())

	port, err := config.Lookup[int](c, "http.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	debug, err := config.Lookup[bool](c, "http.debug")
	require.NoError(t, err)
	assert.True(t, debug)

	tags, err := config.Lookup[[]string](c, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)
}

func TestMalformedDocuments(t *testing.T) {
	t.Parallel()

	_, err := config.YAML(strings.NewReader("db: [unclosed"))
	assert.Error(t, err)

	_, err = config.JSON(strings.NewReader(`{"db": }`))
	assert.Error(t, err)

	empty, err := config.YAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "app.yaml")
	jsonPath := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDoc), 0o600))

	y, err := config.YAMLFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 7, y.Len())

	j, err := config.JSONFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 6, j.Len())

	_, err = config.YAMLFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, ".env")
	local := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(base, []byte("DB_DSN=postgres://base\nDB_SIZE=4\n# comment\nexport MODE=dev\n"), 0o600))
	require.NoError(t, os.WriteFile(local, []byte("DB_SIZE=8\n"), 0o600))

	props, err := config.Env(base, local)
	require.NoError(t, err)
	assert.Equal(t, []string{"DB_DSN", "DB_SIZE", "MODE"}, props.Keys())

	c, err := props.Container()
	require.NoError(t, err)

	size, err := config.Lookup[int](c, "DB_SIZE")
	require.NoError(t, err)
	assert.Equal(t, 8, size)

	mode, err := config.Lookup[string](c, "MODE")
	require.NoError(t, err)
	assert.Equal(t, "dev", mode)

	_, err = config.Env(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestEnvReader(t *testing.T) {
	t.Parallel()

	props, err := config.EnvReader(strings.NewReader("B=2\nA=1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, props.Keys())
}

func TestEnvironment(t *testing.T) {
	t.Setenv("IOCTEST_PORT", "9090")
	t.Setenv("IOCTEST_NAME", "api")

	props := config.Environment("IOCTEST_")
	assert.Equal(t, []string{"NAME", "PORT"}, props.Keys())

	port, ok := props.Get("PORT")
	require.True(t, ok)
	assert.Equal(t, "9090", port)
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name string
		sep  rune
		args []string
		want map[string]any
		err  error
	}{
		{
			name: "pairs and flags",
			sep:  '=',
			args: []string{"--port=8080", "verbose", "-name=api", ""},
			want: map[string]any{"port": "8080", "verbose": "true", "name": "api"},
		},
		{
			name: "later wins",
			sep:  '=',
			args: []string{"port=1", "port=2"},
			want: map[string]any{"port": "2"},
		},
		{
			name: "custom separator",
			sep:  ':',
			args: []string{"port:8080"},
			want: map[string]any{"port": "8080"},
		},
		{
			name: "too many separators",
			sep:  '=',
			args: []string{"dsn=a=b"},
			err:  config.ErrMalformedArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			props, err := config.CommandLineSeparator(tt.sep, tt.args...)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)

			got := map[string]any{}
			for _, k := range props.Keys() {
				got[k], _ = props.Get(k)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("default separator", func(t *testing.T) {
		t.Parallel()

		props, err := config.CommandLine("debug")
		require.NoError(t, err)
		c, err := props.Container()
		require.NoError(t, err)
		assert.Equal(t, "command-line:1<|", c.String())

		debug, err := config.Lookup[bool](c, "debug")
		require.NoError(t, err)
		assert.True(t, debug)
	})
}

func TestProperties(t *testing.T) {
	t.Parallel()

	p := config.NewProperties("defaults").
		Set("a", 1).
		Set("b", 2).
		Set("a", 3)
	assert.Equal(t, []string{"a", "b"}, p.Keys())

	a, _ := p.Get("a")
	assert.Equal(t, 3, a)

	p.Set("b", nil)
	assert.Equal(t, []string{"a"}, p.Keys())

	override := config.NewProperties("override").Set("c", "x").Set("a", 4)
	p.Merge(override)
	assert.Equal(t, []string{"a", "c"}, p.Keys())
	a, _ = p.Get("a")
	assert.Equal(t, 4, a)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	c, err := config.NewProperties("props").
		Set("port", "http").
		Set("size", 16).
		Set("names", []any{"a", 1}).
		Container()
	require.NoError(t, err)

	_, err = config.Lookup[int](c, "port")
	assert.ErrorIs(t, err, config.ErrConversion)

	_, err = config.Lookup[int](c, "missing")
	assert.ErrorIs(t, err, config.ErrNoProperty)

	_, err = config.Lookup[[]int](c, "names")
	assert.ErrorIs(t, err, config.ErrConversion)

	size, err := config.Lookup[int8](c, "size")
	require.NoError(t, err)
	assert.Equal(t, int8(16), size)

	fallback, err := config.LookupOr(c, "missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, fallback)

	_, err = config.LookupOr(c, "port", 42)
	assert.Error(t, err)
}

func TestProperty(t *testing.T) {
	ctx := context.Background()

	settings := func(t *testing.T) *ioc.DefaultContainer {
		t.Helper()
		props, err := config.YAML(strings.NewReader(yamlDoc))
		require.NoError(t, err)
		c, err := props.Container()
		require.NoError(t, err)
		return c
	}

	t.Run("fills arguments from a parent", func(t *testing.T) {
		t.Parallel()

		c := ioc.New(ioc.WithParent(settings(t)))
		_, err := c.AddComponent(nil, newPool,
			config.Property("db.dsn"),
			config.Property("db.size"),
			config.Property("db.timeout"),
		)
		require.NoError(t, err)
		require.NoError(t, ioc.Verify(ctx, c))

		p, err := ioc.Resolve[*pool](c)
		require.NoError(t, err)
		assert.Equal(t, pool{dsn: "postgres://localhost/app", size: 16, timeout: 5 * time.Second}, *p)
	})

	t.Run("missing property", func(t *testing.T) {
		t.Parallel()

		c := ioc.New(ioc.WithParent(settings(t)))
		_, err := c.AddComponent(nil, newPool,
			config.Property("db.dsn"),
			config.Property("db.missing"),
			config.Property("db.timeout"),
		)
		require.NoError(t, err)

		assert.True(t, ioc.IsUnsatisfiable(ioc.Verify(ctx, c)))
		_, err = ioc.Resolve[*pool](c)
		assert.True(t, ioc.IsUnsatisfiable(err))
	})

	t.Run("unparsable property", func(t *testing.T) {
		t.Parallel()

		c := ioc.New(ioc.WithParent(settings(t)))
		_, err := c.AddComponent(nil, newPool,
			config.Property("db.dsn"),
			config.Property("db.dsn"),
			config.Property("db.timeout"),
		)
		require.NoError(t, err)

		_, err = ioc.Resolve[*pool](c)
		assert.ErrorIs(t, err, config.ErrConversion)
	})

	t.Run("visitor sees the property", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		_, err := c.AddComponent(nil, newPool,
			config.Property("db.dsn"),
			config.Property("db.size"),
			config.Property("db.timeout"),
		)
		require.NoError(t, err)

		var names []string
		require.NoError(t, c.Accept(ioc.VisitorFuncs{
			Parameter: func(p ioc.Parameter) error {
				names = append(names, p.(interface{ String() string }).String())
				return nil
			},
		}))
		assert.Equal(t, []string{"Property(db.dsn)", "Property(db.size)", "Property(db.timeout)"}, names)
	})
}
