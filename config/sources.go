package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Separator joins the keys of nested YAML and JSON documents.
const Separator = "."

// Env reads dotenv files, ".env" when none are given. The process
// environment is left untouched. Later files override earlier ones.
func Env(files ...string) (*Properties, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	p := NewProperties("env")
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", f, err)
		}
		setSorted(p, values)
	}
	return p, nil
}

// EnvReader parses dotenv content from r.
func EnvReader(r io.Reader) (*Properties, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("config: parse dotenv: %w", err)
	}
	p := NewProperties("env")
	setSorted(p, values)
	return p, nil
}

// Environment takes the process environment variables starting with
// prefix, with the prefix removed from their names. An empty prefix takes
// every variable.
func Environment(prefix string) *Properties {
	p := NewProperties("environment")
	values := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
			values[name] = v
		}
	}
	setSorted(p, values)
	return p
}

// YAML decodes a YAML mapping from r. Nested mappings become dotted names,
// so "db: {host: x}" is the property "db.host". Sequences are kept whole.
func YAML(r io.Reader) (*Properties, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	p := NewProperties("yaml")
	flatten(p, "", doc)
	return p, nil
}

func YAMLFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return YAML(f)
}

// JSON decodes a JSON object from r the way YAML does. Integral numbers
// become int64 and the others float64.
func JSON(r io.Reader) (*Properties, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode json: %w", err)
	}
	p := NewProperties("json")
	flatten(p, "", doc)
	return p, nil
}

func JSONFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return JSON(f)
}

// CommandLine reads name=value arguments. Leading dashes are dropped and a
// bare name is the property "true".
//
//	props, err := config.CommandLine(os.Args[1:]...)
func CommandLine(args ...string) (*Properties, error) {
	return CommandLineSeparator('=', args...)
}

// CommandLineSeparator is CommandLine with a different separator.
func CommandLineSeparator(sep rune, args ...string) (*Properties, error) {
	p := NewProperties("command-line")
	for _, arg := range args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		parts := strings.Split(arg, string(sep))
		switch len(parts) {
		case 1:
			p.Set(parts[0], "true")
		case 2:
			p.Set(parts[0], parts[1])
		default:
			return nil, fmt.Errorf("config: argument %q has more than one %q: %w", arg, sep, ErrMalformedArgument)
		}
	}
	return p, nil
}

func setSorted(p *Properties, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, values[k])
	}
}

// flatten stores the leaves of a decoded document under dotted names, in
// sorted order within each level.
func flatten(p *Properties, prefix string, doc map[string]any) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + Separator + k
		}
		switch v := doc[k].(type) {
		case map[string]any:
			flatten(p, name, v)
		case map[any]any:
			nested := make(map[string]any, len(v))
			for nk, nv := range v {
				nested[fmt.Sprint(nk)] = nv
			}
			flatten(p, name, nested)
		case []any:
			p.Set(name, normalizeList(v))
		default:
			p.Set(name, normalize(v))
		}
	}
}

func normalizeList(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
