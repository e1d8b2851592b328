package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownType      = errors.New("unknown check type")
	ErrCategoryNotFound = errors.New("check category not found")
)

// Loader returns the ordered checks to evaluate for a server's categories.
type Loader interface {
	Load(categories []string, opts *Options) ([]*Check, error)
}

type LoaderFunc func(categories []string, opts *Options) ([]*Check, error)

func (f LoaderFunc) Load(categories []string, opts *Options) ([]*Check, error) {
	return f(categories, opts)
}

// Definition is one entry of a category file. Type-specific fields stay in
// the raw node and are decoded by the matching Builder.
type Definition struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Dependencies []string `yaml:"dependencies"`

	node *yaml.Node
}

// Decode unmarshals the full definition into v.
func (d Definition) Decode(v any) error {
	if d.node == nil {
		return nil
	}
	return d.node.Decode(v)
}

// Builder constructs a fresh Runner from a definition.
type Builder func(def Definition) (Runner, error)

// FileLoader reads "<Dir>/<category>.yaml" files, each a YAML list of
// definitions. Parsed files are cached; runners are built fresh on every Load.
type FileLoader struct {
	Dir      string
	Builders map[string]Builder

	mu    sync.Mutex
	cache map[string][]Definition
}

func NewFileLoader(dir string, builders map[string]Builder) *FileLoader {
	return &FileLoader{Dir: dir, Builders: builders, cache: make(map[string][]Definition)}
}

// Load builds the checks for the given categories in file order. The first
// definition of a name wins. The gate is prepended when no category defines it.
func (l *FileLoader) Load(categories []string, opts *Options) ([]*Check, error) {
	seen := make(map[string]bool)
	var out []*Check
	for _, cat := range categories {
		defs, err := l.definitions(cat)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if seen[def.Name] {
				continue
			}
			c, err := l.build(def)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}
			c.Options = opts
			seen[def.Name] = true
			out = append(out, c)
		}
	}
	if !seen[GateName] {
		gate, err := l.build(Definition{Name: GateName, Type: GateName})
		if err != nil {
			return nil, err
		}
		gate.Options = opts
		out = append([]*Check{gate}, out...)
	}
	return out, nil
}

func (l *FileLoader) build(def Definition) (*Check, error) {
	b, ok := l.Builders[def.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q for check %q", ErrUnknownType, def.Type, def.Name)
	}
	r, err := b(def)
	if err != nil {
		return nil, fmt.Errorf("build check %q: %w", def.Name, err)
	}
	return New(def.Name, def.Dependencies, r), nil
}

func (l *FileLoader) definitions(category string) ([]Definition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache == nil {
		l.cache = make(map[string][]Definition)
	}
	if defs, ok := l.cache[category]; ok {
		return defs, nil
	}
	defs, err := readCategory(filepath.Join(l.Dir, category+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}
	l.cache[category] = defs
	return defs, nil
}

func readCategory(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defs := make([]Definition, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		var d Definition
		if err := n.Decode(&d); err != nil {
			return nil, fmt.Errorf("parse %s entry %d: %w", path, i, err)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("%s entry %d: missing name", path, i)
		}
		if d.Type == "" {
			d.Type = d.Name
		}
		d.node = n
		defs = append(defs, d)
	}
	return defs, nil
}
