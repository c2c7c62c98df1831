package meta

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/shape"
)

// DynamicFunc resolves the concrete type behind a dynamic passthrough field
// declared by owner. It returns false when the field has no known source.
type DynamicFunc func(owner *shape.Shape, field shape.Field) (shape.Type, bool)

// Cache stores bags by root shape. Implementations must tolerate concurrent
// LoadOrCompute calls; computing the same bag twice is harmless.
type Cache interface {
	LoadOrCompute(key string, compute func() *Bag) *Bag
}

// NewCache returns the default process cache backed by an xsync map.
func NewCache() Cache {
	return &mapCache{m: xsync.NewMap[string, *Bag]()}
}

type mapCache struct {
	m *xsync.Map[string, *Bag]
}

func (c *mapCache) LoadOrCompute(key string, compute func() *Bag) *Bag {
	bag, _ := c.m.LoadOrCompute(key, func() (*Bag, bool) {
		return compute(), false
	})
	return bag
}

// Resolver builds and caches metadata bags over a shape registry.
type Resolver struct {
	shapes  *shape.Registry
	dynamic DynamicFunc
	cache   Cache
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDynamic installs the lookup for dynamic passthrough fields. Without it
// dynamic fields are leaves.
func WithDynamic(fn DynamicFunc) Option {
	return func(r *Resolver) { r.dynamic = fn }
}

// WithCache replaces the process cache, e.g. with a fresh one per test.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver over shapes.
func NewResolver(shapes *shape.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		shapes: shapes,
		cache:  NewCache(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Shapes returns the registry the resolver reads.
func (r *Resolver) Shapes() *shape.Registry { return r.shapes }

// Bag returns the cached bag for the named shape, building it on first use.
func (r *Resolver) Bag(shapeName string) (*Bag, error) {
	s, ok := r.shapes.Lookup(shapeName)
	if !ok {
		return nil, fmt.Errorf("unknown shape %q", shapeName)
	}
	return r.cache.LoadOrCompute(strings.ToLower(s.Name), func() *Bag {
		return r.Build(s)
	}), nil
}

// frame is one pending node on the traversal stack.
type frame struct {
	shape *shape.Shape
	path  memberpath.Path
}

// declKey identifies a field declaration independent of where it is reached.
func declKey(owner *shape.Shape, f shape.Field) string {
	return strings.ToLower(owner.Name) + "." + strings.ToLower(f.Name)
}

// Build walks root without consulting the cache.
func (r *Resolver) Build(root *shape.Shape) *Bag {
	bag := &Bag{root: root.Name, nodes: make(map[memberpath.Path]*Node)}

	// firstDepth records the depth at which each field declaration was first
	// pushed. A declaration may be pushed again at that depth or one deeper.
	firstDepth := make(map[string]int)

	stack := arraystack.New()
	stack.Push(frame{shape: root, path: memberpath.Root})

	for !stack.Empty() {
		v, _ := stack.Pop()
		fr := v.(frame)
		if bag.Has(fr.path) {
			continue
		}

		node := &Node{Path: fr.path, Shape: fr.shape}
		bag.nodes[fr.path] = node
		depth := fr.path.Level() + 1

		for _, f := range fr.shape.Fields {
			if f.Ignore {
				continue
			}
			prop := Property{
				Owner: fr.shape.Name,
				Field: f,
				Path:  fr.path.Child(f.Name),
				Type:  r.effectiveType(fr.shape, f),
			}

			target, isRef := r.referenceTarget(prop.Type)
			if !isRef {
				node.Properties = append(node.Properties, prop)
				continue
			}

			key := declKey(fr.shape, f)
			first, seen := firstDepth[key]
			if !seen {
				firstDepth[key] = depth
			} else if depth > first+1 {
				r.logger.Debug("reference cycle cut",
					"shape", root.Name,
					"path", prop.Path.Value(),
					"first_depth", first,
				)
				continue
			}

			prop.IsReference = true
			node.Properties = append(node.Properties, prop)
			stack.Push(frame{shape: target, path: prop.Path})
		}
	}

	return bag
}

// effectiveType replaces a dynamic field's type with the type it passes through.
func (r *Resolver) effectiveType(owner *shape.Shape, f shape.Field) shape.Type {
	if f.Type.Leaf().Kind != shape.KindDynamic || r.dynamic == nil {
		return f.Type
	}
	if t, ok := r.dynamic(owner, f); ok {
		return t
	}
	return f.Type
}

// referenceTarget returns the shape a field of type t expands into.
func (r *Resolver) referenceTarget(t shape.Type) (*shape.Shape, bool) {
	if !r.shapes.IsReference(t) {
		return nil, false
	}
	target, ok := r.shapes.Lookup(t.Leaf().Shape)
	if !ok {
		return nil, false
	}
	return target, true
}

// SearchFields lists the searchable fields of the named shape whose owning
// node lies at most depth levels below the root, in bag order. depth 0 means
// root fields only.
func (r *Resolver) SearchFields(shapeName string, depth int) ([]memberpath.Path, error) {
	bag, err := r.Bag(shapeName)
	if err != nil {
		return nil, err
	}

	var out []memberpath.Path
	for _, p := range bag.Paths() {
		if p.Level() > depth {
			continue
		}
		props, _ := bag.Lookup(p)
		for _, prop := range props {
			if prop.IsReference || prop.Type.IsCollection() {
				continue
			}
			f := prop.Field
			f.Type = prop.Type
			if f.Searchable() {
				out = append(out, prop.Path)
			}
		}
	}
	return out, nil
}
