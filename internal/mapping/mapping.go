// Package mapping describes how a destination shape is filled from a source
// shape.
//
// A TypeMap lists field correspondences for one (source, destination) pair.
// Projection consults a Provider for the pair it is asked to build; the
// in-memory Registry is the Provider used by the CLI and tests.
package mapping

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/populate/internal/shape"
)

// FieldMap describes how one destination field is produced.
type FieldMap struct {
	// Destination is the destination field name.
	Destination string `json:"destination" yaml:"destination"`

	// Source is a dotted member path in the source shape. Empty means the
	// same-named source field.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// From names an included source member; the field is resolved against
	// that member instead of the source record itself.
	From string `json:"from,omitempty" yaml:"from,omitempty"`

	// Ignored binds the destination type's zero value.
	Ignored bool `json:"ignored,omitempty" yaml:"ignored,omitempty"`

	// AllowNull guards a non-primitive, non-collection destination against a
	// null source by substituting the zero value.
	AllowNull bool `json:"allowNull,omitempty" yaml:"allowNull,omitempty"`
}

// SourcePath is the dotted path read from the source record, including any
// From prefix.
func (f FieldMap) SourcePath() string {
	src := f.Source
	if src == "" {
		src = f.Destination
	}
	if f.From == "" {
		return src
	}
	return f.From + "." + src
}

// TypeMap is the ordered field correspondence for one shape pair.
type TypeMap struct {
	Source      string     `json:"source" yaml:"source"`
	Destination string     `json:"destination" yaml:"destination"`
	Fields      []FieldMap `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field returns the map for a destination field, ignoring case.
func (m *TypeMap) Field(name string) (FieldMap, bool) {
	for _, f := range m.Fields {
		if strings.EqualFold(f.Destination, name) {
			return f, true
		}
	}
	return FieldMap{}, false
}

// Provider yields the field correspondence for a shape pair.
type Provider interface {
	Resolve(source, destination string) (*TypeMap, bool)
}

type pairKey struct{ source, destination string }

func keyOf(source, destination string) pairKey {
	return pairKey{strings.ToLower(source), strings.ToLower(destination)}
}

// Registry is an in-memory Provider. It is safe for concurrent use; maps
// must not be modified after registration.
type Registry struct {
	mu   sync.RWMutex
	maps map[pairKey]*TypeMap
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[pairKey]*TypeMap)}
}

// Register adds type maps. A shape pair may only be registered once.
func (r *Registry) Register(maps ...*TypeMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range maps {
		if m == nil || m.Source == "" || m.Destination == "" {
			return fmt.Errorf("type map needs a source and a destination")
		}
		k := keyOf(m.Source, m.Destination)
		if _, exists := r.maps[k]; exists {
			return fmt.Errorf("mapping %s -> %s already registered", m.Source, m.Destination)
		}
		r.maps[k] = m
	}
	return nil
}

// MustRegister is Register for static fixtures; it panics on error.
func (r *Registry) MustRegister(maps ...*TypeMap) *Registry {
	if err := r.Register(maps...); err != nil {
		panic(err)
	}
	return r
}

// Resolve implements Provider.
func (r *Registry) Resolve(source, destination string) (*TypeMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.maps[keyOf(source, destination)]
	return m, ok
}

// All returns every map sorted by source then destination.
func (r *Registry) All() []*TypeMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TypeMap, 0, len(r.maps))
	for _, m := range r.maps {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := keyOf(out[i].Source, out[i].Destination), keyOf(out[j].Source, out[j].Destination)
		if a.source != b.source {
			return a.source < b.source
		}
		return a.destination < b.destination
	})
	return out
}

// Validate checks every map against shapes: both shapes exist, every
// destination field exists, and every non-ignored source path resolves.
func (r *Registry) Validate(shapes *shape.Registry) error {
	var problems []string
	for _, m := range r.All() {
		src, ok := shapes.Lookup(m.Source)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s -> %s: unknown source shape", m.Source, m.Destination))
			continue
		}
		dst, ok := shapes.Lookup(m.Destination)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s -> %s: unknown destination shape", m.Source, m.Destination))
			continue
		}
		for _, f := range m.Fields {
			if _, ok := dst.Field(f.Destination); !ok {
				problems = append(problems, fmt.Sprintf("%s -> %s: destination has no field %q", m.Source, m.Destination, f.Destination))
				continue
			}
			if f.Ignored {
				continue
			}
			if _, err := shapes.ResolvePath(src, f.SourcePath()); err != nil {
				problems = append(problems, fmt.Sprintf("%s -> %s: field %q: %v", m.Source, m.Destination, f.Destination, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid mappings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SourceType resolves the type a destination field declared by owner reads
// from its source, using the first registered map into owner. It backs the
// dynamic passthrough lookup of the metadata resolver.
func (r *Registry) SourceType(shapes *shape.Registry, owner *shape.Shape, field shape.Field) (shape.Type, bool) {
	for _, m := range r.All() {
		if !strings.EqualFold(m.Destination, owner.Name) {
			continue
		}
		src, ok := shapes.Lookup(m.Source)
		if !ok {
			continue
		}
		path := field.Name
		if fm, ok := m.Field(field.Name); ok {
			if fm.Ignored {
				return shape.Type{}, false
			}
			path = fm.SourcePath()
		}
		t, err := shapes.ResolvePath(src, path)
		if err != nil {
			continue
		}
		if field.Type.Nullable {
			t.Nullable = true
		}
		return t, true
	}
	return shape.Type{}, false
}
