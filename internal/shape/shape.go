package shape

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/scylladb/go-set/strset"
)

// CreatedAtField is the field a timestamped shape sorts by when no sort is requested.
const CreatedAtField = "createdAt"

// Field is one declared field of a shape.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`

	// Ignore excludes the field from metadata, projection and querying.
	Ignore bool `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	// NotSearch excludes the field from free-text search.
	NotSearch bool `json:"notSearch,omitempty" yaml:"notSearch,omitempty"`

	// Keyword marks an identifier field that free-text search may match.
	Keyword bool `json:"keyword,omitempty" yaml:"keyword,omitempty"`
}

// Searchable reports whether free-text search may match this field.
// Only plain text fields and identifiers explicitly marked as keywords qualify.
func (f Field) Searchable() bool {
	if f.Ignore || f.NotSearch {
		return false
	}
	switch f.Type.Kind {
	case KindString:
		return true
	case KindUUID:
		return f.Keyword
	}
	return false
}

// Shape is a named, ordered field layout.
type Shape struct {
	Name   string
	Fields []Field
}

// Field looks a field up by name, ignoring case.
func (s *Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Timestamped reports whether the shape declares a createdAt instant.
func (s *Shape) Timestamped() bool {
	f, ok := s.Field(CreatedAtField)
	return ok && f.Type.Kind == KindTime
}

// Registry holds every known shape, keyed case-insensitively by name.
//
// Registry is safe for concurrent use. Shapes must not be modified after
// registration.
type Registry struct {
	mu     sync.RWMutex
	shapes map[string]*Shape
	opaque *strset.Set
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shapes: make(map[string]*Shape),
		opaque: strset.New(),
	}
}

// Register adds shapes. A name may only be registered once.
func (r *Registry) Register(shapes ...*Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range shapes {
		if s == nil || s.Name == "" {
			return fmt.Errorf("shape without a name")
		}
		key := strings.ToLower(s.Name)
		if _, exists := r.shapes[key]; exists {
			return fmt.Errorf("shape %q already registered", s.Name)
		}
		seen := strset.New()
		for _, f := range s.Fields {
			fk := strings.ToLower(f.Name)
			if seen.Has(fk) {
				return fmt.Errorf("shape %q: duplicate field %q", s.Name, f.Name)
			}
			seen.Add(fk)
		}
		r.shapes[key] = s
	}
	return nil
}

// MustRegister is Register for static fixtures; it panics on error.
func (r *Registry) MustRegister(shapes ...*Shape) *Registry {
	if err := r.Register(shapes...); err != nil {
		panic(err)
	}
	return r
}

// MarkOpaque declares shapes that are stored and compared whole. Fields
// referencing them are leaves: never expanded, never populated.
func (r *Registry) MarkOpaque(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.opaque.Add(strings.ToLower(n))
	}
}

// Lookup returns the named shape.
func (r *Registry) Lookup(name string) (*Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shapes[strings.ToLower(name)]
	return s, ok
}

// Names returns every registered shape name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shapes))
	for _, s := range r.shapes {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// IsOpaque reports whether t is a leaf value despite being structured:
// an opaque kind, or a reference (or collection of references) to an opaque shape.
func (r *Registry) IsOpaque(t Type) bool {
	leaf := t.Leaf()
	if leaf.Kind == KindOpaque {
		return true
	}
	if leaf.Kind != KindObject {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opaque.Has(strings.ToLower(leaf.Shape))
}

// IsReference reports whether a field of type t leads to a nested record that
// metadata traversal expands: a record or a collection of records, excluding
// opaque shapes.
func (r *Registry) IsReference(t Type) bool {
	leaf := t.Leaf()
	if leaf.Kind != KindObject {
		return false
	}
	return !r.IsOpaque(t)
}

// Validate checks that every object reference resolves to a registered shape.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	for _, s := range r.shapes {
		for _, f := range s.Fields {
			leaf := f.Type.Leaf()
			if leaf.Kind == KindInvalid {
				problems = append(problems, fmt.Sprintf("%s.%s: invalid type", s.Name, f.Name))
				continue
			}
			if leaf.Kind != KindObject || r.opaque.Has(strings.ToLower(leaf.Shape)) {
				continue
			}
			if _, ok := r.shapes[strings.ToLower(leaf.Shape)]; !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: unknown shape %q", s.Name, f.Name, leaf.Shape))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid shapes: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ResolvePath follows a dotted field path from s and returns the type it
// reaches. Passing through a collection of records wraps the result in a
// collection, so "orders.total" from Customer is []decimal.
func (r *Registry) ResolvePath(s *Shape, path string) (Type, error) {
	segments := strings.Split(strings.Trim(path, "."), ".")
	if len(segments) == 0 || segments[0] == "" {
		return Type{}, fmt.Errorf("empty path")
	}

	cur := s
	wraps := 0
	var t Type
	for i, seg := range segments {
		f, ok := cur.Field(seg)
		if !ok {
			return Type{}, fmt.Errorf("%s has no field %q", cur.Name, seg)
		}
		t = f.Type
		if i == len(segments)-1 {
			break
		}
		wraps += t.CollectionDepth()
		leaf := t.Leaf()
		if leaf.Kind != KindObject {
			return Type{}, fmt.Errorf("%s.%s is not a record", cur.Name, f.Name)
		}
		next, ok := r.Lookup(leaf.Shape)
		if !ok {
			return Type{}, fmt.Errorf("unknown shape %q", leaf.Shape)
		}
		cur = next
	}
	for ; wraps > 0; wraps-- {
		t = CollectionOf(t)
	}
	return t, nil
}
