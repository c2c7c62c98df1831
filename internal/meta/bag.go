package meta

import (
	"sort"

	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/shape"
)

// Property is one field declared at a bag node.
type Property struct {
	// Owner is the shape declaring the field.
	Owner string
	Field shape.Field

	// Path is the full member path of the field.
	Path memberpath.Path

	// IsReference marks a record (or collection of records) that the
	// populate analyzer may expand.
	IsReference bool

	// Type is the effective type: the declared type, or for a dynamic
	// passthrough field the type it resolves to.
	Type shape.Type
}

// Node is the shape reached at one member path and the properties it declares.
type Node struct {
	Path       memberpath.Path
	Shape      *shape.Shape
	Properties []Property
}

// Bag is the metadata graph of one root shape keyed by member path.
// A Bag is immutable once built and safe for concurrent reads.
type Bag struct {
	root  string
	nodes map[memberpath.Path]*Node
}

// Root names the shape the bag was built from.
func (b *Bag) Root() string { return b.root }

// Lookup returns the properties declared at p.
func (b *Bag) Lookup(p memberpath.Path) ([]Property, bool) {
	n, ok := b.nodes[p]
	if !ok {
		return nil, false
	}
	return n.Properties, true
}

// Node returns the node at p.
func (b *Bag) Node(p memberpath.Path) (*Node, bool) {
	n, ok := b.nodes[p]
	return n, ok
}

// Has reports whether p is a node of the bag.
func (b *Bag) Has(p memberpath.Path) bool {
	_, ok := b.nodes[p]
	return ok
}

// Len returns the number of nodes.
func (b *Bag) Len() int { return len(b.nodes) }

// Paths returns every node path, shallowest first and then alphabetically.
func (b *Bag) Paths() []memberpath.Path {
	out := make([]memberpath.Path, 0, len(b.nodes))
	for p := range b.nodes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level() != out[j].Level() {
			return out[i].Level() < out[j].Level()
		}
		return out[i].Value() < out[j].Value()
	})
	return out
}

// Property finds the property at a full field path.
func (b *Bag) Property(p memberpath.Path) (Property, bool) {
	parent, ok := p.Parent()
	if !ok {
		return Property{}, false
	}
	props, ok := b.Lookup(parent)
	if !ok {
		return Property{}, false
	}
	for _, prop := range props {
		if prop.Path == p {
			return prop, true
		}
	}
	return Property{}, false
}
