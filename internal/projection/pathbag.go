package projection

import (
	"sort"

	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/shape"
)

// Scope is one collection traversed on the way to a member: Collection is
// evaluated in the enclosing scope and Param binds each element.
type Scope struct {
	Collection expr.Node
	Param      *expr.Param
}

// PathInfo is what a compiled plan knows about one projected member.
type PathInfo struct {
	Path memberpath.Path

	// Access reads the member from the source. It may reference the Param
	// of the innermost scope.
	Access expr.Node

	// Field is the destination field the access fills.
	Field shape.Field

	// Scopes lists the collections between the root and Access, outermost
	// first. Empty for members reachable without crossing a collection.
	Scopes []Scope
}

// Type is the source type Access yields.
func (i PathInfo) Type() shape.Type { return i.Access.Type() }

// ThroughCollection reports whether reaching the member crosses a collection.
func (i PathInfo) ThroughCollection() bool { return len(i.Scopes) > 0 }

// PathBag maps member paths to their compiled access. The first access
// recorded for a path wins.
type PathBag struct {
	entries map[memberpath.Path]PathInfo
}

func newPathBag() *PathBag {
	return &PathBag{entries: make(map[memberpath.Path]PathInfo)}
}

// TryAdd records info unless its path is already present.
func (b *PathBag) TryAdd(info PathInfo) bool {
	if _, exists := b.entries[info.Path]; exists {
		return false
	}
	b.entries[info.Path] = info
	return true
}

// Lookup returns the access recorded for p.
func (b *PathBag) Lookup(p memberpath.Path) (PathInfo, bool) {
	info, ok := b.entries[p]
	return info, ok
}

// Len returns the number of recorded paths.
func (b *PathBag) Len() int { return len(b.entries) }

// Paths returns every recorded path, shallowest first and then alphabetically.
func (b *PathBag) Paths() []memberpath.Path {
	out := make([]memberpath.Path, 0, len(b.entries))
	for p := range b.entries {
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
