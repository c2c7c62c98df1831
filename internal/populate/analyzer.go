// Package populate decides which fields and relations a request selects.
//
// An Analyzer expands the populate keys of one request against the metadata
// bag of the destination shape, then answers, per member path, which direct
// fields and which references belong in the projection.
//
// Key forms after expansion:
//
//	#            every node of the bag
//	N*           every node at most N levels below the root
//	path.N*      path and every node at most N levels below it
//	path*        the node at path (ancestors are added implicitly)
//	path.field   restricts the direct fields selected at path
package populate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/meta"
)

var levelKeyRe = regexp.MustCompile(`^(?:(.+)\.)?(\d+)\*$`)

// Analyzer is immutable after New and safe for concurrent use.
type Analyzer struct {
	bag  *meta.Bag
	keys descriptor.PopulateKeySet
}

// New expands requested against bag.
func New(bag *meta.Bag, requested descriptor.PopulateKeySet) *Analyzer {
	return &Analyzer{bag: bag, keys: resolve(bag, requested)}
}

// Bag returns the metadata bag the analyzer reads.
func (a *Analyzer) Bag() *meta.Bag { return a.bag }

// Keys returns the expanded key set.
func (a *Analyzer) Keys() descriptor.PopulateKeySet { return a.keys }

// Equal reports whether both analyzers select the same keys over the same root.
func (a *Analyzer) Equal(other *Analyzer) bool {
	if a == nil || other == nil {
		return a == other
	}
	return strings.EqualFold(a.bag.Root(), other.bag.Root()) && a.keys.Equal(other.keys)
}

func resolve(bag *meta.Bag, requested descriptor.PopulateKeySet) descriptor.PopulateKeySet {
	out := descriptor.NewKeySet()
	for _, key := range requested.Keys() {
		if key == descriptor.KeyAll {
			for _, p := range bag.Paths() {
				out.Add(p.PopulateKey())
			}
			continue
		}

		out.Add(descriptor.KeyRoot)

		if m := levelKeyRe.FindStringSubmatch(key); m != nil {
			depth, err := strconv.Atoi(m[2])
			if err == nil {
				expandLevel(bag, memberpath.New(m[1]), depth, &out)
				continue
			}
		}

		out.Add(ancestorKeys(key)...)
		out.Add(key)
	}
	return out
}

// expandLevel adds every node at or below root whose depth does not exceed
// root's depth plus n.
func expandLevel(bag *meta.Bag, root memberpath.Path, n int, out *descriptor.PopulateKeySet) {
	limit := root.Level() + n
	for _, p := range bag.Paths() {
		if p.HasPrefix(root) && p.Level() <= limit {
			out.Add(p.PopulateKey())
		}
	}
}

// ancestorKeys returns "a*", "a.b*" for the key "a.b.c" (or "a.b.c*").
func ancestorKeys(key string) []string {
	parts := strings.Split(strings.TrimSuffix(key, memberpath.Wildcard), memberpath.Separator)
	out := make([]string, 0, len(parts))
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], memberpath.Separator)+memberpath.Wildcard)
	}
	return out
}

// Selection lists the properties chosen at one node, in declaration order.
type Selection struct {
	Direct     []meta.Property
	References []meta.Property
	all        []meta.Property
}

// Properties returns direct fields and references interleaved in
// declaration order.
func (s Selection) Properties() []meta.Property { return s.all }

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return len(s.all) == 0 }

// Has reports whether the property named name is selected.
func (s Selection) Has(name string) bool {
	for _, p := range s.all {
		if strings.EqualFold(p.Field.Name, name) {
			return true
		}
	}
	return false
}

// Select returns what is selected at p. A node that is not populated, or
// not in the bag, selects nothing.
func (a *Analyzer) Select(p memberpath.Path) Selection {
	if !a.keys.Has(p.PopulateKey()) {
		return Selection{}
	}
	props, ok := a.bag.Lookup(p)
	if !ok {
		return Selection{}
	}

	fields := a.fieldSelection(p)
	var sel Selection
	for _, prop := range props {
		if prop.IsReference {
			if a.keys.Has(prop.Path.PopulateKey()) && a.bag.Has(prop.Path) {
				sel.References = append(sel.References, prop)
				sel.all = append(sel.all, prop)
			}
			continue
		}
		if len(fields) == 0 || fields[prop.Path.Value()] {
			sel.Direct = append(sel.Direct, prop)
			sel.all = append(sel.all, prop)
		}
	}
	return sel
}

// Populated reports whether the node at p is selected.
func (a *Analyzer) Populated(p memberpath.Path) bool {
	return a.keys.Has(p.PopulateKey()) && a.bag.Has(p)
}

// fieldSelection collects the plain keys naming a field directly below p.
func (a *Analyzer) fieldSelection(p memberpath.Path) map[string]bool {
	var out map[string]bool
	for _, key := range a.keys.Keys() {
		if key == descriptor.KeyAll || strings.Contains(key, memberpath.Wildcard) {
			continue
		}
		kp := memberpath.New(key)
		parent, ok := kp.Parent()
		if !ok || parent != p {
			continue
		}
		if out == nil {
			out = make(map[string]bool)
		}
		out[kp.Value()] = true
	}
	return out
}
