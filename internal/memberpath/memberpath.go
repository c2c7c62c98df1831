// Package memberpath identifies a field inside a shape graph by its dotted path.
//
// Paths are case-insensitive: "Orders.Total" and "orders.total" are the same
// Path. Values are case-folded once at construction so a Path can be compared
// with == and used directly as a map key.
package memberpath

import (
	"strings"

	"golang.org/x/text/cases"
)

// Separator joins path segments.
const Separator = "."

// Wildcard is appended to a path to form its populate key.
const Wildcard = "*"

// Path is an immutable, case-folded dotted field path.
//
// The zero value is the root path (no segments, level 0, populate key "*").
type Path struct {
	value string
	level int
}

// Root is the path of the root record itself.
var Root = Path{}

// New builds a Path from a dotted string.
func New(path string) Path {
	return Join("", path)
}

// Join builds a Path from a root prefix and a member path relative to it.
// Either side may be empty.
func Join(root, member string) Path {
	root = strings.Trim(strings.TrimSpace(root), Separator)
	member = strings.Trim(strings.TrimSpace(member), Separator)

	var joined string
	switch {
	case root == "":
		joined = member
	case member == "":
		joined = root
	default:
		joined = root + Separator + member
	}

	value := Fold(joined)
	return Path{value: value, level: levelOf(value)}
}

// Fold returns the case-folded form used for every path and populate key comparison.
func Fold(s string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(s)
}

// Value returns the folded dotted path ("" for Root).
func (p Path) Value() string { return p.value }

// String implements fmt.Stringer.
func (p Path) String() string { return p.value }

// Level is the number of segments in the path. Root has level 0.
func (p Path) Level() int { return p.level }

// PopulateKey is the path followed by the wildcard ("*" for Root).
func (p Path) PopulateKey() string { return p.value + Wildcard }

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool { return p.value == "" }

// Child returns the path of the named field below p.
func (p Path) Child(name string) Path {
	return Join(p.value, name)
}

// Parent returns the path one level up. Root has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Root, false
	}
	idx := strings.LastIndex(p.value, Separator)
	if idx < 0 {
		return Root, true
	}
	return Join("", p.value[:idx]), true
}

// Last returns the final segment ("" for Root).
func (p Path) Last() string {
	idx := strings.LastIndex(p.value, Separator)
	return p.value[idx+1:]
}

// Segments splits the path into its folded segments.
func (p Path) Segments() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(p.value, Separator)
}

// Ancestors returns every proper ancestor of p below Root, shallowest first.
// For "a.b.c" it returns ["a", "a.b"].
func (p Path) Ancestors() []Path {
	segments := p.Segments()
	if len(segments) < 2 {
		return nil
	}
	out := make([]Path, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		out = append(out, Join("", strings.Join(segments[:i], Separator)))
	}
	return out
}

// HasPrefix reports whether p equals prefix or lies below it.
// Matching is segment-aware: "orders" is not a prefix of "ordersarchive".
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() {
		return true
	}
	return p.value == prefix.value || strings.HasPrefix(p.value, prefix.value+Separator)
}

// MarshalText renders the path as its folded value, so a Path can key a JSON object.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.value), nil
}

// UnmarshalText parses a dotted path.
func (p *Path) UnmarshalText(text []byte) error {
	*p = New(string(text))
	return nil
}

func levelOf(value string) int {
	if value == "" {
		return 0
	}
	return strings.Count(value, Separator) + 1
}
