package query

import (
	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/shape"
)

// Ordering is one sort key of a plan.
type Ordering struct {
	Path      string
	Key       expr.Node
	Direction descriptor.Direction
}

// Descending reports whether the key sorts high to low.
func (o Ordering) Descending() bool { return o.Direction == descriptor.Desc }

// compileSorts builds the ordering chain. With no sort requested, a
// timestamped source is ordered by its creation time, newest first.
func (c *compilation) compileSorts(sorts []descriptor.SortDescriptor) []Ordering {
	if len(sorts) == 0 {
		if c.opts.NoDefaultSort || !c.source.Timestamped() {
			return nil
		}
		return c.defaultSort()
	}

	var out []Ordering
	for _, s := range sorts {
		info, err := c.lookup(s.Path)
		if err != nil {
			c.drop("sort", s.String(), err.Error())
			continue
		}
		key, err := sortKey(info)
		if err != nil {
			c.drop("sort", s.String(), err.Error())
			continue
		}
		out = append(out, Ordering{Path: info.Path.Value(), Key: key, Direction: s.Direction})
	}
	return out
}

// defaultSort orders by the projected creation time when the projection
// exposes it, and by the source member otherwise.
func (c *compilation) defaultSort() []Ordering {
	def := descriptor.DefaultSort
	if info, err := c.lookup(def.Path); err == nil {
		if key, err := sortKey(info); err == nil {
			return []Ordering{{Path: info.Path.Value(), Key: key, Direction: def.Direction}}
		}
	}
	f, _ := c.source.Field(shape.CreatedAtField)
	key := expr.MemberOf(c.projection.Root, f.Name, f.Type)
	return []Ordering{{Path: memberpath.New(def.Path).Value(), Key: key, Direction: def.Direction}}
}

// sortKey reads the member as an orderable scalar. Through a collection
// the key is the maximum over the elements. Identifiers order by their
// text.
func sortKey(info projection.PathInfo) (expr.Node, error) {
	t := info.Type()
	var key expr.Node = info.Access

	if t.IsCollection() {
		if t.CollectionDepth() > 1 || !t.Elem.IsPrimitive() {
			return nil, dropped("%s is not orderable", t)
		}
		elem := expr.NewParam("e", *t.Elem)
		key = expr.Max(info.Access, expr.NewLambda(elem, orderable(elem)))
	} else {
		if !t.IsPrimitive() {
			return nil, dropped("%s is not orderable", t)
		}
		key = orderable(key)
	}

	for i := len(info.Scopes) - 1; i >= 0; i-- {
		s := info.Scopes[i]
		key = expr.Max(s.Collection, expr.NewLambda(s.Param, key))
	}
	return key, nil
}

func orderable(n expr.Node) expr.Node {
	if n.Type().Kind == shape.KindUUID {
		return expr.ToText(n)
	}
	return n
}
