package query

import (
	"strings"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/shape"
)

// compileSearch ORs a case-insensitive contains test of the keyword over
// every eligible field. Without explicit fields, the searchable fields of
// the destination down to the configured depth are used. Fields the
// projection does not expose are skipped.
func (c *compilation) compileSearch(search *descriptor.SearchDescriptor) (expr.Node, error) {
	if search.Empty() || strings.TrimSpace(search.Keyword) == "" {
		return expr.True(), nil
	}

	paths := search.Fields
	if len(paths) == 0 {
		found, err := c.resolver.SearchFields(c.destination, c.opts.SearchDepth)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			paths = append(paths, p.Value())
		}
	}

	needle := expr.Constant(strings.ToLower(strings.TrimSpace(search.Keyword)), shape.Scalar(shape.KindString))
	var pred expr.Node
	for _, p := range paths {
		info, err := c.lookup(p)
		if err != nil {
			c.drop("search", p, err.Error())
			continue
		}
		if !searchable(info) {
			c.drop("search", p, "field is not searchable")
			continue
		}
		match, err := contains(info, needle)
		if err != nil {
			return nil, c.fail(info.Path, "search", err)
		}
		if pred == nil {
			pred = match
		} else {
			pred = expr.OrElse(pred, match)
		}
	}
	if pred == nil {
		c.drop("search", search.Keyword, "no searchable field")
		return expr.True(), nil
	}
	return pred, nil
}

// searchable applies the field's search eligibility to the type it is read
// as; scalar collections are judged by their elements.
func searchable(info projection.PathInfo) bool {
	t := info.Type()
	if t.IsCollection() {
		if t.CollectionDepth() > 1 || !t.Elem.IsPrimitive() {
			return false
		}
		t = *t.Elem
	}
	f := info.Field
	f.Type = t
	return f.Searchable()
}

func contains(info projection.PathInfo, needle expr.Node) (expr.Node, error) {
	target := info.Access
	var elem *expr.Param
	if t := info.Type(); t.IsCollection() {
		elem = expr.NewParam("e", *t.Elem)
		target = elem
	}
	text, err := expr.Stringify(target)
	if err != nil {
		return nil, err
	}
	var pred expr.Node = expr.Contains(expr.Lower(text), needle)
	if elem != nil {
		pred = expr.Any(info.Access, expr.NewLambda(elem, pred))
	}
	return quantify(info, pred), nil
}
