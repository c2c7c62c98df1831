package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/shape"
)

// errDropped marks a descriptor excluded from the plan. It never leaves
// this package.
type errDropped struct {
	reason string
}

func (e *errDropped) Error() string { return e.reason }

func dropped(format string, args ...any) error {
	return &errDropped{reason: fmt.Sprintf(format, args...)}
}

func isDropped(err error) bool {
	var d *errDropped
	return errors.As(err, &d)
}

// compileFilters combines the filters: Or-tagged filters fold into one
// disjunction, which is then conjoined with each And-tagged filter in
// order. None-tagged filters are ignored.
func (c *compilation) compileFilters(filters []descriptor.FilterDescriptor) (expr.Node, error) {
	var disjunction expr.Node
	var conjuncts []expr.Node

	for _, f := range filters {
		if f.Logical == descriptor.None {
			c.drop("filter", f.String(), "logical operator none")
			continue
		}
		node, err := c.compileFilter(f)
		if isDropped(err) {
			c.drop("filter", f.String(), err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		if f.Logical == descriptor.Or {
			if disjunction == nil {
				disjunction = node
			} else {
				disjunction = expr.OrElse(disjunction, node)
			}
			continue
		}
		conjuncts = append(conjuncts, node)
	}

	var pred expr.Node = expr.True()
	if disjunction != nil {
		pred = disjunction
	}
	for _, n := range conjuncts {
		pred = expr.AndAlso(pred, n)
	}
	return pred, nil
}

// compileFilter builds the predicate of one filter.
func (c *compilation) compileFilter(f descriptor.FilterDescriptor) (expr.Node, error) {
	info, err := c.lookup(f.Path)
	if err != nil {
		return nil, err
	}

	op := f.Operator
	t := info.Type()

	// Null tests apply to the member itself, even a collection.
	if op.Group() == descriptor.GroupNullable {
		if !t.Nullable {
			return nil, dropped("%s is not nullable", t)
		}
		var pred expr.Node = expr.IsNull(info.Access)
		if op == descriptor.NotNull {
			pred = expr.Negate(pred)
		}
		return quantify(info, pred), nil
	}

	target := info.Access
	var elem *expr.Param
	if t.IsCollection() {
		if t.CollectionDepth() > 1 || !t.Elem.IsPrimitive() {
			return nil, dropped("%s is not comparable", t)
		}
		elem = expr.NewParam("e", *t.Elem)
		target = elem
		t = *t.Elem
	}
	if !t.IsPrimitive() {
		return nil, dropped("%s is not comparable", t)
	}

	pred, err := compare(op, target, t, f.Value)
	if isDropped(err) {
		return nil, err
	}
	if err != nil {
		return nil, c.fail(info.Path, "filter "+op.String(), err)
	}
	if elem != nil {
		pred = expr.Any(info.Access, expr.NewLambda(elem, pred))
	}
	return quantify(info, pred), nil
}

// compare validates op against the member type t and builds the comparison.
func compare(op descriptor.CompareOperator, target expr.Node, t shape.Type, raw string) (expr.Node, error) {
	positive := op.Positive()
	var pred expr.Node

	switch op.Group() {
	case descriptor.GroupEqual:
		v, err := shape.Parse(t, raw)
		if err != nil {
			return nil, dropped("value: %v", err)
		}
		pred = expr.Compare(expr.OpEq, target, expr.Constant(v, t))

	case descriptor.GroupComparison:
		if !t.IsNumeric() {
			return nil, dropped("%s does not support %s", t, op)
		}
		v, err := shape.Parse(t, raw)
		if err != nil {
			return nil, dropped("value: %v", err)
		}
		if v == nil {
			return nil, dropped("%s needs a value", op)
		}
		return expr.Compare(orderingOps[op], target, expr.Constant(v, t)), nil

	case descriptor.GroupIn:
		nonNull := t
		nonNull.Nullable = false
		values, err := shape.ParseList(nonNull, raw)
		if err != nil {
			return nil, dropped("value: %v", err)
		}
		pred = expr.In(target, expr.Constant(values, shape.CollectionOf(nonNull)))

	case descriptor.GroupContain:
		if t.Kind == shape.KindBool {
			return nil, dropped("%s does not support %s", t, op)
		}
		// A non-text member is matched by its text form, but the value
		// must still be one of its values.
		if !expr.IsText(t) {
			if _, err := shape.Parse(t, raw); err != nil {
				return nil, dropped("value: %v", err)
			}
		}
		text, err := expr.Stringify(target)
		if err != nil {
			return nil, err
		}
		needle := expr.Constant(strings.ToLower(raw), shape.Scalar(shape.KindString))
		haystack := expr.Lower(text)
		switch positive {
		case descriptor.Contains:
			pred = expr.Contains(haystack, needle)
		case descriptor.StartsWith:
			pred = expr.StartsWith(haystack, needle)
		default:
			pred = expr.EndsWith(haystack, needle)
		}

	default:
		return nil, dropped("unsupported operator %s", op)
	}

	if op.Negated() {
		pred = expr.Negate(pred)
	}
	return pred, nil
}

var orderingOps = map[descriptor.CompareOperator]expr.BinaryOp{
	descriptor.LessThan:           expr.OpLt,
	descriptor.LessThanOrEqual:    expr.OpLe,
	descriptor.GreaterThan:        expr.OpGt,
	descriptor.GreaterThanOrEqual: expr.OpGe,
}

// quantify wraps pred, built in the innermost scope of info, in an "any"
// over each collection crossed on the way, innermost first.
func quantify(info projection.PathInfo, pred expr.Node) expr.Node {
	for i := len(info.Scopes) - 1; i >= 0; i-- {
		s := info.Scopes[i]
		pred = expr.Any(s.Collection, expr.NewLambda(s.Param, pred))
	}
	return pred
}
