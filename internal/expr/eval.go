package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/populate/internal/shape"
)

// Env binds parameters to values. The nil Env binds nothing.
type Env struct {
	param  *Param
	value  any
	parent *Env
}

// Bind starts an environment binding p to v.
func Bind(p *Param, v any) *Env {
	return (*Env)(nil).With(p, v)
}

// With returns an environment that additionally binds p to v.
func (e *Env) With(p *Param, v any) *Env {
	return &Env{param: p, value: v, parent: e}
}

func (e *Env) lookup(p *Param) (any, bool) {
	for s := e; s != nil; s = s.parent {
		if s.param == p {
			return s.value, true
		}
	}
	return nil, false
}

// Eval evaluates n in env against decoded documents: records are
// map[string]any, collections []any, and scalars are normalized to their
// canonical Go values on access.
//
// Member access on null yields null, so a path through a missing optional
// relation reads as null rather than failing.
func Eval(n Node, env *Env) (any, error) {
	switch x := n.(type) {
	case *Param:
		v, ok := env.lookup(x)
		if !ok {
			return nil, fmt.Errorf("unbound parameter %s", x.Name)
		}
		return v, nil

	case *Member:
		target, err := Eval(x.Target, env)
		if err != nil {
			return nil, err
		}
		return member(target, x)

	case *Const:
		return x.Value, nil

	case *Binary:
		return evalBinary(x, env)

	case *Not:
		b, err := EvalBool(x.Operand, env)
		if err != nil {
			return nil, err
		}
		return !b, nil

	case *Call:
		return evalCall(x, env)

	case *Conditional:
		test, err := EvalBool(x.Test, env)
		if err != nil {
			return nil, err
		}
		if test {
			return Eval(x.Then, env)
		}
		return Eval(x.Else, env)

	case *Record:
		out := make(map[string]any, len(x.Fields))
		for _, b := range x.Fields {
			v, err := Eval(b.Value, env)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", x.Shape, b.Name, err)
			}
			out[b.Name] = v
		}
		return out, nil

	case *Lambda:
		return nil, fmt.Errorf("lambda evaluated outside a collection call")
	}
	return nil, fmt.Errorf("eval %s: %w", Kind(n), ErrUnsupported)
}

// EvalBool evaluates a predicate. Null counts as false.
func EvalBool(n Node, env *Env) (bool, error) {
	v, err := Eval(n, env)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, fmt.Errorf("predicate yielded %T", v)
}

func member(target any, m *Member) (any, error) {
	if target == nil {
		return nil, nil
	}
	rec, ok := target.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("member %s of non-record %T", m.Name, target)
	}
	v, ok := rec[m.Name]
	if !ok {
		// Keys differing only by case resolve to the smallest one.
		var match string
		for k := range rec {
			if strings.EqualFold(k, m.Name) && (!ok || k < match) {
				match, ok = k, true
			}
		}
		if ok {
			v = rec[match]
		}
	}
	return normalize(m.T, v)
}

func normalize(t shape.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.IsCollection() {
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected collection for %s, got %T", t, v)
		}
		elem := *t.Elem
		if !elem.IsPrimitive() && !elem.IsCollection() {
			return items, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			nv, err := normalize(elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	}
	if t.IsPrimitive() {
		return shape.Normalize(t, v)
	}
	return v, nil
}

func evalBinary(b *Binary, env *Env) (any, error) {
	switch b.Op {
	case OpAnd, OpOr:
		l, err := EvalBool(b.Left, env)
		if err != nil {
			return nil, err
		}
		if b.Op == OpAnd && !l {
			return false, nil
		}
		if b.Op == OpOr && l {
			return true, nil
		}
		return EvalBool(b.Right, env)
	case OpCoalesce:
		l, err := Eval(b.Left, env)
		if err != nil || l != nil {
			return l, err
		}
		return Eval(b.Right, env)
	}

	l, err := Eval(b.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := Eval(b.Right, env)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpEq:
		return shape.Equal(l, r), nil
	case OpNe:
		return !shape.Equal(l, r), nil
	}

	// Ordering against null is false, as in SQL.
	if l == nil || r == nil {
		return false, nil
	}
	c, err := shape.Compare(l, r)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return nil, fmt.Errorf("binary %s: %w", b.Op, ErrUnsupported)
}

func evalCall(c *Call, env *Env) (any, error) {
	target, err := Eval(c.Target, env)
	if err != nil {
		return nil, err
	}

	switch c.Method {
	case MethodLower:
		if target == nil {
			return nil, nil
		}
		return strings.ToLower(shape.ToText(target)), nil
	case MethodToText:
		if target == nil {
			return nil, nil
		}
		return shape.ToText(target), nil
	case MethodContains, MethodStartsWith, MethodEndsWith:
		arg, err := Eval(c.Args[0], env)
		if err != nil {
			return nil, err
		}
		s, ok1 := target.(string)
		sub, ok2 := arg.(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		switch c.Method {
		case MethodContains:
			return strings.Contains(s, sub), nil
		case MethodStartsWith:
			return strings.HasPrefix(s, sub), nil
		default:
			return strings.HasSuffix(s, sub), nil
		}
	case MethodIn:
		list, err := Eval(c.Args[0], env)
		if err != nil {
			return nil, err
		}
		items, _ := list.([]any)
		for _, item := range items {
			if shape.Equal(target, item) {
				return true, nil
			}
		}
		return false, nil
	case MethodToList:
		if target == nil {
			return []any{}, nil
		}
		items, ok := target.([]any)
		if !ok {
			return nil, fmt.Errorf("toList of %T", target)
		}
		return append([]any{}, items...), nil
	}

	fn, ok := c.Lambda()
	if !ok {
		return nil, fmt.Errorf("call %s: %w", c.Method, ErrUnsupported)
	}
	if target == nil {
		switch c.Method {
		case MethodAny:
			return false, nil
		default:
			return nil, nil
		}
	}
	items, ok := target.([]any)
	if !ok {
		return nil, fmt.Errorf("%s over %T", c.Method, target)
	}

	switch c.Method {
	case MethodAny:
		for _, item := range items {
			hit, err := EvalBool(fn.Body, env.With(fn.Param, item))
			if err != nil {
				return nil, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil

	case MethodMax:
		var best any
		for _, item := range items {
			v, err := Eval(fn.Body, env.With(fn.Param, item))
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			cmp, err := shape.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if cmp > 0 {
				best = v
			}
		}
		return best, nil

	case MethodMap, MethodFlatMap:
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := Eval(fn.Body, env.With(fn.Param, item))
			if err != nil {
				return nil, err
			}
			if c.Method == MethodMap {
				out = append(out, v)
				continue
			}
			if inner, ok := v.([]any); ok {
				out = append(out, inner...)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("call %s: %w", c.Method, ErrUnsupported)
}
