package expr

import (
	"errors"
	"fmt"

	"github.com/roach88/populate/internal/shape"
)

// ErrUnsupported is returned by rewrites that meet a node kind they cannot
// handle.
var ErrUnsupported = errors.New("unsupported expression")

// IsText reports whether values of t compare as text without conversion.
func IsText(t shape.Type) bool {
	switch t.Leaf().Kind {
	case shape.KindString, shape.KindEnum:
		return true
	}
	return false
}

// Stringify rewrites n so that it yields text. Scalar accesses are wrapped
// in a to-text conversion; conditionals, coalescing, and collection
// mappings are rewritten down to the values they terminate in.
func Stringify(n Node) (Node, error) {
	t := n.Type()
	if IsText(t) {
		return n, nil
	}

	switch x := n.(type) {
	case *Conditional:
		then, err := Stringify(x.Then)
		if err != nil {
			return nil, err
		}
		els, err := Stringify(x.Else)
		if err != nil {
			return nil, err
		}
		return Cond(x.Test, then, els), nil

	case *Binary:
		if x.Op != OpCoalesce {
			return nil, fmt.Errorf("to-text of %s %q: %w", Kind(n), x.Op, ErrUnsupported)
		}
		l, err := Stringify(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := Stringify(x.Right)
		if err != nil {
			return nil, err
		}
		return Coalesce(l, r), nil

	case *Call:
		switch x.Method {
		case MethodMap, MethodFlatMap:
			fn, _ := x.Lambda()
			body, err := Stringify(fn.Body)
			if err != nil {
				return nil, err
			}
			lam := NewLambda(fn.Param, body)
			if x.Method == MethodMap {
				return Map(x.Target, lam), nil
			}
			return FlatMap(x.Target, lam), nil
		case MethodToList:
			inner, err := Stringify(x.Target)
			if err != nil {
				return nil, err
			}
			return ToList(inner), nil
		case MethodMax:
			return ToText(n), nil
		}
		return nil, fmt.Errorf("to-text of %s %s: %w", Kind(n), x.Method, ErrUnsupported)

	case *Member, *Param, *Const:
		switch {
		case t.IsCollection():
			return stringifyElements(n)
		case t.IsPrimitive():
			return ToText(n), nil
		}
		return nil, fmt.Errorf("to-text of %s of type %s: %w", Kind(n), t, ErrUnsupported)
	}

	return nil, fmt.Errorf("to-text of %s: %w", Kind(n), ErrUnsupported)
}

// stringifyElements maps a scalar collection to the text of its elements.
func stringifyElements(coll Node) (Node, error) {
	elem := *coll.Type().Elem
	if !elem.IsPrimitive() {
		return nil, fmt.Errorf("to-text of collection of %s: %w", elem, ErrUnsupported)
	}
	p := NewParam("s", elem)
	return Map(coll, NewLambda(p, ToText(p))), nil
}
