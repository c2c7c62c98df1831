package expr

import "fmt"

// Children returns the direct sub-expressions of n in evaluation order.
// A Lambda's parameter is not a child.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *Member:
		return []Node{x.Target}
	case *Binary:
		return []Node{x.Left, x.Right}
	case *Not:
		return []Node{x.Operand}
	case *Call:
		out := make([]Node, 0, 1+len(x.Args))
		out = append(out, x.Target)
		return append(out, x.Args...)
	case *Lambda:
		return []Node{x.Body}
	case *Conditional:
		return []Node{x.Test, x.Then, x.Else}
	case *Record:
		out := make([]Node, len(x.Fields))
		for i, b := range x.Fields {
			out[i] = b.Value
		}
		return out
	default:
		return nil
	}
}

// Walk visits n and its descendants depth first. Returning false from
// visit skips the children of the node just visited.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, visit)
	}
}

// Transform rebuilds n bottom-up: the children of every node are
// transformed first, then fn is applied to the rebuilt node. Nodes whose
// children are unchanged are passed to fn as-is.
func Transform(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	switch x := n.(type) {
	case *Member:
		if t := Transform(x.Target, fn); t != x.Target {
			n = &Member{Target: t, Name: x.Name, T: x.T}
		}
	case *Binary:
		l, r := Transform(x.Left, fn), Transform(x.Right, fn)
		if l != x.Left || r != x.Right {
			n = &Binary{Op: x.Op, Left: l, Right: r}
		}
	case *Not:
		if o := Transform(x.Operand, fn); o != x.Operand {
			n = &Not{Operand: o}
		}
	case *Call:
		t := Transform(x.Target, fn)
		args, changed := transformAll(x.Args, fn)
		if t != x.Target || changed {
			n = &Call{Method: x.Method, Target: t, Args: args, T: x.T}
		}
	case *Lambda:
		if b := Transform(x.Body, fn); b != x.Body {
			n = &Lambda{Param: x.Param, Body: b}
		}
	case *Conditional:
		test, then, els := Transform(x.Test, fn), Transform(x.Then, fn), Transform(x.Else, fn)
		if test != x.Test || then != x.Then || els != x.Else {
			n = &Conditional{Test: test, Then: then, Else: els}
		}
	case *Record:
		fields := make([]Binding, len(x.Fields))
		changed := false
		for i, b := range x.Fields {
			v := Transform(b.Value, fn)
			changed = changed || v != b.Value
			fields[i] = Binding{Name: b.Name, Value: v}
		}
		if changed {
			n = &Record{Shape: x.Shape, Fields: fields}
		}
	}
	return fn(n)
}

func transformAll(nodes []Node, fn func(Node) Node) ([]Node, bool) {
	if len(nodes) == 0 {
		return nodes, false
	}
	out := make([]Node, len(nodes))
	changed := false
	for i, c := range nodes {
		out[i] = Transform(c, fn)
		changed = changed || out[i] != c
	}
	return out, changed
}

// ReplaceParam substitutes every reference to from with to. It is how a
// mapping's source lambda is applied to the expression it reads from.
func ReplaceParam(n Node, from *Param, to Node) Node {
	return Transform(n, func(x Node) Node {
		if p, ok := x.(*Param); ok && p == from {
			return to
		}
		return x
	})
}

// Inline applies fn to arg by substituting arg for the lambda's parameter.
func Inline(fn *Lambda, arg Node) Node {
	return ReplaceParam(fn.Body, fn.Param, arg)
}

// FreeParams lists the parameters n references that no enclosing Lambda in
// n binds, in first-use order.
func FreeParams(n Node) []*Param {
	var out []*Param
	seen := make(map[*Param]bool)
	var visit func(Node, map[*Param]bool)
	visit = func(x Node, bound map[*Param]bool) {
		switch v := x.(type) {
		case *Param:
			if !bound[v] && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
			return
		case *Lambda:
			inner := make(map[*Param]bool, len(bound)+1)
			for k := range bound {
				inner[k] = true
			}
			inner[v.Param] = true
			visit(v.Body, inner)
			return
		}
		for _, c := range Children(x) {
			visit(c, bound)
		}
	}
	visit(n, map[*Param]bool{})
	return out
}

// Kind names the node kind of n for diagnostics.
func Kind(n Node) string {
	switch n.(type) {
	case *Param:
		return "param"
	case *Member:
		return "member"
	case *Const:
		return "const"
	case *Binary:
		return "binary"
	case *Not:
		return "not"
	case *Call:
		return "call"
	case *Lambda:
		return "lambda"
	case *Conditional:
		return "conditional"
	case *Record:
		return "record"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", n)
	}
}
