package expr

import (
	"fmt"

	"github.com/roach88/populate/internal/shape"
)

// Node is an expression. It is a sealed interface: only types in this
// package implement it.
type Node interface {
	// Type is the static type the node evaluates to.
	Type() shape.Type

	exprNode() // Marker method - seals interface to this package
}

var boolType = shape.Scalar(shape.KindBool)

// Param is a named record binding: the plan root or a lambda parameter.
type Param struct {
	Name string
	T    shape.Type
}

func (*Param) exprNode()          {}
func (p *Param) Type() shape.Type { return p.T }

// NewParam creates a parameter of type t.
func NewParam(name string, t shape.Type) *Param {
	return &Param{Name: name, T: t}
}

// Member reads the field Name of the record Target evaluates to.
type Member struct {
	Target Node
	Name   string
	T      shape.Type
}

func (*Member) exprNode()          {}
func (m *Member) Type() shape.Type { return m.T }

// MemberOf accesses field name of target.
func MemberOf(target Node, name string, t shape.Type) *Member {
	return &Member{Target: target, Name: name, T: t}
}

// Const is a literal. Value holds a canonical value for T (see
// shape.Normalize), or []any of canonical values when T is a collection.
type Const struct {
	Value any
	T     shape.Type
}

func (*Const) exprNode()          {}
func (c *Const) Type() shape.Type { return c.T }

// Constant creates a literal of type t.
func Constant(v any, t shape.Type) *Const {
	return &Const{Value: v, T: t}
}

// Null is the null literal of type t.
func Null(t shape.Type) *Const {
	return &Const{T: shape.Nullable(t)}
}

// True is the unconditional predicate.
func True() *Const {
	return &Const{Value: true, T: boolType}
}

// IsTrue reports whether n is the literal true.
func IsTrue(n Node) bool {
	c, ok := n.(*Const)
	if !ok {
		return false
	}
	b, ok := c.Value.(bool)
	return ok && b
}

// BinaryOp is the operator of a Binary node.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpCoalesce
)

var binarySymbols = [...]string{
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpAnd:      "&&",
	OpOr:       "||",
	OpCoalesce: "??",
}

func (op BinaryOp) String() string {
	if op >= OpEq && op <= OpCoalesce {
		return binarySymbols[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsComparison reports whether op compares two values.
func (op BinaryOp) IsComparison() bool { return op <= OpGe }

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) exprNode() {}

// Type is bool except for coalescing, which takes the type of Right.
func (b *Binary) Type() shape.Type {
	if b.Op == OpCoalesce {
		return b.Right.Type()
	}
	return boolType
}

// Compare builds a comparison. op must satisfy IsComparison.
func Compare(op BinaryOp, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// IsNull tests n against null.
func IsNull(n Node) *Binary {
	return &Binary{Op: OpEq, Left: n, Right: Null(n.Type())}
}

// AndAlso conjoins two predicates, dropping literal true operands.
func AndAlso(left, right Node) Node {
	switch {
	case IsTrue(left):
		return right
	case IsTrue(right):
		return left
	}
	return &Binary{Op: OpAnd, Left: left, Right: right}
}

// OrElse disjoins two predicates.
func OrElse(left, right Node) Node {
	return &Binary{Op: OpOr, Left: left, Right: right}
}

// Coalesce yields left unless it is null, in which case it yields right.
func Coalesce(left, right Node) *Binary {
	return &Binary{Op: OpCoalesce, Left: left, Right: right}
}

// Not negates a predicate.
type Not struct {
	Operand Node
}

func (*Not) exprNode()        {}
func (*Not) Type() shape.Type { return boolType }

// Negate wraps n in a Not.
func Negate(n Node) *Not { return &Not{Operand: n} }

// Method names the operation of a Call.
type Method int

const (
	MethodContains Method = iota
	MethodStartsWith
	MethodEndsWith
	MethodLower
	MethodToText
	MethodIn
	MethodAny
	MethodMax
	MethodMap
	MethodFlatMap
	MethodToList
)

var methodNames = [...]string{
	MethodContains:   "contains",
	MethodStartsWith: "startsWith",
	MethodEndsWith:   "endsWith",
	MethodLower:      "lower",
	MethodToText:     "toText",
	MethodIn:         "in",
	MethodAny:        "any",
	MethodMax:        "max",
	MethodMap:        "map",
	MethodFlatMap:    "flatMap",
	MethodToList:     "toList",
}

func (m Method) String() string {
	if m >= MethodContains && m <= MethodToList {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Quantified reports whether the method takes a collection target and a
// Lambda argument.
func (m Method) Quantified() bool {
	switch m {
	case MethodAny, MethodMax, MethodMap, MethodFlatMap:
		return true
	}
	return false
}

// Call applies Method to Target with Args.
type Call struct {
	Method Method
	Target Node
	Args   []Node
	T      shape.Type
}

func (*Call) exprNode()          {}
func (c *Call) Type() shape.Type { return c.T }

// Lambda returns the lambda argument of a quantified call.
func (c *Call) Lambda() (*Lambda, bool) {
	if !c.Method.Quantified() || len(c.Args) != 1 {
		return nil, false
	}
	l, ok := c.Args[0].(*Lambda)
	return l, ok
}

func stringMatch(m Method, target, arg Node) *Call {
	return &Call{Method: m, Target: target, Args: []Node{arg}, T: boolType}
}

// Contains tests whether the text target contains arg.
func Contains(target, arg Node) *Call { return stringMatch(MethodContains, target, arg) }

// StartsWith tests whether the text target starts with arg.
func StartsWith(target, arg Node) *Call { return stringMatch(MethodStartsWith, target, arg) }

// EndsWith tests whether the text target ends with arg.
func EndsWith(target, arg Node) *Call { return stringMatch(MethodEndsWith, target, arg) }

// textOf keeps the nullability of n on a string type.
func textOf(n Node) shape.Type {
	return shape.Type{Kind: shape.KindString, Nullable: n.Type().Nullable}
}

// Lower lowercases text.
func Lower(n Node) *Call {
	return &Call{Method: MethodLower, Target: n, T: textOf(n)}
}

// ToText converts a scalar to its text form.
func ToText(n Node) *Call {
	return &Call{Method: MethodToText, Target: n, T: textOf(n)}
}

// In tests membership of target in the literal list.
func In(target Node, list *Const) *Call {
	return &Call{Method: MethodIn, Target: target, Args: []Node{list}, T: boolType}
}

// Any is true when fn holds for at least one element of coll.
func Any(coll Node, fn *Lambda) *Call {
	return &Call{Method: MethodAny, Target: coll, Args: []Node{fn}, T: boolType}
}

// Max is the largest non-null value of fn over coll; null when there is none.
func Max(coll Node, fn *Lambda) *Call {
	return &Call{Method: MethodMax, Target: coll, Args: []Node{fn}, T: shape.Nullable(fn.Type())}
}

// Map applies fn to every element of coll.
func Map(coll Node, fn *Lambda) *Call {
	return &Call{Method: MethodMap, Target: coll, Args: []Node{fn}, T: shape.CollectionOf(fn.Type())}
}

// FlatMap applies fn, which yields a collection, to every element of coll
// and concatenates the results.
func FlatMap(coll Node, fn *Lambda) *Call {
	t := fn.Type()
	if !t.IsCollection() {
		t = shape.CollectionOf(t)
	}
	return &Call{Method: MethodFlatMap, Target: coll, Args: []Node{fn}, T: t}
}

// ToList materializes a collection. A null collection becomes empty.
func ToList(coll Node) *Call {
	t := coll.Type()
	t.Nullable = false
	return &Call{Method: MethodToList, Target: coll, T: t}
}

// Lambda is a one-parameter function.
type Lambda struct {
	Param *Param
	Body  Node
}

func (*Lambda) exprNode()          {}
func (l *Lambda) Type() shape.Type { return l.Body.Type() }

// NewLambda creates p => body.
func NewLambda(p *Param, body Node) *Lambda {
	return &Lambda{Param: p, Body: body}
}

// Conditional yields Then when Test holds and Else otherwise.
type Conditional struct {
	Test Node
	Then Node
	Else Node
}

func (*Conditional) exprNode() {}

// Type is the type of Else, nullable when either branch is.
func (c *Conditional) Type() shape.Type {
	t := c.Else.Type()
	if c.Then.Type().Nullable {
		t.Nullable = true
	}
	return t
}

// Cond creates test ? then : els.
func Cond(test, then, els Node) *Conditional {
	return &Conditional{Test: test, Then: then, Else: els}
}

// Binding is one named field of a Record.
type Binding struct {
	Name  string
	Value Node
}

// Record constructs a value of a synthesized shape from its bindings.
type Record struct {
	Shape  string
	Fields []Binding
}

func (*Record) exprNode()          {}
func (r *Record) Type() shape.Type { return shape.Object(r.Shape) }

// NewRecord creates a record of the named shape.
func NewRecord(shapeName string, fields ...Binding) *Record {
	return &Record{Shape: shapeName, Fields: fields}
}

// Field returns the binding called name.
func (r *Record) Field(name string) (Node, bool) {
	for _, b := range r.Fields {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}
