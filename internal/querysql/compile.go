// Package querysql compiles query plans to parameterized SQLite SQL over
// JSON documents.
//
// Documents live in one table, one row per document, with the JSON body in
// a text column. Member access compiles to json_extract, quantified calls
// to EXISTS and MAX subqueries over json_each.
//
// Map and flatMap never reach SQL as values. Inside any and max they
// become further json_each sources joined into the same subquery.
//
// Every statement orders by the plan's keys followed by the row id, so
// results are deterministic and agree with in-memory execution over the
// documents in insertion order. Values and JSON paths are always bound as
// parameters, never interpolated.
package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/shape"
)

// DefaultTable is the document table the store creates.
const DefaultTable = "documents"

// Statement is one SQL statement and its parameters.
type Statement struct {
	SQL    string
	Params []any
}

// Query holds the statements that execute one plan: the page of rows and
// the total count of matching rows.
type Query struct {
	Select Statement
	Count  Statement
}

// SQLCompiler compiles plans against a document table with the columns
// id, shape and body.
type SQLCompiler struct {
	Table string
}

// NewSQLCompiler creates a compiler for DefaultTable.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: DefaultTable}
}

// Compile converts a plan to its select and count statements.
func (c *SQLCompiler) Compile(plan *query.Plan) (Query, error) {
	if plan == nil {
		return Query{}, fmt.Errorf("cannot compile nil plan")
	}

	ctx := &builder{scopes: map[*expr.Param]binding{plan.Root: {sql: "d.body"}}}

	where := "d.shape = ?"
	params := []any{plan.Source}
	if !plan.Unconditional() {
		pred, err := ctx.predicate(plan.Predicate)
		if err != nil {
			return Query{}, fmt.Errorf("compile predicate: %w", err)
		}
		where += " AND " + pred
		params = append(params, ctx.params...)
	}
	countParams := append([]any(nil), params...)

	// The row id is always the last key so equal keys keep insertion order.
	var order []string
	for _, o := range plan.Ordering {
		ctx.params = nil
		key, err := ctx.value(o.Key)
		if err != nil {
			return Query{}, fmt.Errorf("compile sort key %s: %w", o.Path, err)
		}
		dir := "ASC"
		if o.Descending() {
			dir = "DESC"
		}
		if expr.IsText(o.Key.Type()) || o.Key.Type().Kind == shape.KindUUID {
			key += " COLLATE BINARY"
		}
		order = append(order, key+" "+dir)
		params = append(params, ctx.params...)
	}
	order = append(order, "d.id ASC")

	sel := fmt.Sprintf("SELECT d.id, d.body FROM %s AS d WHERE %s ORDER BY %s",
		c.Table, where, strings.Join(order, ", "))
	if plan.Paging.PageSize > 0 {
		sel += " LIMIT ? OFFSET ?"
		params = append(params, plan.Paging.PageSize, plan.Paging.Offset())
	}

	return Query{
		Select: Statement{SQL: sel, Params: params},
		Count: Statement{
			SQL:    fmt.Sprintf("SELECT COUNT(*) FROM %s AS d WHERE %s", c.Table, where),
			Params: countParams,
		},
	}, nil
}

// builder tracks the SQL each lambda parameter is bound to and collects
// parameters in the order their placeholders appear.
type builder struct {
	scopes map[*expr.Param]binding
	params []any
	tables int
}

// binding is the SQL a lambda parameter stands for. Its params are bound
// again at every reference.
type binding struct {
	sql    string
	params []any
}

func (c *builder) scope(p *expr.Param) (string, error) {
	b, ok := c.scopes[p]
	if !ok {
		return "", fmt.Errorf("unbound parameter %s", p.Name)
	}
	c.params = append(c.params, b.params...)
	return b.sql, nil
}

func (c *builder) bind(v any) string {
	c.params = append(c.params, v)
	return "?"
}

// predicate compiles a boolean node. The result is never NULL.
func (c *builder) predicate(n expr.Node) (string, error) {
	sql, err := c.value(n)
	if err != nil {
		return "", err
	}
	return "IFNULL(" + sql + ", 0)", nil
}

// value compiles n to a SQL expression. Numeric members are cast so that
// decimals stored as JSON strings compare as numbers.
func (c *builder) value(n expr.Node) (string, error) {
	switch x := n.(type) {
	case *expr.Param:
		src, err := c.scope(x)
		if err != nil {
			return "", err
		}
		return numeric(src, x.T), nil

	case *expr.Member:
		src, err := c.json(x)
		if err != nil {
			return "", err
		}
		return numeric(src, x.T), nil

	case *expr.Const:
		if x.Value == nil {
			return "NULL", nil
		}
		v, err := param(x.Value, x.T)
		if err != nil {
			return "", err
		}
		return c.bind(v), nil

	case *expr.Binary:
		return c.binary(x)

	case *expr.Not:
		inner, err := c.predicate(x.Operand)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil

	case *expr.Conditional:
		test, err := c.predicate(x.Test)
		if err != nil {
			return "", err
		}
		then, err := c.value(x.Then)
		if err != nil {
			return "", err
		}
		els, err := c.value(x.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", test, then, els), nil

	case *expr.Call:
		return c.call(x)
	}
	return "", fmt.Errorf("sql of %s: %w", expr.Kind(n), expr.ErrUnsupported)
}

// json compiles a member chain to one json_extract over the nearest
// parameter, or over the SQL of whatever the chain starts from.
func (c *builder) json(m *expr.Member) (string, error) {
	var names []string
	var base expr.Node = m
	for {
		mm, ok := base.(*expr.Member)
		if !ok {
			break
		}
		names = append(names, mm.Name)
		base = mm.Target
	}

	var src string
	if p, ok := base.(*expr.Param); ok {
		s, err := c.scope(p)
		if err != nil {
			return "", err
		}
		src = s
	} else {
		s, err := c.value(base)
		if err != nil {
			return "", err
		}
		src = s
	}

	var path strings.Builder
	path.WriteString("$")
	for i := len(names) - 1; i >= 0; i-- {
		path.WriteString(".")
		path.WriteString(strconv.Quote(names[i]))
	}
	return fmt.Sprintf("json_extract(%s, %s)", src, c.bind(path.String())), nil
}

func numeric(sql string, t shape.Type) string {
	switch t.Kind {
	case shape.KindDecimal, shape.KindFloat:
		return "CAST(" + sql + " AS REAL)"
	}
	return sql
}

var comparisons = map[expr.BinaryOp]string{
	expr.OpEq: "=",
	expr.OpNe: "<>",
	expr.OpLt: "<",
	expr.OpLe: "<=",
	expr.OpGt: ">",
	expr.OpGe: ">=",
}

func (c *builder) binary(b *expr.Binary) (string, error) {
	switch b.Op {
	case expr.OpAnd, expr.OpOr:
		l, err := c.predicate(b.Left)
		if err != nil {
			return "", err
		}
		r, err := c.predicate(b.Right)
		if err != nil {
			return "", err
		}
		op := " AND "
		if b.Op == expr.OpOr {
			op = " OR "
		}
		return "(" + l + op + r + ")", nil

	case expr.OpCoalesce:
		l, err := c.value(b.Left)
		if err != nil {
			return "", err
		}
		r, err := c.value(b.Right)
		if err != nil {
			return "", err
		}
		return "COALESCE(" + l + ", " + r + ")", nil
	}

	l, err := c.value(b.Left)
	if err != nil {
		return "", err
	}
	if k, ok := b.Right.(*expr.Const); ok && k.Value == nil {
		switch b.Op {
		case expr.OpEq:
			return "(" + l + " IS NULL)", nil
		case expr.OpNe:
			return "(" + l + " IS NOT NULL)", nil
		}
	}
	r, err := c.value(b.Right)
	if err != nil {
		return "", err
	}
	op, ok := comparisons[b.Op]
	if !ok {
		return "", fmt.Errorf("sql of operator %s: %w", b.Op, expr.ErrUnsupported)
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func (c *builder) call(x *expr.Call) (string, error) {
	switch x.Method {
	case expr.MethodAny, expr.MethodMax:
		return c.quantified(x)
	case expr.MethodIn:
		return c.in(x)
	case expr.MethodEndsWith:
		return c.endsWith(x)
	}

	target, err := c.value(x.Target)
	if err != nil {
		return "", err
	}

	switch x.Method {
	case expr.MethodLower:
		return "lower(" + target + ")", nil

	case expr.MethodToText:
		if x.Target.Type().Kind == shape.KindBool {
			return fmt.Sprintf("CASE %s WHEN 1 THEN 'true' WHEN 0 THEN 'false' END", target), nil
		}
		return "CAST(" + target + " AS TEXT)", nil

	case expr.MethodContains, expr.MethodStartsWith:
		arg, err := c.value(x.Args[0])
		if err != nil {
			return "", err
		}
		if x.Method == expr.MethodContains {
			return fmt.Sprintf("(instr(%s, %s) > 0)", target, arg), nil
		}
		return fmt.Sprintf("(instr(%s, %s) = 1)", target, arg), nil
	}
	return "", fmt.Errorf("sql of call %s: %w", x.Method, expr.ErrUnsupported)
}

// endsWith repeats both operands, so their parameters are bound twice in
// placeholder order.
func (c *builder) endsWith(x *expr.Call) (string, error) {
	target, tp, err := c.capture(x.Target)
	if err != nil {
		return "", err
	}
	arg, ap, err := c.capture(x.Args[0])
	if err != nil {
		return "", err
	}
	for _, ps := range [][]any{tp, tp, ap, ap} {
		c.params = append(c.params, ps...)
	}
	return fmt.Sprintf("(substr(%s, length(%s) - length(%s) + 1) = %s)", target, target, arg, arg), nil
}

// capture compiles n and returns its parameters instead of collecting them.
func (c *builder) capture(n expr.Node) (string, []any, error) {
	return c.captureWith(c.value, n)
}

func (c *builder) capturePredicate(n expr.Node) (string, []any, error) {
	return c.captureWith(c.predicate, n)
}

func (c *builder) captureWith(compile func(expr.Node) (string, error), n expr.Node) (string, []any, error) {
	saved := c.params
	c.params = nil
	sql, err := compile(n)
	got := c.params
	c.params = saved
	return sql, got, err
}

func (c *builder) in(x *expr.Call) (string, error) {
	target, err := c.value(x.Target)
	if err != nil {
		return "", err
	}
	list, _ := x.Args[0].(*expr.Const)
	if list == nil {
		return "", fmt.Errorf("in: list is not a constant")
	}
	items, _ := list.Value.([]any)
	if len(items) == 0 {
		return "0", nil
	}
	marks := make([]string, len(items))
	for i, item := range items {
		v, err := param(item, *list.T.Elem)
		if err != nil {
			return "", err
		}
		marks[i] = c.bind(v)
	}
	return fmt.Sprintf("(%s IN (%s))", target, strings.Join(marks, ", ")), nil
}

// quantified compiles any and max to a subquery over the elements of the
// target collection, binding the lambda parameter to each element value.
func (c *builder) quantified(x *expr.Call) (string, error) {
	fn, ok := x.Lambda()
	if !ok {
		return "", fmt.Errorf("%s without a lambda", x.Method)
	}
	from, cp, elem, err := c.elements(x.Target)
	if err != nil {
		return "", err
	}

	c.scopes[fn.Param] = elem
	defer delete(c.scopes, fn.Param)

	if x.Method == expr.MethodAny {
		body, bp, err := c.capturePredicate(fn.Body)
		if err != nil {
			return "", err
		}
		c.params = append(append(c.params, cp...), bp...)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", from, body), nil
	}
	body, bp, err := c.capture(fn.Body)
	if err != nil {
		return "", err
	}
	c.params = append(append(c.params, bp...), cp...)
	return fmt.Sprintf("(SELECT MAX(%s) FROM %s)", body, from), nil
}

// elements compiles a collection to the FROM list that enumerates it and
// the binding of one element. A map binds the element to its lambda body
// over the source element; a flatMap joins the elements of that body. A
// null collection yields no rows, as toList would.
func (c *builder) elements(n expr.Node) (string, []any, binding, error) {
	if call, ok := n.(*expr.Call); ok {
		switch call.Method {
		case expr.MethodToList:
			return c.elements(call.Target)

		case expr.MethodMap, expr.MethodFlatMap:
			fn, ok := call.Lambda()
			if !ok {
				return "", nil, binding{}, fmt.Errorf("%s without a lambda", call.Method)
			}
			from, fp, inner, err := c.elements(call.Target)
			if err != nil {
				return "", nil, binding{}, err
			}
			c.scopes[fn.Param] = inner
			defer delete(c.scopes, fn.Param)

			if call.Method == expr.MethodFlatMap {
				more, mp, elem, err := c.elements(fn.Body)
				if err != nil {
					return "", nil, binding{}, err
				}
				return from + ", " + more, append(fp, mp...), elem, nil
			}
			body, bp, err := c.capture(fn.Body)
			if err != nil {
				return "", nil, binding{}, err
			}
			return from, fp, binding{sql: body, params: bp}, nil
		}
	}

	coll, cp, err := c.capture(n)
	if err != nil {
		return "", nil, binding{}, err
	}
	alias := c.alias()
	return fmt.Sprintf("json_each(%s) AS %s", coll, alias), cp, binding{sql: alias + ".value"}, nil
}

func (c *builder) alias() string {
	c.tables++
	return "j" + strconv.Itoa(c.tables)
}

// param converts a canonical value of type t to a driver value comparable
// with what json_extract yields for the same value in a document. Times are
// compared as RFC 3339 text in UTC.
func param(v any, t shape.Type) (any, error) {
	if d, ok := v.(time.Time); ok && t.Kind == shape.KindDate {
		return d.Format(time.DateOnly), nil
	}
	switch x := v.(type) {
	case string, int64, float64, bool:
		return x, nil
	case int:
		return int64(x), nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case time.Time, time.Duration, uuid.UUID:
		return shape.ToText(x), nil
	}
	return nil, fmt.Errorf("unsupported parameter value %T", v)
}
