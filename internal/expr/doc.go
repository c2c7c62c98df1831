// Package expr is the expression tree that compiled plans are made of.
//
// A plan's projection, predicate and sort keys are trees over a closed set
// of node kinds:
//
//   - Param: a bound record (the plan root or a lambda parameter)
//   - Member: field access on a record
//   - Const: a literal value of a declared type
//   - Binary: comparison, conjunction, disjunction and null coalescing
//   - Not: boolean negation
//   - Call: string matching, set membership, to-text conversion and the
//     collection operations any, max, map, flatMap and toList
//   - Lambda: a one-parameter function passed to a collection call
//   - Conditional: test ? then : else
//   - Record: a synthesized record built from named bindings
//
// Node is sealed with a marker method so that every consumer (the evaluator,
// the renderer, the SQL backend) can switch exhaustively over the kinds.
//
// Trees are immutable once built. Rewrites such as ReplaceParam and
// Stringify return new trees and never modify their input, which lets
// cached plans be shared between concurrent requests.
//
// Example:
//
//	p := expr.NewParam("p", shape.Object("Customer"))
//	orders := expr.MemberOf(p, "orders", shape.MustParseType("[]Order"))
//	o := expr.NewParam("x1", shape.Object("Order"))
//	total := expr.MemberOf(o, "total", shape.Scalar(shape.KindDecimal))
//	pred := expr.Any(orders, expr.NewLambda(o,
//		expr.Compare(expr.OpGe, total, expr.Constant(decimal.NewFromInt(100), total.Type()))))
//
//	expr.Format(pred) // p.orders.any(x1 => (x1.total >= 100))
package expr
