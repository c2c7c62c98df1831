// Package query compiles a descriptor.QueryContext into an executable Plan.
//
// A Plan has three parts that the executor applies in order:
//
//   - Predicate: filters and free-text search over the source record
//   - Ordering: sort keys, first key most significant
//   - Projection: the synthesized destination record
//
// All three are expr trees over the same root parameter. Filter and sort
// paths resolve against the projection's PathBag, so they can only reach
// members the projection exposes. A path that crosses a collection is
// quantified: filters become "any element satisfies" and sort keys become
// the maximum over the elements.
//
// Descriptors that do not resolve, or whose operator or value does not fit
// the member type, are dropped and logged at debug level. Only projection
// build errors fail a compile.
package query
