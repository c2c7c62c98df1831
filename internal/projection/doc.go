// Package projection synthesizes the record a request returns.
//
// A Builder walks the destination shape's metadata under the control of a
// populate analyzer. Each selected field is read from the source through
// its field mapping (same-named member, custom source path, or an included
// member), nested references become nested records, collections of records
// become mapped lists, and dynamic passthrough fields take the layout of
// their source. The result is a new minimal record shape per request,
// expressed as an expr.Record tree.
//
// Every member access is recorded in the projection's PathBag before any
// collection rewrite, so filters and sorts can only reach members the
// projection actually exposes.
//
// A Cache memoizes projections by the structural identity of the Request.
package projection
