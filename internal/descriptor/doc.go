// Package descriptor holds the backend-agnostic query descriptors produced
// from request parameters: filters, sorts, free-text search, paging and the
// populate key set.
//
// Descriptors carry raw, unparsed values and plain paths. They never embed
// compiled expressions, so any backend (the expression compiler in this
// module, or an external document-search builder receiving them through the
// msgpack codec) can consume the same values.
package descriptor
