// Package shape describes the field layout of source and destination records.
//
// A Shape is a named, ordered list of fields. Each field carries a Type that
// is either a scalar (string, number, time, identifier, enum), a nested record
// of another Shape, a homogeneous collection, an opaque value that is stored
// and compared as a whole, or a dynamic passthrough whose concrete layout is
// decided per request by the populate selection.
//
// The package also owns the scalar value rules every other layer relies on:
//
//   - Parse coerces a raw query-string value into the canonical Go value for a
//     Type (int64, float64, decimal.Decimal, time.Time, uuid.UUID, ...).
//   - Normalize converts a decoded JSON document value into the same canonical
//     form so that parsed literals and stored values compare directly.
//   - Compare orders two canonical values of the same kind.
//
// Shapes are registered once in a Registry and treated as immutable for the
// lifetime of the process.
package shape
