package descriptor

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes a QueryContext with msgpack so a different search backend
// can rebuild the same descriptors without sharing compiled expressions.
// Struct fields are keyed by their msgpack tags; operators travel by name.
func Encode(qc QueryContext) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&qc); err != nil {
		return nil, fmt.Errorf("encode query context: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (QueryContext, error) {
	var qc QueryContext
	if err := msgpack.Unmarshal(data, &qc); err != nil {
		return QueryContext{}, fmt.Errorf("decode query context: %w", err)
	}
	return qc, nil
}
