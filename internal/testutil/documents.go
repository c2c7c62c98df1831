package testutil

import (
	"bytes"
	_ "embed"
	"encoding/json"
)

//go:embed testdata/customers.json
var customersJSON []byte

// Customers returns fresh copies of the fixture Customer documents, decoded
// the way the store decodes them (numbers as json.Number).
//
// Ada (gold, vip, two orders, London), Charles (silver, no address, referred
// by Ada, one pending order) and Grace (bronze, Arlington, no orders).
func Customers() []map[string]any {
	dec := json.NewDecoder(bytes.NewReader(customersJSON))
	dec.UseNumber()
	var docs []map[string]any
	if err := dec.Decode(&docs); err != nil {
		panic(err)
	}
	return docs
}

// CustomersJSON returns the raw fixture document array.
func CustomersJSON() []byte {
	return bytes.Clone(customersJSON)
}
