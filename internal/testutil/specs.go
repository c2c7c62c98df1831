package testutil

import (
	"bytes"
	_ "embed"
)

var (
	//go:embed testdata/catalog.cue
	catalogCUE []byte

	//go:embed testdata/catalog.yaml
	catalogYAML []byte
)

// CatalogCUE returns the fixture catalog declared in CUE. It declares the
// same shapes and mappings as NewCatalog, in the same order.
func CatalogCUE() []byte { return bytes.Clone(catalogCUE) }

// CatalogYAML returns the fixture catalog in the YAML declaration format.
func CatalogYAML() []byte { return bytes.Clone(catalogYAML) }
