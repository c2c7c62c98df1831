package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/shape"
	"github.com/roach88/populate/internal/testutil"
)

func TestRegistries(t *testing.T) {
	shapes, maps, err := catalogSpec(t).Registries()
	require.NoError(t, err)

	assert.ElementsMatch(t, testutil.NewCatalog().Shapes.Names(), shapes.Names())
	assert.True(t, shapes.IsOpaque(shape.Object("Blob")))

	m, ok := maps.Resolve("customer", "customerview")
	require.True(t, ok)
	assert.Equal(t, testutil.CustomerToView, m)
}

func TestRegistriesReportsEveryProblem(t *testing.T) {
	spec := &Spec{
		Shapes: []*shape.Shape{
			{Name: "A", Fields: []shape.Field{testutil.F("b", "B")}},
			{Name: "Empty"},
		},
		Mappings: []*mapping.TypeMap{{Source: "A", Destination: "Missing"}},
	}

	_, _, err := spec.Registries()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUnknownShape)
	assert.Contains(t, err.Error(), ErrShapeNoFields)
	assert.Contains(t, err.Error(), ErrMappingUnknownShape)
}

func TestMerge(t *testing.T) {
	a := &Spec{Shapes: []*shape.Shape{testutil.Address}}
	b := &Spec{Shapes: []*shape.Shape{testutil.Blob}, Opaque: []string{"Blob"}, Mappings: []*mapping.TypeMap{testutil.AddressToView}}

	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, []*shape.Shape{testutil.Address, testutil.Blob}, a.Shapes)
	assert.Equal(t, []string{"Blob"}, a.Opaque)
	assert.Len(t, a.Mappings, 1)
	assert.False(t, a.Empty())
}
