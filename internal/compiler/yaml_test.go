package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/populate/internal/testutil"
)

func TestParseYAMLCatalogMatchesFixture(t *testing.T) {
	spec, err := ParseYAML(testutil.CatalogYAML())
	require.NoError(t, err)
	assertCatalog(t, spec)
}

func TestParseYAMLEmpty(t *testing.T) {
	spec, err := ParseYAML([]byte("  \n"))
	require.NoError(t, err)
	assert.True(t, spec.Empty())
}

func TestParseYAMLErrors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		message string
	}{
		{"unknown key", "shapes:\n  - name: A\n    colour: red\n    fields: [{name: a, type: int}]\n", "colour"},
		{"invalid type", "shapes:\n  - name: A\n    fields: [{name: a, type: \"int??x\"}]\n", "invalid type"},
		{"unnamed shape", "shapes:\n  - fields: [{name: a, type: int}]\n", "name is required"},
		{"no fields", "shapes:\n  - name: A\n", "fields are required"},
		{"mapping without destination", "mappings:\n  - source: A\n", "source and destination are required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestSpecYAMLRoundTrip(t *testing.T) {
	v := cuecontext.New().CompileBytes(testutil.CatalogCUE())
	spec, errs := CompileSpec(v)
	require.Empty(t, errs)

	out, err := yaml.Marshal(spec)
	require.NoError(t, err)

	back, err := ParseYAML(out)
	require.NoError(t, err)
	if diff := cmp.Diff(spec, back); diff != "" {
		t.Errorf("round trip mismatch (-cue +yaml):\n%s", diff)
	}
}
