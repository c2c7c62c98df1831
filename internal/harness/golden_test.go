package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot(t *testing.T) {
	r := NewResult()
	r.AddStep(StepResult{
		Name:        "one",
		Query:       "filter[name][$eq]=<Ada>",
		Source:      "Customer",
		Destination: "CustomerView",
		Predicate:   "true",
		Total:       1,
		Page:        1,
		PageSize:    10,
		Items:       []map[string]any{{"name": "<Ada>", "age": float64(36)}},
		Fingerprint: "00000000deadbeef",
	})

	data, err := MarshalSnapshot("snap", r)
	require.NoError(t, err)

	assert.Equal(t, `{
  "scenario": "snap",
  "steps": [
    {
      "name": "one",
      "query": "filter[name][$eq]=<Ada>",
      "source": "Customer",
      "destination": "CustomerView",
      "predicate": "true",
      "cacheHit": false,
      "total": 1,
      "page": 1,
      "pageSize": 10,
      "items": [
        {
          "age": 36,
          "name": "<Ada>"
        }
      ]
    }
  ]
}
`, string(data))
}

func TestAssertGolden_UsesScenarioName(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "projection_cache.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "projection_cache", result))
}
