package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSpec creates a placeholder spec file for testing.
func createTestSpec(t *testing.T, dir, name string) string {
	t.Helper()
	specsDir := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(specsDir, 0755))
	specPath := filepath.Join(specsDir, name)
	require.NoError(t, os.WriteFile(specPath, []byte("shapes: []\n"), 0644))
	return specPath
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "catalog.yaml")

	scenarioPath := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
specs:
  - specs/catalog.yaml
source: Customer
destination: CustomerView
options:
  searchDepth: 2
  cache:
    ttl: 30m
flow:
  - name: adults
    query: "filter[age][$gte]=18"
    expect:
      total: 2
      items:
        - name: "Ada"
assertions:
  - type: result_contains
    step: adults
    where:
      name: "Ada"
`)

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, []string{filepath.Join(dir, "specs", "catalog.yaml")}, scenario.Specs)
	assert.Equal(t, "CustomerView", scenario.Destination)
	assert.Equal(t, 2, scenario.Options.SearchDepth)
	assert.Equal(t, 30*time.Minute, scenario.Options.Cache.TTL)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "filter[age][$gte]=18", scenario.Flow[0].Query)
	require.NotNil(t, scenario.Flow[0].Expect.Total)
	assert.Equal(t, 2, *scenario.Flow[0].Expect.Total)
	assert.Equal(t, "Ada", scenario.Flow[0].Expect.Items[0]["name"])
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "catalog.yaml")

	scenarioPath := writeScenario(t, dir, `
name: typo
description: "Misspelled key"
specs: [specs/catalog.yaml]
source: Customer
flow:
  - name: all
assertion:
  - type: result_count
`)

	_, err := LoadScenario(scenarioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "catalog.yaml")
	docs := filepath.Join(dir, "customers.json")
	require.NoError(t, os.WriteFile(docs, []byte("[]"), 0644))

	scenarioPath := writeScenario(t, t.TempDir(), `
name: based
description: "Paths resolve against the base path"
specs: [specs/catalog.yaml]
documents:
  Customer: customers.json
source: Customer
flow:
  - name: all
`)

	scenario, err := LoadScenarioWithBasePath(scenarioPath, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "specs", "catalog.yaml"), scenario.Specs[0])
	assert.Equal(t, docs, scenario.Documents["Customer"])
}

func TestValidateScenario(t *testing.T) {
	dir := t.TempDir()
	spec := createTestSpec(t, dir, "catalog.yaml")
	hit := true

	valid := func() *Scenario {
		return &Scenario{
			Name:        "valid",
			Description: "valid",
			Specs:       []string{spec},
			Source:      "Customer",
			Flow:        []QueryStep{{Name: "all"}},
		}
	}

	testCases := []struct {
		name   string
		mutate func(s *Scenario)
		errMsg string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no specs", func(s *Scenario) { s.Specs = nil }, "specs list is required"},
		{"no flow", func(s *Scenario) { s.Flow = nil }, "flow list is required"},
		{"spec not found", func(s *Scenario) { s.Specs = []string{filepath.Join(dir, "nope.cue")} }, "spec file not found"},
		{"documents not found", func(s *Scenario) {
			s.Documents = map[string]string{"Customer": filepath.Join(dir, "nope.json")}
		}, "documents for Customer not found"},
		{"unnamed step", func(s *Scenario) { s.Flow[0].Name = "" }, "flow[0]: name is required"},
		{"duplicate step", func(s *Scenario) {
			s.Flow = append(s.Flow, QueryStep{Name: "all"})
		}, `duplicate step name "all"`},
		{"no source", func(s *Scenario) { s.Source = "" }, "source is required"},
		{"error with results", func(s *Scenario) {
			total := 1
			s.Flow[0].Expect = &ExpectClause{Error: "MISSING_MAPPING", Total: &total}
		}, "error cannot be combined"},
		{"assertion without type", func(s *Scenario) {
			s.Assertions = []Assertion{{Step: "all"}}
		}, "type is required"},
		{"assertion on unknown step", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultCount, Step: "other"}}
		}, `unknown step "other"`},
		{"contains without where", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultContains, Step: "all"}}
		}, "where is required"},
		{"order without values", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultOrder, Step: "all", Field: "name"}}
		}, "field and values are required"},
		{"negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultCount, Step: "all", Count: -1}}
		}, "count must be non-negative"},
		{"cache hit without hit", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertCacheHit, Step: "all"}}
		}, "hit is required"},
		{"stored count without shape", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStoredCount}}
		}, "shape is required"},
		{"unknown type", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: "final_state", Step: "all"}}
		}, `unknown assertion type "final_state"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	t.Run("valid", func(t *testing.T) {
		s := valid()
		s.Assertions = []Assertion{
			{Type: AssertCacheHit, Step: "all", Hit: &hit},
			{Type: AssertStoredCount, Shape: "Customer", Count: 0},
		}
		assert.NoError(t, validateScenario(s))
	})
}
