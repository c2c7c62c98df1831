package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/testutil"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

// scenarioDir writes one scenario over the fixture catalog and customers.
// The fixtures live outside the scenario directory so they are not picked up
// as scenarios.
func scenarioDir(t *testing.T, total int) string {
	t.Helper()
	fixtures := t.TempDir()
	specs := writeFile(t, fixtures, "catalog.yaml", testutil.CatalogYAML())
	docs := writeFile(t, fixtures, "customers.json", testutil.CustomersJSON())

	dir := t.TempDir()
	writeFile(t, dir, "tiers.yaml", []byte(`
name: tiers
description: "Tier filter over customers"
specs: [`+specs+`]
documents:
  Customer: `+docs+`
source: Customer
destination: CustomerView
flow:
  - name: gold_or_bronze
    query: "filter[tier][$in]=gold,bronze"
    expect:
      total: `+jsonInt(total)+`
`))
	return dir
}

func jsonInt(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func TestTestCommand_HarnessScenarios(t *testing.T) {
	stdout, _, err := runCLI(t, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "✓ customers_filters\n")
	assert.Contains(t, stdout, "✓ mapped_collections\n")
	assert.Contains(t, stdout, "✓ projection_cache\n")
	assert.Contains(t, stdout, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "test", harnessScenarios,
		"--golden", harnessGolden, "--filter", "projection_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, TestResult{
		Scenarios: []ScenarioResult{{Name: "projection_cache", Pass: true}},
		Passed:    1,
		Total:     1,
	}, resp.Data)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := scenarioDir(t, 2)

	stdout, _, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ tiers (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "tiers.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "tiers"`)
	assert.Contains(t, string(golden), `"name": "Grace Hopper"`)

	stdout, _, err = runCLI(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ tiers\n")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "tiers.golden"), []byte("{}\n"), 0o644))
	stdout, _, err = runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "snapshot does not match golden file")
}

func TestTestCommand_Failures(t *testing.T) {
	dir := scenarioDir(t, 3)

	stdout, _, err := runCLI(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestTestCommand_BadScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", []byte("name: broken\nflows: []\n"))

	stdout, _, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommand_Empty(t *testing.T) {
	stdout, _, err := runCLI(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := runCLI(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "nested/c.yaml", "notes.txt"} {
		writeFile(t, dir, name, []byte{})
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	files, err = findScenarioFiles(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}
