package harness

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/testutil"
)

// fixtureScenario returns a scenario over the catalog specs and the
// customer fixtures, with the given flow.
func fixtureScenario(t *testing.T, flow ...QueryStep) *Scenario {
	t.Helper()
	dir := t.TempDir()
	specs := filepath.Join(dir, "catalog.yaml")
	docs := filepath.Join(dir, "customers.json")
	require.NoError(t, os.WriteFile(specs, testutil.CatalogYAML(), 0644))
	require.NoError(t, os.WriteFile(docs, testutil.CustomersJSON(), 0644))

	return &Scenario{
		Name:        "fixture",
		Description: "customers over the catalog",
		Specs:       []string{specs},
		Documents:   map[string]string{"customer": docs},
		Source:      "Customer",
		Destination: "CustomerView",
		Flow:        flow,
	}
}

func intPtr(n int) *int { return &n }

func TestRun_Flow(t *testing.T) {
	scenario := fixtureScenario(t,
		QueryStep{
			Name:  "gold",
			Query: "filter[tier][$in]=gold,bronze",
			Expect: &ExpectClause{
				Total: intPtr(2),
				Items: []map[string]any{{"name": "Grace Hopper"}, {"name": "Ada Lovelace"}},
			},
		},
		QueryStep{
			Name:   "nulls",
			Query:  "filter[email][$null]=true",
			Expect: &ExpectClause{Items: []map[string]any{{"name": "Charles Babbage", "email": nil}}},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]int{"Customer": 3}, result.Stored)

	require.Len(t, result.Steps, 2)
	gold := result.Steps[0]
	assert.Equal(t, "Customer", gold.Source)
	assert.Equal(t, "CustomerView", gold.Destination)
	assert.Equal(t, []string{"p.createdAt desc"}, gold.Ordering)
	assert.False(t, gold.CacheHit)
	assert.Len(t, gold.Fingerprint, 16)
	assert.True(t, result.Steps[1].CacheHit)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := fixtureScenario(t,
		QueryStep{
			Name:  "adults",
			Query: "filter[age][$gte]=79",
			Expect: &ExpectClause{
				Predicate: "(p.age > 79)",
				Total:     intPtr(3),
				Items:     []map[string]any{{"name": "Ada Lovelace"}},
			},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected predicate (p.age > 79), got (p.age >= 79)")
	assert.Contains(t, result.Errors[1], "expected total 3, got 2")
	assert.Contains(t, result.Errors[2], "expected 1 items, got 2")
}

func TestRun_CompileErrors(t *testing.T) {
	scenario := fixtureScenario(t,
		QueryStep{Name: "expected", Destination: "AddressView", Expect: &ExpectClause{Error: "MISSING_MAPPING"}},
		QueryStep{Name: "unexpected", Source: "Invoice"},
		QueryStep{Name: "wrong_code", Destination: "AddressView", Expect: &ExpectClause{Error: "SYNTHESIS_FAILED"}},
		QueryStep{Name: "compiled", Expect: &ExpectClause{Error: "MISSING_MAPPING"}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	require.Len(t, result.Steps, 4)
	assert.Equal(t, "MISSING_MAPPING", result.Steps[0].Error)
	assert.Equal(t, `unknown source shape "Invoice"`, result.Steps[1].Error)

	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `step "unexpected": compile failed`)
	assert.Contains(t, result.Errors[1], `step "wrong_code": expected error "SYNTHESIS_FAILED"`)
	assert.Contains(t, result.Errors[2], `step "compiled": expected error "MISSING_MAPPING", but the query compiled`)
}

func TestRun_Assertions(t *testing.T) {
	scenario := fixtureScenario(t, QueryStep{Name: "all"})
	scenario.Assertions = []Assertion{
		{Type: AssertResultCount, Step: "all", Count: 3},
		{Type: AssertStoredCount, Shape: "Customer", Count: 4},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "stored_count")
}

func TestRun_Errors(t *testing.T) {
	t.Run("undeclared document shape", func(t *testing.T) {
		scenario := fixtureScenario(t, QueryStep{Name: "all"})
		scenario.Documents = map[string]string{"Invoice": scenario.Documents["customer"]}
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `undeclared shape "Invoice"`)
	})

	t.Run("unsupported spec file", func(t *testing.T) {
		scenario := fixtureScenario(t, QueryStep{Name: "all"})
		path := filepath.Join(t.TempDir(), "catalog.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		scenario.Specs = []string{path}
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported spec file type")
	})

	t.Run("bad query escape", func(t *testing.T) {
		scenario := fixtureScenario(t, QueryStep{Name: "bad", Query: "filter[name]=%zz"})
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "flow step 0")
	})
}

func TestRunWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	result, err := RunWithLogger(fixtureScenario(t, QueryStep{Name: "all"}), logger)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Contains(t, buf.String(), "documents loaded")
	assert.Contains(t, buf.String(), "flow step completed")
}

func TestLoadSpecs_CUEAndYAML(t *testing.T) {
	dir := t.TempDir()
	cuePath := filepath.Join(dir, "catalog.cue")
	require.NoError(t, os.WriteFile(cuePath, testutil.CatalogCUE(), 0644))
	yamlPath := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
shapes:
  - name: Invoice
    fields:
      - {name: number, type: string}
`), 0644))

	spec, err := loadSpecs([]string{cuePath, yamlPath})
	require.NoError(t, err)

	shapes, _, err := spec.Registries()
	require.NoError(t, err)
	_, ok := shapes.Lookup("Invoice")
	assert.True(t, ok)
	_, ok = shapes.Lookup("CustomerView")
	assert.True(t, ok)
}
