package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/populate/internal/query"
)

// Scenario defines a conformance test scenario.
// Scenarios load declared shapes and source documents, compile a flow of
// query strings into plans, and assert on the pages those plans return.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE or YAML spec files to compile and load.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Documents maps a source shape name to a JSON file holding its
	// documents (one object or an array). Paths resolve like Specs.
	Documents map[string]string `yaml:"documents,omitempty"`

	// Source and Destination are the default shape pair for flow steps.
	Source      string `yaml:"source"`
	Destination string `yaml:"destination,omitempty"`

	// Options configures the query compiler. Zero fields take defaults.
	Options query.Options `yaml:"options,omitempty"`

	// Flow contains the query steps, compiled and executed in order.
	Flow []QueryStep `yaml:"flow"`

	// Assertions validate the step results and the loaded store.
	// Supported types: result_contains, result_order, result_count,
	// cache_hit, stored_count
	Assertions []Assertion `yaml:"assertions"`
}

// QueryStep compiles one query string and runs the plan.
type QueryStep struct {
	// Name identifies the step in assertions and golden snapshots.
	Name string `yaml:"name"`

	// Query is the raw query string, e.g. "filter[age][$gt]=30".
	Query string `yaml:"query"`

	// Source and Destination override the scenario's shape pair.
	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step only has to compile and execute.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Error is the expected build error code (e.g. "MISSING_MAPPING") or a
	// substring of the compile error.
	Error string `yaml:"error,omitempty"`

	// Predicate is the expected rendered predicate.
	Predicate string `yaml:"predicate,omitempty"`

	// Total is the expected number of matching records.
	Total *int `yaml:"total,omitempty"`

	// Items are the expected page items, in order. Each entry is a subset
	// match against the item at the same position.
	Items []map[string]any `yaml:"items,omitempty"`
}

// Assertion validates step results or stored documents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_contains": Check a step returned an item matching Where
	// - "result_order": Check a field's values appear in order in a step's items
	// - "result_count": Check a step matched exactly Count records
	// - "cache_hit": Check whether a step's projection came from the cache
	// - "stored_count": Check the store holds Count documents of Shape
	Type string `yaml:"type"`

	// Step names the flow step (all types except stored_count).
	Step string `yaml:"step,omitempty"`

	// Where is the expected item (used by result_contains).
	// Subset match - only specified fields are validated.
	Where map[string]any `yaml:"where,omitempty"`

	// Field and Values give the expected order (used by result_order).
	Field  string `yaml:"field,omitempty"`
	Values []any  `yaml:"values,omitempty"`

	// Count is the expected number (used by result_count, stored_count).
	Count int `yaml:"count,omitempty"`

	// Hit is the expected cache outcome (used by cache_hit).
	Hit *bool `yaml:"hit,omitempty"`

	// Shape is the source shape name (used by stored_count).
	Shape string `yaml:"shape,omitempty"`
}

// Assertion type constants.
const (
	AssertResultContains = "result_contains"
	AssertResultOrder    = "result_order"
	AssertResultCount    = "result_count"
	AssertCacheHit       = "cache_hit"
	AssertStoredCount    = "stored_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec and
// document paths relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec and document paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		scenario.Specs[i] = resolve(basePath, specPath)
	}
	for shapeName, docPath := range scenario.Documents {
		scenario.Documents[shapeName] = resolve(basePath, docPath)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or checking paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func resolve(basePath, path string) string {
	if filepath.IsAbs(path) || basePath == "" {
		return path
	}
	return filepath.Join(basePath, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}
	for shapeName, docPath := range s.Documents {
		if _, err := os.Stat(docPath); os.IsNotExist(err) {
			return fmt.Errorf("documents for %s not found: %s", shapeName, docPath)
		}
	}

	steps := make(map[string]bool, len(s.Flow))
	for i, step := range s.Flow {
		if step.Name == "" {
			return fmt.Errorf("flow[%d]: name is required", i)
		}
		if steps[step.Name] {
			return fmt.Errorf("flow[%d]: duplicate step name %q", i, step.Name)
		}
		steps[step.Name] = true
		if step.Source == "" && s.Source == "" {
			return fmt.Errorf("flow[%d]: source is required (set it on the step or the scenario)", i)
		}
		if e := step.Expect; e != nil && e.Error != "" && (e.Total != nil || len(e.Items) > 0 || e.Predicate != "") {
			return fmt.Errorf("flow[%d].expect: error cannot be combined with results", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, steps); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Type != AssertStoredCount && !steps[a.Step] {
		return fmt.Errorf("assertions[%d]: unknown step %q for %s", index, a.Step, a.Type)
	}

	switch a.Type {
	case AssertResultContains:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for result_contains", index)
		}
	case AssertResultOrder:
		if a.Field == "" || len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: field and values are required for result_order", index)
		}
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for result_count", index)
		}
	case AssertCacheHit:
		if a.Hit == nil {
			return fmt.Errorf("assertions[%d]: hit is required for cache_hit", index)
		}
	case AssertStoredCount:
		if a.Shape == "" {
			return fmt.Errorf("assertions[%d]: shape is required for stored_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for stored_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
