package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/populate/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Steps    []StepResult // Step results for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for i, s := range e.Steps {
			if s.Error != "" {
				fmt.Fprintf(&buf, "  [%d] %s %s -> %s: %s\n", i+1, s.Name, s.Source, s.Destination, s.Error)
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s: %d of %d\n", i+1, s.Name, s.Source, s.Destination, len(s.Items), s.Total)
		}
	}

	return buf.String()
}

// stepFor finds the assertion's step, failing if it did not compile.
func stepFor(result *Result, assertion Assertion) (StepResult, error) {
	step, ok := result.Step(assertion.Step)
	if !ok {
		return StepResult{}, &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("step %q", assertion.Step),
			Actual:   "step not found",
			Steps:    result.Steps,
		}
	}
	if step.Error != "" {
		return StepResult{}, &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("step %q to compile", assertion.Step),
			Actual:   step.Error,
			Steps:    result.Steps,
		}
	}
	return step, nil
}

// assertResultContains checks if the step's page holds an item matching
// assertion.Where (subset match).
func assertResultContains(result *Result, assertion Assertion) error {
	step, err := stepFor(result, assertion)
	if err != nil {
		return err
	}

	for _, item := range step.Items {
		if matchArgs(item, assertion.Where) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertResultContains,
		Expected: fmt.Sprintf("step %s returns an item matching %v", assertion.Step, assertion.Where),
		Actual:   "no matching item",
		Steps:    result.Steps,
	}
}

// assertResultOrder checks if the field's values appear in the specified
// order. Values don't need to be consecutive (intervening items are allowed).
func assertResultOrder(result *Result, assertion Assertion) error {
	step, err := stepFor(result, assertion)
	if err != nil {
		return err
	}

	// Step 1: Find first position of each expected value
	positions := make([]int, len(assertion.Values))
	for i, want := range assertion.Values {
		for j, item := range step.Items {
			if valuesEqual(item[assertion.Field], want) {
				positions[i] = j + 1 // 1-indexed for readability
				break
			}
		}
	}

	// Step 2: Verify all values found
	for i, want := range assertion.Values {
		if positions[i] == 0 {
			return &AssertionError{
				Type:     AssertResultOrder,
				Expected: fmt.Sprintf("all %s values present: %v", assertion.Field, assertion.Values),
				Actual:   fmt.Sprintf("missing value: %v", want),
				Steps:    result.Steps,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Values); i++ {
		if positions[i-1] >= positions[i] {
			return &AssertionError{
				Type:     AssertResultOrder,
				Expected: fmt.Sprintf("%s in order: %v", assertion.Field, assertion.Values),
				Actual: fmt.Sprintf("%v (pos %d) should be before %v (pos %d)",
					assertion.Values[i-1], positions[i-1], assertion.Values[i], positions[i]),
				Steps: result.Steps,
			}
		}
	}

	return nil
}

// assertResultCount checks if the step matched exactly the specified number
// of records, across all pages.
func assertResultCount(result *Result, assertion Assertion) error {
	step, err := stepFor(result, assertion)
	if err != nil {
		return err
	}

	if step.Total != assertion.Count {
		return &AssertionError{
			Type:     AssertResultCount,
			Expected: fmt.Sprintf("%d records matched by %s", assertion.Count, assertion.Step),
			Actual:   fmt.Sprintf("%d records", step.Total),
			Steps:    result.Steps,
		}
	}

	return nil
}

// assertCacheHit checks whether the step's projection was served from the
// plan cache.
func assertCacheHit(result *Result, assertion Assertion) error {
	step, err := stepFor(result, assertion)
	if err != nil {
		return err
	}

	if step.CacheHit != *assertion.Hit {
		return &AssertionError{
			Type:     AssertCacheHit,
			Expected: fmt.Sprintf("cache hit = %t for %s", *assertion.Hit, assertion.Step),
			Actual:   fmt.Sprintf("cache hit = %t", step.CacheHit),
			Steps:    result.Steps,
		}
	}

	return nil
}

// assertStoredCount checks if the store holds exactly the specified number
// of documents of the shape.
func assertStoredCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	counts, err := st.Shapes(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredCount,
			Expected: "list stored shapes",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	actual := 0
	for _, c := range counts {
		if strings.EqualFold(c.Shape, assertion.Shape) {
			actual = c.Count
		}
	}

	if actual != assertion.Count {
		return &AssertionError{
			Type:     AssertStoredCount,
			Expected: fmt.Sprintf("%d stored %s documents", assertion.Count, assertion.Shape),
			Actual:   fmt.Sprintf("%d documents", actual),
		}
	}

	return nil
}

// matchArgs checks if actual contains all expected fields (subset match).
// Extra keys in actual are ignored. Nested objects match as subsets too.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		if nested, ok := expectedVal.(map[string]any); ok {
			if !matchArgs(actualVal, nested) {
				return false
			}
			continue
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}

	return true
}

// valuesEqual compares two values for equality after reducing both to
// plain JSON values, so a YAML int matches a decoded JSON number.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(plain(actual), plain(expected))
}

func plain(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResultContains:
			err = assertResultContains(result, assertion)
		case AssertResultOrder:
			err = assertResultOrder(result, assertion)
		case AssertResultCount:
			err = assertResultCount(result, assertion)
		case AssertCacheHit:
			if assertion.Hit == nil {
				err = fmt.Errorf("assertion[%d]: cache_hit requires hit", i)
			} else {
				err = assertCacheHit(result, assertion)
			}
		case AssertStoredCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_count requires database context", i)
			} else {
				err = assertStoredCount(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
