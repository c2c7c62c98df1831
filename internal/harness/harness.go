package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"github.com/google/go-cmp/cmp"

	"github.com/roach88/populate/internal/compiler"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/params"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/shape"
	"github.com/roach88/populate/internal/store"
)

// Harness is the test execution engine.
// It compiles every step with one compiler, so later steps can observe the
// projection cache filled by earlier ones.
type Harness struct {
	store    *store.Store
	executor *store.Executor
	compiler *query.Compiler
	shapes   *shape.Registry
	logger   *slog.Logger

	// documents caches the stored documents of each source shape.
	documents map[string][]map[string]any
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the scenario's CUE and YAML specs into registries
// 2. Load source documents into a fresh in-memory store
// 3. Compile and execute each flow step, in memory and against the store
// 4. Validate expect clauses and assertions
// 5. Return result with pass/fail, step results, and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with compiler and executor logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	spec, err := loadSpecs(scenario.Specs)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	shapes, mappings, err := spec.Registries()
	if err != nil {
		return nil, fmt.Errorf("invalid specs: %w", err)
	}

	c, err := query.NewCompiler(shapes, mappings, scenario.Options, query.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}
	defer c.Close()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		executor:  store.NewExecutor(st, store.WithExecutorLogger(logger)),
		compiler:  c,
		shapes:    shapes,
		logger:    logger,
		documents: make(map[string][]map[string]any),
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.loadDocuments(ctx, scenario.Documents, result); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	if err := h.executeFlow(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// loadSpecs compiles each CUE file on its own and parses each YAML file,
// merging them into one spec.
func loadSpecs(paths []string) (*compiler.Spec, error) {
	ctx := cuecontext.New()
	merged := &compiler.Spec{}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue":
			value := ctx.CompileBytes(data, cuecontext.Filename(path))
			if err := value.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			spec, errs := compiler.CompileSpec(value)
			if len(errs) > 0 {
				return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
			}
			merged.Merge(spec)
		case ".yaml", ".yml":
			spec, err := compiler.ParseYAML(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			merged.Merge(spec)
		default:
			return nil, fmt.Errorf("%s: unsupported spec file type", path)
		}
	}

	if merged.Empty() {
		return nil, fmt.Errorf("no shapes or mappings declared")
	}
	return merged, nil
}

// loadDocuments stores each shape's documents under its canonical name.
// Shapes are loaded in name order so row ids are deterministic.
func (h *Harness) loadDocuments(ctx context.Context, documents map[string]string, result *Result) error {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s, ok := h.shapes.Lookup(name)
		if !ok || h.shapes.IsOpaque(shape.Object(s.Name)) {
			return fmt.Errorf("documents given for undeclared shape %q", name)
		}

		data, err := os.ReadFile(documents[name])
		if err != nil {
			return err
		}
		n, err := h.store.Load(ctx, s.Name, data)
		if err != nil {
			return err
		}
		result.Stored[s.Name] += n

		h.logger.Info("documents loaded", "shape", s.Name, "count", n)
	}
	return nil
}

// sourceDocuments returns the stored documents of a source shape.
func (h *Harness) sourceDocuments(ctx context.Context, source string) ([]map[string]any, error) {
	if docs, ok := h.documents[source]; ok {
		return docs, nil
	}
	docs, err := h.store.Documents(ctx, source)
	if err != nil {
		return nil, err
	}
	h.documents[source] = docs
	return docs, nil
}

// executeFlow compiles and runs every flow step and validates expect
// clauses.
//
// Each step:
// 1. Binds the query string into a query context
// 2. Compiles it into a plan (a build error ends the step)
// 3. Executes the plan in memory over the stored documents
// 4. Executes the plan as SQL against the store
// 5. Reports any disagreement between the two executions
// 6. Validates the expect clause
func (h *Harness) executeFlow(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, step := range scenario.Flow {
		source := step.Source
		if source == "" {
			source = scenario.Source
		}
		destination := step.Destination
		if destination == "" {
			destination = scenario.Destination
		}
		if destination == "" {
			destination = source
		}

		sr := StepResult{
			Name:        step.Name,
			Query:       step.Query,
			Source:      source,
			Destination: destination,
		}

		values, err := params.ParseQuery(step.Query)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		qc := params.NewBinder(params.WithLogger(h.logger)).Bind(values)

		plan, err := h.compiler.Compile(source, destination, qc)
		if err != nil {
			sr.Error = errorCode(err)
			result.AddStep(sr)
			h.checkExpectError(step, err, result)
			continue
		}

		sr.Source = plan.Source
		sr.Destination = plan.Destination
		sr.Predicate = expr.Format(plan.Predicate)
		sr.CacheHit = plan.CacheHit
		sr.Fingerprint = fmt.Sprintf("%016x", plan.Fingerprint())
		for _, o := range plan.Ordering {
			sr.Ordering = append(sr.Ordering, expr.Format(o.Key)+" "+o.Direction.String())
		}

		docs, err := h.sourceDocuments(ctx, plan.Source)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		inMemory, err := plan.Execute(docs)
		if err != nil {
			return fmt.Errorf("flow step %d: execute: %w", i, err)
		}
		fromStore, err := h.executor.Execute(ctx, plan)
		if err != nil {
			return fmt.Errorf("flow step %d: execute against store: %w", i, err)
		}

		memoryPage, err := normalize(inMemory)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		storePage, err := normalize(fromStore)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		if diff := cmp.Diff(memoryPage, storePage); diff != "" {
			result.AddError(fmt.Sprintf("step %q: store result differs from in-memory result (-memory +store):\n%s", step.Name, diff))
		}

		sr.Total = memoryPage.Total
		sr.Page = memoryPage.Page
		sr.PageSize = memoryPage.PageSize
		sr.Items = memoryPage.Items
		result.AddStep(sr)

		h.checkExpect(step, sr, result)

		h.logger.Info("flow step completed",
			"step", step.Name,
			"source", plan.Source,
			"destination", plan.Destination,
			"total", sr.Total,
			"cache_hit", plan.CacheHit,
		)
	}

	return nil
}

// errorCode returns the build error code, or the message for other errors.
func errorCode(err error) string {
	var be *projection.BuildError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return err.Error()
}

// checkExpectError validates a compile failure against the step's expect
// clause.
func (h *Harness) checkExpectError(step QueryStep, err error, result *Result) {
	if step.Expect == nil || step.Expect.Error == "" {
		result.AddError(fmt.Sprintf("step %q: compile failed: %v", step.Name, err))
		return
	}
	if errorCode(err) != step.Expect.Error && !strings.Contains(err.Error(), step.Expect.Error) {
		result.AddError(fmt.Sprintf("step %q: expected error %q, got: %v", step.Name, step.Expect.Error, err))
	}
}

// checkExpect validates a successful step against its expect clause.
func (h *Harness) checkExpect(step QueryStep, sr StepResult, result *Result) {
	e := step.Expect
	if e == nil {
		return
	}

	if e.Error != "" {
		result.AddError(fmt.Sprintf("step %q: expected error %q, but the query compiled", step.Name, e.Error))
		return
	}
	if e.Predicate != "" && e.Predicate != sr.Predicate {
		result.AddError(fmt.Sprintf("step %q: expected predicate %s, got %s", step.Name, e.Predicate, sr.Predicate))
	}
	if e.Total != nil && *e.Total != sr.Total {
		result.AddError(fmt.Sprintf("step %q: expected total %d, got %d", step.Name, *e.Total, sr.Total))
	}
	if e.Items != nil {
		if len(e.Items) != len(sr.Items) {
			result.AddError(fmt.Sprintf("step %q: expected %d items, got %d", step.Name, len(e.Items), len(sr.Items)))
			return
		}
		for i, want := range e.Items {
			if !matchArgs(sr.Items[i], want) {
				result.AddError(fmt.Sprintf("step %q: item %d = %v, want subset %v", step.Name, i, sr.Items[i], want))
			}
		}
	}
}

// page is a query.Result with its items reduced to plain JSON values.
type page struct {
	Items    []map[string]any `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// normalize round-trips a result through JSON so that numbers, times and
// decimals compare the same way whichever executor produced them.
func normalize(r *query.Result) (page, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return page{}, fmt.Errorf("encode result: %w", err)
	}
	var p page
	if err := json.Unmarshal(data, &p); err != nil {
		return page{}, fmt.Errorf("decode result: %w", err)
	}
	return p, nil
}
