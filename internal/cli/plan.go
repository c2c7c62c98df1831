package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/populate/internal/params"
	"github.com/roach88/populate/internal/query"
)

// PlanOptions holds the flags shared by the commands that compile a plan.
type PlanOptions struct {
	Source      string
	Destination string
	Query       string
	Compiler    query.Options
}

// RegisterCompilerFlags registers flags for the query compiler options.
// A zero search depth or cache size takes the default.
func RegisterCompilerFlags(flags *pflag.FlagSet, opts *query.Options) {
	d := query.DefaultOptions()
	flags.IntVar(&opts.SearchDepth, "search-depth", d.SearchDepth, "how many levels below the root free-text search looks for fields")
	flags.BoolVar(&opts.NoDefaultSort, "no-default-sort", false, "do not order timestamped sources by createdAt when no sort is given")
	flags.Int64Var(&opts.Cache.MaxEntries, "cache-max-entries", d.Cache.MaxEntries, "maximum number of cached projections")
	flags.DurationVar(&opts.Cache.TTL, "cache-ttl", d.Cache.TTL, "sliding expiration of cached projections (negative disables expiry)")
}

// registerPlanFlags registers --source, --destination, --query and the
// compiler flags on cmd.
func registerPlanFlags(cmd *cobra.Command, opts *PlanOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.Source, "source", "s", "", "source shape the records are stored as (required)")
	flags.StringVarP(&opts.Destination, "destination", "d", "", "destination shape to project into (defaults to the source)")
	flags.StringVarP(&opts.Query, "query", "q", "", "query string, e.g. 'filter[age][$gt]=30&sort=-name'")
	_ = cmd.MarkFlagRequired("source")
	RegisterCompilerFlags(flags, &opts.Compiler)
}

// compilePlan loads the specs in dir and compiles opts into a plan. Errors
// are *LoadError values carrying the code to report. The returned compiler
// must be closed.
func compilePlan(dir string, opts PlanOptions, logger *slog.Logger) (*query.Compiler, *query.Plan, error) {
	loadResult, loadErrors := LoadSpecs(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return nil, nil, loadErr
		}
		return nil, nil, &LoadError{Code: ErrCodeGeneric, Message: loadErrors[0].Error()}
	}

	shapes, mappings, err := loadResult.Spec.Registries()
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid specs: %v", err)}
	}

	values, err := params.ParseQuery(opts.Query)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeInvalidQuery, Message: fmt.Sprintf("parse query: %v", err)}
	}
	qc := params.NewBinder(params.WithLogger(logger)).Bind(values)

	c, err := query.NewCompiler(shapes, mappings, opts.Compiler, query.WithLogger(logger))
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeInvalidOptions, Message: err.Error()}
	}

	destination := opts.Destination
	if destination == "" {
		destination = opts.Source
	}
	plan, err := c.Compile(opts.Source, destination, qc)
	if err != nil {
		c.Close()
		return nil, nil, &LoadError{Code: ErrCodeCompileFailed, Message: err.Error()}
	}
	return c, plan, nil
}

// fail reports a *LoadError (or any other error) and returns the matching
// ExitError.
func fail(formatter *OutputFormatter, exitCode int, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(exitCode, loadErr.Code, err)
	}
	return formatter.Fail(exitCode, ErrCodeGeneric, "command failed", err)
}
