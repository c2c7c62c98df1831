package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/populate/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid" yaml:"valid"`
	Shapes   int                        `json:"shapes" yaml:"shapes"`
	Mappings int                        `json:"mappings" yaml:"mappings"`
	Errors   []compiler.ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate shape and mapping declarations",
		Long: `Validate the CUE and YAML shape and mapping declarations in a directory.

Reports declarations that do not compile, unknown shape references, nested
collections, mappings whose source paths do not resolve, and duplicate or
conflicting entries. Recursive shapes are reported as information: the
metadata resolver bounds their expansion.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Collect every problem, not just the first.
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE and %d YAML file(s) in %s", len(loadResult.CUEFiles), len(loadResult.YAMLFiles), specsDir)

	result := validateSpec(loadResult.Spec, formatter)
	result.Errors = append(loadValidationErrors(loadErrors), result.Errors...)
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateSpec checks the declarations and builds the registries once they
// check out, so registry-level problems are reported too.
func validateSpec(spec *compiler.Spec, formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{
		Shapes:   len(spec.Shapes),
		Mappings: len(spec.Mappings),
	}
	for _, s := range spec.Shapes {
		formatter.VerboseLog("Validating shape: %s", s.Name)
	}

	result.Errors = compiler.Validate(spec)
	if len(result.Errors) == 0 {
		if _, _, err := spec.Registries(); err != nil {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "registry",
				Message: err.Error(),
				Code:    ErrCodeGeneric,
			})
		}
	}

	result.Warnings = compiler.AnalyzeCycles(spec)
	return result
}

// loadValidationErrors converts load errors into validation errors, keeping
// the CUE position in the field when there is one.
func loadValidationErrors(errs []error) []compiler.ValidationError {
	var out []compiler.ValidationError
	for _, err := range errs {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			out = append(out, compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric})
			continue
		}
		field := "load"
		if loadErr.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d", loadErr.Pos.Filename(), loadErr.Pos.Line())
		}
		out = append(out, compiler.ValidationError{Field: field, Message: loadErr.Message, Code: loadErr.Code})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d shapes, %d mappings)\n", result.Shapes, result.Mappings)
	writeWarnings(formatter.Writer, result.Warnings)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Structured() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	writeWarnings(formatter.Writer, result.Warnings)

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(w io.Writer, warnings []compiler.CycleWarning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
	}
}

// ValidateSpecsDir validates all specs in a directory.
// This is a helper function for external callers.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	// Create a silent formatter for validateSpec
	silentFormatter := &OutputFormatter{Format: FormatText, Writer: io.Discard}
	result := validateSpec(loadResult.Spec, silentFormatter)

	return append(loadValidationErrors(loadErrors), result.Errors...), nil
}
