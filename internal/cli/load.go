package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/populate/internal/compiler"
	"github.com/roach88/populate/internal/shape"
	"github.com/roach88/populate/internal/store"
)

// LoadOptions holds the load command flags.
type LoadOptions struct {
	DBPath   string
	Shape    string
	SpecsDir string
	Replace  bool
}

// LoadSummary reports what a load changed.
type LoadSummary struct {
	Shape    string `json:"shape" yaml:"shape"`
	Inserted int    `json:"inserted" yaml:"inserted"`
	Removed  int64  `json:"removed" yaml:"removed"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load <documents.json>",
		Short: "Load JSON documents into a SQLite document store",
		Long: `Insert the documents of a JSON file (one object or an array of objects)
into the store as records of one source shape. The store is created if it does
not exist. All documents are inserted in one transaction, in file order.

With --specs the shape must be declared there.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), rootOpts, *opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the SQLite document store (required)")
	cmd.Flags().StringVarP(&opts.Shape, "shape", "s", "", "source shape of the documents (required)")
	cmd.Flags().StringVar(&opts.SpecsDir, "specs", "", "specs directory declaring the shape")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "delete the shape's existing documents first")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("shape")

	return cmd
}

func runLoad(ctx context.Context, rootOpts *RootOptions, opts LoadOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := rootOpts.formatter(cmd)

	name := opts.Shape
	if opts.SpecsDir != "" {
		declared, err := declaredShape(opts.SpecsDir, opts.Shape)
		if err != nil {
			return fail(formatter, ExitCommandError, err)
		}
		name = declared
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(formatter, ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("read documents: %v", err)})
	}

	s, err := store.Open(opts.DBPath)
	if err != nil {
		return fail(formatter, ExitCommandError, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()})
	}
	defer s.Close()

	summary := LoadSummary{Shape: name}
	if opts.Replace {
		if summary.Removed, err = s.Clear(ctx, name); err != nil {
			return fail(formatter, ExitFailure, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
		}
	}
	if summary.Inserted, err = s.Load(ctx, name, data); err != nil {
		return fail(formatter, ExitFailure, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}
	formatter.VerboseLog("loaded %d %s document(s) into %s", summary.Inserted, name, opts.DBPath)

	if formatter.Structured() {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d %s document(s)", summary.Inserted, summary.Shape)
	if opts.Replace {
		fmt.Fprintf(formatter.Writer, " (%d removed)", summary.Removed)
	}
	fmt.Fprintln(formatter.Writer)
	return nil
}

// declaredShape returns the declared spelling of name, which must be a
// non-opaque shape of the specs in dir.
func declaredShape(dir, name string) (string, error) {
	loadResult, loadErrors := LoadSpecs(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return "", loadErrors[0]
	}
	shapes, _, err := loadResult.Spec.Registries()
	if err != nil {
		return "", &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid specs: %v", err)}
	}
	s, ok := shapes.Lookup(name)
	if !ok || shapes.IsOpaque(shape.Object(s.Name)) {
		return "", &LoadError{Code: compiler.ErrUnknownShape, Message: fmt.Sprintf("shape %q is not declared in %s", name, dir)}
	}
	return s.Name, nil
}
