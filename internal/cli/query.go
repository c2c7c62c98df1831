package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/store"
)

// QueryOptions holds the query command flags.
type QueryOptions struct {
	PlanOptions
	DBPath   string
	DataPath string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <specs-dir>",
		Short: "Run a query against stored documents",
		Long: `Compile a query string and run it against the documents of the source
shape, either in a SQLite document store (--db) or in memory over a JSON file
holding an array of documents (--data). Both evaluate the same plan and agree
on results.

Items are printed projected into the destination shape, one page at a time
(pagination[page], pagination[pageSize]).`,
		Example: `  populate query ./specs --db docs.db -s Customer -d CustomerView \
    -q 'search=ali&pagination[pageSize]=5'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, *opts, args[0], cmd)
		},
	}

	registerPlanFlags(cmd, &opts.PlanOptions)
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the SQLite document store")
	cmd.Flags().StringVar(&opts.DataPath, "data", "", "JSON file of source documents to query in memory")
	cmd.MarkFlagsMutuallyExclusive("db", "data")
	cmd.MarkFlagsOneRequired("db", "data")

	return cmd
}

func runQuery(ctx context.Context, rootOpts *RootOptions, opts QueryOptions, specsDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := rootOpts.formatter(cmd)
	logger := rootOpts.logger()

	c, plan, err := compilePlan(specsDir, opts.PlanOptions, logger)
	if err != nil {
		return fail(formatter, ExitCommandError, err)
	}
	defer c.Close()

	var result *query.Result
	if opts.DataPath != "" {
		result, err = queryFile(opts.DataPath, plan)
	} else {
		result, err = queryStore(ctx, opts.DBPath, plan, logger)
	}
	if err != nil {
		return fail(formatter, ExitFailure, err)
	}

	formatter.VerboseLog("plan %016x matched %d document(s)", plan.Fingerprint(), result.Total)

	if formatter.Structured() {
		return formatter.Success(result)
	}
	return writeResult(formatter.Writer, result)
}

func queryFile(path string, plan *query.Plan) (*query.Result, error) {
	docs, err := readDocuments(path)
	if err != nil {
		return nil, err
	}
	result, err := plan.Execute(docs)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeExecuteFailed, Message: err.Error()}
	}
	return result, nil
}

func queryStore(ctx context.Context, path string, plan *query.Plan, logger *slog.Logger) (*query.Result, error) {
	s, err := openExistingStore(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	result, err := store.NewExecutor(s, store.WithExecutorLogger(logger)).Execute(ctx, plan)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeExecuteFailed, Message: err.Error()}
	}
	return result, nil
}

// openExistingStore opens a store that must already exist; querying a path
// that does not would silently create an empty database.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return s, nil
}

// readDocuments decodes a JSON file holding one object or an array of them.
// Numbers stay json.Number, as documents read back from the store do.
func readDocuments(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("read documents: %v", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decode %s: %v", path, err)}
		}
		return []map[string]any{doc}, nil
	}

	var docs []map[string]any
	if err := dec.Decode(&docs); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decode %s: %v", path, err)}
	}
	return docs, nil
}

func writeResult(w io.Writer, r *query.Result) error {
	for _, item := range r.Items {
		line, err := json.Marshal(item)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(line))
	}
	fmt.Fprintf(w, "%d of %d (page %d, size %d)\n", len(r.Items), r.Total, r.Page, r.PageSize)
	return nil
}
