package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/querysql"
)

// ExplainResult is the printable form of a compiled plan and the SQL the
// SQLite executor would run for it.
type ExplainResult struct {
	Plan   query.Description `json:"plan" yaml:"plan"`
	Select SQLStatement      `json:"select" yaml:"select"`
	Count  SQLStatement      `json:"count" yaml:"count"`
}

// SQLStatement is one parameterized statement.
type SQLStatement struct {
	SQL    string `json:"sql" yaml:"sql"`
	Params []any  `json:"params" yaml:"params"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "explain <specs-dir>",
		Short: "Show the plan compiled for a query",
		Long: `Compile a query string against the declared shapes and print the plan:
the projection, the predicate, the ordering chain, the synthesized shapes,
the plan fingerprint and the SQL statements the SQLite executor would run.

Parameters that do not resolve are dropped, exactly as at query time; run
with --verbose to see why.`,
		Example: `  populate explain ./specs -s Customer -d CustomerView \
    -q 'filter[age][$gt]=30&sort=-name&populate=address'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, *opts, args[0], cmd)
		},
	}

	registerPlanFlags(cmd, opts)
	return cmd
}

func runExplain(rootOpts *RootOptions, opts PlanOptions, specsDir string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	c, plan, err := compilePlan(specsDir, opts, rootOpts.logger())
	if err != nil {
		return fail(formatter, ExitCommandError, err)
	}
	defer c.Close()

	statements, err := querysql.NewSQLCompiler().Compile(plan)
	if err != nil {
		return fail(formatter, ExitFailure, &LoadError{Code: ErrCodeCompileFailed, Message: fmt.Sprintf("compile SQL: %v", err)})
	}

	result := ExplainResult{
		Plan:   plan.Describe(),
		Select: sqlStatement(statements.Select),
		Count:  sqlStatement(statements.Count),
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}
	writeExplain(formatter.Writer, result)
	return nil
}

func sqlStatement(s querysql.Statement) SQLStatement {
	params := s.Params
	if params == nil {
		params = []any{}
	}
	return SQLStatement{SQL: s.SQL, Params: params}
}

func writeExplain(w io.Writer, r ExplainResult) {
	p := r.Plan
	fmt.Fprintf(w, "Plan %s -> %s (fingerprint %s)\n", p.Source, p.Destination, p.Fingerprint)
	fmt.Fprintf(w, "  projection: %s\n", p.Projection)
	fmt.Fprintf(w, "  predicate:  %s\n", p.Predicate)
	if len(p.Ordering) == 0 {
		fmt.Fprintln(w, "  ordering:   (none)")
	} else {
		fmt.Fprintf(w, "  ordering:   %s\n", strings.Join(p.Ordering, ", "))
	}
	fmt.Fprintln(w, "  shapes:")
	for _, s := range p.Shapes {
		fmt.Fprintf(w, "    %s { %s }\n", s.Name, strings.Join(s.Fields, "; "))
	}

	fmt.Fprintln(w, "SQL")
	fmt.Fprintf(w, "  select: %s\n", r.Select.SQL)
	fmt.Fprintf(w, "          %v\n", r.Select.Params)
	fmt.Fprintf(w, "  count:  %s\n", r.Count.SQL)
	fmt.Fprintf(w, "          %v\n", r.Count.Params)
}
