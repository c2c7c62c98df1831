package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/querysql"
)

// Executor runs compiled plans against a Store.
type Executor struct {
	store    *Store
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger statements are traced to.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor over s.
func NewExecutor(s *Store, opts ...ExecutorOption) *Executor {
	e := &Executor{store: s, compiler: querysql.NewSQLCompiler(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Statements returns the SQL the executor runs for plan.
func (e *Executor) Statements(plan *query.Plan) (querysql.Query, error) {
	return e.compiler.Compile(plan)
}

// Execute counts the documents matching plan, fetches the requested page in
// plan order and projects each of them.
func (e *Executor) Execute(ctx context.Context, plan *query.Plan) (*query.Result, error) {
	q, err := e.compiler.Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	e.logger.Debug("executing plan",
		"source", plan.Source,
		"destination", plan.Destination,
		"sql", q.Select.SQL,
	)

	var total int
	if err := e.store.db.QueryRowContext(ctx, q.Count.SQL, q.Count.Params...).Scan(&total); err != nil {
		return nil, fmt.Errorf("execute: count: %w", err)
	}

	rows, err := e.store.db.QueryContext(ctx, q.Select.SQL, q.Select.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute: select: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	res := &query.Result{
		Items:    make([]map[string]any, 0, len(docs)),
		Total:    total,
		Page:     plan.Paging.Page,
		PageSize: plan.Paging.PageSize,
	}
	for _, doc := range docs {
		item, err := plan.Projection.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("execute: project: %w", err)
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}
