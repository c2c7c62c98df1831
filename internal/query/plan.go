package query

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/shape"
)

// Plan is a compiled query: the root parameter every expression binds the
// source record to, the combined predicate, the ordering chain and the
// projection.
type Plan struct {
	Source      string
	Destination string

	Root       *expr.Param
	Predicate  expr.Node
	Ordering   []Ordering
	Projection *projection.Projection

	// Paging is carried through for executors; compiling ignores it.
	Paging descriptor.PagingDescriptor

	// CacheHit reports whether the projection came from the plan cache.
	CacheHit bool
}

// Unconditional reports whether the predicate accepts every record.
func (p *Plan) Unconditional() bool { return expr.IsTrue(p.Predicate) }

// Fingerprint hashes the projection, predicate and ordering.
func (p *Plan) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(expr.Format(p.Projection.Lambda()))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(expr.Format(p.Predicate))
	for _, o := range p.Ordering {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(expr.Format(o.Key))
		_, _ = d.WriteString(" " + o.Direction.String())
	}
	return d.Sum64()
}

// Match evaluates the predicate against one source document.
func (p *Plan) Match(doc map[string]any) (bool, error) {
	return expr.EvalBool(p.Predicate, expr.Bind(p.Root, doc))
}

type keyed struct {
	doc  map[string]any
	keys []any
}

// Sort orders docs in place by the ordering chain. Nulls sort first in
// ascending order and last in descending order. Documents with equal keys
// keep their relative order.
func (p *Plan) Sort(docs []map[string]any) error {
	if len(p.Ordering) == 0 {
		return nil
	}

	rows := make([]keyed, len(docs))
	for i, doc := range docs {
		env := expr.Bind(p.Root, doc)
		keys := make([]any, len(p.Ordering))
		for j, o := range p.Ordering {
			v, err := expr.Eval(o.Key, env)
			if err != nil {
				return fmt.Errorf("sort key %s: %w", o.Path, err)
			}
			keys[j] = v
		}
		rows[i] = keyed{doc: doc, keys: keys}
	}

	var cmpErr error
	slices.SortStableFunc(rows, func(a, b keyed) int {
		for j, o := range p.Ordering {
			c, err := compareKeys(a.keys[j], b.keys[j])
			if err != nil && cmpErr == nil {
				cmpErr = fmt.Errorf("sort key %s: %w", o.Path, err)
			}
			if c == 0 {
				continue
			}
			if o.Descending() {
				return -c
			}
			return c
		}
		return 0
	})
	if cmpErr != nil {
		return cmpErr
	}

	for i, r := range rows {
		docs[i] = r.doc
	}
	return nil
}

func compareKeys(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	return shape.Compare(a, b)
}

// Result is one page of projected records.
type Result struct {
	Items    []map[string]any `json:"items" yaml:"items"`
	Total    int              `json:"total" yaml:"total"`
	Page     int              `json:"page" yaml:"page"`
	PageSize int              `json:"pageSize" yaml:"pageSize"`
}

// Execute runs the plan in memory over decoded source documents: filter,
// order, count, page, then project. docs is not modified.
func (p *Plan) Execute(docs []map[string]any) (*Result, error) {
	var matched []map[string]any
	for i, doc := range docs {
		ok, err := p.Match(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	if err := p.Sort(matched); err != nil {
		return nil, err
	}

	res := &Result{
		Items:    []map[string]any{},
		Total:    len(matched),
		Page:     p.Paging.Page,
		PageSize: p.Paging.PageSize,
	}
	start := min(p.Paging.Offset(), len(matched))
	end := len(matched)
	if p.Paging.PageSize > 0 {
		end = min(start+p.Paging.PageSize, len(matched))
	}
	for _, doc := range matched[start:end] {
		item, err := p.Projection.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// Description is the printable form of a plan.
type Description struct {
	Source      string             `json:"source" yaml:"source"`
	Destination string             `json:"destination" yaml:"destination"`
	Fingerprint string             `json:"fingerprint" yaml:"fingerprint"`
	CacheHit    bool               `json:"cacheHit" yaml:"cacheHit"`
	Projection  string             `json:"projection" yaml:"projection"`
	Predicate   string             `json:"predicate" yaml:"predicate"`
	Ordering    []string           `json:"ordering,omitempty" yaml:"ordering,omitempty"`
	Shapes      []ShapeDescription `json:"shapes" yaml:"shapes"`
}

// ShapeDescription lists the fields of one synthesized shape.
type ShapeDescription struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Describe renders the plan for display.
func (p *Plan) Describe() Description {
	d := Description{
		Source:      p.Source,
		Destination: p.Destination,
		Fingerprint: fmt.Sprintf("%016x", p.Fingerprint()),
		CacheHit:    p.CacheHit,
		Projection:  expr.Format(p.Projection.Lambda()),
		Predicate:   expr.Format(p.Predicate),
	}
	for _, o := range p.Ordering {
		d.Ordering = append(d.Ordering, expr.Format(o.Key)+" "+o.Direction.String())
	}
	for _, s := range p.Projection.Shapes() {
		sd := ShapeDescription{Name: s.Name}
		for _, f := range s.Fields {
			sd.Fields = append(sd.Fields, f.Name+" "+f.Type.String())
		}
		d.Shapes = append(d.Shapes, sd)
	}
	return d
}
