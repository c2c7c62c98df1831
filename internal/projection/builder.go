package projection

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/meta"
	"github.com/roach88/populate/internal/shape"
)

// RootParam names the parameter every projection binds the source record to.
const RootParam = "p"

// Projection is a compiled projection: a record expression over the source
// root, the access of every projected member, and the shapes synthesized
// for the selected fields.
type Projection struct {
	Key  string
	Root *expr.Param
	Body expr.Node

	// Paths holds the access recorded for each projected member. Filters
	// and sorts compile against it.
	Paths *PathBag

	shapes map[memberpath.Path]*shape.Shape
}

// Lambda returns the projection as root => body.
func (p *Projection) Lambda() *expr.Lambda {
	return expr.NewLambda(p.Root, p.Body)
}

// Fingerprint hashes the projection expression.
func (p *Projection) Fingerprint() uint64 {
	return expr.Fingerprint(p.Lambda())
}

// Shape returns the shape synthesized for the record at path.
func (p *Projection) Shape(path memberpath.Path) (*shape.Shape, bool) {
	s, ok := p.shapes[path]
	return s, ok
}

// Shapes returns every synthesized shape, shallowest path first.
func (p *Projection) Shapes() []*shape.Shape {
	paths := make([]memberpath.Path, 0, len(p.shapes))
	for path := range p.shapes {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Level() != paths[j].Level() {
			return paths[i].Level() < paths[j].Level()
		}
		return paths[i].Value() < paths[j].Value()
	})
	out := make([]*shape.Shape, len(paths))
	for i, path := range paths {
		out[i] = p.shapes[path]
	}
	return out
}

// Apply projects one decoded source document.
func (p *Projection) Apply(doc map[string]any) (map[string]any, error) {
	v, err := expr.Eval(p.Body, expr.Bind(p.Root, doc))
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}

// Builder synthesizes projections. It holds no per-request state and is
// safe for concurrent use.
type Builder struct {
	shapes   *shape.Registry
	mappings mapping.Provider
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates a builder reading shapes and field mappings.
func NewBuilder(shapes *shape.Registry, mappings mapping.Provider, opts ...BuilderOption) *Builder {
	b := &Builder{shapes: shapes, mappings: mappings, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build synthesizes the projection for req.
func (b *Builder) Build(req Request) (*Projection, error) {
	if req.Analyzer == nil {
		return nil, fmt.Errorf("projection request %s -> %s has no analyzer", req.Source, req.Destination)
	}
	source, ok := b.shapes.Lookup(req.Source)
	if !ok {
		return nil, fmt.Errorf("unknown source shape %q", req.Source)
	}
	if _, ok := b.shapes.Lookup(req.Destination); !ok {
		return nil, fmt.Errorf("unknown destination shape %q", req.Destination)
	}
	node, ok := req.Analyzer.Bag().Node(req.Root)
	if !ok {
		return nil, fmt.Errorf("root %q is not a member of %s", req.Root.Value(), req.Destination)
	}
	if !strings.EqualFold(source.Name, node.Shape.Name) {
		if _, ok := b.mappings.Resolve(source.Name, node.Shape.Name); !ok {
			return nil, missingMapping(source.Name, node.Shape.Name)
		}
	}

	run := &build{
		Builder:     b,
		req:         req,
		paths:       newPathBag(),
		synthesized: make(map[memberpath.Path]*shape.Shape),
	}
	root := expr.NewParam(RootParam, shape.Object(source.Name))
	body, err := run.record(req.Root, root, nil, source, node.Shape)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("projection synthesized",
		"source", source.Name,
		"destination", node.Shape.Name,
		"root", req.Root.Value(),
		"shapes", len(run.synthesized))

	return &Projection{
		Key:    req.Key(),
		Root:   root,
		Body:   body,
		Paths:  run.paths,
		shapes: run.synthesized,
	}, nil
}

// build is the state of one Build call.
type build struct {
	*Builder
	req         Request
	paths       *PathBag
	synthesized map[memberpath.Path]*shape.Shape
	params      int
	sources     map[string]*expr.Lambda
}

func (r *build) param(t shape.Type) *expr.Param {
	r.params++
	return expr.NewParam(fmt.Sprintf("x%d", r.params), t)
}

func (r *build) fail(path memberpath.Path, op string, err error) error {
	return NewSynthesisError(r.req.Source, r.req.Destination, path, op, err)
}

// synthesizedName names the record shape built for dest at path.
func (r *build) synthesizedName(dest *shape.Shape, path memberpath.Path) string {
	if path == r.req.Root {
		return dest.Name
	}
	return dest.Name + "@" + path.Value()
}

// record builds the record selected at path from src, a source of shape
// source, into the destination node shape dest.
func (r *build) record(path memberpath.Path, src expr.Node, scopes []Scope, source, dest *shape.Shape) (*expr.Record, error) {
	var tm *mapping.TypeMap
	if !strings.EqualFold(source.Name, dest.Name) {
		m, ok := r.mappings.Resolve(source.Name, dest.Name)
		if !ok {
			return nil, missingMapping(source.Name, dest.Name)
		}
		tm = m
	}

	sel := r.req.Analyzer.Select(path)
	rec := expr.NewRecord(r.synthesizedName(dest, path))
	synth := &shape.Shape{Name: rec.Shape}

	for _, prop := range sel.Properties() {
		var fm mapping.FieldMap
		if tm != nil {
			fm, _ = tm.Field(prop.Field.Name)
		}

		if fm.Ignored {
			value := expr.Constant(shape.Default(prop.Field.Type), prop.Field.Type)
			rec.Fields = append(rec.Fields, expr.Binding{Name: prop.Field.Name, Value: value})
			synth.Fields = append(synth.Fields, shape.Field{Name: prop.Field.Name, Type: prop.Field.Type})
			continue
		}

		sourcePath := prop.Field.Name
		if fm.Destination != "" {
			sourcePath = fm.SourcePath()
		}
		access, err := r.sourceAccess(source, sourcePath, src)
		if err != nil {
			return nil, r.fail(prop.Path, "resolve-source", err)
		}
		r.paths.TryAdd(PathInfo{Path: prop.Path, Access: access, Field: prop.Field, Scopes: scopes})

		value, t, err := r.value(prop, fm, access, scopes)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, expr.Binding{Name: prop.Field.Name, Value: value})
		synth.Fields = append(synth.Fields, shape.Field{
			Name:      prop.Field.Name,
			Type:      t,
			NotSearch: prop.Field.NotSearch,
			Keyword:   prop.Field.Keyword,
		})
	}

	r.synthesized[path] = synth
	return rec, nil
}

// value builds the expression bound to one destination field and the type
// it has in the synthesized shape.
func (r *build) value(prop meta.Property, fm mapping.FieldMap, access expr.Node, scopes []Scope) (expr.Node, shape.Type, error) {
	dst := prop.Field.Type
	src := access.Type()

	if prop.IsReference {
		return r.reference(prop, fm, access, scopes)
	}

	var value expr.Node = access
	t := prop.Type
	switch {
	case dst.IsCollection():
		value = expr.ToList(access)
		t.Nullable = false
	case dst.Kind == shape.KindString && src.IsPrimitive() && !expr.IsText(src):
		text, err := expr.Stringify(access)
		if err != nil {
			return nil, shape.Type{}, r.fail(prop.Path, "to-text", err)
		}
		value = text
		t = shape.Type{Kind: shape.KindString, Nullable: src.Nullable}
		if src.Nullable && !dst.Nullable {
			value = expr.Coalesce(value, expr.Constant("", dst))
			t.Nullable = false
		}
	case src.Nullable && !dst.Nullable && dst.IsPrimitive():
		value = expr.Coalesce(access, expr.Constant(shape.Default(dst), dst))
		t.Nullable = false
	case fm.AllowNull && !dst.IsPrimitive():
		value = expr.Cond(expr.IsNull(access), expr.Constant(shape.Default(dst), shape.Nullable(t)), access)
		t.Nullable = true
	}
	return value, t, nil
}

// reference builds a nested record, or a list of them for a collection.
func (r *build) reference(prop meta.Property, fm mapping.FieldMap, access expr.Node, scopes []Scope) (expr.Node, shape.Type, error) {
	src := access.Type()
	node, ok := r.req.Analyzer.Bag().Node(prop.Path)
	if !ok {
		return nil, shape.Type{}, r.fail(prop.Path, "resolve-reference", fmt.Errorf("no metadata node"))
	}
	leaf := src.Leaf()
	source, ok := r.shapes.Lookup(leaf.Shape)
	if !ok || leaf.Kind != shape.KindObject {
		return nil, shape.Type{}, r.fail(prop.Path, "resolve-reference", fmt.Errorf("source type %s is not a record", src))
	}

	if src.IsCollection() {
		if src.CollectionDepth() > 1 {
			return nil, shape.Type{}, r.fail(prop.Path, "map-collection", fmt.Errorf("nested collection %s", src))
		}
		x := r.param(*src.Elem)
		nested := make([]Scope, len(scopes), len(scopes)+1)
		copy(nested, scopes)
		nested = append(nested, Scope{Collection: access, Param: x})

		rec, err := r.record(prop.Path, x, nested, source, node.Shape)
		if err != nil {
			return nil, shape.Type{}, err
		}
		value := expr.ToList(expr.Map(access, expr.NewLambda(x, rec)))
		return value, shape.CollectionOf(rec.Type()), nil
	}

	rec, err := r.record(prop.Path, access, scopes, source, node.Shape)
	if err != nil {
		return nil, shape.Type{}, err
	}
	t := rec.Type()
	t.Nullable = prop.Field.Type.Nullable
	dst := prop.Field.Type
	if fm.AllowNull && !dst.IsPrimitive() && !dst.IsCollection() {
		t.Nullable = true
		guard := expr.Cond(expr.IsNull(access), expr.Constant(shape.Default(dst), t), rec)
		return guard, t, nil
	}
	return rec, t, nil
}

// sourceAccess reads the dotted member path from src. Each distinct
// (shape, path, nullability) is compiled once into a lambda over the
// source shape and applied to src by parameter replacement.
func (r *build) sourceAccess(source *shape.Shape, path string, src expr.Node) (expr.Node, error) {
	nullable := src.Type().Nullable
	key := strings.ToLower(fmt.Sprintf("%s|%s|%t", source.Name, path, nullable))
	fn, ok := r.sources[key]
	if !ok {
		t := shape.Object(source.Name)
		t.Nullable = nullable
		s := expr.NewParam("s", t)
		body, err := r.memberChain(source, strings.Split(path, memberpath.Separator), s)
		if err != nil {
			return nil, err
		}
		fn = expr.NewLambda(s, body)
		if r.sources == nil {
			r.sources = make(map[string]*expr.Lambda)
		}
		r.sources[key] = fn
	}
	return expr.Inline(fn, src), nil
}

// memberChain accesses segments one after another. Crossing a collection
// maps the rest of the chain over its elements, flattening when the rest
// is itself a collection. A null intermediate makes every later access
// nullable.
func (r *build) memberChain(owner *shape.Shape, segments []string, target expr.Node) (expr.Node, error) {
	f, ok := owner.Field(segments[0])
	if !ok {
		return nil, fmt.Errorf("%s has no field %q", owner.Name, segments[0])
	}
	t := f.Type
	if target.Type().Nullable {
		t.Nullable = true
	}
	m := expr.MemberOf(target, f.Name, t)
	rest := segments[1:]
	if len(rest) == 0 {
		return m, nil
	}

	if t.IsCollection() {
		if t.CollectionDepth() > 1 || t.Elem.Kind != shape.KindObject {
			return nil, fmt.Errorf("cannot read %q through %s", strings.Join(rest, memberpath.Separator), t)
		}
		elem, ok := r.shapes.Lookup(t.Elem.Shape)
		if !ok {
			return nil, fmt.Errorf("unknown shape %q", t.Elem.Shape)
		}
		x := r.param(*t.Elem)
		inner, err := r.memberChain(elem, rest, x)
		if err != nil {
			return nil, err
		}
		if inner.Type().IsCollection() {
			return expr.FlatMap(m, expr.NewLambda(x, inner)), nil
		}
		return expr.Map(m, expr.NewLambda(x, inner)), nil
	}

	if t.Kind != shape.KindObject {
		return nil, fmt.Errorf("%s.%s is not a record", owner.Name, f.Name)
	}
	next, ok := r.shapes.Lookup(t.Shape)
	if !ok {
		return nil, fmt.Errorf("unknown shape %q", t.Shape)
	}
	return r.memberChain(next, rest, m)
}
