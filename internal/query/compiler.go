package query

import (
	"fmt"
	"log/slog"

	"github.com/creasty/defaults"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/meta"
	"github.com/roach88/populate/internal/populate"
	"github.com/roach88/populate/internal/projection"
	"github.com/roach88/populate/internal/shape"
)

// Options configures a Compiler. Zero fields take their defaults.
type Options struct {
	// SearchDepth bounds how far below the root free-text search looks for
	// eligible fields when the request names none.
	SearchDepth int `default:"1" yaml:"searchDepth"`

	// NoDefaultSort disables the createdAt ordering of timestamped sources.
	NoDefaultSort bool `yaml:"noDefaultSort"`

	// Cache configures the projection plan cache.
	Cache projection.Options `yaml:"cache"`
}

// DefaultOptions returns the options with every default applied.
func DefaultOptions() Options {
	var o Options
	if err := defaults.Set(&o); err != nil {
		panic(fmt.Sprintf("query: invalid option defaults: %v", err))
	}
	return o
}

// Compiler turns query contexts into plans. It is safe for concurrent use.
type Compiler struct {
	shapes    *shape.Registry
	resolver  *meta.Resolver
	builder   *projection.Builder
	cache     *projection.Cache
	opts      Options
	logger    *slog.Logger
	metaCache meta.Cache
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used by the compiler and the components it
// owns.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetaCache replaces the metadata bag cache.
func WithMetaCache(cache meta.Cache) Option {
	return func(c *Compiler) { c.metaCache = cache }
}

// NewCompiler creates a compiler over the given shapes and field mappings.
// The registries must not change afterwards.
func NewCompiler(shapes *shape.Registry, mappings *mapping.Registry, opts Options, options ...Option) (*Compiler, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("apply compiler defaults: %w", err)
	}
	c := &Compiler{shapes: shapes, opts: opts, logger: slog.Default()}
	for _, opt := range options {
		opt(c)
	}

	c.resolver = meta.NewResolver(shapes,
		meta.WithCache(c.metaCache),
		meta.WithLogger(c.logger),
		meta.WithDynamic(func(owner *shape.Shape, f shape.Field) (shape.Type, bool) {
			return mappings.SourceType(shapes, owner, f)
		}),
	)
	c.builder = projection.NewBuilder(shapes, mappings, projection.WithLogger(c.logger))

	cache, err := projection.NewCache(c.builder, opts.Cache, projection.WithCacheLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Resolver returns the metadata resolver the compiler reads.
func (c *Compiler) Resolver() *meta.Resolver { return c.resolver }

// Cache returns the projection plan cache.
func (c *Compiler) Cache() *projection.Cache { return c.cache }

// Close releases the plan cache.
func (c *Compiler) Close() { c.cache.Close() }

// Compile builds the plan projecting source records into destination
// records, filtered, searched and ordered as qc asks.
//
// Descriptors that do not resolve or do not fit their member type are
// dropped. The returned error is a *projection.BuildError for missing
// mappings and synthesis failures, or a plain error for unknown shapes.
func (c *Compiler) Compile(source, destination string, qc descriptor.QueryContext) (*Plan, error) {
	src, ok := c.shapes.Lookup(source)
	if !ok {
		return nil, fmt.Errorf("unknown source shape %q", source)
	}
	bag, err := c.resolver.Bag(destination)
	if err != nil {
		return nil, err
	}

	req := projection.Request{
		Source:      src.Name,
		Destination: bag.Root(),
		Analyzer:    populate.New(bag, qc.Populate),
		Root:        memberpath.Root,
	}
	proj, hit, err := c.cache.Get(req)
	if err != nil {
		return nil, err
	}

	run := &compilation{
		Compiler:    c,
		source:      src,
		destination: bag.Root(),
		projection:  proj,
	}

	filters, err := run.compileFilters(qc.Filters)
	if err != nil {
		return nil, err
	}
	search, err := run.compileSearch(qc.Search)
	if err != nil {
		return nil, err
	}

	paging := qc.Paging
	if paging.Page < 1 || paging.PageSize < 1 {
		paging = descriptor.NewPaging()
	}

	return &Plan{
		Source:      src.Name,
		Destination: bag.Root(),
		Root:        proj.Root,
		Predicate:   expr.AndAlso(filters, search),
		Ordering:    run.compileSorts(qc.Sorts),
		Projection:  proj,
		Paging:      paging,
		CacheHit:    hit,
	}, nil
}

// compilation is the state of one Compile call.
type compilation struct {
	*Compiler
	source      *shape.Shape
	destination string
	projection  *projection.Projection
}

// lookup resolves a request path against the members the projection
// exposes.
func (c *compilation) lookup(path string) (projection.PathInfo, error) {
	p := memberpath.New(path)
	if p.IsRoot() {
		return projection.PathInfo{}, dropped("empty path")
	}
	info, ok := c.projection.Paths.Lookup(p)
	if !ok {
		return projection.PathInfo{}, dropped("%q is not a projected member", p.Value())
	}
	return info, nil
}

func (c *compilation) drop(kind, desc, reason string) {
	c.logger.Debug("descriptor dropped",
		"kind", kind,
		"descriptor", desc,
		"reason", reason,
		"destination", c.destination)
}

func (c *compilation) fail(path memberpath.Path, op string, err error) error {
	return projection.NewSynthesisError(c.source.Name, c.destination, path, op, err)
}
