package projection

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/creasty/defaults"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Options configures the plan cache.
type Options struct {
	// MaxEntries caps the number of cached projections.
	MaxEntries int64 `default:"1024" yaml:"maxEntries"`

	// TTL is the sliding expiration: every hit re-arms it. A negative TTL
	// disables expiration.
	TTL time.Duration `default:"168h" yaml:"ttl"`
}

// DefaultOptions returns the options with every default applied.
func DefaultOptions() Options {
	var o Options
	if err := defaults.Set(&o); err != nil {
		panic(fmt.Sprintf("projection: invalid option defaults: %v", err))
	}
	return o
}

// Stats counts cache lookups.
type Stats struct {
	Hits   uint64
	Misses uint64
	Builds uint64
}

// Cache memoizes projections by request key. Concurrent misses on the same
// key share one build.
type Cache struct {
	builder *Builder
	plans   *theine.Cache[string, *Projection]
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger

	hits, misses, builds atomic.Uint64

	hitsCounter   prometheus.Counter
	missesCounter prometheus.Counter
	buildsCounter prometheus.Counter
	errorsCounter prometheus.Counter
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger; the default is slog.Default().
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates a plan cache in front of builder. Zero option fields
// take their defaults.
func NewCache(builder *Builder, opts Options, options ...CacheOption) (*Cache, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("apply cache defaults: %w", err)
	}
	if opts.MaxEntries <= 0 {
		return nil, fmt.Errorf("plan cache needs a positive entry budget, got %d", opts.MaxEntries)
	}

	plans, err := theine.NewBuilder[string, *Projection](opts.MaxEntries).Build()
	if err != nil {
		return nil, fmt.Errorf("build plan cache: %w", err)
	}

	c := &Cache{
		builder: builder,
		plans:   plans,
		ttl:     opts.TTL,
		logger:  slog.Default(),
		hitsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "populate",
			Subsystem: "plan_cache",
			Name:      "hits_total",
			Help:      "The number of projection lookups served from the plan cache.",
		}),
		missesCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "populate",
			Subsystem: "plan_cache",
			Name:      "misses_total",
			Help:      "The number of projection lookups not found in the plan cache.",
		}),
		buildsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "populate",
			Subsystem: "plan_cache",
			Name:      "builds_total",
			Help:      "The number of projections synthesized.",
		}),
		errorsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "populate",
			Subsystem: "plan_cache",
			Name:      "build_errors_total",
			Help:      "The number of projection builds that failed.",
		}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Collectors returns the cache metrics for registration.
func (c *Cache) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.hitsCounter, c.missesCounter, c.buildsCounter, c.errorsCounter}
}

// Get returns the projection for req, building it on a miss. hit reports
// whether the projection came from the cache.
func (c *Cache) Get(req Request) (p *Projection, hit bool, err error) {
	key := req.Key()
	if p, ok := c.plans.Get(key); ok {
		c.hits.Add(1)
		c.hitsCounter.Inc()
		c.set(key, p)
		return p, true, nil
	}
	c.misses.Add(1)
	c.missesCounter.Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		if p, ok := c.plans.Get(key); ok {
			return p, nil
		}
		p, err := c.builder.Build(req)
		if err != nil {
			c.errorsCounter.Inc()
			return nil, err
		}
		c.builds.Add(1)
		c.buildsCounter.Inc()
		c.set(key, p)
		c.logger.Info("projection compiled",
			"source", req.Source,
			"destination", req.Destination,
			"fingerprint", fmt.Sprintf("%016x", p.Fingerprint()),
			"paths", p.Paths.Len())
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Projection), false, nil
}

func (c *Cache) set(key string, p *Projection) {
	if c.ttl <= 0 {
		c.plans.Set(key, p, 1)
		return
	}
	c.plans.SetWithTTL(key, p, 1, c.ttl)
}

// Stats returns lookup counters since creation.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Builds: c.builds.Load()}
}

// Close releases the cache.
func (c *Cache) Close() {
	c.plans.Close()
}
