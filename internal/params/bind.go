package params

import (
	"log/slog"

	"github.com/roach88/populate/internal/descriptor"
)

// Binder turns Values into a descriptor.QueryContext. The zero value is not
// usable; call NewBinder.
type Binder struct {
	logger *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger routes dropped-parameter diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder creates a Binder logging to slog.Default unless configured.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind parses every parameter. Unrecognised and malformed parameters are
// skipped and logged at debug level.
func (b *Binder) Bind(values Values) descriptor.QueryContext {
	qc := descriptor.NewQueryContext()

	var (
		filters  []filterKey
		sorts    []sortKey
		searches []searchKey
		populate []string
	)

	for i, e := range values.Entries() {
		tok, ok := ParseKey(e.Key)
		if !ok {
			b.drop(e.Key, "unrecognised key")
			continue
		}
		switch tok.Kind {
		case KindFilter:
			filters = append(filters, filterKey{entry: i, tok: tok, value: e.Value})
		case KindSort:
			sorts = append(sorts, sortKey{tok: tok, value: e.Value})
		case KindPopulate, KindFields:
			if e.Value == "" {
				continue
			}
			populate = append(populate, populateKeys(tok, e.Value)...)
		case KindSearch:
			searches = append(searches, searchKey{tok: tok, value: e.Value})
		case KindPagination:
			b.bindPaging(&qc.Paging, tok, e.Value)
		}
	}

	qc.Filters = b.bindFilters(filters)
	qc.Sorts = b.bindSorts(sorts)
	qc.Search = b.bindSearch(searches)
	if len(populate) > 0 {
		qc.Populate = descriptor.NewKeySet(populate...)
	}
	return qc
}

// Bind parses values with a default Binder.
func Bind(values Values) descriptor.QueryContext {
	return NewBinder().Bind(values)
}

func (b *Binder) drop(key, reason string) {
	b.logger.Debug("parameter dropped", "key", key, "reason", reason)
}
