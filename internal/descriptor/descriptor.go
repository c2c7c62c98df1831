package descriptor

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
)

// FilterDescriptor is one parsed filter condition. Value is the raw request
// value; comma-separated for In and NotIn.
type FilterDescriptor struct {
	Path     string          `json:"path" yaml:"path" msgpack:"path"`
	Value    string          `json:"value" yaml:"value" msgpack:"value"`
	Logical  LogicalOperator `json:"logical" yaml:"logical" msgpack:"logical"`
	Operator CompareOperator `json:"operator" yaml:"operator" msgpack:"operator"`

	// Group labels where the filter came from, for diagnostics only.
	Group string `json:"group,omitempty" yaml:"group,omitempty" msgpack:"group,omitempty"`
}

// String renders the filter in query-string form, e.g. "age $gte 18 (Or)".
func (f FilterDescriptor) String() string {
	return fmt.Sprintf("%s %s %q (%s)", f.Path, f.Operator.Token(), f.Value, f.Logical)
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// ParseDirection accepts "asc" and "desc" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Asc, true
	case "desc", "descending":
		return Desc, true
	}
	return Asc, false
}

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// MarshalText encodes the direction as "asc" or "desc".
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes "asc" or "desc".
func (d *Direction) UnmarshalText(text []byte) error {
	v, ok := ParseDirection(string(text))
	if !ok {
		return fmt.Errorf("unknown sort direction %q", text)
	}
	*d = v
	return nil
}

// SortDescriptor orders results by one path.
type SortDescriptor struct {
	Path      string    `json:"path" yaml:"path" msgpack:"path"`
	Direction Direction `json:"direction" yaml:"direction" msgpack:"direction"`
}

// DefaultSort applies when no sort is requested and the source is timestamped.
var DefaultSort = SortDescriptor{Path: "createdAt", Direction: Desc}

func (s SortDescriptor) String() string {
	return s.Path + ":" + s.Direction.String()
}

// SearchDescriptor is a free-text search. A nil Fields list means every
// eligible field.
type SearchDescriptor struct {
	Keyword string   `json:"keyword" yaml:"keyword" msgpack:"keyword"`
	Fields  []string `json:"fields,omitempty" yaml:"fields,omitempty" msgpack:"fields,omitempty"`
}

// Empty reports whether there is nothing to search for.
func (s *SearchDescriptor) Empty() bool {
	return s == nil || strings.TrimSpace(s.Keyword) == ""
}

// PagingDescriptor selects one page of results. Pages start at 1.
type PagingDescriptor struct {
	Page     int `json:"page" yaml:"page" msgpack:"page" default:"1"`
	PageSize int `json:"pageSize" yaml:"pageSize" msgpack:"pageSize" default:"10"`
}

// NewPaging returns the default page (1) and page size (10).
func NewPaging() PagingDescriptor {
	var p PagingDescriptor
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("descriptor: invalid paging defaults: %v", err))
	}
	return p
}

// Offset is the number of rows to skip.
func (p PagingDescriptor) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// QueryContext gathers every descriptor parsed from one request.
type QueryContext struct {
	Filters  []FilterDescriptor `json:"filters,omitempty" yaml:"filters,omitempty" msgpack:"filters,omitempty"`
	Sorts    []SortDescriptor   `json:"sorts,omitempty" yaml:"sorts,omitempty" msgpack:"sorts,omitempty"`
	Search   *SearchDescriptor  `json:"search,omitempty" yaml:"search,omitempty" msgpack:"search,omitempty"`
	Populate PopulateKeySet     `json:"populate" yaml:"populate" msgpack:"populate"`
	Paging   PagingDescriptor   `json:"paging" yaml:"paging" msgpack:"paging"`
}

// NewQueryContext returns an empty context: default populate set and paging.
func NewQueryContext() QueryContext {
	return QueryContext{
		Populate: DefaultKeySet(),
		Paging:   NewPaging(),
	}
}
