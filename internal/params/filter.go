package params

import (
	"sort"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
)

// Filter descriptor group labels.
const (
	GroupCompact    = "compact"
	GroupBetween    = "between"
	GroupNotBetween = "not-between"
)

type filterKey struct {
	entry int
	tok   Token
	value string
}

// inSiblingKey identifies $in/$notIn fragments that belong to one filter.
type inSiblingKey struct {
	path         string
	operator     descriptor.CompareOperator
	logical      descriptor.LogicalOperator
	logicalIndex int
}

func (f filterKey) siblingKey() inSiblingKey {
	return inSiblingKey{
		path:         f.tok.Path,
		operator:     f.tok.Operator,
		logical:      f.tok.Logical,
		logicalIndex: f.tok.LogicalIndex,
	}
}

// bindFilters builds filter descriptors in encounter order. Indexed $in and
// $notIn fragments are merged into the first fragment's position; the rest
// are consumed.
func (b *Binder) bindFilters(keys []filterKey) []descriptor.FilterDescriptor {
	siblings := make(map[inSiblingKey][]filterKey)
	for _, k := range keys {
		if k.tok.HasOperator && k.tok.Operator.Group() == descriptor.GroupIn && k.tok.Index >= 0 {
			sk := k.siblingKey()
			siblings[sk] = append(siblings[sk], k)
		}
	}

	consumed := make(map[int]bool)
	var out []descriptor.FilterDescriptor
	for _, k := range keys {
		if consumed[k.entry] {
			continue
		}

		if !k.tok.HasOperator {
			compact := b.bindCompact(k)
			out = append(out, compact...)
			continue
		}

		value := k.value
		if k.tok.Operator.Group() == descriptor.GroupIn && k.tok.Index >= 0 {
			value = mergeIn(siblings[k.siblingKey()], consumed)
		}

		logical := descriptor.And
		if k.tok.HasLogical {
			logical = k.tok.Logical
		}
		out = append(out, descriptor.FilterDescriptor{
			Path:     k.tok.Path,
			Value:    value,
			Logical:  logical,
			Operator: k.tok.Operator,
			Group:    logical.String(),
		})
	}
	return out
}

// mergeIn joins fragment values in ascending index order and marks every
// fragment consumed.
func mergeIn(fragments []filterKey, consumed map[int]bool) string {
	sorted := make([]filterKey, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].tok.Index < sorted[j].tok.Index
	})

	values := make([]string, 0, len(sorted))
	for _, f := range sorted {
		consumed[f.entry] = true
		if v := strings.TrimSpace(f.value); v != "" {
			values = append(values, v)
		}
	}
	return strings.Join(values, ",")
}

// compactOperators maps the short compact-form operator names.
var compactOperators = map[string]descriptor.CompareOperator{
	"eq":    descriptor.Equal,
	"sw":    descriptor.StartsWith,
	"gt":    descriptor.GreaterThan,
	"gte":   descriptor.GreaterThanOrEqual,
	"lt":    descriptor.LessThan,
	"lte":   descriptor.LessThanOrEqual,
	"in":    descriptor.In,
	"ilike": descriptor.Contains,
}

// compactToken normalizes an operator or prefix token of the compact form.
// The "$" sigil is optional: "$gt" and "gt" are the same operator.
func compactToken(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "$"))
}

// bindCompact parses filter[path]=[$not:]$op:value. Between expands to two
// descriptors.
func (b *Binder) bindCompact(k filterKey) []descriptor.FilterDescriptor {
	parts := strings.Split(k.value, ":")
	negate := false
	if compactToken(parts[0]) == "not" {
		negate = true
		parts = parts[1:]
	}
	if len(parts) == 0 {
		b.drop(k.tok.Key, "empty compact filter")
		return nil
	}

	op := compactToken(parts[0])
	path := k.tok.Path

	if op == "null" {
		if len(parts) != 1 {
			b.drop(k.tok.Key, "null takes no value")
			return nil
		}
		operator := descriptor.Null
		if negate {
			operator = descriptor.NotNull
		}
		return []descriptor.FilterDescriptor{{
			Path: path, Logical: descriptor.And, Operator: operator, Group: GroupCompact,
		}}
	}

	if len(parts) < 2 {
		b.drop(k.tok.Key, "compact filter without value")
		return nil
	}
	value := strings.Join(parts[1:], ":")

	if op == "btw" {
		bounds := splitList(value)
		if len(bounds) != 2 {
			b.drop(k.tok.Key, "between needs exactly two bounds")
			return nil
		}
		if negate {
			return []descriptor.FilterDescriptor{
				{Path: path, Value: bounds[0], Logical: descriptor.Or, Operator: descriptor.LessThan, Group: GroupNotBetween},
				{Path: path, Value: bounds[1], Logical: descriptor.Or, Operator: descriptor.GreaterThan, Group: GroupNotBetween},
			}
		}
		return []descriptor.FilterDescriptor{
			{Path: path, Value: bounds[0], Logical: descriptor.And, Operator: descriptor.GreaterThanOrEqual, Group: GroupBetween},
			{Path: path, Value: bounds[1], Logical: descriptor.And, Operator: descriptor.LessThanOrEqual, Group: GroupBetween},
		}
	}

	operator, ok := compactOperators[op]
	if !ok {
		b.drop(k.tok.Key, "unknown compact operator "+op)
		return nil
	}
	if negate {
		operator = operator.Negate()
	}
	return []descriptor.FilterDescriptor{{
		Path: path, Value: value, Logical: descriptor.And, Operator: operator, Group: GroupCompact,
	}}
}

// splitList splits on commas, trimming and dropping empty parts.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
