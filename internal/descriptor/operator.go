package descriptor

import (
	"fmt"
	"strings"
)

// CompareOperator is the comparison a filter applies.
type CompareOperator int

const (
	Equal CompareOperator = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Contains
	NotContains
	StartsWith
	NotStartsWith
	EndsWith
	NotEndsWith
	In
	NotIn
	Null
	NotNull
)

// OperatorGroup buckets operators that share validation and compilation rules.
type OperatorGroup string

const (
	GroupEqual      OperatorGroup = "equal"
	GroupNullable   OperatorGroup = "nullable"
	GroupIn         OperatorGroup = "in"
	GroupContain    OperatorGroup = "contain"
	GroupComparison OperatorGroup = "comparison"
)

type operatorInfo struct {
	token string
	name  string
	group OperatorGroup
}

var operators = map[CompareOperator]operatorInfo{
	Equal:              {"$eq", "Equal", GroupEqual},
	NotEqual:           {"$ne", "NotEqual", GroupEqual},
	LessThan:           {"$lt", "LessThan", GroupComparison},
	LessThanOrEqual:    {"$lte", "LessThanOrEqual", GroupComparison},
	GreaterThan:        {"$gt", "GreaterThan", GroupComparison},
	GreaterThanOrEqual: {"$gte", "GreaterThanOrEqual", GroupComparison},
	Contains:           {"$contains", "Contains", GroupContain},
	NotContains:        {"$notContains", "NotContains", GroupContain},
	StartsWith:         {"$startsWith", "StartsWith", GroupContain},
	NotStartsWith:      {"$notstartsWith", "NotStartsWith", GroupContain},
	EndsWith:           {"$endsWith", "EndsWith", GroupContain},
	NotEndsWith:        {"$notendsWith", "NotEndsWith", GroupContain},
	In:                 {"$in", "In", GroupIn},
	NotIn:              {"$notIn", "NotIn", GroupIn},
	Null:               {"$null", "Null", GroupNullable},
	NotNull:            {"$notNull", "NotNull", GroupNullable},
}

var (
	operatorsByToken = make(map[string]CompareOperator, len(operators))
	operatorsByName  = make(map[string]CompareOperator, len(operators))
)

func init() {
	for op, info := range operators {
		operatorsByToken[strings.ToLower(info.token)] = op
		operatorsByName[strings.ToLower(info.name)] = op
	}
}

// LookupOperator resolves a query-string operator token such as "$eq" or
// "$notIn". Matching ignores case.
func LookupOperator(token string) (CompareOperator, bool) {
	op, ok := operatorsByToken[strings.ToLower(token)]
	return op, ok
}

// Operators returns every operator in declaration order.
func Operators() []CompareOperator {
	out := make([]CompareOperator, 0, len(operators))
	for op := Equal; op <= NotNull; op++ {
		out = append(out, op)
	}
	return out
}

// Token is the query-string spelling, e.g. "$gte".
func (op CompareOperator) Token() string { return operators[op].token }

// Group returns the operator's validation group.
func (op CompareOperator) Group() OperatorGroup { return operators[op].group }

// Negated reports whether the operator is the negation of another operator.
func (op CompareOperator) Negated() bool {
	switch op {
	case NotEqual, NotContains, NotStartsWith, NotEndsWith, NotIn, NotNull:
		return true
	}
	return false
}

// Positive returns the non-negated counterpart: NotIn -> In, Contains -> Contains.
func (op CompareOperator) Positive() CompareOperator {
	switch op {
	case NotEqual:
		return Equal
	case NotContains:
		return Contains
	case NotStartsWith:
		return StartsWith
	case NotEndsWith:
		return EndsWith
	case NotIn:
		return In
	case NotNull:
		return Null
	}
	return op
}

// Negate returns the logical complement used by the "not:" compact prefix.
// Ordering operators flip to their complement (gt -> lte).
func (op CompareOperator) Negate() CompareOperator {
	switch op {
	case Equal:
		return NotEqual
	case NotEqual:
		return Equal
	case LessThan:
		return GreaterThanOrEqual
	case LessThanOrEqual:
		return GreaterThan
	case GreaterThan:
		return LessThanOrEqual
	case GreaterThanOrEqual:
		return LessThan
	case Contains:
		return NotContains
	case NotContains:
		return Contains
	case StartsWith:
		return NotStartsWith
	case NotStartsWith:
		return StartsWith
	case EndsWith:
		return NotEndsWith
	case NotEndsWith:
		return EndsWith
	case In:
		return NotIn
	case NotIn:
		return In
	case Null:
		return NotNull
	default:
		return Null
	}
}

// String returns the operator name, e.g. "GreaterThanOrEqual".
func (op CompareOperator) String() string {
	if info, ok := operators[op]; ok {
		return info.name
	}
	return fmt.Sprintf("CompareOperator(%d)", int(op))
}

// MarshalText encodes the operator by name.
func (op CompareOperator) MarshalText() ([]byte, error) {
	if _, ok := operators[op]; !ok {
		return nil, fmt.Errorf("unknown operator %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText accepts an operator name or a query-string token.
func (op *CompareOperator) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	if v, ok := operatorsByName[s]; ok {
		*op = v
		return nil
	}
	if v, ok := operatorsByToken[s]; ok {
		*op = v
		return nil
	}
	return fmt.Errorf("unknown operator %q", text)
}

// LogicalOperator tags how a filter joins the others.
type LogicalOperator int

const (
	And LogicalOperator = iota
	Or
	None
)

var logicalNames = [...]string{And: "And", Or: "Or", None: "None"}

// ParseLogical resolves "$or", "or", "$and", "and" and "none".
func ParseLogical(token string) (LogicalOperator, bool) {
	switch strings.ToLower(strings.TrimPrefix(token, "$")) {
	case "and":
		return And, true
	case "or":
		return Or, true
	case "none":
		return None, true
	}
	return And, false
}

func (l LogicalOperator) String() string {
	if l >= And && l <= None {
		return logicalNames[l]
	}
	return fmt.Sprintf("LogicalOperator(%d)", int(l))
}

// MarshalText encodes the operator by name.
func (l LogicalOperator) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText decodes an operator name.
func (l *LogicalOperator) UnmarshalText(text []byte) error {
	v, ok := ParseLogical(string(text))
	if !ok {
		return fmt.Errorf("unknown logical operator %q", text)
	}
	*l = v
	return nil
}
