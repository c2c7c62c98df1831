package shape

import (
	"fmt"
	"strings"
)

// Kind classifies a field type.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindTime      // instant with date and time of day
	KindDate      // calendar date without time of day
	KindTimeOfDay // time of day without date
	KindUUID
	KindEnum
	KindObject     // nested record of another shape
	KindCollection // homogeneous collection, see Type.Elem
	KindOpaque     // structured value kept whole (blob reference, JSON column)
	KindDynamic    // untyped passthrough, layout chosen per request
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindString:     "string",
	KindInt:        "int",
	KindFloat:      "float",
	KindDecimal:    "decimal",
	KindBool:       "bool",
	KindTime:       "time",
	KindDate:       "date",
	KindTimeOfDay:  "timeofday",
	KindUUID:       "uuid",
	KindEnum:       "enum",
	KindObject:     "object",
	KindCollection: "collection",
	KindOpaque:     "opaque",
	KindDynamic:    "dynamic",
}

// String returns the lowercase name used in shape declarations.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a scalar kind name as written in shape declarations.
// Object and collection kinds are expressed through type syntax, not names.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "text":
		return KindString, nil
	case "int", "integer", "long":
		return KindInt, nil
	case "float", "double", "number":
		return KindFloat, nil
	case "decimal", "money":
		return KindDecimal, nil
	case "bool", "boolean":
		return KindBool, nil
	case "time", "datetime", "timestamp":
		return KindTime, nil
	case "date":
		return KindDate, nil
	case "timeofday", "timeonly":
		return KindTimeOfDay, nil
	case "uuid", "guid":
		return KindUUID, nil
	case "enum":
		return KindEnum, nil
	case "opaque", "json", "blob":
		return KindOpaque, nil
	case "dynamic", "any", "object":
		return KindDynamic, nil
	default:
		return KindInvalid, fmt.Errorf("unknown kind %q", name)
	}
}

// IsNumeric reports whether values of k are ordered numerically or chronologically.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindFloat, KindDecimal, KindTime, KindDate, KindTimeOfDay:
		return true
	}
	return false
}

// IsScalar reports whether k holds a single comparable value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindInt, KindFloat, KindDecimal, KindBool,
		KindTime, KindDate, KindTimeOfDay, KindUUID, KindEnum:
		return true
	}
	return false
}
