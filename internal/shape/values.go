package shape

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var timeOfDayLayouts = []string{
	"15:04:05.999999999",
	"15:04:05",
	"15:04",
}

// Parse coerces a raw query-string value into the canonical value for t.
//
// A nullable type accepts "" and "null" as nil. Collections, records, opaque
// and dynamic types cannot be parsed from text.
func Parse(t Type, text string) (any, error) {
	text = strings.TrimSpace(text)
	if t.Nullable && (text == "" || strings.EqualFold(text, "null")) {
		return nil, nil
	}

	switch t.Kind {
	case KindString:
		return text, nil
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", text, err)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("parse float %q", text)
		}
		return f, nil
	case KindDecimal:
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", text, err)
		}
		return d, nil
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", text, err)
		}
		return b, nil
	case KindTime:
		return parseTime(text)
	case KindDate:
		ts, err := parseTime(text)
		if err != nil {
			return nil, err
		}
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case KindTimeOfDay:
		return parseTimeOfDay(text)
	case KindUUID:
		id, err := uuid.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse uuid %q: %w", text, err)
		}
		return id, nil
	case KindEnum:
		if len(t.Values) == 0 {
			if text == "" {
				return nil, fmt.Errorf("empty enum value")
			}
			return text, nil
		}
		for _, v := range t.Values {
			if strings.EqualFold(v, text) {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %v", text, t.Values)
	default:
		return nil, fmt.Errorf("type %s cannot be parsed from text", t)
	}
}

// ParseList splits a comma-separated value and parses every element.
// Empty elements are skipped; a list with no elements is an error.
func ParseList(t Type, text string) ([]any, error) {
	var out []any
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := Parse(t, part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}

// Normalize converts a decoded document value into the canonical value for t.
// Structured kinds pass through unchanged.
func Normalize(t Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t.Kind {
	case KindString, KindEnum:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return ToText(v), nil
	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		case json.Number:
			return n.Int64()
		case string:
			return Parse(Scalar(KindInt), n)
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		case json.Number:
			return n.Float64()
		case string:
			return Parse(Scalar(KindFloat), n)
		}
	case KindDecimal:
		switch n := v.(type) {
		case decimal.Decimal:
			return n, nil
		case float64:
			return decimal.NewFromFloat(n), nil
		case int64:
			return decimal.NewFromInt(n), nil
		case int:
			return decimal.NewFromInt(int64(n)), nil
		case json.Number:
			return decimal.NewFromString(n.String())
		case string:
			return Parse(Scalar(KindDecimal), n)
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case string:
			return Parse(Scalar(KindBool), b)
		}
	case KindTime, KindDate:
		switch ts := v.(type) {
		case time.Time:
			return ts, nil
		case string:
			return Parse(Scalar(t.Kind), ts)
		}
	case KindTimeOfDay:
		switch d := v.(type) {
		case time.Duration:
			return d, nil
		case string:
			return parseTimeOfDay(d)
		}
	case KindUUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id, nil
		case string:
			return Parse(Scalar(KindUUID), id)
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot normalize %T as %s", v, t)
}

// Compare orders two canonical scalar values. Numeric kinds compare across
// int64, float64 and decimal.Decimal.
func Compare(a, b any) (int, error) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), nil
		case float64:
			return cmp.Compare(float64(x), y), nil
		case decimal.Decimal:
			return decimal.NewFromInt(x).Cmp(y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), nil
		case int64:
			return cmp.Compare(x, float64(y)), nil
		case decimal.Decimal:
			return decimal.NewFromFloat(x).Cmp(y), nil
		}
	case decimal.Decimal:
		switch y := b.(type) {
		case decimal.Decimal:
			return x.Cmp(y), nil
		case int64:
			return x.Cmp(decimal.NewFromInt(y)), nil
		case float64:
			return x.Cmp(decimal.NewFromFloat(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	case time.Duration:
		if y, ok := b.(time.Duration); ok {
			return cmp.Compare(x, y), nil
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return strings.Compare(x.String(), y.String()), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

// Equal reports whether two canonical values are equal. nil equals only nil.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// ToText renders a canonical value as text, the way to-text conversion sees it.
func ToText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return formatTimeOfDay(x)
	case uuid.UUID:
		return x.String()
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Default is the value bound for ignored fields and substituted by null guards.
func Default(t Type) any {
	if t.Nullable {
		return nil
	}
	switch t.Kind {
	case KindString:
		return ""
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindDecimal:
		return decimal.Zero
	case KindBool:
		return false
	case KindTime, KindDate:
		return time.Time{}
	case KindTimeOfDay:
		return time.Duration(0)
	case KindUUID:
		return uuid.Nil
	case KindEnum:
		if len(t.Values) > 0 {
			return t.Values[0]
		}
		return ""
	case KindCollection:
		return []any{}
	default:
		return nil
	}
}

func parseTime(text string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", text)
}

func parseTimeOfDay(text string) (time.Duration, error) {
	for _, layout := range timeOfDayLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return time.Duration(ts.Hour())*time.Hour +
				time.Duration(ts.Minute())*time.Minute +
				time.Duration(ts.Second())*time.Second +
				time.Duration(ts.Nanosecond()), nil
		}
	}
	return 0, fmt.Errorf("parse time of day %q", text)
}

func formatTimeOfDay(d time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04:05")
}
