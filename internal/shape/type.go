package shape

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is the declared type of a field.
type Type struct {
	Kind     Kind
	Nullable bool

	// Shape names the nested shape when Kind is KindObject.
	Shape string

	// Elem is the element type when Kind is KindCollection.
	Elem *Type

	// Values lists the allowed names when Kind is KindEnum. Empty accepts any name.
	Values []string
}

// Scalar returns a non-nullable scalar type.
func Scalar(kind Kind) Type { return Type{Kind: kind} }

// Nullable returns a nullable copy of t.
func Nullable(t Type) Type {
	t.Nullable = true
	return t
}

// Object returns a reference to the named shape.
func Object(shapeName string) Type { return Type{Kind: KindObject, Shape: shapeName} }

// CollectionOf returns a collection of elem.
func CollectionOf(elem Type) Type { return Type{Kind: KindCollection, Elem: &elem} }

// Enum returns an enum type restricted to values.
func Enum(values ...string) Type { return Type{Kind: KindEnum, Values: values} }

// IsCollection reports whether t is a collection.
func (t Type) IsCollection() bool { return t.Kind == KindCollection && t.Elem != nil }

// Leaf unwraps collections down to the innermost element type.
func (t Type) Leaf() Type {
	for t.IsCollection() {
		t = *t.Elem
	}
	return t
}

// CollectionDepth counts how many collections wrap the leaf type.
func (t Type) CollectionDepth() int {
	depth := 0
	for t.IsCollection() {
		depth++
		t = *t.Elem
	}
	return depth
}

// IsPrimitive reports whether t is a scalar value (nullable or not).
func (t Type) IsPrimitive() bool { return t.Kind.IsScalar() }

// IsNumeric reports whether t supports ordering comparisons.
func (t Type) IsNumeric() bool { return t.Kind.IsNumeric() }

// IsRecord reports whether t, or the leaf of a collection t, is a nested record.
// Dynamic passthrough fields count as records: their layout comes from the source.
func (t Type) IsRecord() bool {
	leaf := t.Leaf()
	return leaf.Kind == KindObject || leaf.Kind == KindDynamic
}

// Equal reports structural equality.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || t.Nullable != other.Nullable || !strings.EqualFold(t.Shape, other.Shape) {
		return false
	}
	if len(t.Values) != len(other.Values) {
		return false
	}
	for i := range t.Values {
		if t.Values[i] != other.Values[i] {
			return false
		}
	}
	if (t.Elem == nil) != (other.Elem == nil) {
		return false
	}
	if t.Elem != nil {
		return t.Elem.Equal(*other.Elem)
	}
	return true
}

// String renders t in declaration syntax: "int?", "[]Order", "enum(a|b)".
func (t Type) String() string {
	var s string
	switch t.Kind {
	case KindCollection:
		if t.Elem == nil {
			s = "[]invalid"
		} else {
			s = "[]" + t.Elem.String()
		}
	case KindObject:
		s = t.Shape
	case KindEnum:
		if len(t.Values) == 0 {
			s = "enum"
		} else {
			s = "enum(" + strings.Join(t.Values, "|") + ")"
		}
	default:
		s = t.Kind.String()
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

var (
	enumPattern       = regexp.MustCompile(`^enum\(([^)]*)\)$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseType parses declaration type syntax.
//
//	string        scalar
//	int?          nullable scalar
//	enum(a|b)     enum with allowed names
//	[]Order       collection of records of shape Order
//	Customer?     nullable reference to shape Customer
func ParseType(text string) (Type, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Type{}, fmt.Errorf("empty type")
	}

	nullable := strings.HasSuffix(text, "?")
	text = strings.TrimSuffix(text, "?")

	if strings.HasPrefix(text, "[]") {
		elem, err := ParseType(text[2:])
		if err != nil {
			return Type{}, fmt.Errorf("collection element: %w", err)
		}
		t := CollectionOf(elem)
		t.Nullable = nullable
		return t, nil
	}

	if m := enumPattern.FindStringSubmatch(text); m != nil {
		var values []string
		for _, v := range strings.Split(m[1], "|") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		return Type{Kind: KindEnum, Values: values, Nullable: nullable}, nil
	}

	if kind, err := ParseKind(text); err == nil {
		return Type{Kind: kind, Nullable: nullable}, nil
	}

	if !identifierPattern.MatchString(text) {
		return Type{}, fmt.Errorf("invalid type %q", text)
	}
	return Type{Kind: KindObject, Shape: text, Nullable: nullable}, nil
}

// MustParseType is ParseType for static declarations; it panics on error.
func MustParseType(text string) Type {
	t, err := ParseType(text)
	if err != nil {
		panic(err)
	}
	return t
}

// MarshalText renders t in declaration syntax.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses declaration syntax.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
