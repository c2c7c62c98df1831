package shape

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Enumerated is implemented by Go types whose values form a closed set of names.
type Enumerated interface {
	EnumValues() []string
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	enumeratedType = reflect.TypeOf((*Enumerated)(nil)).Elem()
)

// Reflect derives shapes from Go struct values (or pointers to them) and from
// every struct type reachable through their fields. Shape names are the Go
// type names.
//
// Field names come from the `populate` tag, then the `json` tag, then the
// camelCased Go field name. The `populate` tag also accepts the options
// nullable, ignore, notsearch, keyword and opaque; a `json:"-"` field is
// recorded as ignored.
//
//	type Order struct {
//		ID       uuid.UUID `populate:"id,keyword"`
//		Total    decimal.Decimal
//		Customer *Customer `populate:",nullable"`
//		Internal string    `json:"-"`
//	}
func Reflect(values ...any) ([]*Shape, error) {
	r := &reflector{seen: make(map[reflect.Type]bool)}
	for _, v := range values {
		t := reflect.TypeOf(v)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("reflect %T: not a struct", v)
		}
		r.enqueue(t)
	}
	for len(r.queue) > 0 {
		t := r.queue[0]
		r.queue = r.queue[1:]
		s, err := r.shapeOf(t)
		if err != nil {
			return nil, err
		}
		r.out = append(r.out, s)
	}
	return r.out, nil
}

type reflector struct {
	seen  map[reflect.Type]bool
	queue []reflect.Type
	out   []*Shape
}

func (r *reflector) enqueue(t reflect.Type) {
	if !r.seen[t] {
		r.seen[t] = true
		r.queue = append(r.queue, t)
	}
}

func (r *reflector) shapeOf(t reflect.Type) (*Shape, error) {
	s := &Shape{Name: t.Name()}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, opts := parseTag(sf)
		if name == "-" {
			continue
		}

		ft, err := r.typeOf(sf.Type, opts["opaque"])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if opts["nullable"] {
			ft.Nullable = true
		}

		s.Fields = append(s.Fields, Field{
			Name:      name,
			Type:      ft,
			Ignore:    opts["ignore"] || sf.Tag.Get("json") == "-",
			NotSearch: opts["notsearch"],
			Keyword:   opts["keyword"],
		})
	}
	return s, nil
}

func (r *reflector) typeOf(t reflect.Type, opaque bool) (Type, error) {
	if t.Kind() != reflect.Pointer && t.Implements(enumeratedType) {
		values := reflect.Zero(t).Interface().(Enumerated).EnumValues()
		return Enum(values...), nil
	}

	switch t {
	case timeType:
		return Scalar(KindTime), nil
	case uuidType:
		return Scalar(KindUUID), nil
	case decimalType:
		return Scalar(KindDecimal), nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem, err := r.typeOf(t.Elem(), opaque)
		if err != nil {
			return Type{}, err
		}
		return Nullable(elem), nil
	case reflect.String:
		return Scalar(KindString), nil
	case reflect.Bool:
		return Scalar(KindBool), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar(KindInt), nil
	case reflect.Float32, reflect.Float64:
		return Scalar(KindFloat), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return Scalar(KindOpaque), nil
		}
		elem, err := r.typeOf(t.Elem(), opaque)
		if err != nil {
			return Type{}, err
		}
		return CollectionOf(elem), nil
	case reflect.Map, reflect.Interface:
		return Scalar(KindDynamic), nil
	case reflect.Struct:
		if opaque {
			return Scalar(KindOpaque), nil
		}
		if t.Name() == "" {
			return Type{}, fmt.Errorf("anonymous struct fields are not supported")
		}
		r.enqueue(t)
		return Object(t.Name()), nil
	}
	return Type{}, fmt.Errorf("unsupported Go type %s", t)
}

func parseTag(sf reflect.StructField) (string, map[string]bool) {
	opts := make(map[string]bool)
	name := ""

	if tag, ok := sf.Tag.Lookup("populate"); ok {
		parts := strings.Split(tag, ",")
		name = strings.TrimSpace(parts[0])
		for _, p := range parts[1:] {
			opts[strings.ToLower(strings.TrimSpace(p))] = true
		}
	}
	if name == "" {
		if jsonTag := sf.Tag.Get("json"); jsonTag != "" && jsonTag != "-" {
			name = strings.Split(jsonTag, ",")[0]
		}
	}
	if name == "" {
		name = strcase.ToCamel(sf.Name)
	}
	return name, opts
}
