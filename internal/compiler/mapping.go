package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/populate/internal/mapping"
)

// mappingSeparator joins source and destination in a mapping label, as in
// "Customer->CustomerView".
const mappingSeparator = "->"

// CompileMapping parses a CUE value into a TypeMap.
//
// The source and destination shapes come from the "source" and
// "destination" fields, or from a "Source->Destination" label. Each entry of
// "fields" is either a source path or a struct:
//
//	mapping: "Customer->CustomerView": fields: {
//		city:         "address.city"
//		address:      {allowNull: true}
//		internalCode: {ignored: true}
//	}
func CompileMapping(v cue.Value) (*mapping.TypeMap, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &mapping.TypeMap{}
	var label string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		label = labels[len(labels)-1].Unquoted()
		if src, dst, ok := strings.Cut(label, mappingSeparator); ok {
			m.Source, m.Destination = strings.TrimSpace(src), strings.TrimSpace(dst)
		}
	}

	var err error
	if src, err := optionalString(v, "source"); err != nil {
		return nil, err
	} else if src != "" {
		m.Source = src
	}
	if dst, err := optionalString(v, "destination"); err != nil {
		return nil, err
	} else if dst != "" {
		m.Destination = dst
	}
	if m.Source == "" || m.Destination == "" {
		return nil, &CompileError{
			Field:   "mapping." + label,
			Message: fmt.Sprintf("source and destination are required (or a %q label)", "Source"+mappingSeparator+"Destination"),
			Pos:     v.Pos(),
		}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return m, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := compileFieldMap(label, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, f)
	}
	return m, nil
}

func compileFieldMap(label, name string, v cue.Value) (mapping.FieldMap, error) {
	f := mapping.FieldMap{Destination: name}

	if v.IncompleteKind() == cue.StringKind {
		src, err := v.String()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Source = src
		return f, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return f, &CompileError{
			Field:   fmt.Sprintf("mapping.%s.fields.%s", label, name),
			Message: "must be a source path or a struct",
			Pos:     v.Pos(),
		}
	}

	var err error
	if f.Source, err = optionalString(v, "source"); err != nil {
		return f, err
	}
	if f.From, err = optionalString(v, "from"); err != nil {
		return f, err
	}
	if f.Ignored, err = optionalBool(v, "ignored"); err != nil {
		return f, err
	}
	if f.AllowNull, err = optionalBool(v, "allowNull"); err != nil {
		return f, err
	}
	return f, nil
}
