package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/populate/internal/shape"
)

// CompileSpec compiles every shape under "shape" and every mapping under
// "mapping" of a CUE value. Declarations that fail to compile are reported
// and skipped; the rest are returned.
//
//	shape: Customer: fields: {
//		id:      {type: "uuid", keyword: true}
//		name:    "string"
//		address: "Address?"
//	}
//	mapping: "Customer->CustomerView": fields: {
//		city: "address.city"
//	}
func CompileSpec(v cue.Value) (*Spec, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	spec := &Spec{}
	var errs []error

	if shapesVal := v.LookupPath(cue.ParsePath("shape")); shapesVal.Exists() {
		iter, err := shapesVal.Fields()
		if err != nil {
			return nil, []error{formatCUEError(err)}
		}
		for iter.Next() {
			s, opaque, err := CompileShape(iter.Value())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			spec.Shapes = append(spec.Shapes, s)
			if opaque {
				spec.Opaque = append(spec.Opaque, s.Name)
			}
		}
	}

	if mapsVal := v.LookupPath(cue.ParsePath("mapping")); mapsVal.Exists() {
		iter, err := mapsVal.Fields()
		if err != nil {
			return nil, append(errs, formatCUEError(err))
		}
		for iter.Next() {
			m, err := CompileMapping(iter.Value())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			spec.Mappings = append(spec.Mappings, m)
		}
	}

	return spec, errs
}

// CompileShape parses a CUE value into a Shape and reports whether the
// shape is declared opaque.
//
// The CUE value should be the shape struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`shape: Address: fields: { city: "string" }`)
//	s, opaque, err := CompileShape(v.LookupPath(cue.ParsePath("shape.Address")))
func CompileShape(v cue.Value) (*shape.Shape, bool, error) {
	if err := v.Err(); err != nil {
		return nil, false, formatCUEError(err)
	}

	s := &shape.Shape{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		s.Name = labels[len(labels)-1].Unquoted()
	}

	opaque, err := optionalBool(v, "opaque")
	if err != nil {
		return nil, false, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, false, &CompileError{
			Field:   fmt.Sprintf("shape.%s.fields", s.Name),
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, false, formatCUEError(err)
	}
	for iter.Next() {
		f, err := compileField(s.Name, iter.Label(), iter.Value())
		if err != nil {
			return nil, false, err
		}
		s.Fields = append(s.Fields, f)
	}

	return s, opaque, nil
}

// compileField parses either the type string shorthand or a struct with a
// type and flags.
func compileField(shapeName, name string, v cue.Value) (shape.Field, error) {
	f := shape.Field{Name: name}
	where := fmt.Sprintf("shape.%s.fields.%s", shapeName, name)

	typeVal := v
	if v.IncompleteKind() == cue.StructKind {
		typeVal = v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return f, &CompileError{Field: where + ".type", Message: "type is required", Pos: v.Pos()}
		}
		var err error
		if f.Keyword, err = optionalBool(v, "keyword"); err != nil {
			return f, err
		}
		if f.Ignore, err = optionalBool(v, "ignore"); err != nil {
			return f, err
		}
		if f.NotSearch, err = optionalBool(v, "notSearch"); err != nil {
			return f, err
		}
	}

	text, err := typeVal.String()
	if err != nil {
		return f, &CompileError{
			Field:   where,
			Message: "type must be a string such as \"int?\" or \"[]Order\"",
			Pos:     typeVal.Pos(),
		}
	}
	t, err := shape.ParseType(text)
	if err != nil {
		return f, &CompileError{Field: where, Message: err.Error(), Pos: typeVal.Pos()}
	}
	f.Type = t
	return f, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	b := v.LookupPath(cue.ParsePath(name))
	if !b.Exists() {
		return false, nil
	}
	out, err := b.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return out, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	s := v.LookupPath(cue.ParsePath(name))
	if !s.Exists() {
		return "", nil
	}
	out, err := s.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
