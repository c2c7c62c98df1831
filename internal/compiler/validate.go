package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scylladb/go-set/strset"

	"github.com/roach88/populate/internal/shape"
)

// Validation error codes (E100-E199)
const (
	// Shape errors (E101-E109)
	ErrShapeNoFields     = "E101" // shape declares no fields
	ErrDuplicateName     = "E102" // duplicate shape or field name
	ErrInvalidFieldType  = "E103" // invalid type declaration
	ErrUnknownShape      = "E104" // field references an undeclared shape
	ErrUnknownOpaque     = "E105" // opaque marker names an undeclared shape
	ErrShapeNameRequired = "E106" // shape without a name

	// Mapping errors (E110-E119)
	ErrMappingUnknownShape = "E110" // source or destination shape undeclared
	ErrMappingUnknownField = "E111" // destination has no such field
	ErrMappingSourcePath   = "E112" // source path does not resolve
	ErrMappingDuplicate    = "E113" // shape pair mapped twice
	ErrMappingConflict     = "E114" // ignored field also names a source
	ErrMappingDuplicateKey = "E115" // destination field mapped twice
)

// ValidationError represents a declaration validation error.
type ValidationError struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
	Code    string `json:"code" yaml:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a spec for consistency. Returns all errors found (does
// not fail-fast).
func Validate(spec *Spec) []ValidationError {
	var errs []ValidationError

	// Declared shapes, first declaration wins; case-insensitive like the
	// registry.
	declared := make(map[string]*shape.Shape)
	for i, s := range spec.Shapes {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("shapes[%d].name", i),
				Message: "shape name is required",
				Code:    ErrShapeNameRequired,
			})
			continue
		}
		key := strings.ToLower(s.Name)
		if _, dup := declared[key]; dup {
			errs = append(errs, ValidationError{
				Field:   "shape." + s.Name,
				Message: fmt.Sprintf("duplicate shape name: %q", s.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		declared[key] = s
	}

	for _, name := range spec.Opaque {
		if _, ok := declared[strings.ToLower(name)]; !ok {
			errs = append(errs, ValidationError{
				Field:   "opaque",
				Message: fmt.Sprintf("opaque shape %q is not declared", name),
				Code:    ErrUnknownOpaque,
			})
		}
	}

	// Shapes with clashing field names stay declared but cannot be
	// registered for source path resolution.
	rejected := strset.New()
	for _, s := range spec.Shapes {
		if s.Name == "" || declared[strings.ToLower(s.Name)] != s {
			continue
		}
		shapeErrs := validateShape(s, declared)
		for _, e := range shapeErrs {
			if e.Code == ErrDuplicateName {
				rejected.Add(strings.ToLower(s.Name))
			}
		}
		errs = append(errs, shapeErrs...)
	}

	errs = append(errs, validateMappings(spec, declared, rejected)...)
	return errs
}

func validateShape(s *shape.Shape, declared map[string]*shape.Shape) []ValidationError {
	var errs []ValidationError

	if len(s.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   "shape." + s.Name,
			Message: "at least one field is required",
			Code:    ErrShapeNoFields,
		})
	}

	names := strset.New()
	for _, f := range s.Fields {
		where := fmt.Sprintf("shape.%s.fields.%s", s.Name, f.Name)
		if names.Has(strings.ToLower(f.Name)) {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateName,
			})
		}
		names.Add(strings.ToLower(f.Name))

		leaf := f.Type.Leaf()
		switch {
		case leaf.Kind == shape.KindInvalid:
			errs = append(errs, ValidationError{
				Field:   where,
				Message: "invalid type",
				Code:    ErrInvalidFieldType,
			})
		case f.Type.CollectionDepth() > 1:
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("nested collection %s is not supported", f.Type),
				Code:    ErrInvalidFieldType,
			})
		case leaf.Kind == shape.KindObject:
			if _, ok := declared[strings.ToLower(leaf.Shape)]; !ok {
				errs = append(errs, ValidationError{
					Field:   where,
					Message: fmt.Sprintf("unknown shape %q", leaf.Shape),
					Code:    ErrUnknownShape,
				})
			}
		}
	}
	return errs
}

func validateMappings(spec *Spec, declared map[string]*shape.Shape, rejected *strset.Set) []ValidationError {
	var errs []ValidationError

	// Resolve source paths against the shapes that are well formed enough
	// to register.
	reg := shape.NewRegistry()
	names := make([]string, 0, len(declared))
	for key := range declared {
		if !rejected.Has(key) {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	for _, key := range names {
		s := declared[key]
		if err := reg.Register(s); err != nil {
			errs = append(errs, ValidationError{
				Field:   "shape." + s.Name,
				Message: err.Error(),
				Code:    ErrDuplicateName,
			})
		}
	}

	pairs := strset.New()
	for i, m := range spec.Mappings {
		where := fmt.Sprintf("mapping.%s->%s", m.Source, m.Destination)
		pair := strings.ToLower(m.Source) + "\x00" + strings.ToLower(m.Destination)
		if pairs.Has(pair) {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("mappings[%d] maps the same shapes again", i),
				Code:    ErrMappingDuplicate,
			})
			continue
		}
		pairs.Add(pair)

		src, srcOK := declared[strings.ToLower(m.Source)]
		dst, dstOK := declared[strings.ToLower(m.Destination)]
		if !srcOK {
			errs = append(errs, ValidationError{
				Field:   where + ".source",
				Message: fmt.Sprintf("unknown shape %q", m.Source),
				Code:    ErrMappingUnknownShape,
			})
		}
		if !dstOK {
			errs = append(errs, ValidationError{
				Field:   where + ".destination",
				Message: fmt.Sprintf("unknown shape %q", m.Destination),
				Code:    ErrMappingUnknownShape,
			})
		}
		if !srcOK || !dstOK {
			continue
		}

		seen := strset.New()
		for _, f := range m.Fields {
			fw := where + ".fields." + f.Destination
			if seen.Has(strings.ToLower(f.Destination)) {
				errs = append(errs, ValidationError{
					Field:   fw,
					Message: "destination field mapped twice",
					Code:    ErrMappingDuplicateKey,
				})
				continue
			}
			seen.Add(strings.ToLower(f.Destination))

			if _, ok := dst.Field(f.Destination); !ok {
				errs = append(errs, ValidationError{
					Field:   fw,
					Message: fmt.Sprintf("%s has no field %q", dst.Name, f.Destination),
					Code:    ErrMappingUnknownField,
				})
				continue
			}
			if f.Ignored {
				if f.Source != "" || f.From != "" {
					errs = append(errs, ValidationError{
						Field:   fw,
						Message: "an ignored field cannot name a source",
						Code:    ErrMappingConflict,
					})
				}
				continue
			}
			if _, err := reg.ResolvePath(src, f.SourcePath()); err != nil {
				errs = append(errs, ValidationError{
					Field:   fw,
					Message: err.Error(),
					Code:    ErrMappingSourcePath,
				})
			}
		}
	}
	return errs
}
