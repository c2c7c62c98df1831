// Package compiler turns shape and field-mapping declarations written in
// CUE or YAML into the registries the query compiler works from.
package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/shape"
)

// Spec is a compiled set of declarations. Shapes and mappings keep the
// order they were declared in.
type Spec struct {
	Shapes   []*shape.Shape
	Opaque   []string
	Mappings []*mapping.TypeMap
}

// Merge appends the declarations of other.
func (s *Spec) Merge(other *Spec) {
	if other == nil {
		return
	}
	s.Shapes = append(s.Shapes, other.Shapes...)
	s.Opaque = append(s.Opaque, other.Opaque...)
	s.Mappings = append(s.Mappings, other.Mappings...)
}

// Empty reports whether the spec declares nothing.
func (s *Spec) Empty() bool {
	return len(s.Shapes) == 0 && len(s.Mappings) == 0
}

// Registries validates the spec and builds the shape and mapping
// registries from it. Every validation error is reported.
func (s *Spec) Registries() (*shape.Registry, *mapping.Registry, error) {
	if verrs := Validate(s); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, nil, errors.Join(errs...)
	}

	shapes := shape.NewRegistry()
	if err := shapes.Register(s.Shapes...); err != nil {
		return nil, nil, fmt.Errorf("register shapes: %w", err)
	}
	shapes.MarkOpaque(s.Opaque...)
	if err := shapes.Validate(); err != nil {
		return nil, nil, err
	}

	maps := mapping.NewRegistry()
	if err := maps.Register(s.Mappings...); err != nil {
		return nil, nil, fmt.Errorf("register mappings: %w", err)
	}
	if err := maps.Validate(shapes); err != nil {
		return nil, nil, err
	}
	return shapes, maps, nil
}
