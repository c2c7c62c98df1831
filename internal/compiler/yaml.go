package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/shape"
)

// yamlSpec is the YAML declaration format. Lists keep declaration order.
//
//	shapes:
//	  - name: Customer
//	    fields:
//	      - {name: id, type: uuid, keyword: true}
//	      - {name: address, type: Address?}
//	mappings:
//	  - source: Customer
//	    destination: CustomerView
//	    fields:
//	      - {destination: city, source: address.city}
type yamlSpec struct {
	Shapes   []yamlShape        `yaml:"shapes"`
	Mappings []*mapping.TypeMap `yaml:"mappings"`
}

type yamlShape struct {
	Name   string        `yaml:"name"`
	Opaque bool          `yaml:"opaque,omitempty"`
	Fields []shape.Field `yaml:"fields"`
}

// ParseYAML compiles a YAML declaration document. Unknown keys are errors.
func ParseYAML(data []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlSpec
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Spec{}, nil
		}
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}

	spec := &Spec{Mappings: doc.Mappings}
	for i, ys := range doc.Shapes {
		if ys.Name == "" {
			return nil, &CompileError{Field: fmt.Sprintf("shapes[%d].name", i), Message: "name is required"}
		}
		if len(ys.Fields) == 0 {
			return nil, &CompileError{Field: fmt.Sprintf("shapes[%d].fields", i), Message: "fields are required"}
		}
		spec.Shapes = append(spec.Shapes, &shape.Shape{Name: ys.Name, Fields: ys.Fields})
		if ys.Opaque {
			spec.Opaque = append(spec.Opaque, ys.Name)
		}
	}
	for i, m := range spec.Mappings {
		if m == nil || m.Source == "" || m.Destination == "" {
			return nil, &CompileError{Field: fmt.Sprintf("mappings[%d]", i), Message: "source and destination are required"}
		}
	}
	return spec, nil
}

// MarshalYAML renders the spec in the YAML declaration format.
func (s *Spec) MarshalYAML() (any, error) {
	opaque := make(map[string]bool, len(s.Opaque))
	for _, name := range s.Opaque {
		opaque[name] = true
	}
	doc := yamlSpec{Mappings: s.Mappings}
	for _, sh := range s.Shapes {
		doc.Shapes = append(doc.Shapes, yamlShape{Name: sh.Name, Opaque: opaque[sh.Name], Fields: sh.Fields})
	}
	return doc, nil
}
