// Package schema validates raw input JSON at the ingress boundary before it
// is decoded into the typed input variants.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Validator holds compiled JSON schemas, one per input variant.
type Validator struct {
	schemas map[models.InputKind]*jsonschema.Schema
}

// NewValidator compiles the built-in raw input schemas.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	schemas := make(map[models.InputKind]*jsonschema.Schema, len(rawSchemas))
	for kind, src := range rawSchemas {
		name := fmt.Sprintf("fluxgate/%s.json", kind)

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", kind, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", kind, err)
		}

		compiled, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", kind, err)
		}
		schemas[kind] = compiled
	}

	return &Validator{schemas: schemas}, nil
}

// Decode validates data against the schema for its declared type and decodes
// it into a RawInput. Inputs with an unknown type or schema violations are
// rejected.
func (v *Validator) Decode(data []byte) (*models.RawInput, error) {
	var envelope struct {
		Type models.InputKind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode input envelope: %w", err)
	}

	compiled, ok := v.schemas[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("unknown input type %q", envelope.Type)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return nil, fmt.Errorf("input failed schema validation: %w", err)
	}

	var input models.RawInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return &input, nil
}
