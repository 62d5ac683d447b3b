// internal/feed/schema.go
package feed

import (
	"fmt"

	"musikmatch/internal/common/errors"
	"musikmatch/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks feed event rows against the registry schemas before they
// reach consumers. Malformed rows are rejected at the edge rather than
// trusted implicitly.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles every table schema in the registry.
func NewValidator(reg *registry.SchemaRegistry) (*Validator, error) {
	schemas := make(map[string]*gojsonschema.Schema, len(reg.Tables))
	for _, table := range reg.Tables {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(table.RowSchema))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", table.Table, err)
		}
		schemas[table.Table] = schema
	}
	return &Validator{schemas: schemas}, nil
}

// Validate rejects events whose row does not satisfy the table's schema.
// Events for tables without a registered schema are rejected outright.
func (v *Validator) Validate(e Event) error {
	schema, ok := v.schemas[e.Table]
	if !ok {
		return errors.NewMalformedRowError(e.Table, "no schema registered for table")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(e.Row))
	if err != nil {
		return errors.NewFeedDecodeFailedError(err)
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return errors.NewMalformedRowError(e.Table, details)
	}
	return nil
}
