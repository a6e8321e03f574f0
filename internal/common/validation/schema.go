package validation

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaName identifies one of the bundled JSON schemas.
type SchemaName string

const (
	SchemaInfo              SchemaName = "beacon-info-response"
	SchemaMap               SchemaName = "beacon-map-response"
	SchemaConfiguration     SchemaName = "beacon-configuration-response"
	SchemaEntryTypes        SchemaName = "beacon-entry-types-response"
	SchemaFilteringTerms    SchemaName = "beacon-filtering-terms-response"
	SchemaProtectedResource SchemaName = "oauth-protected-resource"
	SchemaResponse          SchemaName = "beacon-response"
)

var ErrSchemaNotFound = errors.New("SCHEMA_NOT_FOUND")

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"location"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the violations into "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Field != "" {
			out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
		} else {
			out = append(out, e.Message)
		}
	}
	return out
}

// SchemaValidator validates documents against the compiled bundled schemas.
type SchemaValidator struct {
	schemas map[SchemaName]*gojsonschema.Schema
}

// NewSchemaValidator compiles every bundled schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read bundled schemas: %w", err)
	}

	v := &SchemaValidator{schemas: make(map[SchemaName]*gojsonschema.Schema, len(entries))}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		name := SchemaName(strings.TrimSuffix(entry.Name(), ".json"))
		if err := v.Register(name, data); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Register compiles and stores an additional schema under name.
func (v *SchemaValidator) Register(name SchemaName, schema []byte) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	v.schemas[name] = compiled
	return nil
}

func (v *SchemaValidator) Has(name SchemaName) bool {
	if v == nil {
		return false
	}
	_, ok := v.schemas[name]
	return ok
}

// Validate checks doc against the named schema. A document that is not JSON
// yields an invalid result with a single PARSE_ERROR violation.
func (v *SchemaValidator) Validate(name SchemaName, doc []byte) (*ValidationResult, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: fmt.Sprintf("document is not valid JSON: %v", err),
				Code:    "PARSE_ERROR",
			}},
		}, nil
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}, nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}, nil
}
