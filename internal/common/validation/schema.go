package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// StructuredQuerySchema is the JSON Schema structured queries must satisfy
// before the executor accepts them from a workflow variable. Metric and
// group_by stay free-form: unknown values are reported in-band by the
// executor rather than rejected here.
const StructuredQuerySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["intent", "metric"],
  "properties": {
    "intent": {"type": "string", "enum": ["single", "comparison", "trend", "ranking", "anomaly"]},
    "metric": {"type": "string", "minLength": 1},
    "group_by": {"type": ["string", "null"]},
    "filters": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["string", "number", "boolean"]}
    },
    "time_window": {
      "type": ["object", "null"],
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "enum": ["hour_range", "weekend", "weekday"]},
        "label": {"type": "string"},
        "min": {"type": "integer", "minimum": 0, "maximum": 23},
        "max": {"type": "integer", "minimum": 0, "maximum": 23}
      }
    },
    "sort": {"type": "string", "enum": ["ascending", "descending"]},
    "top_n": {"type": "integer", "minimum": 1},
    "compare": {"type": ["array", "null"], "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "confidence_reasoning": {"type": "string"},
    "raw_query": {"type": "string"},
    "followup": {"type": "boolean"}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds a compiled schema; it is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schemaJSON.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustStructuredQueryValidator compiles StructuredQuerySchema and panics on failure.
func MustStructuredQueryValidator() *Validator {
	v, err := NewValidator(StructuredQuerySchema)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a decoded document (maps, slices, scalars) against the schema.
func (v *Validator) Validate(document interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

// ValidateJSON checks a raw JSON document against the schema.
func (v *Validator) ValidateJSON(document []byte) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field and its children
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
