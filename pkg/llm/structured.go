package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ResponseSchema validates a structured model reply before it is decoded.
type ResponseSchema struct {
	schema *gojsonschema.Schema
}

// NewResponseSchema compiles a JSON Schema document.
func NewResponseSchema(schemaJSON string) (*ResponseSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return &ResponseSchema{schema: schema}, nil
}

// MustResponseSchema is NewResponseSchema for package-level schemas.
func MustResponseSchema(schemaJSON string) *ResponseSchema {
	s, err := NewResponseSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseError reports a reply that could not be turned into the expected
// structure. Raw holds the reply text.
type ParseError struct {
	Reason string
	Issues []string
	Raw    string
}

func (e *ParseError) Error() string {
	if len(e.Issues) == 0 {
		return "parse model response: " + e.Reason
	}
	return fmt.Sprintf("parse model response: %s: %s", e.Reason, strings.Join(e.Issues, "; "))
}

// IsRetryable reports false: the same prompt is unlikely to fix the reply.
func (e *ParseError) IsRetryable() bool {
	return false
}

// ParseStructured extracts JSON from a reply, validates it against schema
// (when non-nil) and decodes it into T.
func ParseStructured[T any](response string, schema *ResponseSchema) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, &ParseError{Reason: err.Error(), Raw: response}
	}

	if schema != nil {
		validation, err := schema.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
		if err != nil {
			return result, &ParseError{Reason: err.Error(), Raw: response}
		}
		if !validation.Valid() {
			issues := make([]string, 0, len(validation.Errors()))
			for _, e := range validation.Errors() {
				issues = append(issues, e.String())
			}
			return result, &ParseError{Reason: "schema validation failed", Issues: issues, Raw: response}
		}
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, &ParseError{Reason: fmt.Sprintf("unmarshal JSON: %v", err), Raw: response}
	}
	return result, nil
}
