// Package formschema validates submitted form schemas before they are stored.
package formschema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wikimedia/contest-api/internal/types"
)

//go:embed form.schema.json
var schemaJSON string

var Schema = jsonschema.MustCompileString("form.schema.json", schemaJSON)

// Validates a decoded JSON document against Schema and converts it to a FormSchema
func Decode(raw map[string]any) (types.FormSchema, error) {
	var schema types.FormSchema

	if err := Schema.Validate(raw); err != nil {
		return schema, err
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return schema, fmt.Errorf("failed to encode form schema: %w", err)
	}

	if err := json.Unmarshal(buf, &schema); err != nil {
		return schema, fmt.Errorf("failed to decode form schema: %w", err)
	}

	return schema, nil
}

// Keyword location -> message for schema violations, ok is false for any other error
func FieldErrors(err error) (map[string]string, bool) {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, false
	}

	errs := validationErr.BasicOutput().Errors
	fieldMap := make(map[string]string, len(errs))
	for _, e := range errs {
		fieldMap[e.KeywordLocation] = e.Error
	}

	return fieldMap, true
}
