package expect

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// ValidationErrors represents a collection of schema validation errors.
type ValidationErrors []error

// Error implements the error interface for ValidationErrors.
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema validates the response body against a JSON Schema document. A
// body that violates the schema yields ValidationErrors listing every
// failing location.
func Schema(resp *probehttp.AugmentedResponse, schema string) error {
	compiled, err := compile(schema)
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("invalid JSON: no response")
	}

	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	err = compiled.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return extractValidationErrors(validationErr)
	}
	return ValidationErrors{err}
}

func compile(schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return compiled, nil
}

// extractValidationErrors flattens a validation error tree.
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	if err.Message != "" && len(err.Causes) == 0 {
		errs = append(errs, fmt.Errorf("validation error at %s: %s", location(err.InstanceLocation), err.Message))
	}
	for _, cause := range err.Causes {
		errs = append(errs, extractValidationErrors(cause)...)
	}
	return errs
}

func location(ptr string) string {
	if ptr == "" {
		return "/"
	}
	return ptr
}
