package validation

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/process-request.json
var processRequestSchema string

// SchemaValidator handles JSON schema validation for API requests.
type SchemaValidator struct {
	processRequest *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(processRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to load process-request schema: %w", err)
	}
	return &SchemaValidator{processRequest: schema}, nil
}

// ValidateProcessRequest validates a raw trigger payload against the
// process-request schema.
func (sv *SchemaValidator) ValidateProcessRequest(body []byte) (*ValidationResult, error) {
	result, err := sv.processRequest.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		vr.Errors = append(vr.Errors, e.String())
	}
	return vr, nil
}
