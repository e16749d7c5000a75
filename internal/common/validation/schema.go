package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/pkg/registry"
)

// SchemaValidator checks job variables against the input schemas declared
// in the activity registry.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaValidator compiles every non-empty input schema in reg, keyed by
// task type.
func NewSchemaValidator(reg *registry.ActivityRegistry) (*SchemaValidator, error) {
	v := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}
	if reg == nil {
		return v, nil
	}
	for _, a := range reg.Activities {
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("activity %s: invalid input schema: %w", a.ID, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// LoadSchemaValidator reads the registry file at path and compiles it.
func LoadSchemaValidator(path string) (*SchemaValidator, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity registry: %w", err)
	}
	return NewSchemaValidator(reg)
}

func (v *SchemaValidator) HasSchema(taskType string) bool {
	if v == nil {
		return false
	}
	_, ok := v.schemas[taskType]
	return ok
}

// Validate returns an INVALID_JOB_INPUT error listing every violation, or
// nil when the task type has no schema.
func (v *SchemaValidator) Validate(taskType string, variables map[string]interface{}) error {
	if v == nil {
		return nil
	}
	schema, ok := v.schemas[taskType]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(variables))
	if err != nil {
		return apperrors.NewInvalidJobInputError(fmt.Sprintf("validation error: %v", err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	sort.Strings(msgs)
	return apperrors.NewInvalidJobInputError(strings.Join(msgs, "; "))
}
