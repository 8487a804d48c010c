package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/fzracing/fz/wire"
)

var validate = validator.New()

// ConfigSchema reflects a JSON schema (Draft 2020-12) from a config
// struct for publication in the manifest.
func ConfigSchema(v any) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return data, nil
}

// ValidateConfig checks a decoded config against its validate tags and
// converts failures into structured config errors.
func ValidateConfig(v any) error {
	if err := validate.Struct(v); err != nil {
		return &wire.ErrorDetail{Type: "config", Message: err.Error()}
	}
	return nil
}
