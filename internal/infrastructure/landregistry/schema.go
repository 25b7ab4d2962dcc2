package landregistry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema is the shape every non-binary registry response must have.
var envelopeSchema = map[string]interface{}{
	"type": "object",
	"oneOf": []interface{}{
		map[string]interface{}{
			"properties": map[string]interface{}{
				"success": map[string]interface{}{"enum": []interface{}{true}},
			},
			"required": []interface{}{"success"},
		},
		map[string]interface{}{
			"properties": map[string]interface{}{
				"success": map[string]interface{}{"enum": []interface{}{false}},
				"error":   map[string]interface{}{"$ref": "#/definitions/error"},
			},
			"required": []interface{}{"success", "error"},
		},
	},
	"definitions": map[string]interface{}{
		"error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"code":    map[string]interface{}{"type": "string", "minLength": 1},
				"message": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"code"},
		},
	},
}

type schemaValidator struct {
	schema *gojsonschema.Schema
}

func newSchemaValidator() (*schemaValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	return &schemaValidator{schema: s}, nil
}

// validate returns nil when body is a well-formed envelope.
func (v *schemaValidator) validate(body []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("response does not match envelope schema: %s", strings.Join(errs, "; "))
	}
	return nil
}
