package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-json-experiment/json"
	"github.com/osvaldoandrade/docprov/internal/domain"
)

var ErrNotJSONSchemaValidator = errors.New("validator has no $jsonSchema rule")

type validatorJSON struct {
	JSONSchema *ruleJSON `json:"$jsonSchema"`
}

type ruleJSON struct {
	BSONType   string                  `json:"bsonType"`
	Required   []string                `json:"required"`
	Properties map[string]propertyJSON `json:"properties"`
}

type propertyJSON struct {
	BSONType    string `json:"bsonType"`
	Description string `json:"description"`
}

// Parse reads a rendered validator back into a SchemaRule. Properties come
// back sorted by name because decoded JSON objects carry no order.
func Parse(data []byte) (domain.SchemaRule, error) {
	var decoded validatorJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return domain.SchemaRule{}, fmt.Errorf("decode validator: %w", err)
	}
	if decoded.JSONSchema == nil {
		return domain.SchemaRule{}, ErrNotJSONSchemaValidator
	}

	rule := domain.SchemaRule{
		BSONType: domain.BSONType(decoded.JSONSchema.BSONType),
		Required: append([]string(nil), decoded.JSONSchema.Required...),
	}
	names := make([]string, 0, len(decoded.JSONSchema.Properties))
	for name := range decoded.JSONSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := decoded.JSONSchema.Properties[name]
		rule.Properties = append(rule.Properties, domain.Property{
			Name:        name,
			BSONType:    domain.BSONType(prop.BSONType),
			Description: prop.Description,
		})
	}
	return rule, nil
}
