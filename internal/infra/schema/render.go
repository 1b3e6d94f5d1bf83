package schema

import (
	"context"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

const jsonSchemaKey = "$jsonSchema"

// Renderer turns a SchemaRule into the validator document attached to a collection:
// {"$jsonSchema": {"bsonType": "object", "required": [...], "properties": {...}}}.
type Renderer struct {
	Validator JSONSchemaValidator
}

func (r Renderer) Render(ctx context.Context, rule domain.SchemaRule) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inner, err := bson.MarshalExtJSON(JSONSchemaDocument(rule), false, false)
	if err != nil {
		return nil, fmt.Errorf("encode validator: %w", err)
	}
	if err := r.Validator.Validate(ctx, inner); err != nil {
		return nil, err
	}

	out, err := bson.MarshalExtJSON(ValidatorDocument(rule), false, false)
	if err != nil {
		return nil, fmt.Errorf("encode validator: %w", err)
	}
	return out, nil
}

func ValidatorDocument(rule domain.SchemaRule) bson.D {
	return bson.D{{Key: jsonSchemaKey, Value: JSONSchemaDocument(rule)}}
}

func JSONSchemaDocument(rule domain.SchemaRule) bson.D {
	doc := bson.D{{Key: "bsonType", Value: string(rule.BSONType)}}
	if len(rule.Required) > 0 {
		required := make(bson.A, 0, len(rule.Required))
		for _, field := range rule.Required {
			required = append(required, field)
		}
		doc = append(doc, bson.E{Key: "required", Value: required})
	}

	properties := make(bson.D, 0, len(rule.Properties))
	for _, prop := range rule.Properties {
		field := bson.D{{Key: "bsonType", Value: string(prop.BSONType)}}
		if prop.Description != "" {
			field = append(field, bson.E{Key: "description", Value: prop.Description})
		}
		properties = append(properties, bson.E{Key: prop.Name, Value: field})
	}
	doc = append(doc, bson.E{Key: "properties", Value: properties})
	return doc
}
