package schema

import (
	"bytes"
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchemaValidator checks that a $jsonSchema body compiles. MongoDB's
// dialect is draft 4 plus the bsonType keyword, which the compiler ignores.
type JSONSchemaValidator struct{}

func (JSONSchemaValidator) Validate(ctx context.Context, schema []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft4
	if err := compiler.AddResource("validator.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("load validator: %w", err)
	}

	if _, err := compiler.Compile("validator.json"); err != nil {
		return fmt.Errorf("compile validator: %w", err)
	}

	return nil
}
