package schema

import (
	"context"
	"testing"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

func TestRenderKeepsDeclarationOrder(t *testing.T) {
	rule := domain.SchemaRule{
		BSONType: domain.BSONObject,
		Required: []string{"name", "price"},
		Properties: []domain.Property{
			{Name: "name", BSONType: domain.BSONString, Description: "goods name"},
			{Name: "price", BSONType: domain.BSONDouble},
		},
	}

	out, err := (Renderer{}).Render(context.Background(), rule)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	expected := `{"$jsonSchema":{"bsonType":"object","required":["name","price"],"properties":{"name":{"bsonType":"string","description":"goods name"},"price":{"bsonType":"double"}}}}`
	if string(out) != expected {
		t.Fatalf("expected %s, got %s", expected, string(out))
	}
}

func TestRenderOmitsEmptyRequired(t *testing.T) {
	rule := domain.SchemaRule{
		BSONType:   domain.BSONObject,
		Properties: []domain.Property{{Name: "note", BSONType: domain.BSONString}},
	}

	out, err := (Renderer{}).Render(context.Background(), rule)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	expected := `{"$jsonSchema":{"bsonType":"object","properties":{"note":{"bsonType":"string"}}}}`
	if string(out) != expected {
		t.Fatalf("expected %s, got %s", expected, string(out))
	}
}

func TestRenderRejectsDuplicateRequired(t *testing.T) {
	rule := domain.SchemaRule{
		BSONType:   domain.BSONObject,
		Required:   []string{"name", "name"},
		Properties: []domain.Property{{Name: "name", BSONType: domain.BSONString}},
	}

	if _, err := (Renderer{}).Render(context.Background(), rule); err == nil {
		t.Fatalf("expected compile error for duplicate required fields")
	}
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (Renderer{}).Render(ctx, domain.SchemaRule{BSONType: domain.BSONObject}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestParseReadsRenderedValidator(t *testing.T) {
	data := []byte(`{"$jsonSchema":{"bsonType":"object","required":["stock"],"properties":{"stock":{"bsonType":"int"},"name":{"bsonType":"string","description":"n"}}}}`)

	rule, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if rule.BSONType != domain.BSONObject {
		t.Fatalf("expected object rule, got %q", rule.BSONType)
	}
	if len(rule.Required) != 1 || rule.Required[0] != "stock" {
		t.Fatalf("unexpected required fields %v", rule.Required)
	}
	if len(rule.Properties) != 2 || rule.Properties[0].Name != "name" || rule.Properties[1].BSONType != domain.BSONInt {
		t.Fatalf("unexpected properties %+v", rule.Properties)
	}
}

func TestParseRequiresJSONSchema(t *testing.T) {
	if _, err := Parse([]byte(`{"price":{"$gt":0}}`)); err != ErrNotJSONSchemaValidator {
		t.Fatalf("expected ErrNotJSONSchemaValidator, got %v", err)
	}
}
