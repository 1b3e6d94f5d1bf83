package catalogyaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid catalog document")

type catalogFile struct {
	Collections []collectionYAML `yaml:"collections"`
}

type collectionYAML struct {
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Validator  validatorYAML `yaml:"validator"`
	Indexes    []indexYAML   `yaml:"indexes"`
}

type validatorYAML struct {
	BSONType   string         `yaml:"bsonType"`
	Required   []string       `yaml:"required"`
	Properties []propertyYAML `yaml:"properties"`
}

type propertyYAML struct {
	Name        string `yaml:"name"`
	BSONType    string `yaml:"bsonType"`
	Description string `yaml:"description"`
}

type indexYAML struct {
	Field string `yaml:"field"`
	Order string `yaml:"order"`
}

// Decoder reads catalog documents. JSON catalogs decode too, since JSON is valid YAML.
type Decoder struct{}

func (Decoder) Decode(ctx context.Context, data []byte) ([]domain.CollectionSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file catalogFile
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	specs := make([]domain.CollectionSpec, 0, len(file.Collections))
	for _, item := range file.Collections {
		spec, err := item.toSpec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (c collectionYAML) toSpec() (domain.CollectionSpec, error) {
	bsonType := domain.BSONType(c.Validator.BSONType)
	if bsonType == "" {
		bsonType = domain.BSONObject
	}
	spec := domain.CollectionSpec{
		Database:   c.Database,
		Collection: c.Collection,
		Validator: domain.SchemaRule{
			BSONType: bsonType,
			Required: c.Validator.Required,
		},
	}
	for _, prop := range c.Validator.Properties {
		spec.Validator.Properties = append(spec.Validator.Properties, domain.Property{
			Name:        prop.Name,
			BSONType:    domain.BSONType(prop.BSONType),
			Description: prop.Description,
		})
	}
	for _, index := range c.Indexes {
		direction, err := domain.ParseSortDirection(index.Order)
		if err != nil {
			return domain.CollectionSpec{}, fmt.Errorf("collection %s index %s: %w", c.Collection, index.Field, err)
		}
		spec.Indexes = append(spec.Indexes, domain.IndexSpec{Field: index.Field, Direction: direction})
	}
	return spec, nil
}
