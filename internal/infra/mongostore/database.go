package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const (
	validationLevel  = "strict"
	validationAction = "error"
)

type Database struct {
	db *mongo.Database
}

func (d *Database) Name() string {
	return d.db.Name()
}

func (d *Database) LookupCollection(ctx context.Context, name string) (domain.CollectionState, bool, error) {
	specs, err := d.db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return domain.CollectionState{}, false, mapError("list collections", err)
	}
	if len(specs) == 0 {
		return domain.CollectionState{}, false, nil
	}

	state := domain.CollectionState{Name: specs[0].Name}
	validator, err := validatorJSON(specs[0].Options)
	if err != nil {
		return state, true, fmt.Errorf("read validator of %s.%s: %w", d.Name(), name, err)
	}
	state.Validator = validator
	return state, true, nil
}

func (d *Database) CreateCollection(ctx context.Context, name string, validator []byte) error {
	doc, err := validatorDocument(validator)
	if err != nil {
		return err
	}
	opts := options.CreateCollection().
		SetValidator(doc).
		SetValidationLevel(validationLevel).
		SetValidationAction(validationAction)
	if err := d.db.CreateCollection(ctx, name, opts); err != nil {
		return mapError("create collection "+d.Name()+"."+name, err)
	}
	return nil
}

// ReplaceValidator swaps the validator of an existing collection with collMod.
func (d *Database) ReplaceValidator(ctx context.Context, name string, validator []byte) error {
	doc, err := validatorDocument(validator)
	if err != nil {
		return err
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: doc},
		{Key: "validationLevel", Value: validationLevel},
		{Key: "validationAction", Value: validationAction},
	}
	if err := d.db.RunCommand(ctx, command).Err(); err != nil {
		return mapError("collMod "+d.Name()+"."+name, err)
	}
	return nil
}

func (d *Database) ListIndexes(ctx context.Context, collection string) ([]domain.IndexState, error) {
	specs, err := d.db.Collection(collection).Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, mapError("list indexes "+d.Name()+"."+collection, err)
	}
	out := make([]domain.IndexState, 0, len(specs))
	for _, spec := range specs {
		keys, err := indexKeys(spec.KeysDocument)
		if err != nil {
			return nil, fmt.Errorf("read index %s: %w", spec.Name, err)
		}
		out = append(out, domain.IndexState{Name: spec.Name, Keys: keys})
	}
	return out, nil
}

func (d *Database) CreateIndex(ctx context.Context, collection string, index domain.IndexSpec) (string, error) {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: index.Field, Value: int32(index.Direction)}},
		Options: options.Index().SetName(index.Name()),
	}
	name, err := d.db.Collection(collection).Indexes().CreateOne(ctx, model)
	if err != nil {
		return "", mapIndexError("create index "+index.Name()+" on "+d.Name()+"."+collection, err)
	}
	return name, nil
}

// validatorDocument decodes rendered validator JSON into an ordered document.
func validatorDocument(validator []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(validator, false, &doc); err != nil {
		return nil, fmt.Errorf("decode validator: %w", err)
	}
	return doc, nil
}

// validatorJSON extracts options.validator as relaxed extended JSON, or nil
// when the collection has none.
func validatorJSON(collOptions bson.Raw) ([]byte, error) {
	if len(collOptions) == 0 {
		return nil, nil
	}
	value, err := collOptions.LookupErr("validator")
	if errors.Is(err, bsoncore.ErrElementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value.Type != bsontype.EmbeddedDocument {
		return nil, fmt.Errorf("validator is %s, want document", value.Type)
	}

	var doc bson.D
	if err := bson.Unmarshal(value.Document(), &doc); err != nil {
		return nil, err
	}
	return bson.MarshalExtJSON(doc, false, false)
}

func indexKeys(keys bson.Raw) ([]domain.IndexKey, error) {
	elements, err := keys.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]domain.IndexKey, 0, len(elements))
	for _, element := range elements {
		out = append(out, domain.IndexKey{
			Field:     element.Key(),
			Direction: keyDirection(element.Value()),
		})
	}
	return out, nil
}

// keyDirection reads 1/-1 from any numeric key value; special index types
// such as "text" or "2dsphere" map to 0 and never match a declared index.
func keyDirection(value bson.RawValue) domain.SortDirection {
	var n float64
	switch value.Type {
	case bsontype.Int32:
		n = float64(value.Int32())
	case bsontype.Int64:
		n = float64(value.Int64())
	case bsontype.Double:
		n = value.Double()
	default:
		return 0
	}
	switch {
	case n > 0:
		return domain.Ascending
	case n < 0:
		return domain.Descending
	default:
		return 0
	}
}
