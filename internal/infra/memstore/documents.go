package memstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var ErrDocumentRejected = errors.New("document failed validation")

// Insert marshals doc with the driver's BSON encoder and checks it against the
// collection validator, so Go int/int64/float64 land on the same BSON types
// a real server would see.
func (s *Store) Insert(ctx context.Context, dbName, collName string, doc any) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.lookup(dbName, collName)
	if err != nil {
		return err
	}
	if coll.rule != nil {
		if err := checkDocument(*coll.rule, bson.Raw(raw)); err != nil {
			return err
		}
	}
	coll.docs = append(coll.docs, raw)
	return nil
}

func (s *Store) Count(dbName, collName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.lookup(dbName, collName)
	if err != nil {
		return 0
	}
	return len(coll.docs)
}

func checkDocument(rule domain.SchemaRule, doc bson.Raw) error {
	elements, err := doc.Elements()
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	present := make(map[string]bsontype.Type, len(elements))
	for _, element := range elements {
		present[element.Key()] = element.Value().Type
	}

	for _, field := range rule.Required {
		if _, ok := present[field]; !ok {
			return fmt.Errorf("%w: missing required field %s", ErrDocumentRejected, field)
		}
	}
	for _, prop := range rule.Properties {
		actual, ok := present[prop.Name]
		if !ok {
			continue
		}
		if !typeMatches(prop.BSONType, actual) {
			return fmt.Errorf("%w: field %s is %s, want %s", ErrDocumentRejected, prop.Name, actual, prop.BSONType)
		}
	}
	return nil
}

func typeMatches(want domain.BSONType, actual bsontype.Type) bool {
	switch want {
	case domain.BSONString:
		return actual == bsontype.String
	case domain.BSONDouble:
		return actual == bsontype.Double
	case domain.BSONLong:
		return actual == bsontype.Int64
	case domain.BSONInt:
		return actual == bsontype.Int32
	case domain.BSONDecimal:
		return actual == bsontype.Decimal128
	case domain.BSONBool:
		return actual == bsontype.Boolean
	case domain.BSONDate:
		return actual == bsontype.DateTime
	case domain.BSONObjectID:
		return actual == bsontype.ObjectID
	case domain.BSONObject:
		return actual == bsontype.EmbeddedDocument
	case domain.BSONArray:
		return actual == bsontype.Array
	default:
		return false
	}
}
