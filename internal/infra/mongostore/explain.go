package mongostore

import (
	"errors"
	"math"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNoWinningPlan = errors.New("explain output has no winning plan")

// winningIndexName walks queryPlanner.winningPlan and returns the first
// indexName found. Classic plans nest stages under inputStage(s); SBE plans
// add a queryPlan level, so the walk is generic.
func winningIndexName(explain bson.Raw) (string, error) {
	plan, err := explain.LookupErr("queryPlanner", "winningPlan")
	if err != nil {
		return "", ErrNoWinningPlan
	}
	doc, ok := plan.DocumentOK()
	if !ok {
		return "", ErrNoWinningPlan
	}
	return findIndexName(doc), nil
}

func findIndexName(doc bson.Raw) string {
	if name, ok := doc.Lookup("indexName").StringValueOK(); ok {
		return name
	}
	elements, err := doc.Elements()
	if err != nil {
		return ""
	}
	for _, element := range elements {
		value := element.Value()
		switch value.Type {
		case bsontype.EmbeddedDocument:
			if name := findIndexName(value.Document()); name != "" {
				return name
			}
		case bsontype.Array:
			values, err := value.Array().Values()
			if err != nil {
				continue
			}
			for _, item := range values {
				if item.Type != bsontype.EmbeddedDocument {
					continue
				}
				if name := findIndexName(item.Document()); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

// lowerBound is the smallest value of a BSON type, so {$gte: bound} selects
// every document whose field has that type and stays index-eligible.
func lowerBound(bsonType domain.BSONType) any {
	switch bsonType {
	case domain.BSONString:
		return ""
	case domain.BSONDouble, domain.BSONInt, domain.BSONLong, domain.BSONDecimal:
		return math.Inf(-1)
	case domain.BSONBool:
		return false
	case domain.BSONDate:
		return primitive.DateTime(math.MinInt64)
	case domain.BSONObjectID:
		return primitive.NilObjectID
	case domain.BSONObject:
		return bson.D{}
	case domain.BSONArray:
		return bson.A{}
	default:
		return primitive.MinKey{}
	}
}
