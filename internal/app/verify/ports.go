package verify

import (
	"context"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

// Planner reports the index the store's query planner picks for the range
// predicate {field: {$gte: <lower bound of bsonType>}}, or "" for a collection scan.
type Planner interface {
	WinningIndex(ctx context.Context, database, collection, field string, bsonType domain.BSONType) (string, error)
}

type Result struct {
	Indexes  int
	Verified int
	Issues   []Issue
}

type Issue struct {
	Namespace string
	Field     string
	Code      string
	Message   string
}
