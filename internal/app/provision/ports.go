package provision

import (
	"context"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

type Store interface {
	SelectDatabase(ctx context.Context, name string) (Database, error)
}

// Database is a handle scoped to one logical database. Every operation names
// its collection explicitly; there is no ambient current database.
type Database interface {
	Name() string
	LookupCollection(ctx context.Context, name string) (domain.CollectionState, bool, error)
	CreateCollection(ctx context.Context, name string, validator []byte) error
	ReplaceValidator(ctx context.Context, name string, validator []byte) error
	ListIndexes(ctx context.Context, collection string) ([]domain.IndexState, error)
	CreateIndex(ctx context.Context, collection string, index domain.IndexSpec) (string, error)
}

type ValidatorRenderer interface {
	Render(ctx context.Context, rule domain.SchemaRule) ([]byte, error)
}

type Canonicalizer interface {
	Canonicalize(ctx context.Context, input []byte) ([]byte, error)
}

type Differ interface {
	Diff(ctx context.Context, live, declared []byte) ([]byte, error)
}

type Hasher interface {
	SumHex(data []byte) string
}

type IDGenerator interface {
	NewID() (string, error)
}

type Clock interface {
	Now() time.Time
}

type Journal interface {
	Record(ctx context.Context, record domain.RunRecord) error
}

type Recorder interface {
	CollectionApplied(action domain.CollectionAction)
	IndexApplied(action domain.IndexAction)
	RunFinished(status domain.RunStatus, elapsed time.Duration)
}
