package catalog

import (
	"context"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

type Source interface {
	ReadCatalog(ctx context.Context, path string) ([]byte, error)
}

type Builtins interface {
	Lookup(name string) ([]byte, bool)
	Names() []string
}

type Decoder interface {
	Decode(ctx context.Context, data []byte) ([]domain.CollectionSpec, error)
}
