package inspect

import (
	"context"

	"github.com/osvaldoandrade/docprov/internal/app/provision"
	"github.com/osvaldoandrade/docprov/internal/domain"
)

// Store is the same store port the provisioner uses; the inspector only reads through it.
type Store = provision.Store

type ValidatorRenderer interface {
	Render(ctx context.Context, rule domain.SchemaRule) ([]byte, error)
}

type Canonicalizer interface {
	Canonicalize(ctx context.Context, input []byte) ([]byte, error)
}

type Differ interface {
	Diff(ctx context.Context, live, declared []byte) ([]byte, error)
}
