package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

type Service struct {
	source   Source
	builtins Builtins
	decoder  Decoder
}

func NewService(source Source, builtins Builtins, decoder Decoder) *Service {
	return &Service{
		source:   source,
		builtins: builtins,
		decoder:  decoder,
	}
}

// Load resolves each reference as a built-in catalog name first and a file
// path otherwise. Specs without a database get defaultDatabase; databaseOverride,
// when set, replaces every database.
func (s *Service) Load(ctx context.Context, refs []string, defaultDatabase, databaseOverride string) ([]domain.CollectionSpec, error) {
	if len(refs) == 0 {
		return nil, ErrCatalogRequired
	}

	var specs []domain.CollectionSpec
	seen := make(map[string]string)
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return nil, ErrCatalogRequired
		}

		loaded, err := s.loadOne(ctx, ref)
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("%s: %w", ref, ErrEmptyCatalog)
		}

		for _, spec := range loaded {
			spec.Database = strings.TrimSpace(spec.Database)
			spec.Collection = strings.TrimSpace(spec.Collection)
			if databaseOverride != "" {
				spec.Database = databaseOverride
			} else if spec.Database == "" {
				spec.Database = defaultDatabase
			}
			if err := spec.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", ref, err)
			}
			if previous, dup := seen[spec.Namespace()]; dup {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateNamespace, spec.Namespace(), previous, ref)
			}
			seen[spec.Namespace()] = ref
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

func (s *Service) Names() []string {
	if s.builtins == nil {
		return nil
	}
	return s.builtins.Names()
}

func (s *Service) loadOne(ctx context.Context, ref string) ([]domain.CollectionSpec, error) {
	if s.builtins != nil {
		if data, ok := s.builtins.Lookup(ref); ok {
			return s.decoder.Decode(ctx, data)
		}
	}
	data, err := s.source.ReadCatalog(ctx, ref)
	if err != nil {
		return nil, err
	}
	specs, err := s.decoder.Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return specs, nil
}
