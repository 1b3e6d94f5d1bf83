package inspect

import (
	"bytes"
	"context"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

// Service compares live store state with a catalog without writing anything.
type Service struct {
	store         Store
	renderer      ValidatorRenderer
	canonicalizer Canonicalizer
	differ        Differ
}

func NewService(store Store, renderer ValidatorRenderer, canonicalizer Canonicalizer, differ Differ) *Service {
	return &Service{
		store:         store,
		renderer:      renderer,
		canonicalizer: canonicalizer,
		differ:        differ,
	}
}

func (s *Service) Plan(ctx context.Context, specs []domain.CollectionSpec) (Plan, error) {
	if len(specs) == 0 {
		return Plan{}, ErrNoCollections
	}

	plan := Plan{Collections: make([]CollectionPlan, 0, len(specs))}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		coll, err := s.planCollection(ctx, spec)
		if err != nil {
			return Plan{}, err
		}
		plan.Collections = append(plan.Collections, coll)
	}
	return plan, nil
}

func (s *Service) planCollection(ctx context.Context, spec domain.CollectionSpec) (CollectionPlan, error) {
	if err := spec.Validate(); err != nil {
		return CollectionPlan{}, err
	}

	plan := CollectionPlan{Database: spec.Database, Collection: spec.Collection}

	db, err := s.store.SelectDatabase(ctx, spec.Database)
	if err != nil {
		return plan, err
	}
	state, exists, err := db.LookupCollection(ctx, spec.Collection)
	if err != nil {
		return plan, err
	}
	if !exists {
		plan.Status = CollectionMissing
		for _, index := range spec.Indexes {
			plan.Indexes = append(plan.Indexes, IndexPlan{
				Name:      index.Name(),
				Field:     index.Field,
				Direction: index.Direction,
				Status:    IndexMissing,
			})
		}
		return plan, nil
	}

	if err := s.compareValidator(ctx, spec, state, &plan); err != nil {
		return plan, err
	}

	live, err := db.ListIndexes(ctx, spec.Collection)
	if err != nil {
		return plan, err
	}
	claimed := make(map[string]bool, len(live))
	for _, index := range spec.Indexes {
		entry := IndexPlan{
			Name:      index.Name(),
			Field:     index.Field,
			Direction: index.Direction,
			Status:    IndexMissing,
		}
		for _, existing := range live {
			if existing.Matches(index) {
				entry.Status = IndexPresent
				entry.LiveName = existing.Name
				claimed[existing.Name] = true
				break
			}
		}
		plan.Indexes = append(plan.Indexes, entry)
	}
	for _, existing := range live {
		if existing.Name == domain.PrimaryKeyIndexName || claimed[existing.Name] {
			continue
		}
		plan.Extra = append(plan.Extra, existing.Name)
	}
	return plan, nil
}

func (s *Service) compareValidator(ctx context.Context, spec domain.CollectionSpec, state domain.CollectionState, plan *CollectionPlan) error {
	rendered, err := s.renderer.Render(ctx, spec.Validator)
	if err != nil {
		return err
	}
	declared, err := s.canonicalizer.Canonicalize(ctx, rendered)
	if err != nil {
		return err
	}

	live := []byte("{}")
	if trimmed := bytes.TrimSpace(state.Validator); len(trimmed) > 0 {
		live, err = s.canonicalizer.Canonicalize(ctx, trimmed)
		if err != nil {
			return err
		}
	}

	if bytes.Equal(live, declared) {
		plan.Status = CollectionMatch
		return nil
	}
	diff, err := s.differ.Diff(ctx, live, declared)
	if err != nil {
		return err
	}
	plan.Status = CollectionConflict
	plan.Diff = diff
	return nil
}
