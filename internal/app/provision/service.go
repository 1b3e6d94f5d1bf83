package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

// createAttempts bounds how often CreateCollection re-reads the collection
// after losing a create race to a concurrent provisioner.
const createAttempts = 3

type Service struct {
	store         Store
	renderer      ValidatorRenderer
	canonicalizer Canonicalizer
	differ        Differ
	policy        domain.ConflictPolicy
	hasher        Hasher
	ids           IDGenerator
	clock         Clock
	journal       Journal
	recorder      Recorder
	logger        *slog.Logger
}

func NewService(store Store, renderer ValidatorRenderer, canonicalizer Canonicalizer, differ Differ, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{
		store:         store,
		renderer:      renderer,
		canonicalizer: canonicalizer,
		differ:        differ,
		policy:        domain.NormalizeConflictPolicy(opts.Policy),
		hasher:        opts.Hasher,
		ids:           opts.IDs,
		clock:         clock,
		journal:       opts.Journal,
		recorder:      opts.Recorder,
		logger:        logger,
	}
}

func (s *Service) SelectDatabase(ctx context.Context, name string) (Database, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	return s.store.SelectDatabase(ctx, name)
}

// CreateCollection ensures the collection exists with the declared validator.
// An identical live validator is a no-op; a different one is a conflict unless
// the service runs with the overwrite policy.
func (s *Service) CreateCollection(ctx context.Context, db Database, spec domain.CollectionSpec) (CollectionHandle, error) {
	if err := domain.ValidateCollectionName(spec.Collection); err != nil {
		return CollectionHandle{}, err
	}
	if err := spec.Validator.Validate(); err != nil {
		return CollectionHandle{}, fmt.Errorf("collection %s: %w", spec.Collection, err)
	}

	rendered, err := s.renderer.Render(ctx, spec.Validator)
	if err != nil {
		return CollectionHandle{}, err
	}
	declared, err := s.canonicalizer.Canonicalize(ctx, rendered)
	if err != nil {
		return CollectionHandle{}, err
	}

	handle := CollectionHandle{
		db:          db,
		spec:        spec,
		Namespace:   db.Name() + "." + spec.Collection,
		Fingerprint: s.fingerprint(declared),
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		state, exists, err := db.LookupCollection(ctx, spec.Collection)
		if err != nil {
			return handle, err
		}

		if !exists {
			err := db.CreateCollection(ctx, spec.Collection, rendered)
			if errors.Is(err, domain.ErrCollectionExists) {
				s.logger.DebugContext(ctx, "collection appeared during create", "namespace", handle.Namespace)
				continue
			}
			if err != nil {
				return handle, err
			}
			handle.Action = domain.CollectionCreated
			return handle, nil
		}

		live, err := s.canonicalLive(ctx, state.Validator)
		if err != nil {
			return handle, err
		}
		if bytes.Equal(live, declared) {
			handle.Action = domain.CollectionUnchanged
			return handle, nil
		}

		if s.policy == domain.ConflictOverwrite {
			if err := db.ReplaceValidator(ctx, spec.Collection, rendered); err != nil {
				return handle, err
			}
			s.logger.WarnContext(ctx, "validator replaced", "namespace", handle.Namespace)
			handle.Action = domain.CollectionUpdated
			return handle, nil
		}

		diff, err := s.differ.Diff(ctx, live, declared)
		if err != nil {
			return handle, err
		}
		return handle, &ConflictError{Namespace: handle.Namespace, Diff: diff}
	}

	return handle, fmt.Errorf("%s: %w", handle.Namespace, ErrCreateRaceLost)
}

// CreateIndex ensures a single-field index with the declared direction exists.
// Any live index with exactly that key pattern satisfies it, whatever its name.
func (s *Service) CreateIndex(ctx context.Context, coll CollectionHandle, index domain.IndexSpec) (IndexResult, error) {
	if coll.db == nil {
		return IndexResult{}, fmt.Errorf("%w: collection handle is not bound", domain.ErrIndexCreation)
	}
	if err := coll.spec.ValidateIndex(index); err != nil {
		return IndexResult{}, err
	}

	result := IndexResult{Name: index.Name(), Field: index.Field, Direction: index.Direction}

	live, err := coll.db.ListIndexes(ctx, coll.spec.Collection)
	if err != nil {
		return result, err
	}
	for _, existing := range live {
		if existing.Matches(index) {
			result.Name = existing.Name
			result.Action = domain.IndexExists
			return result, nil
		}
	}

	name, err := coll.db.CreateIndex(ctx, coll.spec.Collection, index)
	if err != nil {
		if errors.Is(err, domain.ErrIndexCreation) || errors.Is(err, domain.ErrConnection) {
			return result, err
		}
		return result, fmt.Errorf("%w: %s on %s: %w", domain.ErrIndexCreation, index.Name(), coll.Namespace, err)
	}
	if name != "" {
		result.Name = name
	}
	result.Action = domain.IndexCreated
	return result, nil
}

// Provision runs the full sequence for one collection: select the database,
// create the collection, then create every declared index in order.
func (s *Service) Provision(ctx context.Context, spec domain.CollectionSpec) (Result, error) {
	started := s.clock.Now()
	result := Result{
		Database:   spec.Database,
		Collection: spec.Collection,
	}

	runID, err := s.newRunID()
	if err != nil {
		return result, err
	}
	result.RunID = runID

	err = s.provision(ctx, spec, &result)
	result.Duration = s.clock.Now().Sub(started)
	s.finish(ctx, started, result, err)
	return result, err
}

// ProvisionAll provisions specs in order and stops at the first failure.
func (s *Service) ProvisionAll(ctx context.Context, specs []domain.CollectionSpec) ([]Result, error) {
	if len(specs) == 0 {
		return nil, ErrNoCollections
	}
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.Provision(ctx, spec)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Service) provision(ctx context.Context, spec domain.CollectionSpec, result *Result) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	db, err := s.SelectDatabase(ctx, spec.Database)
	if err != nil {
		return err
	}

	coll, err := s.CreateCollection(ctx, db, spec)
	result.Fingerprint = coll.Fingerprint
	if err != nil {
		return err
	}
	result.CollectionAction = coll.Action
	s.logger.InfoContext(ctx, "collection provisioned",
		"run_id", result.RunID,
		"namespace", coll.Namespace,
		"action", string(coll.Action),
	)
	if s.recorder != nil {
		s.recorder.CollectionApplied(coll.Action)
	}

	for _, index := range spec.Indexes {
		indexResult, err := s.CreateIndex(ctx, coll, index)
		if err != nil {
			return err
		}
		result.Indexes = append(result.Indexes, indexResult)
		s.logger.InfoContext(ctx, "index provisioned",
			"run_id", result.RunID,
			"namespace", coll.Namespace,
			"index", indexResult.Name,
			"action", string(indexResult.Action),
		)
		if s.recorder != nil {
			s.recorder.IndexApplied(indexResult.Action)
		}
	}
	return nil
}

func (s *Service) finish(ctx context.Context, started time.Time, result Result, runErr error) {
	status := domain.RunSucceeded
	message := ""
	if runErr != nil {
		status = domain.RunFailed
		message = runErr.Error()
		s.logger.ErrorContext(ctx, "provisioning failed",
			"run_id", result.RunID,
			"database", result.Database,
			"collection", result.Collection,
			"error", runErr,
		)
	}

	if s.recorder != nil {
		s.recorder.RunFinished(status, result.Duration)
	}
	if s.journal == nil {
		return
	}

	record := domain.RunRecord{
		RunID:            result.RunID,
		StartedAt:        started,
		Duration:         result.Duration,
		Database:         result.Database,
		Collection:       result.Collection,
		Fingerprint:      result.Fingerprint,
		CollectionAction: result.CollectionAction,
		IndexesCreated:   result.IndexesCreated(),
		IndexesExisting:  result.IndexesExisting(),
		Status:           status,
		Error:            message,
	}
	// The store is already provisioned at this point; a journal failure is only logged.
	if err := s.journal.Record(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "journal write failed", "run_id", result.RunID, "error", err)
	}
}

func (s *Service) canonicalLive(ctx context.Context, validator []byte) ([]byte, error) {
	validator = bytes.TrimSpace(validator)
	if len(validator) == 0 {
		return []byte("{}"), nil
	}
	return s.canonicalizer.Canonicalize(ctx, validator)
}

func (s *Service) fingerprint(declared []byte) string {
	if s.hasher == nil {
		return ""
	}
	return s.hasher.SumHex(declared)
}

func (s *Service) newRunID() (string, error) {
	if s.ids == nil {
		return "", nil
	}
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
