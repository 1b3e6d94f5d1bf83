package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

type fakeStore struct {
	db  *fakeDatabase
	err error
}

func (f *fakeStore) SelectDatabase(ctx context.Context, name string) (Database, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.db.name = name
	return f.db, nil
}

type fakeDatabase struct {
	name        string
	state       *domain.CollectionState
	createErrs  []error
	created     [][]byte
	replaced    [][]byte
	indexes     []domain.IndexState
	createIndex error
	indexCalls  []domain.IndexSpec
}

func (f *fakeDatabase) Name() string {
	return f.name
}

func (f *fakeDatabase) LookupCollection(ctx context.Context, name string) (domain.CollectionState, bool, error) {
	if f.state == nil {
		return domain.CollectionState{}, false, nil
	}
	return *f.state, true, nil
}

func (f *fakeDatabase) CreateCollection(ctx context.Context, name string, validator []byte) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.created = append(f.created, validator)
	f.state = &domain.CollectionState{Name: name, Validator: validator}
	return nil
}

func (f *fakeDatabase) ReplaceValidator(ctx context.Context, name string, validator []byte) error {
	f.replaced = append(f.replaced, validator)
	f.state.Validator = validator
	return nil
}

func (f *fakeDatabase) ListIndexes(ctx context.Context, collection string) ([]domain.IndexState, error) {
	return f.indexes, nil
}

func (f *fakeDatabase) CreateIndex(ctx context.Context, collection string, index domain.IndexSpec) (string, error) {
	f.indexCalls = append(f.indexCalls, index)
	if f.createIndex != nil {
		return "", f.createIndex
	}
	f.indexes = append(f.indexes, domain.IndexState{
		Name: index.Name(),
		Keys: []domain.IndexKey{{Field: index.Field, Direction: index.Direction}},
	})
	return index.Name(), nil
}

type fakeRenderer struct {
	out []byte
}

func (f fakeRenderer) Render(ctx context.Context, rule domain.SchemaRule) ([]byte, error) {
	return f.out, nil
}

type identityCanonicalizer struct{}

func (identityCanonicalizer) Canonicalize(ctx context.Context, input []byte) ([]byte, error) {
	return input, nil
}

type fakeDiffer struct{}

func (fakeDiffer) Diff(ctx context.Context, live, declared []byte) ([]byte, error) {
	return []byte(`{"changed":true}`), nil
}

type fakeJournal struct {
	records []domain.RunRecord
}

func (f *fakeJournal) Record(ctx context.Context, record domain.RunRecord) error {
	f.records = append(f.records, record)
	return nil
}

type fakeRecorder struct {
	collections []domain.CollectionAction
	indexes     []domain.IndexAction
	runs        []domain.RunStatus
}

func (f *fakeRecorder) CollectionApplied(action domain.CollectionAction) {
	f.collections = append(f.collections, action)
}

func (f *fakeRecorder) IndexApplied(action domain.IndexAction) {
	f.indexes = append(f.indexes, action)
}

func (f *fakeRecorder) RunFinished(status domain.RunStatus, elapsed time.Duration) {
	f.runs = append(f.runs, status)
}

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) {
	return "01RUN", nil
}

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

const declaredValidator = `{"$jsonSchema":{"bsonType":"object"}}`

func goodsSpec() domain.CollectionSpec {
	return domain.CollectionSpec{
		Database:   "shop",
		Collection: "goods",
		Validator: domain.SchemaRule{
			BSONType: domain.BSONObject,
			Required: []string{"name"},
			Properties: []domain.Property{
				{Name: "name", BSONType: domain.BSONString},
				{Name: "status", BSONType: domain.BSONInt},
			},
		},
		Indexes: []domain.IndexSpec{
			{Field: "name", Direction: domain.Ascending},
			{Field: "status", Direction: domain.Ascending},
		},
	}
}

func newTestService(db *fakeDatabase, opts Options) *Service {
	return NewService(&fakeStore{db: db}, fakeRenderer{out: []byte(declaredValidator)}, identityCanonicalizer{}, fakeDiffer{}, opts)
}

func TestProvisionCreatesCollectionThenIndexes(t *testing.T) {
	db := &fakeDatabase{}
	journal := &fakeJournal{}
	recorder := &fakeRecorder{}
	service := newTestService(db, Options{IDs: fixedIDs{}, Journal: journal, Recorder: recorder, Clock: &tickingClock{}})

	result, err := service.Provision(context.Background(), goodsSpec())
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if result.RunID != "01RUN" {
		t.Fatalf("expected run id, got %q", result.RunID)
	}
	if result.CollectionAction != domain.CollectionCreated {
		t.Fatalf("expected created, got %s", result.CollectionAction)
	}
	if len(db.created) != 1 || string(db.created[0]) != declaredValidator {
		t.Fatalf("expected one create with the rendered validator, got %q", db.created)
	}
	if len(db.indexCalls) != 2 || db.indexCalls[0].Field != "name" || db.indexCalls[1].Field != "status" {
		t.Fatalf("expected indexes in declared order, got %+v", db.indexCalls)
	}
	if result.IndexesCreated() != 2 || result.Duration != time.Second {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(journal.records) != 1 || journal.records[0].Status != domain.RunSucceeded || journal.records[0].IndexesCreated != 2 {
		t.Fatalf("unexpected journal %+v", journal.records)
	}
	if len(recorder.collections) != 1 || len(recorder.indexes) != 2 || recorder.runs[0] != domain.RunSucceeded {
		t.Fatalf("unexpected metrics %+v", recorder)
	}
}

func TestCreateCollectionUnchangedWhenValidatorMatches(t *testing.T) {
	db := &fakeDatabase{name: "shop", state: &domain.CollectionState{Name: "goods", Validator: []byte(declaredValidator)}}
	service := newTestService(db, Options{})

	handle, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	if handle.Action != domain.CollectionUnchanged || len(db.created) != 0 {
		t.Fatalf("expected no-op, got %s with %d creates", handle.Action, len(db.created))
	}
}

func TestCreateCollectionConflictRejected(t *testing.T) {
	db := &fakeDatabase{name: "shop", state: &domain.CollectionState{Name: "goods", Validator: []byte(`{"other":1}`)}}
	service := newTestService(db, Options{})

	_, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if !errors.Is(err, domain.ErrSchemaConflict) {
		t.Fatalf("expected ErrSchemaConflict, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Namespace != "shop.goods" || string(conflict.Diff) != `{"changed":true}` {
		t.Fatalf("expected conflict details, got %v", err)
	}
	if len(db.replaced) != 0 {
		t.Fatalf("expected validator untouched")
	}
}

func TestCreateCollectionWithoutLiveValidatorConflicts(t *testing.T) {
	db := &fakeDatabase{name: "shop", state: &domain.CollectionState{Name: "goods"}}
	service := newTestService(db, Options{})

	_, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if !errors.Is(err, domain.ErrSchemaConflict) {
		t.Fatalf("expected ErrSchemaConflict, got %v", err)
	}
}

func TestCreateCollectionOverwritePolicy(t *testing.T) {
	db := &fakeDatabase{name: "shop", state: &domain.CollectionState{Name: "goods", Validator: []byte(`{"other":1}`)}}
	service := newTestService(db, Options{Policy: domain.ConflictOverwrite})

	handle, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	if handle.Action != domain.CollectionUpdated || len(db.replaced) != 1 {
		t.Fatalf("expected validator replaced, got %s", handle.Action)
	}
}

func TestCreateCollectionRecoversFromCreateRace(t *testing.T) {
	db := &fakeDatabase{name: "shop", createErrs: []error{domain.ErrCollectionExists}}
	service := newTestService(db, Options{})

	// The first create loses the race; the rival created an identical validator.
	racing := &racingDatabase{fakeDatabase: db}
	handle, err := service.CreateCollection(context.Background(), racing, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	if handle.Action != domain.CollectionUnchanged {
		t.Fatalf("expected unchanged after race, got %s", handle.Action)
	}
}

// racingDatabase installs the declared collection when a create fails with ErrCollectionExists.
type racingDatabase struct {
	*fakeDatabase
}

func (r *racingDatabase) CreateCollection(ctx context.Context, name string, validator []byte) error {
	err := r.fakeDatabase.CreateCollection(ctx, name, validator)
	if errors.Is(err, domain.ErrCollectionExists) {
		r.state = &domain.CollectionState{Name: name, Validator: validator}
	}
	return err
}

func TestCreateIndexSkipsExistingKeyPattern(t *testing.T) {
	db := &fakeDatabase{name: "shop", indexes: []domain.IndexState{{
		Name: "custom_name_idx",
		Keys: []domain.IndexKey{{Field: "name", Direction: domain.Ascending}},
	}}}
	service := newTestService(db, Options{})

	handle, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	result, err := service.CreateIndex(context.Background(), handle, domain.IndexSpec{Field: "name", Direction: domain.Ascending})
	if err != nil {
		t.Fatalf("CreateIndex returned error: %v", err)
	}
	if result.Action != domain.IndexExists || result.Name != "custom_name_idx" || len(db.indexCalls) != 0 {
		t.Fatalf("expected existing index reused, got %+v", result)
	}
}

func TestCreateIndexRejectsUndeclaredField(t *testing.T) {
	db := &fakeDatabase{name: "shop"}
	service := newTestService(db, Options{})

	handle, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	_, err = service.CreateIndex(context.Background(), handle, domain.IndexSpec{Field: "sku", Direction: domain.Ascending})
	if !errors.Is(err, domain.ErrIndexCreation) {
		t.Fatalf("expected ErrIndexCreation, got %v", err)
	}
	if len(db.indexCalls) != 0 {
		t.Fatalf("expected no store call")
	}
}

func TestCreateIndexWrapsStoreFailure(t *testing.T) {
	db := &fakeDatabase{name: "shop", createIndex: errors.New("too many indexes")}
	service := newTestService(db, Options{})

	handle, err := service.CreateCollection(context.Background(), db, goodsSpec())
	if err != nil {
		t.Fatalf("CreateCollection returned error: %v", err)
	}
	_, err = service.CreateIndex(context.Background(), handle, domain.IndexSpec{Field: "name", Direction: domain.Ascending})
	if !errors.Is(err, domain.ErrIndexCreation) {
		t.Fatalf("expected ErrIndexCreation, got %v", err)
	}
}

func TestCreateIndexRequiresBoundHandle(t *testing.T) {
	service := newTestService(&fakeDatabase{}, Options{})
	_, err := service.CreateIndex(context.Background(), CollectionHandle{}, domain.IndexSpec{Field: "name", Direction: domain.Ascending})
	if !errors.Is(err, domain.ErrIndexCreation) {
		t.Fatalf("expected ErrIndexCreation, got %v", err)
	}
}

func TestProvisionConnectionFailureIsJournaled(t *testing.T) {
	journal := &fakeJournal{}
	store := &fakeStore{db: &fakeDatabase{}, err: domain.ErrConnection}
	service := NewService(store, fakeRenderer{out: []byte(declaredValidator)}, identityCanonicalizer{}, fakeDiffer{}, Options{Journal: journal})

	_, err := service.Provision(context.Background(), goodsSpec())
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if len(journal.records) != 1 || journal.records[0].Status != domain.RunFailed || journal.records[0].Error == "" {
		t.Fatalf("expected failed run journaled, got %+v", journal.records)
	}
}

func TestSelectDatabaseValidatesName(t *testing.T) {
	service := newTestService(&fakeDatabase{}, Options{})
	if _, err := service.SelectDatabase(context.Background(), " "); !errors.Is(err, domain.ErrDatabaseRequired) {
		t.Fatalf("expected ErrDatabaseRequired, got %v", err)
	}
	if _, err := service.SelectDatabase(context.Background(), "a.b"); !errors.Is(err, domain.ErrInvalidDatabaseName) {
		t.Fatalf("expected ErrInvalidDatabaseName, got %v", err)
	}
}

func TestProvisionAllStopsAtFirstFailure(t *testing.T) {
	db := &fakeDatabase{}
	service := newTestService(db, Options{})

	bad := goodsSpec()
	bad.Collection = "system.bad"
	results, err := service.ProvisionAll(context.Background(), []domain.CollectionSpec{goodsSpec(), bad, goodsSpec()})
	if !errors.Is(err, domain.ErrInvalidCollectionName) {
		t.Fatalf("expected ErrInvalidCollectionName, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected to stop after the second spec, got %d results", len(results))
	}
}

func TestProvisionAllRequiresSpecs(t *testing.T) {
	service := newTestService(&fakeDatabase{}, Options{})
	if _, err := service.ProvisionAll(context.Background(), nil); !errors.Is(err, ErrNoCollections) {
		t.Fatalf("expected ErrNoCollections, got %v", err)
	}
}
