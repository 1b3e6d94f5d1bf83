package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/osvaldoandrade/docprov/internal/app/provision"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/osvaldoandrade/docprov/internal/infra/schema"
)

var ErrCollectionNotFound = errors.New("collection not found")

// Store is an in-memory document store that enforces attached validators on
// insert the way MongoDB does. It backs --store memory and the tests.
type Store struct {
	mu          sync.Mutex
	databases   map[string]*database
	unavailable bool
}

type database struct {
	collections map[string]*collection
}

type collection struct {
	validator []byte
	rule      *domain.SchemaRule
	indexes   []domain.IndexState
	docs      [][]byte
}

func New() *Store {
	return &Store{databases: make(map[string]*database)}
}

// SetUnavailable makes every subsequent call fail as if the server were unreachable.
func (s *Store) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

func (s *Store) SelectDatabase(ctx context.Context, name string) (provision.Database, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return &Database{store: s, name: name}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// CollectionNames lists the collections of a database in name order.
func (s *Store) CollectionNames(dbName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.databases[dbName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WinningIndex mimics the planner for a range predicate on field: the first
// index led by field wins, and no candidate means a collection scan ("").
func (s *Store) WinningIndex(ctx context.Context, dbName, collName, field string, _ domain.BSONType) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.lookup(dbName, collName)
	if err != nil {
		return "", err
	}
	for _, index := range coll.indexes {
		if len(index.Keys) > 0 && index.Keys[0].Field == field {
			return index.Name, nil
		}
	}
	return "", nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return fmt.Errorf("%w: memory store is offline", domain.ErrConnection)
	}
	return nil
}

func (s *Store) lookup(dbName, collName string) (*collection, error) {
	db, ok := s.databases[dbName]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrCollectionNotFound, dbName, collName)
	}
	coll, ok := db.collections[collName]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrCollectionNotFound, dbName, collName)
	}
	return coll, nil
}

type Database struct {
	store *Store
	name  string
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) LookupCollection(ctx context.Context, name string) (domain.CollectionState, bool, error) {
	if err := d.store.check(ctx); err != nil {
		return domain.CollectionState{}, false, err
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	coll, err := d.store.lookup(d.name, name)
	if err != nil {
		return domain.CollectionState{}, false, nil
	}
	return domain.CollectionState{Name: name, Validator: append([]byte(nil), coll.validator...)}, true, nil
}

func (d *Database) CreateCollection(ctx context.Context, name string, validator []byte) error {
	if err := d.store.check(ctx); err != nil {
		return err
	}
	rule, err := parseValidator(validator)
	if err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	db, ok := d.store.databases[d.name]
	if !ok {
		db = &database{collections: make(map[string]*collection)}
		d.store.databases[d.name] = db
	}
	if _, exists := db.collections[name]; exists {
		return fmt.Errorf("%w: %s.%s", domain.ErrCollectionExists, d.name, name)
	}
	db.collections[name] = &collection{
		validator: append([]byte(nil), validator...),
		rule:      rule,
		indexes: []domain.IndexState{{
			Name: domain.PrimaryKeyIndexName,
			Keys: []domain.IndexKey{{Field: "_id", Direction: domain.Ascending}},
		}},
	}
	return nil
}

func (d *Database) ReplaceValidator(ctx context.Context, name string, validator []byte) error {
	if err := d.store.check(ctx); err != nil {
		return err
	}
	rule, err := parseValidator(validator)
	if err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	coll, err := d.store.lookup(d.name, name)
	if err != nil {
		return err
	}
	coll.validator = append([]byte(nil), validator...)
	coll.rule = rule
	return nil
}

func (d *Database) ListIndexes(ctx context.Context, collName string) ([]domain.IndexState, error) {
	if err := d.store.check(ctx); err != nil {
		return nil, err
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	coll, err := d.store.lookup(d.name, collName)
	if err != nil {
		return nil, err
	}
	out := make([]domain.IndexState, 0, len(coll.indexes))
	for _, index := range coll.indexes {
		out = append(out, domain.IndexState{Name: index.Name, Keys: append([]domain.IndexKey(nil), index.Keys...)})
	}
	return out, nil
}

// CreateIndex follows createIndexes semantics: an identical index is a no-op,
// and the same name over a different key pattern is an error.
func (d *Database) CreateIndex(ctx context.Context, collName string, index domain.IndexSpec) (string, error) {
	if err := d.store.check(ctx); err != nil {
		return "", err
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	coll, err := d.store.lookup(d.name, collName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrIndexCreation, err)
	}
	name := index.Name()
	for _, existing := range coll.indexes {
		if existing.Matches(index) {
			return existing.Name, nil
		}
		if existing.Name == name {
			return "", fmt.Errorf("%w: index %s already exists with a different key", domain.ErrIndexCreation, name)
		}
	}
	coll.indexes = append(coll.indexes, domain.IndexState{
		Name: name,
		Keys: []domain.IndexKey{{Field: index.Field, Direction: index.Direction}},
	})
	return name, nil
}

func parseValidator(validator []byte) (*domain.SchemaRule, error) {
	if len(validator) == 0 {
		return nil, nil
	}
	rule, err := schema.Parse(validator)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
