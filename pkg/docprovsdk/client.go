package docprovsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	catalogapp "github.com/osvaldoandrade/docprov/internal/app/catalog"
	historyapp "github.com/osvaldoandrade/docprov/internal/app/history"
	inspectapp "github.com/osvaldoandrade/docprov/internal/app/inspect"
	"github.com/osvaldoandrade/docprov/internal/app/provision"
	verifyapp "github.com/osvaldoandrade/docprov/internal/app/verify"
	"github.com/osvaldoandrade/docprov/internal/catalog"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/osvaldoandrade/docprov/internal/infra/canonicaljson"
	"github.com/osvaldoandrade/docprov/internal/infra/catalogyaml"
	"github.com/osvaldoandrade/docprov/internal/infra/filesystem"
	"github.com/osvaldoandrade/docprov/internal/infra/hash"
	"github.com/osvaldoandrade/docprov/internal/infra/ident"
	"github.com/osvaldoandrade/docprov/internal/infra/memstore"
	"github.com/osvaldoandrade/docprov/internal/infra/mongostore"
	"github.com/osvaldoandrade/docprov/internal/infra/schema"
	"github.com/osvaldoandrade/docprov/internal/infra/schemadiff"
	"github.com/osvaldoandrade/docprov/internal/infra/sqlitejournal"
	"github.com/osvaldoandrade/docprov/internal/platform"
)

const inlineRef = "-"

type store interface {
	provision.Store
	verifyapp.Planner
	Close(ctx context.Context) error
}

// Client provisions catalogs against one store connection.
type Client struct {
	cfg Config

	mu      sync.Mutex
	store   store
	journal *sqlitejournal.Store

	provision *provision.Service
	inspect   *inspectapp.Service
	verify    *verifyapp.Service
	history   *historyapp.Service
}

type ApplyResult struct {
	RunID           string
	Database        string
	Collection      string
	Action          string
	Fingerprint     string
	IndexesCreated  int
	IndexesExisting int
	Duration        time.Duration
}

type CollectionPlan struct {
	Database       string
	Collection     string
	Status         string
	Diff           []byte
	MissingIndexes []string
}

type VerifyIssue struct {
	Namespace string
	Field     string
	Code      string
	Message   string
}

type VerifyResult struct {
	Indexes  int
	Verified int
	Issues   []VerifyIssue
}

type Run struct {
	RunID      string
	StartedAt  time.Time
	Database   string
	Collection string
	Action     string
	Status     string
	Error      string
}

// Open connects to the configured store and, when set, opens the run journal.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	normalized := normalizeConfig(cfg)
	policy, err := domain.ParseConflictPolicy(string(normalized.OnConflict))
	if err != nil {
		return nil, err
	}

	backend, err := openStore(ctx, normalized)
	if err != nil {
		return nil, err
	}

	client := &Client{cfg: normalized, store: backend}
	opts := provision.Options{
		Policy: policy,
		Hasher: hash.SHA256{},
		IDs:    ident.NewRunIDGenerator(),
		Clock:  platform.RealClock{},
		Logger: slog.Default(),
	}
	var reader historyapp.Reader
	if normalized.JournalPath != "" {
		journal, err := sqlitejournal.Open(normalized.JournalPath, sqlitejournal.OpenOptions{Fast: normalized.JournalFast})
		if err != nil {
			_ = backend.Close(ctx)
			return nil, err
		}
		client.journal = journal
		opts.Journal = journal
		reader = journal
	}

	client.provision = provision.NewService(backend, schema.Renderer{}, canonicaljson.Canonicalizer{}, schemadiff.Differ{}, opts)
	client.inspect = inspectapp.NewService(backend, schema.Renderer{}, canonicaljson.Canonicalizer{}, schemadiff.Differ{})
	client.verify = verifyapp.NewService(backend)
	client.history = historyapp.NewService(reader)
	return client, nil
}

func openStore(ctx context.Context, cfg Config) (store, error) {
	switch cfg.Store {
	case StoreMongo:
		backend, err := mongostore.Connect(ctx, mongostore.Options{
			URI:            cfg.URI,
			ConnectTimeout: cfg.ConnectTimeout,
			AppName:        cfg.AppName,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	case StoreMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Store)
	}
}

// Close disconnects from the store and closes the journal.
func (c *Client) Close() error {
	c.mu.Lock()
	backend, journal := c.store, c.journal
	c.store, c.journal = nil, nil
	c.mu.Unlock()

	var firstErr error
	if backend != nil {
		firstErr = backend.Close(context.Background())
	}
	if journal != nil {
		if err := journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Catalogs lists the built-in catalog names.
func (c *Client) Catalogs() []string {
	return catalog.Builtins{}.Names()
}

// Apply provisions built-in catalogs or catalog files, in order.
func (c *Client) Apply(ctx context.Context, refs ...string) ([]ApplyResult, error) {
	specs, err := c.load(ctx, filesystem.CatalogSource{}, refs)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, specs)
}

// ApplyCatalog provisions a catalog document held in memory.
func (c *Client) ApplyCatalog(ctx context.Context, data []byte) ([]ApplyResult, error) {
	specs, err := c.load(ctx, inlineSource(data), []string{inlineRef})
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, specs)
}

// Plan compares catalogs with the live store without writing.
func (c *Client) Plan(ctx context.Context, refs ...string) ([]CollectionPlan, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	specs, err := c.load(ctx, filesystem.CatalogSource{}, refs)
	if err != nil {
		return nil, err
	}
	plan, err := c.inspect.Plan(ctx, specs)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionPlan, 0, len(plan.Collections))
	for _, coll := range plan.Collections {
		entry := CollectionPlan{
			Database:   coll.Database,
			Collection: coll.Collection,
			Status:     string(coll.Status),
			Diff:       coll.Diff,
		}
		for _, index := range coll.Indexes {
			if index.Status == inspectapp.IndexMissing {
				entry.MissingIndexes = append(entry.MissingIndexes, index.Name)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Verify checks that each declared index serves a range query on its field.
func (c *Client) Verify(ctx context.Context, refs ...string) (VerifyResult, error) {
	if err := c.ensureOpen(); err != nil {
		return VerifyResult{}, err
	}
	specs, err := c.load(ctx, filesystem.CatalogSource{}, refs)
	if err != nil {
		return VerifyResult{}, err
	}
	result, err := c.verify.Verify(ctx, specs)
	if err != nil {
		return VerifyResult{}, err
	}
	out := VerifyResult{Indexes: result.Indexes, Verified: result.Verified}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, VerifyIssue{
			Namespace: issue.Namespace,
			Field:     issue.Field,
			Code:      issue.Code,
			Message:   issue.Message,
		})
	}
	return out, nil
}

// History returns journaled runs, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]Run, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	records, err := c.history.List(ctx, limit)
	if err != nil {
		if errors.Is(err, historyapp.ErrJournalDisabled) {
			return nil, ErrNoJournal
		}
		return nil, err
	}
	runs := make([]Run, 0, len(records))
	for _, record := range records {
		runs = append(runs, Run{
			RunID:      record.RunID,
			StartedAt:  record.StartedAt,
			Database:   record.Database,
			Collection: record.Collection,
			Action:     string(record.CollectionAction),
			Status:     string(record.Status),
			Error:      record.Error,
		})
	}
	return runs, nil
}

func (c *Client) apply(ctx context.Context, specs []domain.CollectionSpec) ([]ApplyResult, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	results, err := c.provision.ProvisionAll(ctx, specs)
	out := make([]ApplyResult, 0, len(results))
	for _, result := range results {
		out = append(out, ApplyResult{
			RunID:           result.RunID,
			Database:        result.Database,
			Collection:      result.Collection,
			Action:          string(result.CollectionAction),
			Fingerprint:     result.Fingerprint,
			IndexesCreated:  result.IndexesCreated(),
			IndexesExisting: result.IndexesExisting(),
			Duration:        result.Duration,
		})
	}
	return out, err
}

func (c *Client) load(ctx context.Context, source catalogapp.Source, refs []string) ([]domain.CollectionSpec, error) {
	service := catalogapp.NewService(source, catalog.Builtins{}, catalogyaml.Decoder{})
	return service.Load(ctx, refs, c.cfg.Database, "")
}

func (c *Client) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return ErrClosed
	}
	return nil
}

type inlineSource []byte

func (s inlineSource) ReadCatalog(ctx context.Context, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(s), nil
}
