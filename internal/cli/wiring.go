package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	catalogapp "github.com/osvaldoandrade/docprov/internal/app/catalog"
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
	"github.com/osvaldoandrade/docprov/internal/infra/metrics"
	"github.com/osvaldoandrade/docprov/internal/infra/mongostore"
	"github.com/osvaldoandrade/docprov/internal/infra/schema"
	"github.com/osvaldoandrade/docprov/internal/infra/schemadiff"
	"github.com/osvaldoandrade/docprov/internal/infra/sqlitejournal"
	"github.com/osvaldoandrade/docprov/internal/platform"
	"github.com/spf13/cobra"
)

const (
	storeMongo  = "mongo"
	storeMemory = "memory"
	appName     = "docprov"
)

var ErrUnknownStore = errors.New("unknown store backend")

// backend is what every store-bound command needs from a store.
type backend interface {
	provision.Store
	verifyapp.Planner
	Close(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg platform.Config) (backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", storeMongo:
		store, err := mongostore.Connect(ctx, mongostore.Options{
			URI:            cfg.MongoDB.URI,
			ConnectTimeout: cfg.MongoDB.ConnectTimeout,
			AppName:        appName,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case storeMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Store)
	}
}

func closeBackend(store backend) {
	if err := store.Close(context.Background()); err != nil {
		slog.Default().Warn("store close failed", "error", err)
	}
}

func loadSpecs(ctx context.Context, cmd *cobra.Command, cfg platform.Config, refs []string, targetDatabase string) ([]domain.CollectionSpec, error) {
	service := catalogapp.NewService(
		filesystem.CatalogSource{Stdin: cmd.InOrStdin()},
		catalog.Builtins{},
		catalogyaml.Decoder{},
	)
	return service.Load(ctx, refs, cfg.MongoDB.Database, strings.TrimSpace(targetDatabase))
}

// openJournal returns a nil store when no journal path is configured.
func openJournal(cfg platform.Config) (*sqlitejournal.Store, error) {
	path := strings.TrimSpace(cfg.Journal.Path)
	if path == "" {
		return nil, nil
	}
	return sqlitejournal.Open(path, sqlitejournal.OpenOptions{Fast: cfg.Journal.Fast})
}

// runSinks holds the optional journal and metrics outputs of an apply.
type runSinks struct {
	journal  *sqlitejournal.Store
	recorder *metrics.Recorder
	metrics  string
}

func openRunSinks(cfg platform.Config) (*runSinks, error) {
	sinks := &runSinks{metrics: strings.TrimSpace(cfg.Metrics.File)}
	journal, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	sinks.journal = journal
	if sinks.metrics != "" {
		sinks.recorder = metrics.NewRecorder()
	}
	return sinks, nil
}

func (s *runSinks) apply(opts *provision.Options) {
	if s.journal != nil {
		opts.Journal = s.journal
	}
	if s.recorder != nil {
		opts.Recorder = s.recorder
	}
}

// close flushes metrics and releases the journal; failures are logged only.
func (s *runSinks) close() {
	if s.recorder != nil {
		if err := s.recorder.WriteTextfile(s.metrics); err != nil {
			slog.Default().Warn("metrics write failed", "path", s.metrics, "error", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Default().Warn("journal close failed", "error", err)
		}
	}
}

func newProvisionService(store provision.Store, policy domain.ConflictPolicy, sinks *runSinks) *provision.Service {
	opts := provision.Options{
		Policy: policy,
		Hasher: hash.SHA256{},
		IDs:    ident.NewRunIDGenerator(),
		Clock:  platform.RealClock{},
		Logger: slog.Default(),
	}
	sinks.apply(&opts)
	return provision.NewService(store, schema.Renderer{}, canonicaljson.Canonicalizer{}, schemadiff.Differ{}, opts)
}
