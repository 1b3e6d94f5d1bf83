package sqlitejournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
	_ "modernc.org/sqlite"
)

// Store keeps one row per provisioning run in a local SQLite file.
type Store struct {
	db *sql.DB
}

type OpenOptions struct {
	// Fast trades durability for speed (WAL, synchronous=NORMAL).
	Fast bool
}

func Open(path string, opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if shouldCreateDir(path) {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.applyPragmas(context.Background(), opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, record domain.RunRecord) error {
	if strings.TrimSpace(record.RunID) == "" {
		return errors.New("run id required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provision_runs (
			run_id, started_at, duration_ms, database_name, collection_name, fingerprint,
			collection_action, indexes_created, indexes_existing, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.RunID,
		record.StartedAt.UTC().UnixNano(),
		record.Duration.Milliseconds(),
		record.Database,
		record.Collection,
		record.Fingerprint,
		string(record.CollectionAction),
		record.IndexesCreated,
		record.IndexesExisting,
		string(record.Status),
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.RunID, err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, duration_ms, database_name, collection_name, fingerprint,
			collection_action, indexes_created, indexes_existing, status, error
		FROM provision_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var record domain.RunRecord
		var startedAt int64
		var durationMS int64
		var action string
		var status string
		if err := rows.Scan(
			&record.RunID,
			&startedAt,
			&durationMS,
			&record.Database,
			&record.Collection,
			&record.Fingerprint,
			&action,
			&record.IndexesCreated,
			&record.IndexesExisting,
			&status,
			&record.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		record.StartedAt = time.Unix(0, startedAt).UTC()
		record.Duration = time.Duration(durationMS) * time.Millisecond
		record.CollectionAction = domain.CollectionAction(action)
		record.Status = domain.RunStatus(status)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS provision_runs (
			run_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			database_name TEXT NOT NULL DEFAULT '',
			collection_name TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			collection_action TEXT NOT NULL DEFAULT '',
			indexes_created INTEGER NOT NULL DEFAULT 0,
			indexes_existing INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS provision_runs_started_at ON provision_runs (started_at)
	`); err != nil {
		return fmt.Errorf("create runs index: %w", err)
	}
	return nil
}

func (s *Store) applyPragmas(ctx context.Context, opts OpenOptions) error {
	if !opts.Fast {
		return nil
	}
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
		return fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}
	return nil
}

func shouldCreateDir(path string) bool {
	if path == ":memory:" {
		return false
	}
	if strings.HasPrefix(path, "file:") {
		return false
	}
	return true
}
