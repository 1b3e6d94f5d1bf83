package docprovsdk

import (
	"strings"
	"time"
)

type StoreKind string

const (
	StoreMongo  StoreKind = "mongo"
	StoreMemory StoreKind = "memory"
)

type ConflictPolicy string

const (
	ConflictReject    ConflictPolicy = "reject"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Config defines how the SDK reaches the document store.
type Config struct {
	Store          StoreKind
	URI            string
	Database       string
	ConnectTimeout time.Duration
	OnConflict     ConflictPolicy
	// JournalPath enables the SQLite run journal when set.
	JournalPath string
	JournalFast bool
	AppName     string
}

// DefaultConfig targets a local MongoDB and the shop database.
func DefaultConfig() Config {
	return Config{
		Store:          StoreMongo,
		URI:            "mongodb://localhost:27017",
		Database:       "shop",
		ConnectTimeout: 10 * time.Second,
		OnConflict:     ConflictReject,
		AppName:        "docprov-sdk",
	}
}

func normalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	cfg.Store = StoreKind(strings.ToLower(strings.TrimSpace(string(cfg.Store))))
	if cfg.Store == "" {
		cfg.Store = defaults.Store
	}
	if strings.TrimSpace(cfg.URI) == "" {
		cfg.URI = defaults.URI
	}
	if strings.TrimSpace(cfg.Database) == "" {
		cfg.Database = defaults.Database
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.OnConflict == "" {
		cfg.OnConflict = defaults.OnConflict
	}
	if cfg.AppName == "" {
		cfg.AppName = defaults.AppName
	}
	return cfg
}
