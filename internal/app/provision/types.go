package provision

import (
	"log/slog"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

type Options struct {
	Policy   domain.ConflictPolicy
	Hasher   Hasher
	IDs      IDGenerator
	Clock    Clock
	Journal  Journal
	Recorder Recorder
	Logger   *slog.Logger
}

// CollectionHandle is the result of CreateCollection and the target of CreateIndex.
type CollectionHandle struct {
	db          Database
	spec        domain.CollectionSpec
	Namespace   string
	Action      domain.CollectionAction
	Fingerprint string
}

type IndexResult struct {
	Name      string
	Field     string
	Direction domain.SortDirection
	Action    domain.IndexAction
}

type Result struct {
	RunID            string
	Database         string
	Collection       string
	CollectionAction domain.CollectionAction
	Fingerprint      string
	Indexes          []IndexResult
	Duration         time.Duration
}

func (r Result) IndexesCreated() int {
	return r.countIndexes(domain.IndexCreated)
}

func (r Result) IndexesExisting() int {
	return r.countIndexes(domain.IndexExists)
}

func (r Result) countIndexes(action domain.IndexAction) int {
	count := 0
	for _, index := range r.Indexes {
		if index.Action == action {
			count++
		}
	}
	return count
}
