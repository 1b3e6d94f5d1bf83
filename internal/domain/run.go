package domain

import "time"

type CollectionAction string

const (
	CollectionCreated   CollectionAction = "created"
	CollectionUnchanged CollectionAction = "unchanged"
	CollectionUpdated   CollectionAction = "updated"
)

type IndexAction string

const (
	IndexCreated IndexAction = "created"
	IndexExists  IndexAction = "exists"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the journal entry written for every provisioning run of one collection.
type RunRecord struct {
	RunID            string
	StartedAt        time.Time
	Duration         time.Duration
	Database         string
	Collection       string
	Fingerprint      string
	CollectionAction CollectionAction
	IndexesCreated   int
	IndexesExisting  int
	Status           RunStatus
	Error            string
}
