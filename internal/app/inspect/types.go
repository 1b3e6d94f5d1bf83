package inspect

import "github.com/osvaldoandrade/docprov/internal/domain"

type CollectionStatus string

const (
	CollectionMissing  CollectionStatus = "missing"
	CollectionMatch    CollectionStatus = "match"
	CollectionConflict CollectionStatus = "conflict"
)

type IndexStatus string

const (
	IndexMissing IndexStatus = "missing"
	IndexPresent IndexStatus = "present"
)

type IndexPlan struct {
	Name      string
	Field     string
	Direction domain.SortDirection
	Status    IndexStatus
	// LiveName is the name of the live index that satisfies the declaration, if any.
	LiveName string
}

type CollectionPlan struct {
	Database   string
	Collection string
	Status     CollectionStatus
	// Diff is a merge patch from the live validator to the declared one, set on conflict.
	Diff    []byte
	Indexes []IndexPlan
	// Extra lists live indexes the catalog does not declare, without _id_.
	Extra []string
}

func (p CollectionPlan) Namespace() string {
	return p.Database + "." + p.Collection
}

// InSync reports whether applying the catalog would change nothing.
func (p CollectionPlan) InSync() bool {
	if p.Status != CollectionMatch {
		return false
	}
	for _, index := range p.Indexes {
		if index.Status != IndexPresent {
			return false
		}
	}
	return true
}

type Plan struct {
	Collections []CollectionPlan
}

func (p Plan) InSync() bool {
	for _, coll := range p.Collections {
		if !coll.InSync() {
			return false
		}
	}
	return true
}

func (p Plan) Conflicts() int {
	count := 0
	for _, coll := range p.Collections {
		if coll.Status == CollectionConflict {
			count++
		}
	}
	return count
}
