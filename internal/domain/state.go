package domain

// CollectionState is what a store reports about an existing collection.
// Validator holds the validator document as JSON, or nil when none is attached.
type CollectionState struct {
	Name      string
	Validator []byte
}

type IndexKey struct {
	Field     string
	Direction SortDirection
}

type IndexState struct {
	Name string
	Keys []IndexKey
}

// Matches reports whether the index is exactly the single-field index described by spec.
func (s IndexState) Matches(spec IndexSpec) bool {
	return len(s.Keys) == 1 && s.Keys[0].Field == spec.Field && s.Keys[0].Direction == spec.Direction
}

const PrimaryKeyIndexName = "_id_"
