package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDatabaseRequired       = errors.New("database name is required")
	ErrInvalidDatabaseName    = errors.New("invalid database name")
	ErrCollectionRequired     = errors.New("collection name is required")
	ErrInvalidCollectionName  = errors.New("invalid collection name")
	ErrValidatorNotObject     = errors.New("validator must have bsonType object")
	ErrPropertyNameRequired   = errors.New("property name is required")
	ErrDuplicateProperty      = errors.New("duplicate property")
	ErrInvalidBSONType        = errors.New("invalid bson type")
	ErrUndeclaredRequired     = errors.New("required field is not a declared property")
	ErrDuplicateRequiredField = errors.New("duplicate required field")
	ErrIndexFieldRequired     = errors.New("index field is required")
	ErrInvalidSortDirection   = errors.New("invalid sort direction")
)

type Property struct {
	Name        string
	BSONType    BSONType
	Description string
}

// SchemaRule is the object-level $jsonSchema attached to a collection.
// Properties and Required keep declaration order so the rendered validator is stable.
type SchemaRule struct {
	BSONType   BSONType
	Required   []string
	Properties []Property
}

type IndexSpec struct {
	Field     string
	Direction SortDirection
}

type CollectionSpec struct {
	Database   string
	Collection string
	Validator  SchemaRule
	Indexes    []IndexSpec
}

func (r SchemaRule) Property(name string) (Property, bool) {
	for _, prop := range r.Properties {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

func (r SchemaRule) IsRequired(name string) bool {
	for _, field := range r.Required {
		if field == name {
			return true
		}
	}
	return false
}

func (r SchemaRule) Validate() error {
	if r.BSONType != BSONObject {
		return ErrValidatorNotObject
	}

	declared := make(map[string]struct{}, len(r.Properties))
	for _, prop := range r.Properties {
		name := strings.TrimSpace(prop.Name)
		if name == "" {
			return ErrPropertyNameRequired
		}
		if _, exists := declared[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateProperty, name)
		}
		if !prop.BSONType.IsValid() {
			return fmt.Errorf("%w: %q for property %s", ErrInvalidBSONType, prop.BSONType, name)
		}
		declared[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(r.Required))
	for _, field := range r.Required {
		if _, ok := declared[field]; !ok {
			return fmt.Errorf("%w: %s", ErrUndeclaredRequired, field)
		}
		if _, dup := seen[field]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRequiredField, field)
		}
		seen[field] = struct{}{}
	}
	return nil
}

// Name returns the store's default index name, e.g. "name_1" or "start_time_-1".
func (s IndexSpec) Name() string {
	return fmt.Sprintf("%s_%d", s.Field, int(s.Direction))
}

func (s IndexSpec) Validate() error {
	if strings.TrimSpace(s.Field) == "" {
		return ErrIndexFieldRequired
	}
	if !s.Direction.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidSortDirection, int(s.Direction))
	}
	return nil
}

func (s CollectionSpec) Validate() error {
	if err := ValidateDatabaseName(s.Database); err != nil {
		return err
	}
	if err := ValidateCollectionName(s.Collection); err != nil {
		return err
	}
	if err := s.Validator.Validate(); err != nil {
		return fmt.Errorf("collection %s: %w", s.Collection, err)
	}
	for _, index := range s.Indexes {
		if err := s.ValidateIndex(index); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIndex checks the index against the spec's validator. An index on an
// undeclared field is reported as an index creation error.
func (s CollectionSpec) ValidateIndex(index IndexSpec) error {
	if err := index.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexCreation, err)
	}
	if _, ok := s.Validator.Property(index.Field); !ok {
		return fmt.Errorf("%w: field %q is not declared in the %s validator", ErrIndexCreation, index.Field, s.Collection)
	}
	return nil
}

// Namespace returns "<database>.<collection>".
func (s CollectionSpec) Namespace() string {
	return s.Database + "." + s.Collection
}
