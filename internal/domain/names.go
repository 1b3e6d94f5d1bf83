package domain

import (
	"fmt"
	"strings"
)

const maxDatabaseNameLength = 63

func ValidateDatabaseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrDatabaseRequired
	}
	if len(name) > maxDatabaseNameLength {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidDatabaseName, name, maxDatabaseNameLength)
	}
	if strings.ContainsAny(name, "/\\. \"$*<>:|?\x00") {
		return fmt.Errorf("%w: %s", ErrInvalidDatabaseName, name)
	}
	return nil
}

func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrCollectionRequired
	}
	if strings.ContainsAny(name, "$\x00") {
		return fmt.Errorf("%w: %s", ErrInvalidCollectionName, name)
	}
	if strings.HasPrefix(name, "system.") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %s", ErrInvalidCollectionName, name)
	}
	return nil
}
