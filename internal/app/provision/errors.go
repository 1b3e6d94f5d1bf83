package provision

import (
	"errors"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

var ErrNoCollections = errors.New("no collections to provision")
var ErrCreateRaceLost = errors.New("collection kept changing during create")

// ConflictError reports a live validator that differs from the declared one.
// Diff is a JSON merge patch that turns the live validator into the declared one.
type ConflictError struct {
	Namespace string
	Diff      []byte
}

func (e *ConflictError) Error() string {
	if len(e.Diff) == 0 {
		return fmt.Sprintf("%s: %s", e.Namespace, domain.ErrSchemaConflict)
	}
	return fmt.Sprintf("%s: %s (declared differs by %s)", e.Namespace, domain.ErrSchemaConflict, e.Diff)
}

func (e *ConflictError) Unwrap() error {
	return domain.ErrSchemaConflict
}
