package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Server error codes the adapter distinguishes.
const (
	codeNamespaceExists       = 48
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

func isConnectionError(err error) bool {
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, topology.ErrServerSelectionTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

func hasCode(err error, code int) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorCode(code)
}

// mapError translates driver errors into the domain taxonomy. op names the
// failed operation for the message.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isConnectionError(err):
		return fmt.Errorf("%w: %s: %w", domain.ErrConnection, op, err)
	case hasCode(err, codeNamespaceExists):
		return fmt.Errorf("%w: %s: %w", domain.ErrCollectionExists, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func mapIndexError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrConnection, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexCreation, op, err)
}
