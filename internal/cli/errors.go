package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	catalogapp "github.com/osvaldoandrade/docprov/internal/app/catalog"
	historyapp "github.com/osvaldoandrade/docprov/internal/app/history"
	inspectapp "github.com/osvaldoandrade/docprov/internal/app/inspect"
	"github.com/osvaldoandrade/docprov/internal/app/provision"
	verifyapp "github.com/osvaldoandrade/docprov/internal/app/verify"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/osvaldoandrade/docprov/internal/infra/catalogyaml"
	"github.com/osvaldoandrade/docprov/internal/infra/mongostore"
	"github.com/osvaldoandrade/docprov/internal/infra/schema"
)

type ErrorKind string

const (
	KindInternal   ErrorKind = "internal"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindConnection ErrorKind = "connection"
	KindIndex      ErrorKind = "index"
)

const (
	ExitInternal    = 1
	ExitInvalid     = 2
	ExitNotFound    = 3
	ExitConflict    = 4
	ExitUnavailable = 5
	ExitIndex       = 6
)

type ExitError struct {
	Code    int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e ExitError) Error() string {
	return errorMessage(e)
}

func (e ExitError) Unwrap() error {
	return e.Err
}

func NormalizeError(err error) ExitError {
	if err == nil {
		return ExitError{Code: 0}
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			exitErr.Code = ExitInternal
		}
		return exitErr
	}

	switch {
	case errors.Is(err, domain.ErrConnection):
		return ExitError{Code: ExitUnavailable, Kind: KindConnection, Err: err}
	case errors.Is(err, domain.ErrSchemaConflict),
		errors.Is(err, domain.ErrCollectionExists),
		errors.Is(err, provision.ErrCreateRaceLost):
		return ExitError{Code: ExitConflict, Kind: KindConflict, Err: err}
	case errors.Is(err, domain.ErrIndexCreation):
		return ExitError{Code: ExitIndex, Kind: KindIndex, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return ExitError{Code: ExitNotFound, Kind: KindNotFound, Err: err}
	case errors.Is(err, domain.ErrDatabaseRequired),
		errors.Is(err, domain.ErrInvalidDatabaseName),
		errors.Is(err, domain.ErrCollectionRequired),
		errors.Is(err, domain.ErrInvalidCollectionName),
		errors.Is(err, domain.ErrValidatorNotObject),
		errors.Is(err, domain.ErrPropertyNameRequired),
		errors.Is(err, domain.ErrDuplicateProperty),
		errors.Is(err, domain.ErrInvalidBSONType),
		errors.Is(err, domain.ErrUndeclaredRequired),
		errors.Is(err, domain.ErrDuplicateRequiredField),
		errors.Is(err, domain.ErrIndexFieldRequired),
		errors.Is(err, domain.ErrInvalidSortDirection),
		errors.Is(err, domain.ErrInvalidConflictPolicy),
		errors.Is(err, catalogapp.ErrCatalogRequired),
		errors.Is(err, catalogapp.ErrEmptyCatalog),
		errors.Is(err, catalogapp.ErrDuplicateNamespace),
		errors.Is(err, catalogyaml.ErrInvalidCatalog),
		errors.Is(err, schema.ErrNotJSONSchemaValidator),
		errors.Is(err, provision.ErrNoCollections),
		errors.Is(err, inspectapp.ErrNoCollections),
		errors.Is(err, verifyapp.ErrNoCollections),
		errors.Is(err, historyapp.ErrJournalDisabled),
		errors.Is(err, mongostore.ErrURIRequired),
		errors.Is(err, ErrUnknownStore):
		return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: err}
	default:
		return ExitError{Code: ExitInternal, Kind: KindInternal, Err: err}
	}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return NormalizeError(err).Code
}

func writeCLIError(w io.Writer, exitErr ExitError, asJSON bool) error {
	if exitErr.Code == 0 {
		return nil
	}
	message := errorMessage(exitErr)
	if asJSON {
		payload := struct {
			Code    int             `json:"code"`
			Kind    string          `json:"kind"`
			Message string          `json:"message"`
			Diff    json.RawMessage `json:"diff,omitempty"`
		}{
			Code:    exitErr.Code,
			Kind:    string(exitErr.Kind),
			Message: message,
		}
		var conflict *provision.ConflictError
		if errors.As(exitErr.Err, &conflict) {
			payload.Message = fmt.Sprintf("%s: %s", conflict.Namespace, domain.ErrSchemaConflict)
			payload.Diff = rawJSON(conflict.Diff)
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	ui := newRenderer(w, false)
	prefix := "Error"
	if exitErr.Kind != "" {
		prefix = fmt.Sprintf("Error (%s)", exitErr.Kind)
	}
	prefix = ui.err(prefix)
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, message)
	return err
}

func errorMessage(exitErr ExitError) string {
	if exitErr.Message != "" {
		return exitErr.Message
	}
	if exitErr.Err != nil {
		return exitErr.Err.Error()
	}
	return "unknown error"
}
