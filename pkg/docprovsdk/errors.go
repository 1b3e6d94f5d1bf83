package docprovsdk

import "errors"

var (
	ErrUnknownStore = errors.New("docprov-sdk: unknown store backend")
	ErrClosed       = errors.New("docprov-sdk: client is closed")
	ErrNoJournal    = errors.New("docprov-sdk: journal is not configured")
)
