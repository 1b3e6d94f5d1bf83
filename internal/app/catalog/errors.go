package catalog

import "errors"

var ErrCatalogRequired = errors.New("catalog reference is required")
var ErrEmptyCatalog = errors.New("catalog declares no collections")
var ErrDuplicateNamespace = errors.New("collection declared more than once")
