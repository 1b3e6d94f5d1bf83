package domain

import "errors"

var ErrConnection = errors.New("cannot reach document store")
var ErrSchemaConflict = errors.New("collection exists with a conflicting validator")
var ErrIndexCreation = errors.New("index creation failed")

// ErrCollectionExists is returned by stores when a create races with another creator.
var ErrCollectionExists = errors.New("collection already exists")
