package inspect

import "errors"

var ErrNoCollections = errors.New("no collections to plan")
