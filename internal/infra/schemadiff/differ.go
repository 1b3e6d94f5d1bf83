package schemadiff

import (
	"context"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Differ describes a validator conflict as an RFC 7386 merge patch that
// turns the live validator into the declared one.
type Differ struct{}

func (Differ) Diff(ctx context.Context, live, declared []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patch, err := jsonpatch.CreateMergePatch(live, declared)
	if err != nil {
		return nil, fmt.Errorf("diff validators: %w", err)
	}
	return patch, nil
}
