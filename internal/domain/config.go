package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConflictPolicy = errors.New("invalid conflict policy")

// ConflictPolicy decides what happens when a collection already exists with
// a validator that differs from the declared one.
type ConflictPolicy string

const (
	ConflictReject    ConflictPolicy = "reject"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

const DefaultConflictPolicy = ConflictReject

func (policy ConflictPolicy) IsValid() bool {
	return policy == ConflictReject || policy == ConflictOverwrite
}

func ParseConflictPolicy(value string) (ConflictPolicy, error) {
	parsed := ConflictPolicy(strings.TrimSpace(strings.ToLower(value)))
	if parsed == "" {
		return "", fmt.Errorf("%w: value is required", ErrInvalidConflictPolicy)
	}
	if !parsed.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidConflictPolicy, value)
	}
	return parsed, nil
}

func NormalizeConflictPolicy(policy ConflictPolicy) ConflictPolicy {
	if policy.IsValid() {
		return policy
	}
	return DefaultConflictPolicy
}
