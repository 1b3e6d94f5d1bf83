package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

const (
	IssuePlanFailed = "plan_failed"
	IssueCollScan   = "collection_scan"
	IssueWrongIndex = "wrong_index"
)

var ErrNoCollections = errors.New("no collections to verify")

// Service checks that every declared index actually serves range queries on its field.
type Service struct {
	planner Planner
}

func NewService(planner Planner) *Service {
	return &Service{planner: planner}
}

func (s *Service) Verify(ctx context.Context, specs []domain.CollectionSpec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrNoCollections
	}

	var result Result
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return Result{}, err
		}
		for _, index := range spec.Indexes {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			result.Indexes++

			issue, err := s.verifyIndex(ctx, spec, index)
			if err != nil {
				return Result{}, err
			}
			if issue != nil {
				result.Issues = append(result.Issues, *issue)
				continue
			}
			result.Verified++
		}
	}
	return result, nil
}

func (s *Service) verifyIndex(ctx context.Context, spec domain.CollectionSpec, index domain.IndexSpec) (*Issue, error) {
	prop, _ := spec.Validator.Property(index.Field)
	winner, err := s.planner.WinningIndex(ctx, spec.Database, spec.Collection, index.Field, prop.BSONType)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			return nil, err
		}
		return newIssue(spec, index, IssuePlanFailed, err), nil
	}

	switch winner {
	case index.Name():
		return nil, nil
	case "":
		return newIssue(spec, index, IssueCollScan, fmt.Errorf("query on %s runs a collection scan", index.Field)), nil
	default:
		return newIssue(spec, index, IssueWrongIndex, fmt.Errorf("planner chose %s instead of %s", winner, index.Name())), nil
	}
}

func newIssue(spec domain.CollectionSpec, index domain.IndexSpec, code string, err error) *Issue {
	return &Issue{
		Namespace: spec.Namespace(),
		Field:     index.Field,
		Code:      code,
		Message:   err.Error(),
	}
}
