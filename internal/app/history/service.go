package history

import (
	"context"
	"errors"

	"github.com/osvaldoandrade/docprov/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

var ErrJournalDisabled = errors.New("run journal is not configured")

type Reader interface {
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.reader == nil {
		return nil, ErrJournalDisabled
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.reader.List(ctx, limit)
}
