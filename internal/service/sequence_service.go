package service

import (
	"context"
	"fmt"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
)

// SequenceService issues gap-free, human-readable document numbers. NextNumber
// must be called with a transaction context: the counter increment commits or
// rolls back together with the document it numbers, so a conflict retry by the
// transaction layer never burns a number.
type SequenceService interface {
	NextNumber(ctx context.Context, orgID uuid.UUID, domain string) (string, error)
}

type sequenceService struct {
	counterRepo repository.CounterRepository
}

func NewSequenceService(counterRepo repository.CounterRepository) SequenceService {
	return &sequenceService{counterRepo: counterRepo}
}

func (s *sequenceService) NextNumber(ctx context.Context, orgID uuid.UUID, domain string) (string, error) {
	n, err := s.counterRepo.Increment(ctx, orgID, domain)
	if err != nil {
		return "", fmt.Errorf("failed to increment %s counter: %w", domain, err)
	}
	return model.FormatDocumentNumber(domain, n), nil
}
