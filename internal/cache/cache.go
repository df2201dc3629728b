package cache

import (
	"context"
	"time"

	"inventoryledger/backend/internal/domain"
)

// StudyCache holds feasibility studies by study id.
type StudyCache interface {
	Get(ctx context.Context, id string) (*domain.FeasibilityStudy, bool, error)
	Set(ctx context.Context, study *domain.FeasibilityStudy, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type NoopStudyCache struct{}

func (NoopStudyCache) Get(_ context.Context, _ string) (*domain.FeasibilityStudy, bool, error) {
	return nil, false, nil
}

func (NoopStudyCache) Set(_ context.Context, _ *domain.FeasibilityStudy, _ time.Duration) error {
	return nil
}

func (NoopStudyCache) Delete(_ context.Context, _ string) error {
	return nil
}

func studyKey(id string) string {
	return "ledger:study:" + id
}
