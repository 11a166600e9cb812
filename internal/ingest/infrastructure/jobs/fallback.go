package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	ingest "energy-dashboard/internal/ingest/domain"
)

// FallbackStore writes to the primary store and falls back on error.
type FallbackStore struct {
	primary  ingest.JobStore
	fallback ingest.JobStore
	logger   logrus.FieldLogger
}

// NewFallbackStore chains two stores. A nil primary uses the fallback only.
func NewFallbackStore(primary, fallback ingest.JobStore, logger logrus.FieldLogger) *FallbackStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FallbackStore{primary: primary, fallback: fallback, logger: logger}
}

func (s *FallbackStore) Save(ctx context.Context, job ingest.ImportJob) error {
	if s.primary != nil {
		err := s.primary.Save(ctx, job)
		if err == nil {
			return nil
		}
		s.logger.WithError(err).WithField("job_id", job.ID).Warn("import history primary store failed")
	}
	return s.fallback.Save(ctx, job)
}

func (s *FallbackStore) List(ctx context.Context, limit int) ([]ingest.ImportJob, error) {
	if s.primary != nil {
		jobs, err := s.primary.List(ctx, limit)
		if err == nil {
			return jobs, nil
		}
		s.logger.WithError(err).Warn("import history primary store failed")
	}
	return s.fallback.List(ctx, limit)
}
