package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob inserts or updates an extraction job
func (s *JobStorage) SaveJob(ctx context.Context, job *models.ExtractionJob) error {
	if job.ID == "" {
		return fmt.Errorf("cannot save job without ID")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}

	s.logger.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("Job saved")
	return nil
}

// GetJob retrieves a job by ID
func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.ExtractionJob, error) {
	var job models.ExtractionJob
	err := s.db.Store().Get(id, &job)
	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// ListJobs returns all jobs ordered by creation time, newest first
func (s *JobStorage) ListJobs(ctx context.Context) ([]models.ExtractionJob, error) {
	var jobs []models.ExtractionJob
	err := s.db.Store().Find(&jobs, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
