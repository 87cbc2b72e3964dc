package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/common"
	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// postURLPattern matches post URLs on twitter.com or x.com, bare or www,
// with an optional scheme and trailing query string.
var postURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:twitter|x)\.com/([A-Za-z0-9_]+)/status/(\d+)(?:\?.*)?$`)

const queueCapacity = 64

// Service validates incoming extraction requests, registers them as jobs
// and works through them one at a time on a single goroutine. Failure of
// one job never affects another.
type Service struct {
	jobs       interfaces.JobStorage
	sessions   interfaces.SessionProvider
	resolver   interfaces.MediaResolver
	downloader interfaces.MediaDownloader
	logger     arbor.ILogger

	queue chan string
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func New(jobs interfaces.JobStorage, sessions interfaces.SessionProvider, resolver interfaces.MediaResolver, downloader interfaces.MediaDownloader, logger arbor.ILogger) *Service {
	return &Service{
		jobs:       jobs,
		sessions:   sessions,
		resolver:   resolver,
		downloader: downloader,
		logger:     logger,
		queue:      make(chan string, queueCapacity),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.work()
	})
}

// Stop drains the queue and waits for the in-flight job to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

// ErrQueueFull is returned by Submit when the job queue cannot admit
// another job. The rejected job is still persisted in Failed state so
// callers can inspect it later.
var ErrQueueFull = errors.New("job queue is full")

// Submit validates the URL and, if acceptable, registers a queued job and
// hands it to the worker. Invalid URLs return a models.ValidationError
// and leave no trace. On a full queue the persisted Failed job is
// returned together with ErrQueueFull.
func (s *Service) Submit(rawURL string) (*models.ExtractionJob, error) {
	handle, postID, err := parsePostURL(rawURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", rawURL).Msg("Rejected extraction request")
		return nil, err
	}

	job := &models.ExtractionJob{
		ID:        common.NewJobID(),
		SourceURL: rawURL,
		Handle:    handle,
		PostID:    postID,
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.SaveJob(context.Background(), job); err != nil {
		return nil, fmt.Errorf("persisting job: %w", err)
	}

	select {
	case s.queue <- job.ID:
	default:
		s.fail(job, ErrQueueFull)
		return job, ErrQueueFull
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("post_id", postID).
		Str("handle", handle).
		Msg("Extraction job queued")
	return job, nil
}

// parsePostURL extracts the author handle and post ID, or returns a
// models.ValidationError describing why the URL was rejected.
func parsePostURL(rawURL string) (handle, postID string, err error) {
	if rawURL == "" {
		return "", "", &models.ValidationError{URL: rawURL, Reason: "url is required"}
	}
	m := postURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", &models.ValidationError{URL: rawURL, Reason: "not a recognizable twitter.com or x.com post URL"}
	}
	return m[1], m[2], nil
}

func (s *Service) work() {
	defer s.wg.Done()
	for jobID := range s.queue {
		s.process(jobID)
	}
}

// process runs one job end to end. A panic anywhere in the pipeline is
// converted into that job's failure; the worker keeps going.
func (s *Service) process(jobID string) {
	ctx := context.Background()
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Could not load queued job")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Job panicked")
			s.fail(job, fmt.Errorf("internal error: %v", r))
		}
	}()

	s.transition(job, models.JobStatusRunning)
	job.StartedAt = time.Now().UTC()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Could not persist job start")
	}

	session, err := s.sessions.GetValidSession(ctx)
	if err != nil {
		s.fail(job, fmt.Errorf("acquiring session: %w", err))
		return
	}

	meta, items, err := s.resolver.Resolve(ctx, session, job.PostID)
	if err != nil {
		s.fail(job, err)
		return
	}

	results := s.downloader.Fetch(ctx, meta, items)
	for _, r := range results {
		if r.Err != nil {
			job.Failed = append(job.Failed, fmt.Sprintf("item %d: %v", r.Item.Index, r.Err))
		} else {
			job.Saved = append(job.Saved, r.Key)
		}
	}

	if len(job.Saved) == 0 {
		s.fail(job, fmt.Errorf("all %d media items failed to download", len(results)))
		return
	}

	s.transition(job, models.JobStatusSucceeded)
	job.FinishedAt = time.Now().UTC()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Could not persist job result")
	}
	s.logger.Info().
		Str("job_id", job.ID).
		Int("saved", len(job.Saved)).
		Int("failed", len(job.Failed)).
		Msg("Extraction job finished")
}

func (s *Service) transition(job *models.ExtractionJob, next models.JobStatus) {
	if !job.Status.CanTransition(next) {
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("from", string(job.Status)).
			Str("to", string(next)).
			Msg("Skipping invalid job status transition")
		return
	}
	job.Status = next
}

func (s *Service) fail(job *models.ExtractionJob, cause error) {
	s.transition(job, models.JobStatusFailed)
	job.Error = cause.Error()
	job.FinishedAt = time.Now().UTC()
	if err := s.jobs.SaveJob(context.Background(), job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Could not persist job failure")
	}
	s.logger.Warn().
		Str("job_id", job.ID).
		Str("post_id", job.PostID).
		Err(cause).
		Msg("Extraction job failed")
}
