package session

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// ProbeScheduler periodically re-validates the persisted session so an
// expired login surfaces in logs and /session-status before the next
// extraction trips over it. Purely observational - it never refreshes.
type ProbeScheduler struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewProbeScheduler creates a scheduler; an empty schedule disables it.
func NewProbeScheduler(manager *Manager, schedule string, logger arbor.ILogger) *ProbeScheduler {
	return &ProbeScheduler{
		manager:  manager,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers and starts the cron entry. No-op when disabled.
func (s *ProbeScheduler) Start() error {
	if s.schedule == "" {
		s.logger.Debug().Msg("Session probe schedule not configured, scheduler disabled")
		return nil
	}

	s.cron = cron.New(cron.WithSeconds())
	_, err := s.cron.AddFunc(s.schedule, s.probe)
	if err != nil {
		return fmt.Errorf("invalid session probe schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Session probe scheduler started")
	return nil
}

// Stop halts the scheduler, waiting for a running probe to finish.
func (s *ProbeScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info().Msg("Session probe scheduler stopped")
	}
}

func (s *ProbeScheduler) probe() {
	status := s.manager.Status(context.Background())
	s.logger.Info().
		Bool("session_file_exists", status.SessionFileExists).
		Bool("session_valid", status.SessionValid).
		Msg("Scheduled session probe")
}
