package session

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// SessionValidator is the fail-closed validity predicate.
type SessionValidator interface {
	Validate(ctx context.Context, session *models.Session) bool
}

// LoginRunner performs one full browser-driven login attempt.
type LoginRunner interface {
	RunLogin(ctx context.Context) (*models.Session, error)
}

// Manager owns the single persisted session and is the only writer of it.
//
// GetValidSession is the sole entry point: it validates the persisted
// session and, when a refresh is needed, collapses all concurrent demand
// onto one in-flight login via singleflight - under N concurrent callers
// exactly one login attempt runs, and every caller observes its outcome.
type Manager struct {
	store     *Store
	validator SessionValidator
	login     LoginRunner
	group     singleflight.Group
	logger    arbor.ILogger
}

var _ interfaces.SessionProvider = (*Manager)(nil)

// NewManager creates a new session manager
func NewManager(store *Store, validator SessionValidator, login LoginRunner, logger arbor.ILogger) *Manager {
	return &Manager{
		store:     store,
		validator: validator,
		login:     login,
		logger:    logger,
	}
}

// GetValidSession returns the persisted session when it still validates,
// otherwise refreshes through the single-flight login path.
func (m *Manager) GetValidSession(ctx context.Context) (*models.Session, error) {
	existing, err := m.store.Load(ctx)
	switch {
	case err == nil:
		if m.validator.Validate(ctx, existing) {
			return existing, nil
		}
		m.logger.Warn().Msg("Persisted session failed validation, refreshing")
	case errors.Is(err, models.ErrNoSession):
		m.logger.Info().Msg("No persisted session, refreshing")
	default:
		// A corrupt or unreadable blob is handled like an invalid session.
		m.logger.Warn().Err(err).Msg("Failed to load persisted session, refreshing")
	}

	return m.refresh(ctx)
}

// refresh runs the login flow under single-flight. Waiters joining an
// in-flight refresh receive its result, success or failure alike; nothing
// is persisted on failure.
func (m *Manager) refresh(ctx context.Context) (*models.Session, error) {
	v, err, shared := m.group.Do("session-refresh", func() (interface{}, error) {
		m.logger.Info().Msg("Running login flow to refresh session")

		session, err := m.login.RunLogin(ctx)
		if err != nil {
			return nil, err
		}

		if err := m.store.Save(ctx, session); err != nil {
			return nil, err
		}

		return session, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		m.logger.Debug().Msg("Joined in-flight session refresh")
	}
	return v.(*models.Session), nil
}

// RefreshAsync starts a background session refresh. Concurrent calls
// observe the same in-flight login rather than launching a second one.
func (m *Manager) RefreshAsync() error {
	go func() {
		if _, err := m.refresh(context.Background()); err != nil {
			m.logger.Error().Err(err).Msg("Background session refresh failed")
		} else {
			m.logger.Info().Msg("Background session refresh completed")
		}
	}()
	return nil
}

// Status reports existence and current validity of the persisted session.
func (m *Manager) Status(ctx context.Context) interfaces.SessionStatus {
	status := interfaces.SessionStatus{
		SessionPath: m.store.Key(),
	}

	exists, err := m.store.Exists(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to check session existence")
		return status
	}
	status.SessionFileExists = exists
	if !exists {
		return status
	}

	session, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to load session for status check")
		return status
	}

	status.SessionValid = m.validator.Validate(ctx, session)
	return status
}
