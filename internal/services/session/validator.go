package session

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

// Prober replays a session in an ephemeral browser context and reports
// whether it still authenticates.
type Prober interface {
	ProbeAuthenticated(ctx context.Context, session *models.Session) (bool, error)
}

// Validator is a fail-closed predicate over persisted sessions: any probe
// failure (timeout, navigation error, marker absent) means invalid. It
// never raises past this boundary and never mutates the store.
type Validator struct {
	prober Prober
	logger arbor.ILogger
}

// NewValidator creates a new session validator
func NewValidator(prober Prober, logger arbor.ILogger) *Validator {
	return &Validator{
		prober: prober,
		logger: logger,
	}
}

// Validate reports whether the session is still authenticated.
func (v *Validator) Validate(ctx context.Context, session *models.Session) bool {
	if session == nil || len(session.Cookies) == 0 {
		return false
	}

	valid, err := v.prober.ProbeAuthenticated(ctx, session)
	if err != nil {
		v.logger.Warn().Err(err).Msg("Session probe failed, treating session as invalid")
		return false
	}

	if valid {
		v.logger.Info().Msg("Session probe: session appears valid")
	} else {
		v.logger.Warn().Msg("Session probe: authenticated marker not found, session invalid")
	}
	return valid
}
