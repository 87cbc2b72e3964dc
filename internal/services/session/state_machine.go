package session

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

// State identifies a position in the login flow
type State string

const (
	StateStart             State = "start"
	StateUsernameEntered   State = "username_entered"
	StateEmailConfirmation State = "email_confirmation"
	StatePasswordEntered   State = "password_entered"
	StateSubmitted         State = "submitted"
	StateVerified          State = "verified"
	StateFailed            State = "failed"
)

// LoginPage abstracts the browser interactions of the login form so the
// flow logic stays independent of chromedp. Each method is internally
// bounded by the appropriate timeout; CaptureDiagnostic is best-effort.
type LoginPage interface {
	Open() error
	EnterUsername(username string) error
	Next() error
	AwaitChallenge() (models.LoginChallenge, error)
	EnterEmail(email string) error
	EnterPassword(password string) error
	Submit() error
	WaitForLanding() error
	LoggedIn() bool
	Export() (*models.Session, error)
	CaptureDiagnostic(label string)
}

// StateMachine drives the login form through its linear flow with one
// optional email-confirmation branch:
//
//	start -> username_entered -> [email_confirmation?] -> password_entered
//	      -> submitted -> verified | failed
//
// Exactly one login attempt per Login call - there is no internal retry.
// Every failure transition captures a diagnostic screenshot before the
// error propagates; capture failures never mask the underlying error.
type StateMachine struct {
	credentials models.Credentials
	logger      arbor.ILogger
}

// NewStateMachine creates a login state machine for the given credentials
func NewStateMachine(credentials models.Credentials, logger arbor.ILogger) *StateMachine {
	return &StateMachine{
		credentials: credentials,
		logger:      logger,
	}
}

// fail records the failure state, captures a diagnostic screenshot and
// builds the classified error.
func (m *StateMachine) fail(page LoginPage, state State, kind models.AuthErrorKind, err error) error {
	m.logger.Warn().
		Str("state", string(state)).
		Str("kind", string(kind)).
		Err(err).
		Msg("Login flow failed")

	page.CaptureDiagnostic(fmt.Sprintf("login-%s-%s", state, kind))

	return models.NewAuthError(kind, string(state), err)
}

// Login runs one attempt through the flow and returns the captured
// session on success. The caller owns persistence.
func (m *StateMachine) Login(page LoginPage) (*models.Session, error) {
	state := StateStart
	m.logger.Info().Str("username", m.credentials.Username).Msg("Starting login flow")

	if err := page.Open(); err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}

	if err := page.EnterUsername(m.credentials.Username); err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}
	if err := page.Next(); err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}
	state = StateUsernameEntered

	// Optional branch: the platform may demand email re-verification
	// before showing the password field. The page settles on whichever
	// input renders first, so a slow challenge card is never mistaken
	// for its absence.
	challenge, err := page.AwaitChallenge()
	if err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}
	if challenge == models.ChallengeEmail {
		state = StateEmailConfirmation
		if m.credentials.Email == "" {
			return nil, m.fail(page, state, models.ErrKindMissingCredential,
				fmt.Errorf("platform requested email confirmation but no email credential is configured"))
		}
		m.logger.Info().Msg("Email confirmation requested, providing configured email")
		if err := page.EnterEmail(m.credentials.Email); err != nil {
			return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
		}
	}

	if err := page.EnterPassword(m.credentials.Password); err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}
	state = StatePasswordEntered

	if err := page.Submit(); err != nil {
		return nil, m.fail(page, state, models.ErrKindSelectorTimeout, err)
	}
	state = StateSubmitted

	// A slow navigation is not itself fatal - the logged-in check decides.
	if err := page.WaitForLanding(); err != nil {
		m.logger.Warn().
			Str("kind", string(models.ErrKindNavigationTimeout)).
			Err(err).
			Msg("Post-submit navigation did not settle within the network timeout")
		page.CaptureDiagnostic(fmt.Sprintf("login-%s-%s", state, models.ErrKindNavigationTimeout))
	}

	if !page.LoggedIn() {
		return nil, m.fail(page, state, models.ErrKindUnexpectedState,
			fmt.Errorf("authenticated landing page not reached after submit"))
	}
	state = StateVerified

	session, err := page.Export()
	if err != nil {
		return nil, m.fail(page, state, models.ErrKindUnexpectedState,
			fmt.Errorf("failed to export session after verified login: %w", err))
	}

	m.logger.Info().Int("cookies", len(session.Cookies)).Msg("Login verified, session captured")
	return session, nil
}
