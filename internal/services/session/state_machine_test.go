package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

// fakeLoginPage records every interaction so tests can assert on the
// exact path the flow took.
type fakeLoginPage struct {
	calls []string

	openErr      error
	usernameErr  error
	nextErr      error
	emailAsked   bool
	challengeErr error
	emailErr     error
	passwordErr  error
	submitErr    error
	landingErr   error
	loggedIn     bool
	session      *models.Session
	exportErr    error
}

func (f *fakeLoginPage) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeLoginPage) Open() error { f.record("open"); return f.openErr }
func (f *fakeLoginPage) EnterUsername(string) error {
	f.record("username")
	return f.usernameErr
}
func (f *fakeLoginPage) Next() error { f.record("next"); return f.nextErr }
func (f *fakeLoginPage) AwaitChallenge() (models.LoginChallenge, error) {
	f.record("await_challenge")
	if f.challengeErr != nil {
		return "", f.challengeErr
	}
	if f.emailAsked {
		return models.ChallengeEmail, nil
	}
	return models.ChallengePassword, nil
}
func (f *fakeLoginPage) EnterEmail(string) error { f.record("email"); return f.emailErr }
func (f *fakeLoginPage) EnterPassword(string) error {
	f.record("password")
	return f.passwordErr
}
func (f *fakeLoginPage) Submit() error         { f.record("submit"); return f.submitErr }
func (f *fakeLoginPage) WaitForLanding() error { f.record("landing"); return f.landingErr }
func (f *fakeLoginPage) LoggedIn() bool        { f.record("logged_in"); return f.loggedIn }
func (f *fakeLoginPage) Export() (*models.Session, error) {
	f.record("export")
	return f.session, f.exportErr
}
func (f *fakeLoginPage) CaptureDiagnostic(label string) { f.record("diag:" + label) }

func testCredentials(email string) models.Credentials {
	return models.Credentials{Username: "alice", Password: "pw", Email: email}
}

func capturedSession() *models.Session {
	return &models.Session{
		Cookies:    []models.Cookie{{Name: "auth_token", Value: "tok"}, {Name: "ct0", Value: "csrf"}},
		CapturedAt: time.Now(),
	}
}

func TestLoginHappyPath(t *testing.T) {
	page := &fakeLoginPage{loggedIn: true, session: capturedSession()}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	session, err := machine.Login(page)
	require.NoError(t, err)
	assert.Equal(t, "tok", session.CookieValue("auth_token"))
	assert.Equal(t, []string{
		"open", "username", "next", "await_challenge",
		"password", "submit", "landing", "logged_in", "export",
	}, page.calls)
}

func TestLoginEmailChallengeWithEmailConfigured(t *testing.T) {
	page := &fakeLoginPage{emailAsked: true, loggedIn: true, session: capturedSession()}
	machine := NewStateMachine(testCredentials("alice@example.com"), arbor.NewLogger())

	_, err := machine.Login(page)
	require.NoError(t, err)
	assert.Contains(t, page.calls, "email")
}

func TestLoginEmailChallengeWithoutEmailFailsBeforePassword(t *testing.T) {
	page := &fakeLoginPage{emailAsked: true}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	require.Error(t, err)

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, models.ErrKindMissingCredential, authErr.Kind)

	// The flow must stop before any password interaction.
	assert.NotContains(t, page.calls, "password")
	assert.NotContains(t, page.calls, "submit")
}

func TestLoginChallengeWaitFailure(t *testing.T) {
	page := &fakeLoginPage{challengeErr: errors.New("neither email challenge nor password field appeared")}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	require.Error(t, err)

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, models.ErrKindSelectorTimeout, authErr.Kind)
	assert.NotContains(t, page.calls, "password")
}

func TestLoginSelectorTimeout(t *testing.T) {
	page := &fakeLoginPage{usernameErr: errors.New("waiting for selector timed out")}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	require.Error(t, err)

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, models.ErrKindSelectorTimeout, authErr.Kind)
}

func TestLoginNotLoggedInAfterSubmit(t *testing.T) {
	page := &fakeLoginPage{loggedIn: false}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	require.Error(t, err)

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, models.ErrKindUnexpectedState, authErr.Kind)
	assert.NotContains(t, page.calls, "export")
}

func TestLoginSlowLandingIsNotFatal(t *testing.T) {
	page := &fakeLoginPage{
		landingErr: errors.New("navigation timed out"),
		loggedIn:   true,
		session:    capturedSession(),
	}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	assert.NoError(t, err)
	assert.Contains(t, page.calls, "diag:login-submitted-navigation_timeout")
}

func TestLoginFailureCapturesDiagnostic(t *testing.T) {
	page := &fakeLoginPage{openErr: errors.New("boom")}
	machine := NewStateMachine(testCredentials(""), arbor.NewLogger())

	_, err := machine.Login(page)
	require.Error(t, err)

	found := false
	for _, call := range page.calls {
		if len(call) > 5 && call[:5] == "diag:" {
			found = true
		}
	}
	assert.True(t, found, "expected a diagnostic capture on failure, calls: %v", page.calls)
}
