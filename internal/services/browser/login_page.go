package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// X/Twitter login flow selectors. The data-testid attributes are the most
// stable hooks the platform exposes.
const (
	loginURL = "https://x.com/i/flow/login"
	homeURL  = "https://x.com/home"

	selUsernameField  = `input[autocomplete="username"]`
	selEmailChallenge = `input[data-testid="ocfEnterTextTextInput"]`
	selPasswordField  = `input[name="password"]`
	selLoginButton    = `button[data-testid="LoginForm_Login_Button"]`
	selNextButton     = `//span[text()="Next"]`

	// Present only in an authenticated context; the sole ground truth for
	// login and validity success.
	selAuthMarker = `a[data-testid="SideNav_NewTweet_Button"]`
)

// LoginPage drives the platform's login form in a dedicated browser
// context. One instance serves exactly one login attempt.
type LoginPage struct {
	browserCtx  context.Context
	launcher    *Launcher
	screenshots interfaces.ScreenshotSink
	logger      arbor.ILogger

	networkTimeout     time.Duration
	interactionTimeout time.Duration
}

// NewLoginPage creates a login page driver over an existing browser context
func NewLoginPage(browserCtx context.Context, launcher *Launcher, screenshots interfaces.ScreenshotSink, logger arbor.ILogger) *LoginPage {
	return &LoginPage{
		browserCtx:         browserCtx,
		launcher:           launcher,
		screenshots:        screenshots,
		logger:             logger,
		networkTimeout:     launcher.config.NetworkTimeout,
		interactionTimeout: launcher.config.InteractionTimeout,
	}
}

// run executes actions bounded by the given timeout.
func (p *LoginPage) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.browserCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Open navigates to the login form and waits for the identity field.
func (p *LoginPage) Open() error {
	if err := p.run(p.networkTimeout, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := p.run(p.interactionTimeout, chromedp.WaitVisible(selUsernameField, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("username field did not appear: %w", err)
	}
	return nil
}

// EnterUsername fills the identity field.
func (p *LoginPage) EnterUsername(username string) error {
	err := p.run(p.interactionTimeout,
		chromedp.WaitVisible(selUsernameField, chromedp.ByQuery),
		chromedp.SendKeys(selUsernameField, username, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	return nil
}

// Next clicks the "Next" button advancing the flow.
func (p *LoginPage) Next() error {
	err := p.run(p.interactionTimeout,
		chromedp.Click(selNextButton, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("failed to click next: %w", err)
	}
	return nil
}

// AwaitChallenge waits, bounded by the interaction timeout, for the flow
// to settle after the username step: whichever of the email-confirmation
// card or the password field renders first decides the branch. An
// instantaneous probe here would misread a still-rendering challenge as
// absent, so the poll keeps watching until one of the two appears.
func (p *LoginPage) AwaitChallenge() (models.LoginChallenge, error) {
	ctx, cancel := context.WithTimeout(p.browserCtx, p.interactionTimeout)
	defer cancel()

	var field string
	script := fmt.Sprintf(
		`document.querySelector(%q) ? "email" : document.querySelector(%q) ? "password" : false`,
		selEmailChallenge, selPasswordField,
	)
	if err := chromedp.Run(ctx, chromedp.Poll(script, &field)); err != nil {
		return "", fmt.Errorf("neither email challenge nor password field appeared: %w", err)
	}
	if field == "email" {
		return models.ChallengeEmail, nil
	}
	return models.ChallengePassword, nil
}

// EnterEmail fills the email-confirmation field and advances.
func (p *LoginPage) EnterEmail(email string) error {
	err := p.run(p.interactionTimeout,
		chromedp.WaitVisible(selEmailChallenge, chromedp.ByQuery),
		chromedp.SendKeys(selEmailChallenge, email, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill email confirmation: %w", err)
	}
	return p.Next()
}

// EnterPassword fills the password field.
func (p *LoginPage) EnterPassword(password string) error {
	err := p.run(p.interactionTimeout,
		chromedp.WaitVisible(selPasswordField, chromedp.ByQuery),
		chromedp.SendKeys(selPasswordField, password, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	return nil
}

// Submit clicks the login button.
func (p *LoginPage) Submit() error {
	err := p.run(p.interactionTimeout,
		chromedp.Click(selLoginButton, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to click login: %w", err)
	}
	return nil
}

// WaitForLanding waits for the post-submit navigation to settle, bounded
// by the network timeout.
func (p *LoginPage) WaitForLanding() error {
	err := p.run(p.networkTimeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.WaitVisible(selAuthMarker, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("landing page did not settle: %w", err)
	}
	return nil
}

// LoggedIn reports whether the browser reached the authenticated landing
// page: URL pattern match plus the authenticated-only marker element.
func (p *LoginPage) LoggedIn() bool {
	ctx, cancel := context.WithTimeout(p.browserCtx, p.interactionTimeout)
	defer cancel()

	var location string
	var markerPresent bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selAuthMarker)
	err := chromedp.Run(ctx,
		chromedp.Location(&location),
		chromedp.Evaluate(script, &markerPresent),
	)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Logged-in check failed")
		return false
	}

	return strings.Contains(location, "/home") && markerPresent
}

// Export captures the authenticated session state from the browser.
func (p *LoginPage) Export() (*models.Session, error) {
	return p.launcher.ExportSession(p.browserCtx)
}

// CaptureDiagnostic stores a best-effort screenshot of the current page.
func (p *LoginPage) CaptureDiagnostic(label string) {
	if p.screenshots != nil {
		p.screenshots.Capture(p.browserCtx, label)
	}
}
