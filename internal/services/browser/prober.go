package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// Prober checks whether a persisted session still authenticates against
// the platform by replaying it in an ephemeral browser context.
type Prober struct {
	launcher    *Launcher
	screenshots interfaces.ScreenshotSink
	logger      arbor.ILogger
}

// NewProber creates a new session prober
func NewProber(launcher *Launcher, screenshots interfaces.ScreenshotSink, logger arbor.ILogger) *Prober {
	return &Prober{
		launcher:    launcher,
		screenshots: screenshots,
		logger:      logger,
	}
}

// ProbeAuthenticated seeds a fresh browser context with the session,
// navigates to the authenticated landing page and waits for the
// authenticated-only marker. The context is torn down on every exit path.
func (p *Prober) ProbeAuthenticated(ctx context.Context, session *models.Session) (bool, error) {
	browserCtx, cancel, err := p.launcher.NewContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to launch probe browser: %w", err)
	}
	defer cancel()

	if err := p.launcher.SeedSession(browserCtx, session); err != nil {
		return false, err
	}

	navCtx, navCancel := context.WithTimeout(browserCtx, p.launcher.config.NetworkTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(homeURL)); err != nil {
		p.screenshots.Capture(browserCtx, "session-validation-error")
		return false, fmt.Errorf("navigation to landing page failed: %w", err)
	}

	markerCtx, markerCancel := context.WithTimeout(browserCtx, p.launcher.config.InteractionTimeout)
	defer markerCancel()
	if err := chromedp.Run(markerCtx, chromedp.WaitVisible(selAuthMarker, chromedp.ByQuery)); err != nil {
		p.screenshots.Capture(browserCtx, "session-validation-failed")
		return false, nil
	}

	p.screenshots.Capture(browserCtx, "session-validation-success")
	return true, nil
}
