package session

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
	"github.com/ternarybob/xmedia/internal/services/browser"
)

// BrowserLogin runs the login state machine inside a dedicated browser
// context. The context is released on every exit path.
type BrowserLogin struct {
	launcher    *browser.Launcher
	screenshots interfaces.ScreenshotSink
	machine     *StateMachine
	logger      arbor.ILogger
}

var _ LoginRunner = (*BrowserLogin)(nil)

// NewBrowserLogin creates a login runner over the given launcher
func NewBrowserLogin(launcher *browser.Launcher, screenshots interfaces.ScreenshotSink, machine *StateMachine, logger arbor.ILogger) *BrowserLogin {
	return &BrowserLogin{
		launcher:    launcher,
		screenshots: screenshots,
		machine:     machine,
		logger:      logger,
	}
}

// RunLogin launches a browser, drives one login attempt and returns the
// captured session.
func (b *BrowserLogin) RunLogin(ctx context.Context) (*models.Session, error) {
	browserCtx, cancel, err := b.launcher.NewContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch login browser: %w", err)
	}
	defer cancel()

	page := browser.NewLoginPage(browserCtx, b.launcher, b.screenshots, b.logger)
	return b.machine.Login(page)
}
