package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdpstorage "github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

// Config holds browser launch configuration
type Config struct {
	Headless           bool
	UserAgent          string
	Proxy              *models.ProxyConfig
	NetworkTimeout     time.Duration
	InteractionTimeout time.Duration
}

// Launcher creates chromedp browser contexts with the configured allocator
// options. Each context is ephemeral: callers must invoke the returned
// cancel func on every exit path.
type Launcher struct {
	config Config
	logger arbor.ILogger
}

// NewLauncher creates a new browser launcher
func NewLauncher(config Config, logger arbor.ILogger) *Launcher {
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return &Launcher{
		config: config,
		logger: logger,
	}
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(l.config.UserAgent),
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
	)

	if l.config.Proxy != nil {
		opts = append(opts, chromedp.ProxyServer(l.config.Proxy.ServerURL()))
	}

	return opts
}

// NewContext launches a browser and returns a ready chromedp context. The
// returned cancel func tears down both the browser and its allocator and
// must always be called.
func (l *Launcher) NewContext(parent context.Context) (context.Context, context.CancelFunc, error) {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(parent, l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	cancel := func() {
		browserCancel()
		allocatorCancel()
	}

	// Startup test bounded by the network timeout
	testCtx, testCancel := context.WithTimeout(browserCtx, l.config.NetworkTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	if l.config.Proxy != nil && l.config.Proxy.HasAuth() {
		if err := l.enableProxyAuth(browserCtx); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to enable proxy authentication: %w", err)
		}
	}

	return browserCtx, cancel, nil
}

// enableProxyAuth answers the proxy's 407 challenge with the configured
// credentials. Requires the fetch domain with auth handling enabled.
func (l *Launcher) enableProxyAuth(browserCtx context.Context) error {
	proxy := l.config.Proxy

	execCtx := cdp.WithExecutor(browserCtx, chromedp.FromContext(browserCtx).Target)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				resp := &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: proxy.Username,
					Password: proxy.Password,
				}
				if err := fetch.ContinueWithAuth(e.RequestID, resp).Do(execCtx); err != nil {
					l.logger.Warn().Err(err).Msg("Failed to answer proxy auth challenge")
				}
			}()
		case *fetch.EventRequestPaused:
			go func() {
				if err := fetch.ContinueRequest(e.RequestID).Do(execCtx); err != nil {
					l.logger.Debug().Err(err).Msg("Failed to continue paused request")
				}
			}()
		}
	})

	return chromedp.Run(browserCtx,
		fetch.Enable().WithHandleAuthRequests(true),
	)
}

// SeedSession installs the session's cookies into the browser context.
// Must run before any navigation to an authenticated page.
func (l *Launcher) SeedSession(browserCtx context.Context, session *models.Session) error {
	if session == nil || len(session.Cookies) == 0 {
		return fmt.Errorf("session has no cookies to seed")
	}

	params := make([]*network.CookieParam, 0, len(session.Cookies))
	for _, c := range session.Cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	seedCtx, cancel := context.WithTimeout(browserCtx, l.config.InteractionTimeout)
	defer cancel()

	if err := chromedp.Run(seedCtx, cdpstorage.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to seed session cookies: %w", err)
	}

	l.logger.Debug().Int("cookies", len(params)).Msg("Session cookies seeded into browser context")
	return nil
}

// ExportSession captures the browser's cookies and the current origin's
// localStorage into a serializable session.
func (l *Launcher) ExportSession(browserCtx context.Context) (*models.Session, error) {
	exportCtx, cancel := context.WithTimeout(browserCtx, l.config.NetworkTimeout)
	defer cancel()

	var cookies []*network.Cookie
	var origin string
	var local map[string]string

	err := chromedp.Run(exportCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = cdpstorage.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`window.location.origin`, &origin),
		chromedp.Evaluate(`Object.fromEntries(Object.entries(localStorage))`, &local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to export session state: %w", err)
	}

	session := &models.Session{
		CapturedAt: time.Now().UTC(),
	}
	for _, c := range cookies {
		session.Cookies = append(session.Cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	if len(local) > 0 {
		entries := make([]models.LocalStorageEntry, 0, len(local))
		for name, value := range local {
			entries = append(entries, models.LocalStorageEntry{Name: name, Value: value})
		}
		session.Origins = []models.OriginStorage{{Origin: origin, LocalStorage: entries}}
	}

	l.logger.Debug().Int("cookies", len(session.Cookies)).Msg("Session state exported from browser")
	return session, nil
}
