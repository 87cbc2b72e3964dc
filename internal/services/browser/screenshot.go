package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
)

// Screenshots captures diagnostic page screenshots into the object store
// under the "screenshots/" prefix. Capture is best-effort by contract:
// its own failures are logged and discarded, never returned.
type Screenshots struct {
	store  interfaces.ObjectStore
	logger arbor.ILogger
}

var _ interfaces.ScreenshotSink = (*Screenshots)(nil)

// NewScreenshots creates a new screenshot sink
func NewScreenshots(store interfaces.ObjectStore, logger arbor.ILogger) *Screenshots {
	return &Screenshots{
		store:  store,
		logger: logger,
	}
}

// screenshotKey builds "screenshots/<ISO-timestamp-with-colons-replaced>-<label>.png"
func screenshotKey(now time.Time, label string) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.ReplaceAll(ts, ":", "-")
	ts = strings.ReplaceAll(ts, ".", "-")
	return fmt.Sprintf("screenshots/%s-%s.png", ts, label)
}

// Capture takes a full-page screenshot of the given browser context and
// stores it. Failures are swallowed.
func (s *Screenshots) Capture(browserCtx context.Context, label string) {
	captureCtx, cancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(captureCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		s.logger.Warn().Err(err).Str("label", label).Msg("Failed to capture diagnostic screenshot")
		return
	}

	key := screenshotKey(time.Now(), label)
	if err := s.store.Put(context.Background(), key, buf); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to store diagnostic screenshot")
		return
	}

	s.logger.Info().Str("key", key).Msg("Diagnostic screenshot stored")
}
