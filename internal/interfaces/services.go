package interfaces

import (
	"context"

	"github.com/ternarybob/xmedia/internal/models"
)

// SessionProvider hands out a valid authenticated session, refreshing it
// through the login flow when necessary. Concurrent callers during a
// refresh collapse onto one in-flight login.
type SessionProvider interface {
	GetValidSession(ctx context.Context) (*models.Session, error)
	RefreshAsync() error
	Status(ctx context.Context) SessionStatus
}

// SessionStatus is the payload of GET /session-status.
type SessionStatus struct {
	SessionFileExists bool   `json:"session_file_exists"`
	SessionValid      bool   `json:"session_valid"`
	SessionPath       string `json:"session_path"`
}

// MediaResolver turns a post ID into its ordered media attachments using
// an authenticated session against the platform's internal API.
type MediaResolver interface {
	Resolve(ctx context.Context, session *models.Session, postID string) (*models.TweetMetadata, []models.MediaItem, error)
}

// DownloadResult is the per-item outcome of a fetch pass.
type DownloadResult struct {
	Item models.MediaItem
	// Key is the object-store key of the saved bytes, empty on failure.
	Key string
	Err error
}

// MediaDownloader fetches resolved media items independently; one failed
// item never aborts the others.
type MediaDownloader interface {
	Fetch(ctx context.Context, meta *models.TweetMetadata, items []models.MediaItem) []DownloadResult
}

// ScreenshotSink receives best-effort diagnostic screenshots. Implementations
// must swallow their own failures - capture never propagates errors.
type ScreenshotSink interface {
	Capture(ctx context.Context, label string)
}
