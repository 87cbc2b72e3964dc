package interfaces

import (
	"context"

	"github.com/ternarybob/xmedia/internal/models"
)

// ObjectStore is the opaque key/value blob store backing session
// persistence, diagnostic screenshots and downloaded media.
//
// Keys are slash-separated paths ("session-data/x-session.json",
// "screenshots/...", "media/..."). Get on a missing key returns
// (nil, false, nil) rather than an error.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// JobStorage persists extraction jobs so outcomes survive for inspection.
// Jobs are only ever inserted or updated, never deleted.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ExtractionJob) error
	GetJob(ctx context.Context, id string) (*models.ExtractionJob, error)
	ListJobs(ctx context.Context) ([]models.ExtractionJob, error)
}
