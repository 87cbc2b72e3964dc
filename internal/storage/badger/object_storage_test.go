package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/common"
	"github.com/ternarybob/xmedia/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestObjectStoragePutGet(t *testing.T) {
	db := newTestDB(t)
	store := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-data/x-session.json", []byte(`{"cookies":[]}`)))

	data, found, err := store.Get(ctx, "session-data/x-session.json")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"cookies":[]}`), data)

	exists, err := store.Exists(ctx, "session-data/x-session.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestObjectStorageMissingKey(t *testing.T) {
	db := newTestDB(t)
	store := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	data, found, err := store.Get(ctx, "media/nothing-here.jpg")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)

	exists, err := store.Exists(ctx, "media/nothing-here.jpg")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestObjectStorageOverwrite(t *testing.T) {
	db := newTestDB(t)
	store := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "screenshots/a.png", []byte("v1")))
	require.NoError(t, store.Put(ctx, "screenshots/a.png", []byte("v2")))

	data, found, err := store.Get(ctx, "screenshots/a.png")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2"), data)
}

func TestObjectStorageNormalizesLeadingSlash(t *testing.T) {
	db := newTestDB(t)
	store := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/media/a.jpg", []byte("x")))

	_, found, err := store.Get(ctx, "media/a.jpg")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestJobStorageSaveAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.ExtractionJob{
		ID:        "job_test-1",
		SourceURL: "https://x.com/alice/status/42",
		Handle:    "alice",
		PostID:    "42",
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveJob(ctx, job))

	loaded, err := store.GetJob(ctx, "job_test-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Handle)
	assert.Equal(t, models.JobStatusQueued, loaded.Status)

	_, err = store.GetJob(ctx, "job_missing")
	assert.Error(t, err)
}

func TestJobStorageSaveRejectsEmptyID(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())

	err := store.SaveJob(context.Background(), &models.ExtractionJob{})
	assert.Error(t, err)
}

func TestJobStorageListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"job_a", "job_b", "job_c"} {
		require.NoError(t, store.SaveJob(ctx, &models.ExtractionJob{
			ID:        id,
			Status:    models.JobStatusQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	jobs, err := store.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "job_c", jobs[0].ID)
	assert.Equal(t, "job_a", jobs[2].ID)
}
