package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func testMeta() *models.TweetMetadata {
	return &models.TweetMetadata{
		AuthorHandle: "alice",
		PostID:       "42",
		PostedAt:     time.Date(2023, 10, 27, 15, 30, 0, 0, time.UTC),
	}
}

func newTestDownloader(store *memStore) *Service {
	return New(store, 5*time.Second, 0, nil, "", arbor.NewLogger())
}

func TestFetchSavesItemsUnderMediaKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	store := newMemStore()
	svc := newTestDownloader(store)

	items := []models.MediaItem{
		{URL: server.URL + "/a.jpg", Kind: models.MediaKindImage, Index: 0, Ext: "jpg"},
		{URL: server.URL + "/b.jpg", Kind: models.MediaKindImage, Index: 1, Ext: "jpg"},
	}

	results := svc.Fetch(context.Background(), testMeta(), items)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "media/20231027_153000_alice_42_1.jpg", results[0].Key)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "media/20231027_153000_alice_42_2.jpg", results[1].Key)

	data, ok, err := store.Get(context.Background(), results[0].Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestFetchRetriesOnceOnServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	store := newMemStore()
	svc := newTestDownloader(store)

	items := []models.MediaItem{{URL: server.URL + "/a.mp4", Kind: models.MediaKindVideo, Index: 0, Ext: "mp4"}}
	results := svc.Fetch(context.Background(), testMeta(), items)

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, int32(2), hits.Load(), "expected exactly one retry")
}

func TestFetchGivesUpAfterOneRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := newMemStore()
	svc := newTestDownloader(store)

	items := []models.MediaItem{{URL: server.URL + "/a.jpg", Kind: models.MediaKindImage, Index: 0, Ext: "jpg"}}
	results := svc.Fetch(context.Background(), testMeta(), items)

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Empty(t, results[0].Key)
	assert.Equal(t, int32(2), hits.Load(), "a persistent failure gets exactly two attempts")
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newMemStore()
	svc := newTestDownloader(store)

	items := []models.MediaItem{{URL: server.URL + "/gone.jpg", Kind: models.MediaKindImage, Index: 0, Ext: "jpg"}}
	results := svc.Fetch(context.Background(), testMeta(), items)

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Equal(t, int32(1), hits.Load(), "4xx must not be retried")
}

func TestFetchIsolatesFailedItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	store := newMemStore()
	svc := newTestDownloader(store)

	items := []models.MediaItem{
		{URL: server.URL + "/good.jpg", Kind: models.MediaKindImage, Index: 0, Ext: "jpg"},
		{URL: server.URL + "/bad.jpg", Kind: models.MediaKindImage, Index: 1, Ext: "jpg"},
		{URL: server.URL + "/also-good.jpg", Kind: models.MediaKindImage, Index: 2, Ext: "jpg"},
	}

	results := svc.Fetch(context.Background(), testMeta(), items)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err, "a failed item must not abort later items")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&statusError{code: 500}))
	assert.True(t, isTransient(&statusError{code: 503}))
	assert.False(t, isTransient(&statusError{code: 404}))
	assert.False(t, isTransient(&statusError{code: 403}))
}
