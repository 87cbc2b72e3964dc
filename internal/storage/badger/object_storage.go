package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/xmedia/internal/interfaces"
)

// BlobRecord is one stored object. Key is a slash-separated path such as
// "session-data/x-session.json" or "media/20231027_153000_alice_42_1.jpg".
type BlobRecord struct {
	Key       string `badgerhold:"key"`
	Data      []byte
	UpdatedAt time.Time
}

// ObjectStorage implements the ObjectStore interface on Badger
type ObjectStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewObjectStorage creates a new ObjectStorage instance
func NewObjectStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ObjectStore {
	return &ObjectStorage{
		db:     db,
		logger: logger,
	}
}

func normalizeKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "/")
}

// Put stores the bytes under key, overwriting any previous object.
func (s *ObjectStorage) Put(ctx context.Context, key string, data []byte) error {
	record := BlobRecord{
		Key:       normalizeKey(key),
		Data:      data,
		UpdatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(record.Key, &record); err != nil {
		return fmt.Errorf("failed to store object %s: %w", record.Key, err)
	}

	s.logger.Debug().Str("key", record.Key).Int("bytes", len(data)).Msg("Object stored")
	return nil
}

// Get returns the stored bytes and whether the key exists.
func (s *ObjectStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var record BlobRecord
	err := s.db.Store().Get(normalizeKey(key), &record)
	if err == badgerhold.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return record.Data, true, nil
}

// Exists reports whether an object is stored under key.
func (s *ObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	var record BlobRecord
	err := s.db.Store().Get(normalizeKey(key), &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	return true, nil
}
