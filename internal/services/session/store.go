package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

// Store serializes the single session blob to the object store at a fixed
// key. It only moves bytes - ownership of the session lives in Manager.
type Store struct {
	objects interfaces.ObjectStore
	key     string
	logger  arbor.ILogger
}

// NewStore creates a session store persisting at the given object key
func NewStore(objects interfaces.ObjectStore, key string, logger arbor.ILogger) *Store {
	return &Store{
		objects: objects,
		key:     key,
		logger:  logger,
	}
}

// Key returns the object-store key of the session blob.
func (s *Store) Key() string {
	return s.key
}

// Load reads and deserializes the persisted session. Returns
// models.ErrNoSession when no blob exists.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	data, found, err := s.objects.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", models.ErrStorage, err)
	}
	if !found {
		return nil, models.ErrNoSession
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session blob: %w", err)
	}

	return &session, nil
}

// Save serializes the session and overwrites the blob.
func (s *Store) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := s.objects.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: save session: %v", models.ErrStorage, err)
	}

	s.logger.Info().Str("key", s.key).Int("cookies", len(session.Cookies)).Msg("Session persisted")
	return nil
}

// Exists reports whether a session blob is persisted.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	exists, err := s.objects.Exists(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("%w: check session: %v", models.ErrStorage, err)
	}
	return exists, nil
}
