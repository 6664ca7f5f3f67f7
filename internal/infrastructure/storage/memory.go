package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
)

var _ core.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in process memory. Used in development
// when no bucket is configured and in tests.
type MemoryObjectStorage struct {
	// BaseURL prefixes generated download URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "http://localhost:8080/files",
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryObjectStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = memoryObject{data: buf, contentType: contentType}
	return nil
}

func (s *MemoryObjectStorage) Download(_ context.Context, storageKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storageKey)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

func (s *MemoryObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

func (s *MemoryObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.BaseURL + "/" + storageKey + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// ContentType returns the stored content type of a key, or "" when absent
func (s *MemoryObjectStorage) ContentType(storageKey string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[storageKey].contentType
}

// Keys lists stored keys
func (s *MemoryObjectStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
