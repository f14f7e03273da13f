package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	payablesapp "github.com/billpay/backend/internal/application/payables"
)

var _ payablesapp.ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage issues fake URLs and remembers keys in memory.
// It backs receipts in development when no bucket is configured.
type StubObjectStorage struct {
	BaseURL string

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewStubObjectStorage creates a stub rooted at baseURL
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/receipts"
	}
	return &StubObjectStorage{BaseURL: baseURL, keys: make(map[string]struct{})}
}

// GenerateUploadURL returns a fake PUT URL and records key
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
	return s.url("upload", key, expiresIn)
}

// GenerateDownloadURL returns a fake GET URL
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	return s.url("download", key, expiresIn)
}

// DeleteObject forgets key
func (s *StubObjectStorage) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// Has reports whether an upload URL was issued for key and not deleted since
func (s *StubObjectStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *StubObjectStorage) url(action, key string, expiresIn time.Duration) (string, time.Time, error) {
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := time.Now().Add(expiresIn).UTC()
	q := url.Values{"expires": {expiresAt.Format(time.RFC3339)}}
	return s.BaseURL + "/" + action + "/" + key + "?" + q.Encode(), expiresAt, nil
}
