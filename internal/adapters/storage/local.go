package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStore persists blobs on the local filesystem under a root directory.
// Used in development where the media directory is served as static files.
type LocalStore struct {
	root    string
	baseURL string
	logger  zerolog.Logger
}

type LocalStoreParams struct {
	Root    string
	BaseURL string
	Logger  zerolog.Logger
}

// NewLocalStore creates a filesystem-backed blob store
func NewLocalStore(params LocalStoreParams) (*LocalStore, error) {
	if err := os.MkdirAll(params.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &LocalStore{
		root:    params.Root,
		baseURL: strings.TrimRight(params.BaseURL, "/"),
		logger:  params.Logger.With().Str("component", "local_store").Logger(),
	}, nil
}

// Put writes the blob and returns its public URL
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Stored blob on disk")
	return s.URLFor(key), nil
}

// Delete removes the blob; a missing blob is not an error
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

// URLFor returns the public URL for a stored key
func (s *LocalStore) URLFor(key string) string {
	return s.baseURL + "/" + key
}
