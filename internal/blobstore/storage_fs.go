/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStorage implements Store using a local directory per container.
type FilesystemStorage struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFilesystemStorage creates a filesystem-based storage backend. Blobs live
// under rootDir/bucket; an empty bucket uses rootDir directly.
func NewFilesystemStorage(rootDir, bucket string, logger zerolog.Logger) *FilesystemStorage {
	return &FilesystemStorage{
		rootDir: filepath.Join(rootDir, bucket),
		logger:  logger.With().Str("component", "blobstore_fs").Logger(),
	}
}

// Backend names the storage implementation.
func (fs *FilesystemStorage) Backend() string { return "filesystem" }

// Load reads a blob from disk.
func (fs *FilesystemStorage) Load(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := fs.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Save writes a blob through a temp file and rename so readers never see a
// partial file.
func (fs *FilesystemStorage) Save(ctx context.Context, key string, data []byte, contentType string) error {
	fullPath, err := fs.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Join(fmt.Errorf("write temp file: %w", err), os.Remove(tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return errors.Join(fmt.Errorf("rename blob into place: %w", err), os.Remove(tmpPath))
	}

	fs.logger.Debug().
		Str("path", fullPath).
		Str("content_type", contentType).
		Int("size", len(data)).
		Msg("filesystem storage: blob saved")
	return nil
}

// CheckAccess verifies the container directory exists or can be created.
func (fs *FilesystemStorage) CheckAccess(ctx context.Context) error {
	if err := os.MkdirAll(fs.rootDir, 0o755); err != nil {
		return fmt.Errorf("cannot create storage root: %w", err)
	}
	info, err := os.Stat(fs.rootDir)
	if err != nil {
		return fmt.Errorf("cannot access storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root is not a directory: %s", fs.rootDir)
	}
	return nil
}

func (fs *FilesystemStorage) path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) {
		return "", fmt.Errorf("blob %q: %w", key, errInvalidKey)
	}
	return filepath.Join(fs.rootDir, key), nil
}

var errInvalidKey = errors.New("key must be a relative path inside the container")
