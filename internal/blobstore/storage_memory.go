/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage keeps blobs in process memory. Used for development and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data        []byte
	contentType string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string]memoryBlob)}
}

// Backend names the storage implementation.
func (m *MemoryStorage) Backend() string { return "memory" }

// Load returns a copy of the stored blob.
func (m *MemoryStorage) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), blob.data...), nil
}

// Save stores a copy of data under key.
func (m *MemoryStorage) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = memoryBlob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// CheckAccess always succeeds.
func (m *MemoryStorage) CheckAccess(ctx context.Context) error { return nil }

// ContentType reports the content type a blob was saved with.
func (m *MemoryStorage) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[key].contentType
}
