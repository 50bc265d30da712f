/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package blobstore stores whole named byte blobs inside one container.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/config"
	"github.com/friendsincode/protoreg/internal/telemetry"
)

// ErrNotFound is returned by Load when the named blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store abstracts whole-blob storage operations.
type Store interface {
	// Load returns the full content of key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save overwrites key with data unconditionally.
	Save(ctx context.Context, key string, data []byte, contentType string) error
	CheckAccess(ctx context.Context) error
	Backend() string
}

// New creates the store selected by config.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	var store Store

	switch cfg.StorageBackend {
	case config.StorageS3:
		s3cfg := S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			CredentialsFile: cfg.S3CredentialsFile,
			Region:          cfg.S3Region,
			Bucket:          cfg.StorageBucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}
		if s3cfg.AccessKeyID == "" && s3cfg.CredentialsFile == "" {
			logger.Warn().Msg("no explicit object storage credentials configured, using the default credential chain")
		}

		s3Storage, err := NewS3Storage(ctx, s3cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize s3 storage: %w", err)
		}
		store = s3Storage
	case config.StorageFilesystem:
		store = NewFilesystemStorage(cfg.StorageRoot, cfg.StorageBucket, logger)
	case config.StorageMemory:
		store = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}

	logger.Info().
		Str("backend", store.Backend()).
		Str("bucket", cfg.StorageBucket).
		Msg("blob storage initialized")

	return Instrument(store), nil
}

// instrumented records metrics and spans around every blob call.
type instrumented struct {
	Store
}

// Instrument wraps a store with Prometheus metrics and tracing.
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

func (i *instrumented) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := telemetry.StartBlobSpan(ctx, "load", i.Backend(), key)
	defer span.End()

	start := time.Now()
	data, err := i.Store.Load(ctx, key)
	i.observe("load", start, err)
	if err != nil && !errors.Is(err, ErrNotFound) {
		telemetry.RecordError(span, err)
	}
	return data, err
}

func (i *instrumented) Save(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := telemetry.StartBlobSpan(ctx, "save", i.Backend(), key)
	defer span.End()

	start := time.Now()
	err := i.Store.Save(ctx, key, data, contentType)
	i.observe("save", start, err)
	telemetry.RecordError(span, err)
	return err
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	telemetry.BlobOperationDuration.WithLabelValues(i.Backend(), op).Observe(time.Since(start).Seconds())
	telemetry.BlobOperationsTotal.WithLabelValues(i.Backend(), op, result).Inc()
}
