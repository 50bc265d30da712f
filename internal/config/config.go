/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageBackend selects where participant and protocol blobs live.
type StorageBackend string

const (
	StorageS3         StorageBackend = "s3"
	StorageFilesystem StorageBackend = "filesystem"
	StorageMemory     StorageBackend = "memory"
)

// LockBackend selects how concurrent read-modify-write cycles are serialized.
type LockBackend string

const (
	LockNone  LockBackend = "none"
	LockLocal LockBackend = "local"
	LockRedis LockBackend = "redis"
)

// DatabaseBackend selects the submission ledger database.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

const (
	DefaultParticipantBlob = "participant_data.xlsx"
	DefaultProtocolBlob    = "protocol_database.json"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MaxBodyKB   int // 0 leaves request bodies uncapped

	// Blob storage
	StorageBackend  StorageBackend
	StorageBucket   string // container holding both blobs
	StorageRoot     string // filesystem backend root
	ParticipantBlob string
	ProtocolBlob    string

	// S3-compatible object storage
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3CredentialsFile string // shared credentials file, used when static keys are absent
	S3Region          string
	S3Endpoint        string // For S3-compatible services (GCS interop, MinIO, etc.)
	S3UsePathStyle    bool

	// Write serialization
	LockBackend   LockBackend
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event fan-out
	NATSURL     string
	EventsRedis bool // publish events on Redis pub/sub via RedisAddr

	// Submission ledger
	AuditDBBackend DatabaseBackend
	AuditDBDSN     string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"PROTOREG_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"PROTOREG_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"PROTOREG_HTTP_PORT", "PORT"}, 8080),
		MaxBodyKB:   getEnvIntAny([]string{"PROTOREG_MAX_BODY_KB"}, 0),

		StorageBucket:   getEnvAny([]string{"PROTOREG_STORAGE_BUCKET", "GCP_STORAGE_BUCKET", "S3_BUCKET"}, ""),
		StorageRoot:     getEnvAny([]string{"PROTOREG_STORAGE_ROOT"}, "./data"),
		ParticipantBlob: getEnvAny([]string{"PROTOREG_PARTICIPANT_BLOB"}, DefaultParticipantBlob),
		ProtocolBlob:    getEnvAny([]string{"PROTOREG_PROTOCOL_BLOB"}, DefaultProtocolBlob),

		S3AccessKeyID:     getEnvAny([]string{"PROTOREG_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"PROTOREG_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3CredentialsFile: getEnvAny([]string{"PROTOREG_S3_CREDENTIALS_FILE"}, ""),
		S3Region:          getEnvAny([]string{"PROTOREG_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"PROTOREG_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"PROTOREG_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		LockBackend:   LockBackend(getEnvAny([]string{"PROTOREG_LOCK_BACKEND"}, string(LockLocal))),
		LockTTL:       time.Duration(getEnvIntAny([]string{"PROTOREG_LOCK_TTL_SECONDS"}, 30)) * time.Second,
		RedisAddr:     getEnvAny([]string{"PROTOREG_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"PROTOREG_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"PROTOREG_REDIS_DB"}, 0),

		NATSURL:     getEnvAny([]string{"PROTOREG_NATS_URL"}, ""),
		EventsRedis: getEnvBoolAny([]string{"PROTOREG_EVENTS_REDIS"}, false),

		AuditDBBackend: DatabaseBackend(getEnvAny([]string{"PROTOREG_AUDIT_DB_BACKEND"}, string(DatabaseSQLite))),
		AuditDBDSN:     getEnvAny([]string{"PROTOREG_AUDIT_DB_DSN"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"PROTOREG_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"PROTOREG_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"PROTOREG_TRACING_SAMPLE_RATE"}, 1.0),
	}

	// A configured bucket implies object storage unless told otherwise.
	defaultBackend := StorageFilesystem
	if cfg.StorageBucket != "" {
		defaultBackend = StorageS3
	}
	cfg.StorageBackend = StorageBackend(getEnvAny([]string{"PROTOREG_STORAGE_BACKEND"}, string(defaultBackend)))

	switch cfg.StorageBackend {
	case StorageS3:
		if cfg.StorageBucket == "" {
			return nil, fmt.Errorf("PROTOREG_STORAGE_BUCKET or GCP_STORAGE_BUCKET must be provided for the s3 storage backend")
		}
	case StorageFilesystem, StorageMemory:
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	switch cfg.LockBackend {
	case LockNone, LockLocal, LockRedis:
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.LockBackend)
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("PROTOREG_LOCK_TTL_SECONDS must be positive")
	}

	if cfg.AuditDBBackend != DatabasePostgres && cfg.AuditDBBackend != DatabaseMySQL && cfg.AuditDBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported audit database backend %q", cfg.AuditDBBackend)
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.StorageBackend == StorageMemory {
			return nil, fmt.Errorf("the memory storage backend cannot be used in production")
		}
		if cfg.LockBackend == LockRedis && os.Getenv("PROTOREG_REDIS_ADDR") == "" {
			return nil, fmt.Errorf("PROTOREG_REDIS_ADDR must be set when the redis lock backend is used in production")
		}
	}

	return cfg, nil
}

// MaxBodyBytes returns the configured request body limit in bytes.
// A value of 0 means "not configured".
func (c *Config) MaxBodyBytes() int64 {
	if c == nil || c.MaxBodyKB <= 0 {
		return 0
	}
	return int64(c.MaxBodyKB) * 1024
}

// AuditEnabled reports whether the submission ledger has a database to write to.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.AuditDBDSN != ""
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
