/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit keeps a ledger of accepted submissions.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/protoreg/internal/events"
	"github.com/friendsincode/protoreg/internal/models"
)

// Service records submission events in the ledger database.
type Service struct {
	db           *gorm.DB
	bus          *events.Bus
	participants events.Subscriber
	protocols    events.Subscriber
	logger       zerolog.Logger
}

// NewService creates a ledger service and subscribes it to the bus, so
// submissions made before Start runs are buffered rather than missed.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:           db,
		bus:          bus,
		participants: bus.Subscribe(events.EventParticipantRegistered),
		protocols:    bus.Subscribe(events.EventProtocolRecorded),
		logger:       logger.With().Str("component", "audit").Logger(),
	}
}

// Start records events until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("submission ledger started")
	defer func() {
		s.bus.Unsubscribe(events.EventParticipantRegistered, s.participants)
		s.bus.Unsubscribe(events.EventProtocolRecorded, s.protocols)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("submission ledger stopping")
			return

		case payload, ok := <-s.participants:
			if !ok {
				return
			}
			s.record(ctx, models.SubmissionParticipant, "participant_id", payload)

		case payload, ok := <-s.protocols:
			if !ok {
				return
			}
			s.record(ctx, models.SubmissionProtocol, "key", payload)
		}
	}
}

func (s *Service) record(ctx context.Context, kind models.SubmissionKind, refKey string, payload events.Payload) {
	entry := &models.Submission{
		Kind:    kind,
		Details: make(map[string]any),
	}
	if ref, ok := payload[refKey]; ok {
		entry.Reference = fmt.Sprint(ref)
	}
	if blob, ok := payload["blob"].(string); ok {
		entry.Blob = blob
	}
	for k, v := range payload {
		switch k {
		case refKey, "blob":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to record submission")
	}
}

// Log writes a ledger entry directly.
func (s *Service) Log(ctx context.Context, entry *models.Submission) error {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	s.logger.Debug().
		Str("kind", string(entry.Kind)).
		Str("reference", entry.Reference).
		Msg("submission recorded")
	return nil
}

// QueryFilters narrows a ledger query.
type QueryFilters struct {
	Kind  *models.SubmissionKind
	Since *time.Time
	Until *time.Time
	Limit int
	// Offset skips the newest entries.
	Offset int
}

// Query returns matching entries, newest first, and the total match count.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.Submission, int64, error) {
	return Query(ctx, s.db, filters)
}

// Query runs a ledger query without a running service, for CLI use.
func Query(ctx context.Context, db *gorm.DB, filters QueryFilters) ([]models.Submission, int64, error) {
	var (
		entries []models.Submission
		total   int64
	)

	query := db.WithContext(ctx).Model(&models.Submission{})
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.Since != nil {
		query = query.Where("recorded_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("recorded_at <= ?", *filters.Until)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("recorded_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("query submissions: %w", err)
	}
	return entries, total, nil
}
