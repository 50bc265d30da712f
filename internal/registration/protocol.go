/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/protoreg/internal/document"
	"github.com/friendsincode/protoreg/internal/events"
	"github.com/friendsincode/protoreg/internal/lock"
	"github.com/friendsincode/protoreg/internal/telemetry"
)

const entryKeyPrefix = "entry_"

// ProtocolResult is returned to the submitter.
type ProtocolResult struct {
	Message string `json:"message"`
	Key     string `json:"-"`
}

// NextEntryKey returns the key for the entry following existing ones.
func NextEntryKey(existing int) string {
	return entryKeyPrefix + strconv.Itoa(existing+1)
}

// ProtocolService stores protocol submissions in the protocol document.
type ProtocolService struct {
	codec  *document.Codec
	locker lock.Locker
	bus    events.Publisher
	logger zerolog.Logger
}

// NewProtocolService creates the protocol handler. bus may be nil.
func NewProtocolService(codec *document.Codec, locker lock.Locker, bus events.Publisher, logger zerolog.Logger) *ProtocolService {
	return &ProtocolService{
		codec:  codec,
		locker: locker,
		bus:    bus,
		logger: logger.With().Str("component", "protocol_registration").Logger(),
	}
}

// Record stores payload under the next sequential entry key. The payload is
// kept verbatim; no shape is enforced.
func (s *ProtocolService) Record(ctx context.Context, payload json.RawMessage) (result ProtocolResult, err error) {
	ctx, span := telemetry.StartSubmissionSpan(ctx, "protocol")
	defer span.End()
	defer func() {
		telemetry.RecordError(span, err)
		telemetry.SubmissionsTotal.WithLabelValues("protocol", resultLabel(err)).Inc()
	}()

	if !json.Valid(payload) {
		return ProtocolResult{}, fmt.Errorf("protocol payload is not valid JSON")
	}

	release, err := s.locker.Acquire(ctx, s.codec.Blob())
	if err != nil {
		return ProtocolResult{}, fmt.Errorf("lock protocol document: %w", err)
	}
	defer release()

	doc := s.codec.Load(ctx)
	key := NextEntryKey(len(doc))
	doc[key] = payload

	if err := s.codec.Save(ctx, doc); err != nil {
		return ProtocolResult{}, err
	}

	span.SetAttributes(attribute.String("protocol.key", key), attribute.Int("protocol.entries", len(doc)))
	s.logger.Info().Str("key", key).Int("entries", len(doc)).Msg("protocol entry recorded")

	if s.bus != nil {
		s.bus.Publish(events.EventProtocolRecorded, events.Payload{
			"key":     key,
			"blob":    s.codec.Blob(),
			"entries": len(doc),
		})
	}

	return ProtocolResult{
		Message: "Data processed and saved to JSON under the key " + key,
		Key:     key,
	}, nil
}
