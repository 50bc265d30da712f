/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package registration turns form submissions into rows and entries in the
// participant table and the protocol document.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/protoreg/internal/events"
	"github.com/friendsincode/protoreg/internal/lock"
	"github.com/friendsincode/protoreg/internal/sheet"
	"github.com/friendsincode/protoreg/internal/telemetry"
)

// Participant IDs are drawn uniformly from this inclusive range.
const (
	MinParticipantID = 100000
	MaxParticipantID = 999999
)

// ParticipantSavedMessage is returned with every assigned participant ID.
const ParticipantSavedMessage = "Data received and saved to storage"

var (
	// ErrMissingField is returned when a required participant field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrNotObject is returned when a participant submission is not a JSON object.
	ErrNotObject = errors.New("submission must be a JSON object")
)

// Form field names of the sign-up form, in table column order.
const (
	FieldFirstName  = "firstName"
	FieldMiddleName = "middleName"
	FieldLastName   = "lastName"
	FieldUniversity = "university"
	FieldEmail      = "email"
)

var requiredParticipantFields = []string{FieldFirstName, FieldMiddleName, FieldLastName, FieldUniversity, FieldEmail}

// ParticipantForm is a decoded sign-up submission.
type ParticipantForm struct {
	FirstName  string
	MiddleName string
	LastName   string
	University string
	Email      string
}

// ParticipantResult is returned to the submitter.
type ParticipantResult struct {
	Message       string `json:"message"`
	ParticipantID int    `json:"Participant ID"`
}

// ParseParticipantForm decodes a sign-up submission. Every field must be
// present; values are taken as-is, with null read as empty and non-string
// JSON kept as its literal text.
func ParseParticipantForm(data []byte) (ParticipantForm, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ParticipantForm{}, ErrNotObject
	}

	values := make(map[string]string, len(requiredParticipantFields))
	for _, name := range requiredParticipantFields {
		raw, ok := fields[name]
		if !ok {
			return ParticipantForm{}, fmt.Errorf("%w %q", ErrMissingField, name)
		}
		values[name] = fieldText(raw)
	}

	return ParticipantForm{
		FirstName:  values[FieldFirstName],
		MiddleName: values[FieldMiddleName],
		LastName:   values[FieldLastName],
		University: values[FieldUniversity],
		Email:      values[FieldEmail],
	}, nil
}

func fieldText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// ParticipantService appends sign-ups to the participant table.
type ParticipantService struct {
	codec  *sheet.Codec
	locker lock.Locker
	bus    events.Publisher
	intN   func(n int) int
	logger zerolog.Logger
}

// Option customizes a ParticipantService.
type Option func(*ParticipantService)

// WithIntN replaces the random source used to draw participant IDs.
// intN must return a value in [0, n).
func WithIntN(intN func(n int) int) Option {
	return func(s *ParticipantService) { s.intN = intN }
}

// NewParticipantService creates the sign-up handler. bus may be nil.
func NewParticipantService(codec *sheet.Codec, locker lock.Locker, bus events.Publisher, logger zerolog.Logger, opts ...Option) *ParticipantService {
	s := &ParticipantService{
		codec:  codec,
		locker: locker,
		bus:    bus,
		intN:   rand.IntN,
		logger: logger.With().Str("component", "participant_registration").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register loads the table, assigns a fresh ID, appends the participant and
// writes the table back.
func (s *ParticipantService) Register(ctx context.Context, form ParticipantForm) (result ParticipantResult, err error) {
	ctx, span := telemetry.StartSubmissionSpan(ctx, "participant")
	defer span.End()
	defer func() {
		telemetry.RecordError(span, err)
		telemetry.SubmissionsTotal.WithLabelValues("participant", resultLabel(err)).Inc()
	}()

	release, err := s.locker.Acquire(ctx, s.codec.Blob())
	if err != nil {
		return ParticipantResult{}, fmt.Errorf("lock participant table: %w", err)
	}
	defer release()

	table, err := s.codec.Load(ctx)
	if err != nil {
		return ParticipantResult{}, err
	}

	id := s.mintID(table)
	table.Append(sheet.Participant{
		ID:          id,
		FirstName:   form.FirstName,
		MiddleName:  form.MiddleName,
		LastName:    form.LastName,
		Affiliation: form.University,
		Email:       form.Email,
	})

	if err := s.codec.Save(ctx, table); err != nil {
		return ParticipantResult{}, err
	}

	span.SetAttributes(attribute.Int("participant.id", id), attribute.Int("participant.rows", table.Len()))
	s.logger.Info().Int("participant_id", id).Int("rows", table.Len()).Msg("participant registered")

	if s.bus != nil {
		s.bus.Publish(events.EventParticipantRegistered, events.Payload{
			"participant_id": id,
			"blob":           s.codec.Blob(),
			"rows":           table.Len(),
		})
	}

	return ParticipantResult{Message: ParticipantSavedMessage, ParticipantID: id}, nil
}

// mintID draws until it finds an ID not already in the table. The loop is
// unbounded; it only degrades as the table nears the size of the ID range.
func (s *ParticipantService) mintID(table *sheet.Table) int {
	taken := make(map[int]struct{}, table.Len())
	for _, row := range table.Rows {
		taken[row.ID] = struct{}{}
	}

	for {
		id := MinParticipantID + s.intN(MaxParticipantID-MinParticipantID+1)
		if _, dup := taken[id]; !dup {
			return id
		}
		telemetry.ParticipantIDRedraws.Inc()
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
