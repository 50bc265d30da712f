/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards in-process submission events to an external
// broker (NATS or Redis pub/sub).
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/events"
)

// message is the envelope published for every event.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

// publisher is the broker side of a forwarder.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder relays bus events to broker subjects named
// <prefix><sep><event type>.
type Forwarder struct {
	name         string
	conn         publisher
	close        func() error
	bus          *events.Bus
	participants events.Subscriber
	protocols    events.Subscriber
	prefix       string
	sep          string
	nodeID       string
	logger       zerolog.Logger
}

func newForwarder(name string, conn publisher, bus *events.Bus, prefix, sep string, logger zerolog.Logger) *Forwarder {
	// Subscribe up front so events published before Run starts are buffered.
	return &Forwarder{
		name:         name,
		conn:         conn,
		bus:          bus,
		participants: bus.Subscribe(events.EventParticipantRegistered),
		protocols:    bus.Subscribe(events.EventProtocolRecorded),
		prefix:       prefix,
		sep:          sep,
		nodeID:       generateNodeID(),
		logger:       logger.With().Str("component", name+"_forwarder").Logger(),
	}
}

// Name reports the broker kind.
func (f *Forwarder) Name() string { return f.name }

// Run forwards events until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	defer func() {
		f.bus.Unsubscribe(events.EventParticipantRegistered, f.participants)
		f.bus.Unsubscribe(events.EventProtocolRecorded, f.protocols)
	}()

	for {
		var (
			eventType events.EventType
			payload   events.Payload
			ok        bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok = <-f.participants:
			eventType = events.EventParticipantRegistered
		case payload, ok = <-f.protocols:
			eventType = events.EventProtocolRecorded
		}
		if !ok {
			return nil
		}
		if err := f.forward(eventType, payload); err != nil {
			f.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to forward event")
		}
	}
}

func (f *Forwarder) forward(eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    f.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return f.conn.Publish(f.subject(eventType), data)
}

func (f *Forwarder) subject(eventType events.EventType) string {
	return f.prefix + f.sep + string(eventType)
}

// Close releases the broker connection.
func (f *Forwarder) Close() error {
	if f.close != nil {
		return f.close()
	}
	return nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
