/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		SubjectPrefix: "protoreg.events",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSForwarder connects to NATS and returns a forwarder publishing to
// <prefix>.<event type>.
func NewNATSForwarder(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*Forwarder, error) {
	opts := []nats.Option{
		nats.Name("protoreg"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	logger.Info().Str("url", cfg.URL).Str("subject_prefix", prefix).Msg("nats event forwarding enabled")

	f := newForwarder("nats", nc, bus, prefix, ".", logger)
	f.close = func() error {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
		return nil
	}
	return f, nil
}
