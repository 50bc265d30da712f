/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"fmt"

	"github.com/friendsincode/protoreg/internal/audit"
	"github.com/friendsincode/protoreg/internal/db"
	"github.com/friendsincode/protoreg/internal/eventbus"
)

// initLedger opens the submission ledger when a backend is configured.
func (s *Server) initLedger() error {
	if !s.cfg.AuditEnabled() {
		return nil
	}
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.auditSvc = audit.NewService(database, s.bus, s.logger)
	s.logger.Info().Str("backend", string(s.cfg.AuditDBBackend)).Msg("submission ledger enabled")
	return nil
}

// initForwarders connects the configured brokers that mirror bus events.
func (s *Server) initForwarders() error {
	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		f, err := eventbus.NewNATSForwarder(natsCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("create nats forwarder: %w", err)
		}
		s.addForwarder(f)
	}

	if s.cfg.EventsRedis {
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		f, err := eventbus.NewRedisForwarder(redisCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("create redis forwarder: %w", err)
		}
		s.addForwarder(f)
	}
	return nil
}

func (s *Server) addForwarder(f *eventbus.Forwarder) {
	s.forwarders = append(s.forwarders, f)
	s.DeferClose(f.Close)
	s.logger.Info().Str("broker", f.Name()).Msg("event forwarding enabled")
}
