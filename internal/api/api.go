/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/registration"
)

// API exposes the JSON submission handlers.
type API struct {
	participants *registration.ParticipantService
	protocols    *registration.ProtocolService
	maxBody      int64
	logger       zerolog.Logger
}

// New creates the API router wrapper. maxBody caps request bodies in bytes;
// zero leaves them uncapped.
func New(participants *registration.ParticipantService, protocols *registration.ProtocolService, maxBody int64, logger zerolog.Logger) *API {
	return &API{
		participants: participants,
		protocols:    protocols,
		maxBody:      maxBody,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers the submission endpoints.
func (a *API) Routes(r chi.Router) {
	r.Post("/submit-participant", a.handleSubmitParticipant)
	r.Post("/submit-protocol", a.handleSubmitProtocol)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
