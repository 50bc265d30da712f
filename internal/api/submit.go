/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/friendsincode/protoreg/internal/registration"
)

const msgNoData = "No data received"

var (
	errNoData       = errors.New(msgNoData)
	errBodyTooLarge = errors.New("request body too large")
)

// readSubmission returns the request body when it holds a non-null JSON value.
func (a *API) readSubmission(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body := r.Body
	if a.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, a.maxBody)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, errNoData
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) || bytes.Equal(data, []byte("null")) {
		return nil, errNoData
	}
	return data, nil
}

func (a *API) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, msgNoData)
}

func (a *API) handleSubmitParticipant(w http.ResponseWriter, r *http.Request) {
	payload, err := a.readSubmission(w, r)
	if err != nil {
		a.writeReadError(w, err)
		return
	}

	form, err := registration.ParseParticipantForm(payload)
	if err != nil {
		a.logger.Warn().Err(err).Msg("participant submission rejected")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := a.participants.Register(r.Context(), form)
	if err != nil {
		a.logger.Error().Err(err).Msg("participant registration failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSubmitProtocol(w http.ResponseWriter, r *http.Request) {
	payload, err := a.readSubmission(w, r)
	if err != nil {
		a.writeReadError(w, err)
		return
	}

	result, err := a.protocols.Record(r.Context(), payload)
	if err != nil {
		a.logger.Error().Err(err).Msg("protocol registration failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
