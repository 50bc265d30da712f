/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers the pages and static assets on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Handle("/static/*", h.StaticHandler())

	r.Get("/", h.Index)
	r.Get("/signup", h.Signup)
	r.Get("/protocol", h.Protocol)
}

// Index renders the landing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "index", PageData{Title: "Protocol Registry"})
}

// Signup renders the participant sign-up form.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "signup", PageData{Title: "Participant Sign-Up"})
}

// Protocol renders the protocol entry form.
func (h *Handler) Protocol(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "protocol", PageData{Title: "Protocol Entry"})
}
