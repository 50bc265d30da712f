/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package web serves the landing page and the two submission forms.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

const layoutGlob = "templates/layouts/*.html"

// Handler renders the form pages.
type Handler struct {
	logger zerolog.Logger
	pages  map[string]*template.Template // keyed by page name, e.g. "signup"
}

// PageData is the root value handed to every page.
type PageData struct {
	Title       string
	CurrentPath string
	Data        any
}

// NewHandler parses the embedded pages, one template set per page so each
// page can define its own "content" and "scripts" blocks.
func NewHandler(logger zerolog.Logger) (*Handler, error) {
	h := &Handler{
		logger: logger.With().Str("component", "web").Logger(),
		pages:  make(map[string]*template.Template),
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	funcs := template.FuncMap{"isActive": isActive}
	for _, file := range files {
		tmpl, err := template.New(path.Base(file)).Funcs(funcs).ParseFS(templateFS, layoutGlob, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		h.pages[name] = tmpl
		h.logger.Debug().Str("page", name).Msg("page parsed")
	}
	return h, nil
}

// Render executes the named page.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request, page string, data PageData) {
	tmpl, ok := h.pages[page]
	if !ok {
		h.logger.Error().Str("page", page).Msg("unknown page")
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	data.CurrentPath = r.URL.Path
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, page+".html", data); err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

var staticTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "application/javascript; charset=utf-8",
}

// StaticHandler serves the embedded scripts and stylesheet under /static/.
func (h *Handler) StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct, ok := staticTypes[path.Ext(r.URL.Path)]; ok {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	}))
}

func isActive(current, target string) bool {
	if target == "/" {
		return current == "/"
	}
	return strings.HasPrefix(current, target)
}
