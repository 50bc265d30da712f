package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func newTestRouter(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	h, err := NewHandler(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	r := chi.NewRouter()
	h.Routes(r)
	return h, r
}

func TestPagesRender(t *testing.T) {
	_, r := newTestRouter(t)

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"<title>Protocol Registry</title>", `href="/signup"`, `href="/protocol"`}},
		{"/signup", []string{`id="signup-form"`, `name="university"`, `/static/js/signup.js`}},
		{"/protocol", []string{`id="survey-form"`, `id="participantID"`, `/static/js/protocol.js`}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Fatalf("content type = %q", ct)
			}
			body := rr.Body.String()
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("body missing %q", s)
				}
			}
		})
	}
}

func TestIndexHasNoFormScript(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Contains(rr.Body.String(), "signup.js") || strings.Contains(rr.Body.String(), "protocol.js") {
		t.Fatal("index page should not load form scripts")
	}
}

func TestStaticAssets(t *testing.T) {
	_, r := newTestRouter(t)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/static/js/signup.js", "application/javascript; charset=utf-8", "/submit-participant"},
		{"/static/js/protocol.js", "application/javascript; charset=utf-8", "/submit-protocol"},
		{"/static/css/forms.css", "text/css; charset=utf-8", ".topnav"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != tt.contentType {
				t.Fatalf("content type = %q", ct)
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Fatalf("body missing %q", tt.contains)
			}
		})
	}
}

func TestStaticMissingFile(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/js/missing.js", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	h.Render(rr, httptest.NewRequest(http.MethodGet, "/", nil), "nope", PageData{})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		current, path string
		want          bool
	}{
		{"/", "/", true},
		{"/signup", "/", false},
		{"/signup", "/signup", true},
		{"/protocol", "/signup", false},
	}
	for _, tt := range tests {
		if got := isActive(tt.current, tt.path); got != tt.want {
			t.Errorf("isActive(%q, %q) = %v, want %v", tt.current, tt.path, got, tt.want)
		}
	}
}
