package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/blobstore"
	"github.com/friendsincode/protoreg/internal/document"
	"github.com/friendsincode/protoreg/internal/lock"
	"github.com/friendsincode/protoreg/internal/registration"
	"github.com/friendsincode/protoreg/internal/sheet"
)

const (
	participantBlob = "participant_data.xlsx"
	protocolBlob    = "protocol_database.json"
)

func newTestRouter(t *testing.T, store blobstore.Store, maxBody int64) http.Handler {
	t.Helper()
	locker := lock.NewLocal()
	participants := registration.NewParticipantService(
		sheet.NewCodec(store, participantBlob, zerolog.Nop()), locker, nil, zerolog.Nop())
	protocols := registration.NewProtocolService(
		document.NewCodec(store, protocolBlob, zerolog.Nop()), locker, nil, zerolog.Nop())

	r := chi.NewRouter()
	New(participants, protocols, maxBody, zerolog.Nop()).Routes(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return got
}

func TestSubmitParticipantCreatesFirstRow(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	h := newTestRouter(t, store, 0)

	rr := post(t, h, "/submit-participant",
		`{"firstName":"Ada","middleName":"","lastName":"Lovelace","university":"Analytical Eng.","email":"ada@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	got := decodeBody(t, rr)
	if got["message"] != "Data received and saved to storage" {
		t.Fatalf("message = %v", got["message"])
	}
	id, ok := got["Participant ID"].(float64)
	if !ok || id < registration.MinParticipantID || id > registration.MaxParticipantID {
		t.Fatalf("Participant ID = %v", got["Participant ID"])
	}

	table, err := sheet.NewCodec(store, participantBlob, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	want := []sheet.Participant{{
		ID: int(id), FirstName: "Ada", LastName: "Lovelace", Affiliation: "Analytical Eng.", Email: "ada@example.com",
	}}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitProtocolAppendsEntry(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	if err := store.Save(context.Background(), protocolBlob, []byte(`{"entry_1": {"studyTitle": "Baseline"}}`), document.ContentType); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := newTestRouter(t, store, 0)

	rr := post(t, h, "/submit-protocol", `{"studyTitle":"Pilot"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if diff := cmp.Diff(map[string]any{"message": "Data processed and saved to JSON under the key entry_2"}, decodeBody(t, rr)); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}

	doc := document.NewCodec(store, protocolBlob, zerolog.Nop()).Load(context.Background())
	if len(doc) != 2 {
		t.Fatalf("entries = %d, want 2", len(doc))
	}
}

func TestSubmitProtocolFirstEntry(t *testing.T) {
	h := newTestRouter(t, blobstore.NewMemoryStorage(), 0)

	rr := post(t, h, "/submit-protocol", `{"participantID":"123456","step1Data":{"a":"b"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "Data processed and saved to JSON under the key entry_1" {
		t.Fatalf("message = %v", got)
	}
}

func TestSubmitRejectsMissingBody(t *testing.T) {
	bodies := map[string]string{
		"empty":      "",
		"whitespace": "  \n",
		"null":       "null",
		"malformed":  `{"firstName":`,
	}

	for _, path := range []string{"/submit-participant", "/submit-protocol"} {
		for name, body := range bodies {
			t.Run(path+"/"+name, func(t *testing.T) {
				store := blobstore.NewMemoryStorage()
				rr := post(t, newTestRouter(t, store, 0), path, body)
				if rr.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rr.Code)
				}
				if diff := cmp.Diff(map[string]any{"error": "No data received"}, decodeBody(t, rr)); diff != "" {
					t.Fatalf("response mismatch (-want +got):\n%s", diff)
				}
				if _, err := store.Load(context.Background(), participantBlob); err == nil {
					t.Fatal("participant blob written on rejected request")
				}
				if _, err := store.Load(context.Background(), protocolBlob); err == nil {
					t.Fatal("protocol blob written on rejected request")
				}
			})
		}
	}
}

func TestSubmitParticipantMissingField(t *testing.T) {
	h := newTestRouter(t, blobstore.NewMemoryStorage(), 0)

	rr := post(t, h, "/submit-participant", `{"firstName":"Ada","middleName":"","lastName":"Lovelace","university":"U"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != `missing required field "email"` {
		t.Fatalf("error = %v", got)
	}
}

func TestSubmitParticipantStoreFailure(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	if err := store.Save(context.Background(), participantBlob, []byte("garbage"), sheet.ContentType); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := newTestRouter(t, store, 0)

	rr := post(t, h, "/submit-participant", `{"firstName":"A","middleName":"B","lastName":"C","university":"D","email":"E"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if msg, _ := decodeBody(t, rr)["error"].(string); !strings.HasPrefix(msg, "load participants:") {
		t.Fatalf("error = %q", msg)
	}
}

func TestSubmitBodyCap(t *testing.T) {
	h := newTestRouter(t, blobstore.NewMemoryStorage(), 16)

	rr := post(t, h, "/submit-protocol", `{"studyTitle":"a much longer title than sixteen bytes"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
}

func TestSubmitRequiresPost(t *testing.T) {
	h := newTestRouter(t, blobstore.NewMemoryStorage(), 0)

	req := httptest.NewRequest(http.MethodGet, "/submit-protocol", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}
