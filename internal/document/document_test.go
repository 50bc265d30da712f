package document

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/blobstore"
)

const blob = "protocol_database.json"

func TestLoadDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(store *blobstore.MemoryStorage)
		store func(mem *blobstore.MemoryStorage) blobstore.Store
	}{
		{
			name:  "missing blob",
			setup: func(*blobstore.MemoryStorage) {},
		},
		{
			name: "invalid json",
			setup: func(store *blobstore.MemoryStorage) {
				_ = store.Save(context.Background(), blob, []byte("{not json"), ContentType)
			},
		},
		{
			name: "json array",
			setup: func(store *blobstore.MemoryStorage) {
				_ = store.Save(context.Background(), blob, []byte(`[1,2,3]`), ContentType)
			},
		},
		{
			name:  "read failure",
			setup: func(*blobstore.MemoryStorage) {},
			store: func(mem *blobstore.MemoryStorage) blobstore.Store {
				return brokenStore{Store: mem}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := blobstore.NewMemoryStorage()
			tt.setup(mem)
			var store blobstore.Store = mem
			if tt.store != nil {
				store = tt.store(mem)
			}

			doc := NewCodec(store, blob, zerolog.Nop()).Load(context.Background())
			if doc == nil || len(doc) != 0 {
				t.Fatalf("Load() = %v, want empty non-nil document", doc)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	codec := NewCodec(blobstore.NewMemoryStorage(), blob, zerolog.Nop())
	ctx := context.Background()

	want := Document{
		"entry_1": json.RawMessage(`{"studyTitle":"Pilot","cellLines":[{"cellLineType":"Primary","cellLineName":"HEK"}]}`),
		"entry_2": json.RawMessage(`{"targets":["a","b"],"nested":{"n":1.5,"ok":true,"none":null}}`),
	}
	if err := codec.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := codec.Load(ctx)
	if diff := cmp.Diff(normalize(t, want), normalize(t, got)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeIsIndentedAndSorted(t *testing.T) {
	data, err := Encode(Document{
		"entry_2": json.RawMessage(`{"b":1}`),
		"entry_1": json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := "{\n    \"entry_1\": {\n        \"a\": 1\n    },\n    \"entry_2\": {\n        \"b\": 1\n    }\n}"
	if string(data) != want {
		t.Fatalf("Encode() =\n%s\nwant\n%s", data, want)
	}
}

func TestEncodeNilDocument(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) error: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("Encode(nil) = %q, want {}", data)
	}
}

func TestSaveSetsContentType(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	codec := NewCodec(store, blob, zerolog.Nop())
	if err := codec.Save(context.Background(), Document{}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if ct := store.ContentType(blob); ct != ContentType {
		t.Fatalf("content type = %q, want %q", ct, ContentType)
	}
}

func TestSaveSurfacesStoreErrors(t *testing.T) {
	codec := NewCodec(brokenStore{Store: blobstore.NewMemoryStorage()}, blob, zerolog.Nop())
	err := codec.Save(context.Background(), Document{})
	if err == nil || !strings.Contains(err.Error(), "save protocols") {
		t.Fatalf("Save() error = %v, want wrapped store error", err)
	}
}

func TestDecodeNull(t *testing.T) {
	doc, err := Decode([]byte("null"))
	if err != nil {
		t.Fatalf("Decode(null) error: %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Fatalf("Decode(null) = %v, want empty document", doc)
	}
}

type brokenStore struct {
	blobstore.Store
}

func (brokenStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	return errors.New("connection reset")
}

func normalize(t *testing.T, doc Document) map[string]any {
	t.Helper()
	out := make(map[string]any, len(doc))
	for k, raw := range doc {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal %s: %v", k, err)
		}
		out[k] = v
	}
	return out
}
