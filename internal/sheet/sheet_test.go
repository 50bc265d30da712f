package sheet

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/friendsincode/protoreg/internal/blobstore"
)

func TestLoadMissingBlobReturnsEmptyTable(t *testing.T) {
	codec := NewCodec(blobstore.NewMemoryStorage(), "participant_data.xlsx", zerolog.Nop())

	table, err := codec.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", table.Len())
	}
}

func TestSaveWritesFixedHeadersForEmptyTable(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	codec := NewCodec(store, "participant_data.xlsx", zerolog.Nop())
	ctx := context.Background()

	if err := codec.Save(ctx, &Table{}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if ct := store.ContentType("participant_data.xlsx"); ct != ContentType {
		t.Fatalf("content type = %q, want %q", ct, ContentType)
	}

	data, _ := store.Load(ctx, "participant_data.xlsx")
	rows := readRows(t, data)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
	if diff := cmp.Diff(Headers, rows[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	codec := NewCodec(blobstore.NewMemoryStorage(), "participant_data.xlsx", zerolog.Nop())
	ctx := context.Background()

	want := &Table{Rows: []Participant{
		{ID: 123456, FirstName: "Ada", MiddleName: "", LastName: "Lovelace", Affiliation: "Analytical Eng.", Email: "ada@example.com"},
		{ID: 999999, FirstName: "Grace", MiddleName: "Brewster", LastName: "Hopper", Affiliation: "Yale", Email: "grace@example.com"},
		{ID: 100000, FirstName: "Mononym", LastName: "", Affiliation: "", Email: ""},
	}}

	if err := codec.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := codec.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLocatesColumnsByHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"E-mail", "Participant ID", "Last Name", "First Name"},
		{"x@example.com", 222222, "Curie", "Marie"},
		{nil, nil, nil, nil},
		{"y@example.com", "333333.0", "Noether", "Emmy"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	table, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []Participant{
		{ID: 222222, FirstName: "Marie", LastName: "Curie", Email: "x@example.com"},
		{ID: 333333, FirstName: "Emmy", LastName: "Noether", Email: "y@example.com"},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Fatalf("decoded rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSurfacesCorruptWorkbook(t *testing.T) {
	store := blobstore.NewMemoryStorage()
	ctx := context.Background()
	_ = store.Save(ctx, "participant_data.xlsx", []byte("not a workbook"), ContentType)

	codec := NewCodec(store, "participant_data.xlsx", zerolog.Nop())
	if _, err := codec.Load(ctx); err == nil {
		t.Fatal("expected corrupt workbook to fail loading")
	}
}

type failingStore struct {
	blobstore.Store
	err error
}

func (f failingStore) Load(ctx context.Context, key string) ([]byte, error) { return nil, f.err }

func TestLoadSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("network down")
	codec := NewCodec(failingStore{Store: blobstore.NewMemoryStorage(), err: boom}, "p.xlsx", zerolog.Nop())

	if _, err := codec.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want wrapped store error", err)
	}
}

func TestHasID(t *testing.T) {
	table := &Table{Rows: []Participant{{ID: 111111}, {ID: 222222}}}
	if !table.HasID(222222) {
		t.Fatal("HasID(222222) = false, want true")
	}
	if table.HasID(333333) {
		t.Fatal("HasID(333333) = true, want false")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "123456", want: 123456},
		{raw: "123456.0", want: 123456},
		{raw: "12.5", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	table, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer table.Close()
	rows, err := table.GetRows(table.GetSheetName(0))
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	return rows
}
