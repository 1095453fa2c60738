package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"cultura/internal/infrastructure/docstore"
)

func setupImporter(t *testing.T) (*Importer, *docstore.Store) {
	t.Helper()

	backend, err := docstore.OpenBackend(context.Background(), "", true)
	if err != nil {
		t.Fatalf("OpenBackend() error = %v", err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})
	store := docstore.NewStore(backend)

	importer := NewImporter(store)
	importer.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	seq := 0
	importer.newID = func() string {
		seq++
		return "gen-" + string(rune('0'+seq))
	}
	return importer, store
}

func TestImportYAMLCountsDuplicatesAndErrors(t *testing.T) {
	importer, store := setupImporter(t)
	ctx := context.Background()

	input := `
- title: Concert de Jazz
  dates:
    start: "2026-06-15T19:30:00"
- title: Concert de Jazz
  dates:
    start: "2026-06-15T19:30:00"
- description: no title nor id
- id: ext-7
  source: paris_open_data
  fetched_at: "2026-02-01T10:00:00Z"
  raw_hash: fixed-hash
  payload:
    title: Exposition Monet
`
	stats, err := importer.Import(ctx, strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if stats.Inserted != 2 || stats.Duplicates != 1 || stats.Errors != 1 {
		t.Fatalf("Import() stats = %+v, want inserted=2 duplicates=1 errors=1", stats)
	}

	rec, err := store.GetRaw(ctx, "ext-7")
	if err != nil {
		t.Fatalf("GetRaw(ext-7) error = %v", err)
	}
	if rec.Source != "paris_open_data" || rec.Hash != "fixed-hash" {
		t.Fatalf("envelope record = %+v", rec)
	}
	if !rec.FetchedAt.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("envelope fetched_at = %v", rec.FetchedAt)
	}

	bare, err := store.GetRaw(ctx, "gen-1")
	if err != nil {
		t.Fatalf("GetRaw(gen-1) error = %v", err)
	}
	if bare.Source != "manual" || bare.Hash == "" {
		t.Fatalf("bare record = %+v", bare)
	}
}

func TestImportJSONRecordsWrapper(t *testing.T) {
	importer, store := setupImporter(t)
	ctx := context.Background()

	input := `{"records": [{"title": "Ballet"}, {"id": "only-id"}]}`
	stats, err := importer.Import(ctx, strings.NewReader(input), "que_faire_a_paris")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if stats.Inserted != 2 {
		t.Fatalf("Import() stats = %+v, want 2 inserted", stats)
	}

	count, err := store.CountRaw(ctx)
	if err != nil {
		t.Fatalf("CountRaw() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("CountRaw() = %d, want 2", count)
	}
}

func TestImportRejectsMalformedStream(t *testing.T) {
	importer, _ := setupImporter(t)

	if _, err := importer.Import(context.Background(), strings.NewReader("- [unclosed"), ""); err == nil {
		t.Fatalf("Import() expected decode error")
	}
}
