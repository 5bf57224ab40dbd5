package metastore

import (
	"context"
	"testing"

	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/internal/storage"
)

func newTestArchiver(t *testing.T) (*Archiver, *Store, func()) {
	t.Helper()
	store, cleanup := newTestStore(t)
	objects, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		cleanup()
		t.Fatalf("failed to create local storage: %v", err)
	}
	return NewArchiver(store, objects, "archives"), store, cleanup
}

func TestArchiverExportRestore(t *testing.T) {
	archiver, store, cleanup := newTestArchiver(t)
	defer cleanup()

	ctx := context.Background()
	events := metadata.NewRelationName("doc", "events")
	orders := metadata.NewRelationName("custom", "orders")

	if _, err := store.Put(ctx, events, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
		"ts": map[string]any{"type": "date"},
	})); err != nil {
		t.Fatalf("failed to put events: %v", err)
	}
	if _, err := store.Put(ctx, orders, testMetadata(map[string]any{
		"total": map[string]any{"type": "double"},
	})); err != nil {
		t.Fatalf("failed to put orders: %v", err)
	}

	archiveID, err := archiver.Export(ctx)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if archiveID == "" {
		t.Fatal("expected a non-empty archive id")
	}

	// Wipe the store, then rebuild it from the archive.
	if err := store.Delete(ctx, events); err != nil {
		t.Fatalf("failed to delete events: %v", err)
	}
	if err := store.Delete(ctx, orders); err != nil {
		t.Fatalf("failed to delete orders: %v", err)
	}

	restored, err := archiver.Restore(ctx, archiveID)
	if err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
	if restored != 2 {
		t.Errorf("expected 2 restored tables, got %d", restored)
	}

	stored, err := store.Get(ctx, events)
	if err != nil {
		t.Fatalf("failed to get restored events: %v", err)
	}
	if stored.Meta.UUID == "" {
		t.Error("expected restored uuid")
	}
	if _, ok := stored.Meta.Mapping["properties"]; !ok {
		t.Error("expected restored mapping to carry properties")
	}
}

func TestArchiverReadTable(t *testing.T) {
	archiver, store, cleanup := newTestArchiver(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	if _, err := store.Put(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	archiveID, err := archiver.Export(ctx)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	meta, version, err := archiver.ReadTable(ctx, archiveID, relation)
	if err != nil {
		t.Fatalf("failed to read archived table: %v", err)
	}
	if version != 1 {
		t.Errorf("expected archived version 1, got %d", version)
	}
	if meta.NumberOfShards != 4 {
		t.Errorf("expected 4 shards, got %d", meta.NumberOfShards)
	}
}

func TestArchiverReadUnknownTable(t *testing.T) {
	archiver, store, cleanup := newTestArchiver(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := store.Put(ctx, metadata.NewRelationName("doc", "events"), testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	archiveID, err := archiver.Export(ctx)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	if _, _, err := archiver.ReadTable(ctx, archiveID, metadata.NewRelationName("doc", "missing")); err == nil {
		t.Error("expected error for table not in archive")
	}
}

func TestArchiverListArchives(t *testing.T) {
	archiver, store, cleanup := newTestArchiver(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := store.Put(ctx, metadata.NewRelationName("doc", "events"), testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	archiveID, err := archiver.Export(ctx)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	ids, err := archiver.ListArchives(ctx)
	if err != nil {
		t.Fatalf("failed to list archives: %v", err)
	}
	if len(ids) != 1 || ids[0] != archiveID {
		t.Errorf("expected [%s], got %v", archiveID, ids)
	}
}
