package metastore

import (
	"context"
	stderrors "errors"
	"os"
	"testing"

	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/metadata"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "metastore_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := Open(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to open store: %v", err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}

func testMetadata(properties map[string]any) *docschema.IndexMetadata {
	return &docschema.IndexMetadata{
		NumberOfShards:   4,
		NumberOfReplicas: "1",
		Mapping:          map[string]any{"properties": properties},
	}
}

func TestStorePutAssignsVersionAndUUID(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	meta := testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})

	version, err := store.Put(ctx, relation, meta)
	if err != nil {
		t.Fatalf("failed to put metadata: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	stored, err := store.Get(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if stored.Version != 1 {
		t.Errorf("expected stored version 1, got %d", stored.Version)
	}
	if stored.Meta.UUID == "" {
		t.Error("expected a generated uuid")
	}
	if stored.Meta.NumberOfShards != 4 || stored.Meta.NumberOfReplicas != "1" {
		t.Errorf("unexpected shard configuration: %d/%s",
			stored.Meta.NumberOfShards, stored.Meta.NumberOfReplicas)
	}
}

func TestStorePutKeepsVersionWhenMappingUnchanged(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	properties := map[string]any{
		"id": map[string]any{"type": "keyword"},
	}

	if _, err := store.Put(ctx, relation, testMetadata(properties)); err != nil {
		t.Fatalf("failed to put v1: %v", err)
	}

	// Same mapping with different settings keeps the version.
	again := testMetadata(properties)
	again.Settings = map[string]any{"blocks": map[string]any{"write": true}}
	version, err := store.Put(ctx, relation, again)
	if err != nil {
		t.Fatalf("failed to re-put: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 (no mapping change), got %d", version)
	}

	stored, err := store.Get(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if stored.Meta.Settings == nil {
		t.Error("expected updated settings to be stored")
	}
}

func TestStorePutBumpsVersionOnMappingChange(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")

	if _, err := store.Put(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to put v1: %v", err)
	}

	version, err := store.Put(ctx, relation, testMetadata(map[string]any{
		"id":     map[string]any{"type": "keyword"},
		"region": map[string]any{"type": "text"},
	}))
	if err != nil {
		t.Fatalf("failed to put v2: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestStorePutRejectsUUIDMismatch(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")

	first := testMetadata(map[string]any{"id": map[string]any{"type": "keyword"}})
	first.UUID = "uuid-a"
	if _, err := store.Put(ctx, relation, first); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	second := testMetadata(map[string]any{"id": map[string]any{"type": "keyword"}})
	second.UUID = "uuid-b"
	_, err := store.Put(ctx, relation, second)
	if err == nil {
		t.Fatal("expected uuid conflict error")
	}
	var me *errors.MeridianError
	if !stderrors.As(err, &me) || me.Code != errors.CodeVersionConflict {
		t.Errorf("expected VERSION_CONFLICT, got %v", err)
	}
}

func TestStoreGetRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	meta := testMetadata(map[string]any{
		"ts": map[string]any{"type": "date", "position": float64(1)},
	})
	meta.Closed = true
	meta.VersionCreated = "5.10.2"

	if _, err := store.Put(ctx, relation, meta); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	stored, err := store.Get(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !stored.Meta.Closed {
		t.Error("expected closed flag to round-trip")
	}
	if stored.Meta.VersionCreated != "5.10.2" {
		t.Errorf("expected version_created 5.10.2, got %q", stored.Meta.VersionCreated)
	}

	// The mapping survives compression and decodes back to the same shape.
	table, err := docschema.Resolve(relation, stored.Meta)
	if err != nil {
		t.Fatalf("failed to resolve stored mapping: %v", err)
	}
	if _, ok := table.Reference(metadata.NewColumnIdent("ts")); !ok {
		t.Error("expected ts column in resolved schema")
	}
}

func TestStoreGetUnknownTable(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), metadata.NewRelationName("doc", "missing"))
	if err == nil {
		t.Fatal("expected error")
	}
	var me *errors.MeridianError
	if !stderrors.As(err, &me) || me.Code != errors.CodeTableNotFound {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relations := []metadata.RelationName{
		metadata.NewRelationName("doc", "zz"),
		metadata.NewRelationName("doc", "aa"),
		metadata.NewRelationName("custom", "mm"),
	}
	for _, r := range relations {
		if _, err := store.Put(ctx, r, testMetadata(map[string]any{
			"id": map[string]any{"type": "keyword"},
		})); err != nil {
			t.Fatalf("failed to put %s: %v", r.FQN(), err)
		}
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(listed))
	}
	expected := []string{"custom.mm", "doc.aa", "doc.zz"}
	for i, e := range expected {
		if listed[i].Relation.FQN() != e {
			t.Errorf("position %d: expected %s, got %s", i, e, listed[i].Relation.FQN())
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	if _, err := store.Put(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	if err := store.Delete(ctx, relation); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := store.Get(ctx, relation); err == nil {
		t.Error("expected table to be gone")
	}

	// Deleting again reports the table missing.
	err := store.Delete(ctx, relation)
	var me *errors.MeridianError
	if !stderrors.As(err, &me) || me.Code != errors.CodeTableNotFound {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
}
