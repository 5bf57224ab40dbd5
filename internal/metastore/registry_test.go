package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/meridiandb/meridian/internal/metadata"
)

func newTestRegistry(t *testing.T) (*Registry, func()) {
	t.Helper()
	store, cleanup := newTestStore(t)
	return NewRegistry(store), cleanup
}

func TestRegistryGetTable(t *testing.T) {
	registry, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")

	if _, err := registry.UpdateTable(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
		"ts": map[string]any{"type": "date"},
	})); err != nil {
		t.Fatalf("failed to update table: %v", err)
	}

	table, err := registry.GetTable(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	if _, ok := table.Reference(metadata.NewColumnIdent("id")); !ok {
		t.Error("expected id column")
	}

	// Same version hits the cache and returns the same snapshot.
	again, err := registry.GetTable(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get table again: %v", err)
	}
	if again != table {
		t.Error("expected the cached snapshot")
	}
}

func TestRegistryUpdatePublishesEvent(t *testing.T) {
	registry, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	sub := registry.Subscribe("watcher", nil)
	defer registry.Unsubscribe("watcher")

	if _, err := registry.UpdateTable(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to update table: %v", err)
	}

	select {
	case update := <-sub.Ch:
		if update.Type != SchemaUpdated {
			t.Errorf("expected SchemaUpdated, got %v", update.Type)
		}
		if update.Relation != relation || update.Version != 1 {
			t.Errorf("unexpected event: %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("no schema event received")
	}
}

func TestRegistryVersionBumpRefreshesSnapshot(t *testing.T) {
	registry, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")

	v1, err := registry.UpdateTable(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	}))
	if err != nil {
		t.Fatalf("failed to update to v1: %v", err)
	}

	v2, err := registry.UpdateTable(ctx, relation, testMetadata(map[string]any{
		"id":     map[string]any{"type": "keyword"},
		"region": map[string]any{"type": "text"},
	}))
	if err != nil {
		t.Fatalf("failed to update to v2: %v", err)
	}
	if v1 == v2 {
		t.Fatal("expected a new snapshot after a mapping change")
	}
	if _, ok := v2.Reference(metadata.NewColumnIdent("region")); !ok {
		t.Error("expected region column in the new snapshot")
	}

	current, err := registry.GetTable(ctx, relation)
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	if current != v2 {
		t.Error("expected GetTable to serve the latest snapshot")
	}
}

func TestRegistryDropTable(t *testing.T) {
	registry, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()
	relation := metadata.NewRelationName("doc", "events")
	sub := registry.Subscribe("watcher", nil)
	defer registry.Unsubscribe("watcher")

	if _, err := registry.UpdateTable(ctx, relation, testMetadata(map[string]any{
		"id": map[string]any{"type": "keyword"},
	})); err != nil {
		t.Fatalf("failed to update table: %v", err)
	}
	<-sub.Ch // consume the update event

	if err := registry.DropTable(ctx, relation); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
	if _, err := registry.GetTable(ctx, relation); err == nil {
		t.Error("expected dropped table to be gone")
	}

	select {
	case update := <-sub.Ch:
		if update.Type != SchemaDropped {
			t.Errorf("expected SchemaDropped, got %v", update.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no drop event received")
	}
}
