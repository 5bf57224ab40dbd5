package metastore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/metadata"
)

// Registry serves resolved table schemas. Resolution results are cached
// per (relation, version); a version bump in the store naturally misses
// the cache and triggers a fresh resolution. Refresh publishes a
// schema-update event so sessions holding old snapshots can re-read.
type Registry struct {
	store    *Store
	notifier *Notifier

	mu    sync.RWMutex
	cache map[cacheKey]*docschema.Table
}

type cacheKey struct {
	relation metadata.RelationName
	version  int
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store *Store) *Registry {
	return &Registry{
		store:    store,
		notifier: NewNotifier(16),
		cache:    make(map[cacheKey]*docschema.Table),
	}
}

// GetTable returns the resolved schema of a table at its current
// version.
func (r *Registry) GetTable(ctx context.Context, relation metadata.RelationName) (*docschema.Table, error) {
	stored, err := r.store.Get(ctx, relation)
	if err != nil {
		return nil, err
	}
	key := cacheKey{relation: relation, version: stored.Version}

	r.mu.RLock()
	table, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err = docschema.Resolve(relation, stored.Meta)
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to resolve schema for %s: %w", relation.FQN(), err)
	}

	r.mu.Lock()
	r.cache[key] = table
	// Stale versions of the same relation are unreachable once the
	// store moved past them.
	for k := range r.cache {
		if k.relation == relation && k.version < stored.Version {
			delete(r.cache, k)
		}
	}
	r.mu.Unlock()
	return table, nil
}

// UpdateTable stores new metadata for a table, resolves the new schema
// eagerly, and publishes a schema-update event. Resolution failures
// reject the update before anything is cached, but the metadata is
// already persisted at that point; callers should validate mappings
// before calling UpdateTable.
func (r *Registry) UpdateTable(ctx context.Context, relation metadata.RelationName, meta *docschema.IndexMetadata) (*docschema.Table, error) {
	version, err := r.store.Put(ctx, relation, meta)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.Get(ctx, relation)
	if err != nil {
		return nil, err
	}
	table, err := docschema.Resolve(relation, stored.Meta)
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to resolve schema for %s: %w", relation.FQN(), err)
	}

	r.mu.Lock()
	r.cache[cacheKey{relation: relation, version: version}] = table
	r.mu.Unlock()

	log.Printf("metastore: table %s updated to schema version %d", relation.FQN(), version)
	r.notifier.Publish(SchemaUpdate{
		Type:     SchemaUpdated,
		Relation: relation,
		Version:  version,
	})
	return table, nil
}

// DropTable removes a table's metadata and evicts it from the cache.
func (r *Registry) DropTable(ctx context.Context, relation metadata.RelationName) error {
	if err := r.store.Delete(ctx, relation); err != nil {
		return err
	}
	r.mu.Lock()
	for k := range r.cache {
		if k.relation == relation {
			delete(r.cache, k)
		}
	}
	r.mu.Unlock()

	r.notifier.Publish(SchemaUpdate{
		Type:     SchemaDropped,
		Relation: relation,
	})
	return nil
}

// Subscribe registers a schema-update subscriber filtered by schema
// name prefixes. An empty filter list receives all events.
func (r *Registry) Subscribe(id string, filters []string) *Subscriber {
	return r.notifier.Subscribe(id, filters)
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Registry) Unsubscribe(id string) {
	r.notifier.Unsubscribe(id)
}
