package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/internal/storage"
)

// Archiver exports point-in-time snapshots of the metadata store to
// object storage. An archive is one JSON object per table plus a
// manifest listing what was written, so a store can be rebuilt from
// object storage alone.
type Archiver struct {
	store   *Store
	objects storage.ObjectStorage
	prefix  string
}

// NewArchiver creates an archiver writing under the given key prefix.
func NewArchiver(store *Store, objects storage.ObjectStorage, prefix string) *Archiver {
	return &Archiver{store: store, objects: objects, prefix: prefix}
}

// archivedTable is the wire form of one table in an archive.
type archivedTable struct {
	Schema           string         `json:"schema"`
	Table            string         `json:"table"`
	UUID             string         `json:"uuid"`
	Version          int            `json:"version"`
	NumberOfShards   int            `json:"number_of_shards"`
	NumberOfReplicas string         `json:"number_of_replicas"`
	Settings         map[string]any `json:"settings,omitempty"`
	Mapping          map[string]any `json:"mapping"`
	Closed           bool           `json:"closed"`
	VersionCreated   string         `json:"version_created,omitempty"`
	VersionUpgraded  string         `json:"version_upgraded,omitempty"`
}

// archiveManifest lists the tables of one archive.
type archiveManifest struct {
	CreatedAt int64    `json:"created_at"`
	Tables    []string `json:"tables"`
}

// Export writes a snapshot of every stored table and returns the
// archive ID.
func (a *Archiver) Export(ctx context.Context) (string, error) {
	stored, err := a.store.List(ctx)
	if err != nil {
		return "", err
	}

	archiveID := time.Now().UTC().Format("20060102T150405Z")
	manifest := archiveManifest{CreatedAt: time.Now().Unix()}

	for _, entry := range stored {
		full, err := a.store.Get(ctx, entry.Relation)
		if err != nil {
			return "", err
		}
		doc := archivedTable{
			Schema:           entry.Relation.Schema,
			Table:            entry.Relation.Name,
			UUID:             full.Meta.UUID,
			Version:          full.Version,
			NumberOfShards:   full.Meta.NumberOfShards,
			NumberOfReplicas: full.Meta.NumberOfReplicas,
			Settings:         full.Meta.Settings,
			Mapping:          full.Meta.Mapping,
			Closed:           full.Meta.Closed,
			VersionCreated:   full.Meta.VersionCreated,
			VersionUpgraded:  full.Meta.VersionUpgraded,
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("metastore: failed to marshal archive entry for %s: %w",
				entry.Relation.FQN(), err)
		}
		key := a.tableKey(archiveID, entry.Relation)
		if err := a.objects.Put(ctx, key, data); err != nil {
			return "", fmt.Errorf("metastore: failed to archive %s: %w", entry.Relation.FQN(), err)
		}
		manifest.Tables = append(manifest.Tables, entry.Relation.FQN())
	}

	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("metastore: failed to marshal archive manifest: %w", err)
	}
	if err := a.objects.Put(ctx, a.manifestKey(archiveID), manifestData); err != nil {
		return "", fmt.Errorf("metastore: failed to write archive manifest: %w", err)
	}

	log.Printf("metastore: archived %d tables as %s", len(manifest.Tables), archiveID)
	return archiveID, nil
}

// ReadTable loads one table's metadata from an archive.
func (a *Archiver) ReadTable(ctx context.Context, archiveID string, relation metadata.RelationName) (*docschema.IndexMetadata, int, error) {
	data, err := a.objects.Get(ctx, a.tableKey(archiveID, relation))
	if err != nil {
		return nil, 0, fmt.Errorf("metastore: failed to read archived table %s: %w", relation.FQN(), err)
	}
	var doc archivedTable
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("metastore: corrupt archive entry for %s: %w", relation.FQN(), err)
	}
	return &docschema.IndexMetadata{
		UUID:             doc.UUID,
		NumberOfShards:   doc.NumberOfShards,
		NumberOfReplicas: doc.NumberOfReplicas,
		Settings:         doc.Settings,
		Mapping:          doc.Mapping,
		Closed:           doc.Closed,
		VersionCreated:   doc.VersionCreated,
		VersionUpgraded:  doc.VersionUpgraded,
	}, doc.Version, nil
}

// Restore loads every table of an archive into the store.
func (a *Archiver) Restore(ctx context.Context, archiveID string) (int, error) {
	data, err := a.objects.Get(ctx, a.manifestKey(archiveID))
	if err != nil {
		return 0, fmt.Errorf("metastore: failed to read archive manifest %s: %w", archiveID, err)
	}
	var manifest archiveManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return 0, fmt.Errorf("metastore: corrupt archive manifest %s: %w", archiveID, err)
	}

	restored := 0
	for _, fqn := range manifest.Tables {
		relation := relationFromFQN(fqn)
		meta, _, err := a.ReadTable(ctx, archiveID, relation)
		if err != nil {
			return restored, err
		}
		if _, err := a.store.Put(ctx, relation, meta); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// ListArchives returns the IDs of all archives under the prefix, by
// scanning for manifest objects.
func (a *Archiver) ListArchives(ctx context.Context) ([]string, error) {
	keys, err := a.objects.ListObjects(ctx, a.prefix)
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to list archives: %w", err)
	}
	var ids []string
	for _, key := range keys {
		dir, file := path.Split(key)
		if file != "manifest.json" {
			continue
		}
		ids = append(ids, path.Base(path.Clean(dir)))
	}
	return ids, nil
}

func (a *Archiver) tableKey(archiveID string, relation metadata.RelationName) string {
	return path.Join(a.prefix, archiveID, relation.Schema+"."+relation.Name+".json")
}

func (a *Archiver) manifestKey(archiveID string) string {
	return path.Join(a.prefix, archiveID, "manifest.json")
}

func relationFromFQN(fqn string) metadata.RelationName {
	for i := 0; i < len(fqn); i++ {
		if fqn[i] == '.' {
			return metadata.NewRelationName(fqn[:i], fqn[i+1:])
		}
	}
	return metadata.NewRelationName(metadata.DefaultSchema, fqn)
}
