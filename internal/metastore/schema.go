// Package metastore persists index metadata in a SQLite database and
// serves resolved table schemas out of a versioned in-process cache.
package metastore

// Schema contains the SQL definitions for the metadata store (meta.db).
// The store is the source of truth for every table's mapping document
// and physical settings.

// CreateIndexMetadataTableSQL creates the current-state table. One row
// per table, holding the live mapping and settings. The mapping blob is
// snappy-compressed JSON.
const CreateIndexMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS index_metadata (
    schema_name TEXT NOT NULL,
    table_name TEXT NOT NULL,
    index_uuid TEXT NOT NULL,
    version INTEGER NOT NULL,
    number_of_shards INTEGER NOT NULL,
    number_of_replicas TEXT NOT NULL,
    settings_json TEXT NOT NULL,
    mapping_blob BLOB NOT NULL,
    closed INTEGER NOT NULL DEFAULT 0,
    version_created TEXT NOT NULL DEFAULT '',
    version_upgraded TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (schema_name, table_name)
)`

// CreateMappingVersionsTableSQL creates the mapping history table. Every
// mapping change appends a row, so past schema versions stay
// reconstructable.
const CreateMappingVersionsTableSQL = `
CREATE TABLE IF NOT EXISTS mapping_versions (
    schema_name TEXT NOT NULL,
    table_name TEXT NOT NULL,
    version INTEGER NOT NULL,
    mapping_blob BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (schema_name, table_name, version)
)`

// CreateIndexMetadataUUIDIndexSQL supports lookups by index UUID.
const CreateIndexMetadataUUIDIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_index_metadata_uuid ON index_metadata(index_uuid)`

// AllSchemaSQL returns all SQL statements needed to initialize the
// metadata store.
func AllSchemaSQL() []string {
	return []string{
		CreateIndexMetadataTableSQL,
		CreateMappingVersionsTableSQL,
		CreateIndexMetadataUUIDIndexSQL,
	}
}
