package metastore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/metadata"
)

// Store persists index metadata in SQLite. Writes go through a single
// connection; a mapping change increments the table's schema version
// and appends the previous-state row to the history table.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes writers
}

// StoredMetadata is one table's metadata together with its version.
type StoredMetadata struct {
	Relation metadata.RelationName
	Version  int
	Meta     *docschema.IndexMetadata
}

// Open opens (creating if necessary) the metadata store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("metastore: failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the metadata of one table. A new table gets version 1 and
// a generated UUID if the metadata carries none. An existing table only
// bumps its version when the mapping actually changed; settings-only
// updates keep the version.
func (s *Store) Put(ctx context.Context, relation metadata.RelationName, meta *docschema.IndexMetadata) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappingJSON, err := json.Marshal(meta.Mapping)
	if err != nil {
		return 0, fmt.Errorf("metastore: failed to marshal mapping for %s: %w", relation.FQN(), err)
	}
	mappingBlob := snappy.Encode(nil, mappingJSON)

	settingsJSON, err := json.Marshal(meta.Settings)
	if err != nil {
		return 0, fmt.Errorf("metastore: failed to marshal settings for %s: %w", relation.FQN(), err)
	}

	var currentVersion int
	var currentUUID string
	var currentBlob []byte
	err = s.db.QueryRowContext(ctx,
		"SELECT version, index_uuid, mapping_blob FROM index_metadata WHERE schema_name = ? AND table_name = ?",
		relation.Schema, relation.Name,
	).Scan(&currentVersion, &currentUUID, &currentBlob)

	switch {
	case err == sql.ErrNoRows:
		indexUUID := meta.UUID
		if indexUUID == "" {
			indexUUID = uuid.NewString()
		}
		return s.insert(ctx, relation, meta, indexUUID, settingsJSON, mappingBlob)
	case err != nil:
		return 0, fmt.Errorf("metastore: failed to read current metadata for %s: %w", relation.FQN(), err)
	}

	if meta.UUID != "" && meta.UUID != currentUUID {
		return 0, errors.NewStoreError(errors.CodeVersionConflict,
			fmt.Sprintf("metastore: table %s exists with uuid %s, update carries uuid %s",
				relation.FQN(), currentUUID, meta.UUID), nil)
	}

	version := currentVersion
	if !bytes.Equal(currentBlob, mappingBlob) {
		version = currentVersion + 1
	}
	return s.update(ctx, relation, meta, version, settingsJSON, mappingBlob)
}

func (s *Store) insert(ctx context.Context, relation metadata.RelationName, meta *docschema.IndexMetadata,
	indexUUID string, settingsJSON, mappingBlob []byte) (int, error) {

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_metadata (
			schema_name, table_name, index_uuid, version,
			number_of_shards, number_of_replicas,
			settings_json, mapping_blob, closed,
			version_created, version_upgraded, updated_at
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		relation.Schema, relation.Name, indexUUID,
		meta.NumberOfShards, meta.NumberOfReplicas,
		string(settingsJSON), mappingBlob, boolToInt(meta.Closed),
		meta.VersionCreated, meta.VersionUpgraded, now)
	if err != nil {
		return 0, fmt.Errorf("metastore: failed to insert metadata for %s: %w", relation.FQN(), err)
	}
	if err := s.appendHistory(ctx, relation, 1, mappingBlob, now); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Store) update(ctx context.Context, relation metadata.RelationName, meta *docschema.IndexMetadata,
	version int, settingsJSON, mappingBlob []byte) (int, error) {

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		UPDATE index_metadata SET
			version = ?, number_of_shards = ?, number_of_replicas = ?,
			settings_json = ?, mapping_blob = ?, closed = ?,
			version_created = ?, version_upgraded = ?, updated_at = ?
		WHERE schema_name = ? AND table_name = ?`,
		version, meta.NumberOfShards, meta.NumberOfReplicas,
		string(settingsJSON), mappingBlob, boolToInt(meta.Closed),
		meta.VersionCreated, meta.VersionUpgraded, now,
		relation.Schema, relation.Name)
	if err != nil {
		return 0, fmt.Errorf("metastore: failed to update metadata for %s: %w", relation.FQN(), err)
	}
	// History rows are keyed by version, so a settings-only update (same
	// version) replaces nothing.
	if err := s.appendHistory(ctx, relation, version, mappingBlob, now); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) appendHistory(ctx context.Context, relation metadata.RelationName, version int, mappingBlob []byte, now int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mapping_versions (schema_name, table_name, version, mapping_blob, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		relation.Schema, relation.Name, version, mappingBlob, now)
	if err != nil {
		return fmt.Errorf("metastore: failed to append mapping history for %s: %w", relation.FQN(), err)
	}
	return nil
}

// Get loads the current metadata and version of one table.
func (s *Store) Get(ctx context.Context, relation metadata.RelationName) (*StoredMetadata, error) {
	var indexUUID, replicas, settingsJSON string
	var versionCreated, versionUpgraded string
	var version, shards, closed int
	var mappingBlob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT index_uuid, version, number_of_shards, number_of_replicas,
		       settings_json, mapping_blob, closed, version_created, version_upgraded
		FROM index_metadata WHERE schema_name = ? AND table_name = ?`,
		relation.Schema, relation.Name,
	).Scan(&indexUUID, &version, &shards, &replicas,
		&settingsJSON, &mappingBlob, &closed, &versionCreated, &versionUpgraded)
	if err == sql.ErrNoRows {
		return nil, errors.NewMetadataError(errors.CodeTableNotFound,
			fmt.Sprintf("metastore: table %s does not exist", relation.FQN()))
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to load metadata for %s: %w", relation.FQN(), err)
	}

	meta, err := decodeMetadata(relation, indexUUID, shards, replicas, settingsJSON, mappingBlob,
		closed != 0, versionCreated, versionUpgraded)
	if err != nil {
		return nil, err
	}
	return &StoredMetadata{Relation: relation, Version: version, Meta: meta}, nil
}

// List returns the relation name and version of every stored table,
// ordered by schema then table name.
func (s *Store) List(ctx context.Context) ([]StoredMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT schema_name, table_name, version FROM index_metadata ORDER BY schema_name, table_name")
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []StoredMetadata
	for rows.Next() {
		var schemaName, tableName string
		var version int
		if err := rows.Scan(&schemaName, &tableName, &version); err != nil {
			return nil, fmt.Errorf("metastore: failed to scan table row: %w", err)
		}
		out = append(out, StoredMetadata{
			Relation: metadata.NewRelationName(schemaName, tableName),
			Version:  version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metastore: error iterating tables: %w", err)
	}
	return out, nil
}

// Delete removes a table's metadata and its mapping history.
func (s *Store) Delete(ctx context.Context, relation metadata.RelationName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM index_metadata WHERE schema_name = ? AND table_name = ?",
		relation.Schema, relation.Name)
	if err != nil {
		return fmt.Errorf("metastore: failed to delete metadata for %s: %w", relation.FQN(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metastore: failed to check delete result for %s: %w", relation.FQN(), err)
	}
	if affected == 0 {
		return errors.NewMetadataError(errors.CodeTableNotFound,
			fmt.Sprintf("metastore: table %s does not exist", relation.FQN()))
	}
	_, err = s.db.ExecContext(ctx,
		"DELETE FROM mapping_versions WHERE schema_name = ? AND table_name = ?",
		relation.Schema, relation.Name)
	if err != nil {
		return fmt.Errorf("metastore: failed to delete mapping history for %s: %w", relation.FQN(), err)
	}
	return nil
}

func decodeMetadata(relation metadata.RelationName, indexUUID string, shards int, replicas,
	settingsJSON string, mappingBlob []byte, closed bool, versionCreated, versionUpgraded string) (*docschema.IndexMetadata, error) {

	mappingJSON, err := snappy.Decode(nil, mappingBlob)
	if err != nil {
		return nil, errors.NewStoreError(errors.CodeCorruptMetadata,
			fmt.Sprintf("metastore: corrupt mapping blob for %s", relation.FQN()), err)
	}
	var mapping map[string]any
	if err := json.Unmarshal(mappingJSON, &mapping); err != nil {
		return nil, errors.NewStoreError(errors.CodeCorruptMetadata,
			fmt.Sprintf("metastore: corrupt mapping document for %s", relation.FQN()), err)
	}
	var settings map[string]any
	if settingsJSON != "" {
		if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
			return nil, errors.NewStoreError(errors.CodeCorruptMetadata,
				fmt.Sprintf("metastore: corrupt settings for %s", relation.FQN()), err)
		}
	}
	return &docschema.IndexMetadata{
		UUID:             indexUUID,
		NumberOfShards:   shards,
		NumberOfReplicas: replicas,
		Settings:         settings,
		Mapping:          mapping,
		Closed:           closed,
		VersionCreated:   versionCreated,
		VersionUpgraded:  versionUpgraded,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
