package docschema

import (
	"github.com/meridiandb/meridian/internal/metadata"
)

// Table is the immutable resolved schema of one table. All accessors
// are read-only; a mapping change produces a new Table rather than
// mutating an existing one, so snapshots can be shared across sessions
// without locking.
type Table struct {
	relation metadata.RelationName
	uuid     string

	references        map[metadata.ColumnIdent]metadata.Ref
	orderedReferences []metadata.Ref
	columns           []metadata.Ref
	indices           map[metadata.ColumnIdent]*metadata.IndexReference
	generatedColumns  []*metadata.GeneratedReference

	primaryKey              []metadata.ColumnIdent
	autoGeneratedPrimaryKey bool
	partitionedBy           []metadata.ColumnIdent
	partitionedByColumns    []*metadata.Reference
	routingColumn           metadata.ColumnIdent
	notNullColumns          []metadata.ColumnIdent
	columnPolicy            metadata.ColumnPolicy

	numberOfShards      int
	numberOfReplicas    string
	parameters          map[string]any
	closed              bool
	supportedOperations metadata.Operations
	analyzers           map[string]string

	versionCreated  string
	versionUpgraded string
}

// Relation returns the schema-qualified table name.
func (t *Table) Relation() metadata.RelationName { return t.relation }

// UUID returns the stable identity of the backing index.
func (t *Table) UUID() string { return t.uuid }

// Reference looks up a column by ident. The second return value
// reports whether the column exists.
func (t *Table) Reference(ident metadata.ColumnIdent) (metadata.Ref, bool) {
	ref, ok := t.references[ident]
	return ref, ok
}

// References returns every reference of the table in catalog order:
// system columns first, then each top-level column immediately followed
// by its nested children, user columns ordered by (position, name).
func (t *Table) References() []metadata.Ref {
	return t.orderedReferences
}

// Columns returns the top-level user columns in catalog order.
func (t *Table) Columns() []metadata.Ref {
	return t.columns
}

// Indices returns the composite full-text indexes keyed by index ident.
func (t *Table) Indices() map[metadata.ColumnIdent]*metadata.IndexReference {
	return t.indices
}

// Index looks up one composite index by ident.
func (t *Table) Index(ident metadata.ColumnIdent) (*metadata.IndexReference, bool) {
	idx, ok := t.indices[ident]
	return idx, ok
}

// GeneratedColumns returns the generated columns with their compiled
// expressions.
func (t *Table) GeneratedColumns() []*metadata.GeneratedReference {
	return t.generatedColumns
}

// PrimaryKey returns the primary key columns, empty when the table has
// no usable key.
func (t *Table) PrimaryKey() []metadata.ColumnIdent { return t.primaryKey }

// HasAutoGeneratedPrimaryKey reports whether the primary key is the
// implicit _id fallback rather than a declared key.
func (t *Table) HasAutoGeneratedPrimaryKey() bool { return t.autoGeneratedPrimaryKey }

// PartitionedBy returns the partition column idents in declared order.
func (t *Table) PartitionedBy() []metadata.ColumnIdent { return t.partitionedBy }

// PartitionedByColumns returns the resolved partition column references
// in declared order.
func (t *Table) PartitionedByColumns() []*metadata.Reference { return t.partitionedByColumns }

// IsPartitioned reports whether the table has partition columns.
func (t *Table) IsPartitioned() bool { return len(t.partitionedBy) > 0 }

// RoutingColumn returns the column whose value determines shard
// placement.
func (t *Table) RoutingColumn() metadata.ColumnIdent { return t.routingColumn }

// NotNullColumns returns the columns under a NOT NULL constraint,
// ordered by name.
func (t *Table) NotNullColumns() []metadata.ColumnIdent { return t.notNullColumns }

// ColumnPolicy returns the table-wide policy for columns not declared
// in the schema.
func (t *Table) ColumnPolicy() metadata.ColumnPolicy { return t.columnPolicy }

// NumberOfShards returns the shard count of the backing index.
func (t *Table) NumberOfShards() int { return t.numberOfShards }

// NumberOfReplicas returns the configured replica setting string.
func (t *Table) NumberOfReplicas() string { return t.numberOfReplicas }

// Parameters returns the raw settings bag of the backing index.
func (t *Table) Parameters() map[string]any { return t.parameters }

// IsClosed reports the effective open/closed state of the table.
func (t *Table) IsClosed() bool { return t.closed }

// SupportedOperations returns the operations permitted by the table
// state and its blocks settings.
func (t *Table) SupportedOperations() metadata.Operations { return t.supportedOperations }

// Analyzers maps column fqn to the configured analyzer name, for
// columns that declare one.
func (t *Table) Analyzers() map[string]string { return t.analyzers }

// VersionCreated returns the engine version marker the index was
// created with.
func (t *Table) VersionCreated() string { return t.versionCreated }

// VersionUpgraded returns the engine version marker of the last
// upgrade, empty if never upgraded.
func (t *Table) VersionUpgraded() string { return t.versionUpgraded }
