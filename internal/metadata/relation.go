package metadata

// DefaultSchema is the schema tables belong to when none is qualified.
const DefaultSchema = "doc"

// RelationName identifies a table by schema and name.
type RelationName struct {
	Schema string
	Name   string
}

// NewRelationName creates a RelationName, applying the default schema
// when none is given.
func NewRelationName(schema, name string) RelationName {
	if schema == "" {
		schema = DefaultSchema
	}
	return RelationName{Schema: schema, Name: name}
}

// FQN returns the fully qualified relation name.
func (r RelationName) FQN() string {
	return r.Schema + "." + r.Name
}

// String implements fmt.Stringer.
func (r RelationName) String() string { return r.FQN() }

// ReferenceIdent identifies a column within a relation.
type ReferenceIdent struct {
	Relation RelationName
	Column   ColumnIdent
}
