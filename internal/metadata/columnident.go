// Package metadata defines column identity and the reference model of
// the Meridian table catalog.
package metadata

import "strings"

// pathSeparator joins the root name and path segments of a column into
// its fully qualified name.
const pathSeparator = "."

// ColumnIdent is the canonical identifier of a column: a root name plus
// an ordered sequence of path segments for nested columns. Two idents
// are equal iff root and full path are equal; ColumnIdent is comparable
// and is used as the unique key of the catalog.
type ColumnIdent struct {
	name string
	path string // path segments joined by pathSeparator, empty for top-level
}

// NewColumnIdent creates a top-level column ident.
func NewColumnIdent(name string) ColumnIdent {
	return ColumnIdent{name: name}
}

// FromPath parses a dotted path into a ColumnIdent. The first segment
// becomes the root name, the rest the path. No validation is performed;
// any string is accepted as a segment.
func FromPath(dotted string) ColumnIdent {
	name, path, found := strings.Cut(dotted, pathSeparator)
	if !found {
		return ColumnIdent{name: dotted}
	}
	return ColumnIdent{name: name, path: path}
}

// Child derives the ident of a nested column under parent.
func Child(parent ColumnIdent, name string) ColumnIdent {
	if parent.path == "" {
		return ColumnIdent{name: parent.name, path: name}
	}
	return ColumnIdent{name: parent.name, path: parent.path + pathSeparator + name}
}

// Name returns the root name of the column.
func (c ColumnIdent) Name() string { return c.name }

// Path returns the ordered path segments below the root. Top-level
// columns have no path segments.
func (c ColumnIdent) Path() []string {
	if c.path == "" {
		return nil
	}
	return strings.Split(c.path, pathSeparator)
}

// IsTopLevel reports whether the column has no parent.
func (c ColumnIdent) IsTopLevel() bool { return c.path == "" }

// FQN returns the fully qualified column name.
func (c ColumnIdent) FQN() string {
	if c.path == "" {
		return c.name
	}
	return c.name + pathSeparator + c.path
}

// Root returns the root-only identity of the column. Nested columns are
// bucketed under their top-level ancestor using this.
func (c ColumnIdent) Root() ColumnIdent {
	return ColumnIdent{name: c.name}
}

// IsSystemColumn reports whether the column is a synthetic system
// column (leading underscore on the root name).
func (c ColumnIdent) IsSystemColumn() bool {
	return strings.HasPrefix(c.name, "_")
}

// String implements fmt.Stringer.
func (c ColumnIdent) String() string { return c.FQN() }
