package metadata

import (
	"fmt"
	"sort"

	"github.com/meridiandb/meridian/pkg/types"
)

// Expression is a compiled, typed expression. The concrete
// implementation lives in the expression analyzer; the catalog only
// needs the resulting type and a printable form.
type Expression interface {
	ValueType() types.DataType
	String() string
}

// RefKind tags the concrete variant of a catalog reference.
type RefKind int

const (
	RefPlain RefKind = iota
	RefGenerated
	RefIndex
	RefGeo
)

// Ref is implemented by every reference variant in the catalog. The
// shared base record is reachable through Base; the kind tag enables
// exhaustive handling at consumers.
type Ref interface {
	Kind() RefKind
	Base() *Reference
}

// Reference describes one column of a table: its identity, type,
// indexing behavior, and storage properties. A Reference is immutable
// once the schema snapshot it belongs to is built.
type Reference struct {
	Ident              ReferenceIdent
	Granularity        RowGranularity
	Type               types.DataType
	ColumnPolicy       ColumnPolicy
	IndexMode          IndexMode
	Nullable           bool
	ColumnStoreEnabled bool

	// Position is the explicit ordering position from the mapping;
	// zero when the mapping declares none. Catalog order is
	// (position-or-zero, fqn).
	Position int

	// DefaultExpression is the compiled default-value expression, nil
	// when the column has none.
	DefaultExpression Expression
}

// NewReference builds a plain column reference with dynamic column
// policy. Callers adjust policy and default expression afterwards.
func NewReference(ident ReferenceIdent, granularity RowGranularity, dataType types.DataType,
	indexMode IndexMode, nullable, columnStoreEnabled bool, position int) *Reference {
	return &Reference{
		Ident:              ident,
		Granularity:        granularity,
		Type:               dataType,
		ColumnPolicy:       PolicyDynamic,
		IndexMode:          indexMode,
		Nullable:           nullable,
		ColumnStoreEnabled: columnStoreEnabled,
		Position:           position,
	}
}

// Kind implements Ref.
func (r *Reference) Kind() RefKind { return RefPlain }

// Base implements Ref.
func (r *Reference) Base() *Reference { return r }

// Column returns the column ident of the reference.
func (r *Reference) Column() ColumnIdent { return r.Ident.Column }

// String implements fmt.Stringer.
func (r *Reference) String() string {
	return fmt.Sprintf("%s.%s %s", r.Ident.Relation.FQN(), r.Ident.Column.FQN(), r.Type.Name())
}

// GeneratedReference is a column whose value is computed from an
// expression over other columns. The compiled expression and its
// dependencies are filled by the resolver's second pass; until then the
// reference exists structurally but is not safe to evaluate.
type GeneratedReference struct {
	Reference

	// FormattedExpression is the raw expression source as persisted in
	// the mapping metadata.
	FormattedExpression string

	expression Expression
	referenced []*Reference
	resolved   bool
}

// Kind implements Ref.
func (g *GeneratedReference) Kind() RefKind { return RefGenerated }

// Base implements Ref.
func (g *GeneratedReference) Base() *Reference { return &g.Reference }

// ResolveExpression installs the compiled expression and the base
// references it reads. It may be called exactly once.
func (g *GeneratedReference) ResolveExpression(expr Expression, referenced []*Reference) error {
	if g.resolved {
		return fmt.Errorf("metadata: generated column %q already resolved", g.Column().FQN())
	}
	g.expression = expr
	g.referenced = referenced
	g.resolved = true
	return nil
}

// Expression returns the compiled generated expression. It fails if the
// resolver's compilation pass has not run yet.
func (g *GeneratedReference) Expression() (Expression, error) {
	if !g.resolved {
		return nil, fmt.Errorf("metadata: generated column %q not resolved yet", g.Column().FQN())
	}
	return g.expression, nil
}

// ReferencedReferences returns the base columns the generated
// expression reads, in the order the expression touches them. It fails
// before the compilation pass has run.
func (g *GeneratedReference) ReferencedReferences() ([]*Reference, error) {
	if !g.resolved {
		return nil, fmt.Errorf("metadata: generated column %q not resolved yet", g.Column().FQN())
	}
	return g.referenced, nil
}

// GeoReference is a column of a geo type carrying spatial index
// parameters. It is always constructed directly from the mapping.
type GeoReference struct {
	Reference

	Tree             string
	Precision        string
	TreeLevels       *int
	DistanceErrorPct *float64
}

// Kind implements Ref.
func (g *GeoReference) Kind() RefKind { return RefGeo }

// Base implements Ref.
func (g *GeoReference) Base() *Reference { return &g.Reference }

// IndexReference is a composite full-text index aggregating values
// copied from one or more source columns.
type IndexReference struct {
	Reference

	// Columns are the source references copied into the index. An index
	// with zero columns is permitted in a degenerate form (a copy_to
	// target that never resolved).
	Columns []*Reference

	// Analyzer is the name of the full-text analyzer, empty for the
	// engine default.
	Analyzer string
}

// Kind implements Ref.
func (i *IndexReference) Kind() RefKind { return RefIndex }

// Base implements Ref.
func (i *IndexReference) Base() *Reference { return &i.Reference }

// IndexReferenceBuilder accumulates the source columns of a composite
// index across unrelated branches of the mapping walk. It is frozen
// into an IndexReference once at catalog assembly time.
type IndexReferenceBuilder struct {
	ident     ReferenceIdent
	indexMode IndexMode
	analyzer  string
	columns   []*Reference
	position  int
}

// NewIndexReferenceBuilder creates a builder for the given index ident.
func NewIndexReferenceBuilder(ident ReferenceIdent) *IndexReferenceBuilder {
	return &IndexReferenceBuilder{ident: ident, indexMode: IndexAnalyzed}
}

// AddColumn registers a source column copied into the index.
func (b *IndexReferenceBuilder) AddColumn(ref *Reference) *IndexReferenceBuilder {
	b.columns = append(b.columns, ref)
	return b
}

// IndexMode sets the index mode of the composite index itself.
func (b *IndexReferenceBuilder) IndexMode(mode IndexMode) *IndexReferenceBuilder {
	b.indexMode = mode
	return b
}

// Analyzer sets the analyzer name.
func (b *IndexReferenceBuilder) Analyzer(name string) *IndexReferenceBuilder {
	b.analyzer = name
	return b
}

// Position sets the explicit ordering position.
func (b *IndexReferenceBuilder) Position(position int) *IndexReferenceBuilder {
	b.position = position
	return b
}

// Build freezes the builder into an IndexReference. Source columns are
// sorted into catalog order so the result does not depend on the order
// in which the mapping walk reached them.
func (b *IndexReferenceBuilder) Build() *IndexReference {
	sort.SliceStable(b.columns, func(i, j int) bool {
		return CompareReferences(b.columns[i], b.columns[j]) < 0
	})
	return &IndexReference{
		Reference: Reference{
			Ident:       b.ident,
			Granularity: GranularityDoc,
			Type:        types.String,
			IndexMode:   b.indexMode,
			Nullable:    true,
			Position:    b.position,
		},
		Columns:  b.columns,
		Analyzer: b.analyzer,
	}
}

// CompareReferences orders references by (position-or-zero, fqn). This
// is the catalog ordering for top-level and nested columns alike.
func CompareReferences(a, b *Reference) int {
	if a.Position != b.Position {
		if a.Position < b.Position {
			return -1
		}
		return 1
	}
	af, bf := a.Column().FQN(), b.Column().FQN()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

// SortReferences sorts refs in place by (position-or-zero, fqn).
func SortReferences(refs []*Reference) {
	sort.SliceStable(refs, func(i, j int) bool {
		return CompareReferences(refs[i], refs[j]) < 0
	})
}

// SortRefs sorts variant references in place by the same
// (position-or-zero, fqn) order, keyed on their base records.
func SortRefs(refs []Ref) {
	sort.SliceStable(refs, func(i, j int) bool {
		return CompareReferences(refs[i].Base(), refs[j].Base()) < 0
	})
}
