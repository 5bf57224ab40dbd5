package docschema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/expr"
	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/pkg/types"
)

// Resolver turns the raw mapping document of one index into an
// immutable Table. Construction is a single forward pass over the
// mapping tree followed by a second pass that compiles generated
// expressions against the completed reference set.
type Resolver struct {
	relation metadata.RelationName
	meta     *IndexMetadata
	analyzer *expr.Analyzer

	metaMap              map[string]any
	indicesMeta          map[string]any
	generatedSources     map[string]string
	notNull              map[metadata.ColumnIdent]struct{}
	partitionedBy        []metadata.ColumnIdent
	columnPolicy         metadata.ColumnPolicy

	columns       []metadata.Ref
	nested        []metadata.Ref
	generated     []*metadata.GeneratedReference
	indexBuilders map[metadata.ColumnIdent]*metadata.IndexReferenceBuilder
	analyzers     map[string]string
}

// NewResolver prepares a resolver for one index. Build does the work.
func NewResolver(relation metadata.RelationName, meta *IndexMetadata) *Resolver {
	return &Resolver{
		relation:      relation,
		meta:          meta,
		analyzer:      expr.NewAnalyzer(),
		notNull:       make(map[metadata.ColumnIdent]struct{}),
		indexBuilders: make(map[metadata.ColumnIdent]*metadata.IndexReferenceBuilder),
		analyzers:     make(map[string]string),
	}
}

// Resolve is a convenience wrapper around NewResolver(...).Build().
func Resolve(relation metadata.RelationName, meta *IndexMetadata) (*Table, error) {
	return NewResolver(relation, meta).Build()
}

// Build resolves the mapping into a Table. Absent metadata blocks fall
// back to defaults; individual columns of unsupported type are dropped;
// a generated expression that fails to parse or type-check fails the
// whole build.
func (r *Resolver) Build() (*Table, error) {
	r.metaMap = asMap(r.meta.Mapping["_meta"])
	r.indicesMeta = asMap(r.metaMap["indices"])
	r.generatedSources = asStringMap(r.metaMap["generated_columns"])
	r.columnPolicy = metadata.DecodeColumnPolicy(r.meta.Mapping["dynamic"])
	r.extractNotNullColumns()
	r.extractPartitionedBy()

	if err := r.extractColumnDefinitions(nil, asMap(r.meta.Mapping["properties"])); err != nil {
		return nil, err
	}

	indices := make(map[metadata.ColumnIdent]*metadata.IndexReference, len(r.indexBuilders))
	for ident, builder := range r.indexBuilders {
		indices[ident] = builder.Build()
	}

	metadata.SortRefs(r.columns)
	metadata.SortRefs(r.nested)
	references := r.assembleReferences()

	partitionedByColumns := make([]*metadata.Reference, 0, len(r.partitionedBy))
	for _, ident := range r.partitionedBy {
		if ref, ok := references[ident]; ok {
			partitionedByColumns = append(partitionedByColumns, ref.Base())
		}
	}

	primaryKey, autoGenerated := r.resolvePrimaryKey()
	routingColumn := r.resolveRoutingColumn(primaryKey)

	if err := r.resolveGeneratedExpressions(references); err != nil {
		return nil, err
	}

	closed := r.isClosed()
	return &Table{
		relation:                  r.relation,
		uuid:                      r.meta.UUID,
		references:                references,
		orderedReferences:         r.orderReferences(references),
		columns:                   append([]metadata.Ref(nil), r.columns...),
		indices:                   indices,
		generatedColumns:          append([]*metadata.GeneratedReference(nil), r.generated...),
		primaryKey:                primaryKey,
		autoGeneratedPrimaryKey:   autoGenerated,
		partitionedBy:             append([]metadata.ColumnIdent(nil), r.partitionedBy...),
		partitionedByColumns:      partitionedByColumns,
		routingColumn:             routingColumn,
		notNullColumns:            r.notNullColumns(),
		columnPolicy:              r.columnPolicy,
		numberOfShards:            r.meta.NumberOfShards,
		numberOfReplicas:          r.meta.NumberOfReplicas,
		parameters:                r.meta.Settings,
		closed:                    closed,
		supportedOperations:       metadata.OperationsFromSettings(r.meta.Settings, closed),
		analyzers:                 r.analyzers,
		versionCreated:            r.meta.VersionCreated,
		versionUpgraded:           r.meta.VersionUpgraded,
	}, nil
}

func (r *Resolver) extractNotNullColumns() {
	constraints := asMap(r.metaMap["constraints"])
	for _, fqn := range asStrings(constraints["not_null"]) {
		r.notNull[metadata.FromPath(fqn)] = struct{}{}
	}
}

// extractPartitionedBy reads the declared partition columns. Entries
// are either plain column names or [name, type] pairs.
func (r *Resolver) extractPartitionedBy() {
	for _, entry := range asList(r.metaMap["partitioned_by"]) {
		switch e := entry.(type) {
		case string:
			r.partitionedBy = append(r.partitionedBy, metadata.FromPath(e))
		case []any:
			if len(e) > 0 {
				if name, ok := e[0].(string); ok {
					r.partitionedBy = append(r.partitionedBy, metadata.FromPath(name))
				}
			}
		}
	}
}

// isClosed reports the effective open/closed state. Partitioned tables
// carry it in the `_meta` block because the table may exist without any
// physical index.
func (r *Resolver) isClosed() bool {
	if len(r.partitionedBy) > 0 {
		return asBool(r.metaMap["closed"])
	}
	return r.meta.Closed
}

// extractColumnDefinitions walks one level of a properties tree and
// recurses into object-typed children. The parent ident is nil at the
// top level.
func (r *Resolver) extractColumnDefinitions(parent *metadata.ColumnIdent, properties map[string]any) error {
	for name, raw := range properties {
		props := asMap(raw)
		if props == nil {
			continue
		}
		ident := childIdent(parent, name)
		if err := r.extractColumn(ident, props); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) extractColumn(ident metadata.ColumnIdent, props map[string]any) error {
	dataType := columnDataType(props)

	// Array columns keep their element definition in an inner map, the
	// position included.
	inner := furtherColumnProperties(props)
	position, _ := asInt(inner["position"])
	indexMode := columnIndexMode(inner)
	columnStore := asBoolDefault(inner["doc_values"], true)
	if analyzer := asString(inner["analyzer"]); analyzer != "" {
		r.analyzers[ident.FQN()] = analyzer
	}

	switch {
	case dataType.ID() == types.GeoShapeID:
		r.addGeoReference(position, ident, dataType, inner)

	case dataType.ID() == types.ObjectID || types.IsArrayOfObject(dataType):
		// Object containers carry no column store of their own.
		if err := r.add(position, ident, dataType, asString(inner["default_expr"]),
			metadata.DecodeColumnPolicy(inner["dynamic"]), metadata.IndexOff,
			true, false); err != nil {
			return err
		}
		if children := asMap(inner["properties"]); children != nil {
			if err := r.extractColumnDefinitions(&ident, children); err != nil {
				return err
			}
		}

	default:
		for _, target := range asStrings(inner["copy_to"]) {
			targetIdent := metadata.FromPath(target)
			builder := r.indexBuilder(targetIdent)
			ref := metadata.NewReference(
				metadata.ReferenceIdent{Relation: r.relation, Column: ident},
				metadata.GranularityDoc, dataType, indexMode, false, columnStore, position)
			builder.AddColumn(ref)
		}
		if _, isIndex := r.indicesMeta[ident.FQN()]; isIndex {
			// A named fulltext index column: update its builder instead
			// of registering a table column.
			builder := r.indexBuilder(ident)
			builder.IndexMode(indexMode)
			builder.Position(position)
			if analyzer := asString(inner["analyzer"]); analyzer != "" {
				builder.Analyzer(analyzer)
			}
			return nil
		}
		return r.add(position, ident, dataType, asString(inner["default_expr"]),
			metadata.PolicyDynamic, indexMode, true, columnStore)
	}
	return nil
}

func (r *Resolver) indexBuilder(ident metadata.ColumnIdent) *metadata.IndexReferenceBuilder {
	builder, ok := r.indexBuilders[ident]
	if !ok {
		builder = metadata.NewIndexReferenceBuilder(
			metadata.ReferenceIdent{Relation: r.relation, Column: ident})
		r.indexBuilders[ident] = builder
	}
	return builder
}

// add registers a resolved column. Unsupported types are silently
// dropped so that schema resolution never fails on exotic mapping
// entries. Partition columns are forced to PARTITION granularity.
func (r *Resolver) add(position int, ident metadata.ColumnIdent, dataType types.DataType,
	defaultExprSource string, policy metadata.ColumnPolicy, indexMode metadata.IndexMode,
	nullable, columnStoreEnabled bool) error {

	if dataType.ID() == types.NotSupportedID {
		return nil
	}

	granularity := metadata.GranularityDoc
	if r.isPartitionColumn(ident) {
		granularity = metadata.GranularityPartition
		indexMode = metadata.IndexNotAnalyzed
	}
	if _, notNull := r.notNull[ident]; notNull {
		nullable = false
	}

	var defaultExpression metadata.Expression
	if defaultExprSource != "" {
		symbol, _, err := r.analyzer.Analyze(defaultExprSource, noColumnResolver{})
		if err != nil {
			return fmt.Errorf("docschema: default expression for column %q: %w", ident.FQN(), err)
		}
		defaultExpression = symbol
	}

	ref := metadata.NewReference(
		metadata.ReferenceIdent{Relation: r.relation, Column: ident},
		granularity, dataType, indexMode, nullable, columnStoreEnabled, position)
	ref.ColumnPolicy = policy
	ref.DefaultExpression = defaultExpression

	if source, ok := r.generatedSources[ident.FQN()]; ok {
		gen := &metadata.GeneratedReference{Reference: *ref, FormattedExpression: source}
		r.generated = append(r.generated, gen)
		r.register(ident, gen)
		return nil
	}
	r.register(ident, ref)
	return nil
}

func (r *Resolver) addGeoReference(position int, ident metadata.ColumnIdent, dataType types.DataType, props map[string]any) {
	ref := metadata.NewReference(
		metadata.ReferenceIdent{Relation: r.relation, Column: ident},
		metadata.GranularityDoc, dataType, metadata.IndexNotAnalyzed, true, true, position)
	geo := &metadata.GeoReference{Reference: *ref}
	geo.Tree = asString(props["tree"])
	geo.Precision = asString(props["precision"])
	if levels, ok := asInt(props["tree_levels"]); ok {
		geo.TreeLevels = &levels
	}
	if pct, ok := asFloat(props["distance_error_pct"]); ok {
		geo.DistanceErrorPct = &pct
	}
	r.register(ident, geo)
}

func (r *Resolver) register(ident metadata.ColumnIdent, ref metadata.Ref) {
	if ident.IsTopLevel() {
		r.columns = append(r.columns, ref)
	} else {
		r.nested = append(r.nested, ref)
	}
}

func (r *Resolver) isPartitionColumn(ident metadata.ColumnIdent) bool {
	for _, p := range r.partitionedBy {
		if p == ident {
			return true
		}
	}
	return false
}

// assembleReferences builds the full reference map: system columns
// first, then every top-level column immediately followed by its nested
// children, both in (position, name) order.
func (r *Resolver) assembleReferences() map[metadata.ColumnIdent]metadata.Ref {
	references := make(map[metadata.ColumnIdent]metadata.Ref)
	metadata.SysColumnsForTable(r.relation, func(ident metadata.ColumnIdent, ref *metadata.Reference) {
		references[ident] = ref
	})
	for _, column := range r.columns {
		references[column.Base().Ident.Column] = column
	}
	for _, child := range r.nested {
		references[child.Base().Ident.Column] = child
	}
	return references
}

// orderReferences flattens the reference map deterministically: system
// columns in their fixed order, then each top-level column followed by
// its nested children.
func (r *Resolver) orderReferences(references map[metadata.ColumnIdent]metadata.Ref) []metadata.Ref {
	ordered := make([]metadata.Ref, 0, len(references))
	metadata.SysColumnsForTable(r.relation, func(ident metadata.ColumnIdent, ref *metadata.Reference) {
		ordered = append(ordered, ref)
	})
	for _, column := range r.columns {
		ordered = append(ordered, column)
		root := column.Base().Ident.Column
		for _, child := range r.nested {
			if child.Base().Ident.Column.Root() == root {
				ordered = append(ordered, child)
			}
		}
	}
	return ordered
}

func (r *Resolver) notNullColumns() []metadata.ColumnIdent {
	out := make([]metadata.ColumnIdent, 0, len(r.notNull))
	for ident := range r.notNull {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN() < out[j].FQN() })
	return out
}

// resolvePrimaryKey reads the declared primary key. Without a declared
// key, a table that has neither a custom routing column nor partitions
// falls back to the implicit _id key.
func (r *Resolver) resolvePrimaryKey() ([]metadata.ColumnIdent, bool) {
	switch declared := r.metaMap["primary_keys"].(type) {
	case string:
		return []metadata.ColumnIdent{metadata.FromPath(declared)}, false
	case []any:
		if len(declared) > 0 {
			keys := make([]metadata.ColumnIdent, 0, len(declared))
			for _, fqn := range asStrings(declared) {
				keys = append(keys, metadata.FromPath(fqn))
			}
			return keys, false
		}
	}
	if r.customRoutingColumn() == "" && len(r.partitionedBy) == 0 {
		return []metadata.ColumnIdent{metadata.SysColumnID}, true
	}
	return nil, false
}

func (r *Resolver) customRoutingColumn() string {
	routing := asString(r.metaMap["routing"])
	if routing == metadata.SysColumnID.Name() {
		return ""
	}
	return routing
}

func (r *Resolver) resolveRoutingColumn(primaryKey []metadata.ColumnIdent) metadata.ColumnIdent {
	if custom := r.customRoutingColumn(); custom != "" {
		return metadata.FromPath(custom)
	}
	if len(primaryKey) == 1 {
		return primaryKey[0]
	}
	return metadata.SysColumnID
}

// resolveGeneratedExpressions compiles every generated expression
// against the complete reference set. Failures are fatal: a schema with
// an uncompilable generated column must not be served.
func (r *Resolver) resolveGeneratedExpressions(references map[metadata.ColumnIdent]metadata.Ref) error {
	if len(r.generated) == 0 {
		return nil
	}
	resolver := tableFieldResolver{references: references}
	for _, gen := range r.generated {
		symbol, referenced, err := r.analyzer.Analyze(gen.FormattedExpression, resolver)
		if err != nil {
			return fmt.Errorf("docschema: generated expression for column %q: %w",
				gen.Ident.Column.FQN(), err)
		}
		if err := gen.ResolveExpression(symbol, referenced); err != nil {
			return err
		}
	}
	return nil
}

// tableFieldResolver resolves column references in generated
// expressions against the assembled reference set.
type tableFieldResolver struct {
	references map[metadata.ColumnIdent]metadata.Ref
}

func (t tableFieldResolver) ResolveField(path []string) (*metadata.Reference, error) {
	ident := metadata.FromPath(strings.Join(path, "."))
	ref, ok := t.references[ident]
	if !ok {
		return nil, errors.NewAnalysisError(errors.CodeColumnNotFound,
			fmt.Sprintf("column %q does not exist", ident.FQN()), nil)
	}
	return ref.Base(), nil
}

// noColumnResolver rejects column references. Default expressions must
// be self-contained.
type noColumnResolver struct{}

func (noColumnResolver) ResolveField(path []string) (*metadata.Reference, error) {
	return nil, errors.NewAnalysisError(errors.CodeExpressionAnalysis,
		fmt.Sprintf("column reference %q is not allowed in a default expression",
			strings.Join(path, ".")), nil)
}

func childIdent(parent *metadata.ColumnIdent, name string) metadata.ColumnIdent {
	if parent == nil {
		return metadata.NewColumnIdent(name)
	}
	return metadata.Child(*parent, name)
}

// columnDataType maps one mapping entry to a data type. Object entries
// recurse into their inner properties; array entries carry the element
// definition in an inner map; anything unrecognized maps to the
// not-supported sentinel.
func columnDataType(props map[string]any) types.DataType {
	typeName := asString(props["type"])

	if typeName == "" || typeName == "object" {
		if inner := asMap(props["properties"]); inner != nil {
			builder := types.NewObjectType()
			for name, raw := range inner {
				if childProps := asMap(raw); childProps != nil {
					builder.SetInnerType(name, columnDataType(childProps))
				}
			}
			return builder.Build()
		}
		if typeName == "object" {
			return types.UntypedObject
		}
		return types.NotSupported
	}

	if strings.EqualFold(typeName, "array") {
		inner := asMap(props["inner"])
		if inner == nil {
			return types.NotSupported
		}
		return types.NewArrayType(columnDataType(inner))
	}

	typeName = strings.ToLower(typeName)
	if typeName == "date" {
		if asBool(props["ignore_timezone"]) {
			return types.Timestamp
		}
		return types.Timestampz
	}
	return types.OfMappingName(typeName)
}

// furtherColumnProperties unwraps the element definition of array
// columns. Scalar and object columns describe themselves directly.
func furtherColumnProperties(props map[string]any) map[string]any {
	if inner := asMap(props["inner"]); inner != nil {
		return inner
	}
	return props
}

// columnIndexMode decodes the index flag. Text columns default to
// analyzed, everything else to a plain not-analyzed index.
func columnIndexMode(props map[string]any) metadata.IndexMode {
	index, present := props["index"]
	if !present || index == nil {
		if asString(props["type"]) == "text" {
			return metadata.IndexAnalyzed
		}
		return metadata.IndexNotAnalyzed
	}
	switch v := index.(type) {
	case bool:
		if !v {
			return metadata.IndexOff
		}
		return metadata.IndexAnalyzed
	case string:
		switch v {
		case "no", "false":
			return metadata.IndexOff
		case "not_analyzed":
			return metadata.IndexNotAnalyzed
		}
	}
	return metadata.IndexAnalyzed
}
