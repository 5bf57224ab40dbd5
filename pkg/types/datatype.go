// Package types defines the logical data types of the Meridian SQL layer
// and the mapping from raw index mapping type names to logical types.
package types

import (
	"sort"
	"strings"
)

// TypeID identifies a logical data type.
type TypeID int

const (
	UndefinedID TypeID = iota
	BooleanID
	ByteID
	ShortID
	IntegerID
	LongID
	FloatID
	DoubleID
	StringID
	IPID
	TimestampzID
	TimestampID
	GeoPointID
	GeoShapeID
	ObjectID
	ArrayID
	NotSupportedID
)

// DataType is the logical type of a column. Scalar types are shared
// singletons; array and object types carry structure.
type DataType interface {
	// ID returns the type identifier used for branching decisions.
	ID() TypeID

	// Name returns the SQL-facing name of the type.
	Name() string
}

// scalarType is a primitive type with no inner structure.
type scalarType struct {
	id   TypeID
	name string
}

func (t scalarType) ID() TypeID   { return t.id }
func (t scalarType) Name() string { return t.name }

// The closed set of scalar types.
var (
	Undefined    DataType = scalarType{UndefinedID, "undefined"}
	Boolean      DataType = scalarType{BooleanID, "boolean"}
	Byte         DataType = scalarType{ByteID, "byte"}
	Short        DataType = scalarType{ShortID, "smallint"}
	Integer      DataType = scalarType{IntegerID, "integer"}
	Long         DataType = scalarType{LongID, "bigint"}
	Float        DataType = scalarType{FloatID, "real"}
	Double       DataType = scalarType{DoubleID, "double precision"}
	String       DataType = scalarType{StringID, "text"}
	IP           DataType = scalarType{IPID, "ip"}
	Timestampz   DataType = scalarType{TimestampzID, "timestamp with time zone"}
	Timestamp    DataType = scalarType{TimestampID, "timestamp without time zone"}
	GeoPoint     DataType = scalarType{GeoPointID, "geo_point"}
	GeoShape     DataType = scalarType{GeoShapeID, "geo_shape"}
	NotSupported DataType = scalarType{NotSupportedID, "not_supported"}
)

// ArrayType is an array of a single inner type. Array of object is
// treated structurally like object by the schema resolver.
type ArrayType struct {
	Inner DataType
}

func (t ArrayType) ID() TypeID   { return ArrayID }
func (t ArrayType) Name() string { return t.Inner.Name() + "_array" }

// NewArrayType creates an array type wrapping the given inner type.
func NewArrayType(inner DataType) ArrayType {
	return ArrayType{Inner: inner}
}

// ObjectType is a structured type with named, typed inner fields.
// Every inner type is itself a valid DataType, recursively.
type ObjectType struct {
	inner map[string]DataType
}

func (t ObjectType) ID() TypeID   { return ObjectID }
func (t ObjectType) Name() string { return "object" }

// InnerType returns the type of the named inner field, or Undefined if
// the field is not part of the object definition.
func (t ObjectType) InnerType(name string) DataType {
	if t.inner == nil {
		return Undefined
	}
	if dt, ok := t.inner[name]; ok {
		return dt
	}
	return Undefined
}

// InnerNames returns the names of all inner fields in sorted order.
func (t ObjectType) InnerNames() []string {
	names := make([]string, 0, len(t.inner))
	for name := range t.inner {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ObjectTypeBuilder accumulates inner field types for an object type.
type ObjectTypeBuilder struct {
	inner map[string]DataType
}

// NewObjectType creates a builder for an object type.
func NewObjectType() *ObjectTypeBuilder {
	return &ObjectTypeBuilder{inner: make(map[string]DataType)}
}

// SetInnerType registers the type of an inner field.
func (b *ObjectTypeBuilder) SetInnerType(name string, dt DataType) *ObjectTypeBuilder {
	b.inner[name] = dt
	return b
}

// Build freezes the builder into an ObjectType.
func (b *ObjectTypeBuilder) Build() ObjectType {
	return ObjectType{inner: b.inner}
}

// UntypedObject is an object type with no declared inner fields.
var UntypedObject DataType = ObjectType{}

// mappingNames maps raw mapping type names to logical types. Date types
// are handled separately by the resolver because their logical type
// depends on a per-column flag rather than the name alone.
var mappingNames = map[string]DataType{
	"boolean":   Boolean,
	"byte":      Byte,
	"short":     Short,
	"integer":   Integer,
	"long":      Long,
	"float":     Float,
	"double":    Double,
	"string":    String,
	"keyword":   String,
	"text":      String,
	"ip":        IP,
	"geo_point": GeoPoint,
	"geo_shape": GeoShape,
	"object":    UntypedObject,
}

// OfMappingName resolves a raw mapping type name to a logical type.
// Unknown names resolve to NotSupported, never to an error: columns of
// unsupported type are parsed but excluded from the catalog downstream.
func OfMappingName(name string) DataType {
	if dt, ok := mappingNames[strings.ToLower(name)]; ok {
		return dt
	}
	return NotSupported
}

// IsArrayOfObject reports whether dt is an array whose inner type is an
// object. Such columns feed the same nested recursion as plain objects.
func IsArrayOfObject(dt DataType) bool {
	arr, ok := dt.(ArrayType)
	return ok && arr.Inner.ID() == ObjectID
}
