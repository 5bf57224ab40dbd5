package types

import (
	"reflect"
	"testing"
)

func TestOfMappingName(t *testing.T) {
	tests := []struct {
		name     string
		expected TypeID
	}{
		{"boolean", BooleanID},
		{"byte", ByteID},
		{"short", ShortID},
		{"integer", IntegerID},
		{"long", LongID},
		{"float", FloatID},
		{"double", DoubleID},
		{"string", StringID},
		{"keyword", StringID},
		{"text", StringID},
		{"ip", IPID},
		{"geo_point", GeoPointID},
		{"geo_shape", GeoShapeID},
		{"object", ObjectID},
		{"KEYWORD", StringID},
		{"murmur3", NotSupportedID},
		{"completion", NotSupportedID},
		{"", NotSupportedID},
	}

	for _, tt := range tests {
		if got := OfMappingName(tt.name).ID(); got != tt.expected {
			t.Errorf("OfMappingName(%q): expected id %d, got %d", tt.name, tt.expected, got)
		}
	}
}

func TestSQLTypeNames(t *testing.T) {
	tests := []struct {
		dt       DataType
		expected string
	}{
		{String, "text"},
		{Long, "bigint"},
		{Double, "double precision"},
		{Timestampz, "timestamp with time zone"},
		{Timestamp, "timestamp without time zone"},
		{NewArrayType(String), "text_array"},
		{UntypedObject, "object"},
	}

	for _, tt := range tests {
		if got := tt.dt.Name(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestObjectType(t *testing.T) {
	obj := NewObjectType().
		SetInnerType("city", String).
		SetInnerType("zip", Integer).
		Build()

	if obj.ID() != ObjectID {
		t.Errorf("expected object id, got %d", obj.ID())
	}
	if obj.InnerType("city").ID() != StringID {
		t.Errorf("expected text for city, got %s", obj.InnerType("city").Name())
	}
	if obj.InnerType("missing").ID() != UndefinedID {
		t.Errorf("expected undefined for missing field, got %s", obj.InnerType("missing").Name())
	}
	if names := obj.InnerNames(); !reflect.DeepEqual(names, []string{"city", "zip"}) {
		t.Errorf("expected sorted inner names, got %v", names)
	}
}

func TestUntypedObjectInnerType(t *testing.T) {
	if UntypedObject.(ObjectType).InnerType("anything").ID() != UndefinedID {
		t.Error("expected undefined inner type on untyped object")
	}
}

func TestIsArrayOfObject(t *testing.T) {
	inner := NewObjectType().SetInnerType("sku", String).Build()
	tests := []struct {
		dt       DataType
		expected bool
	}{
		{NewArrayType(inner), true},
		{NewArrayType(UntypedObject), true},
		{NewArrayType(String), false},
		{UntypedObject, false},
		{String, false},
	}

	for _, tt := range tests {
		if got := IsArrayOfObject(tt.dt); got != tt.expected {
			t.Errorf("IsArrayOfObject(%s): expected %v, got %v", tt.dt.Name(), tt.expected, got)
		}
	}
}
