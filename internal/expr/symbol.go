package expr

import (
	"fmt"
	"strings"

	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/pkg/types"
)

// Symbol is a typed, compiled expression node. Symbols satisfy
// metadata.Expression so compiled expressions can live on references.
type Symbol interface {
	ValueType() types.DataType
	String() string
}

// LiteralSymbol is a compiled literal value.
type LiteralSymbol struct {
	Value interface{}
	typ   types.DataType
}

// NewLiteralSymbol types a raw literal value.
func NewLiteralSymbol(value interface{}) *LiteralSymbol {
	return &LiteralSymbol{Value: value, typ: literalType(value)}
}

// ValueType implements Symbol.
func (l *LiteralSymbol) ValueType() types.DataType { return l.typ }

// String implements Symbol.
func (l *LiteralSymbol) String() string {
	return (&Literal{Value: l.Value}).String()
}

// literalType maps a Go literal value to its logical type.
func literalType(value interface{}) types.DataType {
	switch value.(type) {
	case string:
		return types.String
	case int64:
		return types.Long
	case float64:
		return types.Double
	case bool:
		return types.Boolean
	case nil:
		return types.Undefined
	default:
		return types.NotSupported
	}
}

// ReferenceSymbol is a compiled reference to a base table column.
type ReferenceSymbol struct {
	Ref *metadata.Reference
}

// ValueType implements Symbol.
func (r *ReferenceSymbol) ValueType() types.DataType { return r.Ref.Type }

// String implements Symbol.
func (r *ReferenceSymbol) String() string { return r.Ref.Column().FQN() }

// FunctionSymbol is a compiled scalar function application. Operators
// compile to function symbols as well (e.g. `a + b` to add(a, b)).
type FunctionSymbol struct {
	Name       string
	Args       []Symbol
	returnType types.DataType
}

// ValueType implements Symbol.
func (f *FunctionSymbol) ValueType() types.DataType { return f.returnType }

// String implements Symbol.
func (f *FunctionSymbol) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// CastSymbol is a compiled type conversion.
type CastSymbol struct {
	Inner  Symbol
	target types.DataType
}

// ValueType implements Symbol.
func (c *CastSymbol) ValueType() types.DataType { return c.target }

// String implements Symbol.
func (c *CastSymbol) String() string {
	return fmt.Sprintf("cast(%s as %s)", c.Inner.String(), c.target.Name())
}
