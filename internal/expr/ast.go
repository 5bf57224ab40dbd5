package expr

import (
	"fmt"
	"strings"
)

// Expression represents a node in the parsed expression AST.
type Expression interface {
	expressionNode()
	String() string
}

// ColumnRef references a column by its dotted path.
type ColumnRef struct {
	Path []string
}

func (c *ColumnRef) expressionNode() {}

// String returns the source representation of the column reference.
func (c *ColumnRef) String() string {
	return strings.Join(c.Path, ".")
}

// Literal represents a literal value: string, int64, float64, bool, or
// nil for NULL.
type Literal struct {
	Value interface{}
}

func (l *Literal) expressionNode() {}

// String returns the source representation of the literal.
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, "'", "''")
		return fmt.Sprintf("'%s'", escaped)
	case nil:
		return "NULL"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FunctionCall represents a scalar function call.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (f *FunctionCall) expressionNode() {}

// String returns the source representation of the function call.
func (f *FunctionCall) String() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (b *BinaryExpr) expressionNode() {}

// String returns the source representation of the binary expression.
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Operator, b.Right.String())
}

// UnaryExpr represents a unary operation (NOT x, -x).
type UnaryExpr struct {
	Operator string
	Operand  Expression
}

func (u *UnaryExpr) expressionNode() {}

// String returns the source representation of the unary expression.
func (u *UnaryExpr) String() string {
	return fmt.Sprintf("%s %s", u.Operator, u.Operand.String())
}

// CastExpr represents CAST(expr AS type).
type CastExpr struct {
	Expr     Expression
	TypeName string
}

func (c *CastExpr) expressionNode() {}

// String returns the source representation of the cast.
func (c *CastExpr) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", c.Expr.String(), c.TypeName)
}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expression
}

func (p *ParenExpr) expressionNode() {}

// String returns the source representation of the grouped expression.
func (p *ParenExpr) String() string {
	return fmt.Sprintf("(%s)", p.Expr.String())
}
