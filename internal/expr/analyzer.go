package expr

import (
	"fmt"
	"strings"

	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/pkg/types"
)

// ReferenceResolver resolves a dotted column path to a base table
// reference during expression analysis.
type ReferenceResolver interface {
	ResolveField(path []string) (*metadata.Reference, error)
}

// Analyzer converts parsed expressions into typed symbols against a
// reference catalog. An Analyzer is stateless and safe for reuse.
type Analyzer struct{}

// NewAnalyzer creates an expression analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// analysisContext tracks the base references an expression touches, in
// first-touch order, deduplicated by column ident.
type analysisContext struct {
	resolver   ReferenceResolver
	referenced []*metadata.Reference
	seen       map[metadata.ColumnIdent]struct{}
}

func (c *analysisContext) record(ref *metadata.Reference) {
	if _, ok := c.seen[ref.Column()]; ok {
		return
	}
	c.seen[ref.Column()] = struct{}{}
	c.referenced = append(c.referenced, ref)
}

// Analyze parses and converts an expression source in one step.
// It returns the compiled symbol and the set of base references the
// expression reads. Parse and analysis failures are fatal to the
// caller's schema build.
func (a *Analyzer) Analyze(source string, resolver ReferenceResolver) (Symbol, []*metadata.Reference, error) {
	parsed, err := Parse(source)
	if err != nil {
		return nil, nil, errors.NewAnalysisError(errors.CodeExpressionParse,
			fmt.Sprintf("cannot parse expression %q", source), err)
	}
	return a.Convert(parsed, resolver)
}

// Convert compiles a parsed expression into a typed symbol, recording
// the base references it touches.
func (a *Analyzer) Convert(e Expression, resolver ReferenceResolver) (Symbol, []*metadata.Reference, error) {
	ctx := &analysisContext{
		resolver: resolver,
		seen:     make(map[metadata.ColumnIdent]struct{}),
	}
	sym, err := a.convert(e, ctx)
	if err != nil {
		return nil, nil, errors.NewAnalysisError(errors.CodeExpressionAnalysis,
			fmt.Sprintf("cannot analyze expression %q", e.String()), err)
	}
	return sym, ctx.referenced, nil
}

func (a *Analyzer) convert(e Expression, ctx *analysisContext) (Symbol, error) {
	switch node := e.(type) {
	case *Literal:
		return NewLiteralSymbol(node.Value), nil

	case *ColumnRef:
		ref, err := ctx.resolver.ResolveField(node.Path)
		if err != nil {
			return nil, err
		}
		ctx.record(ref)
		return &ReferenceSymbol{Ref: ref}, nil

	case *ParenExpr:
		return a.convert(node.Expr, ctx)

	case *FunctionCall:
		args := make([]Symbol, len(node.Args))
		argTypes := make([]types.DataType, len(node.Args))
		for i, arg := range node.Args {
			sym, err := a.convert(arg, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = sym
			argTypes[i] = sym.ValueType()
		}
		ret, err := ResolveFunction(node.Name, argTypes)
		if err != nil {
			return nil, err
		}
		return &FunctionSymbol{Name: strings.ToLower(node.Name), Args: args, returnType: ret}, nil

	case *BinaryExpr:
		left, err := a.convert(node.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := a.convert(node.Right, ctx)
		if err != nil {
			return nil, err
		}
		return a.convertBinary(node.Operator, left, right)

	case *UnaryExpr:
		operand, err := a.convert(node.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return a.convertUnary(node.Operator, operand)

	case *CastExpr:
		inner, err := a.convert(node.Expr, ctx)
		if err != nil {
			return nil, err
		}
		target, err := CastTarget(node.TypeName)
		if err != nil {
			return nil, err
		}
		return &CastSymbol{Inner: inner, target: target}, nil

	default:
		return nil, fmt.Errorf("unsupported expression node %T", e)
	}
}

// binaryNames maps operators to compiled function names.
var binaryNames = map[string]string{
	"+":   "add",
	"-":   "subtract",
	"*":   "multiply",
	"/":   "divide",
	"%":   "modulus",
	"||":  "concat",
	"=":   "eq",
	"!=":  "neq",
	"<>":  "neq",
	"<":   "lt",
	"<=":  "lte",
	">":   "gt",
	">=":  "gte",
	"AND": "and",
	"OR":  "or",
}

func (a *Analyzer) convertBinary(op string, left, right Symbol) (Symbol, error) {
	name, ok := binaryNames[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %s", op)
	}

	lt, rt := left.ValueType(), right.ValueType()
	var ret types.DataType
	var err error

	switch op {
	case "+", "-", "*", "/", "%":
		ret, err = resolveArithmetic(op, lt, rt)
	case "||":
		if (!isString(lt) && !isUndefined(lt)) || (!isString(rt) && !isUndefined(rt)) {
			err = fmt.Errorf("operator || requires string operands, got %s and %s", lt.Name(), rt.Name())
		} else {
			ret = types.String
		}
	case "=", "!=", "<>", "<", "<=", ">", ">=":
		ret, err = resolveComparison(op, lt, rt)
	case "AND", "OR":
		if lt.ID() != types.BooleanID || rt.ID() != types.BooleanID {
			err = fmt.Errorf("operator %s requires boolean operands, got %s and %s", op, lt.Name(), rt.Name())
		} else {
			ret = types.Boolean
		}
	}
	if err != nil {
		return nil, err
	}
	return &FunctionSymbol{Name: name, Args: []Symbol{left, right}, returnType: ret}, nil
}

func (a *Analyzer) convertUnary(op string, operand Symbol) (Symbol, error) {
	switch op {
	case "NOT":
		if operand.ValueType().ID() != types.BooleanID {
			return nil, fmt.Errorf("NOT requires a boolean operand, got %s", operand.ValueType().Name())
		}
		return &FunctionSymbol{Name: "not", Args: []Symbol{operand}, returnType: types.Boolean}, nil
	case "-":
		if !isNumeric(operand.ValueType()) {
			return nil, fmt.Errorf("unary minus requires a numeric operand, got %s", operand.ValueType().Name())
		}
		return &FunctionSymbol{Name: "negate", Args: []Symbol{operand}, returnType: operand.ValueType()}, nil
	default:
		return nil, fmt.Errorf("unsupported unary operator %s", op)
	}
}
