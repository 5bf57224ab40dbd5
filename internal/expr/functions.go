package expr

import (
	"fmt"
	"strings"

	"github.com/meridiandb/meridian/pkg/types"
)

// typeResolver determines the return type of a function from its
// argument types, or reports why the application is invalid.
type typeResolver func(args []types.DataType) (types.DataType, error)

// registry maps lower-case scalar function names to their resolvers.
// The set is closed: unknown functions fail analysis.
var registry = map[string]typeResolver{
	"concat":      resolveConcat,
	"format":      resolveFormat,
	"lower":       stringUnary,
	"upper":       stringUnary,
	"trim":        stringUnary,
	"substr":      resolveSubstr,
	"length":      resolveLength,
	"abs":         numericUnary,
	"round":       fixedReturn(types.Long, 1, numericKind),
	"floor":       fixedReturn(types.Long, 1, numericKind),
	"ceil":        fixedReturn(types.Long, 1, numericKind),
	"sqrt":        fixedReturn(types.Double, 1, numericKind),
	"coalesce":    resolveCoalesce,
	"date_trunc":  resolveDateTrunc,
	"date_format": resolveDateFormat,
}

// numericRank orders numeric types for promotion in arithmetic.
var numericRank = map[types.TypeID]int{
	types.ByteID:    1,
	types.ShortID:   2,
	types.IntegerID: 3,
	types.LongID:    4,
	types.FloatID:   5,
	types.DoubleID:  6,
}

func isNumeric(dt types.DataType) bool {
	_, ok := numericRank[dt.ID()]
	return ok
}

func isString(dt types.DataType) bool {
	return dt.ID() == types.StringID
}

func isTimestamp(dt types.DataType) bool {
	return dt.ID() == types.TimestampID || dt.ID() == types.TimestampzID
}

// isUndefined reports a NULL literal's type, which unifies with anything.
func isUndefined(dt types.DataType) bool {
	return dt.ID() == types.UndefinedID
}

// ResolveFunction returns the return type of the named function applied
// to the given argument types.
func ResolveFunction(name string, args []types.DataType) (types.DataType, error) {
	resolver, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown function %s", name)
	}
	return resolver(args)
}

func resolveConcat(args []types.DataType) (types.DataType, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("concat requires at least 2 arguments, got %d", len(args))
	}
	return types.String, nil
}

func resolveFormat(args []types.DataType) (types.DataType, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("format requires a format string")
	}
	if !isString(args[0]) {
		return nil, fmt.Errorf("format requires a string as first argument, got %s", args[0].Name())
	}
	return types.String, nil
}

func stringUnary(args []types.DataType) (types.DataType, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	if !isString(args[0]) && !isUndefined(args[0]) {
		return nil, fmt.Errorf("expected a string argument, got %s", args[0].Name())
	}
	return types.String, nil
}

func resolveSubstr(args []types.DataType) (types.DataType, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("substr requires 2 or 3 arguments, got %d", len(args))
	}
	if !isString(args[0]) {
		return nil, fmt.Errorf("substr requires a string as first argument, got %s", args[0].Name())
	}
	for _, a := range args[1:] {
		if !isNumeric(a) {
			return nil, fmt.Errorf("substr offsets must be numeric, got %s", a.Name())
		}
	}
	return types.String, nil
}

func resolveLength(args []types.DataType) (types.DataType, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length requires 1 argument, got %d", len(args))
	}
	if !isString(args[0]) {
		return nil, fmt.Errorf("length requires a string argument, got %s", args[0].Name())
	}
	return types.Integer, nil
}

func numericUnary(args []types.DataType) (types.DataType, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	if !isNumeric(args[0]) {
		return nil, fmt.Errorf("expected a numeric argument, got %s", args[0].Name())
	}
	return args[0], nil
}

// argKind validates one argument position.
type argKind func(dt types.DataType) bool

func numericKind(dt types.DataType) bool { return isNumeric(dt) }

// fixedReturn builds a resolver with a fixed return type and arity.
func fixedReturn(ret types.DataType, arity int, kinds ...argKind) typeResolver {
	return func(args []types.DataType) (types.DataType, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("expected %d argument(s), got %d", arity, len(args))
		}
		for i, a := range args {
			if i < len(kinds) && !kinds[i](a) {
				return nil, fmt.Errorf("invalid argument type %s", a.Name())
			}
		}
		return ret, nil
	}
}

func resolveCoalesce(args []types.DataType) (types.DataType, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("coalesce requires at least 1 argument")
	}
	// The first defined argument type wins; remaining arguments must
	// unify with it.
	var result types.DataType = types.Undefined
	for _, a := range args {
		if isUndefined(a) {
			continue
		}
		if isUndefined(result) {
			result = a
			continue
		}
		if a.ID() != result.ID() && !(isNumeric(a) && isNumeric(result)) {
			return nil, fmt.Errorf("coalesce arguments must share a type, got %s and %s", result.Name(), a.Name())
		}
		if isNumeric(a) && isNumeric(result) && numericRank[a.ID()] > numericRank[result.ID()] {
			result = a
		}
	}
	return result, nil
}

func resolveDateTrunc(args []types.DataType) (types.DataType, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("date_trunc requires 2 arguments, got %d", len(args))
	}
	if !isString(args[0]) {
		return nil, fmt.Errorf("date_trunc requires an interval string, got %s", args[0].Name())
	}
	if !isTimestamp(args[1]) && !isNumeric(args[1]) {
		return nil, fmt.Errorf("date_trunc requires a timestamp argument, got %s", args[1].Name())
	}
	if isTimestamp(args[1]) {
		return args[1], nil
	}
	return types.Timestampz, nil
}

func resolveDateFormat(args []types.DataType) (types.DataType, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("date_format requires 2 arguments, got %d", len(args))
	}
	if !isString(args[0]) {
		return nil, fmt.Errorf("date_format requires a format string, got %s", args[0].Name())
	}
	if !isTimestamp(args[1]) && !isNumeric(args[1]) {
		return nil, fmt.Errorf("date_format requires a timestamp argument, got %s", args[1].Name())
	}
	return types.String, nil
}

// resolveArithmetic types a binary arithmetic operator application.
// Numeric operands promote to the wider type; timestamp plus/minus a
// numeric stays a timestamp.
func resolveArithmetic(op string, left, right types.DataType) (types.DataType, error) {
	if isTimestamp(left) && isNumeric(right) && (op == "+" || op == "-") {
		return left, nil
	}
	if isNumeric(left) && isTimestamp(right) && op == "+" {
		return right, nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return nil, fmt.Errorf("operator %s requires numeric operands, got %s and %s", op, left.Name(), right.Name())
	}
	if numericRank[left.ID()] >= numericRank[right.ID()] {
		return left, nil
	}
	return right, nil
}

// resolveComparison types a comparison operator application. Operands
// must share a type family.
func resolveComparison(op string, left, right types.DataType) (types.DataType, error) {
	switch {
	case isUndefined(left) || isUndefined(right):
	case isNumeric(left) && isNumeric(right):
	case isTimestamp(left) && (isTimestamp(right) || isNumeric(right)):
	case isNumeric(left) && isTimestamp(right):
	case left.ID() == right.ID():
	default:
		return nil, fmt.Errorf("operator %s cannot compare %s with %s", op, left.Name(), right.Name())
	}
	return types.Boolean, nil
}

// castTargets maps CAST type names to logical types.
var castTargets = map[string]types.DataType{
	"boolean":    types.Boolean,
	"byte":       types.Byte,
	"short":      types.Short,
	"smallint":   types.Short,
	"integer":    types.Integer,
	"int":        types.Integer,
	"long":       types.Long,
	"bigint":     types.Long,
	"float":      types.Float,
	"real":       types.Float,
	"double":     types.Double,
	"string":     types.String,
	"text":       types.String,
	"ip":         types.IP,
	"timestamp":  types.Timestampz,
	"timestampz": types.Timestampz,
	"geo_point":  types.GeoPoint,
	"geo_shape":  types.GeoShape,
}

// CastTarget resolves a CAST type name to a logical type.
func CastTarget(name string) (types.DataType, error) {
	if dt, ok := castTargets[strings.ToLower(name)]; ok {
		return dt, nil
	}
	return nil, fmt.Errorf("unknown cast target type %s", name)
}
