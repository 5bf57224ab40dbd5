package expr

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/meridiandb/meridian/internal/errors"
	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/pkg/types"
)

// stubResolver resolves dotted paths against a fixed reference set.
type stubResolver struct {
	fields map[string]*metadata.Reference
}

func (s *stubResolver) ResolveField(path []string) (*metadata.Reference, error) {
	fqn := strings.Join(path, ".")
	ref, ok := s.fields[fqn]
	if !ok {
		return nil, errors.NewMetadataError(errors.CodeColumnNotFound,
			fmt.Sprintf("column %s does not exist", fqn))
	}
	return ref, nil
}

func testResolver(cols map[string]types.DataType) *stubResolver {
	relation := metadata.NewRelationName("doc", "events")
	fields := make(map[string]*metadata.Reference, len(cols))
	for fqn, dt := range cols {
		ident := metadata.ReferenceIdent{Relation: relation, Column: metadata.FromPath(fqn)}
		fields[fqn] = metadata.NewReference(ident, metadata.GranularityDoc, dt,
			metadata.IndexNotAnalyzed, true, true, 0)
	}
	return &stubResolver{fields: fields}
}

func TestAnalyzeConcat(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"title": types.String})

	sym, refs, err := NewAnalyzer().Analyze("concat(title, '-suffix')", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.StringID {
		t.Errorf("expected string result, got %s", sym.ValueType().Name())
	}
	if len(refs) != 1 || refs[0] != resolver.fields["title"] {
		t.Errorf("expected exactly the title reference, got %v", refs)
	}

	fn, ok := sym.(*FunctionSymbol)
	if !ok {
		t.Fatalf("expected FunctionSymbol, got %T", sym)
	}
	if fn.Name != "concat" || len(fn.Args) != 2 {
		t.Errorf("unexpected compiled function: %s", fn.String())
	}
}

func TestAnalyzeDeduplicatesReferences(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{
		"a": types.Long,
		"b": types.Integer,
	})

	_, refs, err := NewAnalyzer().Analyze("a + a + b", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 distinct references, got %d", len(refs))
	}
	if refs[0].Column().FQN() != "a" || refs[1].Column().FQN() != "b" {
		t.Errorf("expected first-touch order [a b], got [%s %s]",
			refs[0].Column().FQN(), refs[1].Column().FQN())
	}
}

func TestAnalyzeArithmeticPromotion(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{
		"count": types.Integer,
		"ratio": types.Double,
	})

	sym, _, err := NewAnalyzer().Analyze("count * ratio", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.DoubleID {
		t.Errorf("expected double result, got %s", sym.ValueType().Name())
	}
}

func TestAnalyzeTimestampArithmetic(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"ts": types.Timestampz})

	sym, _, err := NewAnalyzer().Analyze("ts + 3600000", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.TimestampzID {
		t.Errorf("expected timestamp result, got %s", sym.ValueType().Name())
	}
}

func TestAnalyzeNestedPath(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"address.city": types.String})

	sym, refs, err := NewAnalyzer().Analyze("lower(address.city)", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.StringID {
		t.Errorf("expected string result, got %s", sym.ValueType().Name())
	}
	if len(refs) != 1 || refs[0].Column().FQN() != "address.city" {
		t.Errorf("expected the address.city reference, got %v", refs)
	}
}

func TestAnalyzeCast(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"ts": types.Timestampz})

	sym, _, err := NewAnalyzer().Analyze("CAST(ts AS long)", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.LongID {
		t.Errorf("expected long result, got %s", sym.ValueType().Name())
	}
	if _, ok := sym.(*CastSymbol); !ok {
		t.Errorf("expected CastSymbol, got %T", sym)
	}
}

func TestAnalyzeBooleanOperators(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{
		"a": types.Long,
		"b": types.String,
	})

	sym, _, err := NewAnalyzer().Analyze("a > 1 AND b = 'x'", resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.ValueType().ID() != types.BooleanID {
		t.Errorf("expected boolean result, got %s", sym.ValueType().Name())
	}
}

func TestAnalyzeParseFailure(t *testing.T) {
	resolver := testResolver(nil)

	_, _, err := NewAnalyzer().Analyze("concat(a,", resolver)
	if err == nil {
		t.Fatal("expected error")
	}
	var me *errors.MeridianError
	if !stderrors.As(err, &me) {
		t.Fatalf("expected MeridianError, got %T", err)
	}
	if me.Code != errors.CodeExpressionParse {
		t.Errorf("expected code %s, got %s", errors.CodeExpressionParse, me.Code)
	}
}

func TestAnalyzeUnknownColumn(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"a": types.Long})

	_, _, err := NewAnalyzer().Analyze("a + missing", resolver)
	if err == nil {
		t.Fatal("expected error")
	}
	var me *errors.MeridianError
	if !stderrors.As(err, &me) {
		t.Fatalf("expected MeridianError, got %T", err)
	}
	if me.Code != errors.CodeExpressionAnalysis {
		t.Errorf("expected code %s, got %s", errors.CodeExpressionAnalysis, me.Code)
	}
}

func TestAnalyzeUnknownFunction(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{"a": types.Long})

	_, _, err := NewAnalyzer().Analyze("frobnicate(a)", resolver)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown function") {
		t.Errorf("expected unknown function error, got %v", err)
	}
}

func TestAnalyzeTypeMismatch(t *testing.T) {
	resolver := testResolver(map[string]types.DataType{
		"a": types.Long,
		"b": types.Long,
	})

	tests := []string{
		"a || b",
		"a AND b",
		"NOT a",
		"lower(a)",
	}
	for _, input := range tests {
		if _, _, err := NewAnalyzer().Analyze(input, resolver); err == nil {
			t.Errorf("input %q: expected type error, got none", input)
		}
	}
}

func TestResolveFunctionRegistry(t *testing.T) {
	tests := []struct {
		name     string
		args     []types.DataType
		expected types.TypeID
		wantErr  bool
	}{
		{"concat", []types.DataType{types.String, types.String}, types.StringID, false},
		{"concat", []types.DataType{types.String}, 0, true},
		{"UPPER", []types.DataType{types.String}, types.StringID, false},
		{"length", []types.DataType{types.String}, types.IntegerID, false},
		{"abs", []types.DataType{types.Double}, types.DoubleID, false},
		{"round", []types.DataType{types.Double}, types.LongID, false},
		{"coalesce", []types.DataType{types.Undefined, types.Integer, types.Long}, types.LongID, false},
		{"coalesce", []types.DataType{types.String, types.Long}, 0, true},
		{"date_trunc", []types.DataType{types.String, types.Timestampz}, types.TimestampzID, false},
		{"date_format", []types.DataType{types.String, types.Long}, types.StringID, false},
		{"date_format", []types.DataType{types.Long}, 0, true},
	}

	for _, tt := range tests {
		ret, err := ResolveFunction(tt.name, tt.args)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s(%d args): expected error, got none", tt.name, len(tt.args))
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if ret.ID() != tt.expected {
			t.Errorf("%s: expected return type id %d, got %s", tt.name, tt.expected, ret.Name())
		}
	}
}

func TestCastTarget(t *testing.T) {
	dt, err := CastTarget("BIGINT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dt.ID() != types.LongID {
		t.Errorf("expected long, got %s", dt.Name())
	}

	if _, err := CastTarget("tensor"); err == nil {
		t.Error("expected error for unknown cast target")
	}
}
