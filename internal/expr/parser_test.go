package expr

import (
	"testing"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{
			"concat(a, 'bar')",
			[]TokenType{TokenIdent, TokenLParen, TokenIdent, TokenComma, TokenString, TokenRParen, TokenEOF},
		},
		{
			"a + b * 2",
			[]TokenType{TokenIdent, TokenPlus, TokenIdent, TokenStar, TokenNumber, TokenEOF},
		},
		{
			"o.x || 'suffix'",
			[]TokenType{TokenIdent, TokenDot, TokenIdent, TokenConcat, TokenString, TokenEOF},
		},
		{
			"CAST(ts AS long)",
			[]TokenType{TokenCast, TokenLParen, TokenIdent, TokenAs, TokenIdent, TokenRParen, TokenEOF},
		},
		{
			"a >= 1 AND NOT b",
			[]TokenType{TokenIdent, TokenGe, TokenNumber, TokenAnd, TokenNot, TokenIdent, TokenEOF},
		},
		{
			`"Weird Name" <> 'it''s'`,
			[]TokenType{TokenIdent, TokenNe, TokenString, TokenEOF},
		},
	}

	for _, tt := range tests {
		lexer := NewLexer(tt.input)
		tokens := lexer.Tokenize()

		if len(tokens) != len(tt.expected) {
			t.Errorf("input %q: expected %d tokens, got %d", tt.input, len(tt.expected), len(tokens))
			continue
		}

		for i, tok := range tokens {
			if tok.Type != tt.expected[i] {
				t.Errorf("input %q: token %d: expected %s, got %s", tt.input, i, tt.expected[i], tok.Type)
			}
		}
	}
}

func TestParseColumnPath(t *testing.T) {
	e, err := Parse("o.x.y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref, ok := e.(*ColumnRef)
	if !ok {
		t.Fatalf("expected ColumnRef, got %T", e)
	}
	if len(ref.Path) != 3 || ref.Path[0] != "o" || ref.Path[1] != "x" || ref.Path[2] != "y" {
		t.Errorf("unexpected path: %v", ref.Path)
	}
}

func TestParseFunctionCall(t *testing.T) {
	e, err := Parse("concat(a, 'bar')")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, ok := e.(*FunctionCall)
	if !ok {
		t.Fatalf("expected FunctionCall, got %T", e)
	}
	if call.Name != "concat" {
		t.Errorf("expected function concat, got %q", call.Name)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
	if _, ok := call.Args[0].(*ColumnRef); !ok {
		t.Errorf("expected first arg ColumnRef, got %T", call.Args[0])
	}
	lit, ok := call.Args[1].(*Literal)
	if !ok {
		t.Fatalf("expected second arg Literal, got %T", call.Args[1])
	}
	if lit.Value != "bar" {
		t.Errorf("expected literal \"bar\", got %v", lit.Value)
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * 2", "(a + (b * 2))"},
		{"a * b + 2", "((a * b) + 2)"},
		{"a || b || c", "((a || b) || c)"},
		{"a = 1 AND b = 2", "((a = 1) AND (b = 2))"},
		{"a = 1 OR b = 2 AND c = 3", "((a = 1) OR ((b = 2) AND (c = 3)))"},
		{"(a + b) * 2", "(((a + b)) * 2)"},
		{"-a + b", "(- a + b)"},
	}

	for _, tt := range tests {
		e, err := Parse(tt.input)
		if err != nil {
			t.Errorf("input %q: unexpected error: %v", tt.input, err)
			continue
		}
		if got := e.String(); got != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParseCast(t *testing.T) {
	e, err := Parse("CAST(ts AS long)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cast, ok := e.(*CastExpr)
	if !ok {
		t.Fatalf("expected CastExpr, got %T", e)
	}
	if cast.TypeName != "long" {
		t.Errorf("expected target long, got %q", cast.TypeName)
	}
}

func TestParseNumberLiterals(t *testing.T) {
	e, err := Parse("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lit := e.(*Literal)
	if v, ok := lit.Value.(int64); !ok || v != 42 {
		t.Errorf("expected int64 42, got %T %v", lit.Value, lit.Value)
	}

	e, err = Parse("3.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lit = e.(*Literal)
	if v, ok := lit.Value.(float64); !ok || v != 3.5 {
		t.Errorf("expected float64 3.5, got %T %v", lit.Value, lit.Value)
	}
}

func TestParseStringEscapes(t *testing.T) {
	e, err := Parse("'it''s'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lit := e.(*Literal)
	if lit.Value != "it's" {
		t.Errorf("expected \"it's\", got %v", lit.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"concat(a,",
		"a +",
		"CAST(a AS)",
		"a b",
		"(a + b",
		"'unterminated",
	}

	for _, input := range tests {
		if _, err := Parse(input); err == nil {
			t.Errorf("input %q: expected parse error, got none", input)
		}
	}
}
