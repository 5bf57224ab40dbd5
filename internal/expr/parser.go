package expr

import (
	"fmt"
	"strconv"
)

// ParseError represents a parsing error with location information.
type ParseError struct {
	Message  string
	Position int
	Token    Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s (got %s)", e.Position, e.Message, e.Token.Literal)
}

// Parser parses expression sources into AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// NewParser creates a new Parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete expression. Trailing input is an error.
func Parse(input string) (Expression, error) {
	p := NewParser(input)
	e, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(TokenEOF) {
		return nil, &ParseError{
			Message:  "unexpected trailing input",
			Position: p.curToken.Pos,
			Token:    p.curToken,
		}
	}
	return e, nil
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// errorf builds a ParseError at the current token.
func (p *Parser) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Position: p.curToken.Pos,
		Token:    p.curToken,
	}
}

// Operator precedence levels
const (
	precLowest  = 0
	precOr      = 1
	precAnd     = 2
	precNot     = 3
	precCompare = 4
	precConcat  = 5
	precAdd     = 6
	precMul     = 7
	precUnary   = 8
)

// getPrecedence returns the precedence of the current token.
func (p *Parser) getPrecedence() int {
	switch p.curToken.Type {
	case TokenOr:
		return precOr
	case TokenAnd:
		return precAnd
	case TokenEq, TokenNe, TokenLt, TokenGt, TokenLe, TokenGe:
		return precCompare
	case TokenConcat:
		return precConcat
	case TokenPlus, TokenMinus:
		return precAdd
	case TokenStar, TokenSlash, TokenPct:
		return precMul
	default:
		return precLowest
	}
}

// parseExpression parses an expression with operator precedence.
func (p *Parser) parseExpression(precedence int) (Expression, error) {
	left, err := p.parsePrefixExpression()
	if err != nil {
		return nil, err
	}

	for !p.curTokenIs(TokenEOF) && precedence < p.getPrecedence() {
		left, err = p.parseInfixExpression(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefixExpression parses a prefix expression.
func (p *Parser) parsePrefixExpression() (Expression, error) {
	switch p.curToken.Type {
	case TokenIdent:
		return p.parseIdentifierOrFunction()
	case TokenNumber:
		return p.parseNumber()
	case TokenString:
		return p.parseString()
	case TokenNull:
		p.nextToken()
		return &Literal{Value: nil}, nil
	case TokenTrue:
		p.nextToken()
		return &Literal{Value: true}, nil
	case TokenFalse:
		p.nextToken()
		return &Literal{Value: false}, nil
	case TokenLParen:
		return p.parseGroupedExpression()
	case TokenNot:
		return p.parseNotExpression()
	case TokenMinus:
		return p.parseUnaryMinus()
	case TokenCast:
		return p.parseCast()
	case TokenError:
		return nil, p.errorf("invalid input: %s", p.curToken.Literal)
	default:
		return nil, p.errorf("unexpected token in expression")
	}
}

// parseIdentifierOrFunction parses a column reference or function call.
// Column references may be dotted paths into nested objects.
func (p *Parser) parseIdentifierOrFunction() (Expression, error) {
	name := p.curToken.Literal
	p.nextToken()

	// Function call
	if p.curTokenIs(TokenLParen) {
		return p.parseFunctionCall(name)
	}

	// Dotted path into a nested object column
	path := []string{name}
	for p.curTokenIs(TokenDot) {
		p.nextToken()
		if !p.curTokenIs(TokenIdent) {
			return nil, p.errorf("expected identifier after dot")
		}
		path = append(path, p.curToken.Literal)
		p.nextToken()
	}

	return &ColumnRef{Path: path}, nil
}

// parseFunctionCall parses a function call; the opening paren is the
// current token.
func (p *Parser) parseFunctionCall(name string) (Expression, error) {
	p.nextToken() // Skip (

	var args []Expression
	if !p.curTokenIs(TokenRParen) {
		for {
			arg, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}

	if !p.curTokenIs(TokenRParen) {
		return nil, p.errorf("expected ) after function arguments")
	}
	p.nextToken()

	return &FunctionCall{Name: name, Args: args}, nil
}

// parseCast parses CAST(expr AS type).
func (p *Parser) parseCast() (Expression, error) {
	p.nextToken() // Skip CAST

	if !p.curTokenIs(TokenLParen) {
		return nil, p.errorf("expected ( after CAST")
	}
	p.nextToken()

	inner, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenAs) {
		return nil, p.errorf("expected AS in CAST expression")
	}
	p.nextToken()

	if !p.curTokenIs(TokenIdent) {
		return nil, p.errorf("expected type name in CAST expression")
	}
	typeName := p.curToken.Literal
	p.nextToken()

	if !p.curTokenIs(TokenRParen) {
		return nil, p.errorf("expected ) after CAST expression")
	}
	p.nextToken()

	return &CastExpr{Expr: inner, TypeName: typeName}, nil
}

// parseNumber parses a numeric literal.
func (p *Parser) parseNumber() (Expression, error) {
	literal := p.curToken.Literal

	// Try parsing as int64 first
	if val, err := strconv.ParseInt(literal, 10, 64); err == nil {
		p.nextToken()
		return &Literal{Value: val}, nil
	}

	val, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil, p.errorf("invalid number")
	}
	p.nextToken()
	return &Literal{Value: val}, nil
}

// parseString parses a string literal.
func (p *Parser) parseString() (Expression, error) {
	// Handle escaped quotes
	val := unescapeString(p.curToken.Literal)
	p.nextToken()
	return &Literal{Value: val}, nil
}

// parseGroupedExpression parses a parenthesized expression.
func (p *Parser) parseGroupedExpression() (Expression, error) {
	p.nextToken() // Skip (

	inner, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenRParen) {
		return nil, p.errorf("expected )")
	}
	p.nextToken()

	return &ParenExpr{Expr: inner}, nil
}

// parseNotExpression parses a NOT expression.
func (p *Parser) parseNotExpression() (Expression, error) {
	p.nextToken() // Skip NOT

	operand, err := p.parseExpression(precNot)
	if err != nil {
		return nil, err
	}

	return &UnaryExpr{Operator: "NOT", Operand: operand}, nil
}

// parseUnaryMinus parses a unary minus expression.
func (p *Parser) parseUnaryMinus() (Expression, error) {
	p.nextToken() // Skip -

	operand, err := p.parseExpression(precUnary)
	if err != nil {
		return nil, err
	}

	return &UnaryExpr{Operator: "-", Operand: operand}, nil
}

// parseInfixExpression parses an infix expression.
func (p *Parser) parseInfixExpression(left Expression) (Expression, error) {
	switch p.curToken.Type {
	case TokenAnd, TokenOr,
		TokenEq, TokenNe, TokenLt, TokenGt, TokenLe, TokenGe,
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPct, TokenConcat:
		op := p.curToken.Literal
		precedence := p.getPrecedence()
		p.nextToken()

		right, err := p.parseExpression(precedence)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Operator: op, Right: right}, nil
	default:
		return left, nil
	}
}

func unescapeString(s string) string {
	if len(s) == 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i])
		if s[i] == '\'' && i+1 < len(s) && s[i+1] == '\'' {
			i++
		}
	}
	return string(out)
}
