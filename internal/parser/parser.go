package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iley/coki/internal/ast"
	"github.com/iley/coki/internal/lexer"
)

type Parser struct {
	lexer   *lexer.Lexer
	lexemes []lexer.Lexeme
	pos     int
}

func New(lex *lexer.Lexer) *Parser {
	return &Parser{lexer: lex}
}

func (p *Parser) consume() (lexer.Lexeme, error) {
	lex, err := p.peek()
	if err != nil {
		return lexer.Lexeme{}, err
	}
	p.pos++
	return lex, nil
}

func (p *Parser) peek() (lexer.Lexeme, error) {
	if p.pos >= len(p.lexemes) {
		lex, err := p.lexer.Next()
		if err != nil {
			return lexer.Lexeme{}, err
		}
		p.lexemes = append(p.lexemes, lex)
	}
	return p.lexemes[p.pos], nil
}

func (p *Parser) expectPunctuation(pv string) error {
	lex, err := p.consume()
	if err != nil {
		return err
	}
	if !lex.IsPunctuation(pv) {
		return fmt.Errorf("%s: expected '%s', got %v", lex.Loc, pv, lex)
	}
	return nil
}

// ParseProgram parses statements until the end of input.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := &ast.Program{Statements: []ast.Statement{}}
	first := true
	for {
		lex, err := p.peek()
		if err != nil {
			return nil, err
		}
		if first {
			program.Loc = lex.Loc
			first = false
		}
		if lex.Type == lexer.LEX_EOF {
			return program, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	lex, err := p.consume()
	if err != nil {
		return nil, err
	}

	var stmt ast.Statement
	switch {
	case lex.IsKeyword("output"):
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt = &ast.Output{Loc: lex.Loc, Value: value}
	case lex.Type == lexer.LEX_IDENT:
		op, err := p.consume()
		if err != nil {
			return nil, err
		}
		if !op.IsOperator(":=") {
			return nil, fmt.Errorf("%s: expected ':=' after %s, got %v", op.Loc, lex.Str, op)
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt = &ast.Assign{Loc: lex.Loc, Name: lex.Str, Value: value}
	default:
		return nil, fmt.Errorf("%s: expected statement, got %v", lex.Loc, lex)
	}

	if err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseExpression parses term { ("+" | "-") term }. A single term is
// returned as is rather than wrapped into a one-element AddSub.
func (p *Parser) parseExpression() (ast.Expression, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []ast.AddTerm{{Op: ast.AddStart, Expr: first}}

	for {
		lex, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ast.AddOp
		if lex.IsOperator("+") {
			op = ast.AddPlus
		} else if lex.IsOperator("-") {
			op = ast.AddMinus
		} else {
			break
		}
		p.pos++
		expr, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, ast.AddTerm{Op: op, Expr: expr})
	}

	if len(terms) == 1 {
		return first, nil
	}
	return &ast.AddSub{Loc: first.GetLocation(), Terms: terms}, nil
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	first, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	terms := []ast.MultTerm{{Op: ast.MultStart, Expr: first}}

	for {
		lex, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ast.MultOp
		if lex.IsOperator("*") {
			op = ast.MultTimes
		} else if lex.IsOperator("/") {
			op = ast.MultDivide
		} else if lex.IsOperator("%") {
			op = ast.MultModulo
		} else {
			break
		}
		p.pos++
		expr, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		terms = append(terms, ast.MultTerm{Op: op, Expr: expr})
	}

	if len(terms) == 1 {
		return first, nil
	}
	return &ast.MultDiv{Loc: first.GetLocation(), Terms: terms}, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	lex, err := p.consume()
	if err != nil {
		return nil, err
	}

	switch {
	case lex.Type == lexer.LEX_NUMBER:
		return parseNumber(lex, false)
	case lex.IsOperator("-"):
		num, err := p.consume()
		if err != nil {
			return nil, err
		}
		if num.Type != lexer.LEX_NUMBER {
			return nil, fmt.Errorf("%s: expected a number after unary '-', got %v", num.Loc, num)
		}
		result, err := parseNumber(num, true)
		if err != nil {
			return nil, err
		}
		result.Loc = lex.Loc
		return result, nil
	case lex.Type == lexer.LEX_IDENT:
		return &ast.Variable{Loc: lex.Loc, Name: lex.Str}, nil
	case lex.IsPunctuation("("):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunctuation(")"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, fmt.Errorf("%s: expected expression, got %v", lex.Loc, lex)
}

// parseNumber converts a number lexeme into a literal that fits a signed
// 32-bit immediate.
func parseNumber(lex lexer.Lexeme, negative bool) (*ast.Number, error) {
	value, err := strconv.ParseInt(lex.Str, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q: %w", lex.Loc, lex.Str, err)
	}
	if negative {
		value = -value
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		return nil, fmt.Errorf("%s: number %d does not fit in 32 bits", lex.Loc, value)
	}
	return &ast.Number{Loc: lex.Loc, Value: int32(value)}, nil
}
