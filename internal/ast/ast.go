package ast

import (
	"fmt"
	"strings"

	"github.com/iley/coki/internal/lexer"
)

type Location = lexer.Location

type AstNode interface {
	fmt.Stringer
	GetLocation() Location
}

type Program struct {
	Loc        Location
	Statements []Statement
}

func (p *Program) GetLocation() Location {
	return p.Loc
}

func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, stmt := range p.Statements {
		sb.WriteString(" ")
		sb.WriteString(stmt.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Statement types.

type Statement interface {
	AstNode
	isStatement()
}

type Assign struct {
	Loc   Location
	Name  string
	Value Expression
}

func (a *Assign) GetLocation() Location {
	return a.Loc
}

func (a *Assign) isStatement() {}

func (a *Assign) String() string {
	return fmt.Sprintf("(:= %s %s)", a.Name, a.Value.String())
}

type Output struct {
	Loc   Location
	Value Expression
}

func (o *Output) GetLocation() Location {
	return o.Loc
}

func (o *Output) isStatement() {}

func (o *Output) String() string {
	return fmt.Sprintf("(output %s)", o.Value.String())
}

// Expression types.

type Expression interface {
	AstNode
	isExpression()
}

type AddOp int

const (
	AddStart AddOp = iota
	AddPlus
	AddMinus
)

func (op AddOp) String() string {
	switch op {
	case AddStart:
		return "start"
	case AddPlus:
		return "+"
	case AddMinus:
		return "-"
	}
	return fmt.Sprintf("AddOp(%d)", int(op))
}

type MultOp int

const (
	MultStart MultOp = iota
	MultTimes
	MultDivide
	MultModulo
)

func (op MultOp) String() string {
	switch op {
	case MultStart:
		return "start"
	case MultTimes:
		return "*"
	case MultDivide:
		return "/"
	case MultModulo:
		return "%"
	}
	return fmt.Sprintf("MultOp(%d)", int(op))
}

type AddTerm struct {
	Op   AddOp
	Expr Expression
}

type MultTerm struct {
	Op   MultOp
	Expr Expression
}

// AddSub is a chain of additive terms. The first term carries AddStart and
// only seeds the running value; every later term is combined into it.
type AddSub struct {
	Loc   Location
	Terms []AddTerm
}

func (e *AddSub) GetLocation() Location {
	return e.Loc
}

func (e *AddSub) isExpression() {}

func (e *AddSub) String() string {
	var sb strings.Builder
	sb.WriteString("(+-")
	for _, term := range e.Terms {
		sb.WriteString(fmt.Sprintf(" (%s %s)", term.Op, term.Expr.String()))
	}
	sb.WriteString(")")
	return sb.String()
}

// MultDiv is a chain of multiplicative terms, shaped like AddSub.
type MultDiv struct {
	Loc   Location
	Terms []MultTerm
}

func (e *MultDiv) GetLocation() Location {
	return e.Loc
}

func (e *MultDiv) isExpression() {}

func (e *MultDiv) String() string {
	var sb strings.Builder
	sb.WriteString("(*/")
	for _, term := range e.Terms {
		sb.WriteString(fmt.Sprintf(" (%s %s)", term.Op, term.Expr.String()))
	}
	sb.WriteString(")")
	return sb.String()
}

type Number struct {
	Loc   Location
	Value int32
}

func (n *Number) GetLocation() Location {
	return n.Loc
}

func (n *Number) isExpression() {}

func (n *Number) String() string {
	return fmt.Sprintf("%d", n.Value)
}

type Variable struct {
	Loc  Location
	Name string
}

func (v *Variable) GetLocation() Location {
	return v.Loc
}

func (v *Variable) isExpression() {}

func (v *Variable) String() string {
	return v.Name
}

// Helpers for building trees by hand, mostly in tests.

func NewNumber(value int32) *Number {
	return &Number{Value: value}
}

func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func NewAssign(name string, value Expression) *Assign {
	return &Assign{Name: name, Value: value}
}

func NewOutput(value Expression) *Output {
	return &Output{Value: value}
}

// Sum builds first op1 e1 op2 e2 ... as an AddSub.
func Sum(first Expression, rest ...AddTerm) *AddSub {
	terms := append([]AddTerm{{Op: AddStart, Expr: first}}, rest...)
	return &AddSub{Terms: terms}
}

// Product builds first op1 e1 op2 e2 ... as a MultDiv.
func Product(first Expression, rest ...MultTerm) *MultDiv {
	terms := append([]MultTerm{{Op: MultStart, Expr: first}}, rest...)
	return &MultDiv{Terms: terms}
}

func Plus(e Expression) AddTerm    { return AddTerm{Op: AddPlus, Expr: e} }
func Minus(e Expression) AddTerm   { return AddTerm{Op: AddMinus, Expr: e} }
func Times(e Expression) MultTerm  { return MultTerm{Op: MultTimes, Expr: e} }
func Divide(e Expression) MultTerm { return MultTerm{Op: MultDivide, Expr: e} }
func Modulo(e Expression) MultTerm { return MultTerm{Op: MultModulo, Expr: e} }
