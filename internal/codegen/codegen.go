// Package codegen lowers the syntax tree into the abstract instruction set
// of package asm.
//
// Every expression leaves its value on the evaluation stack. Term chains
// thread the running value through the accumulator: the first term is popped
// straight into it, and each following term pushes the accumulator, pushes
// its own value, pops both back (right operand first) and combines them, so
// binary operations always see (accumulator, right) in that order.
package codegen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iley/coki/internal/asm"
	"github.com/iley/coki/internal/ast"
	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/layout"
	"github.com/iley/coki/internal/symtab"
)

const op = "codegen.Generate"

type Generator struct {
	symbols *symtab.Table
	logger  *zap.Logger
}

func NewGenerator(symbols *symtab.Table, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{symbols: symbols, logger: logger}
}

// Generate lowers a whole program using a fresh symbol table laid over the
// variable region of the JIT buffer.
func Generate(program *ast.Program, logger *zap.Logger) (asm.Program, *symtab.Table, error) {
	symbols := symtab.New(layout.VariableOffset, layout.VariableSize)
	g := NewGenerator(symbols, logger)
	result, err := g.GenerateProgram(program)
	return result, symbols, err
}

func (g *Generator) GenerateProgram(program *ast.Program) (asm.Program, error) {
	var result asm.Program
	for _, stmt := range program.Statements {
		instrs, err := g.GenerateStatement(stmt)
		if err != nil {
			return asm.Program{}, err
		}
		g.logger.Debug("Lowered statement",
			zap.Stringer("statement", stmt),
			zap.Int("instructions", len(instrs)))
		result.Append(instrs...)
	}
	return result, nil
}

func (g *Generator) GenerateStatement(stmt ast.Statement) ([]asm.Instruction, error) {
	switch s := stmt.(type) {
	case *ast.Assign:
		// The right-hand side is evaluated before the slot exists, so
		// "x := x + 1" on a fresh x is still an undefined read.
		instrs, err := g.GenerateExpression(s.Value)
		if err != nil {
			return nil, err
		}
		offset, err := g.symbols.Write(s.Name)
		if err != nil {
			return nil, compileError(s.Loc, err)
		}
		return append(instrs, asm.Pop(asm.Mem(offset))), nil
	case *ast.Output:
		instrs, err := g.GenerateExpression(s.Value)
		if err != nil {
			return nil, err
		}
		return append(instrs, asm.Pop(asm.Reg(asm.Accumulator)), asm.Out()), nil
	case nil:
		return nil, errors.Errorf(errors.ECompile, op, "nil statement")
	default:
		return nil, compileError(stmt.GetLocation(), fmt.Errorf("unsupported statement %s", stmt))
	}
}

func (g *Generator) GenerateExpression(expr ast.Expression) ([]asm.Instruction, error) {
	switch e := expr.(type) {
	case *ast.Number:
		return []asm.Instruction{asm.Push(asm.Imm(e.Value))}, nil
	case *ast.Variable:
		offset, err := g.symbols.Read(e.Name)
		if err != nil {
			return nil, compileError(e.Loc, err)
		}
		return []asm.Instruction{asm.Push(asm.Mem(offset))}, nil
	case *ast.AddSub:
		return g.generateAddSub(e)
	case *ast.MultDiv:
		return g.generateMultDiv(e)
	case nil:
		return nil, errors.Errorf(errors.ECompile, op, "nil expression")
	default:
		return nil, compileError(expr.GetLocation(), fmt.Errorf("unsupported expression %s", expr))
	}
}

func (g *Generator) generateAddSub(e *ast.AddSub) ([]asm.Instruction, error) {
	if len(e.Terms) == 0 {
		return nil, compileError(e.Loc, fmt.Errorf("empty additive expression"))
	}
	var instrs []asm.Instruction
	for i, term := range e.Terms {
		if (i == 0) != (term.Op == ast.AddStart) {
			return nil, compileError(e.Loc, fmt.Errorf("malformed additive term %d: %s", i, term.Op))
		}
		var combine asm.Instruction
		switch term.Op {
		case ast.AddStart:
		case ast.AddPlus:
			combine = asm.Add(asm.Reg(asm.Accumulator), asm.Reg(asm.Right))
		case ast.AddMinus:
			combine = asm.Sub(asm.Reg(asm.Accumulator), asm.Reg(asm.Right))
		default:
			return nil, compileError(e.Loc, fmt.Errorf("unknown additive operator %s", term.Op))
		}
		termInstrs, err := g.generateTerm(term.Expr, term.Op == ast.AddStart, combine)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, termInstrs...)
	}
	return append(instrs, asm.Push(asm.Reg(asm.Accumulator))), nil
}

func (g *Generator) generateMultDiv(e *ast.MultDiv) ([]asm.Instruction, error) {
	if len(e.Terms) == 0 {
		return nil, compileError(e.Loc, fmt.Errorf("empty multiplicative expression"))
	}
	var instrs []asm.Instruction
	for i, term := range e.Terms {
		if (i == 0) != (term.Op == ast.MultStart) {
			return nil, compileError(e.Loc, fmt.Errorf("malformed multiplicative term %d: %s", i, term.Op))
		}
		var combine asm.Instruction
		switch term.Op {
		case ast.MultStart:
		case ast.MultTimes:
			combine = asm.Mul(asm.Reg(asm.Accumulator), asm.Reg(asm.Right))
		case ast.MultDivide, ast.MultModulo:
			if n, ok := term.Expr.(*ast.Number); ok && n.Value == 0 {
				return nil, compileError(n.Loc, fmt.Errorf("division by constant zero"))
			}
			if term.Op == ast.MultDivide {
				combine = asm.Div(asm.Reg(asm.Accumulator), asm.Reg(asm.Right))
			} else {
				combine = asm.Mod(asm.Reg(asm.Accumulator), asm.Reg(asm.Right))
			}
		default:
			return nil, compileError(e.Loc, fmt.Errorf("unknown multiplicative operator %s", term.Op))
		}
		termInstrs, err := g.generateTerm(term.Expr, term.Op == ast.MultStart, combine)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, termInstrs...)
	}
	return append(instrs, asm.Push(asm.Reg(asm.Accumulator))), nil
}

// generateTerm lowers one element of a term chain. The start term seeds the
// accumulator; any other term is combined into it with the given instruction.
func (g *Generator) generateTerm(expr ast.Expression, start bool, combine asm.Instruction) ([]asm.Instruction, error) {
	exprInstrs, err := g.GenerateExpression(expr)
	if err != nil {
		return nil, err
	}
	if start {
		return append(exprInstrs, asm.Pop(asm.Reg(asm.Accumulator))), nil
	}

	instrs := []asm.Instruction{asm.Push(asm.Reg(asm.Accumulator))}
	instrs = append(instrs, exprInstrs...)
	return append(instrs,
		asm.Pop(asm.Reg(asm.Right)),
		asm.Pop(asm.Reg(asm.Accumulator)),
		combine), nil
}

func compileError(loc ast.Location, err error) error {
	e := &errors.Error{Code: errors.ECompile, Op: op, Err: err}
	if loc.Line > 0 {
		e.Msg = loc.String()
	}
	return e
}
