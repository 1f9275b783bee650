package checks

import (
	"fmt"

	"github.com/iley/coki/internal/ast"
	"github.com/iley/coki/internal/symtab"
)

// VariableChecker reports reads of variables that have not been assigned
// yet. A name counts as assigned only after the statement assigning it, so
// "x := x + 1" on a fresh x is an error.
type VariableChecker struct {
	assigned map[string]bool
	errors   []error
}

func NewVariableChecker() *VariableChecker {
	return &VariableChecker{
		assigned: make(map[string]bool),
		errors:   []error{},
	}
}

func (c *VariableChecker) Success() bool {
	return len(c.errors) == 0
}

func (c *VariableChecker) Errors() []error {
	return c.errors
}

func (c *VariableChecker) CheckProgram(program *ast.Program) {
	for _, stmt := range program.Statements {
		c.CheckStatement(stmt)
	}
}

func (c *VariableChecker) CheckStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Assign:
		c.CheckExpression(s.Value)
		c.assigned[s.Name] = true
	case *ast.Output:
		c.CheckExpression(s.Value)
	}
}

func (c *VariableChecker) CheckExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Variable:
		if !c.assigned[e.Name] {
			c.errors = append(c.errors, fmt.Errorf("%s: %w: %s", e.Loc, symtab.ErrUndefined, e.Name))
		}
	case *ast.AddSub:
		for _, term := range e.Terms {
			c.CheckExpression(term.Expr)
		}
	case *ast.MultDiv:
		for _, term := range e.Terms {
			c.CheckExpression(term.Expr)
		}
	}
}
