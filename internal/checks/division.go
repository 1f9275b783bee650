package checks

import (
	"fmt"

	"github.com/iley/coki/internal/ast"
)

// DivisionChecker reports division or remainder by a literal zero.
type DivisionChecker struct {
	errors []error
}

func NewDivisionChecker() *DivisionChecker {
	return &DivisionChecker{errors: []error{}}
}

func (c *DivisionChecker) Errors() []error {
	return c.errors
}

func (c *DivisionChecker) CheckProgram(program *ast.Program) {
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.Assign:
			c.CheckExpression(s.Value)
		case *ast.Output:
			c.CheckExpression(s.Value)
		}
	}
}

func (c *DivisionChecker) CheckExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.AddSub:
		for _, term := range e.Terms {
			c.CheckExpression(term.Expr)
		}
	case *ast.MultDiv:
		for _, term := range e.Terms {
			if n, ok := term.Expr.(*ast.Number); ok && n.Value == 0 &&
				(term.Op == ast.MultDivide || term.Op == ast.MultModulo) {
				c.errors = append(c.errors, fmt.Errorf("%s: division by constant zero", n.Loc))
			}
			c.CheckExpression(term.Expr)
		}
	}
}
