package checks

import "github.com/iley/coki/internal/ast"

// Run checks the whole program and returns every problem found, in source
// order.
func Run(program *ast.Program) []error {
	varChecker := NewVariableChecker()
	varChecker.CheckProgram(program)
	divChecker := NewDivisionChecker()
	divChecker.CheckProgram(program)
	return append(varChecker.Errors(), divChecker.Errors()...)
}
