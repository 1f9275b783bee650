package parser

import (
	"strings"
	"testing"

	"github.com/iley/coki/internal/ast"
	"github.com/iley/coki/internal/lexer"
)

func parseString(t *testing.T, src string) (*ast.Program, error) {
	t.Helper()
	p := New(lexer.New(strings.NewReader(src), "test.coki"))
	return p.ParseProgram()
}

func TestParser_Programs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty program",
			input:    "",
			expected: "(program)",
		},
		{
			name:     "literal assignment",
			input:    "x := 3;",
			expected: "(program (:= x 3))",
		},
		{
			name:     "assignment and output",
			input:    "x := 3; y := x + 4; output y;",
			expected: "(program (:= x 3) (:= y (+- (start x) (+ 4))) (output y))",
		},
		{
			name:     "precedence",
			input:    "output 1 + 2 * 3;",
			expected: "(program (output (+- (start 1) (+ (*/ (start 2) (* 3))))))",
		},
		{
			name:     "left associativity",
			input:    "output 10 - 4 - 3;",
			expected: "(program (output (+- (start 10) (- 4) (- 3))))",
		},
		{
			name:     "division and modulo",
			input:    "output 7 / 2 % 3;",
			expected: "(program (output (*/ (start 7) (/ 2) (% 3))))",
		},
		{
			name:     "parentheses",
			input:    "output (1 + 2) * 3;",
			expected: "(program (output (*/ (start (+- (start 1) (+ 2))) (* 3))))",
		},
		{
			name:     "negative literal",
			input:    "n := -2147483648;",
			expected: "(program (:= n -2147483648))",
		},
		{
			name:     "comments",
			input:    "// nothing here\nz := 0; // zero\n",
			expected: "(program (:= z 0))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := parseString(t, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := program.String(); got != tt.expected {
				t.Errorf("got %s\nwant %s", got, tt.expected)
			}
		})
	}
}

func TestParser_TermShape(t *testing.T) {
	program, err := parseString(t, "output a - b;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := program.Statements[0].(*ast.Output)
	sum, ok := output.Value.(*ast.AddSub)
	if !ok {
		t.Fatalf("expected *ast.AddSub, got %T", output.Value)
	}
	if len(sum.Terms) != 2 || sum.Terms[0].Op != ast.AddStart || sum.Terms[1].Op != ast.AddMinus {
		t.Errorf("unexpected terms: %v", sum)
	}
	if loc := sum.Terms[1].Expr.GetLocation(); loc.Line != 1 || loc.Col != 12 {
		t.Errorf("unexpected location of b: %s", loc)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{name: "missing semicolon", input: "x := 1", message: "test.coki:1:7: expected ';'"},
		{name: "missing assignment operator", input: "x 1;", message: "expected ':=' after x"},
		{name: "bad statement", input: "1 := x;", message: "expected statement"},
		{name: "dangling operator", input: "output 1 +;", message: "expected expression"},
		{name: "unclosed parenthesis", input: "output (1 + 2;", message: "expected ')'"},
		{name: "literal too large", input: "x := 2147483648;", message: "does not fit in 32 bits"},
		{name: "unary minus on a variable", input: "x := -y;", message: "expected a number after unary '-'"},
		{name: "keyword as target", input: "output := 1;", message: "expected expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.input)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not contain %q", err, tt.message)
			}
		})
	}
}
