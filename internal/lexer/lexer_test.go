package lexer

import (
	"strings"
	"testing"
)

func loc(line, col int) Location {
	return Location{Filename: "test.coki", Line: line, Col: col}
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Lexeme
	}{
		{
			name:  "empty input",
			input: "",
			expected: []Lexeme{
				{Type: LEX_EOF, Loc: loc(1, 1)},
			},
		},
		{
			name:  "assignment",
			input: "x := 42;",
			expected: []Lexeme{
				{Type: LEX_IDENT, Str: "x", Loc: loc(1, 1)},
				{Type: LEX_OPERATOR, Str: ":=", Loc: loc(1, 3)},
				{Type: LEX_NUMBER, Str: "42", Loc: loc(1, 6)},
				{Type: LEX_PUNCTUATION, Str: ";", Loc: loc(1, 8)},
				{Type: LEX_EOF, Loc: loc(1, 9)},
			},
		},
		{
			name:  "output keyword",
			input: "output y_1;",
			expected: []Lexeme{
				{Type: LEX_KEYWORD, Str: "output", Loc: loc(1, 1)},
				{Type: LEX_IDENT, Str: "y_1", Loc: loc(1, 8)},
				{Type: LEX_PUNCTUATION, Str: ";", Loc: loc(1, 11)},
				{Type: LEX_EOF, Loc: loc(1, 12)},
			},
		},
		{
			name:  "arithmetic operators",
			input: "(a+b)*c/d%e-1",
			expected: []Lexeme{
				{Type: LEX_PUNCTUATION, Str: "(", Loc: loc(1, 1)},
				{Type: LEX_IDENT, Str: "a", Loc: loc(1, 2)},
				{Type: LEX_OPERATOR, Str: "+", Loc: loc(1, 3)},
				{Type: LEX_IDENT, Str: "b", Loc: loc(1, 4)},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: loc(1, 5)},
				{Type: LEX_OPERATOR, Str: "*", Loc: loc(1, 6)},
				{Type: LEX_IDENT, Str: "c", Loc: loc(1, 7)},
				{Type: LEX_OPERATOR, Str: "/", Loc: loc(1, 8)},
				{Type: LEX_IDENT, Str: "d", Loc: loc(1, 9)},
				{Type: LEX_OPERATOR, Str: "%", Loc: loc(1, 10)},
				{Type: LEX_IDENT, Str: "e", Loc: loc(1, 11)},
				{Type: LEX_OPERATOR, Str: "-", Loc: loc(1, 12)},
				{Type: LEX_NUMBER, Str: "1", Loc: loc(1, 13)},
				{Type: LEX_EOF, Loc: loc(1, 14)},
			},
		},
		{
			name:  "comments and newlines",
			input: "// header\nx := 1; // trailing\noutput x;",
			expected: []Lexeme{
				{Type: LEX_IDENT, Str: "x", Loc: loc(2, 1)},
				{Type: LEX_OPERATOR, Str: ":=", Loc: loc(2, 3)},
				{Type: LEX_NUMBER, Str: "1", Loc: loc(2, 6)},
				{Type: LEX_PUNCTUATION, Str: ";", Loc: loc(2, 7)},
				{Type: LEX_KEYWORD, Str: "output", Loc: loc(3, 1)},
				{Type: LEX_IDENT, Str: "x", Loc: loc(3, 8)},
				{Type: LEX_PUNCTUATION, Str: ";", Loc: loc(3, 9)},
				{Type: LEX_EOF, Loc: loc(3, 10)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := New(strings.NewReader(tt.input), "test.coki")
			for i, want := range tt.expected {
				got, err := lex.Next()
				if err != nil {
					t.Fatalf("lexeme %d: unexpected error: %v", i, err)
				}
				if got != want {
					t.Errorf("lexeme %d: got %v at %s, want %v at %s", i, got, got.Loc, want, want.Loc)
				}
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{name: "lone colon", input: "x : 1", message: "test.coki:1:3: expected ':='"},
		{name: "unknown character", input: "x := $", message: "test.coki:1:6: unexpected character '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := New(strings.NewReader(tt.input), "test.coki")
			var err error
			for i := 0; i < 10 && err == nil; i++ {
				var lexeme Lexeme
				lexeme, err = lex.Next()
				if err == nil && lexeme.Type == LEX_EOF {
					break
				}
			}
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not contain %q", err, tt.message)
			}
		})
	}
}

func TestLexeme_String(t *testing.T) {
	if got := (Lexeme{Type: LEX_EOF}).String(); got != "<EOF>" {
		t.Errorf("got %q", got)
	}
	if got := (Lexeme{Type: LEX_IDENT, Str: "x"}).String(); got != `<IDENT "x">` {
		t.Errorf("got %q", got)
	}
}
