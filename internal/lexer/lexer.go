package lexer

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

type TokenType int

// Token types
const (
	LEX_EOF TokenType = iota
	LEX_IDENT
	LEX_NUMBER
	LEX_KEYWORD
	LEX_OPERATOR
	LEX_PUNCTUATION
)

func (t TokenType) String() string {
	switch t {
	case LEX_EOF:
		return "EOF"
	case LEX_IDENT:
		return "IDENT"
	case LEX_NUMBER:
		return "NUMBER"
	case LEX_KEYWORD:
		return "KEYWORD"
	case LEX_OPERATOR:
		return "OPERATOR"
	case LEX_PUNCTUATION:
		return "PUNCTUATION"
	default:
		return "UNKNOWN"
	}
}

var keywords = map[string]bool{
	"output": true,
}

// Single-character operators and punctuation
var singleCharTokens = map[rune]TokenType{
	'(': LEX_PUNCTUATION,
	')': LEX_PUNCTUATION,
	';': LEX_PUNCTUATION,
	'+': LEX_OPERATOR,
	'-': LEX_OPERATOR,
	'*': LEX_OPERATOR,
	'/': LEX_OPERATOR,
	'%': LEX_OPERATOR,
}

type Location struct {
	Filename string
	Line     int
	Col      int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col)
}

type Lexeme struct {
	Type TokenType
	Str  string
	Loc  Location
}

func (l Lexeme) String() string {
	if l.Str == "" {
		return fmt.Sprintf("<%s>", l.Type)
	}
	return fmt.Sprintf("<%s %q>", l.Type, l.Str)
}

func (l Lexeme) IsKeyword(kv string) bool {
	return l.Type == LEX_KEYWORD && l.Str == kv
}

func (l Lexeme) IsPunctuation(pv string) bool {
	return l.Type == LEX_PUNCTUATION && l.Str == pv
}

func (l Lexeme) IsOperator(op string) bool {
	return l.Type == LEX_OPERATOR && l.Str == op
}

type Lexer struct {
	input     *bufio.Reader
	filename  string
	line      int
	col       int
	prevCol   int
	lastRune  rune
	hasUnread bool
}

func New(inputReader io.Reader, filename string) *Lexer {
	return &Lexer{
		input:    bufio.NewReader(inputReader),
		filename: filename,
		line:     1,
		col:      1,
		prevCol:  1,
	}
}

// readRune reads the next rune from the input
func (l *Lexer) readRune() (rune, error) {
	var r rune
	var err error

	if l.hasUnread {
		l.hasUnread = false
		r = l.lastRune
	} else {
		r, _, err = l.input.ReadRune()
	}

	if err != nil {
		return 0, err
	}

	l.prevCol = l.col
	l.lastRune = r
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, nil
}

// unreadRune puts back the last read rune.
// Should be called at most once per readRune.
func (l *Lexer) unreadRune() {
	l.hasUnread = true
	if l.lastRune == '\n' {
		l.line--
	}
	l.col = l.prevCol
}

func (l *Lexer) location(line, col int) Location {
	return Location{Filename: l.filename, Line: line, Col: col}
}

// skipSpace skips whitespace characters
func (l *Lexer) skipSpace() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !unicode.IsSpace(r) {
			l.unreadRune()
			return nil
		}
	}
}

// skipComment skips a C++ style comment (from // to end of line)
func (l *Lexer) skipComment() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

// Next returns the next lexeme from the input
func (l *Lexer) Next() (Lexeme, error) {
	if err := l.skipSpace(); err != nil {
		return Lexeme{Type: LEX_EOF}, err
	}
	startLine := l.line
	startCol := l.col
	r, err := l.readRune()
	if err != nil {
		if err == io.EOF {
			return Lexeme{Type: LEX_EOF, Loc: l.location(startLine, startCol)}, nil
		}
		return Lexeme{Type: LEX_EOF}, err
	}

	switch {
	case unicode.IsLetter(r) || r == '_':
		l.unreadRune()
		return l.lexIdent(startLine, startCol)
	case unicode.IsDigit(r):
		l.unreadRune()
		return l.lexNumber(startLine, startCol)
	case r == '/':
		nextR, err := l.readRune()
		if err != nil && err != io.EOF {
			return Lexeme{Type: LEX_EOF}, err
		}
		if err == nil && nextR == '/' {
			if err := l.skipComment(); err != nil {
				return Lexeme{Type: LEX_EOF}, err
			}
			return l.Next()
		}
		if err == nil {
			l.unreadRune()
		}
		return Lexeme{Type: LEX_OPERATOR, Str: "/", Loc: l.location(startLine, startCol)}, nil
	case r == ':':
		nextR, err := l.readRune()
		if err != nil && err != io.EOF {
			return Lexeme{Type: LEX_EOF}, err
		}
		if err == nil && nextR == '=' {
			return Lexeme{Type: LEX_OPERATOR, Str: ":=", Loc: l.location(startLine, startCol)}, nil
		}
		return Lexeme{Type: LEX_EOF}, fmt.Errorf("%s: expected ':=' after ':'", l.location(startLine, startCol))
	}

	if tokenType, ok := singleCharTokens[r]; ok {
		return Lexeme{Type: tokenType, Str: string(r), Loc: l.location(startLine, startCol)}, nil
	}

	return Lexeme{Type: LEX_EOF}, fmt.Errorf("%s: unexpected character %q", l.location(startLine, startCol), r)
}

func (l *Lexer) lexIdent(startLine, startCol int) (Lexeme, error) {
	var runes []rune
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{Type: LEX_EOF}, err
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			l.unreadRune()
			break
		}
		runes = append(runes, r)
	}
	str := string(runes)
	tokenType := LEX_IDENT
	if keywords[str] {
		tokenType = LEX_KEYWORD
	}
	return Lexeme{Type: tokenType, Str: str, Loc: l.location(startLine, startCol)}, nil
}

func (l *Lexer) lexNumber(startLine, startCol int) (Lexeme, error) {
	var runes []rune
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{Type: LEX_EOF}, err
		}
		if !unicode.IsDigit(r) {
			l.unreadRune()
			break
		}
		runes = append(runes, r)
	}
	return Lexeme{Type: LEX_NUMBER, Str: string(runes), Loc: l.location(startLine, startCol)}, nil
}
