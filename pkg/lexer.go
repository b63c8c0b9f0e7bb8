package sss

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

type TokenType uint64
type stateFunc func(l *Lexer) stateFunc

//go:generate stringer -type=TokenType -trimprefix=Token
const (
	EOF rune = 0

	TokenError TokenType = iota
	TokenEOF
	TokenNumber
	TokenString

	TokenIdentifier
	TokenVar
	TokenConst
	TokenFun

	TokenPlus
	TokenMinus
	TokenMulti
	TokenDiv
	TokenMod
	TokenAssign
	TokenColon
	TokenSemicolon
	TokenComma
	TokenDot
	TokenArrow
	TokenLineComment
	TokenOpenParentheses
	TokenCloseParentheses
	TokenOpenCurly
	TokenCloseCurly
	TokenOpenBracket
	TokenCloseBracket
)

var keywordTable = map[string]TokenType{
	"var":   TokenVar,
	"const": TokenConst,
	"fun":   TokenFun,
}

var operatorTable = map[string]TokenType{
	"+":  TokenPlus,
	"-":  TokenMinus,
	"*":  TokenMulti,
	"/":  TokenDiv,
	"%":  TokenMod,
	"=":  TokenAssign,
	":":  TokenColon,
	";":  TokenSemicolon,
	",":  TokenComma,
	".":  TokenDot,
	"->": TokenArrow,
	"//": TokenLineComment,
	"(":  TokenOpenParentheses,
	")":  TokenCloseParentheses,
	"{":  TokenOpenCurly,
	"}":  TokenCloseCurly,
	"[":  TokenOpenBracket,
	"]":  TokenCloseBracket,
}

// Location is a position in a source file, 1-indexed.
type Location struct {
	File string
	Line int
	Col  int
}

func (l *Location) String() string {
	if l == nil {
		return "-"
	}

	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}

	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

type Token struct {
	Typ   TokenType
	Value string
	Loc   *Location
}

func (t Token) isValid() bool {
	return t.Typ != TokenError && t.Typ != TokenEOF
}

func (t Token) isComment() bool {
	return t.Typ == TokenLineComment
}

// Tokenizer is the token source consumed by the Parser. The Lexer is the
// canonical implementation; tests substitute buffered mocks.
type Tokenizer interface {
	Do()
	Get() Token
	GetFilename() string
}

type Lexer struct {
	reader   *bufio.Reader
	done     chan Token
	filename string

	line, col         int
	prevLine, prevCol int
}

func NewLexer(filename string) (*Lexer, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	l := NewLexerFromReader(f)
	l.filename = filename

	return l, nil
}

func NewLexerFromReader(reader io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(reader),
		done:   make(chan Token),
		line:   1,
		col:    1,
	}
}

func (l *Lexer) GetFilename() string {
	return l.filename
}

func (l *Lexer) Chan() chan Token {
	return l.done
}

// Do satisfies Tokenizer; it runs the lexer to completion.
func (l *Lexer) Do() {
	l.Run()
}

func (l *Lexer) Get() Token {
	return <-l.done
}

func (l *Lexer) Run() {
	for state := defaultState; state != nil; {
		state = state(l)
	}

	close(l.done)
}

func (l *Lexer) RunBlocking() ([]Token, error) {
	go l.Run()

	var tokens []Token
	for t := range l.Chan() {
		if t.Typ == TokenEOF {
			return tokens, nil
		}

		if t.Typ == TokenError {
			return nil, errors.New(t.Value)
		}

		tokens = append(tokens, t)
	}

	return tokens, nil
}

func defaultState(l *Lexer) stateFunc {
	for {
		switch r := l.peek(); {
		case r == EOF:
			l.emitValue(TokenEOF, "")
			return nil
		case unicode.IsSpace(r):
			l.next()
			continue
		case '0' <= r && r <= '9':
			return numberState
		case r == '"':
			return stringState
		case isIdentStart(r):
			return identifierState
		default:
			return operatorState
		}
	}
}

// isIdentStart reports an ASCII-alpha rune; identifiers may not start with a
// digit or underscore.
func isIdentStart(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || ('0' <= r && r <= '9') || r == '_'
}

func numberState(l *Lexer) stateFunc {
	loc := l.loc()

	var num strings.Builder
	for r := l.peek(); '0' <= r && r <= '9'; r = l.peek() {
		num.WriteRune(l.next())
	}

	// A trailing dot with no fraction digits is still a valid float
	if l.peek() == '.' {
		num.WriteRune(l.next())
		for r := l.peek(); '0' <= r && r <= '9'; r = l.peek() {
			num.WriteRune(l.next())
		}
	}

	return l.emitValueAt(TokenNumber, num.String(), loc)
}

func stringState(l *Lexer) stateFunc {
	loc := l.loc()
	l.next() // Skip the leading double-quote

	var str strings.Builder
	for r := l.next(); r != '"'; r = l.next() {
		if r == EOF {
			return l.errorf(loc, "unclosed string: %s", str.String())
		}

		// No escape processing; every rune up to the closing quote is content
		str.WriteRune(r)
	}

	return l.emitValueAt(TokenString, str.String(), loc)
}

func identifierState(l *Lexer) stateFunc {
	loc := l.loc()

	var id strings.Builder
	for r := l.peek(); isIdentPart(r); r = l.peek() {
		id.WriteRune(l.next())
	}

	if t, ok := keywordTable[id.String()]; ok {
		return l.emitValueAt(t, id.String(), loc)
	}

	return l.emitValueAt(TokenIdentifier, id.String(), loc)
}

func operatorState(l *Lexer) stateFunc {
	loc := l.loc()

	r := l.next()
	if r == '-' || r == '/' { // Some operators can be two runes
		op := string(r) + string(l.peek())
		if tok, ok := operatorTable[op]; ok {
			l.next() // Skip

			if tok == TokenLineComment {
				return lineCommentState
			}

			return l.emitValueAt(tok, op, loc)
		}
	}

	if tok, ok := operatorTable[string(r)]; ok {
		return l.emitValueAt(tok, string(r), loc)
	}

	return l.errorf(loc, "invalid symbol '%c'", r)
}

func lineCommentState(l *Lexer) stateFunc {
	loc := l.loc()

	var id strings.Builder
	for r := l.peek(); r != '\n' && r != EOF; r = l.peek() {
		id.WriteRune(l.next())
	}

	return l.emitValueAt(TokenLineComment, id.String(), loc)
}

func (l *Lexer) errorf(loc *Location, format string, args ...interface{}) stateFunc {
	l.done <- Token{
		Typ:   TokenError,
		Value: fmt.Sprintf(format, args...),
		Loc:   loc,
	}

	return nil
}

func (l *Lexer) emitValue(t TokenType, val string) stateFunc {
	return l.emitValueAt(t, val, l.loc())
}

func (l *Lexer) emitValueAt(t TokenType, val string, loc *Location) stateFunc {
	l.done <- Token{
		Typ:   t,
		Value: val,
		Loc:   loc,
	}

	return defaultState
}

func (l *Lexer) loc() *Location {
	return &Location{
		File: l.filename,
		Line: l.line,
		Col:  l.col,
	}
}

func (l *Lexer) peek() rune {
	r := l.next()
	if r != EOF {
		_ = l.reader.UnreadRune()
		l.line, l.col = l.prevLine, l.prevCol
	}

	return r
}

func (l *Lexer) next() rune {
	r, _, err := l.reader.ReadRune()
	if err != nil {
		return EOF
	}

	l.prevLine, l.prevCol = l.line, l.col
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}
