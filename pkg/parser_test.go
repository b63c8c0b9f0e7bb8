package sss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type BufferedTokenizerMocker struct {
	buf []Token
	pos int
}

func NewBufferedTokenizerMocker(toks []Token) *BufferedTokenizerMocker {
	return &BufferedTokenizerMocker{
		buf: toks,
		pos: 0,
	}
}

func (b *BufferedTokenizerMocker) Do() {
}

func (b *BufferedTokenizerMocker) Get() Token {
	if len(b.buf) <= b.pos {
		return Token{Typ: TokenEOF}
	}

	tok := b.buf[b.pos]
	b.pos++

	return tok
}

func (b *BufferedTokenizerMocker) GetFilename() string {
	return "testing"
}

func TestParser(t *testing.T) {
	cases := []struct {
		data   []Token
		fail   bool
		expect []Expr
	}{
		{
			// var x:num = 1;
			[]Token{
				{Typ: TokenVar, Value: "var"},
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenColon, Value: ":"},
				{Typ: TokenIdentifier, Value: "num"},
				{Typ: TokenAssign, Value: "="},
				{Typ: TokenNumber, Value: "1"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&VariableDecl{
					Name: "x",
					Type: &TypeSpec{Name: "num"},
					Value: &LiteralExpr{
						Typ:   LiteralNumber,
						Value: "1",
					},
				},
			},
		},
		{
			// const out:str[] = ARG;
			[]Token{
				{Typ: TokenConst, Value: "const"},
				{Typ: TokenIdentifier, Value: "out"},
				{Typ: TokenColon, Value: ":"},
				{Typ: TokenIdentifier, Value: "str"},
				{Typ: TokenOpenBracket, Value: "["},
				{Typ: TokenCloseBracket, Value: "]"},
				{Typ: TokenAssign, Value: "="},
				{Typ: TokenIdentifier, Value: "ARG"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&VariableDecl{
					Name:  "out",
					Const: true,
					Type:  &TypeSpec{Name: "str", Array: true},
					Value: &Identifier{Name: "ARG"},
				},
			},
		},
		{
			// x = 2;
			[]Token{
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenAssign, Value: "="},
				{Typ: TokenNumber, Value: "2"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&Assignment{
					Name: "x",
					Value: &LiteralExpr{
						Typ:   LiteralNumber,
						Value: "2",
					},
				},
			},
		},
		{
			// The flat chain has no precedence: 1 + 2 * 3 nests as (1 + 2) * 3
			[]Token{
				{Typ: TokenNumber, Value: "1"},
				{Typ: TokenPlus, Value: "+"},
				{Typ: TokenNumber, Value: "2"},
				{Typ: TokenMulti, Value: "*"},
				{Typ: TokenNumber, Value: "3"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&BinaryExpr{
					Operation: BinaryMultiplication,
					Op1: &BinaryExpr{
						Operation: BinaryAddition,
						Op1:       &LiteralExpr{Typ: LiteralNumber, Value: "1"},
						Op2:       &LiteralExpr{Typ: LiteralNumber, Value: "2"},
					},
					Op2: &LiteralExpr{Typ: LiteralNumber, Value: "3"},
				},
			},
		},
		{
			// Parentheses still group: 1 + (2 * 3)
			[]Token{
				{Typ: TokenNumber, Value: "1"},
				{Typ: TokenPlus, Value: "+"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenNumber, Value: "2"},
				{Typ: TokenMulti, Value: "*"},
				{Typ: TokenNumber, Value: "3"},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&BinaryExpr{
					Operation: BinaryAddition,
					Op1:       &LiteralExpr{Typ: LiteralNumber, Value: "1"},
					Op2: &BinaryExpr{
						Operation: BinaryMultiplication,
						Op1:       &LiteralExpr{Typ: LiteralNumber, Value: "2"},
						Op2:       &LiteralExpr{Typ: LiteralNumber, Value: "3"},
					},
				},
			},
		},
		{
			// run("ls").stdout.write();
			[]Token{
				{Typ: TokenIdentifier, Value: "run"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenString, Value: "ls"},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenDot, Value: "."},
				{Typ: TokenIdentifier, Value: "stdout"},
				{Typ: TokenDot, Value: "."},
				{Typ: TokenIdentifier, Value: "write"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&MethodCall{
					Name: "write",
					Recv: &Selector{
						Name: "stdout",
						Recv: &FuncCall{
							Name: "run",
							Args: []Expr{
								&LiteralExpr{Typ: LiteralString, Value: "ls"},
							},
						},
					},
				},
			},
		},
		{
			// zip(a, b);
			[]Token{
				{Typ: TokenIdentifier, Value: "zip"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenComma, Value: ","},
				{Typ: TokenIdentifier, Value: "b"},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			false,
			[]Expr{
				&FuncCall{
					Name: "zip",
					Args: []Expr{
						&Identifier{Name: "a"},
						&Identifier{Name: "b"},
					},
				},
			},
		},
		{
			// fun add (a:num, b:num) -> num { a + b; }
			[]Token{
				{Typ: TokenFun, Value: "fun"},
				{Typ: TokenIdentifier, Value: "add"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenColon, Value: ":"},
				{Typ: TokenIdentifier, Value: "num"},
				{Typ: TokenComma, Value: ","},
				{Typ: TokenIdentifier, Value: "b"},
				{Typ: TokenColon, Value: ":"},
				{Typ: TokenIdentifier, Value: "num"},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenArrow, Value: "->"},
				{Typ: TokenIdentifier, Value: "num"},
				{Typ: TokenOpenCurly, Value: "{"},
				{Typ: TokenIdentifier, Value: "a"},
				{Typ: TokenPlus, Value: "+"},
				{Typ: TokenIdentifier, Value: "b"},
				{Typ: TokenSemicolon, Value: ";"},
				{Typ: TokenCloseCurly, Value: "}"},
			},
			false,
			[]Expr{
				&FuncDecl{
					Name: "add",
					Params: []*Param{
						{Name: "a", Type: &TypeSpec{Name: "num"}},
						{Name: "b", Type: &TypeSpec{Name: "num"}},
					},
					Return: &TypeSpec{Name: "num"},
					Body: []Expr{
						&BinaryExpr{
							Operation: BinaryAddition,
							Op1:       &Identifier{Name: "a"},
							Op2:       &Identifier{Name: "b"},
						},
					},
				},
			},
		},
		{
			// Missing semicolon fails the line
			[]Token{
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenAssign, Value: "="},
				{Typ: TokenNumber, Value: "2"},
			},
			true,
			nil,
		},
		{
			// Unknown type name fails the declaration
			[]Token{
				{Typ: TokenVar, Value: "var"},
				{Typ: TokenIdentifier, Value: "x"},
				{Typ: TokenColon, Value: ":"},
				{Typ: TokenIdentifier, Value: "bool"},
				{Typ: TokenAssign, Value: "="},
				{Typ: TokenNumber, Value: "1"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			true,
			nil,
		},
		{
			// fun without a name
			[]Token{
				{Typ: TokenFun, Value: "fun"},
				{Typ: TokenOpenCurly, Value: "{"},
				{Typ: TokenCloseCurly, Value: "}"},
			},
			true,
			nil,
		},
		{
			// Unclosed block
			[]Token{
				{Typ: TokenFun, Value: "fun"},
				{Typ: TokenIdentifier, Value: "main"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenCloseParentheses, Value: ")"},
				{Typ: TokenOpenCurly, Value: "{"},
			},
			true,
			nil,
		},
		{
			// Unclosed argument list fails at the call, not a token later
			[]Token{
				{Typ: TokenIdentifier, Value: "run"},
				{Typ: TokenOpenParentheses, Value: "("},
				{Typ: TokenString, Value: "ls"},
				{Typ: TokenSemicolon, Value: ";"},
			},
			true,
			nil,
		},
		{
			// Comments vanish before parsing
			[]Token{
				{Typ: TokenLineComment, Value: "this is a comment"},
			},
			false,
			nil,
		},
	}

	for _, c := range cases {
		tokenizer := NewBufferedTokenizerMocker(c.data)
		p := NewParser(tokenizer)

		got := p.Run()

		if c.fail {
			failed := false
			for _, node := range got.Statements {
				if containsBadExpr(node) {
					failed = true
					break
				}
			}

			if !failed {
				assert.Fail(t, "expected parsing to fail, but succeeded")
			}

			continue
		}

		expect := &AST{
			Filename:   "testing",
			Statements: c.expect,
		}

		assert.Equal(t, expect, got)
	}
}

func containsBadExpr(node Expr) bool {
	switch e := node.(type) {
	case *BadExpr:
		return true
	case *FuncDecl:
		for _, stmt := range e.Body {
			if containsBadExpr(stmt) {
				return true
			}
		}
	}

	return false
}
