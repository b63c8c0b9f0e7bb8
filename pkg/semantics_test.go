package sss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ParserMocker struct {
	buf []Expr
	pos int
}

func NewParserMocker(exprs []Expr) *ParserMocker {
	return &ParserMocker{
		buf: exprs,
		pos: 0,
	}
}

func (b *ParserMocker) Do() {
}

func (b *ParserMocker) Get() Expr {
	if len(b.buf) <= b.pos {
		return &EOS{}
	}

	expr := b.buf[b.pos]
	b.pos++

	return expr
}

func (b *ParserMocker) GetFilename() string {
	return "testing"
}

func numLit(v string) *LiteralExpr {
	return &LiteralExpr{Typ: LiteralNumber, Value: v}
}

func strLit(v string) *LiteralExpr {
	return &LiteralExpr{Typ: LiteralString, Value: v}
}

func runStdout(cmd string) Expr {
	return &Selector{
		Name: "stdout",
		Recv: &FuncCall{Name: "run", Args: []Expr{strLit(cmd)}},
	}
}

func TestChecker(t *testing.T) {
	cases := []struct {
		name   string
		data   []Expr
		expect []CompileError
	}{
		{
			"valid declaration",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: numLit("1")},
			},
			nil,
		},
		{
			"declaration type mismatch",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: strLit("s")},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"redeclaration",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: numLit("1")},
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: numLit("2")},
			},
			[]CompileError{&RedeclarationError{}},
		},
		{
			"undefined name",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: &Identifier{Name: "y"}},
			},
			[]CompileError{&UndefinedNameError{}},
		},
		{
			"assignment to undeclared name",
			[]Expr{
				&Assignment{Name: "y", Value: numLit("1")},
			},
			[]CompileError{&UndefinedNameError{}},
		},
		{
			"assignment to const",
			[]Expr{
				&VariableDecl{Name: "x", Const: true, Type: &TypeSpec{Name: "num"}, Value: numLit("1")},
				&Assignment{Name: "x", Value: numLit("2")},
			},
			[]CompileError{&BindingError{}},
		},
		{
			"ARG is constant",
			[]Expr{
				&Assignment{Name: "ARG", Value: &Identifier{Name: "ARG"}},
			},
			[]CompileError{&BindingError{}},
		},
		{
			"CWD is a mutable str",
			[]Expr{
				&Assignment{Name: "CWD", Value: strLit("/tmp")},
			},
			nil,
		},
		{
			"assignment type mismatch",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: numLit("1")},
				&Assignment{Name: "x", Value: strLit("s")},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"string concatenation",
			[]Expr{
				&VariableDecl{Name: "s", Type: &TypeSpec{Name: "str"}, Value: &BinaryExpr{
					Operation: BinaryAddition,
					Op1:       strLit("a"),
					Op2:       strLit("b"),
				}},
			},
			nil,
		},
		{
			"string subtraction is undefined",
			[]Expr{
				&VariableDecl{Name: "s", Type: &TypeSpec{Name: "str"}, Value: &BinaryExpr{
					Operation: BinarySubtraction,
					Op1:       strLit("a"),
					Op2:       strLit("b"),
				}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"mixed operands",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: &BinaryExpr{
					Operation: BinaryAddition,
					Op1:       numLit("1"),
					Op2:       strLit("b"),
				}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"run result field types",
			[]Expr{
				&VariableDecl{Name: "c", Type: &TypeSpec{Name: "num"}, Value: &Selector{
					Name: "exit_code",
					Recv: &FuncCall{Name: "run", Args: []Expr{strLit("ls")}},
				}},
				&VariableDecl{Name: "p", Type: &TypeSpec{Name: "pipe"}, Value: runStdout("ls")},
			},
			nil,
		},
		{
			"unknown result field",
			[]Expr{
				&Selector{
					Name: "status",
					Recv: &FuncCall{Name: "run", Args: []Expr{strLit("ls")}},
				},
			},
			[]CompileError{&UndefinedNameError{}},
		},
		{
			"run wants str or str[]",
			[]Expr{
				&FuncCall{Name: "run", Args: []Expr{numLit("1")}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"run accepts the ARG array",
			[]Expr{
				&FuncCall{Name: "run", Args: []Expr{&Identifier{Name: "ARG"}}},
			},
			nil,
		},
		{
			"pipe concatenation",
			[]Expr{
				&VariableDecl{Name: "p", Type: &TypeSpec{Name: "pipe"}, Value: &BinaryExpr{
					Operation: BinaryAddition,
					Op1:       runStdout("ls"),
					Op2:       runStdout("ls"),
				}},
			},
			nil,
		},
		{
			"pipe multiplication is undefined",
			[]Expr{
				&BinaryExpr{
					Operation: BinaryMultiplication,
					Op1:       runStdout("ls"),
					Op2:       runStdout("ls"),
				},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"zip over two pipes",
			[]Expr{
				&VariableDecl{Name: "p", Type: &TypeSpec{Name: "pipe"}, Value: &FuncCall{
					Name: "zip",
					Args: []Expr{runStdout("ls"), runStdout("ls")},
				}},
			},
			nil,
		},
		{
			"zip arity mismatch",
			[]Expr{
				&FuncCall{Name: "zip", Args: []Expr{runStdout("ls")}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"method on a non-pipe value",
			[]Expr{
				&VariableDecl{Name: "s", Type: &TypeSpec{Name: "str"}, Value: strLit("x")},
				&MethodCall{Name: "run", Recv: &Identifier{Name: "s"}, Args: []Expr{strLit("cat")}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"pipe method surface",
			[]Expr{
				&MethodCall{Name: "write", Recv: runStdout("ls")},
				&MethodCall{Name: "write", Recv: runStdout("ls"), Args: []Expr{strLit("out.txt")}},
				&MethodCall{Name: "run", Recv: runStdout("ls"), Args: []Expr{strLit("cat")}},
				&VariableDecl{Name: "p", Type: &TypeSpec{Name: "pipe"}, Value: &MethodCall{
					Name: "zip",
					Recv: runStdout("ls"),
					Args: []Expr{runStdout("ls")},
				}},
			},
			nil,
		},
		{
			"unknown pipe method",
			[]Expr{
				&MethodCall{Name: "slurp", Recv: runStdout("ls")},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"function signature and trailing expression",
			[]Expr{
				&FuncDecl{
					Name: "add",
					Params: []*Param{
						{Name: "a", Type: &TypeSpec{Name: "num"}},
						{Name: "b", Type: &TypeSpec{Name: "num"}},
					},
					Return: &TypeSpec{Name: "num"},
					Body: []Expr{
						&BinaryExpr{Operation: BinaryAddition, Op1: &Identifier{Name: "a"}, Op2: &Identifier{Name: "b"}},
					},
				},
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: &FuncCall{
					Name: "add",
					Args: []Expr{numLit("1"), numLit("2")},
				}},
			},
			nil,
		},
		{
			"call before definition",
			[]Expr{
				&VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: &FuncCall{
					Name: "one",
					Args: nil,
				}},
				&FuncDecl{
					Name:   "one",
					Return: &TypeSpec{Name: "num"},
					Body:   []Expr{numLit("1")},
				},
			},
			nil,
		},
		{
			"call argument mismatch",
			[]Expr{
				&FuncDecl{
					Name:   "f",
					Params: []*Param{{Name: "a", Type: &TypeSpec{Name: "num"}}},
					Body:   []Expr{&Identifier{Name: "a"}},
				},
				&FuncCall{Name: "f", Args: []Expr{strLit("s")}},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"return type mismatch",
			[]Expr{
				&FuncDecl{
					Name:   "f",
					Return: &TypeSpec{Name: "num"},
					Body:   []Expr{strLit("s")},
				},
			},
			[]CompileError{&TypeMismatchError{}},
		},
		{
			"function redefinition",
			[]Expr{
				&FuncDecl{Name: "f", Body: []Expr{numLit("1")}},
				&FuncDecl{Name: "f", Body: []Expr{numLit("1")}},
			},
			[]CompileError{&RedeclarationError{}},
		},
		{
			"function locals do not leak",
			[]Expr{
				&FuncDecl{
					Name: "f",
					Body: []Expr{
						&VariableDecl{Name: "local", Type: &TypeSpec{Name: "num"}, Value: numLit("1")},
					},
				},
				&Identifier{Name: "local"},
			},
			[]CompileError{&UndefinedNameError{}},
		},
		{
			"builtins are not assignable",
			[]Expr{
				&Assignment{Name: "run", Value: numLit("1")},
			},
			[]CompileError{&BindingError{}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			parser := NewParserMocker(c.data)
			checker := NewChecker(parser)

			ast := checker.Do(NewGlobalSymbolTable())

			assert.Len(t, ast.Errors, len(c.expect))
			for i, want := range c.expect {
				if i >= len(ast.Errors) {
					break
				}

				assert.IsType(t, want, ast.Errors[i])
			}
		})
	}
}

func TestCheckerAnnotatesDeclarations(t *testing.T) {
	decl := &VariableDecl{Name: "x", Type: &TypeSpec{Name: "num"}, Value: numLit("1")}

	checker := NewChecker(NewParserMocker([]Expr{decl}))
	ast := checker.Do(NewGlobalSymbolTable())

	assert.Empty(t, ast.Errors)
	assert.Equal(t, numType, decl.ResolvedType)
	assert.Equal(t, numType, ast.Global.Get("x").Type)
}
