package sss

// AST is the checked syntax tree for a single script. Statements are the
// top-level program lines and function definitions in source order; Errors
// accumulates every diagnostic found while loading.
type AST struct {
	Filename   string
	Global     *SymbolTable
	Statements []Expr
	Errors     []CompileError
}

type Expr interface {
	GetLocation() *Location
}

// BadExpr marks a point where parsing failed. Loading a script that contains
// one aborts before execution.
type BadExpr struct {
	Location *Location
	Error    string
}

func (e *BadExpr) GetLocation() *Location { return e.Location }

// TypeSpec is a source-level type annotation: one of the base type names,
// optionally suffixed with [].
type TypeSpec struct {
	Location *Location
	Name     string
	Array    bool
}

func (e *TypeSpec) GetLocation() *Location { return e.Location }

type Param struct {
	Name string
	Type *TypeSpec
}

type FuncDecl struct {
	Location *Location
	Name     string
	Params   []*Param
	Return   *TypeSpec // nil when the function yields no value
	Body     []Expr
}

func (e *FuncDecl) GetLocation() *Location { return e.Location }

// VariableDecl covers both `var` and `const` declarations.
type VariableDecl struct {
	Location     *Location
	Name         string
	Const        bool
	Type         *TypeSpec
	Value        Expr
	ResolvedType Type
}

func (e *VariableDecl) GetLocation() *Location { return e.Location }

type Assignment struct {
	Location *Location
	Name     string
	Value    Expr
}

func (e *Assignment) GetLocation() *Location { return e.Location }

type FuncCall struct {
	Location      *Location
	Name          string
	Args          []Expr
	ResolvedTypes []Type
}

func (e *FuncCall) GetLocation() *Location { return e.Location }

// MethodCall is one parenthesised segment of a method-call chain; Recv is the
// expression the segment applies to.
type MethodCall struct {
	Location *Location
	Recv     Expr
	Name     string
	Args     []Expr
}

func (e *MethodCall) GetLocation() *Location { return e.Location }

// Selector is a chain segment without parentheses: field access on the
// record returned by run.
type Selector struct {
	Location *Location
	Recv     Expr
	Name     string
}

func (e *Selector) GetLocation() *Location { return e.Location }

type Identifier struct {
	Location *Location
	Name     string
}

func (e *Identifier) GetLocation() *Location { return e.Location }

// EOS signals the end of the statement stream on the parser's channel.
type EOS struct{}

func (e *EOS) GetLocation() *Location { return nil }

type BinaryOp string

const (
	BinaryAddition       BinaryOp = "+"
	BinarySubtraction    BinaryOp = "-"
	BinaryMultiplication BinaryOp = "*"
	BinaryDivision       BinaryOp = "/"
	BinaryModulo         BinaryOp = "%"
)

// BinaryExpr is one link of a flat operator chain. The grammar defines no
// precedence levels: chains associate strictly left-to-right, so the parser
// never produces the usual mul-before-add shape.
type BinaryExpr struct {
	Operation BinaryOp
	Op1       Expr
	Op2       Expr
}

func (e *BinaryExpr) GetLocation() *Location { return e.Op1.GetLocation() }

type LiteralType int

const (
	LiteralNumber LiteralType = iota
	LiteralString
)

type LiteralExpr struct {
	Location *Location
	Typ      LiteralType
	Value    string
}

func (e *LiteralExpr) GetLocation() *Location { return e.Location }
