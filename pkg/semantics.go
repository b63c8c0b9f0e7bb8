package sss

import "fmt"

type SemanticAnalyser interface {
	Define(*SymbolTable)
	Do(*SymbolTable) *AST
}

// Checker walks the parsed statement stream once, resolving a type for every
// expression and validating declarations, assignments and call signatures
// against the scope chain. Any error it records is fatal to script loading.
type Checker struct {
	filename string
	parser   SyntacticAnalyzer

	cache   []Expr
	live    bool
	started bool
	index   int
}

func NewChecker(parser SyntacticAnalyzer) *Checker {
	return &Checker{
		filename: parser.GetFilename(),
		parser:   parser,
		live:     true,
	}
}

// Define collects every function signature into scope before any statement is
// checked, so call order in the source does not matter.
func (c *Checker) Define(scope *SymbolTable) {
	c.reset()

	for {
		expr := c.get()
		if expr == nil {
			break
		}

		fn, isFuncDef := expr.(*FuncDecl)
		if !isFuncDef {
			continue
		}

		if scope.GetLocal(fn.Name) != nil {
			scope.AddError(&RedeclarationError{
				Loc:  fn.GetLocation(),
				Name: fn.Name,
			})

			continue
		}

		scope.AddConst(fn.Name, c.signature(scope, fn))
	}
}

func (c *Checker) Do(global *SymbolTable) *AST {
	c.Define(global)
	c.reset()

	ast := &AST{
		Global:   global,
		Filename: c.filename,
	}

	for {
		expr := c.get()
		if expr == nil {
			break
		}

		c.analyze(global, expr)
		ast.Statements = append(ast.Statements, expr)
	}

	ast.Errors = global.Errors

	return ast
}

func (c *Checker) get() Expr {
	if c.live {
		if !c.started {
			go c.parser.Do()
			c.started = true
		}

		expr := c.parser.Get()
		if _, ok := expr.(*EOS); ok {
			c.live = false
			return nil
		}

		c.cache = append(c.cache, expr)
		return expr
	}

	if c.index >= len(c.cache) {
		return nil
	}

	expr := c.cache[c.index]
	c.index++
	return expr
}

func (c *Checker) reset() {
	c.index = 0
}

func (c *Checker) signature(scope *SymbolTable, fn *FuncDecl) *FuncType {
	sig := &FuncType{}

	for _, param := range fn.Params {
		sig.Args = append(sig.Args, &ArgumentType{
			Name: param.Name,
			Type: typeFromSpec(param.Type),
		})
	}

	if fn.Return != nil {
		sig.Returns = typeFromSpec(fn.Return)
	}

	return sig
}

func (c *Checker) analyze(stab *SymbolTable, expr Expr) {
	switch e := expr.(type) {
	case *BadExpr:
		stab.AddError(&SyntaxError{
			Loc:    e.GetLocation(),
			Reason: e.Error,
		})
	case *FuncDecl:
		c.analyzeFunc(stab, e)
	case *VariableDecl:
		c.analyzeDecl(stab, e)
	case *Assignment:
		c.analyzeAssign(stab, e)
	default:
		// A bare call or expression statement; resolving validates it
		c.resolve(stab, expr)
	}
}

func (c *Checker) analyzeFunc(stab *SymbolTable, fn *FuncDecl) {
	if stab.Parent != nil {
		stab.AddError(&SyntaxError{
			Loc:    fn.GetLocation(),
			Reason: fmt.Sprintf("function '%s' may only be defined at the top level", fn.Name),
		})

		return
	}

	scope := NewSymbolTable(stab)
	for _, param := range fn.Params {
		if scope.GetLocal(param.Name) != nil {
			stab.AddError(&RedeclarationError{
				Loc:  fn.GetLocation(),
				Name: param.Name,
			})

			continue
		}

		scope.Add(param.Name, typeFromSpec(param.Type))
	}

	for _, stmt := range fn.Body {
		c.analyze(scope, stmt)
	}

	if fn.Return == nil {
		return
	}

	// With a declared return type the trailing expression is the result
	want := typeFromSpec(fn.Return)
	if len(fn.Body) == 0 {
		stab.AddError(&TypeMismatchError{
			Loc:    fn.GetLocation(),
			Reason: fmt.Sprintf("function '%s' declares '%s' but has an empty body", fn.Name, want),
		})

		return
	}

	last := fn.Body[len(fn.Body)-1]
	switch last.(type) {
	case *VariableDecl, *Assignment, *BadExpr:
		stab.AddError(&TypeMismatchError{
			Loc:    last.GetLocation(),
			Reason: fmt.Sprintf("function '%s' must end with a '%s' expression", fn.Name, want),
		})
	default:
		got := c.resolve(scope, last)
		if c.isErrorType(got) {
			// Error already logged by the type resolution
			return
		}

		if !want.Equals(got) {
			stab.AddError(&TypeMismatchError{
				Loc:    last.GetLocation(),
				Reason: fmt.Sprintf("function '%s' returns '%s', body yields '%s'", fn.Name, want, got),
			})
		}
	}
}

func (c *Checker) analyzeDecl(stab *SymbolTable, e *VariableDecl) {
	want := typeFromSpec(e.Type)
	got := c.resolve(stab, e.Value)

	if stab.GetLocal(e.Name) != nil {
		stab.AddError(&RedeclarationError{
			Loc:  e.GetLocation(),
			Name: e.Name,
		})

		return
	}

	if !c.isErrorType(got) && !want.Equals(got) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' declared as '%s' but initialized with '%s'", e.Name, want, got),
		})
	}

	e.ResolvedType = want
	if e.Const {
		stab.AddConst(e.Name, want)
	} else {
		stab.Add(e.Name, want)
	}
}

func (c *Checker) analyzeAssign(stab *SymbolTable, e *Assignment) {
	entry := stab.Get(e.Name)
	if entry == nil {
		stab.AddError(&UndefinedNameError{
			Loc:  e.GetLocation(),
			Name: e.Name,
		})

		return
	}

	if entry.Const {
		stab.AddError(&BindingError{
			Loc:    e.GetLocation(),
			Name:   e.Name,
			Reason: "declared const",
		})

		return
	}

	switch entry.Type.(type) {
	case *FuncType, *BuiltinType:
		stab.AddError(&BindingError{
			Loc:    e.GetLocation(),
			Name:   e.Name,
			Reason: "not a variable",
		})

		return
	}

	got := c.resolve(stab, e.Value)
	if !c.isErrorType(got) && !entry.Type.Equals(got) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' holds '%s', cannot assign '%s'", e.Name, entry.Type, got),
		})
	}
}

func (c *Checker) resolve(stab *SymbolTable, expr Expr) Type {
	switch e := expr.(type) {
	case *BadExpr:
		stab.AddError(&SyntaxError{
			Loc:    e.GetLocation(),
			Reason: e.Error,
		})
		return &TypeErr{TypeErrBadExpression}
	case *Identifier:
		if entry := stab.Get(e.Name); entry != nil {
			return entry.Type
		}

		stab.AddError(&UndefinedNameError{
			Loc:  e.GetLocation(),
			Name: e.Name,
		})

		return &TypeErr{TypeErrUndefined}
	case *LiteralExpr:
		if e.Typ == LiteralString {
			return strType
		}

		return numType
	case *BinaryExpr:
		return c.resolveBinary(stab, e)
	case *FuncCall:
		return c.resolveCall(stab, e)
	case *MethodCall:
		return c.resolveMethod(stab, e)
	case *Selector:
		return c.resolveSelector(stab, e)
	}

	return &TypeErr{"unknown"}
}

func (c *Checker) resolveBinary(stab *SymbolTable, e *BinaryExpr) Type {
	t1 := c.resolve(stab, e.Op1)
	t2 := c.resolve(stab, e.Op2)

	if c.isErrorType(t1) {
		// Error already logged by the type resolution
		return t1
	}

	if c.isErrorType(t2) {
		// Error already logged by the type resolution
		return t2
	}

	if !t1.Equals(t2) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("incompatible operands '%s' and '%s'", t1, t2),
		})

		return &TypeErr{TypeErrIncompatible}
	}

	if !c.isOpDefined(t1, e.Operation) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' has no operator '%s'", t1, e.Operation),
		})

		return &TypeErr{TypeErrBadOp}
	}

	return t1
}

func (c *Checker) resolveCall(stab *SymbolTable, e *FuncCall) Type {
	entry := stab.Get(e.Name)
	if entry == nil {
		stab.AddError(&UndefinedNameError{
			Loc:  e.GetLocation(),
			Name: e.Name,
		})

		return &TypeErr{TypeErrUndefined}
	}

	e.ResolvedTypes = nil
	for _, arg := range e.Args {
		e.ResolvedTypes = append(e.ResolvedTypes, c.resolve(stab, arg))
	}

	for _, t := range e.ResolvedTypes {
		if c.isErrorType(t) {
			// Error already logged by the type resolution
			return t
		}
	}

	switch typ := entry.Type.(type) {
	case *BuiltinType:
		// run is the only overloaded builtin
		if err := checkRunArgs(e.ResolvedTypes); err != nil {
			stab.AddError(&TypeMismatchError{
				Loc:    e.GetLocation(),
				Reason: err.Error(),
			})

			return &TypeErr{TypeErrBadOp}
		}

		return resultType
	case *FuncType:
		if len(e.ResolvedTypes) != len(typ.Args) {
			stab.AddError(&TypeMismatchError{
				Loc:    e.GetLocation(),
				Reason: fmt.Sprintf("'%s' takes %d arguments, got %d", e.Name, len(typ.Args), len(e.ResolvedTypes)),
			})

			return &TypeErr{TypeErrBadOp}
		}

		for i, want := range typ.Args {
			if !want.Type.Equals(e.ResolvedTypes[i]) {
				stab.AddError(&TypeMismatchError{
					Loc:    e.GetLocation(),
					Reason: fmt.Sprintf("argument %d of '%s' wants '%s', got '%s'", i+1, e.Name, want.Type, e.ResolvedTypes[i]),
				})

				return &TypeErr{TypeErrBadOp}
			}
		}

		if typ.Returns == nil {
			return voidType
		}

		return typ.Returns
	default:
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' is not a function", e.Name),
		})

		return &TypeErr{TypeErrBadOp}
	}
}

func (c *Checker) resolveMethod(stab *SymbolTable, e *MethodCall) Type {
	recv := c.resolve(stab, e.Recv)
	if c.isErrorType(recv) {
		// Error already logged by the type resolution
		return recv
	}

	if !recv.Equals(pipeType) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("cannot call a method on a '%s' value", recv),
		})

		return &TypeErr{TypeErrBadOp}
	}

	var args []Type
	for _, arg := range e.Args {
		args = append(args, c.resolve(stab, arg))
	}

	for _, t := range args {
		if c.isErrorType(t) {
			// Error already logged by the type resolution
			return t
		}
	}

	typ, err := checkPipeMethod(e.Name, args)
	if err != nil {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: err.Error(),
		})

		return &TypeErr{TypeErrBadOp}
	}

	return typ
}

func (c *Checker) resolveSelector(stab *SymbolTable, e *Selector) Type {
	recv := c.resolve(stab, e.Recv)
	if c.isErrorType(recv) {
		// Error already logged by the type resolution
		return recv
	}

	if !recv.Equals(resultType) {
		stab.AddError(&TypeMismatchError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' has no fields", recv),
		})

		return &TypeErr{TypeErrBadOp}
	}

	typ, known := resultFields[e.Name]
	if !known {
		stab.AddError(&UndefinedNameError{
			Loc:  e.GetLocation(),
			Name: e.Name,
		})

		return &TypeErr{TypeErrUndefined}
	}

	return typ
}

func (c *Checker) isOpDefined(t Type, op BinaryOp) bool {
	basic, isBasic := t.(*BasicType)
	if !isBasic {
		return false
	}

	switch basic.Typ {
	case "num":
		return true
	case "str", "pipe":
		// str + is concatenation, pipe + is the concat combinator
		return op == BinaryAddition
	}

	return false
}

func (c *Checker) isErrorType(t Type) bool {
	_, isErr := t.(*TypeErr)
	return isErr
}
