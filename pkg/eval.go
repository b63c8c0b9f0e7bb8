package sss

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
)

// RuntimeTypeError reports an operator or call applied to an incompatible
// runtime value. It is fatal to the running script.
type RuntimeTypeError struct {
	Loc    *Location
	Reason string
}

func (e *RuntimeTypeError) Error() string {
	return fmt.Sprintf("%s runtime type error: %s", e.Loc, e.Reason)
}

// Evaluator walks a checked AST against a runtime scope stack. The walk
// itself is single-threaded; all concurrency lives in the Runtime it calls
// into for run and the pipe operations.
type Evaluator struct {
	runtime *Runtime
	global  *Scope
	funcs   map[string]*FuncDecl
	stdout  io.Writer
}

func NewEvaluator(rt *Runtime, stdout io.Writer) *Evaluator {
	return &Evaluator{
		runtime: rt,
		global:  NewScope(nil),
		funcs:   make(map[string]*FuncDecl),
		stdout:  stdout,
	}
}

// SetEnv seeds the outermost scope: CWD stays mutable, ARG is a constant
// array of the script's invocation arguments.
func (ev *Evaluator) SetEnv(cwd string, args []string) {
	ev.global.Declare("CWD", StrValue(cwd), false)
	ev.global.Declare("ARG", NewStrArray(args), true)
}

func (ev *Evaluator) Eval(ast *AST) error {
	// Register every function first, so call order in the source does not
	// matter
	for _, stmt := range ast.Statements {
		if fn, ok := stmt.(*FuncDecl); ok {
			ev.funcs[fn.Name] = fn
		}
	}

	for _, stmt := range ast.Statements {
		if _, ok := stmt.(*FuncDecl); ok {
			continue
		}

		if _, err := ev.exec(ev.global, stmt); err != nil {
			return err
		}
	}

	return nil
}

// exec runs one program line; bare expressions yield their value so function
// bodies can return the trailing one.
func (ev *Evaluator) exec(scope *Scope, stmt Expr) (Value, error) {
	switch e := stmt.(type) {
	case *VariableDecl:
		v, err := ev.eval(scope, e.Value)
		if err != nil {
			return nil, err
		}

		scope.Declare(e.Name, v, e.Const)
		return nil, nil
	case *Assignment:
		v, err := ev.eval(scope, e.Value)
		if err != nil {
			return nil, err
		}

		return nil, scope.Set(e.Name, v)
	default:
		return ev.eval(scope, stmt)
	}
}

func (ev *Evaluator) eval(scope *Scope, expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		if e.Typ == LiteralString {
			return StrValue(e.Value), nil
		}

		n, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return nil, &RuntimeTypeError{Loc: e.GetLocation(), Reason: "malformed number literal " + e.Value}
		}

		return NumValue(n), nil
	case *Identifier:
		v, ok := scope.Lookup(e.Name)
		if !ok {
			return nil, &RuntimeTypeError{Loc: e.GetLocation(), Reason: "undefined name " + e.Name}
		}

		return v, nil
	case *BinaryExpr:
		return ev.evalBinary(scope, e)
	case *FuncCall:
		return ev.evalCall(scope, e)
	case *MethodCall:
		return ev.evalMethod(scope, e)
	case *Selector:
		return ev.evalSelector(scope, e)
	}

	return nil, &RuntimeTypeError{Loc: expr.GetLocation(), Reason: "unexpected expression"}
}

// evalBinary evaluates one link of a flat operator chain, operands strictly
// left to right.
func (ev *Evaluator) evalBinary(scope *Scope, e *BinaryExpr) (Value, error) {
	v1, err := ev.eval(scope, e.Op1)
	if err != nil {
		return nil, err
	}

	v2, err := ev.eval(scope, e.Op2)
	if err != nil {
		return nil, err
	}

	switch a := v1.(type) {
	case NumValue:
		b, ok := v2.(NumValue)
		if !ok {
			return nil, ev.badOperand(e, v2)
		}

		switch e.Operation {
		case BinaryAddition:
			return a + b, nil
		case BinarySubtraction:
			return a - b, nil
		case BinaryMultiplication:
			return a * b, nil
		case BinaryDivision:
			return a / b, nil
		case BinaryModulo:
			return NumValue(math.Mod(float64(a), float64(b))), nil
		}
	case StrValue:
		b, ok := v2.(StrValue)
		if !ok || e.Operation != BinaryAddition {
			return nil, ev.badOperand(e, v2)
		}

		return a + b, nil
	case PipeValue:
		b, ok := v2.(PipeValue)
		if !ok || e.Operation != BinaryAddition {
			return nil, ev.badOperand(e, v2)
		}

		return PipeValue{Pipe: ConcatPipes(a.Pipe, b.Pipe)}, nil
	}

	return nil, ev.badOperand(e, v1)
}

func (ev *Evaluator) badOperand(e *BinaryExpr, v Value) error {
	return &RuntimeTypeError{
		Loc:    e.GetLocation(),
		Reason: fmt.Sprintf("operator '%s' not defined for '%s'", e.Operation, v.TypeOf()),
	}
}

func (ev *Evaluator) evalCall(scope *Scope, e *FuncCall) (Value, error) {
	switch e.Name {
	case "run":
		argv, err := ev.commandArgv(scope, e.Args, e.GetLocation())
		if err != nil {
			return nil, err
		}

		proc, err := ev.runtime.Launch(argv, ev.cwd(scope))
		if err != nil {
			return nil, err
		}

		return &ResultValue{Proc: proc}, nil
	case "zip":
		a, err := ev.evalPipe(scope, e.Args[0])
		if err != nil {
			return nil, err
		}

		b, err := ev.evalPipe(scope, e.Args[1])
		if err != nil {
			return nil, err
		}

		return PipeValue{Pipe: ZipPipes(a, b)}, nil
	}

	fn, known := ev.funcs[e.Name]
	if !known {
		return nil, &RuntimeTypeError{Loc: e.GetLocation(), Reason: "undefined function " + e.Name}
	}

	// Functions only close over the globals; each call gets a fresh scope
	// seeded with its bound parameters
	fscope := NewScope(ev.global)
	for i, param := range fn.Params {
		v, err := ev.eval(scope, e.Args[i])
		if err != nil {
			return nil, err
		}

		fscope.Declare(param.Name, v, false)
	}

	var last Value
	for _, stmt := range fn.Body {
		v, err := ev.exec(fscope, stmt)
		if err != nil {
			return nil, err
		}

		last = v
	}

	// With a declared return type the trailing expression is the result
	if fn.Return != nil {
		return last, nil
	}

	return voidValue{}, nil
}

func (ev *Evaluator) evalMethod(scope *Scope, e *MethodCall) (Value, error) {
	recv, err := ev.eval(scope, e.Recv)
	if err != nil {
		return nil, err
	}

	pv, isPipe := recv.(PipeValue)
	if !isPipe {
		return nil, &RuntimeTypeError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("cannot call a method on a '%s' value", recv.TypeOf()),
		}
	}

	switch e.Name {
	case "run":
		argv, err := ev.commandArgv(scope, e.Args, e.GetLocation())
		if err != nil {
			return nil, err
		}

		proc, err := ev.runtime.LaunchFed(argv, ev.cwd(scope), pv.Pipe)
		if err != nil {
			return nil, err
		}

		return &ResultValue{Proc: proc}, nil
	case "write":
		if len(e.Args) == 0 {
			return voidValue{}, WritePipe(pv.Pipe, ev.stdout)
		}

		pathV, err := ev.eval(scope, e.Args[0])
		if err != nil {
			return nil, err
		}

		path := string(pathV.(StrValue))
		if !filepath.IsAbs(path) {
			path = filepath.Join(ev.cwd(scope), path)
		}

		return voidValue{}, WritePipeFile(pv.Pipe, path)
	case "zip":
		other, err := ev.evalPipe(scope, e.Args[0])
		if err != nil {
			return nil, err
		}

		return PipeValue{Pipe: ZipPipes(pv.Pipe, other)}, nil
	}

	return nil, &RuntimeTypeError{Loc: e.GetLocation(), Reason: "pipe has no method " + e.Name}
}

func (ev *Evaluator) evalSelector(scope *Scope, e *Selector) (Value, error) {
	recv, err := ev.eval(scope, e.Recv)
	if err != nil {
		return nil, err
	}

	res, isResult := recv.(*ResultValue)
	if !isResult {
		return nil, &RuntimeTypeError{
			Loc:    e.GetLocation(),
			Reason: fmt.Sprintf("'%s' has no fields", recv.TypeOf()),
		}
	}

	switch e.Name {
	case "exit_code":
		return NumValue(float64(res.Proc.ExitCode())), nil
	case "stdout":
		return PipeValue{Pipe: res.Proc.Stdout()}, nil
	case "stderr":
		return PipeValue{Pipe: res.Proc.Stderr()}, nil
	}

	return nil, &RuntimeTypeError{Loc: e.GetLocation(), Reason: "result has no field " + e.Name}
}

// commandArgv evaluates the single argument of run (either form) into the
// argument vector to spawn.
func (ev *Evaluator) commandArgv(scope *Scope, args []Expr, loc *Location) ([]string, error) {
	v, err := ev.eval(scope, args[0])
	if err != nil {
		return nil, err
	}

	switch cmd := v.(type) {
	case StrValue:
		return SplitCommand(string(cmd)), nil
	case *ArrayValue:
		return cmd.Strings(), nil
	}

	return nil, &RuntimeTypeError{
		Loc:    loc,
		Reason: fmt.Sprintf("run wants str or str[], got '%s'", v.TypeOf()),
	}
}

func (ev *Evaluator) evalPipe(scope *Scope, expr Expr) (Pipe, error) {
	v, err := ev.eval(scope, expr)
	if err != nil {
		return nil, err
	}

	pv, isPipe := v.(PipeValue)
	if !isPipe {
		return nil, &RuntimeTypeError{
			Loc:    expr.GetLocation(),
			Reason: fmt.Sprintf("expected a pipe, got '%s'", v.TypeOf()),
		}
	}

	return pv.Pipe, nil
}

// cwd reads the current CWD binding; mutation through assignment only affects
// processes launched afterwards.
func (ev *Evaluator) cwd(scope *Scope) string {
	if v, ok := scope.Lookup("CWD"); ok {
		if s, isStr := v.(StrValue); isStr {
			return string(s)
		}
	}

	return "."
}
