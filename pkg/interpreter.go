package sss

import (
	"io"
	"os"
	"strings"
)

// Interpreter is the one-shot entry point: lex, parse, check and evaluate a
// whole script. Dir and Args seed the CWD and ARG bindings; the host
// populates them before running.
type Interpreter struct {
	Dir    string
	Args   []string
	Stdout io.Writer
}

func NewInterpreter() *Interpreter {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}

	return &Interpreter{
		Dir:    dir,
		Stdout: os.Stdout,
	}
}

// RunFile loads and executes a script. Compile errors abort before any
// statement executes; the returned error is a runtime failure.
func (ip *Interpreter) RunFile(filename string) ([]CompileError, error) {
	lexer, err := NewLexer(filename)
	if err != nil {
		return nil, err
	}

	return ip.run(NewParser(lexer))
}

func (ip *Interpreter) RunFromReader(reader io.Reader) ([]CompileError, error) {
	return ip.run(NewParser(NewLexerFromReader(reader)))
}

func (ip *Interpreter) run(p *Parser) ([]CompileError, error) {
	checker := NewChecker(p)

	ast := checker.Do(NewGlobalSymbolTable())
	if len(ast.Errors) != 0 {
		return ast.Errors, nil
	}

	rt := NewRuntime()
	defer rt.Shutdown()

	ev := NewEvaluator(rt, ip.Stdout)
	ev.SetEnv(ip.Dir, ip.Args)

	return nil, ev.Eval(ast)
}

// Session is the incremental entry point behind the REPL: each Eval checks
// and runs one chunk of source against a persistent global scope.
type Session struct {
	stab *SymbolTable
	ev   *Evaluator
	rt   *Runtime
}

func NewSession(dir string, args []string, stdout io.Writer) *Session {
	rt := NewRuntime()

	ev := NewEvaluator(rt, stdout)
	ev.SetEnv(dir, args)

	return &Session{
		stab: NewGlobalSymbolTable(),
		ev:   ev,
		rt:   rt,
	}
}

func (s *Session) Eval(src string) ([]CompileError, error) {
	parser := NewParser(NewLexerFromReader(strings.NewReader(src)))
	checker := NewChecker(parser)

	before := make(map[string]bool, len(s.stab.Entries))
	for name := range s.stab.Entries {
		before[name] = true
	}

	ast := checker.Do(s.stab)
	s.stab.Errors = nil

	if len(ast.Errors) != 0 {
		// A failed chunk never reaches the evaluator, so any name it checked
		// into the table has no runtime binding. Drop those entries or the
		// two scopes drift: retrying the declaration would report a
		// redeclaration, and calling a function from the failed chunk would
		// pass the checker only to fail at runtime.
		for name := range s.stab.Entries {
			if !before[name] {
				delete(s.stab.Entries, name)
			}
		}

		return ast.Errors, nil
	}

	return nil, s.ev.Eval(ast)
}

// Close terminates any child process the session still has running.
func (s *Session) Close() {
	s.rt.Shutdown()
}
