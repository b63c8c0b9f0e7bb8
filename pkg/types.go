package sss

import (
	"fmt"
	"strings"
)

type Type interface {
	String() string
	Equals(t2 Type) bool
}

type TypeErr struct {
	Reason string
}

const (
	TypeErrUndefined     = "undefined"
	TypeErrBadExpression = "bad expr"
	TypeErrIncompatible  = "incompatible"
	TypeErrBadOp         = "bad op"
)

func (t *TypeErr) String() string {
	return "~error:" + t.Reason
}

func (t *TypeErr) Equals(_ Type) bool {
	return false
}

// BasicType is one of the three base types: num, str or pipe.
type BasicType struct {
	Typ string
}

var (
	numType  = &BasicType{"num"}
	strType  = &BasicType{"str"}
	pipeType = &BasicType{"pipe"}
)

func (t *BasicType) String() string {
	return t.Typ
}

func (t *BasicType) Equals(t2 Type) bool {
	if typ, ok := t2.(*BasicType); ok {
		return t.Typ == typ.Typ
	}

	return false
}

type ArrayType struct {
	Elem *BasicType
}

var strArrayType = &ArrayType{Elem: strType}

func (t *ArrayType) String() string {
	return t.Elem.String() + "[]"
}

func (t *ArrayType) Equals(t2 Type) bool {
	if typ, ok := t2.(*ArrayType); ok {
		return t.Elem.Equals(typ.Elem)
	}

	return false
}

// ResultType is the fixed record returned by run: the only structured type in
// the language. Fields resolve by name.
type ResultType struct{}

var resultType = &ResultType{}

var resultFields = map[string]Type{
	"exit_code": numType,
	"stdout":    pipeType,
	"stderr":    pipeType,
}

func (t *ResultType) String() string {
	return "{exit_code:num, stdout:pipe, stderr:pipe}"
}

func (t *ResultType) Equals(t2 Type) bool {
	_, ok := t2.(*ResultType)
	return ok
}

// VoidType is the type of a call yielding no value; it is not denotable in
// source.
type VoidType struct{}

var voidType = &VoidType{}

func (t *VoidType) String() string {
	return "void"
}

func (t *VoidType) Equals(t2 Type) bool {
	_, ok := t2.(*VoidType)
	return ok
}

type ArgumentType struct {
	Name string
	Type Type
}

func (t *ArgumentType) String() string {
	return t.Type.String()
}

func (t *ArgumentType) Equals(t2 Type) bool {
	if typ, ok := t2.(*ArgumentType); ok {
		return t.Name == typ.Name && t.Type.Equals(typ.Type)
	}

	return false
}

type FuncType struct {
	Args    []*ArgumentType
	Returns Type // nil when the function yields no value
}

func (t *FuncType) String() string {
	var str strings.Builder
	str.WriteString("fun(")

	for i, arg := range t.Args {
		str.WriteString(arg.String())

		if i != len(t.Args)-1 {
			str.WriteString(", ")
		}
	}
	str.WriteString(")")

	if t.Returns != nil {
		str.WriteString(" -> ")
		str.WriteString(t.Returns.String())
	}

	return str.String()
}

func (t *FuncType) Equals(t2 Type) bool {
	typ, ok := t2.(*FuncType)
	if !ok {
		return false
	}

	if len(t.Args) != len(typ.Args) {
		return false
	}

	for i, arg := range t.Args {
		if !arg.Equals(typ.Args[i]) {
			return false
		}
	}

	if t.Returns == nil || typ.Returns == nil {
		return t.Returns == typ.Returns
	}

	return t.Returns.Equals(typ.Returns)
}

// BuiltinType marks a name whose signature is baked into the checker rather
// than expressible as a FuncType; run is the one overloaded builtin.
type BuiltinType struct {
	Name string
}

func (t *BuiltinType) String() string {
	return "builtin " + t.Name
}

func (t *BuiltinType) Equals(t2 Type) bool {
	if typ, ok := t2.(*BuiltinType); ok {
		return t.Name == typ.Name
	}

	return false
}

// CompileError is a diagnostic produced while loading a script. All of them
// are fatal: a script with compile errors never starts executing.
type CompileError interface {
	fmt.Stringer
}

// SyntaxError reports a malformed program at the position the grammar was
// unmet.
type SyntaxError struct {
	Loc    *Location
	Reason string
}

func (e SyntaxError) String() string {
	return fmt.Sprintf("%s syntax error: %s", e.Loc, e.Reason)
}

type UndefinedNameError struct {
	Loc  *Location
	Name string
}

func (e UndefinedNameError) String() string {
	return fmt.Sprintf("%s undefined name: %s", e.Loc, e.Name)
}

type RedeclarationError struct {
	Loc  *Location
	Name string
}

func (e RedeclarationError) String() string {
	return fmt.Sprintf("%s redeclaration of: %s", e.Loc, e.Name)
}

// TypeMismatchError covers every static type violation: declarations whose
// value does not match the annotation, bad operands, and call signature
// mismatches.
type TypeMismatchError struct {
	Loc    *Location
	Reason string
}

func (e TypeMismatchError) String() string {
	return fmt.Sprintf("%s type mismatch: %s", e.Loc, e.Reason)
}

// BindingError reports an assignment that violates a binding: writing to a
// const, or to a name that is not a variable.
type BindingError struct {
	Loc    *Location
	Name   string
	Reason string
}

func (e BindingError) String() string {
	return fmt.Sprintf("%s cannot assign to %s: %s", e.Loc, e.Name, e.Reason)
}

// SymbolEntry is one binding in a symbol table: its resolved type and whether
// the name may be reassigned.
type SymbolEntry struct {
	Type  Type
	Const bool
}

// SymbolTable maps names to bindings within one scope. Tables chain through
// Parent; lookup walks outward, declaration is always local.
type SymbolTable struct {
	Parent  *SymbolTable
	Entries map[string]*SymbolEntry
	Errors  []CompileError
}

// NewGlobalSymbolTable builds the outermost scope: the builtins plus the
// pre-populated CWD and ARG bindings.
func NewGlobalSymbolTable() *SymbolTable {
	t := NewSymbolTable(nil)
	defineBuiltins(t)

	return t
}

func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		Parent:  parent,
		Entries: make(map[string]*SymbolEntry),
	}
}

func (t *SymbolTable) Add(name string, typ Type) {
	t.Entries[name] = &SymbolEntry{Type: typ}
}

func (t *SymbolTable) AddConst(name string, typ Type) {
	t.Entries[name] = &SymbolEntry{Type: typ, Const: true}
}

// Get resolves a name against this table and every enclosing one.
func (t *SymbolTable) Get(name string) *SymbolEntry {
	for s := t; s != nil; s = s.Parent {
		if entry, contains := s.Entries[name]; contains {
			return entry
		}
	}

	return nil
}

// GetLocal resolves a name in this scope only; used for redeclaration checks.
func (t *SymbolTable) GetLocal(name string) *SymbolEntry {
	return t.Entries[name]
}

func (t *SymbolTable) AddError(err CompileError) {
	if t.Parent != nil {
		t.Parent.AddError(err)
		return
	}

	t.Errors = append(t.Errors, err)
}
