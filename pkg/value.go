package sss

import "fmt"

// Value is a runtime value held by a binding or produced by an expression.
type Value interface {
	TypeOf() Type
}

type NumValue float64

func (v NumValue) TypeOf() Type { return numType }

type StrValue string

func (v StrValue) TypeOf() Type { return strType }

// PipeValue wraps a live pipe handle. Pipes are single-pass: whoever reads a
// line has consumed it.
type PipeValue struct {
	Pipe Pipe
}

func (v PipeValue) TypeOf() Type { return pipeType }

type ArrayValue struct {
	Elem  *BasicType
	Items []Value
}

func (v *ArrayValue) TypeOf() Type { return &ArrayType{Elem: v.Elem} }

func NewStrArray(items []string) *ArrayValue {
	arr := &ArrayValue{Elem: strType}
	for _, item := range items {
		arr.Items = append(arr.Items, StrValue(item))
	}

	return arr
}

// Strings flattens a str[] value; used by the array form of run.
func (v *ArrayValue) Strings() []string {
	out := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		out = append(out, string(item.(StrValue)))
	}

	return out
}

// ResultValue is the named tuple returned by run; its fields are materialized
// on access, so exit_code only blocks when read.
type ResultValue struct {
	Proc *Process
}

func (v *ResultValue) TypeOf() Type { return resultType }

type voidValue struct{}

func (voidValue) TypeOf() Type { return voidType }

type binding struct {
	val      Value
	constant bool
}

// Scope is runtime binding storage for one block or function activation.
// Scopes chain through parent; lookup walks outward.
type Scope struct {
	parent *Scope
	vars   map[string]*binding
}

func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		vars:   make(map[string]*binding),
	}
}

func (s *Scope) Declare(name string, v Value, constant bool) {
	s.vars[name] = &binding{val: v, constant: constant}
}

func (s *Scope) Lookup(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b.val, true
		}
	}

	return nil, false
}

// Set reassigns an existing binding. The checker rejects writes to consts and
// undeclared names before execution; this guards the same invariants at
// runtime.
func (s *Scope) Set(name string, v Value) error {
	for sc := s; sc != nil; sc = sc.parent {
		b, ok := sc.vars[name]
		if !ok {
			continue
		}

		if b.constant {
			return fmt.Errorf("cannot assign to const '%s'", name)
		}

		b.val = v
		return nil
	}

	return fmt.Errorf("assignment to undeclared name '%s'", name)
}
