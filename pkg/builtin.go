package sss

import "fmt"

// The builtin surface of the language. run and the pipe methods carry
// overloaded signatures the checker special-cases; zip doubles as a plain
// function over two pipes. None of these are user-definable.

func defineBuiltins(t *SymbolTable) {
	t.AddConst("run", &BuiltinType{"run"})
	t.AddConst("zip", &FuncType{
		Args: []*ArgumentType{
			{Name: "a", Type: pipeType},
			{Name: "b", Type: pipeType},
		},
		Returns: pipeType,
	})

	// Seeded by the host before evaluation starts
	t.Add("CWD", strType)
	t.AddConst("ARG", strArrayType)
}

// checkRunArgs validates the argument list of run, in both its global and its
// pipe-method form: a single command string, or a str[] holding the program
// path and its arguments.
func checkRunArgs(args []Type) error {
	if len(args) != 1 {
		return fmt.Errorf("run takes one argument, got %d", len(args))
	}

	if !args[0].Equals(strType) && !args[0].Equals(strArrayType) {
		return fmt.Errorf("run wants str or str[], got '%s'", args[0])
	}

	return nil
}

// checkPipeMethod resolves a method call on a pipe value against the baked-in
// signatures, returning the result type.
func checkPipeMethod(name string, args []Type) (Type, error) {
	switch name {
	case "run":
		if err := checkRunArgs(args); err != nil {
			return nil, err
		}

		return resultType, nil

	case "write":
		switch len(args) {
		case 0:
			return voidType, nil
		case 1:
			if !args[0].Equals(strType) {
				return nil, fmt.Errorf("write wants a str path, got '%s'", args[0])
			}

			return voidType, nil
		default:
			return nil, fmt.Errorf("write takes at most one argument, got %d", len(args))
		}

	case "zip":
		if len(args) != 1 || !args[0].Equals(pipeType) {
			return nil, fmt.Errorf("zip wants a single pipe argument")
		}

		return pipeType, nil
	}

	return nil, fmt.Errorf("pipe has no method '%s'", name)
}

func typeFromSpec(spec *TypeSpec) Type {
	var base *BasicType
	switch spec.Name {
	case "num":
		base = numType
	case "str":
		base = strType
	case "pipe":
		base = pipeType
	default:
		return &TypeErr{TypeErrBadExpression}
	}

	if spec.Array {
		return &ArrayType{Elem: base}
	}

	return base
}
