// Package machine implements the bytecode interpreter: it
// decodes the variable-width instruction stream the compiler assembles and
// executes it against a stack-of-slots frame model, playing both the
// program's runtime VM and the comptime VM macro bodies run against (spec
// this package) — the same interpreter, run against two different code buffers.
package machine

import "github.com/mna/lacewing/lang/object"

// Closure is a lisp-defined function value: an entry point into the owning program's shared
// bytecode, plus the upvalue cells it closed over. It has no AST
// equivalent, so it opts into object.Value by embedding object.Sealed
// rather than going through the bridge in lang/object.
type Closure struct {
	object.Sealed

	Code []byte
	Entry int
	Arity int
	Variadic bool
	Upvalues []*cell
}

func (*Closure) Type() string { return "closure" }

// Native is the shape DefineCallback expects its fn argument to satisfy.
// Arity must equal the argument count every ccall site compiled against
// this name pushes: ccall's wire encoding carries only a
// symbol id, no argc, so the count has to come from registration instead
// of from the call site.
type Native struct {
	Arity int
	Fn func(args []object.Value) (object.Value, error)
}

// NativeFunc is the value a registered callback presents as once it is
// reached as an ordinary value — pushGlobal resolving a callback's
// symbol, or a funcall target — as opposed to being invoked directly
// through ccall.
type NativeFunc struct {
	object.Sealed

	Name string
	Arity int
	Fn func(args []object.Value) (object.Value, error)
}

func (*NativeFunc) Type() string { return "native-function" }

// Vector is a fixed-size mutable array.
type Vector struct {
	object.Sealed

	Elems []object.Value
}

func (*Vector) Type() string { return "vector" }

// TypeValue names a user-defined composite type allocated by make-type:
// each call mints a fresh, distinct id, so two TypeValues are the same
// type iff they share an ID.
type TypeValue struct {
	object.Sealed

	ID int
}

func (*TypeValue) Type() string { return "type" }

// Instance is a value of some TypeValue, carrying the two slots its
// composite-value/composite-function accessor pairs read and write.
type Instance struct {
	object.Sealed

	Of *TypeValue
	Value object.Value
	Function object.Value
}

func (*Instance) Type() string { return "instance" }
