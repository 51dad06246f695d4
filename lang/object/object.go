// Package object implements the bridge subset of the VM's value
// representation: the values a macro body can receive as arguments and
// return as a result. lang/machine builds on top of Value
// with the additional runtime-only kinds (function, closure, typed
// instance) that have no AST equivalent.
package object

import "github.com/mna/lacewing/lang/symbol"

// Value is any VM object representable in this bridge subset. value is
// unexported so the set of kinds is closed to this package — except for
// lang/machine's runtime-only kinds (closures, vectors, typed instances),
// which have no AST equivalent and so are never reified by the bridge;
// they opt in by embedding Sealed.
type Value interface {
	Type() string
	value()
}

// Sealed is embedded by a lang/machine runtime-only Value kind to satisfy
// the otherwise-closed Value interface from outside this package.
type Sealed struct{}

func (Sealed) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) Type() string { return "boolean" }
func (Bool) value() {}

// Int is a signed integer value.
type Int int64

func (Int) Type() string { return "integer" }
func (Int) value() {}

// Float is a double-precision float value.
type Float float64

func (Float) Type() string { return "float" }
func (Float) value() {}

// Str is an immutable byte-string value. It owns its bytes.
type Str struct {
	Data []byte
}

func NewStr(b []byte) Str {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Str{Data: cp}
}

func (Str) Type() string { return "string" }
func (Str) value() {}

// Symbol is an interned name: the id is what equality and
// scope lookups actually compare, Name is carried along for printing and
// for symbol-string.
type Symbol struct {
	ID symbol.ID
	Name string
}

func (Symbol) Type() string { return "symbol" }
func (Symbol) value() {}

// Cons is a pair cell; lists are chains of Cons terminated by Nil.
type Cons struct {
	Car Value
	Cdr Value
}

func (*Cons) Type() string { return "cons" }
func (*Cons) value() {}

// nilValue is the unique empty-list / "no value" object, spelled Nil.
type nilValue struct{}

func (nilValue) Type() string { return "nil" }
func (nilValue) value() {}

// Nil is the empty list.
var Nil Value = nilValue{}

// IsNil reports whether v is the empty list.
func IsNil(v Value) bool {
	_, ok := v.(nilValue)
	return ok
}

// List builds a proper list from items, terminated by Nil.
func List(items...Value) Value {
	var tail Value = Nil
	for i := len(items) - 1; i >= 0; i-- {
		tail = &Cons{Car: items[i], Cdr: tail}
	}
	return tail
}

// Items walks a proper list into a slice. ok is false if v is not Nil or
// a chain of Cons cells ending in Nil (an improper or dotted list).
func Items(v Value) (items []Value, ok bool) {
	for {
		if IsNil(v) {
			return items, true
		}
		c, isCons := v.(*Cons)
		if !isCons {
			return items, false
		}
		items = append(items, c.Car)
		v = c.Cdr
	}
}
