package maincmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/object"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "nil", formatValue(object.Nil))
	assert.Equal(t, "#t", formatValue(object.Bool(true)))
	assert.Equal(t, "#f", formatValue(object.Bool(false)))
	assert.Equal(t, "42", formatValue(object.Int(42)))
	assert.Equal(t, `"hi"`, formatValue(object.NewStr([]byte("hi"))))
	assert.Equal(t, "(1 2 3)", formatValue(object.List(object.Int(1), object.Int(2), object.Int(3))))
}

func TestFormatValueDottedPair(t *testing.T) {
	c := &object.Cons{Car: object.Int(1), Cdr: object.Int(2)}
	assert.Equal(t, "(1. 2)", formatValue(c))
}

func TestFormatValueRuntimeKinds(t *testing.T) {
	v := &machine.Vector{Elems: []object.Value{object.Int(1), object.Int(2)}}
	assert.Equal(t, "#(1 2)", formatValue(v))

	fn := &machine.NativeFunc{Name: "log", Arity: 1}
	assert.Equal(t, "#<native log/1>", formatValue(fn))
}
