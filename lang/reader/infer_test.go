package reader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/lacewing/lang/reader"
)

func TestInferParensDisabled(t *testing.T) {
	src := []byte("foo\n bar\n")
	assert.Equal(t, src, reader.InferParens(src, 0))
}

func TestInferParensWrapsIndentedBlock(t *testing.T) {
	out := reader.InferParens([]byte("define f\n __+ 1 2\n"), 8)
	forms, bag := readAll(t, string(out))
	assert.Zero(t, bag.Len())
	assert.Len(t, forms, 1)
}

func TestInferParensLeavesExplicitFormsAlone(t *testing.T) {
	src := []byte("(__+ 1 2)\n")
	assert.Equal(t, src, reader.InferParens(src, 8))
}

func TestInferParensClosesDedentedSiblings(t *testing.T) {
	out := reader.InferParens([]byte("define f\n __+ 1 2\ndefine g\n __+ 3 4\n"), 8)
	forms, bag := readAll(t, string(out))
	assert.Zero(t, bag.Len())
	assert.Len(t, forms, 2)
}

func TestInferParensRespectsIterationBudget(t *testing.T) {
	src := []byte("define f\n __+ 1 2\n")
	out := reader.InferParens(src, 1)
	// only one paren gets inserted before the budget runs out, so the
	// result stays different from a fully-wrapped rewrite.
	assert.NotEqual(t, src, out)
	full := reader.InferParens(src, 8)
	assert.NotEqual(t, full, out)
}
