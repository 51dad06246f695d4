package reader_test

import (
	"testing"

	"github.com/mna/lacewing/internal/diag"
	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/reader"
	"github.com/mna/lacewing/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src string) ([]ast.Node, *diag.Bag) {
	t.Helper()
	r := reader.New()
	bag := &diag.Bag{}
	file := token.NewFile("test", []byte(src))
	return r.Read(file, bag), bag
}

func TestReadAtoms(t *testing.T) {
	forms, bag := readAll(t, `42 -3.5 "hi\n" #t #f sym-bol`)
	require.Zero(t, bag.Len())
	require.Len(t, forms, 6)

	assert.Equal(t, int64(42), forms[0].(*ast.Int).Value)
	assert.Equal(t, -3.5, forms[1].(*ast.Float).Value)
	assert.Equal(t, "hi\n", string(forms[2].(*ast.Str).Value))
	assert.True(t, forms[3].(*ast.Bool).Value)
	assert.False(t, forms[4].(*ast.Bool).Value)
	assert.Equal(t, "sym-bol", forms[5].(*ast.Ident).Name)
}

func TestReadNestedList(t *testing.T) {
	forms, bag := readAll(t, `(__+ 1 (__* 2 3))`)
	require.Zero(t, bag.Len())
	require.Len(t, forms, 1)

	top := forms[0].(*ast.Expr)
	require.Len(t, top.Items, 3)
	assert.Equal(t, "__+", top.Items[0].(*ast.Ident).Name)
	inner := top.Items[2].(*ast.Expr)
	assert.Equal(t, "__*", inner.Items[0].(*ast.Ident).Name)
}

func TestReadQuoteAbbreviation(t *testing.T) {
	forms, bag := readAll(t, `'foo`)
	require.Zero(t, bag.Len())
	require.Len(t, forms, 1)

	e := forms[0].(*ast.Expr)
	require.Len(t, e.Items, 2)
	assert.Equal(t, "__quote", e.Items[0].(*ast.Ident).Name)
	assert.Equal(t, "foo", e.Items[1].(*ast.Ident).Name)
}

func TestReadStrayCloseParenRecovers(t *testing.T) {
	forms, bag := readAll(t, ") (__+ 3 4)")
	require.Equal(t, 1, bag.Len())
	require.Len(t, forms, 1)
	top := forms[0].(*ast.Expr)
	assert.Equal(t, "__+", top.Items[0].(*ast.Ident).Name)
	assert.Equal(t, int64(3), top.Items[1].(*ast.Int).Value)
}

func TestParserAction(t *testing.T) {
	r := reader.New()
	r.AddParserAction('$', func(args []byte) (ast.Node, error) {
			return ast.NewIdent(0, 0, "env-"+string(args)), nil
	})
	bag := &diag.Bag{}
	file := token.NewFile("test", []byte(`$HOME`))
	forms := r.Read(file, bag)
	require.Zero(t, bag.Len())
	require.Len(t, forms, 1)
	assert.Equal(t, "env-HOME", forms[0].(*ast.Ident).Name)
}
