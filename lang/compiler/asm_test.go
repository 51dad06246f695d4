package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/symbol"
	"github.com/mna/lacewing/lang/token"
)

func ident(name string) *ast.Ident { return ast.NewIdent(0, 0, name) }
func lit(v int64) *ast.Int { return ast.NewInt(0, 0, v) }
func expr(items...ast.Node) *ast.Expr { return ast.NewExpr(0, 0, items) }

func compileSample(t *testing.T) []byte {
	t.Helper()
	tab := symbol.New()
	rt := machine.NewThread(tab)
	c := compiler.New(tab, rt)
	file := token.NewFile("test", nil)
	// (__+ 1 (__* 2 3))
	code, diags := c.LoadString([]ast.Node{
			expr(ident("__+"), lit(1), expr(ident("__*"), lit(2), lit(3))),
		}, file)
	require.Empty(t, diags)
	return code
}

func TestDisassembleRoundTrip(t *testing.T) {
	code := compileSample(t)
	insns, err := compiler.Disassemble(code)
	require.NoError(t, err)
	assert.NotEmpty(t, insns)
}

// TestAsmDasmRoundTrip exercises the asm/dasm subcommand pairing: Dasm's
// textual listing assembles back, byte for byte, into the program it was
// produced from.
func TestAsmDasmRoundTrip(t *testing.T) {
	code := compileSample(t)
	text, err := compiler.Dasm(code)
	require.NoError(t, err)
	require.NotEmpty(t, text)

	back, err := compiler.Asm(text)
	require.NoError(t, err)
	assert.Equal(t, code, back)
}

func TestAsmRejectsUnknownMnemonic(t *testing.T) {
	_, err := compiler.Asm([]byte("bogus-op 1 2\n"))
	require.Error(t, err)
}
