package maincmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/lacewing/internal/config"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/symbol"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "a.lace", "(__+ 1 2)")

	var out, errs bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errs}
	err := LoadFiles(context.Background(), stdio, 0, path)
	require.NoError(t, err)
	assert.Empty(t, errs.String())
	assert.Contains(t, out.String(), "bytes")
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "a.lace", "(__+ 1 2)")

	var out, errs bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errs}
	err := RunFiles(context.Background(), stdio, config.Config{MaxCallDepth: 64, MaxSteps: 1_000_000}, 0, path)
	require.NoError(t, err)
	assert.Empty(t, errs.String())
	assert.Equal(t, "3\n", out.String())
}

func TestDisasmFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "a.lace", "(__+ 1 2)")

	var out, errs bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errs}
	err := DisasmFiles(context.Background(), stdio, 0, path)
	require.NoError(t, err)
	assert.Empty(t, errs.String())
	assert.Contains(t, out.String(), path+":\n")
}

func TestAsmDasmFiles(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.lace", "(__+ 1 2)")

	var dasmOut, errs bytes.Buffer
	stdio := mainer.Stdio{Stdout: &dasmOut, Stderr: &errs}

	tab := symbol.New()
	rt := machine.NewThread(tab)
	code, err := compileFile(src, tab, rt, &errs, 0)
	require.NoError(t, err)
	bin := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(bin, code, 0o600))

	require.NoError(t, DasmFiles(context.Background(), stdio, bin))
	text := dasmOut.String()
	require.NotEmpty(t, text)

	listing := writeSource(t, dir, "a.asm", text)
	var asmOut bytes.Buffer
	stdio2 := mainer.Stdio{Stdout: &asmOut, Stderr: &errs}
	require.NoError(t, AsmFiles(context.Background(), stdio2, listing))
	assert.Equal(t, code, asmOut.Bytes())
}

func TestLoadFilesReportsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "bad.lace", "(__+ 1")

	var out, errs bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errs}
	err := LoadFiles(context.Background(), stdio, 0, path)
	assert.Error(t, err)
}
