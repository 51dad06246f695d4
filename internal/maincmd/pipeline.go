package maincmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/lacewing/internal/diag"
	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/reader"
	"github.com/mna/lacewing/lang/symbol"
	"github.com/mna/lacewing/lang/token"
)

// readFile reads path and wraps it as a token.File.
// inferParensMaxIterations > 0 runs the load_string infer_parens?
// pre-pass over the source before it's wrapped, bounded to that many
// inserted parens.
func readFile(path string, inferParensMaxIterations int) (*token.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if inferParensMaxIterations > 0 {
		src = reader.InferParens(src, inferParensMaxIterations)
	}
	return token.NewFile(path, src), nil
}

// compileFile reads and compiles one source file against tab/rt, reading
// it with a fresh reader.Reader (reader macros don't need to persist
// across files for these commands). Diagnostics are printed to stderr;
// any Error-or-above diagnostic is reported as the returned error,
// mirroring scanner.PrintError's role in the original pipeline.
func compileFile(path string, tab *symbol.Table, rt compiler.Runtime, stderr io.Writer, inferParensMaxIterations int) ([]byte, error) {
	file, err := readFile(path, inferParensMaxIterations)
	if err != nil {
		return nil, err
	}

	bag := &diag.Bag{}
	forms := reader.New().Read(file, bag)
	if bag.HasErrors() {
		printDiagnostics(stderr, bag.Drain())
		return nil, fmt.Errorf("%s: reader error", path)
	}

	c := compiler.New(tab, rt)
	code, diags := c.LoadString(forms, file)
	printDiagnostics(stderr, diags)
	for _, d := range diags {
		if d.Severity >= diag.Error {
			return nil, fmt.Errorf("%s: compilation failed", path)
		}
	}
	return code, nil
}

func printDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.Format())
	}
}
