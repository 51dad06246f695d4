package maincmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/lacewing/internal/config"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/symbol"
)

func (c *Cmd) Load(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printError(stdio, err)
	}
	return LoadFiles(ctx, stdio, c.inferParensBound(cfg), args...)
}

// LoadFiles compiles each file independently (a fresh symbol table and
// thread per file, treating each argument as its own chunk) and prints
// the resulting bytecode as a hex dump.
// inferParensMaxIterations bounds the load_string infer_parens? pre-pass;
// 0 disables it.
func LoadFiles(ctx context.Context, stdio mainer.Stdio, inferParensMaxIterations int, files...string) error {
	var firstErr error
	for _, path := range files {
		tab := symbol.New()
		rt := machine.NewThread(tab)
		code, err := compileFile(path, tab, rt, stdio.Stderr, inferParensMaxIterations)
		if err != nil {
			printError(stdio, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: %d bytes\n", path, len(code))
		fmt.Fprint(stdio.Stdout, hex.Dump(code))
	}
	return firstErr
}
