package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/lacewing/internal/config"
	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/symbol"
)

func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printError(stdio, err)
	}
	return DisasmFiles(ctx, stdio, c.inferParensBound(cfg), args...)
}

// DisasmFiles compiles each file and prints its bytecode as an
// offset-prefixed instruction listing, one file at a time.
// inferParensMaxIterations bounds the load_string infer_parens?
// pre-pass; 0 disables it.
func DisasmFiles(ctx context.Context, stdio mainer.Stdio, inferParensMaxIterations int, files...string) error {
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

		insns, err := compiler.Disassemble(code)
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		fmt.Fprintf(stdio.Stdout, "%s:\n", path)
		for _, ins := range insns {
			fmt.Fprintf(stdio.Stdout, "%6d: %s\n", ins.Offset, ins.String())
		}
	}
	return firstErr
}
