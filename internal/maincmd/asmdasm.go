package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/lacewing/lang/compiler"
)

func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return AsmFiles(ctx, stdio, args...)
}

// AsmFiles assembles each file's textual listing (the format Dasm
// produces) and writes the resulting bytecode to stdout, one file's
// output immediately after the previous one's.
func AsmFiles(ctx context.Context, stdio mainer.Stdio, files...string) error {
	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		code, err := compiler.Asm(text)
		if err != nil {
			return printError(stdio, err)
		}
		if _, err := stdio.Stdout.Write(code); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DasmFiles(ctx, stdio, args...)
}

// DasmFiles disassembles each file's raw bytecode into the textual
// listing Asm reads back.
func DasmFiles(ctx context.Context, stdio mainer.Stdio, files...string) error {
	for _, path := range files {
		code, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		text, err := compiler.Dasm(code)
		if err != nil {
			return printError(stdio, err)
		}
		if _, err := stdio.Stdout.Write(text); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}
