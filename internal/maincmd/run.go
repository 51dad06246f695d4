package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/lacewing/internal/config"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/symbol"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printError(stdio, err)
	}
	return RunFiles(ctx, stdio, cfg, c.inferParensBound(cfg), args...)
}

// RunFiles compiles and executes every file against one shared symbol
// table and thread, in argument order, the way a single program spread
// across several files would share a single top-level scope. It prints
// the value left on the stack at each file's halt. inferParensMaxIterations
// bounds the load_string infer_parens? pre-pass; 0 disables it.
func RunFiles(ctx context.Context, stdio mainer.Stdio, cfg config.Config, inferParensMaxIterations int, files...string) error {
	tab := symbol.New()
	rt := machine.NewThread(tab)
	rt.MaxSteps = cfg.MaxSteps
	rt.MaxCallDepth = cfg.MaxCallDepth
	rt.WithContext(ctx)

	for _, path := range files {
		code, err := compileFile(path, tab, rt, stdio.Stderr, inferParensMaxIterations)
		if err != nil {
			return printError(stdio, err)
		}
		v, err := rt.Run(code)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fmt.Fprintln(stdio.Stdout, formatValue(v))
	}
	return nil
}
