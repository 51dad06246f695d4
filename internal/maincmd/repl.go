package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mna/mainer"

	"github.com/mna/lacewing/internal/config"
	"github.com/mna/lacewing/internal/diag"
	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/reader"
	"github.com/mna/lacewing/lang/symbol"
	"github.com/mna/lacewing/lang/token"
)

func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printError(stdio, err)
	}
	return RunRepl(ctx, stdio, cfg)
}

// RunRepl runs an interactive read-compile-run loop: each line is
// accumulated until its parentheses balance, read as a forest of
// top-level forms, then each form is compiled and run in turn against a
// single persistent symbol table and thread, so a define from one line
// is visible on the next — the same sharing run gives a multi-file
// program, just one line at a time.
func RunRepl(ctx context.Context, stdio mainer.Stdio, cfg config.Config) error {
	rl, err := readline.NewEx(&readline.Config{
			Prompt: "lacewing> ",
			Stdin: io.NopCloser(stdio.Stdin),
			Stdout: stdio.Stdout,
			Stderr: stdio.Stderr,
			HistoryFile: "",
	})
	if err != nil {
		return printError(stdio, err)
	}
	defer rl.Close()

	tab := symbol.New()
	rt := machine.NewThread(tab)
	rt.MaxSteps = cfg.MaxSteps
	rt.MaxCallDepth = cfg.MaxCallDepth
	rt.WithContext(ctx)
	c := compiler.New(tab, rt)

	var buf strings.Builder
	depth := 0
	lineNo := 0
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			depth = 0
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return printError(stdio, err)
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		depth += parenDepth(line)
		if depth > 0 {
			rl.SetPrompt("......... ")
			continue
		}
		rl.SetPrompt("lacewing> ")
		depth = 0

		lineNo++
		src := buf.String()
		buf.Reset()
		if strings.TrimSpace(src) == "" {
			continue
		}

		file := token.NewFile(fmt.Sprintf("<repl:%d>", lineNo), []byte(src))
		bag := &diag.Bag{}
		forms := reader.New().Read(file, bag)
		printDiagnostics(stdio.Stderr, bag.Drain())

		for _, form := range forms {
			code, diags := c.LoadString([]ast.Node{form}, file)
			printDiagnostics(stdio.Stderr, diags)
			hasError := false
			for _, d := range diags {
				if d.Severity >= diag.Error {
					hasError = true
				}
			}
			if hasError {
				continue
			}
			v, err := rt.Run(code)
			if err != nil {
				printError(stdio, err)
				continue
			}
			fmt.Fprintln(stdio.Stdout, formatValue(v))
		}
	}
}

// parenDepth counts line's net paren balance, ignoring parens inside a
// "..." string literal — good enough for the repl's continuation
// heuristic without re-implementing the reader's own scanner.
func parenDepth(line string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
			}
			continue
		}
		switch c {
			case '"':
				inString = true
			case '(':
				depth++
			case ')':
				depth--
			case ';':
				return depth
		}
	}
	return depth
}
