package compiler

import (
	"fmt"

	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/object"
	"github.com/mna/lacewing/lang/token"
)

// defmacroGen implements (__defmacro name (params...) body...):
// the macro body compiles as an ordinary lambda, but entirely onto the
// comptime side — cs.side flips for the duration of the call and the
// closure it builds lives in the comptime assembly, never the runtime one.
// Unlike every other generator, defmacroGen leaves nothing on sub's stack:
// a macro definition produces no runtime value, only a registry entry.
func defmacroGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) < 3 {
		return fmt.Errorf("__defmacro: expected a name and a parameter list")
	}
	name, ok := e.Items[1].(*ast.Ident)
	if !ok {
		return fmt.Errorf("__defmacro: macro name must be an identifier")
	}
	paramsExpr, ok := e.Items[2].(*ast.Expr)
	if !ok {
		return fmt.Errorf("__defmacro: expected a parameter list")
	}
	params := make([]string, 0, len(paramsExpr.Items))
	for _, p := range paramsExpr.Items {
		pid, ok := p.(*ast.Ident)
		if !ok {
			return fmt.Errorf("__defmacro: parameter must be an identifier")
		}
		params = append(params, pid.Name)
	}

	pos := mustStart(e)
	prevSide := cs.SwitchToComptime()
	slot, err := c.compileLambda(cs, cs.ComptimeState, params, e.Items[3:], false, file, pos)
	cs.Restore(prevSide)
	if err != nil {
		return err
	}
	sub.declareFunc(name.Name, KindMacro, slot)
	return nil
}

// comptimeGen implements (__comptime body...): body is compiled and run on
// the comptime side right away, and its result is reified back as literal
// data spliced into the runtime assembly at the call site.
func comptimeGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	body := e.Items[1:]
	pos := mustStart(e)
	comptimeSub := cs.ComptimeState

	prevSide := cs.SwitchToComptime()
	if len(body) == 0 {
		comptimeSub.Push(1)
		emit(comptimeSub, pos, baseNil)
	} else {
		for i, f := range body {
			fbase := comptimeSub.LocalsLength()
			c.compileCompound(cs, comptimeSub, f, false, file)
			if i < len(body)-1 && comptimeSub.LocalsLength() > fbase {
				emit(comptimeSub, mustStart(f), basePop, intArg(int64(comptimeSub.LocalsLength()-fbase)))
				comptimeSub.setLocalsLen(fbase)
			}
		}
	}
	cs.Restore(prevSide)

	result, err := c.runComptime(comptimeSub, nil)
	if err != nil {
		return fmt.Errorf("__comptime: %s", err)
	}
	resultNode, err := object.ToAST(result, false)
	if err != nil {
		return fmt.Errorf("__comptime: %s", err)
	}
	c.compileQuotedLeaf(cs, sub, resultNode, file)
	return nil
}

// expandMacro drives a macro call site: the call's argument
// forms are reified as quoted data (never evaluated), passed to the
// macro's closure by running it on the comptime VM, and the value it
// returns is reified back into an AST subtree that gets lowered in the
// macro call's place, exactly as if the source had read that subtree to
// begin with.
func (c *Compiler) expandMacro(cs *CompileState, sub *SubState, name string, closureSlot int, call *ast.Expr, file *token.File) (int, StaticType) {
	pos := mustStart(call)
	argNodes := call.Items[1:]
	comptimeSub := cs.ComptimeState

	// The driver instructions (push the macro's closure, reify each
	// argument as quoted data, funcall) are built against a throwaway
	// SubState so they never pollute the persistent comptime assembly —
	// a macro call site is expanded once, not kept around to be re-run.
	driver := &SubState{localsLen: comptimeSub.LocalsLength(), symbolTable: c.Symbols}
	fnSlot := driver.Push(1)
	emit(driver, pos, basePushIndex, localArg(closureSlot))
	for _, a := range argNodes {
		c.compileQuotedLeaf(cs, driver, a, file)
	}
	emit(driver, pos, baseFuncall, localArg(fnSlot), intArg(int64(len(argNodes))))

	result, err := c.runComptime(comptimeSub, driver.asm)
	if err != nil {
		c.Diagnostics.Errorf(file, pos, pos, "macro %q: %s", name, err)
		slot := sub.Push(1)
		emit(sub, pos, baseNil)
		return slot, TypeUnknown
	}
	resultNode, err := object.ToAST(result, true)
	if err != nil {
		c.Diagnostics.Errorf(file, pos, pos, "macro %q: %s", name, err)
		slot := sub.Push(1)
		emit(sub, pos, baseNil)
		return slot, TypeUnknown
	}
	return c.compileCompound(cs, sub, resultNode, false, file)
}

// runComptime assembles comptimeSub's accumulated instructions plus an
// ephemeral trailer (never appended to comptimeSub.asm itself) terminated
// by a halt, and runs the result on the comptime VM. Whatever value sits
// on top of its stack when halt executes is the call's result — this is
// the wire convention between the compiler and whatever Runtime is wired
// in.
func (c *Compiler) runComptime(comptimeSub *SubState, trailer []Insn) (object.Value, error) {
	if c.runtime == nil {
		return nil, fmt.Errorf("compiler: no comptime runtime configured")
	}
	trial := make([]Insn, 0, len(comptimeSub.asm)+len(trailer)+1)
	trial = append(trial, comptimeSub.asm...)
	trial = append(trial, trailer...)
	trial = append(trial, Insn{Base: baseHalt})
	code, err := Assemble(trial)
	if err != nil {
		return nil, err
	}
	return c.runtime.RunMacro(code)
}
