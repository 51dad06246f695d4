package compiler

import (
	"fmt"

	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/token"
)

// registerCoreGenerators installs the built-in special forms every
// Compiler starts with. this package names individual generators' internals
// as external collaborators, specifying only their signature — this is
// this implementation's concrete choice of collaborator set, enough to
// make this package end-to-end scenarios and a usable language observable.
func registerCoreGenerators(c *Compiler) {
	c.AddGenerator("__quote", quoteGen)
	c.AddGenerator("if", ifGen)
	c.AddGenerator("lambda", lambdaGen(false))
	c.AddGenerator("vlambda", lambdaGen(true))
	c.AddGenerator("define", defineGen)
	c.AddGenerator("let", letGen)
	c.AddGenerator("set!", setGen)
	c.AddGenerator("begin", beginGen)
	c.AddGenerator("__list", listGen)
	c.AddGenerator("__defmacro", defmacroGen)
	c.AddGenerator("__comptime", comptimeGen)

	arith := []struct {
		name string
		b base
		min int
	}{
		{"__+", baseAdd, 1}, {"__-", baseSub, 1}, {"__*", baseMul, 1}, {"__/", baseDiv, 2},
		{"__=", baseEqual, 2}, {"__<", baseLess, 2}, {"__>", baseGreater, 2},
		{"cons", baseCons, 2}, {"car", baseCar, 1}, {"cdr", baseCdr, 1},
		{"set-car!", baseSetCar, 2}, {"set-cdr!", baseSetCdr, 2},
		{"not", baseNot, 1}, {"null?", baseNullp, 1}, {"typeof", baseTypeof, 1},
	}
	for _, a := range arith {
		c.AddGenerator(a.name, arithGen(a.b, a.min))
	}
}

// arithGen builds a generator for a fixed-arity-family primitive that
// compiles each operand and folds them pairwise through op.
func arithGen(op base, minArgs int) GeneratorFunc {
	return func(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
		args := e.Items[1:]
		if len(args) < minArgs {
			return fmt.Errorf("%s: expected at least %d operand(s), got %d", headName(e), minArgs, len(args))
		}
		pos := mustStart(e)
		c.compileCompound(cs, sub, args[0], false, file)
		if len(args) == 1 {
			emit(sub, pos, op)
			return nil
		}
		for _, a := range args[1:] {
			c.compileCompound(cs, sub, a, false, file)
			emit(sub, pos, op)
			sub.Pop(1)
		}
		return nil
	}
}

func headName(e *ast.Expr) string {
	if id, ok := e.Items[0].(*ast.Ident); ok {
		return id.Name
	}
	return "<expr>"
}

// quoteGen implements (__quote datum): the datum is not evaluated — it is
// reified as literal data and the instructions to build it at runtime (or
// comptime, if sub is the comptime side) are emitted directly.
func quoteGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) != 2 {
		return fmt.Errorf("__quote: expected exactly 1 operand, got %d", len(e.Items)-1)
	}
	c.compileQuotedLeaf(cs, sub, e.Items[1], file)
	return nil
}

// ifGen implements (if test then [else]).
func ifGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) < 3 || len(e.Items) > 4 {
		return fmt.Errorf("if: expected (if test then [else]), got %d forms", len(e.Items)-1)
	}
	pos := mustStart(e)
	testSlot, _ := c.compileCompound(cs, sub, e.Items[1], false, file)
	elseLabel := sub.NewLabel()
	endLabel := sub.NewLabel()
	emitJumpTo(sub, pos, baseBrz, elseLabel, localArg(testSlot))
	// brz reads the tested value in place without popping it, so it stays
	// on the stack just below the branch result.

	resultSlot := sub.LocalsLength()
	c.compileCompound(cs, sub, e.Items[2], false, file)
	emitJumpTo(sub, pos, baseJump, endLabel)
	sub.setLocalsLen(resultSlot)

	sub.EmitLabel(elseLabel)
	if len(e.Items) == 4 {
		c.compileCompound(cs, sub, e.Items[3], false, file)
	} else {
		sub.Push(1)
		emit(sub, pos, baseNil)
	}
	sub.EmitLabel(endLabel)
	sub.setLocalsLen(resultSlot + 1)
	return nil
}

// beginGen implements (begin form...): each form but the last is compiled
// and its result discarded; the last form's result is the value of the
// whole begin.
func beginGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	forms := e.Items[1:]
	pos := mustStart(e)
	if len(forms) == 0 {
		sub.Push(1)
		emit(sub, pos, baseNil)
		return nil
	}
	for i, f := range forms {
		base := sub.LocalsLength()
		c.compileCompound(cs, sub, f, false, file)
		if i < len(forms)-1 {
			if sub.LocalsLength() > base {
				emit(sub, mustStart(f), basePop, intArg(int64(sub.LocalsLength()-base)))
				sub.setLocalsLen(base)
			}
		}
	}
	return nil
}

// listGen implements (__list a1... an): builds a proper list at runtime
// from evaluated (not quoted) operands, used by macro bodies to construct
// their return value.
func listGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	args := e.Items[1:]
	pos := mustStart(e)
	if len(args) == 0 {
		sub.Push(1)
		emit(sub, pos, baseNil)
		return nil
	}
	slots := make([]int, len(args))
	for i, a := range args {
		slots[i], _ = c.compileCompound(cs, sub, a, false, file)
	}
	// Build right-to-left: start from nil, cons each value (in reverse)
	// onto the growing tail. cons takes its car from the lower of its two
	// top-of-stack operands and its cdr from the upper one (the same
	// convention compileLiteralTail relies on), so each step must push the
	// head value before duplicating the accumulator, not after.
	accSlot := sub.Push(1)
	emit(sub, pos, baseNil)
	for i := len(args) - 1; i >= 0; i-- {
		emit(sub, pos, basePushIndex, localArg(slots[i]))
		sub.Push(1)
		emit(sub, pos, basePushIndex, localArg(accSlot))
		sub.Push(1)
		emit(sub, pos, baseCons)
		sub.Pop(2)
		accSlot = sub.Push(1)
	}
	return nil
}

// letGen implements (let ((name init)...) body...): a new lexical scope
// with each name bound to its evaluated init, in order, followed by body
// forms evaluated as by begin.
func letGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) < 2 {
		return fmt.Errorf("let: expected a binding list")
	}
	bindings, ok := e.Items[1].(*ast.Expr)
	if !ok {
		return fmt.Errorf("let: expected a binding list")
	}
	pos := mustStart(e)
	cs.PushScope(false)
	for _, b := range bindings.Items {
		pair, ok := b.(*ast.Expr)
		if !ok || len(pair.Items) != 2 {
			cs.PopScope()
			return fmt.Errorf("let: each binding must be (name init)")
		}
		name, ok := pair.Items[0].(*ast.Ident)
		if !ok {
			cs.PopScope()
			return fmt.Errorf("let: binding name must be an identifier")
		}
		c.compileCompound(cs, sub, pair.Items[1], false, file)
		sub.Top().Locals[name.Name] = sub.LocalsLength() - 1
	}
	body := e.Items[2:]
	if len(body) == 0 {
		sub.Push(1)
		emit(sub, pos, baseNil)
	} else {
		for i, f := range body {
			base := sub.LocalsLength()
			c.compileCompound(cs, sub, f, false, file)
			if i < len(body)-1 && sub.LocalsLength() > base {
				emit(sub, mustStart(f), basePop, intArg(int64(sub.LocalsLength()-base)))
				sub.setLocalsLen(base)
			}
		}
	}
	rs, cts := cs.PopScope()
	if active := cs.Active(rs, cts); len(active.ScopeUVs) > 0 {
		emit(sub, pos, baseReleaseUpvalues, vectorArg(active.ScopeUVs)...)
	}
	return nil
}

// setGen implements (set! name value): mutates an existing local,
// upvalue, or global binding.
func setGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) != 3 {
		return fmt.Errorf("set!: expected (set! name value)")
	}
	name, ok := e.Items[1].(*ast.Ident)
	if !ok {
		return fmt.Errorf("set!: target must be an identifier")
	}
	pos := mustStart(e)
	valSlot, _ := c.compileCompound(cs, sub, e.Items[2], false, file)
	if slot, ok := sub.getLocal(name.Name); ok {
		emit(sub, pos, baseMove, localArg(slot), localArg(valSlot))
		emit(sub, pos, basePop, intArg(1))
		sub.Pop(1)
		emit(sub, pos, basePushIndex, localArg(slot))
		sub.Push(1)
		return nil
	}
	if uv, ok := sub.GetFreeLocal(name.Name); ok {
		emit(sub, pos, baseSetUpvalue, intArg(int64(uv)), localArg(valSlot))
		return nil
	}
	id := c.Symbols.Intern(name.Name)
	emit(sub, pos, baseSetStatic, localArg(valSlot), intArg(int64(id)))
	return nil
}

// defineGen implements (define name (lambda (params...) body...)) and the
// shorthand (define (name params...) body...), binding a lisp function
// (or, via set!, a value) in the current scope.
func defineGen(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
	if len(e.Items) < 3 {
		return fmt.Errorf("define: expected a name and a value")
	}
	pos := mustStart(e)

	if sig, ok := e.Items[1].(*ast.Expr); ok {
		// (define (name params...) body...)
		if len(sig.Items) == 0 {
			return fmt.Errorf("define: empty function signature")
		}
		name, ok := sig.Items[0].(*ast.Ident)
		if !ok {
			return fmt.Errorf("define: function name must be an identifier")
		}
		params := make([]string, 0, len(sig.Items)-1)
		for _, p := range sig.Items[1:] {
			pid, ok := p.(*ast.Ident)
			if !ok {
				return fmt.Errorf("define: parameter must be an identifier")
			}
			params = append(params, pid.Name)
		}
		slot, err := c.compileLambda(cs, sub, params, e.Items[2:], false, file, pos)
		if err != nil {
			return err
		}
		sub.Top().Locals[name.Name] = slot
		sub.declareFunc(name.Name, KindLisp, slot)
		emit(sub, pos, basePushIndex, localArg(slot))
		return nil
	}

	name, ok := e.Items[1].(*ast.Ident)
	if !ok {
		return fmt.Errorf("define: expected an identifier or function signature")
	}
	slot, _ := c.compileCompound(cs, sub, e.Items[2], false, file)
	sub.Top().Locals[name.Name] = slot
	emit(sub, pos, basePushIndex, localArg(slot))
	return nil
}

// lambdaGen builds a generator for (lambda (params...) body...) or, when
// variadic is true, (vlambda (params...) body...) whose last parameter
// collects any extra call arguments.
func lambdaGen(variadic bool) GeneratorFunc {
	return func(c *Compiler, cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) error {
		if len(e.Items) < 2 {
			return fmt.Errorf("%s: expected a parameter list", headName(e))
		}
		paramsExpr, ok := e.Items[1].(*ast.Expr)
		if !ok {
			return fmt.Errorf("%s: expected a parameter list", headName(e))
		}
		params := make([]string, 0, len(paramsExpr.Items))
		for _, p := range paramsExpr.Items {
			pid, ok := p.(*ast.Ident)
			if !ok {
				return fmt.Errorf("%s: parameter must be an identifier", headName(e))
			}
			params = append(params, pid.Name)
		}
		_, err := c.compileLambda(cs, sub, params, e.Items[2:], variadic, file, mustStart(e))
		return err
	}
}

// compileLambda builds a closure value: the function body is inlined in
// the same assembly buffer behind a skip jump, and a push-closure/
// push-vaclosure instruction references its entry label.
func (c *Compiler) compileLambda(cs *CompileState, sub *SubState, params []string, body []ast.Node, variadic bool, file *token.File, pos token.Pos) (int, error) {
	skip := sub.NewLabel()
	entry := sub.NewLabel()
	emitJumpTo(sub, pos, baseJump, skip)
	sub.EmitLabel(entry)

	cs.PushScope(true)
	// The function body runs in its own frame, whose slots start at 0
	// with the parameters.
	outerLen := sub.LocalsLength()
	sub.setLocalsLen(0)
	for _, p := range params {
		sub.declareLocal(p)
	}

	if len(body) == 0 {
		sub.Push(1)
		emit(sub, pos, baseNil)
	} else {
		for i, f := range body {
			base := sub.LocalsLength()
			c.compileCompound(cs, sub, f, false, file)
			if i < len(body)-1 && sub.LocalsLength() > base {
				emit(sub, mustStart(f), basePop, intArg(int64(sub.LocalsLength()-base)))
				sub.setLocalsLen(base)
			}
		}
	}

	rs, cts := cs.PopScope()
	active := cs.Active(rs, cts)
	if len(active.ScopeUVs) > 0 {
		emit(sub, pos, baseReleaseUpvalues, vectorArg(active.ScopeUVs)...)
	}
	emit(sub, pos, baseReturnN, intArg(1))
	sub.EmitLabel(skip)
	sub.setLocalsLen(outerLen)

	closureBase := basePushClosure
	if variadic {
		closureBase = basePushVaClosure
	}
	args := []Arg{labelArg(entry), intArg(int64(len(params)))}
	for _, uv := range active.FunctionUVs {
		args = append(args, intArg(encodeUV(uv)))
	}
	slot := sub.Push(1)
	sub.Emit(Insn{Base: closureBase, Args: args, Pos: pos})
	return slot, nil
}

// encodeUV packs an UpvalueSource into the 4-byte wire representation
// push-closure's uvs vector carries: bit 0 selects local-of-creating-
// frame (0) vs upvalue-of-creating-closure (1); the remaining bits are
// the index. This is an internal convention between lang/compiler and
// lang/machine — this package only specifies the vector's element width (4
// bytes), not its internal layout.
func encodeUV(src UpvalueSource) int64 {
	v := int64(src.Index) << 1
	if src.IsUpvalue {
		v |= 1
	}
	return v
}
