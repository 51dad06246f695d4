package compiler

import (
	"fmt"

	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/token"
)

// StaticType is the lowerer's best-effort static classification of a
// compiled expression's result, used only to let a handful of generators
// (notably arithmetic and the macro driver's reification) short-circuit
// obviously-safe cases; it is never load-bearing for correctness.
type StaticType int

const (
	TypeUnknown StaticType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeSymbol
	TypeList
)

func emit(sub *SubState, pos token.Pos, b base, args...Arg) {
	sub.Emit(Insn{Base: b, Args: args, Pos: pos})
}

func emitJumpTo(sub *SubState, pos token.Pos, b base, label LabelID, extra...Arg) {
	args := append([]Arg{labelArg(label)}, extra...)
	sub.Emit(Insn{Base: b, Args: args, Pos: pos})
}

// compileCompound is the lowerer's single entry point for one AST node in
// value position. It returns the local slot holding the
// result and a best-effort static type.
func (c *Compiler) compileCompound(cs *CompileState, sub *SubState, n ast.Node, wantRef bool, file *token.File) (int, StaticType) {
	start, _ := n.Span()
	switch v := n.(type) {
		case *ast.Bool:
			slot := sub.Push(1)
			emit(sub, start, basePushBooleanFalse.pick(v.Value))
			return slot, TypeBool
		case *ast.Int:
			slot := sub.Push(1)
			emit(sub, start, basePushInteger, intArg(v.Value))
			return slot, TypeInt
		case *ast.Float:
			slot := sub.Push(1)
			emit(sub, start, basePushDoubleFloat, floatArg(v.Value))
			return slot, TypeFloat
		case *ast.Str:
			slot := sub.Push(1)
			emit(sub, start, basePushString, bytesArg(v.Value))
			return slot, TypeString
		case *ast.Ident:
			return c.compileIdent(cs, sub, v, wantRef, file)
		case *ast.Callback:
			id := c.Symbols.Intern(v.Name)
			slot := sub.Push(1)
			emit(sub, start, basePushGlobal, intArg(int64(id)))
			return slot, TypeUnknown
		case *ast.Expr:
			return c.compileExpression(cs, sub, v, file)
		case *ast.LiteralExpr:
			return c.compileLiteralData(cs, sub, v, file)
		default:
			c.Diagnostics.Errorf(file, start, start, "unsupported AST node %T in value position", n)
			slot := sub.Push(1)
			emit(sub, start, baseNil)
			return slot, TypeUnknown
	}
}

// pick is a tiny helper so literal booleans reuse the same base constant
// family name as the opcode table (pushBooleanFalse/True are distinct
// bases, not a width family of one another).
func (b base) pick(v bool) base {
	if v {
		return basePushBooleanTrue
	}
	return basePushBooleanFalse
}

func (c *Compiler) compileIdent(cs *CompileState, sub *SubState, id *ast.Ident, wantRef bool, file *token.File) (int, StaticType) {
	start, _ := id.Span()
	if slot, ok := sub.getLocal(id.Name); ok {
		// Always duplicate onto a fresh top-of-stack slot, even when the
		// caller doesn't care about wantRef: every caller of compileCompound
		// treats the returned slot as the start of a freshly-pushed,
		// contiguous region (funcall/ccall argument lists, arithmetic
		// operands, let bindings,...), so handing back an older slot
		// in-place would silently break that contiguity whenever the
		// identifier names a local declared below the current stack top.
		out := sub.Push(1)
		emit(sub, start, basePushIndex, localArg(slot))
		return out, TypeUnknown
	}
	if uv, ok := sub.GetFreeLocal(id.Name); ok {
		slot := sub.Push(1)
		emit(sub, start, basePushUpvalue, localArg(uv))
		return slot, TypeUnknown
	}
	gid := c.Symbols.Intern(id.Name)
	slot := sub.Push(1)
	emit(sub, start, basePushGlobal, intArg(int64(gid)))
	return slot, TypeUnknown
}

// compileLiteralData lowers a quoted data list (produced by the object
// bridge, or by an explicit (__quote...) form) into the instructions
// that build the equivalent cons-list at runtime: a string/symbol/scalar
// push per leaf, consed together right-to-left.
func (c *Compiler) compileLiteralData(cs *CompileState, sub *SubState, lit *ast.LiteralExpr, file *token.File) (int, StaticType) {
	start, _ := lit.Span()
	if len(lit.Items) == 0 {
		slot := sub.Push(1)
		emit(sub, start, baseNil)
		return slot, TypeList
	}
	tailSlot, _ := c.compileLiteralTail(cs, sub, lit.Items, file, start)
	return tailSlot, TypeList
}

func (c *Compiler) compileLiteralTail(cs *CompileState, sub *SubState, items []ast.Node, file *token.File, pos token.Pos) (int, StaticType) {
	if len(items) == 0 {
		slot := sub.Push(1)
		emit(sub, pos, baseNil)
		return slot, TypeList
	}
	headSlot, _ := c.compileQuotedLeaf(cs, sub, items[0], file)
	c.compileLiteralTail(cs, sub, items[1:], file, pos)
	// cons consumes the two top-of-stack slots (head, tail) and leaves the
	// pair at headSlot.
	emit(sub, pos, baseCons)
	sub.Pop(1)
	return headSlot, TypeList
}

func (c *Compiler) compileQuotedLeaf(cs *CompileState, sub *SubState, n ast.Node, file *token.File) (int, StaticType) {
	switch v := n.(type) {
		case *ast.Expr:
			return c.compileLiteralTail(cs, sub, v.Items, file, mustStart(v))
		case *ast.LiteralExpr:
			return c.compileLiteralTail(cs, sub, v.Items, file, mustStart(v))
		case *ast.Ident:
			start, _ := v.Span()
			id := c.Symbols.Intern(v.Name)
			slot := sub.Push(1)
			emit(sub, start, basePushSymbol, intArg(int64(id)), bytesArg([]byte(v.Name)))
			return slot, TypeSymbol
		default:
			return c.compileCompound(cs, sub, n, false, file)
	}
}

func mustStart(n ast.Node) token.Pos {
	s, _ := n.Span()
	return s
}

func formPos(n ast.Node) token.Pos { return mustStart(n) }

// finalizeRoot implements the top-level finalization step of its
// compile_AST: if compiling the root expression left more than one slot
// above base, the topmost is moved down into the second-from-top slot
// and the (now duplicate) top is popped, so the expression's result sits
// at a predictable, fixed offset from base.
func (c *Compiler) finalizeRoot(sub *SubState, base int, pos token.Pos) {
	cur := sub.LocalsLength()
	if cur-base > 1 {
		emit(sub, pos, baseMove, localArg(cur-2), localArg(cur-1))
		emit(sub, pos, basePop, intArg(1))
		sub.Pop(1)
	}
}

// compileExpression lowers a compound (f a1... an) form: the head
// identifier is resolved through the registry, or if the head is itself
// a compound, it is evaluated to a function value and called
// indirectly.
func (c *Compiler) compileExpression(cs *CompileState, sub *SubState, e *ast.Expr, file *token.File) (int, StaticType) {
	start, _ := e.Span()
	if len(e.Items) == 0 {
		slot := sub.Push(1)
		emit(sub, start, baseNil)
		return slot, TypeList
	}

	head := e.Items[0]
	args := e.Items[1:]

	if headIdent, ok := head.(*ast.Ident); ok {
		if r, ok := c.resolveCallable(sub, headIdent.Name); ok {
			switch r.Kind {
				case KindGenerator:
					if err := c.generators[r.Index](c, cs, sub, e, file); err != nil {
					c.Diagnostics.Errorf(file, start, start, "%s", err)
					slot := sub.Push(1)
					emit(sub, start, baseNil)
					return slot, TypeUnknown
				}
					return sub.LocalsLength() - 1, TypeUnknown
				case KindMacro:
					return c.expandMacro(cs, sub, headIdent.Name, r.Index, e, file)
				case KindCallback:
					return c.compileCcall(cs, sub, r.Index, args, file, start)
				default: // KindLisp, KindPureLisp: ordinary indirect call
					return c.compileFuncall(cs, sub, headIdent, args, file, start)
			}
		}
		// Unresolved: diagnose and fall back to a late-bound global call.
		c.Diagnostics.Warnf(file, start, start, "Could not find variable %q. Assuming global scope.", headIdent.Name)
		return c.compileFuncall(cs, sub, headIdent, args, file, start)
	}

	// Head is itself a compound: evaluate it, then call indirectly.
	fnSlot, _ := c.compileCompound(cs, sub, head, false, file)
	return c.compileFuncallAt(cs, sub, fnSlot, args, file, start)
}

func (c *Compiler) compileFuncall(cs *CompileState, sub *SubState, fn *ast.Ident, args []ast.Node, file *token.File, pos token.Pos) (int, StaticType) {
	// wantRef=true: the callee must land on a fresh top-of-stack slot so
	// the funcall's argument region is contiguous with it, even when fn
	// names a local declared well below the current stack depth.
	fnSlot, _ := c.compileIdent(cs, sub, fn, true, file)
	return c.compileFuncallAt(cs, sub, fnSlot, args, file, pos)
}

func (c *Compiler) compileFuncallAt(cs *CompileState, sub *SubState, fnSlot int, args []ast.Node, file *token.File, pos token.Pos) (int, StaticType) {
	for _, a := range args {
		c.compileCompound(cs, sub, a, false, file)
	}
	emit(sub, pos, baseFuncall, localArg(fnSlot), intArg(int64(len(args))))
	sub.setLocalsLen(fnSlot + 1)
	return fnSlot, TypeUnknown
}

func (c *Compiler) compileCcall(cs *CompileState, sub *SubState, symID int, args []ast.Node, file *token.File, pos token.Pos) (int, StaticType) {
	base := sub.LocalsLength()
	for _, a := range args {
		c.compileCompound(cs, sub, a, false, file)
	}
	emit(sub, pos, baseCcall, intArg(int64(symID)))
	sub.setLocalsLen(base)
	return base, TypeUnknown
}
