package compiler

import (
	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/token"
)

// GeneratorFunc implements a built-in special form: given the compiler, the
// active compile-state pair, the sub-compile-state currently being emitted
// into, the call expression itself, and the source file (for diagnostic
// spans), it emits whatever instructions the form needs. Most generators recurse back into the lowerer for their
// sub-expressions via c.compileCompound. A generator must leave exactly
// one value at the top of sub's stack: its result.
type GeneratorFunc func(c *Compiler, cs *CompileState, sub *SubState, expr *ast.Expr, file *token.File) error

// Resolved is the outcome of resolving a callable name.
type Resolved struct {
	Kind FuncKind
	Index int // meaning depends on Kind: asm label / generator table index / symbol id
}

// resolveCallable answers "what does name, called in head position here,
// refer to?" by trying, in order: a locally-declared lisp/pure-lisp/macro
// function visible in the current scope chain, a registered C callback,
// then a registered generator. The scope chain is checked
// first so user code can shadow a generator or callback with a local
// definition of the same name.
func (c *Compiler) resolveCallable(sub *SubState, name string) (Resolved, bool) {
	if fe, ok := sub.getFunc(name); ok {
		return Resolved{Kind: fe.kind, Index: fe.index}, true
	}
	if id, ok := c.callbacks[name]; ok {
		return Resolved{Kind: KindCallback, Index: int(id)}, true
	}
	if idx, ok := c.generatorIndex[name]; ok {
		return Resolved{Kind: KindGenerator, Index: idx}, true
	}
	return Resolved{}, false
}

// AddGenerator registers a built-in special form.
// Registering under a name already in use replaces the previous entry,
// matching the "last registration wins" rule used for link_c_function.
func (c *Compiler) AddGenerator(name string, fn GeneratorFunc) {
	if _, ok := c.generatorIndex[name]; !ok {
		c.generatorIndex[name] = len(c.generators)
		c.generators = append(c.generators, fn)
		return
	}
	c.generators[c.generatorIndex[name]] = fn
}
