package compiler

import (
	"fmt"

	"github.com/mna/lacewing/internal/diag"
	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/object"
	"github.com/mna/lacewing/lang/symbol"
	"github.com/mna/lacewing/lang/token"
)

// Runtime is the comptime VM as seen by the compiler.
// It is a small seam rather than a direct dependency on lang/machine: the
// machine package itself depends on compiler for the Opcode family, so a
// concrete *machine.Thread is wired in by whatever constructs a Compiler
// (see internal/maincmd), not imported here.
type Runtime interface {
	// DefineCallback registers name's symbol id against a native callback
	// value opaque to the compiler (link_c_function, this package).
	DefineCallback(id symbol.ID, fn any)
	// RunMacro executes a freshly assembled, self-contained comptime
	// bytecode blob (it already embeds both the macro call's reified
	// arguments and the funcall invoking the macro's closure) and returns
	// whatever VM object is on the stack top when it halts.
	RunMacro(code []byte) (object.Value, error)
}

// ParserAction is the callback shape for add_parser_action:
// reader macros are an external collaborator of lang/reader, but the
// compiler is where they are registered and named.
type ParserAction func(args []byte) (ast.Node, error)

// Compiler is the top-level driver of this package: it owns the symbol table,
// the registries (generators, callbacks, statics), the diagnostics bag,
// and the gensym counter, and exposes LoadString as its compilation
// entry point.
type Compiler struct {
	Symbols *symbol.Table
	Diagnostics *diag.Bag
	runtime Runtime

	generators []GeneratorFunc
	generatorIndex map[string]int

	callbacks map[string]symbol.ID

	statics map[string]symbol.ID

	parserActions map[string]ParserAction

	gensymCounter uint64

	// Diagnostic counters for a peephole pass. Assemble performs no such
	// pass and nothing increments them, so both stay zero.
	PushPopInstructionsRemoved int
	JumpSizeBytesRemoved int
}

// New creates a Compiler backed by tab and rt. tab may be shared across
// multiple Compiler instances only if the caller accepts that their
// symbol ids then overlap; normally each Compiler owns its own table.
func New(tab *symbol.Table, rt Runtime) *Compiler {
	c := &Compiler{
		Symbols: tab,
		Diagnostics: &diag.Bag{},
		runtime: rt,
		generatorIndex: make(map[string]int),
		callbacks: make(map[string]symbol.ID),
		statics: make(map[string]symbol.ID),
		parserActions: make(map[string]ParserAction),
	}
	registerCoreGenerators(c)
	return c
}

// LinkCFunction registers name as a C-callback:
// the name is interned, recorded in the compiler's callbacks table, and
// forwarded to the comptime VM's static table so macros can call it too.
func (c *Compiler) LinkCFunction(name string, fn any) {
	id := c.Symbols.Intern(name)
	c.callbacks[name] = id
	if c.runtime != nil {
		c.runtime.DefineCallback(id, fn)
	}
}

// AddParserAction registers a reader-macro hook by name.
// lang/reader consults this through whatever binds a Compiler to a
// Reader; the compiler itself only holds the registration.
func (c *Compiler) AddParserAction(name string, fn ParserAction) {
	c.parserActions[name] = fn
}

// ParserAction looks up a previously registered reader-macro hook.
func (c *Compiler) ParserAction(name string) (ParserAction, bool) {
	fn, ok := c.parserActions[name]
	return fn, ok
}

// AddStatic allocates a global slot for name and returns its symbol id.
func (c *Compiler) AddStatic(name string) symbol.ID {
	if id, ok := c.statics[name]; ok {
		return id
	}
	id := c.Symbols.Intern(name)
	c.statics[name] = id
	return id
}

// Gensym produces a fresh identifier of the form "\x00<hex>":
// the leading NUL ensures it can never collide with a user-written name.
// The counter is owned by the Compiler instance and persists across every
// call to LoadString made on it, not just the current one — so repeated
// compilations against the same Compiler never reuse a gensym'd name.
func (c *Compiler) Gensym() string {
	name := fmt.Sprintf("\x00%x", c.gensymCounter)
	c.gensymCounter++
	return name
}

// LoadString compiles source (already parsed into forms by the caller's
// reader) into a flat bytecode stream plus whatever diagnostics
// accumulated. file is used only to annotate diagnostic spans.
//
// Unlike the single load_string(source_bytes,...) entry point this package
// describes, parsing is not performed here: lang/reader is the external
// collaborator that turns source bytes into forms, and LoadString takes
// its output directly. This keeps the compiler's entry point pure with
// respect to the parser, matching this package statement that the concrete
// parser is out of core scope.
func (c *Compiler) LoadString(forms []ast.Node, file *token.File) ([]byte, []diag.Diagnostic) {
	cs := NewCompileState(c.Symbols)
	sub := cs.RuntimeState
	cs.PushScope(true) // the implicit top-level frame every form compiles within
	for i, form := range forms {
		base := sub.LocalsLength()
		pos := formPos(form)
		c.compileCompound(cs, sub, form, false, file)
		c.finalizeRoot(sub, base, pos)
		if i < len(forms)-1 && sub.LocalsLength() > base {
			emit(sub, pos, basePop, intArg(int64(sub.LocalsLength()-base)))
			sub.setLocalsLen(base)
		}
	}
	emit(sub, token.NoPos, baseHalt)
	cs.PopScope()

	code, err := Assemble(sub.asm)
	if err != nil {
		c.Diagnostics.Errorf(file, token.NoPos, token.NoPos, "%s", err)
		return nil, c.Diagnostics.Drain()
	}
	return code, c.Diagnostics.Drain()
}
