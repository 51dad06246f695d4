package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/lacewing/lang/object"
	"github.com/mna/lacewing/lang/symbol"
)

// Thread is one execution of the bytecode interpreter: the runtime VM a
// compiled program runs on, or the comptime VM a macro body runs on. These
// are two Threads sharing the same machinery and, crucially, the same
// symbol table, so a comptime global set with set-static is visible to
// later runtime code compiled against the same compiler instance only if
// the caller wires the same Thread to both — ordinarily callers want two
// independent Threads, one per side.
type Thread struct {
	// Name optionally names the thread, for diagnostics.
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin io.Reader

	// MaxSteps bounds the number of executed instructions before the
	// thread aborts with an error; <= 0 means unbounded.
	MaxSteps int64

	// MaxCallDepth bounds Go-native call-stack recursion (run calls itself
	// once per lisp-level function call); <= 0 means unbounded.
	MaxCallDepth int

	Symbols *symbol.Table

	globals map[symbol.ID]object.Value

	ctx context.Context
	ctxCancel context.CancelFunc
	cancelled atomic.Bool

	steps int64
	maxSteps int64
	callDepth int
	typeSeq int
}

// NewThread returns a Thread ready to Run or RunMacro bytecode compiled
// against tab.
func NewThread(tab *symbol.Table) *Thread {
	return &Thread{Symbols: tab, globals: make(map[symbol.ID]object.Value)}
}

func (rt *Thread) init() {
	if rt.MaxSteps <= 0 {
		rt.maxSteps = 0
	} else {
		rt.maxSteps = rt.MaxSteps
	}
	if rt.Stdout == nil {
		rt.Stdout = os.Stdout
	}
	if rt.Stderr == nil {
		rt.Stderr = os.Stderr
	}
	if rt.Stdin == nil {
		rt.Stdin = os.Stdin
	}
	if rt.ctx == nil {
		rt.ctx = context.Background()
		rt.ctxCancel = func() {}
	}
}

// WithContext wires ctx's cancellation into the thread: a step check
// observes ctx.Done the same way it observes MaxSteps.
func (rt *Thread) WithContext(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	rt.ctx = ctx
	rt.ctxCancel = cancel
	go func() {
		<-ctx.Done()
		rt.cancelled.Store(true)
	}()
}

// DefineCallback implements the compiler.Runtime contract link_c_function
// registers against:
// fn must be a Native value naming the exact argument count every ccall
// site compiled against id will push.
func (rt *Thread) DefineCallback(id symbol.ID, fn any) {
	native, ok := fn.(Native)
	if !ok {
		panic(fmt.Sprintf("machine: DefineCallback: expected machine.Native, got %T", fn))
	}
	name := ""
	if rt.Symbols != nil {
		name = rt.Symbols.Name(id)
	}
	if rt.globals == nil {
		rt.globals = make(map[symbol.ID]object.Value)
	}
	rt.globals[id] = &NativeFunc{Name: name, Arity: native.Arity, Fn: native.Fn}
}

// Run executes a complete, self-contained bytecode blob from offset 0 —
// whatever Assemble produced for a whole program, terminated by halt —
// and returns whichever value sits on top of the stack when halt
// executes, or object.Nil if the program pushed nothing.
func (rt *Thread) Run(code []byte) (object.Value, error) {
	rt.init()
	fr := newFrame(code, 0, nil, 0)
	if _, err := rt.run(fr); err != nil {
		return nil, err
	}
	if len(fr.slots) == 0 {
		return object.Nil, nil
	}
	return fr.get(fr.top), nil
}

// RunMacro implements the compiler.Runtime contract __defmacro and
// __comptime expansion drive: code is a self-contained
// comptime trial buffer (the macro's own assembly plus an ephemeral
// driver trailer, already terminated by halt), and the same top-of-stack
// convention as Run applies.
func (rt *Thread) RunMacro(code []byte) (object.Value, error) {
	return rt.Run(code)
}
