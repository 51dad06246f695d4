package compiler

import "github.com/mna/lacewing/lang/symbol"

// FuncKind tags how a callable name resolves.
type FuncKind int

const (
	KindLisp FuncKind = iota
	KindPureLisp
	KindCallback
	KindGenerator
	KindMacro
)

// LabelID identifies a label within a sub-compile-state. IDs are assigned
// by SubState.NewLabel in increasing order starting at 1; 0 is never a
// valid label.
type LabelID int

// UpvalueSource is one entry of a Scope's captured-upvalues list: it
// is either a local slot of the immediately enclosing function, or a
// chained reference to an upvalue already captured by that function.
// Some bytecode VMs encode this as a signed integer (non-negative =
// local index, -(i+1) = upvalue i); that sign trick is a low-level
// encoding detail and is represented here as an explicit tagged value
// instead.
type UpvalueSource struct {
	IsUpvalue bool
	Index int
}

// Scope is one lexical frame. Scopes are always referenced by
// pointer and owned by the SubState.scopes slice: that sidesteps the
// read-modify-write-by-value discipline the originating C implementation
// needed to avoid aliasing a reallocating array.
type Scope struct {
	Locals map[string]int // name -> local slot index
	Funcs map[string]funcEntry // name -> (kind, index)
	Labels map[string]LabelID // name -> label id

	// ScopeUVs are local slot indices declared in *this* scope that have
	// been captured by some inner function; they require release-upvalues
	// boxing when this scope exits.
	ScopeUVs []int

	// FunctionUVs are the captured values of the function this scope is
	// the root of (only meaningful if FunctionScope is true).
	FunctionUVs []UpvalueSource

	FunctionScope bool
}

type funcEntry struct {
	kind FuncKind
	index int
}

func newScope(isFunction bool) *Scope {
	return &Scope{
		Locals: make(map[string]int),
		Funcs: make(map[string]funcEntry),
		Labels: make(map[string]LabelID),
		FunctionScope: isFunction,
	}
}

// markCaptured records that local slot in this scope was captured by an
// inner function, appending it to ScopeUVs exactly once.
func (s *Scope) markCaptured(localSlot int) {
	for _, i := range s.ScopeUVs {
		if i == localSlot {
			return
		}
	}
	s.ScopeUVs = append(s.ScopeUVs, localSlot)
}

// addFunctionUV registers src in FunctionUVs, returning its index; if src
// is already present, the existing index is reused.
func (s *Scope) addFunctionUV(src UpvalueSource) int {
	for i, uv := range s.FunctionUVs {
		if uv == src {
			return i
		}
	}
	s.FunctionUVs = append(s.FunctionUVs, src)
	return len(s.FunctionUVs) - 1
}

// SubState is a sub-compile-state: a stack of scopes, a label counter, the
// running locals length, and the assembly buffer being emitted into.
type SubState struct {
	scopes []*Scope
	labelCount LabelID
	localsLen int
	asm []Insn
	symbolTable *symbol.Table
}

func newSubState(tab *symbol.Table) *SubState {
	return &SubState{symbolTable: tab}
}

// PushScope pushes a new lexical frame. isFunction marks it as a function
// root only when active is also true: when isFunction is requested and
// the target sub-compile-state is the currently active one, the new
// scope's FunctionScope is true; otherwise false. This keeps comptime and
// runtime scope shapes aligned while a __defmacro body (which runs on the
// comptime side while the runtime side mirrors the push) is being
// compiled.
func (s *SubState) PushScope(isFunction, active bool) *Scope {
	sc := newScope(isFunction && active)
	s.scopes = append(s.scopes, sc)
	return sc
}

// PopScope removes the innermost scope and returns it. It panics if the
// stack is empty.
func (s *SubState) PopScope() *Scope {
	n := len(s.scopes)
	if n == 0 {
		panic("compiler: scope stack underflow")
	}
	sc := s.scopes[n-1]
	s.scopes = s.scopes[:n-1]
	return sc
}

// Top returns the innermost scope, or nil if the stack is empty.
func (s *SubState) Top() *Scope {
	if len(s.scopes) == 0 {
		return nil
	}
	return s.scopes[len(s.scopes)-1]
}

// Depth returns the number of scopes currently on the stack.
func (s *SubState) Depth() int { return len(s.scopes) }

// ScopeAt returns the scope at the given stack index (0 = outermost).
func (s *SubState) ScopeAt(i int) *Scope { return s.scopes[i] }

// NewLabel allocates and returns a fresh label id.
func (s *SubState) NewLabel() LabelID {
	s.labelCount++
	return s.labelCount
}

// Emit appends an instruction to the assembly buffer.
func (s *SubState) Emit(i Insn) { s.asm = append(s.asm, i) }

// EmitLabel appends a label-definition pseudo-instruction.
func (s *SubState) EmitLabel(id LabelID) { s.asm = append(s.asm, Insn{IsLabel: true, Label: id}) }

// Push increments locals_length by n and returns the slot index of the
// first of the n newly pushed values.
func (s *SubState) Push(n int) int {
	first := s.localsLen
	s.localsLen += n
	return first
}

// Pop decrements locals_length by n.
func (s *SubState) Pop(n int) {
	s.localsLen -= n
	if s.localsLen < 0 {
		panic("compiler: locals_length underflow")
	}
}

// LocalsLength returns the current running stack depth.
func (s *SubState) LocalsLength() int { return s.localsLen }

// setLocalsLen overrides locals_length directly; used by call-shaped
// generators (funcall, ccall) that know exactly what depth their call
// convention leaves behind rather than expressing it as a Push/Pop delta.
func (s *SubState) setLocalsLen(n int) { s.localsLen = n }

// getLocal walks the scope stack top-down looking for name, stopping
// descent when it crosses a function-scope boundary without a hit: such
// a name is free, not local.
func (s *SubState) getLocal(name string) (slot int, ok bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		sc := s.scopes[i]
		if idx, ok := sc.Locals[name]; ok {
			return idx, true
		}
		if sc.FunctionScope {
			return 0, false
		}
	}
	return 0, false
}

// getLabel walks the scope stack top-down, crossing function boundaries:
// labels are lexically visible through nested functions.
func (s *SubState) getLabel(name string) (LabelID, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if id, ok := s.scopes[i].Labels[name]; ok {
			return id, true
		}
	}
	return 0, false
}

// getFunc walks the scope stack top-down, crossing function boundaries, to
// find a locally-declared callable (lisp, pure-lisp or macro); used by the
// registry.
func (s *SubState) getFunc(name string) (funcEntry, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if fe, ok := s.scopes[i].Funcs[name]; ok {
			return fe, true
		}
	}
	return funcEntry{}, false
}

// declareLocal binds name to a fresh, monotonically-assigned local slot in
// the innermost scope.
func (s *SubState) declareLocal(name string) int {
	idx := s.Push(1)
	s.Top().Locals[name] = idx
	return idx
}

// declareLabel binds name to a fresh label in the innermost scope.
func (s *SubState) declareLabel(name string) LabelID {
	id := s.NewLabel()
	s.Top().Labels[name] = id
	return id
}

// declareFunc registers name as a callable of the given kind in the
// innermost scope.
func (s *SubState) declareFunc(name string, kind FuncKind, index int) {
	s.Top().Funcs[name] = funcEntry{kind: kind, index: index}
}
