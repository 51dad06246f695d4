package compiler

import "github.com/mna/lacewing/lang/symbol"

// Side names which sub-compile-state is active.
type Side int

const (
	RuntimeSide Side = iota
	Comptime
)

// CompileState is the pair of sub-compile-states: one for ordinary
// runtime code, one for compile-time (macro) code, plus a flag naming
// which is active. One CompileState is built per call to LoadString and
// discarded at its end.
//
// PushScope and PopScope always act on both sub-states together, so the
// two stacks can never drift out of sync: a scope pop can never underflow
// one side while the other still has frames left.
type CompileState struct {
	RuntimeState *SubState
	ComptimeState *SubState
	side Side
}

// NewCompileState creates a compile-state pair backed by the given symbol
// table, defaulting to the runtime side active.
func NewCompileState(tab *symbol.Table) *CompileState {
	return &CompileState{
		RuntimeState: newSubState(tab),
		ComptimeState: newSubState(tab),
		side: RuntimeSide,
	}
}

// Side reports which sub-compile-state is currently active.
func (cs *CompileState) Side() Side { return cs.side }

// Current returns the active sub-compile-state.
func (cs *CompileState) Current() *SubState {
	if cs.side == Comptime {
		return cs.ComptimeState
	}
	return cs.RuntimeState
}

// Other returns the inactive sub-compile-state.
func (cs *CompileState) Other() *SubState {
	if cs.side == Comptime {
		return cs.RuntimeState
	}
	return cs.ComptimeState
}

// SwitchToComptime activates the comptime side and returns the previously active side so
// the caller can restore it.
func (cs *CompileState) SwitchToComptime() Side {
	prev := cs.side
	cs.side = Comptime
	return prev
}

// Restore reactivates the given side.
func (cs *CompileState) Restore(side Side) { cs.side = side }

// PushScope pushes a paired lexical frame onto both sub-states. Only the
// side that is active when the push happens gets FunctionScope set on its
// copy when isFunction is requested; the mirrored scope on the
// other side is always non-function, keeping the two stacks the same
// depth without pretending the inactive side has a function boundary it
// doesn't.
func (cs *CompileState) PushScope(isFunction bool) (runtime, comptime *Scope) {
	runtime = cs.RuntimeState.PushScope(isFunction, cs.side == RuntimeSide)
	comptime = cs.ComptimeState.PushScope(isFunction, cs.side == Comptime)
	return runtime, comptime
}

// PopScope pops the paired lexical frame from both sub-states.
func (cs *CompileState) PopScope() (runtime, comptime *Scope) {
	runtime = cs.RuntimeState.PopScope()
	comptime = cs.ComptimeState.PopScope()
	return runtime, comptime
}

// Active picks whichever of a runtime/comptime scope pair belongs to the
// currently active side (the one PushScope would have marked
// FunctionScope, had isFunction been requested).
func (cs *CompileState) Active(runtime, comptime *Scope) *Scope {
	if cs.side == Comptime {
		return comptime
	}
	return runtime
}
