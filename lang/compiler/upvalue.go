package compiler

// currentFuncRootIndex returns the scope-stack index of the innermost
// function-scope at or below the top of the stack: the root scope of the
// function currently being compiled.
func (s *SubState) currentFuncRootIndex() (int, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].FunctionScope {
			return i, true
		}
	}
	return 0, false
}

// nearestFunctionScopeBelow returns the index of the nearest function-scope
// strictly below (more outer than) idx, or ok=false if there is none.
func (s *SubState) nearestFunctionScopeBelow(idx int) (int, bool) {
	for i := idx - 1; i >= 0; i-- {
		if s.scopes[i].FunctionScope {
			return i, true
		}
	}
	return 0, false
}

// scanLocalsInRange searches sub.scopes[from] down through sub.scopes[to]
// (inclusive, from >= to) for name in each scope's Locals map, the same
// rule get_local uses. It returns the scope index where name was found and
// its local slot.
func (s *SubState) scanLocalsInRange(from, to int, name string) (scopeIdx, slot int, ok bool) {
	for i := from; i >= to; i-- {
		if idx, found := s.scopes[i].Locals[name]; found {
			return i, idx, true
		}
	}
	return 0, 0, false
}

// resolveFree implements the free-variable resolver of this package. It is
// called for a name that already failed get_local against the function
// rooted at funcRootIdx, and answers "what upvalue index should that
// function use (via push-upvalue) to reach name?".
//
// Every function scope on the path from the use to the definition ends
// up with exactly one entry in its own FunctionUVs.
func (s *SubState) resolveFree(funcRootIdx int, name string) (idx int, ok bool) {
	parentRootIdx, ok := s.nearestFunctionScopeBelow(funcRootIdx)
	if !ok {
		// No enclosing function: name is a free reference with nothing left
		// to capture from — the caller treats this as a global.
		return 0, false
	}

	var src UpvalueSource
	declScopeIdx, slot, found := s.scanLocalsInRange(funcRootIdx-1, parentRootIdx, name)
	if found {
		// Local of the immediately enclosing function: mark it for boxing
		// at its defining scope's exit (property 3), exactly once.
		s.scopes[declScopeIdx].markCaptured(slot)
		src = UpvalueSource{IsUpvalue: false, Index: slot}
	} else {
		u, ok2 := s.resolveFree(parentRootIdx, name)
		if !ok2 {
			return 0, false
		}
		src = UpvalueSource{IsUpvalue: true, Index: u}
	}

	return s.scopes[funcRootIdx].addFunctionUV(src), true
}

// GetFreeLocal resolves name as a free variable of the function currently
// being compiled. It must not be called for a name that
// get_local already found.
func (s *SubState) GetFreeLocal(name string) (upvalueIndex int, ok bool) {
	funcRootIdx, ok := s.currentFuncRootIndex()
	if !ok {
		return 0, false
	}
	return s.resolveFree(funcRootIdx, name)
}
