package machine

import "github.com/mna/lacewing/lang/object"

// Frame is one call's activation record: a flat region of slots shared by
// locals and the operand stack, mirroring lang/compiler's single
// locals_length counter rather than splitting
// locals from an operand stack.
type Frame struct {
	code []byte
	pc int
	fn *Closure // nil for the toplevel frame (program or a __comptime driver)
	slots []object.Value
	top int // index of the topmost slot, kept equal to len(slots)-1
}

func newFrame(code []byte, pc int, fn *Closure, nslots int) *Frame {
	return &Frame{code: code, pc: pc, fn: fn, slots: make([]object.Value, nslots, nslots+8), top: nslots - 1}
}

// get reads slot i, transparently unboxing a captured cell.
func (fr *Frame) get(i int) object.Value {
	if c, ok := fr.slots[i].(*cell); ok {
		return c.v
	}
	return fr.slots[i]
}

// set writes slot i, transparently writing through a captured cell.
func (fr *Frame) set(i int, v object.Value) {
	if c, ok := fr.slots[i].(*cell); ok {
		c.v = v
		return
	}
	fr.slots[i] = v
}

// push appends v as a fresh top-of-stack slot and returns its index.
func (fr *Frame) push(v object.Value) int {
	fr.slots = append(fr.slots, v)
	fr.top = len(fr.slots) - 1
	return fr.top
}

// truncate shrinks the slot region down to n entries, discarding the rest
// — the runtime counterpart of SubState.setLocalsLen / Pop.
func (fr *Frame) truncate(n int) {
	fr.slots = fr.slots[:n]
	fr.top = n - 1
}

// box idempotently promotes slot i to a shared cell and returns it.
// push-closure calls this on every local it captures by value (the first
// closure to capture a given slot does the boxing; any sibling closure
// capturing the same slot later gets back the same cell); release-
// upvalues calls it again at scope exit as a backstop so a captured local
// that for some reason wasn't boxed by a capture is still shared
// correctly by the time the scope that owns it unwinds.
func (fr *Frame) box(i int) *cell {
	if c, ok := fr.slots[i].(*cell); ok {
		return c
	}
	c := &cell{v: fr.slots[i]}
	fr.slots[i] = c
	return c
}
