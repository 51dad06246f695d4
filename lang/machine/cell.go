package machine

import "github.com/mna/lacewing/lang/object"

// cell boxes a local slot an inner closure has captured so that the outer frame and every closure
// that closed over the slot observe the same mutable storage. A cell
// never escapes to a lisp-visible value; it only ever lives inside a
// Frame's slots or a Closure's Upvalues, so it is not itself reachable
// through the object.Value bridge despite satisfying the interface.
type cell struct {
	object.Sealed
	v object.Value
}

func (*cell) Type() string { return "cell" }
