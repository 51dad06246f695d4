package compiler

import "github.com/mna/lacewing/lang/token"

// ArgKind identifies the shape of one Insn argument cell.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgLocal
	ArgLabel
	ArgBytes
	ArgFloat
)

// Arg is one argument cell of an Insn.
type Arg struct {
	Kind ArgKind
	Int int64 // ArgInt, ArgLocal (slot or count), and small fixed fields (arity, symbol id)
	Label LabelID // ArgLabel
	Bytes []byte // ArgBytes
	Float float64 // ArgFloat
}

func intArg(v int64) Arg { return Arg{Kind: ArgInt, Int: v} }
func localArg(v int) Arg { return Arg{Kind: ArgLocal, Int: int64(v)} }
func labelArg(id LabelID) Arg { return Arg{Kind: ArgLabel, Label: id} }
func bytesArg(b []byte) Arg { return Arg{Kind: ArgBytes, Bytes: b} }
func floatArg(f float64) Arg { return Arg{Kind: ArgFloat, Float: f} }

func vectorArg(slots []int) []Arg {
	a := make([]Arg, len(slots))
	for i, s := range slots {
		a[i] = localArg(s)
	}
	return a
}

// Insn is one entry of a sub-compile-state's assembly buffer: either a
// real instruction (Base + Args) or a label-definition pseudo-instruction
// (IsLabel), which the assembler resolves to a byte offset and removes.
type Insn struct {
	IsLabel bool
	Label LabelID

	Base base
	Args []Arg
	Pos token.Pos
}
