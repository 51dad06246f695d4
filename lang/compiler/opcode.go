package compiler

import "fmt"

// Opcode is one tag of the variable-width instruction set described in
// this package. Most opcodes come in three "families" selected by the operand
// magnitude:.8,.16 and.32 (Width8/16/32); the assembler widens an
// instruction from one family to the next only when an operand no longer
// fits (this package). A handful of opcodes (booleans, float, make-type, nil,
// halt, yield, nop, the composite-* accessors, the string-builtin family)
// never carry an operand wide enough to need a family and so have a
// single representative Opcode value (WidthNone).
type Opcode uint16

// OpWidth identifies which operand-size family an instruction belongs to.
type OpWidth uint8

const (
	Width8 OpWidth = iota
	Width16
	Width32
	WidthNone // opcode has no size family (fixed shape)
)

// Bytes returns the number of bytes an operand of this width family
// occupies (0 for WidthNone).
func (w OpWidth) Bytes() int { return w.bytes() }

func (w OpWidth) bytes() int {
	switch w {
		case Width8:
			return 1
		case Width16:
			return 2
		case Width32:
			return 4
		default:
			return 0
	}
}

func (w OpWidth) suffix() string {
	switch w {
		case Width8:
			return ".8"
		case Width16:
			return ".16"
		case Width32:
			return ".32"
		default:
			return ""
	}
}

// next returns the next wider family, or ok=false if already at.32.
func (w OpWidth) next() (OpWidth, bool) {
	switch w {
		case Width8:
			return Width16, true
		case Width16:
			return Width32, true
		default:
			return w, false
	}
}

// base identifies one mnemonic family named in this package. The concrete
// Opcode value used in the bytecode stream is base.at(width).
type base uint16

const (
	baseNop base = iota
	basePushString
	basePushSymbol
	basePushBooleanFalse
	basePushBooleanTrue
	basePushInteger
	basePushDoubleFloat
	basePushIndex
	basePushUpvalue
	basePushClosure
	basePushVaClosure
	basePushGlobal
	baseSetUpvalue
	baseSetStatic
	baseFuncall
	baseReleaseUpvalues
	baseApply
	baseCcall
	baseJump
	baseBrz
	baseBrnz
	baseMove
	baseNot
	baseMul
	baseDiv
	baseAdd
	baseSub
	baseEqual
	baseLess
	baseGreater
	baseCons
	baseCar
	baseCdr
	baseSetCar
	baseSetCdr
	baseNullp
	baseTypeof
	baseVector
	baseMakeVector
	baseGetVecElt
	baseSetVecElt
	baseMakeType
	baseMakeInstance
	baseCompositeValue
	baseCompositeFunction
	baseSetCompositeValue
	baseSetCompositeFunction
	baseMakeString
	baseConcatenate
	baseSubstring
	baseLength
	baseSymbolString
	baseSymbolId
	basePop
	baseReturn0
	baseReturnN
	baseYield
	baseHalt
	baseNil
	baseCount
)

// opInfo describes one (base, width) instruction: its encoded Opcode
// value, mnemonic, whether its operand is a jump/label offset, and its
// operand shape for the disassembler.
type opInfo struct {
	op Opcode
	mnemonic string
	isJump bool // operand is a signed label offset
	width OpWidth
	family base
	operands []operand
}

// operand describes one argument cell of an instruction, for the
// disassembler's format descriptor (digits/f/s<N>/V<N>, this package).
type operand struct {
	kind operandKind
	// ref is the 1-based index of a prior operand this one depends on
	// (byte-string length for s<N>, vector element count for V<N>).
	ref int
}

type operandKind int

const (
	opFixedWidth operandKind = iota // sized like the instruction's own width family
	opFixed1 // always 1 byte regardless of family (e.g. arity)
	opFixed4 // always 4 bytes regardless of family (e.g. uvcount)
	opFloat8 // IEEE-754 double
	opBytes // s<N>: N bytes, N given by operand #ref
	opVector // V<N>: vector of 4-byte elements, length given by operand #ref
)

// opTable maps (base, width) to its Opcode value and metadata. widthSlot 3
// is used for WidthNone (fixed-shape) entries. Built once in init so that
// Opcode values are stable small integers.
var (
	opTable [baseCount][4]opInfo
	opByValue map[Opcode]opInfo
	nextOpcode Opcode
)

func widthSlot(w OpWidth) OpWidth {
	if w == WidthNone {
		return 3
	}
	return w
}

func reg(b base, w OpWidth, mnemonic string, isJump bool, operands...operand) {
	info := opInfo{op: nextOpcode, mnemonic: mnemonic + w.suffix(), isJump: isJump, width: w, family: b, operands: operands}
	opTable[b][widthSlot(w)] = info
	opByValue[info.op] = info
	nextOpcode++
}

func regFamily(b base, mnemonic string, isJump bool, operandsFor func(w OpWidth) []operand) {
	for _, w := range []OpWidth{Width8, Width16, Width32} {
		reg(b, w, mnemonic, isJump, operandsFor(w)...)
	}
}

func init() {
	opByValue = make(map[Opcode]opInfo)

	reg(baseNop, WidthNone, "nop", false)

	regFamily(basePushString, "string", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opBytes, ref: 1}}
	})
	regFamily(basePushSymbol, "symbol", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixedWidth}, {kind: opBytes, ref: 2}}
	})
	reg(basePushBooleanFalse, WidthNone, "false", false)
	reg(basePushBooleanTrue, WidthNone, "true", false)
	regFamily(basePushInteger, "integer", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}}
	})
	reg(basePushDoubleFloat, WidthNone, "float", false, operand{kind: opFloat8})
	regFamily(basePushIndex, "index", false, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })
	regFamily(basePushUpvalue, "upvalue", false, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })
	// Per this package, push-closure's label field is a signed byte offset
	// relative to the instruction's end, exactly like jump/brz/brnz, even
	// though it is not itself a branch — it has no other way to reference
	// the function body inlined elsewhere in the same flat bytecode
	// stream.
	regFamily(basePushClosure, "closure", true, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}, {kind: opFixed4}, {kind: opVector, ref: 3}}
	})
	regFamily(basePushVaClosure, "vaclosure", true, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}, {kind: opFixed4}, {kind: opVector, ref: 3}}
	})
	reg(basePushGlobal, Width8, "global", false, operand{kind: opFixed1})

	regFamily(baseSetUpvalue, "set-upvalue", false, func(OpWidth) []operand {
			return []operand{{kind: opFixed1}, {kind: opFixedWidth}}
	})
	reg(baseSetStatic, Width8, "set-static", false, operand{kind: opFixed1}, operand{kind: opFixed1})

	regFamily(baseFuncall, "funcall", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}}
	})
	regFamily(baseReleaseUpvalues, "release-upvalues", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opVector, ref: 1}}
	})
	regFamily(baseApply, "apply", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}}
	})
	regFamily(baseCcall, "ccall", false, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })

	regFamily(baseJump, "jump", true, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })
	regFamily(baseBrz, "brz", true, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}}
	})
	regFamily(baseBrnz, "brnz", true, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixed1}}
	})
	regFamily(baseMove, "move", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixedWidth}}
	})

	noOperand := func(OpWidth) []operand { return nil }
	for _, b := range []struct {
		b base
		name string
	}{
		{baseNot, "not"}, {baseMul, "mul"}, {baseDiv, "div"}, {baseAdd, "add"}, {baseSub, "sub"},
		{baseEqual, "equal"}, {baseLess, "less"}, {baseGreater, "greater"}, {baseCons, "cons"},
		{baseCar, "car"}, {baseCdr, "cdr"}, {baseSetCar, "set-car"}, {baseSetCdr, "set-cdr"},
		{baseNullp, "nullp"}, {baseTypeof, "typeof"},
	} {
		regFamily(b.b, b.name, false, noOperand)
	}

	regFamily(baseVector, "vector", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opVector, ref: 1}}
	})
	regFamily(baseMakeVector, "make-vector", false, noOperand)
	regFamily(baseGetVecElt, "get-vec-elt", false, noOperand)
	regFamily(baseSetVecElt, "set-vec-elt", false, noOperand)

	reg(baseMakeType, WidthNone, "make-type", false)
	regFamily(baseMakeInstance, "make-instance", false, func(OpWidth) []operand {
			return []operand{{kind: opFixedWidth}, {kind: opFixedWidth}, {kind: opFixedWidth}}
	})
	reg(baseCompositeValue, WidthNone, "composite-value", false)
	reg(baseCompositeFunction, WidthNone, "composite-function", false)
	reg(baseSetCompositeValue, WidthNone, "set-composite-value", false)
	reg(baseSetCompositeFunction, WidthNone, "set-composite-function", false)

	reg(baseMakeString, WidthNone, "make-string", false)
	reg(baseConcatenate, WidthNone, "concatenate", false)
	reg(baseSubstring, WidthNone, "substring", false)
	reg(baseLength, WidthNone, "length", false)
	reg(baseSymbolString, WidthNone, "symbol-string", false)
	reg(baseSymbolId, WidthNone, "symbol-id", false)

	regFamily(basePop, "pop", false, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })
	reg(baseReturn0, WidthNone, "return.0", false)
	regFamily(baseReturnN, "return", false, func(OpWidth) []operand { return []operand{{kind: opFixedWidth}} })

	reg(baseYield, WidthNone, "yield", false)
	reg(baseHalt, WidthNone, "halt", false)
	reg(baseNil, WidthNone, "nil", false)
}

// at returns the concrete Opcode for base b at width w (WidthNone for
// fixed-shape opcodes).
func (b base) at(w OpWidth) Opcode { return opTable[b][widthSlot(w)].op }

// Mnemonic returns op's disassembler mnemonic, or "" if op is unknown.
func (op Opcode) Mnemonic() string {
	if info, ok := opByValue[op]; ok {
		return info.mnemonic
	}
	return ""
}

func (op Opcode) String() string {
	if m := op.Mnemonic(); m != "" {
		return m
	}
	return fmt.Sprintf("illegal(%d)", uint16(op))
}

func (op Opcode) info() (opInfo, bool) {
	info, ok := opByValue[op]
	return info, ok
}

func (op Opcode) isJump() bool {
	info, ok := op.info()
	return ok && info.isJump
}

// IsJump reports whether op's leading operand is a signed label offset,
// for callers outside this package (e.g. lang/machine) that need to
// know without decoding the whole instruction shape.
func (op Opcode) IsJump() bool { return op.isJump() }

// Width returns op's operand-size family.
func (op Opcode) Width() OpWidth {
	info, _ := op.info()
	return info.width
}

// Family identifies the operation an Opcode performs, independent of its
// operand-size family — the dispatch key lang/machine's interpreter
// switches on, since the base enum itself is internal to this package.
type Family int

const (
	FamilyNop Family = iota
	FamilyPushString
	FamilyPushSymbol
	FamilyPushBooleanFalse
	FamilyPushBooleanTrue
	FamilyPushInteger
	FamilyPushDoubleFloat
	FamilyPushIndex
	FamilyPushUpvalue
	FamilyPushClosure
	FamilyPushVaClosure
	FamilyPushGlobal
	FamilySetUpvalue
	FamilySetStatic
	FamilyFuncall
	FamilyReleaseUpvalues
	FamilyApply
	FamilyCcall
	FamilyJump
	FamilyBrz
	FamilyBrnz
	FamilyMove
	FamilyNot
	FamilyMul
	FamilyDiv
	FamilyAdd
	FamilySub
	FamilyEqual
	FamilyLess
	FamilyGreater
	FamilyCons
	FamilyCar
	FamilyCdr
	FamilySetCar
	FamilySetCdr
	FamilyNullp
	FamilyTypeof
	FamilyVector
	FamilyMakeVector
	FamilyGetVecElt
	FamilySetVecElt
	FamilyMakeType
	FamilyMakeInstance
	FamilyCompositeValue
	FamilyCompositeFunction
	FamilySetCompositeValue
	FamilySetCompositeFunction
	FamilyMakeString
	FamilyConcatenate
	FamilySubstring
	FamilyLength
	FamilySymbolString
	FamilySymbolId
	FamilyPop
	FamilyReturn0
	FamilyReturnN
	FamilyYield
	FamilyHalt
	FamilyNil
)

// Family reports which operation op performs,
// independent of its operand-size family.
func (op Opcode) Family() Family {
	info, _ := op.info()
	return Family(info.family)
}
