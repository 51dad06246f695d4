package compiler

import (
	"fmt"
	"math"
)

// fitsSigned reports whether v can be represented in a two's-complement
// field of w.bytes() bytes.
func fitsSigned(v int64, w OpWidth) bool {
	bits := uint(w.bytes()) * 8
	if bits == 0 || bits >= 64 {
		return true
	}
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v >= lo && v <= hi
}

// fitsUnsigned reports whether v can be represented in an unsigned field
// of w.bytes() bytes.
func fitsUnsigned(v int64, w OpWidth) bool {
	bits := uint(w.bytes()) * 8
	if v < 0 {
		return false
	}
	if bits >= 64 {
		return true
	}
	hi := (int64(1) << bits) - 1
	return v <= hi
}

// putUnsigned appends v to buf as n little-endian bytes.
func putUnsigned(buf []byte, v int64, w OpWidth) []byte {
	n := w.bytes()
	for i := 0; i < n; i++ {
		buf = append(buf, byte(v>>(uint(i)*8)))
	}
	return buf
}

// vectorDriven reports whether b is one of the two families whose width is
// driven by an element count rather than by Args[0] (releaseUpvalues and
// vector both encode their element list as a trailing run of Args with no
// leading count argument of their own).
func vectorDriven(b base) bool { return b == baseReleaseUpvalues || b == baseVector }

// widthDriver returns the value that determines whether insn needs a
// wider encoding at width w, and whether that value must be checked as
// signed.
func widthDriver(insn Insn, w OpWidth, labelOffset map[LabelID]int, selfOffset, selfSize int) (v int64, signed bool) {
	if insn.Base.isJumpFamily() {
		target := labelOffset[insn.Args[0].Label]
		return int64(target - (selfOffset + selfSize)), true
	}
	if vectorDriven(insn.Base) {
		return int64(len(insn.Args)), false
	}
	if len(insn.Args) == 0 {
		return 0, false
	}
	a := insn.Args[0]
	return a.Int, a.Kind == ArgInt
}

func (b base) isJumpFamily() bool {
	return b == baseJump || b == baseBrz || b == baseBrnz || b == basePushClosure || b == basePushVaClosure
}

func (b base) hasFamily() bool { return opTable[b][0].mnemonic != "" }

// instrSize returns the encoded byte size of insn at width w: 2 bytes of
// opcode plus whatever its operands need.
func instrSize(insn Insn, w OpWidth) int {
	size := 2 // Opcode, uint16
	switch insn.Base {
		case basePushString:
			size += w.bytes() + len(insn.Args[0].Bytes)
		case basePushSymbol:
			size += w.bytes() + w.bytes() + len(insn.Args[1].Bytes)
		case basePushDoubleFloat:
			size += 8
		case basePushClosure, basePushVaClosure:
			size += w.bytes() + 1 + 4 + 4*(len(insn.Args)-2)
		case basePushGlobal:
			size += 1
		case baseSetUpvalue:
			size += 1 + w.bytes()
		case baseSetStatic:
			size += 1 + 1
		case baseFuncall, baseApply:
			size += w.bytes() + 1
		case baseReleaseUpvalues:
			size += w.bytes() + 4*len(insn.Args)
		case baseVector:
			size += w.bytes() + 4*len(insn.Args)
		case baseJump:
			size += w.bytes()
		case baseBrz, baseBrnz:
			size += w.bytes() + 1
		case baseMove:
			size += 2 * w.bytes()
		case baseMakeInstance:
			size += 3 * w.bytes()
		case basePop, baseReturnN:
			size += w.bytes()
		case basePushBooleanFalse, basePushBooleanTrue, baseNop, baseMakeVector, baseGetVecElt, baseSetVecElt,
			baseMakeType, baseCompositeValue, baseCompositeFunction, baseSetCompositeValue, baseSetCompositeFunction,
			baseMakeString, baseConcatenate, baseSubstring, baseLength, baseSymbolString, baseSymbolId,
			baseReturn0, baseYield, baseHalt, baseNil, baseNot, baseMul, baseDiv, baseAdd, baseSub, baseEqual,
			baseLess, baseGreater, baseCons, baseCar, baseCdr, baseSetCar, baseSetCdr, baseNullp, baseTypeof,
			baseCcall, basePushIndex, basePushUpvalue:
			if insn.Base == baseCcall || insn.Base == basePushIndex || insn.Base == basePushUpvalue {
			size += w.bytes()
		}
		default:
			if len(insn.Args) > 0 {
			size += w.bytes()
		}
	}
	return size
}

// layout computes each instruction's byte offset and each label's target
// offset given a tentative width assignment, without writing any bytes.
func layout(insns []Insn, widths []OpWidth) (offsets []int, labelOffset map[LabelID]int, total int) {
	offsets = make([]int, len(insns))
	labelOffset = make(map[LabelID]int)
	pos := 0
	for i, insn := range insns {
		offsets[i] = pos
		if insn.IsLabel {
			labelOffset[insn.Label] = pos
			continue
		}
		pos += instrSize(insn, widths[i])
	}
	total = pos
	return offsets, labelOffset, total
}

// Assemble runs the fixed-point operand-width widening loop of this package
// and emits the resulting flat byte stream. Widths only ever grow, so the
// loop is guaranteed to terminate: it stops the moment a full pass over
// every instruction finds nothing left that needs to widen.
func Assemble(insns []Insn) ([]byte, error) {
	widths := make([]OpWidth, len(insns))
	for i, insn := range insns {
		if !insn.IsLabel && insn.Base.hasFamily() {
			widths[i] = Width8
		} else {
			widths[i] = WidthNone
		}
	}

	for {
		offsets, labelOffset, _ := layout(insns, widths)
		changed := false
		for i, insn := range insns {
			if insn.IsLabel || !insn.Base.hasFamily() {
				continue
			}
			w := widths[i]
			if w == Width32 {
				continue
			}
			v, signed := widthDriver(insn, w, labelOffset, offsets[i], instrSize(insn, w))
			var fits bool
			if signed {
				fits = fitsSigned(v, w)
			} else {
				fits = fitsUnsigned(v, w)
			}
			if !fits {
				nw, _ := w.next()
				widths[i] = nw
				changed = true
			}
		}
		if !changed {
			return encode(insns, widths, offsets, labelOffset)
		}
	}
}

func encode(insns []Insn, widths []OpWidth, offsets []int, labelOffset map[LabelID]int) ([]byte, error) {
	var out []byte
	for i, insn := range insns {
		if insn.IsLabel {
			continue
		}
		w := widths[i]
		op := insn.Base.at(w)
		out = append(out, byte(op), byte(op>>8))

		switch insn.Base {
			case baseNop, basePushBooleanFalse, basePushBooleanTrue, baseMakeType, baseCompositeValue,
				baseCompositeFunction, baseSetCompositeValue, baseSetCompositeFunction, baseMakeString,
				baseConcatenate, baseSubstring, baseLength, baseSymbolString, baseSymbolId, baseReturn0,
				baseYield, baseHalt, baseNil, baseMakeVector, baseGetVecElt, baseSetVecElt,
				baseNot, baseMul, baseDiv, baseAdd, baseSub, baseEqual, baseLess, baseGreater,
				baseCons, baseCar, baseCdr, baseSetCar, baseSetCdr, baseNullp, baseTypeof:
				// no operand

			case basePushString:
				out = putUnsigned(out, int64(len(insn.Args[0].Bytes)), w)
				out = append(out, insn.Args[0].Bytes...)

			case basePushSymbol:
				out = putUnsigned(out, insn.Args[0].Int, w)
				out = putUnsigned(out, int64(len(insn.Args[1].Bytes)), w)
				out = append(out, insn.Args[1].Bytes...)

			case basePushDoubleFloat:
				bits := math.Float64bits(insn.Args[0].Float)
				for shift := 0; shift <= 56; shift += 8 {
				out = append(out, byte(bits>>uint(shift)))
			}

			case basePushInteger, basePushIndex, basePushUpvalue:
				out = putUnsigned(out, insn.Args[0].Int, w)

			case basePushClosure, basePushVaClosure:
				target := labelOffset[insn.Args[0].Label]
				offset := int64(target - (offsets[i] + instrSize(insn, w)))
				out = putUnsigned(out, offset&widthMask(w), w)
				out = putUnsigned(out, insn.Args[1].Int, Width8)
				uvs := insn.Args[2:]
				out = putUnsigned(out, int64(len(uvs)), Width32)
				for _, uv := range uvs {
				out = putUnsigned(out, uv.Int, Width32)
			}

			case basePushGlobal:
				out = putUnsigned(out, insn.Args[0].Int, Width8)

			case baseSetUpvalue:
				out = putUnsigned(out, insn.Args[0].Int, Width8)
				out = putUnsigned(out, insn.Args[1].Int, w)

			case baseSetStatic:
				out = putUnsigned(out, insn.Args[0].Int, Width8)
				out = putUnsigned(out, insn.Args[1].Int, Width8)

			case baseFuncall, baseApply:
				out = putUnsigned(out, insn.Args[0].Int, w)
				out = putUnsigned(out, insn.Args[1].Int, Width8)

			case baseReleaseUpvalues:
				out = putUnsigned(out, int64(len(insn.Args)), w)
				for _, a := range insn.Args {
				out = putUnsigned(out, a.Int, Width32)
			}

			case baseCcall:
				out = putUnsigned(out, insn.Args[0].Int, w)

			case baseJump:
				target := labelOffset[insn.Args[0].Label]
				offset := int64(target - (offsets[i] + instrSize(insn, w)))
				out = putUnsigned(out, offset&widthMask(w), w)

			case baseBrz, baseBrnz:
				target := labelOffset[insn.Args[0].Label]
				offset := int64(target - (offsets[i] + instrSize(insn, w)))
				out = putUnsigned(out, offset&widthMask(w), w)
				out = putUnsigned(out, insn.Args[1].Int, Width8)

			case baseMove:
				out = putUnsigned(out, insn.Args[0].Int, w)
				out = putUnsigned(out, insn.Args[1].Int, w)

			case baseVector:
				out = putUnsigned(out, int64(len(insn.Args)), w)
				for _, a := range insn.Args {
				out = putUnsigned(out, a.Int, Width32)
			}

			case baseMakeInstance:
				out = putUnsigned(out, insn.Args[0].Int, w)
				out = putUnsigned(out, insn.Args[1].Int, w)
				out = putUnsigned(out, insn.Args[2].Int, w)

			case basePop, baseReturnN:
				out = putUnsigned(out, insn.Args[0].Int, w)

			default:
				return nil, fmt.Errorf("compiler: assemble: unhandled opcode family %v", insn.Base)
		}
	}
	return out, nil
}

func widthMask(w OpWidth) int64 {
	bits := uint(w.bytes()) * 8
	if bits >= 64 {
		return -1
	}
	return (int64(1) << bits) - 1
}
