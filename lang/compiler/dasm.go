package compiler

import (
	"fmt"
	"math"
	"strings"
)

// Instruction is one decoded entry of a Disassemble pass: its offset in
// the stream, its opcode, and its operands already rendered the way the
// this package format descriptor would (digits printed as plain integers,
// s<N> as a quoted byte string, V<N> as a bracketed list).
type Instruction struct {
	Offset int
	Op Opcode
	Operands []string
}

func (ins Instruction) String() string {
	if len(ins.Operands) == 0 {
		return ins.Op.String()
	}
	return fmt.Sprintf("%s %s", ins.Op.String(), strings.Join(ins.Operands, " "))
}

// getUnsigned reads n little-endian bytes starting at off.
func getUnsigned(code []byte, off, n int) (int64, error) {
	if off+n > len(code) {
		return 0, fmt.Errorf("compiler: disassemble: truncated operand at offset %d", off)
	}
	var v int64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | int64(code[off+i])
	}
	return v, nil
}

func getSigned(code []byte, off, n int) (int64, error) {
	v, err := getUnsigned(code, off, n)
	if err != nil {
		return 0, err
	}
	bits := uint(n) * 8
	if bits < 64 && v&(int64(1)<<(bits-1)) != 0 {
		v -= int64(1) << bits
	}
	return v, nil
}

// Disassemble decodes a flat bytecode stream into a sequence of
// Instructions. It stops and returns an error at the first
// unknown opcode value or truncated operand, rather than guessing.
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	pos := 0
	for pos < len(code) {
		start := pos
		if pos+2 > len(code) {
			return nil, fmt.Errorf("compiler: disassemble: truncated opcode at offset %d", pos)
		}
		op := Opcode(uint16(code[pos]) | uint16(code[pos+1])<<8)
		pos += 2
		info, ok := op.info()
		if !ok {
			return nil, fmt.Errorf("compiler: disassemble: illegal opcode %d at offset %d", op, start)
		}

		w := widthOf(op)
		var operands []string
		// values, by 1-based operand position, for opBytes/opVector ref
		// lookups.
		values := make([]int64, 0, len(info.operands))

		for idx, opd := range info.operands {
			switch opd.kind {
				case opFixedWidth:
					v, err := getUnsigned(code, pos, w.bytes())
					if err != nil {
					return nil, err
				}
					if info.isJump {
					v, err = getSigned(code, pos, w.bytes())
					if err != nil {
						return nil, err
					}
				}
					pos += w.bytes()
					values = append(values, v)
					operands = append(operands, fmt.Sprintf("%d", v))

				case opFixed1:
					v, err := getUnsigned(code, pos, 1)
					if err != nil {
					return nil, err
				}
					pos += 1
					values = append(values, v)
					operands = append(operands, fmt.Sprintf("%d", v))

				case opFixed4:
					v, err := getUnsigned(code, pos, 4)
					if err != nil {
					return nil, err
				}
					pos += 4
					values = append(values, v)
					operands = append(operands, fmt.Sprintf("%d", v))

				case opFloat8:
					bits, err := getUnsigned(code, pos, 8)
					if err != nil {
					return nil, err
				}
					pos += 8
					f := math.Float64frombits(uint64(bits))
					values = append(values, 0)
					operands = append(operands, fmt.Sprintf("%g", f))

				case opBytes:
					n := int(values[opd.ref-1])
					if pos+n > len(code) {
					return nil, fmt.Errorf("compiler: disassemble: truncated string at offset %d", pos)
				}
					s := code[pos : pos+n]
					pos += n
					values = append(values, 0)
					operands = append(operands, fmt.Sprintf("%q", s))

				case opVector:
					n := int(values[opd.ref-1])
					elems := make([]string, n)
					for i := 0; i < n; i++ {
					v, err := getUnsigned(code, pos, 4)
					if err != nil {
						return nil, err
					}
					pos += 4
					elems[i] = fmt.Sprintf("%d", v)
				}
					values = append(values, 0)
					operands = append(operands, "["+strings.Join(elems, " ")+"]")

				default:
					_ = idx
			}
		}

		out = append(out, Instruction{Offset: start, Op: op, Operands: operands})
	}
	return out, nil
}

// widthOf recovers which family (Width8/16/32, or WidthNone) op belongs
// to.
func widthOf(op Opcode) OpWidth {
	info, _ := op.info()
	return info.width
}
