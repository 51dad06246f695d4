package compiler

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dasm renders code as human-readable assembly text, one instruction per
// line, the mnemonic-and-operand format Disassemble/Instruction.String
// already produce. Asm parses that exact format back into bytecode, so
// Asm(Dasm(code)) reproduces code byte for byte — a textual round trip
// for inspecting or hand-editing a compiled program without going back
// through the reader and compiler.
func Dasm(code []byte) ([]byte, error) {
	insns, err := Disassemble(code)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, ins := range insns {
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

var mnemonicToOpcode map[string]Opcode

func init() {
	mnemonicToOpcode = make(map[string]Opcode, len(opByValue))
	for op, info := range opByValue {
		mnemonicToOpcode[info.mnemonic] = op
	}
}

// Asm assembles text (in the format Dasm produces) back into a flat
// bytecode stream. Blank lines are ignored; everything else must be a
// single instruction: a mnemonic optionally followed by its operands in
// the order Disassemble printed them.
func Asm(text []byte) ([]byte, error) {
	var out []byte
	sc := bufio.NewScanner(strings.NewReader(string(text)))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields, err := splitInstructionLine(line)
		if err != nil {
			return nil, fmt.Errorf("compiler: asm: line %d: %w", lineNo, err)
		}
		mnemonic := fields[0]
		op, ok := mnemonicToOpcode[mnemonic]
		if !ok {
			return nil, fmt.Errorf("compiler: asm: line %d: unknown mnemonic %q", lineNo, mnemonic)
		}
		info, _ := op.info()
		w := info.width

		out = append(out, byte(uint16(op)), byte(uint16(op)>>8))
		operands := fields[1:]
		values := make([]int64, 0, len(info.operands))
		oi := 0
		for _, opd := range info.operands {
			if oi >= len(operands) {
				return nil, fmt.Errorf("compiler: asm: line %d: %s: missing operand %d", lineNo, mnemonic, oi+1)
			}
			tok := operands[oi]
			oi++
			switch opd.kind {
				case opFixedWidth, opFixed1, opFixed4:
					n := w.bytes()
					if opd.kind == opFixed1 {
					n = 1
				} else if opd.kind == opFixed4 {
					n = 4
				}
					v, err := strconv.ParseInt(tok, 10, 64)
					if err != nil {
					return nil, fmt.Errorf("compiler: asm: line %d: %s: bad integer operand %q: %w", lineNo, mnemonic, tok, err)
				}
					values = append(values, v)
					out = putUnsigned(out, v, widthFor(n))

				case opFloat8:
					f, err := strconv.ParseFloat(tok, 64)
					if err != nil {
					return nil, fmt.Errorf("compiler: asm: line %d: %s: bad float operand %q: %w", lineNo, mnemonic, tok, err)
				}
					values = append(values, 0)
					bits := math.Float64bits(f)
					for i := 0; i < 8; i++ {
					out = append(out, byte(bits>>(uint(i)*8)))
				}

				case opBytes:
					s, err := strconv.Unquote(tok)
					if err != nil {
					return nil, fmt.Errorf("compiler: asm: line %d: %s: bad string operand %q: %w", lineNo, mnemonic, tok, err)
				}
					values = append(values, 0)
					out = append(out, []byte(s)...)

				case opVector:
					n := int(values[opd.ref-1])
					elems, err := parseVector(tok, n)
					if err != nil {
					return nil, fmt.Errorf("compiler: asm: line %d: %s: %w", lineNo, mnemonic, err)
				}
					values = append(values, 0)
					for _, e := range elems {
					out = putUnsigned(out, e, Width32)
				}
			}
		}
		if oi != len(operands) {
			return nil, fmt.Errorf("compiler: asm: line %d: %s: too many operands", lineNo, mnemonic)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("compiler: asm: %w", err)
	}
	return out, nil
}

// widthFor maps a byte count back to an OpWidth, for reusing putUnsigned
// with fixed-size fields (opFixed1/opFixed4) that don't follow the
// instruction's own operand-width family.
func widthFor(n int) OpWidth {
	switch n {
		case 1:
			return Width8
		case 2:
			return Width16
		case 4:
			return Width32
		default:
			return WidthNone
	}
}

// splitInstructionLine splits a line into its mnemonic and operand
// tokens, treating a "[...]" vector operand and a quoted string operand
// as single tokens even though they may contain spaces.
func splitInstructionLine(line string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		switch line[i] {
			case '[':
				depth := 0
				for i < len(line) {
				if line[i] == '[' {
					depth++
				} else if line[i] == ']' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
				i++
			}
				if depth != 0 {
				return nil, fmt.Errorf("unterminated vector operand")
			}
			case '"':
				i++
				for i < len(line) && line[i] != '"' {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
				i++
			}
				if i >= len(line) {
				return nil, fmt.Errorf("unterminated string operand")
			}
				i++
			default:
				for i < len(line) && line[i] != ' ' {
				i++
			}
		}
		fields = append(fields, line[start:i])
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty instruction")
	}
	return fields, nil
}

func parseVector(tok string, n int) ([]int64, error) {
	if len(tok) < 2 || tok[0] != '[' || tok[len(tok)-1] != ']' {
		return nil, fmt.Errorf("bad vector operand %q", tok)
	}
	inner := strings.TrimSpace(tok[1 : len(tok)-1])
	var elems []int64
	if inner != "" {
		for _, f := range strings.Fields(inner) {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad vector element %q: %w", f, err)
			}
			elems = append(elems, v)
		}
	}
	if len(elems) != n {
		return nil, fmt.Errorf("vector operand %q: want %d elements, got %d", tok, n, len(elems))
	}
	return elems, nil
}
