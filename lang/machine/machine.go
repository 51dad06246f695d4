package machine

import (
	"fmt"
	"math"

	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/object"
	"github.com/mna/lacewing/lang/symbol"
)

// readU reads n little-endian bytes starting at pos.
func readU(code []byte, pos, n int) (int64, error) {
	if pos+n > len(code) {
		return 0, fmt.Errorf("machine: truncated operand at offset %d", pos)
	}
	var v int64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | int64(code[pos+i])
	}
	return v, nil
}

// readS reads n little-endian bytes and sign-extends them. Only jump-style
// offsets are marked signed in its operand table, but pushInteger's
// value must also round-trip negative literals correctly: the assembler
// picks pushInteger's operand width by whether the value fits signed
// (asm.go's widthDriver), so a literal like -5 is stored as the raw
// two's-complement truncation of an int64, not as an unsigned magnitude.
// The disassembler intentionally renders that same field as an unsigned
// decimal (it has no notion of the source literal's sign), but the
// interpreter must sign-extend it to recover the value the program meant.
func readS(code []byte, pos, n int) (int64, error) {
	v, err := readU(code, pos, n)
	if err != nil {
		return 0, err
	}
	bits := uint(n) * 8
	if bits < 64 && v&(int64(1)<<(bits-1)) != 0 {
		v -= int64(1) << bits
	}
	return v, nil
}

func isFalsy(v object.Value) bool {
	if b, ok := v.(object.Bool); ok {
		return !bool(b)
	}
	return object.IsNil(v)
}

// run executes fr.code starting at fr.pc until a return/halt instruction
// ends the frame.
func (rt *Thread) run(fr *Frame) (object.Value, error) {
	for {
		if rt.maxSteps > 0 {
			rt.steps++
			if rt.steps > rt.maxSteps {
				return nil, fmt.Errorf("machine: exceeded %d steps", rt.maxSteps)
			}
		}
		if rt.cancelled.Load() {
			return nil, fmt.Errorf("machine: thread %s cancelled", rt.Name)
		}
		select {
			case <-rt.ctx.Done():
				return nil, rt.ctx.Err()
			default:
		}

		if fr.pc+2 > len(fr.code) {
			return nil, fmt.Errorf("machine: truncated opcode at offset %d", fr.pc)
		}
		op := compiler.Opcode(uint16(fr.code[fr.pc]) | uint16(fr.code[fr.pc+1])<<8)
		fr.pc += 2
		w := op.Width().Bytes()

		switch op.Family() {
			case compiler.FamilyNop:
				// no-op

			case compiler.FamilyPushString:
				n, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				s := fr.code[fr.pc : fr.pc+int(n)]
				fr.pc += int(n)
				fr.push(object.NewStr(s))

			case compiler.FamilyPushSymbol:
				id, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				n, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				name := string(fr.code[fr.pc : fr.pc+int(n)])
				fr.pc += int(n)
				fr.push(object.Symbol{ID: symbol.ID(id), Name: name})

			case compiler.FamilyPushBooleanFalse:
				fr.push(object.Bool(false))
			case compiler.FamilyPushBooleanTrue:
				fr.push(object.Bool(true))

			case compiler.FamilyPushInteger:
				v, err := readS(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fr.push(object.Int(v))

			case compiler.FamilyPushDoubleFloat:
				bits, err := readU(fr.code, fr.pc, 8)
				if err != nil {
				return nil, err
			}
				fr.pc += 8
				fr.push(object.Float(math.Float64frombits(uint64(bits))))

			case compiler.FamilyPushIndex:
				slot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fr.push(fr.get(int(slot)))

			case compiler.FamilyPushUpvalue:
				uv, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				if fr.fn == nil || int(uv) >= len(fr.fn.Upvalues) {
				return nil, fmt.Errorf("machine: push-upvalue: index %d out of range", uv)
			}
				fr.push(fr.fn.Upvalues[uv].v)

			case compiler.FamilyPushClosure, compiler.FamilyPushVaClosure:
				clo, err := rt.decodeClosure(fr, op, w)
				if err != nil {
				return nil, err
			}
				fr.push(clo)

			case compiler.FamilyPushGlobal:
				id, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				v, ok := rt.globals[symbol.ID(id)]
				if !ok {
				return nil, fmt.Errorf("machine: unbound global %q", rt.symbolName(symbol.ID(id)))
			}
				fr.push(v)

			case compiler.FamilySetUpvalue:
				uv, err := readU(fr.code, fr.pc, 1)
				if err != nil {
				return nil, err
			}
				fr.pc++
				valSlot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				if fr.fn == nil || int(uv) >= len(fr.fn.Upvalues) {
				return nil, fmt.Errorf("machine: set-upvalue: index %d out of range", uv)
			}
				fr.fn.Upvalues[uv].v = fr.get(int(valSlot))

			case compiler.FamilySetStatic:
				slot, err := readU(fr.code, fr.pc, 1)
				if err != nil {
				return nil, err
			}
				fr.pc++
				id, err := readU(fr.code, fr.pc, 1)
				if err != nil {
				return nil, err
			}
				fr.pc++
				rt.globals[symbol.ID(id)] = fr.get(int(slot))

			case compiler.FamilyFuncall, compiler.FamilyApply:
				fnSlot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				argc, err := readU(fr.code, fr.pc, 1)
				if err != nil {
				return nil, err
			}
				fr.pc++
				result, err := rt.callValue(fr.get(int(fnSlot)), collectArgs(fr, int(fnSlot), int(argc)))
				if err != nil {
				return nil, err
			}
				fr.truncate(int(fnSlot))
				fr.push(result)

			case compiler.FamilyReleaseUpvalues:
				count, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				for i := int64(0); i < count; i++ {
				slot, err := readU(fr.code, fr.pc, 4)
				if err != nil {
					return nil, err
				}
				fr.pc += 4
				fr.box(int(slot))
			}

			case compiler.FamilyCcall:
				id, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				v, ok := rt.globals[symbol.ID(id)]
				if !ok {
				return nil, fmt.Errorf("machine: ccall: unbound native %q", rt.symbolName(symbol.ID(id)))
			}
				native, ok := v.(*NativeFunc)
				if !ok {
				return nil, fmt.Errorf("machine: ccall: %q is not a native function", rt.symbolName(symbol.ID(id)))
			}
				base := len(fr.slots) - native.Arity
				if base < 0 {
				return nil, fmt.Errorf("machine: ccall: %q: stack underflow", native.Name)
			}
				args := make([]object.Value, native.Arity)
				for i := range args {
				args[i] = fr.get(base + i)
			}
				if _, err := native.Fn(args); err != nil {
				return nil, err
			}
				fr.truncate(base)

			case compiler.FamilyJump:
				offset, err := readS(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fr.pc += int(offset)

			case compiler.FamilyBrz, compiler.FamilyBrnz:
				offset, err := readS(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				slot, err := readU(fr.code, fr.pc, 1)
				if err != nil {
				return nil, err
			}
				fr.pc++
				cond := isFalsy(fr.get(int(slot)))
				if op.Family() == compiler.FamilyBrnz {
				cond = !cond
			}
				if cond {
				fr.pc += int(offset)
			}

			case compiler.FamilyMove:
				dst, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				src, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fr.set(int(dst), fr.get(int(src)))

			case compiler.FamilyNot:
				fr.set(fr.top, object.Bool(isFalsy(fr.get(fr.top))))

			case compiler.FamilyMul, compiler.FamilyDiv, compiler.FamilyAdd, compiler.FamilySub:
				right := fr.get(fr.top)
				left := fr.get(fr.top - 1)
				result, err := arith(op.Family(), left, right)
				if err != nil {
				return nil, err
			}
				fr.truncate(fr.top)
				fr.set(fr.top, result)

			case compiler.FamilyEqual, compiler.FamilyLess, compiler.FamilyGreater:
				right := fr.get(fr.top)
				left := fr.get(fr.top - 1)
				result, err := compare(op.Family(), left, right)
				if err != nil {
				return nil, err
			}
				fr.truncate(fr.top)
				fr.set(fr.top, result)

			case compiler.FamilyCons:
				cdr := fr.get(fr.top)
				car := fr.get(fr.top - 1)
				fr.truncate(fr.top)
				fr.set(fr.top, &object.Cons{Car: car, Cdr: cdr})

			case compiler.FamilyCar:
				c, ok := fr.get(fr.top).(*object.Cons)
				if !ok {
				return nil, fmt.Errorf("machine: car: not a cons")
			}
				fr.set(fr.top, c.Car)

			case compiler.FamilyCdr:
				c, ok := fr.get(fr.top).(*object.Cons)
				if !ok {
				return nil, fmt.Errorf("machine: cdr: not a cons")
			}
				fr.set(fr.top, c.Cdr)

			case compiler.FamilySetCar:
				v := fr.get(fr.top)
				c, ok := fr.get(fr.top - 1).(*object.Cons)
				if !ok {
				return nil, fmt.Errorf("machine: set-car!: not a cons")
			}
				c.Car = v
				fr.truncate(fr.top)
				fr.set(fr.top, c)

			case compiler.FamilySetCdr:
				v := fr.get(fr.top)
				c, ok := fr.get(fr.top - 1).(*object.Cons)
				if !ok {
				return nil, fmt.Errorf("machine: set-cdr!: not a cons")
			}
				c.Cdr = v
				fr.truncate(fr.top)
				fr.set(fr.top, c)

			case compiler.FamilyNullp:
				fr.set(fr.top, object.Bool(object.IsNil(fr.get(fr.top))))

			case compiler.FamilyTypeof:
				name := fr.get(fr.top).Type()
				var id symbol.ID
				if rt.Symbols != nil {
				id = rt.Symbols.Intern(name)
			}
				fr.set(fr.top, object.Symbol{ID: id, Name: name})

			case compiler.FamilyVector:
				count, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				elems := make([]object.Value, count)
				for i := int64(0); i < count; i++ {
				slot, err := readU(fr.code, fr.pc, 4)
				if err != nil {
					return nil, err
				}
				fr.pc += 4
				elems[i] = fr.get(int(slot))
			}
				fr.push(&Vector{Elems: elems})

			case compiler.FamilyMakeVector:
				n, ok := fr.get(fr.top).(object.Int)
				if !ok {
				return nil, fmt.Errorf("machine: make-vector: size must be an integer")
			}
				elems := make([]object.Value, n)
				for i := range elems {
				elems[i] = object.Nil
			}
				fr.set(fr.top, &Vector{Elems: elems})

			case compiler.FamilyGetVecElt:
				idx, ok := fr.get(fr.top).(object.Int)
				if !ok {
				return nil, fmt.Errorf("machine: get-vec-elt: index must be an integer")
			}
				vec, ok := fr.get(fr.top - 1).(*Vector)
				if !ok {
				return nil, fmt.Errorf("machine: get-vec-elt: not a vector")
			}
				if idx < 0 || int(idx) >= len(vec.Elems) {
				return nil, fmt.Errorf("machine: get-vec-elt: index %d out of range", idx)
			}
				fr.truncate(fr.top)
				fr.set(fr.top, vec.Elems[idx])

			case compiler.FamilySetVecElt:
				val := fr.get(fr.top)
				idx, ok := fr.get(fr.top - 1).(object.Int)
				if !ok {
				return nil, fmt.Errorf("machine: set-vec-elt: index must be an integer")
			}
				vec, ok := fr.get(fr.top - 2).(*Vector)
				if !ok {
				return nil, fmt.Errorf("machine: set-vec-elt: not a vector")
			}
				if idx < 0 || int(idx) >= len(vec.Elems) {
				return nil, fmt.Errorf("machine: set-vec-elt: index %d out of range", idx)
			}
				vec.Elems[idx] = val
				fr.truncate(fr.top - 1)
				fr.set(fr.top, vec)

			case compiler.FamilyMakeType:
				rt.typeSeq++
				fr.push(&TypeValue{ID: rt.typeSeq})

			case compiler.FamilyMakeInstance:
				typeSlot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				valSlot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fnSlot, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				typ, ok := fr.get(int(typeSlot)).(*TypeValue)
				if !ok {
				return nil, fmt.Errorf("machine: make-instance: not a type")
			}
				fr.push(&Instance{Of: typ, Value: fr.get(int(valSlot)), Function: fr.get(int(fnSlot))})

			case compiler.FamilyCompositeValue:
				inst, ok := fr.get(fr.top).(*Instance)
				if !ok {
				return nil, fmt.Errorf("machine: composite-value: not an instance")
			}
				fr.set(fr.top, inst.Value)

			case compiler.FamilyCompositeFunction:
				inst, ok := fr.get(fr.top).(*Instance)
				if !ok {
				return nil, fmt.Errorf("machine: composite-function: not an instance")
			}
				fr.set(fr.top, inst.Function)

			case compiler.FamilySetCompositeValue:
				val := fr.get(fr.top)
				inst, ok := fr.get(fr.top - 1).(*Instance)
				if !ok {
				return nil, fmt.Errorf("machine: set-composite-value: not an instance")
			}
				inst.Value = val
				fr.truncate(fr.top)
				fr.set(fr.top, inst)

			case compiler.FamilySetCompositeFunction:
				val := fr.get(fr.top)
				inst, ok := fr.get(fr.top - 1).(*Instance)
				if !ok {
				return nil, fmt.Errorf("machine: set-composite-function: not an instance")
			}
				inst.Function = val
				fr.truncate(fr.top)
				fr.set(fr.top, inst)

			case compiler.FamilyMakeString:
				vec, ok := fr.get(fr.top).(*Vector)
				if !ok {
				return nil, fmt.Errorf("machine: make-string: not a vector")
			}
				buf := make([]byte, len(vec.Elems))
				for i, e := range vec.Elems {
				n, ok := e.(object.Int)
				if !ok {
					return nil, fmt.Errorf("machine: make-string: element %d is not an integer", i)
				}
				buf[i] = byte(n)
			}
				fr.set(fr.top, object.NewStr(buf))

			case compiler.FamilyConcatenate:
				right, ok := fr.get(fr.top).(object.Str)
				if !ok {
				return nil, fmt.Errorf("machine: concatenate: not a string")
			}
				left, ok := fr.get(fr.top - 1).(object.Str)
				if !ok {
				return nil, fmt.Errorf("machine: concatenate: not a string")
			}
				buf := make([]byte, 0, len(left.Data)+len(right.Data))
				buf = append(buf, left.Data...)
				buf = append(buf, right.Data...)
				fr.truncate(fr.top)
				fr.set(fr.top, object.NewStr(buf))

			case compiler.FamilySubstring:
				end, ok := fr.get(fr.top).(object.Int)
				if !ok {
				return nil, fmt.Errorf("machine: substring: end must be an integer")
			}
				start, ok := fr.get(fr.top - 1).(object.Int)
				if !ok {
				return nil, fmt.Errorf("machine: substring: start must be an integer")
			}
				s, ok := fr.get(fr.top - 2).(object.Str)
				if !ok {
				return nil, fmt.Errorf("machine: substring: not a string")
			}
				if start < 0 || end < start || int(end) > len(s.Data) {
				return nil, fmt.Errorf("machine: substring: range [%d:%d) out of bounds", start, end)
			}
				fr.truncate(fr.top - 1)
				fr.set(fr.top, object.NewStr(s.Data[start:end]))

			case compiler.FamilyLength:
				v := fr.get(fr.top)
				var n int
				switch vv := v.(type) {
				case object.Str:
					n = len(vv.Data)
				case *Vector:
					n = len(vv.Elems)
				default:
					items, ok := object.Items(v)
					if !ok {
					return nil, fmt.Errorf("machine: length: unsupported operand type %s", v.Type())
				}
					n = len(items)
			}
				fr.set(fr.top, object.Int(n))

			case compiler.FamilySymbolString:
				sym, ok := fr.get(fr.top).(object.Symbol)
				if !ok {
				return nil, fmt.Errorf("machine: symbol-string: not a symbol")
			}
				fr.set(fr.top, object.NewStr([]byte(sym.Name)))

			case compiler.FamilySymbolId:
				sym, ok := fr.get(fr.top).(object.Symbol)
				if !ok {
				return nil, fmt.Errorf("machine: symbol-id: not a symbol")
			}
				fr.set(fr.top, object.Int(sym.ID))

			case compiler.FamilyPop:
				count, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				fr.truncate(len(fr.slots) - int(count))

			case compiler.FamilyReturn0:
				return object.Nil, nil

			case compiler.FamilyReturnN:
				count, err := readU(fr.code, fr.pc, w)
				if err != nil {
				return nil, err
			}
				fr.pc += w
				if count == 0 {
				return object.Nil, nil
			}
				return fr.get(fr.top), nil

			case compiler.FamilyYield:
				// Cooperative yielding is not part of this VM's concurrency model
				//; treat it as a no-op rather than an error so
				// bytecode that contains it still runs.

			case compiler.FamilyHalt:
				if len(fr.slots) == 0 {
				return object.Nil, nil
			}
				return fr.get(fr.top), nil

			case compiler.FamilyNil:
				fr.push(object.Nil)

			default:
				return nil, fmt.Errorf("machine: unhandled opcode family %v at offset %d", op.Family(), fr.pc-2)
		}
	}
}

func (rt *Thread) symbolName(id symbol.ID) string {
	if rt.Symbols == nil {
		return fmt.Sprintf("#%d", id)
	}
	return rt.Symbols.Name(id)
}

// collectArgs reads argc values from the contiguous region immediately
// above fnSlot.
func collectArgs(fr *Frame, fnSlot, argc int) []object.Value {
	args := make([]object.Value, argc)
	for i := range args {
		args[i] = fr.get(fnSlot + 1 + i)
	}
	return args
}

// decodeClosure builds the Closure value a push-closure/push-vaclosure
// instruction describes, advancing fr.pc past its operands.
func (rt *Thread) decodeClosure(fr *Frame, op compiler.Opcode, w int) (*Closure, error) {
	offset, err := readS(fr.code, fr.pc, w)
	if err != nil {
		return nil, err
	}
	fr.pc += w
	arity, err := readU(fr.code, fr.pc, 1)
	if err != nil {
		return nil, err
	}
	fr.pc++
	uvcount, err := readU(fr.code, fr.pc, 4)
	if err != nil {
		return nil, err
	}
	fr.pc += 4
	entry := fr.pc + int(uvcount)*4 + int(offset)

	upvalues := make([]*cell, uvcount)
	for i := int64(0); i < uvcount; i++ {
		encoded, err := readU(fr.code, fr.pc, 4)
		if err != nil {
			return nil, err
		}
		fr.pc += 4
		isUpvalue := encoded&1 != 0
		index := int(encoded >> 1)
		if isUpvalue {
			if fr.fn == nil || index >= len(fr.fn.Upvalues) {
				return nil, fmt.Errorf("machine: push-closure: chained upvalue %d out of range", index)
			}
			upvalues[i] = fr.fn.Upvalues[index]
		} else {
			upvalues[i] = fr.box(index)
		}
	}

	return &Closure{
		Code: fr.code,
		Entry: entry,
		Arity: int(arity),
		Variadic: op.Family() == compiler.FamilyPushVaClosure,
		Upvalues: upvalues,
	}, nil
}

// callValue invokes callee (a *Closure or *NativeFunc, reached via
// pushGlobal/funcall rather than ccall) with args, recursing into run for
// a lisp closure exactly the way a Go call would, mirroring the
// originating implementation's Call/CallInternal split.
func (rt *Thread) callValue(callee object.Value, args []object.Value) (object.Value, error) {
	switch fn := callee.(type) {
		case *Closure:
			return rt.callClosure(fn, args)
		case *NativeFunc:
			if len(args) != fn.Arity {
			return nil, fmt.Errorf("machine: %s: expected %d arguments, got %d", fn.Name, fn.Arity, len(args))
		}
			return fn.Fn(args)
		default:
			return nil, fmt.Errorf("machine: value of type %s is not callable", callee.Type())
	}
}

func (rt *Thread) callClosure(fn *Closure, args []object.Value) (object.Value, error) {
	if rt.MaxCallDepth > 0 && rt.callDepth >= rt.MaxCallDepth {
		return nil, fmt.Errorf("machine: call stack depth exceeded %d", rt.MaxCallDepth)
	}

	nparams := fn.Arity
	if fn.Variadic {
		if len(args) < nparams-1 {
			return nil, fmt.Errorf("machine: closure: expected at least %d arguments, got %d", nparams-1, len(args))
		}
	} else if len(args) != nparams {
		return nil, fmt.Errorf("machine: closure: expected %d arguments, got %d", nparams, len(args))
	}

	nfr := newFrame(fn.Code, fn.Entry, fn, nparams)
	if fn.Variadic {
		for i := 0; i < nparams-1; i++ {
			nfr.slots[i] = args[i]
		}
		nfr.slots[nparams-1] = object.List(args[nparams-1:]...)
	} else {
		copy(nfr.slots, args)
	}

	rt.callDepth++
	defer func() { rt.callDepth-- }()
	return rt.run(nfr)
}
