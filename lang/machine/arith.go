package machine

import (
	"fmt"

	"github.com/mna/lacewing/lang/compiler"
	"github.com/mna/lacewing/lang/object"
)

// arith implements the four binary numeric opcodes (mul/div/add/sub),
// promoting an Int/Float mix to Float the way the arithmetic reader
// syntax in this package implies.
func arith(fam compiler.Family, left, right object.Value) (object.Value, error) {
	li, lIsInt := left.(object.Int)
	ri, rIsInt := right.(object.Int)
	if lIsInt && rIsInt {
		switch fam {
			case compiler.FamilyMul:
				return li * ri, nil
			case compiler.FamilyDiv:
				if ri == 0 {
				return nil, fmt.Errorf("machine: division by zero")
			}
				return li / ri, nil
			case compiler.FamilyAdd:
				return li + ri, nil
			case compiler.FamilySub:
				return li - ri, nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("machine: arithmetic on non-numeric operands (%s, %s)", left.Type(), right.Type())
	}
	switch fam {
		case compiler.FamilyMul:
			return object.Float(lf * rf), nil
		case compiler.FamilyDiv:
			if rf == 0 {
			return nil, fmt.Errorf("machine: division by zero")
		}
			return object.Float(lf / rf), nil
		case compiler.FamilyAdd:
			return object.Float(lf + rf), nil
		case compiler.FamilySub:
			return object.Float(lf - rf), nil
	}
	panic("machine: arith: unreachable family")
}

func asFloat(v object.Value) (float64, bool) {
	switch n := v.(type) {
		case object.Int:
			return float64(n), true
		case object.Float:
			return float64(n), true
		default:
			return 0, false
	}
}

// compare implements equal/less/greater. equal is defined over any value
// pair (falling back to false for kinds with no natural ordering); less
// and greater require both operands to be numeric.
func compare(fam compiler.Family, left, right object.Value) (object.Value, error) {
	if fam == compiler.FamilyEqual {
		return object.Bool(valuesEqual(left, right)), nil
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("machine: comparison on non-numeric operands (%s, %s)", left.Type(), right.Type())
	}
	if fam == compiler.FamilyLess {
		return object.Bool(lf < rf), nil
	}
	return object.Bool(lf > rf), nil
}

func valuesEqual(left, right object.Value) bool {
	switch l := left.(type) {
		case object.Int:
			if r, ok := right.(object.Int); ok {
			return l == r
		}
			if r, ok := right.(object.Float); ok {
			return float64(l) == float64(r)
		}
			return false
		case object.Float:
			if r, ok := asFloat(right); ok {
			return float64(l) == r
		}
			return false
		case object.Bool:
			r, ok := right.(object.Bool)
			return ok && l == r
		case object.Str:
			r, ok := right.(object.Str)
			return ok && string(l.Data) == string(r.Data)
		case object.Symbol:
			r, ok := right.(object.Symbol)
			return ok && l.ID == r.ID
		default:
			if object.IsNil(left) {
			return object.IsNil(right)
		}
			return left == right
	}
}
