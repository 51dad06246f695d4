package maincmd

import (
	"fmt"
	"strings"

	"github.com/mna/lacewing/lang/machine"
	"github.com/mna/lacewing/lang/object"
)

// formatValue renders a VM result the way the repl and run commands
// print it back to the user: lisp-ish for data, a type tag for the
// non-reifiable runtime values (closures, vectors, composite instances)
// that this package defines but never gives a surface read syntax.
func formatValue(v object.Value) string {
	if v == nil || object.IsNil(v) {
		return "nil"
	}
	switch val := v.(type) {
		case object.Bool:
			if val {
			return "#t"
		}
			return "#f"
		case object.Int:
			return fmt.Sprintf("%d", int64(val))
		case object.Float:
			return fmt.Sprintf("%g", float64(val))
		case object.Str:
			return fmt.Sprintf("%q", string(val.Data))
		case object.Symbol:
			return val.Name
		case *object.Cons:
			return formatCons(val)
		case *machine.Closure:
			return fmt.Sprintf("#<closure/%d>", val.Arity)
		case *machine.NativeFunc:
			return fmt.Sprintf("#<native %s/%d>", val.Name, val.Arity)
		case *machine.Vector:
			elems := make([]string, len(val.Elems))
			for i, e := range val.Elems {
			elems[i] = formatValue(e)
		}
			return "#(" + strings.Join(elems, " ") + ")"
		case *machine.TypeValue:
			return fmt.Sprintf("#<type %d>", val.ID)
		case *machine.Instance:
			return fmt.Sprintf("#<instance of type %d>", val.Of.ID)
		default:
			return fmt.Sprintf("#<%s>", v.Type())
	}
}

// formatCons prints a cons chain as a parenthesized list, falling back
// to dotted-pair notation at the first improper tail.
func formatCons(c *object.Cons) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(formatValue(c.Car))
	cur := c.Cdr
	for {
		if object.IsNil(cur) {
			break
		}
		next, ok := cur.(*object.Cons)
		if !ok {
			sb.WriteString(". ")
			sb.WriteString(formatValue(cur))
			break
		}
		sb.WriteByte(' ')
		sb.WriteString(formatValue(next.Car))
		cur = next.Cdr
	}
	sb.WriteByte(')')
	return sb.String()
}
