package object

import (
	"fmt"

	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/symbol"
)

// callbackTag names the head of the one-element wrapper list used to carry a
// Callback node across the bridge (there is no Value kind for it, so it
// round-trips as the list (#callback "name")).
const callbackTag = "#callback"

// ToObject reifies an AST node into a VM object, so a macro body can
// receive its unevaluated argument forms as ordinary Lisp data. Expr and
// LiteralExpr both become proper lists; ToAST's asExpr parameter is what
// tells them apart again on the way back.
func ToObject(tab *symbol.Table, n ast.Node) Value {
	switch v := n.(type) {
		case *ast.Bool:
			return Bool(v.Value)
		case *ast.Int:
			return Int(v.Value)
		case *ast.Float:
			return Float(v.Value)
		case *ast.Str:
			return NewStr(v.Value)
		case *ast.Ident:
			return Symbol{ID: tab.Intern(v.Name), Name: v.Name}
		case *ast.Callback:
			return List(Symbol{ID: tab.Intern(callbackTag), Name: callbackTag}, NewStr([]byte(v.Name)))
		case *ast.Expr:
			return itemsToObject(tab, v.Items)
		case *ast.LiteralExpr:
			return itemsToObject(tab, v.Items)
		default:
			return Nil
	}
}

func itemsToObject(tab *symbol.Table, items []ast.Node) Value {
	vals := make([]Value, len(items))
	for i, it := range items {
		vals[i] = ToObject(tab, it)
	}
	return List(vals...)
}

// ToAST reifies a VM object produced by a macro back into an AST subtree.
// asExpr selects whether a list becomes a
// compound expression (the normal case, for a macro's return value that
// is meant to be spliced into the call site and lowered again) or a
// literal data list (when reifying quoted data). Every node produced
// carries token.NoPos: the bridge has no source span for values a macro
// fabricated.
func ToAST(v Value, asExpr bool) (ast.Node, error) {
	switch x := v.(type) {
		case Bool:
			return ast.NewBool(0, 0, bool(x)), nil
		case Int:
			return ast.NewInt(0, 0, int64(x)), nil
		case Float:
			return ast.NewFloat(0, 0, float64(x)), nil
		case Str:
			return ast.NewStr(0, 0, x.Data), nil
		case Symbol:
			return ast.NewIdent(0, 0, x.Name), nil
		case *Cons, nilValue:
			items, ok := Items(v)
			if !ok {
			return nil, fmt.Errorf("object: cannot reify improper list to AST")
		}
			if asExpr && len(items) == 2 {
			if sym, ok := items[0].(Symbol); ok && sym.Name == callbackTag {
				if s, ok := items[1].(Str); ok {
					return ast.NewCallback(0, 0, string(s.Data)), nil
				}
			}
		}
			nodes := make([]ast.Node, len(items))
			for i, it := range items {
			n, err := ToAST(it, asExpr)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
			if asExpr {
			return ast.NewExpr(0, 0, nodes), nil
		}
			return ast.NewLiteralExpr(0, 0, nodes), nil
		default:
			return nil, fmt.Errorf("object: value of type %s has no AST representation", v.Type())
	}
}
