// Package ast defines the tagged-union abstract syntax tree produced by a
// reader (the concrete parser is an external collaborator; see
// lang/reader) and consumed by lang/compiler. It is also the on-the-wire
// shape that lang/object bridges to and from VM data during macro
// expansion.
package ast

import "github.com/mna/lacewing/lang/token"

// Node is implemented by every AST node kind: Bool, Int, Float, Str,
// Ident, Expr, LiteralExpr and Callback.
type Node interface {
	// Span returns the byte-offset range of this node in its source file.
	Span() (token.Pos, token.Pos)
	node()
}

type base struct {
	Start, End token.Pos
}

func (b base) Span() (token.Pos, token.Pos) { return b.Start, b.End }
func (base) node() {}

// Bool is a literal boolean.
type Bool struct {
	base
	Value bool
}

// Int is a literal integer.
type Int struct {
	base
	Value int64
}

// Float is a literal double-precision float.
type Float struct {
	base
	Value float64
}

// Str is a literal string. It owns a private copy of its bytes.
type Str struct {
	base
	Value []byte
}

// Ident is an identifier reference: a variable, function, macro or label
// name as written in source.
type Ident struct {
	base
	Name string
}

// Expr is a compound expression: an ordered list of child nodes, as
// written with parentheses in source, e.g. (f a b).
type Expr struct {
	base
	Items []Node
}

// LiteralExpr is a quoted list: structurally identical to Expr, but
// marking that its contents must not be evaluated as a call — it is
// data, the way (quote (1 2 3)) or a macro's reified argument list is
// data. Produced primarily by lang/object.ToAST when it encounters
// a cons-list that is not meant to be lowered as a call.
type LiteralExpr struct {
	base
	Items []Node
}

// Callback is a reference to a registered native (C-like) callback,
// distinguished from a plain Ident so that the compiler's registry does
// not have to re-resolve it: it is produced internally, e.g. when a
// generator builds a synthetic call to a previously resolved callback.
type Callback struct {
	base
	Name string
}

var (
	_ Node = (*Bool)(nil)
	_ Node = (*Int)(nil)
	_ Node = (*Float)(nil)
	_ Node = (*Str)(nil)
	_ Node = (*Ident)(nil)
	_ Node = (*Expr)(nil)
	_ Node = (*LiteralExpr)(nil)
	_ Node = (*Callback)(nil)
)

// NewBool constructs a Bool node spanning [start,end).
func NewBool(start, end token.Pos, v bool) *Bool { return &Bool{base{start, end}, v} }

// NewInt constructs an Int node spanning [start,end).
func NewInt(start, end token.Pos, v int64) *Int { return &Int{base{start, end}, v} }

// NewFloat constructs a Float node spanning [start,end).
func NewFloat(start, end token.Pos, v float64) *Float { return &Float{base{start, end}, v} }

// NewStr constructs a Str node spanning [start,end), copying v.
func NewStr(start, end token.Pos, v []byte) *Str {
	cp := make([]byte, len(v))
	copy(cp, v)
	return &Str{base{start, end}, cp}
}

// NewIdent constructs an Ident node spanning [start,end).
func NewIdent(start, end token.Pos, name string) *Ident { return &Ident{base{start, end}, name} }

// NewExpr constructs an Expr node spanning [start,end).
func NewExpr(start, end token.Pos, items []Node) *Expr { return &Expr{base{start, end}, items} }

// NewLiteralExpr constructs a LiteralExpr node spanning [start,end).
func NewLiteralExpr(start, end token.Pos, items []Node) *LiteralExpr {
	return &LiteralExpr{base{start, end}, items}
}

// NewCallback constructs a Callback node spanning [start,end).
func NewCallback(start, end token.Pos, name string) *Callback {
	return &Callback{base{start, end}, name}
}

// Equal reports whether two nodes are structurally equal, ignoring
// position information (symbol interning identity is reduced to simple
// string equality of names, which is enough for the bridge round-trip
// invariant in this package).
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a := a.(type) {
		case *Bool:
			b, ok := b.(*Bool)
			return ok && a.Value == b.Value
		case *Int:
			b, ok := b.(*Int)
			return ok && a.Value == b.Value
		case *Float:
			b, ok := b.(*Float)
			return ok && a.Value == b.Value
		case *Str:
			b, ok := b.(*Str)
			return ok && string(a.Value) == string(b.Value)
		case *Ident:
			b, ok := b.(*Ident)
			return ok && a.Name == b.Name
		case *Callback:
			b, ok := b.(*Callback)
			return ok && a.Name == b.Name
		case *Expr:
			b, ok := b.(*Expr)
			return ok && equalItems(a.Items, b.Items)
		case *LiteralExpr:
			b, ok := b.(*LiteralExpr)
			return ok && equalItems(a.Items, b.Items)
		default:
			return false
	}
}

func equalItems(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
