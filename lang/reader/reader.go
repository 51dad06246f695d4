// Package reader implements a minimal, single-pass Lisp reader that
// turns source bytes directly into *ast.Expr forms, the way a Lisp
// reader conventionally folds lexing and parsing into one walk rather
// than materializing a separate token stream.
package reader

import (
	"fmt"

	"github.com/mna/lacewing/internal/diag"
	"github.com/mna/lacewing/lang/ast"
	"github.com/mna/lacewing/lang/token"
)

// ParserAction is a reader macro hook: given the raw bytes following its
// trigger (up to the next delimiter the reader would normally stop at),
// it returns the AST node to splice in. Registered via AddParserAction.
type ParserAction func(args []byte) (ast.Node, error)

// Reader turns source bytes into a forest of top-level forms. A Reader
// is reusable across calls to Read; ParserActions registered on it
// persist for its lifetime, mirroring how a Compiler's generators and
// callbacks outlive any single compilation.
type Reader struct {
	actions map[byte]ParserAction
}

// New returns an empty Reader, ready to have reader macros registered
// and to Read source.
func New() *Reader {
	return &Reader{actions: make(map[byte]ParserAction)}
}

// AddParserAction registers fn to run whenever the reader encounters
// trigger as the first byte of a form.
// trigger must not be a byte the reader already treats specially
// ('(', ')', '"', ';', '\'', '#', or whitespace).
func (r *Reader) AddParserAction(trigger byte, fn ParserAction) {
	r.actions[trigger] = fn
}

type scanner struct {
	file *token.File
	src []byte
	pos int
	bag *diag.Bag
	r *Reader
}

// Read parses src in full, returning every top-level form it contains.
// Errors are reported into bag; Read returns as many well-formed
// top-level forms as it could recover, skipping past a malformed one to
// resynchronize at the next top-level boundary.
func (r *Reader) Read(file *token.File, bag *diag.Bag) []ast.Node {
	s := &scanner{file: file, src: file.Content(), bag: bag, r: r}
	var forms []ast.Node
	for {
		s.skipAtmosphere()
		if s.pos >= len(s.src) {
			return forms
		}
		start := s.pos
		n, err := s.readForm()
		if err != nil {
			bag.Errorf(file, token.Pos(start), token.Pos(s.pos), "%s", err)
			s.resync()
			continue
		}
		forms = append(forms, n)
	}
}

// skipAtmosphere advances past whitespace and ;-to-end-of-line comments.
func (s *scanner) skipAtmosphere() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
			case c == ' ' || c == '\t' || c == '\n' || c == '\r':
				s.pos++
			case c == ';':
				for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			default:
				return
		}
	}
}

// resync skips to the next byte that could plausibly start a fresh
// top-level form, so one malformed form doesn't cascade into spurious
// errors for the rest of the file.
func (s *scanner) resync() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '(' || c == ' ' || c == '\t' || c == '\n' {
			return
		}
		s.pos++
	}
}

func (s *scanner) readForm() (ast.Node, error) {
	c := s.src[s.pos]
	switch {
		case c == '(':
			return s.readList(false)
		case c == ')':
			return nil, fmt.Errorf("unexpected %q", ')')
		case c == '\'':
			return s.readQuote()
		case c == '"':
			return s.readString()
		case c == '#':
			return s.readHash()
		default:
			if fn, ok := s.r.actions[c]; ok {
			return s.readParserAction(c, fn)
		}
			return s.readAtom()
	}
}

func (s *scanner) readList(quoted bool) (ast.Node, error) {
	start := s.pos
	s.pos++ // consume '('
	var items []ast.Node
	for {
		s.skipAtmosphere()
		if s.pos >= len(s.src) {
			return nil, fmt.Errorf("unterminated list starting at offset %d", start)
		}
		if s.src[s.pos] == ')' {
			s.pos++
			break
		}
		n, err := s.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	end := s.pos
	if quoted {
		return ast.NewLiteralExpr(token.Pos(start), token.Pos(end), items), nil
	}
	return ast.NewExpr(token.Pos(start), token.Pos(end), items), nil
}

// readQuote expands 'x into (__quote x), the surface syntax for the
// __quote generator.
func (s *scanner) readQuote() (ast.Node, error) {
	start := s.pos
	s.pos++ // consume '\''
	s.skipAtmosphere()
	if s.pos >= len(s.src) {
		return nil, fmt.Errorf("quote at offset %d has no following form", start)
	}
	inner, err := s.readForm()
	if err != nil {
		return nil, err
	}
	_, end := inner.Span()
	quoteSym := ast.NewIdent(token.Pos(start), token.Pos(start+1), "__quote")
	return ast.NewExpr(token.Pos(start), end, []ast.Node{quoteSym, inner}), nil
}

func (s *scanner) readString() (ast.Node, error) {
	start := s.pos
	s.pos++ // consume opening quote
	var buf []byte
	for {
		if s.pos >= len(s.src) {
			return nil, fmt.Errorf("unterminated string starting at offset %d", start)
		}
		c := s.src[s.pos]
		if c == '"' {
			s.pos++
			break
		}
		if c == '\\' {
			s.pos++
			if s.pos >= len(s.src) {
				return nil, fmt.Errorf("unterminated escape in string starting at offset %d", start)
			}
			buf = append(buf, unescape(s.src[s.pos]))
			s.pos++
			continue
		}
		buf = append(buf, c)
		s.pos++
	}
	return ast.NewStr(token.Pos(start), token.Pos(s.pos), buf), nil
}

func unescape(c byte) byte {
	switch c {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case 'r':
			return '\r'
		default:
			return c
	}
}

// readHash handles the #t / #f boolean literals.
func (s *scanner) readHash() (ast.Node, error) {
	start := s.pos
	if s.pos+1 >= len(s.src) {
		return nil, fmt.Errorf("stray %q at offset %d", '#', start)
	}
	switch s.src[s.pos+1] {
		case 't':
			s.pos += 2
			return ast.NewBool(token.Pos(start), token.Pos(s.pos), true), nil
		case 'f':
			s.pos += 2
			return ast.NewBool(token.Pos(start), token.Pos(s.pos), false), nil
		default:
			return nil, fmt.Errorf("unknown # syntax at offset %d", start)
	}
}

func (s *scanner) readParserAction(trigger byte, fn ParserAction) (ast.Node, error) {
	start := s.pos
	s.pos++ // consume trigger
	argStart := s.pos
	for s.pos < len(s.src) && !isDelimiter(s.src[s.pos]) {
		s.pos++
	}
	n, err := fn(s.src[argStart:s.pos])
	if err != nil {
		return nil, fmt.Errorf("parser action %q at offset %d: %w", trigger, start, err)
	}
	return n, nil
}

func isDelimiter(c byte) bool {
	switch c {
		case '(', ')', '"', ';', ' ', '\t', '\n', '\r':
			return true
		default:
			return false
	}
}

// readAtom reads a run of non-delimiter bytes and classifies it as a
// number or an identifier.
func (s *scanner) readAtom() (ast.Node, error) {
	start := s.pos
	for s.pos < len(s.src) && !isDelimiter(s.src[s.pos]) {
		s.pos++
	}
	text := string(s.src[start:s.pos])
	if text == "" {
		return nil, fmt.Errorf("unexpected %q at offset %d", s.src[start], start)
	}
	if iv, fv, kind := parseNumber(text); kind == numFloat {
		return ast.NewFloat(token.Pos(start), token.Pos(s.pos), fv), nil
	} else if kind == numInt {
		return ast.NewInt(token.Pos(start), token.Pos(s.pos), iv), nil
	}
	return ast.NewIdent(token.Pos(start), token.Pos(s.pos), text), nil
}

type numKind int

const (
	numNone numKind = iota
	numInt
	numFloat
)

// parseNumber reports whether text is a numeric literal and, if so,
// whether it is integral or floating point; only the field matching the
// returned kind is meaningful.
func parseNumber(text string) (intValue int64, floatValue float64, kind numKind) {
	i := 0
	neg := false
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		neg = text[i] == '-'
		i++
	}
	if i >= len(text) {
		return 0, 0, numNone
	}
	digitsBefore := i
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == digitsBefore {
		return 0, 0, numNone
	}
	intPart := text[digitsBefore:i]
	if i == len(text) {
		var n int64
		for _, c := range []byte(intPart) {
			n = n*10 + int64(c-'0')
		}
		if neg {
			n = -n
		}
		return n, 0, numInt
	}
	if text[i] != '.' {
		return 0, 0, numNone
	}
	i++
	fracStart := i
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i != len(text) || i == fracStart {
		return 0, 0, numNone
	}
	var whole float64
	for _, c := range []byte(intPart) {
		whole = whole*10 + float64(c-'0')
	}
	var frac, scale float64 = 0, 1
	for _, c := range []byte(text[fracStart:i]) {
		frac = frac*10 + float64(c-'0')
		scale *= 10
	}
	v := whole + frac/scale
	if neg {
		v = -v
	}
	return 0, v, numFloat
}
