// Package diag implements the compiler's diagnostics sink: an ordered,
// per-instance buffer of source-span-annotated messages.
// Nothing in this package ever panics or returns an error on the
// caller's behalf — diagnostics are accumulated, never thrown, and it is
// up to the caller to drain and act on them.
package diag

import (
	"fmt"
	"strings"

	"github.com/mna/lacewing/lang/token"
)

// Severity distinguishes a recoverable finding (compilation continues,
// the offending form simply contributes no bytecode) from a fatal one
// that aborts the compilation unwind.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
		case Warning:
			return "warning"
		case Fatal:
			return "fatal"
		default:
			return "error"
	}
}

// Diagnostic is one entry of a Bag: a message with an optional source
// span. Start/End are token.NoPos when no location applies.
type Diagnostic struct {
	Severity Severity
	Message string
	Start, End token.Pos
	File *token.File
}

// Format renders the diagnostic the way this package describes: the message,
// the offending source line, a caret underline, and file:line:column.
func (d Diagnostic) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	if d.File == nil || d.Start == token.NoPos {
		return b.String()
	}
	pos := d.File.Position(d.Start)
	fmt.Fprintf(&b, "\n --> %s", pos)
	line := d.File.Line(pos.Line)
	if line != nil {
		fmt.Fprintf(&b, "\n%s\n%s^", line, strings.Repeat(" ", pos.Column-1))
	}
	return b.String()
}

// Bag is an ordered, FIFO buffer of diagnostics, owned by one compiler
// instance.
type Bag struct {
	entries []Diagnostic
}

// Add appends a diagnostic to the end of the buffer.
func (b *Bag) Add(d Diagnostic) { b.entries = append(b.entries, d) }

// Warnf appends a Warning-severity diagnostic.
func (b *Bag) Warnf(file *token.File, start, end token.Pos, format string, args...any) {
	b.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Start: start, End: end, File: file})
}

// Errorf appends an Error-severity diagnostic.
func (b *Bag) Errorf(file *token.File, start, end token.Pos, format string, args...any) {
	b.Add(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Start: start, End: end, File: file})
}

// Len reports how many diagnostics are currently buffered.
func (b *Bag) Len() int { return len(b.entries) }

// HasErrors reports whether any buffered diagnostic is Error or Fatal
// severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.entries {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Drain returns every buffered diagnostic, in emission order, and empties
// the buffer.
func (b *Bag) Drain() []Diagnostic {
	out := b.entries
	b.entries = nil
	return out
}
