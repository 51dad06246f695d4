package reader

import "strings"

// InferParens is the load_string infer_parens? pre-pass: a best-effort,
// line-oriented textual rewrite that lets indentation stand in for
// parentheses the way duckLisp's own parenthesis-inference feature does
// (the concrete inference source wasn't part of the retrieved
// duckLisp.c excerpt this implementation is grounded on, so this is an
// original design against the documented contract: bounded, run before
// the real read, not a parser feature).
//
// A line that does not itself start with '(' or '\'', and whose next
// non-blank line is indented further, is treated as an implicit list
// head (whether the line already sits inside an open paren is not
// checked): InferParens wraps it (and every more-indented
// line under it) in parens, closing the wrap as soon as indentation
// returns to that head line's level or shallower. Lines already fully
// parenthesized by the author are passed through untouched aside from
// this wrapping. maxIterations bounds how many parens InferParens will
// insert in total; once exhausted, the rest of the source is passed
// through as-is rather than guessing further, so a malformed or
// deeply-nested input degrades into an ordinary (and reportable) reader
// error instead of a silently-wrong rewrite.
func InferParens(src []byte, maxIterations int) []byte {
	if maxIterations <= 0 {
		return src
	}

	lines := strings.Split(string(src), "\n")
	var out []string
	// stack of indentation levels of lines this pass has opened an
	// inferred wrap for; closed once a later line dedents to or past it.
	var stack []int
	budget := maxIterations

	closeTo := func(indent int, prefix *string) {
		for len(stack) > 0 && budget > 0 && indent <= stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
			*prefix += ")"
			budget--
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)

		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			out = append(out, line)
			continue
		}

		var prefix string
		closeTo(indent, &prefix)

		opensInferredWrap := budget > 0 &&
		!strings.HasPrefix(trimmed, "(") &&
		!strings.HasPrefix(trimmed, "'") &&
		lineHasMoreIndentedFollower(lines, i, indent)

		rendered := line
		if opensInferredWrap {
			rendered = prefix + strings.Repeat(" ", indent) + "(" + trimmed
			stack = append(stack, indent)
			budget--
		} else if prefix != "" {
			rendered = prefix + line
		}
		out = append(out, rendered)
	}

	// close whatever remains open at end of input
	var tail string
	closeTo(-1, &tail)
	if tail != "" {
		out = append(out, tail)
	}

	return []byte(strings.Join(out, "\n"))
}

// lineHasMoreIndentedFollower reports whether some later, non-blank
// line is indented further than indent before the next line at indent
// or shallower appears — i.e. whether lines[i] has any children to
// implicitly wrap.
func lineHasMoreIndentedFollower(lines []string, i, indent int) bool {
	for j := i + 1; j < len(lines); j++ {
		trimmed := strings.TrimLeft(lines[j], " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		childIndent := len(lines[j]) - len(trimmed)
		return childIndent > indent
	}
	return false
}
