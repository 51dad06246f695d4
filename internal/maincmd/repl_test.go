package maincmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParenDepth(t *testing.T) {
	assert.Equal(t, 0, parenDepth("(__+ 1 2)"))
	assert.Equal(t, 1, parenDepth("(define (f x)"))
	assert.Equal(t, 0, parenDepth(`(string "(not a paren)")`))
	assert.Equal(t, 0, parenDepth("(foo) ; (comment with parens"))
	assert.Equal(t, -2, parenDepth("))"))
}
