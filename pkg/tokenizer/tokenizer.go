// Package tokenizer splits lines of text into whitespace-delimited tokens.
package tokenizer

import (
	"iter"
	"strings"
)

// Tokens returns the non-empty tokens of line, split on runs of whitespace.
// The sequence is lazy and can be ranged over more than once.
func Tokens(line string) iter.Seq[string] {
	return strings.FieldsSeq(line)
}

// Fields is the eager form of Tokens.
func Fields(line string) []string {
	return strings.Fields(line)
}
