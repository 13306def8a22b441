package trailingcomma

import (
	"commas-go/internal/model/token"
)

// collector accumulates anchor tokens for one analysis
type collector struct {
	tokens  token.Sequence
	anchors map[int]struct{}
}

func newCollector(tokens token.Sequence) *collector {
	return &collector{
		tokens:  tokens,
		anchors: make(map[int]struct{}),
	}
}

// checkSpan decides whether the span [start, end] should end with a comma
// before its closing token, and records the anchor if the comma is missing.
// Only constructs laid out with the closing token on its own line qualify.
func (c *collector) checkSpan(start, end int) {
	indexes := c.tokens.Range(start, end, true)
	if len(indexes) < 3 {
		return
	}

	first := c.tokens[indexes[0]]
	last := c.tokens[indexes[len(indexes)-1]]
	if first.Start.Line == last.End.Line {
		return
	}

	rest := indexes[1 : len(indexes)-1]
	newline := rest[len(rest)-1]
	rest = rest[:len(rest)-1]
	if len(rest) == 0 || !c.tokens[newline].IsNewline() {
		return
	}

	anchor := c.skipComments(rest[len(rest)-1])
	if c.tokens[anchor].Text == "," {
		return
	}

	c.anchors[anchor] = struct{}{}
}

// skipComments resolves i to the closest code token at or before it
func (c *collector) skipComments(i int) int {
	next, ok := c.tokens.Next(i, false)
	if !ok {
		return i
	}
	prev, ok := c.tokens.Prev(next, false)
	if !ok {
		return i
	}
	return prev
}

// closingToken returns the bracket that closes an unparenthesized tuple
// ending at last, or last itself when the tuple is not enclosed.
func (c *collector) closingToken(last int) int {
	next, ok := c.tokens.Next(last, false)
	if !ok {
		return last
	}
	if text := c.tokens[next].Text; text == ")" || text == "]" {
		return next
	}
	return last
}

// withTrailingComma extends last over a directly following comma
func (c *collector) withTrailingComma(last int) int {
	next, ok := c.tokens.Next(last, false)
	if ok && c.tokens[next].Text == "," {
		return next
	}
	return last
}
