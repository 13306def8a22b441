package token

import "sort"

// Kinds for tokens that do not come from a grammar leaf
const (
	KindComment = "comment"
	KindNewline = "newline"
)

// Position is a location in source text
type Position struct {
	Line   int // 1-based
	Column int // 0-based, counted in characters
	Offset int // characters from the start of the text
}

// Token represents a single lexical token in source code
type Token struct {
	Kind      string   // Leaf kind reported by the parser, or KindComment / KindNewline
	Text      string   // Original token text ("\n" for line breaks)
	Start     Position // Inclusive
	End       Position // Exclusive
	StartByte int
	EndByte   int
}

// IsExtra reports whether the token carries no syntax (comments and line breaks)
func (t Token) IsExtra() bool {
	return t.Kind == KindComment || t.Kind == KindNewline
}

// IsNewline reports whether the token is a pure line break
func (t Token) IsNewline() bool {
	return t.Kind == KindNewline
}

// Sequence is the ordered token stream of one source text. Tokens are
// addressed by index; an index is the identity of a token.
type Sequence []Token

// Next returns the index of the token following i. Extra tokens are skipped
// unless includeExtra is set.
func (s Sequence) Next(i int, includeExtra bool) (int, bool) {
	for j := i + 1; j < len(s); j++ {
		if includeExtra || !s[j].IsExtra() {
			return j, true
		}
	}
	return -1, false
}

// Prev returns the index of the token preceding i. Extra tokens are skipped
// unless includeExtra is set.
func (s Sequence) Prev(i int, includeExtra bool) (int, bool) {
	if i > len(s) {
		i = len(s)
	}
	for j := i - 1; j >= 0; j-- {
		if includeExtra || !s[j].IsExtra() {
			return j, true
		}
	}
	return -1, false
}

// Range returns the indexes of tokens from start to end inclusive
func (s Sequence) Range(start, end int, includeExtra bool) []int {
	if start < 0 || end >= len(s) || start > end {
		return nil
	}
	indexes := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		if includeExtra || !s[i].IsExtra() {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// SearchForward walks forward from i (exclusive), extras included, until a
// token with the given text is found.
func (s Sequence) SearchForward(i int, text string) (int, bool) {
	for j := i + 1; j < len(s); j++ {
		if s[j].Text == text {
			return j, true
		}
	}
	return -1, false
}

// SearchBackward walks backward from i (exclusive), extras included, until a
// token with the given text is found.
func (s Sequence) SearchBackward(i int, text string) (int, bool) {
	if i > len(s) {
		i = len(s)
	}
	for j := i - 1; j >= 0; j-- {
		if s[j].Text == text {
			return j, true
		}
	}
	return -1, false
}

// Span maps a byte range to the first and last code tokens that lie entirely
// inside it. ok is false when no code token fits, which is the case for
// zero-width nodes and for nodes nested inside a single token such as a
// string literal.
func (s Sequence) Span(startByte, endByte int) (first, last int, ok bool) {
	first = sort.Search(len(s), func(i int) bool { return s[i].StartByte >= startByte })
	for first < len(s) && s[first].IsExtra() {
		first++
	}
	if first >= len(s) || s[first].EndByte > endByte {
		return -1, -1, false
	}

	last = sort.Search(len(s), func(i int) bool { return s[i].EndByte > endByte }) - 1
	for last >= 0 && s[last].IsExtra() {
		last--
	}
	if last < first || s[last].StartByte < startByte {
		return -1, -1, false
	}
	return first, last, true
}
