package service

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"commas-go/internal/model/token"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// ParseError reports source text that is not valid Python
type ParseError struct {
	Filename string
	Line     int
	Column   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: invalid syntax", e.Filename, e.Line, e.Column)
}

// Document is one parsed source text: its syntax tree and its token stream.
// Close must be called to release the tree.
type Document struct {
	Filename string
	Source   []byte
	Tokens   token.Sequence
	tree     *tree_sitter.Tree
}

// Root returns the module node of the tree
func (d *Document) Root() *tree_sitter.Node {
	return d.tree.RootNode()
}

// NodeTokens returns the first and last code tokens of a node. ok is false
// for nodes that have no tokens of their own.
func (d *Document) NodeTokens(node *tree_sitter.Node) (first, last int, ok bool) {
	return d.Tokens.Span(int(node.StartByte()), int(node.EndByte()))
}

func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// PythonTokenizer implements tokenization for Python source code
type PythonTokenizer struct {
	language *tree_sitter.Language
}

// NewPythonTokenizer creates a new Python tokenizer
func NewPythonTokenizer() (*PythonTokenizer, error) {
	language := tree_sitter.NewLanguage(python.Language())

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set Python language: %w", err)
	}

	return &PythonTokenizer{language: language}, nil
}

// Parse builds the tree and token stream. Each call uses its own parser, so a
// PythonTokenizer is safe for concurrent use.
func (t *PythonTokenizer) Parse(ctx context.Context, source []byte, filename string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("failed to set Python language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse Python source %s", filename)
	}

	lines := newLineIndex(source)
	rootNode := tree.RootNode()
	if rootNode.HasError() {
		defer tree.Close()
		return nil, t.parseError(rootNode, lines, filename)
	}

	var leaves []leaf
	t.traverseNode(rootNode, &leaves)

	return &Document{
		Filename: filename,
		Source:   source,
		Tokens:   buildSequence(source, leaves, lines),
		tree:     tree,
	}, nil
}

func (t *PythonTokenizer) Language() string {
	return "python"
}

func (t *PythonTokenizer) Extensions() []string {
	return []string{".py", ".pyi"}
}

type leaf struct {
	kind       string
	start, end int
}

func (t *PythonTokenizer) traverseNode(node *tree_sitter.Node, leaves *[]leaf) {
	if node == nil {
		return
	}

	kind := node.Kind()
	// A string literal is a single token, whatever its children
	if node.ChildCount() == 0 || kind == "string" {
		start, end := int(node.StartByte()), int(node.EndByte())
		if start == end || kind == "line_continuation" {
			return
		}
		*leaves = append(*leaves, leaf{kind: kind, start: start, end: end})
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		t.traverseNode(node.Child(i), leaves)
	}
}

// parseError locates the first ERROR or MISSING node
func (t *PythonTokenizer) parseError(root *tree_sitter.Node, lines *lineIndex, filename string) error {
	offset := int(root.StartByte())
	if bad := firstErrorNode(root); bad != nil {
		offset = int(bad.StartByte())
	}
	pos := lines.position(offset)
	return &ParseError{Filename: filename, Line: pos.Line, Column: pos.Column}
}

func firstErrorNode(node *tree_sitter.Node) *tree_sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if bad := firstErrorNode(child); bad != nil {
			return bad
		}
	}
	return nil
}

// buildSequence turns grammar leaves into tokens and adds a line-break token
// for every physical newline between them. Newlines escaped with a backslash
// join lines and produce nothing.
func buildSequence(source []byte, leaves []leaf, lines *lineIndex) token.Sequence {
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].start < leaves[j].start })

	tokens := make(token.Sequence, 0, len(leaves)*2)
	prevEnd := 0
	for _, l := range leaves {
		if l.start < prevEnd {
			continue
		}
		tokens = appendNewlines(tokens, source, prevEnd, l.start, lines)

		kind := l.kind
		if kind == "comment" {
			kind = token.KindComment
		}
		tokens = append(tokens, token.Token{
			Kind:      kind,
			Text:      string(source[l.start:l.end]),
			Start:     lines.position(l.start),
			End:       lines.position(l.end),
			StartByte: l.start,
			EndByte:   l.end,
		})
		prevEnd = l.end
	}
	return appendNewlines(tokens, source, prevEnd, len(source), lines)
}

func appendNewlines(tokens token.Sequence, source []byte, from, to int, lines *lineIndex) token.Sequence {
	for i := from; i < to; i++ {
		switch source[i] {
		case '\\':
			j := i + 1
			if j < to && source[j] == '\r' {
				j++
			}
			if j < to && source[j] == '\n' {
				i = j
			}
		case '\n':
			start := lines.position(i)
			tokens = append(tokens, token.Token{
				Kind:      token.KindNewline,
				Text:      "\n",
				Start:     start,
				End:       token.Position{Line: start.Line, Column: start.Column + 1, Offset: start.Offset + 1},
				StartByte: i,
				EndByte:   i + 1,
			})
		}
	}
	return tokens
}

// lineIndex converts byte offsets to line/character positions
type lineIndex struct {
	source     []byte
	lineStarts []int // byte offset of each line start
	runeStarts []int // character offset of each line start
}

func newLineIndex(source []byte) *lineIndex {
	li := &lineIndex{
		source:     source,
		lineStarts: []int{0},
		runeStarts: []int{0},
	}
	runes := 0
	for i := 0; i < len(source); {
		r, size := utf8.DecodeRune(source[i:])
		i += size
		runes++
		if r == '\n' {
			li.lineStarts = append(li.lineStarts, i)
			li.runeStarts = append(li.runeStarts, runes)
		}
	}
	return li
}

func (li *lineIndex) position(offset int) token.Position {
	line := sort.Search(len(li.lineStarts), func(i int) bool { return li.lineStarts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	column := utf8.RuneCount(li.source[li.lineStarts[line]:offset])
	return token.Position{
		Line:   line + 1,
		Column: column,
		Offset: li.runeStarts[line] + column,
	}
}
