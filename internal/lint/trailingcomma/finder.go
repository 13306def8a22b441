// Package trailingcomma finds positions in Python source where a trailing
// comma is legal, expected by the one-element-per-line layout, and missing.
//
// A construct qualifies when it spans several lines and its closing token
// sits on its own line. The insertion point is the end of the last code
// token before that line break; trailing comments are skipped. Calls whose
// only argument is a bare generator expression are exempt.
package trailingcomma

import (
	"context"
	"fmt"
	"sort"

	"commas-go/internal/model/token"
	"commas-go/internal/service"
)

// Coordinate is a 1-based line and a 0-based character column
type Coordinate struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Analysis holds the insertion points found in one source text
type Analysis struct {
	Filename string
	anchors  []token.Token // ordered by end position
}

// InsertionOffsets returns the character offsets where a comma is missing, ascending
func (a *Analysis) InsertionOffsets() []int {
	offsets := make([]int, 0, len(a.anchors))
	for _, anchor := range a.anchors {
		offsets = append(offsets, anchor.End.Offset)
	}
	return offsets
}

// InsertionCoordinates returns the same points as InsertionOffsets as line/column pairs
func (a *Analysis) InsertionCoordinates() []Coordinate {
	coordinates := make([]Coordinate, 0, len(a.anchors))
	for _, anchor := range a.anchors {
		coordinates = append(coordinates, Coordinate{Line: anchor.End.Line, Column: anchor.End.Column})
	}
	return coordinates
}

// Len returns the number of insertion points
func (a *Analysis) Len() int {
	return len(a.anchors)
}

// Finder runs the analysis with a given tree/token provider
type Finder struct {
	tokenizer service.Tokenizer
}

// NewFinder creates a finder. The tokenizer must be safe for concurrent use
// if the finder is shared between goroutines.
func NewFinder(tokenizer service.Tokenizer) *Finder {
	return &Finder{tokenizer: tokenizer}
}

// Find analyzes one source text. A parse failure is returned as is and no
// partial result is produced.
func (f *Finder) Find(ctx context.Context, source []byte, filename string) (*Analysis, error) {
	doc, err := f.tokenizer.Parse(ctx, source, filename)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return analyze(doc), nil
}

// FindMissingTrailingCommas analyzes Python source text
func FindMissingTrailingCommas(source, filename string) (*Analysis, error) {
	tokenizer, err := service.NewPythonTokenizer()
	if err != nil {
		return nil, fmt.Errorf("failed to create Python tokenizer: %w", err)
	}
	return NewFinder(tokenizer).Find(context.Background(), []byte(source), filename)
}

func analyze(doc *service.Document) *Analysis {
	c := newCollector(doc.Tokens)
	v := &visitor{doc: doc, c: c}
	v.visit(doc.Root(), false)

	anchors := make([]token.Token, 0, len(c.anchors))
	for i := range c.anchors {
		anchors = append(anchors, doc.Tokens[i])
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].End.Offset < anchors[j].End.Offset })

	return &Analysis{Filename: doc.Filename, anchors: anchors}
}
