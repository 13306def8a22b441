package fixer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidOffset = errors.New("invalid insertion offset")

// Apply inserts a comma at each character offset of source. Offsets must be
// strictly ascending and lie within the text; the end of the text is a valid
// offset.
func Apply(source string, offsets []int) (string, error) {
	if len(offsets) == 0 {
		return source, nil
	}

	for i, offset := range offsets {
		if offset < 0 || (i > 0 && offset <= offsets[i-1]) {
			return "", fmt.Errorf("%w: %d at position %d", ErrInvalidOffset, offset, i)
		}
	}

	var out strings.Builder
	out.Grow(len(source) + len(offsets))

	next := 0
	chars := 0
	// an invalid byte counts as one character and is copied as is
	for i := 0; i < len(source); {
		_, size := utf8.DecodeRuneInString(source[i:])
		if next < len(offsets) && offsets[next] == chars {
			out.WriteByte(',')
			next++
		}
		out.WriteString(source[i : i+size])
		i += size
		chars++
	}
	if next < len(offsets) && offsets[next] == chars {
		out.WriteByte(',')
		next++
	}

	if next != len(offsets) {
		return "", fmt.Errorf("%w: %d is past the end of the text (%d characters)", ErrInvalidOffset, offsets[next], chars)
	}
	return out.String(), nil
}
