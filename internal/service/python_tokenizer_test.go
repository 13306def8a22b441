package service

import (
	"context"
	"errors"
	"testing"

	"commas-go/internal/model/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePython(t *testing.T, source string) *Document {
	t.Helper()
	tokenizer, err := NewPythonTokenizer()
	require.NoError(t, err)

	doc, err := tokenizer.Parse(context.Background(), []byte(source), "test.py")
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func texts(tokens token.Sequence) []string {
	result := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		result = append(result, tok.Text)
	}
	return result
}

func TestPythonTokenizer_CommentsAndNewlines(t *testing.T) {
	doc := parsePython(t, "x = [\n    1,  # one\n]\n")

	assert.Equal(t, []string{"x", "=", "[", "\n", "1", ",", "# one", "\n", "]", "\n"}, texts(doc.Tokens))
	assert.Equal(t, token.KindComment, doc.Tokens[6].Kind)
	assert.Equal(t, token.KindNewline, doc.Tokens[7].Kind)

	one := doc.Tokens[4]
	assert.Equal(t, token.Position{Line: 2, Column: 4, Offset: 10}, one.Start)
	assert.Equal(t, token.Position{Line: 2, Column: 5, Offset: 11}, one.End)

	newline := doc.Tokens[3]
	assert.Equal(t, token.Position{Line: 1, Column: 5, Offset: 5}, newline.Start)
	assert.Equal(t, token.Position{Line: 1, Column: 6, Offset: 6}, newline.End)
}

func TestPythonTokenizer_LineContinuation(t *testing.T) {
	doc := parsePython(t, "x = 1 + \\\n    2\n")

	assert.Equal(t, []string{"x", "=", "1", "+", "2", "\n"}, texts(doc.Tokens))
}

func TestPythonTokenizer_StringIsSingleToken(t *testing.T) {
	doc := parsePython(t, "x = \"\"\"a\nb\"\"\"\ny = f\"{a}\"\n")

	assert.Equal(t, []string{"x", "=", "\"\"\"a\nb\"\"\"", "\n", "y", "=", "f\"{a}\"", "\n"}, texts(doc.Tokens))
	assert.Equal(t, 2, doc.Tokens[2].End.Line)
}

func TestPythonTokenizer_CharacterPositions(t *testing.T) {
	doc := parsePython(t, "s = 'é'\nt = 1\n")

	one := doc.Tokens[len(doc.Tokens)-2]
	require.Equal(t, "1", one.Text)
	assert.Equal(t, token.Position{Line: 2, Column: 4, Offset: 12}, one.Start)
	assert.Equal(t, 13, one.StartByte)
}

func TestPythonTokenizer_NodeTokens(t *testing.T) {
	doc := parsePython(t, "f(a)\n")

	root := doc.Root()
	first, last, ok := doc.NodeTokens(root)
	require.True(t, ok)
	assert.Equal(t, "f", doc.Tokens[first].Text)
	assert.Equal(t, ")", doc.Tokens[last].Text)
}

func TestPythonTokenizer_ParseError(t *testing.T) {
	tokenizer, err := NewPythonTokenizer()
	require.NoError(t, err)

	_, err = tokenizer.Parse(context.Background(), []byte("def f(:\n    pass\n"), "broken.py")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.py", parseErr.Filename)
	assert.Equal(t, 1, parseErr.Line)
}

func TestPythonTokenizer_CancelledContext(t *testing.T) {
	tokenizer, err := NewPythonTokenizer()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tokenizer.Parse(ctx, []byte("x = 1\n"), "x.py")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenizerRegistry_Extensions(t *testing.T) {
	registry, err := NewDefaultTokenizerRegistry()
	require.NoError(t, err)

	tok, ok := registry.GetTokenizerForFile("pkg/module.py")
	require.True(t, ok)
	assert.Equal(t, "python", tok.Language())

	_, ok = registry.GetTokenizerForFile("stubs/module.PYI")
	assert.True(t, ok)

	_, ok = registry.GetTokenizerForFile("main.go")
	assert.False(t, ok)

	assert.Equal(t, []string{"python"}, registry.SupportedLanguages())
}
