package trailingcomma

import (
	"context"
	"errors"
	"testing"

	"commas-go/internal/fixer"
	"commas-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(t *testing.T, source string) *Analysis {
	t.Helper()
	analysis, err := FindMissingTrailingCommas(source, "test.py")
	require.NoError(t, err)
	return analysis
}

func coords(pairs ...int) []Coordinate {
	result := make([]Coordinate, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		result = append(result, Coordinate{Line: pairs[i], Column: pairs[i+1]})
	}
	return result
}

func TestFind_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []Coordinate
	}{
		{
			name:     "function parameter",
			source:   "def f(\n    a\n): pass\n",
			expected: coords(2, 5),
		},
		{
			name:     "list with trailing comment",
			source:   "x = [\n    1,\n    2  # last\n]\n",
			expected: coords(3, 5),
		},
		{
			name:     "list already terminated",
			source:   "x = [\n    1,\n    2,\n]\n",
			expected: coords(),
		},
		{
			name:     "single line call",
			source:   "f(a, b)\n",
			expected: coords(),
		},
		{
			name:     "sole generator argument",
			source:   "sum(\n    x for x in y\n)\n",
			expected: coords(),
		},
		{
			name:     "class bases",
			source:   "class C(\n    Base1,\n    Base2\n): pass\n",
			expected: coords(3, 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, find(t, tt.source).InsertionCoordinates())
		})
	}
}

func TestFind_Constructs(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []Coordinate
	}{
		{"call positional", "foo(\n    a,\n    b\n)\n", coords(3, 5)},
		{"call keyword only", "foo(\n    key=1\n)\n", coords(2, 9)},
		{"call closing on last line", "foo(a,\n    b)\n", coords()},
		{"parenthesized generator argument", "foo(\n    (x for x in y)\n)\n", coords(2, 18)},
		{"generator with other argument", "foo(\n    (x for x in y),\n    z\n)\n", coords(3, 5)},
		{"decorator call", "@decorator(\n    a\n)\ndef f(): pass\n", coords(2, 5)},
		{"comment line before closing", "foo(\n    a\n    # note\n)\n", coords(2, 5)},
		{"blank line before closing", "foo(\n    a\n\n)\n", coords(2, 5)},
		{"tuple", "x = (\n    1,\n    2\n)\n", coords(3, 5)},
		{"bare tuple with continuation", "x = 1, \\\n    2\n", coords()},
		{"subscript tuple", "x[\n    1,\n    2\n]\n", coords(3, 5)},
		{"subscript single element", "x[\n    1\n]\n", coords()},
		{"subscript trailing comma", "x[\n    1,\n]\n", coords()},
		{"annotated assignment", "x: Dict[\n    str,\n    int\n] = {}\n", coords(3, 7)},
		{"generic return annotation", "def f() -> Tuple[\n    int,\n    str\n]: pass\n", coords(3, 7)},
		{"generic parameter annotation", "def f(\n    a: Dict[\n        str,\n        int\n    ],\n): pass\n", coords(4, 11)},
		{"generic annotation trailing comma", "x: Tuple[\n    int,\n] = ()\n", coords()},
		{"set", "s = {\n    1\n}\n", coords(2, 5)},
		{"dict", "d = {\n    'a': 1\n}\n", coords(2, 10)},
		{"dict splat", "d = {\n    **base\n}\n", coords(2, 10)},
		{"list target", "[\n    a,\n    b\n] = c\n", coords(3, 5)},
		{"nested list in call", "foo(\n    [\n        1\n    ]\n)\n", coords(3, 9, 4, 5)},
		{"tuple inside call", "f((\n    1,\n    2\n)\n)\n", coords(3, 5, 4, 1)},
		{"multi-line string element", "x = [\n    \"\"\"a\n    b\"\"\"\n]\n", coords(3, 8)},
		{"class keyword after base", "class C(\n    Base,\n    metaclass=Meta\n): pass\n", coords(3, 18)},
		{"class keyword only", "class C(\n    metaclass=Meta\n): pass\n", coords()},
		{"return annotation", "def f(\n    a\n) -> int:\n    pass\n", coords(2, 5)},
		{"parenthesized return annotation", "def f(\n    a\n) -> (int):\n    pass\n", coords(2, 5)},
		{"typed varargs", "def f(\n    *args: int\n): pass\n", coords(2, 14)},
		{"positional-only marker", "def f(\n    a,\n    /\n): pass\n", coords(3, 5)},
		{"method", "class C:\n    def m(\n        self\n    ): pass\n", coords(3, 12)},
		{"lambda is not a definition", "f = lambda a, b: (a, b)\n", coords()},
		{"call inside f-string", "x = f\"{foo(a)}\"\n", coords()},
		{"match pattern", "match x:\n    case [\n        a,\n        b\n    ]:\n        pass\n", coords()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, find(t, tt.source).InsertionCoordinates())
		})
	}
}

func TestFind_AsyncFunctionDef(t *testing.T) {
	tests := []struct {
		source   string
		expected []int
	}{
		{"\nasync def test(\n    a\n): pass\n", []int{22}},
		{"\nasync def test(\n    param=value\n): pass\n", []int{32}},
		{"\nasync def test(\n    *args\n): pass\n", []int{26}},
		{"\nasync def test(\n    a,\n    param=value\n): pass\n", []int{39}},
		{"\nasync def test(\n    a,\n    *,\n    param=value\n): pass\n", []int{46}},
		{"\nasync def test(\n    *,\n    param=value\n): pass\n", []int{39}},
		{"\nasync def test(\n    a,\n    *args,\n    param=value\n): pass\n", []int{50}},
		{"\nasync def test(\n    a,\n    *args,\n    param=value,\n    **kwargs\n): pass\n", []int{64}},
		{"\nasync def test(\n    a,\n    *args,\n    param=value,\n    **kwargs  # comment\n): pass\n", []int{64}},
		{"\nasync def test(\n    a=((),(),())\n): pass\n", []int{33}},
		{"\nasync def test(\n    a=b() + c(1) + d()\n): pass\n", []int{39}},
		{"\nasync def test(\n    a=b[c:d]\n): pass\n", []int{29}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, find(t, tt.source).InsertionOffsets(), tt.source)
	}
}

func TestFind_AsyncFunctionDefAlreadyTerminated(t *testing.T) {
	sources := []string{
		"\nasync def test(\n    a,\n): pass\n",
		"\nasync def test(\n    param=value,\n): pass\n",
		"\nasync def test(\n    *args,\n): pass\n",
		"\nasync def test(\n    a,\n    param=value,\n): pass\n",
		"\nasync def test(\n    a,\n    *,\n    param=value,\n): pass\n",
		"\nasync def test(\n    *,\n    param=value,\n): pass\n",
		"\nasync def test(\n    a,\n    *args,\n    param=value,\n): pass\n",
		"\nasync def test(\n    a,\n    *args,\n    param=value,\n    **kwargs,\n): pass\n",
		"\nasync def test(\n    a,\n    *args,\n    param=value,\n    **kwargs,  # comment\n): pass\n",
	}

	for _, source := range sources {
		assert.Empty(t, find(t, source).InsertionOffsets(), source)
	}
}

func TestFind_EmptyConstructs(t *testing.T) {
	sources := []string{
		"\nasync def test(): pass\n",
		"\nasync def test(\n): pass\n",
		"\nasync def test(\n\n): pass\n",
		"f(\n)\n",
		"x = (\n)\n",
		"x = [\n]\n",
		"x = {\n}\n",
		"class C(\n): pass\n",
	}

	for _, source := range sources {
		assert.Empty(t, find(t, source).InsertionOffsets(), source)
	}
}

func TestFind_OffsetsAndCoordinatesAgree(t *testing.T) {
	analysis := find(t, "x = [\n    'é'\n]\ny = (\n    1,\n    2\n)\n")

	assert.Equal(t, []int{13, 34}, analysis.InsertionOffsets())
	assert.Equal(t, coords(2, 7, 6, 5), analysis.InsertionCoordinates())
	assert.Equal(t, 2, analysis.Len())
}

func TestFind_Idempotent(t *testing.T) {
	sources := []string{
		"def f(\n    a,\n    *args,\n    b=1,\n    **kwargs  # rest\n):\n    return foo(\n        a,\n        [\n            1,\n            2\n        ],\n        {\n            'k': (\n                b\n            )\n        }\n    )\n",
		"class C(\n    Base\n):\n    x = {\n        1\n    }\n    y = z[\n        1,\n        2\n    ]\n",
		"result = call(\n    other(\n        a\n    )\n)\n",
	}

	for _, source := range sources {
		analysis := find(t, source)
		require.NotZero(t, analysis.Len(), source)

		fixed, err := fixer.Apply(source, analysis.InsertionOffsets())
		require.NoError(t, err)

		again := find(t, fixed)
		assert.Empty(t, again.InsertionOffsets(), fixed)
	}
}

func TestFind_ParseError(t *testing.T) {
	analysis, err := FindMissingTrailingCommas("def f(:\n    pass\n", "broken.py")
	require.Error(t, err)
	assert.Nil(t, analysis)

	var parseErr *service.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.py", parseErr.Filename)
}

func TestFinder_Reusable(t *testing.T) {
	tokenizer, err := service.NewPythonTokenizer()
	require.NoError(t, err)
	finder := NewFinder(tokenizer)

	first, err := finder.Find(context.Background(), []byte("f(\n    a\n)\n"), "a.py")
	require.NoError(t, err)
	second, err := finder.Find(context.Background(), []byte("f(\n    a\n)\n"), "b.py")
	require.NoError(t, err)

	assert.Equal(t, first.InsertionOffsets(), second.InsertionOffsets())
	assert.Equal(t, "b.py", second.Filename)
}
