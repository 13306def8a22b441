package trailingcomma

import (
	"commas-go/internal/service"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

type visitor struct {
	doc *service.Document
	c   *collector
}

// visit walks the tree depth-first. Patterns of a match statement look like
// lists and tuples but are not literals, so they are never candidates.
func (v *visitor) visit(node *tree_sitter.Node, inPattern bool) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "string":
		// one token; interpolations inside it have no tokens of their own
		return
	case "case_pattern":
		inPattern = true
	case "call":
		v.visitCall(node)
	case "function_definition":
		v.visitFunctionDef(node)
	case "class_definition":
		v.visitClassDef(node)
	case "tuple", "tuple_pattern":
		if !inPattern {
			v.visitTuple(node, true)
		}
	case "expression_list", "pattern_list":
		if !inPattern {
			v.visitTuple(node, false)
		}
	case "subscript", "type_parameter":
		// an annotation's Dict[str, int] is a type_parameter, not a subscript
		v.visitSubscript(node)
	case "list", "list_pattern", "set", "dictionary":
		if !inPattern {
			v.visitCollection(node)
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		v.visit(node.Child(i), inPattern)
	}
}

func (v *visitor) visitCall(node *tree_sitter.Node) {
	arguments := node.ChildByFieldName("arguments")
	// sum(x for x in y): the generator's parentheses are the call's own and
	// a trailing comma is not allowed there
	if arguments == nil || arguments.Kind() != "argument_list" {
		return
	}
	if len(elements(arguments)) == 0 {
		return
	}

	first, last, ok := v.doc.NodeTokens(node)
	if !ok {
		return
	}
	v.c.checkSpan(first, last)
}

func (v *visitor) visitTuple(node *tree_sitter.Node, parenthesized bool) {
	if len(elements(node)) == 0 {
		return
	}

	first, last, ok := v.doc.NodeTokens(node)
	if !ok {
		return
	}
	if !parenthesized {
		last = v.c.closingToken(last)
	}
	v.c.checkSpan(first, last)
}

// visitSubscript handles a[1, 2] and Dict[str, int], where the subscripts
// form a tuple without parentheses of its own.
func (v *visitor) visitSubscript(node *tree_sitter.Node) {
	var subscripts []*tree_sitter.Node
	inBrackets, tuple := false, false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch {
		case child.Kind() == "[" && !inBrackets:
			inBrackets = true
		case !inBrackets:
		case child.Kind() == ",":
			tuple = true
		case child.IsNamed() && child.Kind() != "comment":
			subscripts = append(subscripts, child)
		}
	}
	if !tuple || len(subscripts) == 0 {
		return
	}

	first, _, ok := v.doc.NodeTokens(subscripts[0])
	if !ok {
		return
	}
	_, last, ok := v.doc.NodeTokens(subscripts[len(subscripts)-1])
	if !ok {
		return
	}
	v.c.checkSpan(first, v.c.closingToken(v.c.withTrailingComma(last)))
}

func (v *visitor) visitCollection(node *tree_sitter.Node) {
	if len(elements(node)) == 0 {
		return
	}

	first, last, ok := v.doc.NodeTokens(node)
	if !ok {
		return
	}
	v.c.checkSpan(first, last)
}

func (v *visitor) visitFunctionDef(node *tree_sitter.Node) {
	parameters := parameterList(node.ChildByFieldName("parameters"))
	if len(parameters) == 0 {
		return
	}

	firstParam, _, ok := v.doc.NodeTokens(parameters[0])
	if !ok {
		return
	}
	open, ok := v.doc.Tokens.SearchBackward(firstParam, "(")
	if !ok {
		return
	}

	// The closing parenthesis is the last ")" before the body, or before the
	// return annotation when there is one.
	from := node.ChildByFieldName("return_type")
	if from == nil {
		from = node.ChildByFieldName("body")
	}
	if from == nil {
		return
	}
	fromToken, _, ok := v.doc.NodeTokens(from)
	if !ok {
		return
	}
	closing, ok := v.doc.Tokens.SearchBackward(fromToken, ")")
	if !ok || closing < firstParam {
		return
	}

	v.c.checkSpan(open, closing)
}

func (v *visitor) visitClassDef(node *tree_sitter.Node) {
	bases := baseList(node.ChildByFieldName("superclasses"))
	if len(bases) == 0 {
		return
	}

	firstBase, _, ok := v.doc.NodeTokens(bases[0])
	if !ok {
		return
	}
	_, lastBase, ok := v.doc.NodeTokens(bases[len(bases)-1])
	if !ok {
		return
	}

	open, ok := v.doc.Tokens.SearchBackward(firstBase, "(")
	if !ok {
		return
	}
	closing, ok := v.doc.Tokens.SearchForward(lastBase, ")")
	if !ok {
		return
	}
	v.c.checkSpan(open, closing)
}

// elements returns the named children of a bracketed construct, comments excluded
func elements(node *tree_sitter.Node) []*tree_sitter.Node {
	var result []*tree_sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		result = append(result, child)
	}
	return result
}

// parameterList builds a fresh ordered slice of parameters: positional
// (positional-only included), *args, keyword-only, **kwargs. The bare "*"
// and "/" markers are separators, not parameters.
func parameterList(parameters *tree_sitter.Node) []*tree_sitter.Node {
	if parameters == nil {
		return nil
	}

	var positional, keywordOnly []*tree_sitter.Node
	var varargs, kwargs *tree_sitter.Node
	afterStar := false
	for _, child := range elements(parameters) {
		switch parameterKind(child) {
		case "list_splat_pattern":
			varargs = child
			afterStar = true
		case "keyword_separator":
			afterStar = true
		case "dictionary_splat_pattern":
			kwargs = child
		case "positional_separator":
		default:
			if afterStar {
				keywordOnly = append(keywordOnly, child)
			} else {
				positional = append(positional, child)
			}
		}
	}

	result := make([]*tree_sitter.Node, 0, len(positional)+len(keywordOnly)+2)
	result = append(result, positional...)
	if varargs != nil {
		result = append(result, varargs)
	}
	result = append(result, keywordOnly...)
	if kwargs != nil {
		result = append(result, kwargs)
	}
	return result
}

// parameterKind looks through a type annotation, so that "*args: int" is
// classified like "*args"
func parameterKind(parameter *tree_sitter.Node) string {
	if parameter.Kind() == "typed_parameter" && parameter.NamedChildCount() > 0 {
		switch inner := parameter.NamedChild(0).Kind(); inner {
		case "list_splat_pattern", "dictionary_splat_pattern":
			return inner
		}
	}
	return parameter.Kind()
}

// baseList returns the positional base classes of a class definition.
// Keyword arguments such as metaclass=M are not bases.
func baseList(superclasses *tree_sitter.Node) []*tree_sitter.Node {
	if superclasses == nil {
		return nil
	}

	var bases []*tree_sitter.Node
	for _, child := range elements(superclasses) {
		switch child.Kind() {
		case "keyword_argument", "dictionary_splat":
			continue
		}
		bases = append(bases, child)
	}
	return bases
}
