package service

import (
	"context"
	"path/filepath"
	"strings"
)

// Tokenizer defines the interface for a language-specific tree/token provider
type Tokenizer interface {
	// Parse builds the syntax tree and token stream for one source text
	Parse(ctx context.Context, source []byte, filename string) (*Document, error)

	// Language returns the language this tokenizer handles
	Language() string

	// Extensions returns the file extensions handled by this tokenizer
	Extensions() []string
}

// TokenizerRegistry manages tokenizers for different languages
type TokenizerRegistry struct {
	tokenizers map[string]Tokenizer
	extensions map[string]string // file extension -> language
}

// NewTokenizerRegistry creates a new tokenizer registry
func NewTokenizerRegistry() *TokenizerRegistry {
	return &TokenizerRegistry{
		tokenizers: make(map[string]Tokenizer),
		extensions: make(map[string]string),
	}
}

// NewDefaultTokenizerRegistry returns a registry with the Python tokenizer registered
func NewDefaultTokenizerRegistry() (*TokenizerRegistry, error) {
	python, err := NewPythonTokenizer()
	if err != nil {
		return nil, err
	}
	registry := NewTokenizerRegistry()
	registry.Register(python)
	return registry, nil
}

// Register adds a tokenizer for its language and extensions
func (tr *TokenizerRegistry) Register(tokenizer Tokenizer) {
	tr.tokenizers[tokenizer.Language()] = tokenizer
	for _, ext := range tokenizer.Extensions() {
		tr.extensions[strings.ToLower(ext)] = tokenizer.Language()
	}
}

// GetTokenizer returns the tokenizer for a given language
func (tr *TokenizerRegistry) GetTokenizer(language string) (Tokenizer, bool) {
	tokenizer, ok := tr.tokenizers[language]
	return tokenizer, ok
}

// GetTokenizerForFile returns the tokenizer matching the extension of path
func (tr *TokenizerRegistry) GetTokenizerForFile(path string) (Tokenizer, bool) {
	language, ok := tr.extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, false
	}
	return tr.GetTokenizer(language)
}

// SupportedLanguages returns a list of all supported languages
func (tr *TokenizerRegistry) SupportedLanguages() []string {
	languages := make([]string, 0, len(tr.tokenizers))
	for lang := range tr.tokenizers {
		languages = append(languages, lang)
	}
	return languages
}
