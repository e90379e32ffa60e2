// Package parser provides tree-sitter based source parsing for the languages
// codewatch can index.
//
// The parser package wraps the tree-sitter library behind a small unified
// interface. Indexers in internal/semantic build on the parse trees produced
// here; nothing above this package touches tree-sitter directly except through
// the node helpers on ParseResult.
package parser

import (
	"context"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language represents a supported programming language.
type Language string

const (
	// Python represents the Python programming language.
	Python Language = "python"
	// Java represents the Java programming language.
	Java Language = "java"
)

// Parser wraps tree-sitter for source parsing.
//
// A Parser holds one tree-sitter parser instance and must not be used from
// multiple goroutines concurrently.
type Parser struct {
	parser *sitter.Parser
	lang   Language
}

// ParseResult contains the parsed tree and metadata.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree.
	Tree *sitter.Tree
	// Root is the root node of the tree.
	Root *sitter.Node
	// Source is the original source code that was parsed.
	Source []byte
	// FilePath is the path to the source file (empty for in-memory parsing).
	FilePath string
	// Language is the programming language of the source.
	Language Language
}

// NewParser creates a parser for the given language.
// Returns an UnsupportedLanguageError if the language is not supported.
func NewParser(lang Language) (*Parser, error) {
	var p *sitter.Parser

	switch lang {
	case Python:
		p = newPythonParser()
	case Java:
		p = newJavaParser()
	default:
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}

	return &Parser{
		parser: p,
		lang:   lang,
	}, nil
}

// Parse parses source code and returns the tree.
func (p *Parser) Parse(source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
		}
	}

	return &ParseResult{
		Tree:     tree,
		Root:     tree.RootNode(),
		Source:   source,
		Language: p.lang,
	}, nil
}

// ParseFile parses a file from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	result, err := p.Parse(source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}

	result.FilePath = path
	return result, nil
}

// Language returns the language this parser is configured for.
func (p *Parser) Language() Language {
	return p.lang
}

// Close releases parser resources.
// After calling Close, the parser should not be used.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors returns true if the parse tree contains syntax errors or
// missing nodes.
func (r *ParseResult) HasErrors() bool {
	if r.Root == nil {
		return false
	}
	return r.Root.HasError()
}

// WalkNodes traverses the tree depth-first, calling the visitor function
// for each node. If the visitor returns false, traversal stops.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

// walkNode is a helper for depth-first tree traversal.
func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) bool {
	if !visitor(node) {
		return false
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if !walkNode(node.Child(int(i)), visitor) {
			return false
		}
	}
	return true
}

// FindNodes returns all nodes matching the given predicate.
func (r *ParseResult) FindNodes(predicate func(*sitter.Node) bool) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if predicate(node) {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// FindNodesByType returns all nodes of the specified type.
func (r *ParseResult) FindNodesByType(nodeType string) []*sitter.Node {
	return r.FindNodes(func(node *sitter.Node) bool {
		return node.Type() == nodeType
	})
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	return node.Content(r.Source)
}

// LanguageFromExtension returns the language for a file extension.
// Returns empty string if the extension is not recognized.
func LanguageFromExtension(ext string) Language {
	switch ext {
	case ".py", ".pyi":
		return Python
	case ".java":
		return Java
	default:
		return ""
	}
}

// SupportedExtensions returns all file extensions supported for parsing.
func SupportedExtensions() []string {
	return []string{
		".py", ".pyi",
		".java",
	}
}

// SupportedLanguages returns all language identifiers with a parser.
func SupportedLanguages() []Language {
	return []Language{Python, Java}
}
