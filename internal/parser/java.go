package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// newJavaParser creates a tree-sitter parser configured for Java.
func newJavaParser() *sitter.Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	return parser
}
