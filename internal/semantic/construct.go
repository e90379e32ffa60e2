// Package semantic extracts code constructs from parsed source trees and
// fingerprints them for rename-resistant tracking.
//
// A Construct is a semantic unit (class, method, field, variable) identified
// by a dotted qualified name and two content digests: an interface hash that
// captures the signature and a body hash that captures the implementation or
// value. The split lets callers tell a rename apart from a real change.
package semantic

import (
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
)

// Kind classifies a construct.
type Kind string

const (
	// KindVariable is a module-level variable.
	KindVariable Kind = "variable"
	// KindFunction is a module-level function.
	KindFunction Kind = "function"
	// KindField is a class field or attribute (enum constants included).
	KindField Kind = "field"
	// KindMethod is a method or constructor within a class.
	KindMethod Kind = "method"
	// KindClass is a class declaration.
	KindClass Kind = "class"
	// KindInterface is an interface declaration (Java).
	KindInterface Kind = "interface"
	// KindEnum is an enum declaration.
	KindEnum Kind = "enum"
)

// RoleConst marks constants (CONSTANT_CASE variables and fields,
// Java static final fields, enum constants).
const RoleConst = "const"

// IsContainer reports whether the kind can hold members.
func (k Kind) IsContainer() bool {
	return k == KindClass || k == KindInterface || k == KindEnum
}

// Construct is a parsed code construct.
//
// Constructs are derived per parse and never mutated. Line numbers are
// 1-based inclusive; StartLine includes attached decorators or annotations
// while DefinitionLine points at the declaration keyword itself.
type Construct struct {
	// Path is the repo-relative file path the construct was parsed from.
	Path string
	// Kind classifies the construct.
	Kind Kind
	// Qualname is the dotted qualified name. Java methods carry a
	// parenthesized parameter type list for overload distinction,
	// e.g. "Calculator.add(int,int)".
	Qualname string
	// Role is RoleConst for constants, empty otherwise.
	Role string
	// StartLine is the first line of the construct, decorators included.
	StartLine int
	// EndLine is the last line of the construct.
	EndLine int
	// DefinitionLine is the line of the class/def/declaration keyword.
	DefinitionLine int
	// InterfaceHash digests the signature: kind, type annotation,
	// decorators, parameters. It excludes the name.
	InterfaceHash string
	// BodyHash digests the body or initializer token stream.
	BodyHash string
	// BaseClasses lists base class names as written in source, in order.
	// Nil for non-containers and containers without bases.
	BaseClasses []string
	// HasParseError is true when the enclosing file's tree contained
	// error or missing nodes.
	HasParseError bool
}

// MemberFingerprint is the stored fingerprint of a container member,
// keyed externally by the member's relative id.
type MemberFingerprint struct {
	Kind          Kind   `json:"kind"`
	InterfaceHash string `json:"interface_hash"`
	BodyHash      string `json:"body_hash"`
}

// Fingerprint returns the construct's stored fingerprint form.
func (c *Construct) Fingerprint() MemberFingerprint {
	return MemberFingerprint{
		Kind:          c.Kind,
		InterfaceHash: c.InterfaceHash,
		BodyHash:      c.BodyHash,
	}
}

// RelativeID returns the member id of qualname within container, or
// ("", false) when qualname is not a direct member of container.
// Direct means exactly one path segment below the container: members of
// nested containers are excluded.
func RelativeID(containerQualname, qualname string) (string, bool) {
	prefix := containerQualname + "."
	if !strings.HasPrefix(qualname, prefix) {
		return "", false
	}
	rest := qualname[len(prefix):]
	if rest == "" || strings.Contains(rest, ".") {
		return "", false
	}
	return rest, true
}

// Import records one entry of a file's import table: the module (or Java
// package path) a local name resolves through, and the original name in
// that module.
type Import struct {
	Module string
	Name   string
}

// Indexer is the per-language construct extraction contract.
//
// Implementations are stateless across calls but hold one parser instance,
// so a single Indexer must not be used from multiple goroutines.
type Indexer interface {
	// Language returns the language this indexer handles.
	Language() parser.Language

	// IndexFile extracts all constructs from source. Parse failures are
	// not fatal: a broken file yields best-effort constructs with
	// HasParseError set.
	IndexFile(source, path string) []Construct

	// FindConstruct returns the construct with the exact qualname, or nil
	// on zero or multiple matches. A non-empty kind narrows the search.
	FindConstruct(source, path, qualname string, kind Kind) *Construct

	// ContainerMembers returns the direct members of a container.
	// includePrivate controls the Python underscore-prefix filter and is
	// ignored for Java. A non-nil preindexed slice avoids re-parsing.
	ContainerMembers(source, path, containerQualname string, includePrivate bool, preindexed []Construct) []Construct

	// ExtractImports returns the file's import table keyed by local name.
	// Wildcard and static imports are skipped.
	ExtractImports(source string) map[string]Import
}
