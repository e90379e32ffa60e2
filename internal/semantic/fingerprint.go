package semantic

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// noAnnotation is the component stored when a construct has no type
// annotation, base list, or return type.
const noAnnotation = "<no-annotation>"

// noDefault is the single token hashed when a body or initializer is absent.
const noDefault = "<no-default>"

// interfaceDigest computes the rename-resistant interface hash.
//
// Components: kind, annotation (sentinel when empty), decorators sorted
// lexicographically, and — when hasParams — the normalized parameter list.
// The construct name is deliberately excluded.
func interfaceDigest(kind Kind, annotation string, decorators []string, params string, hasParams bool) string {
	components := []string{string(kind)}

	if annotation == "" {
		annotation = noAnnotation
	}
	components = append(components, annotation)

	sorted := make([]string, len(decorators))
	copy(sorted, decorators)
	sort.Strings(sorted)
	components = append(components, sorted...)

	if hasParams {
		components = append(components, params)
	}

	return digest(components)
}

// bodyDigest computes the content hash of a body or initializer subtree.
//
// The digest covers the ordered stream of leaf tokens with comments and
// whitespace excluded, so reformatting never changes it. A nil node hashes
// the no-default sentinel.
func bodyDigest(node *sitter.Node, source []byte, commentTypes map[string]bool) string {
	if node == nil {
		return digest([]string{noDefault})
	}

	var tokens []string
	collectTokens(node, source, commentTypes, &tokens)
	return digest(tokens)
}

// collectTokens gathers stripped leaf token text, skipping comments and
// whitespace-only tokens.
func collectTokens(node *sitter.Node, source []byte, commentTypes map[string]bool, tokens *[]string) {
	if commentTypes[node.Type()] {
		return
	}

	if node.ChildCount() == 0 {
		text := strings.TrimSpace(node.Content(source))
		if text != "" {
			*tokens = append(*tokens, text)
		}
		return
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		collectTokens(node.Child(int(i)), source, commentTypes, tokens)
	}
}

// digest hashes NUL-joined components into a 16-char hex digest.
func digest(components []string) string {
	sum := sha256.Sum256([]byte(strings.Join(components, "\x00")))
	return hex.EncodeToString(sum[:])[:16]
}

// collapseWhitespace normalizes all runs of whitespace in s to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
