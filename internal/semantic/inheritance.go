package semantic

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
)

// maxInheritanceDepth bounds chain recursion.
const maxInheritanceDepth = 10

// ChainEntry is one ancestor in an inheritance chain.
type ChainEntry struct {
	Path      string
	Qualname  string
	Construct Construct
}

// InheritanceResolver resolves inheritance relationships across files.
//
// The resolver works on demand: it only indexes the files needed to walk a
// class's ancestor chain, resolving base-class names through the importing
// file's import table. Files that cannot be read or resolved are skipped
// silently; an incomplete chain is never an error.
type InheritanceResolver struct {
	repoRoot string
	language parser.Language
	indexer  Indexer

	constructsByPath map[string][]Construct
	classLookup      map[classKey]Construct
	importsByPath    map[string]map[string]Import // local name -> resolved path + original name
	sourceByPath     map[string]string
}

type classKey struct {
	path     string
	qualname string
}

// NewInheritanceResolver creates a resolver rooted at repoRoot for one
// language.
func NewInheritanceResolver(repoRoot string, language parser.Language, indexer Indexer) *InheritanceResolver {
	return &InheritanceResolver{
		repoRoot:         repoRoot,
		language:         language,
		indexer:          indexer,
		constructsByPath: map[string][]Construct{},
		classLookup:      map[classKey]Construct{},
		importsByPath:    map[string]map[string]Import{},
		sourceByPath:     map[string]string{},
	}
}

// AddFile registers a file's constructs (and optionally its source, needed
// for import parsing) with the resolver.
func (r *InheritanceResolver) AddFile(filePath string, constructs []Construct, source string) {
	r.constructsByPath[filePath] = constructs
	for _, c := range constructs {
		if c.Kind.IsContainer() {
			r.classLookup[classKey{filePath, c.Qualname}] = c
		}
	}
	if source != "" {
		r.sourceByPath[filePath] = source
	}
}

// InheritanceChain returns all ancestors of a class, immediate parent
// first, recursing depth-first from each resolved ancestor. Cycles are cut
// by a visited set and the chain depth is capped.
func (r *InheritanceResolver) InheritanceChain(filePath, qualname string) []ChainEntry {
	var chain []ChainEntry
	visited := map[classKey]bool{}
	r.buildChain(filePath, qualname, &chain, visited, 0)
	return chain
}

func (r *InheritanceResolver) buildChain(filePath, qualname string, chain *[]ChainEntry, visited map[classKey]bool, depth int) {
	if depth >= maxInheritanceDepth {
		return
	}

	construct, ok := r.classLookup[classKey{filePath, qualname}]
	if !ok || len(construct.BaseClasses) == 0 {
		return
	}

	r.ensureImportsParsed(filePath)

	for _, baseName := range construct.BaseClasses {
		resolved, ok := r.resolveBaseClass(filePath, baseName)
		if !ok {
			continue // stdlib, third-party, or otherwise external
		}

		key := classKey{resolved.Path, resolved.Qualname}
		if visited[key] {
			continue
		}
		visited[key] = true
		*chain = append(*chain, resolved)

		r.buildChain(resolved.Path, resolved.Qualname, chain, visited, depth+1)
	}
}

// ensureImportsParsed resolves a file's import table once.
func (r *InheritanceResolver) ensureImportsParsed(filePath string) {
	if _, ok := r.importsByPath[filePath]; ok {
		return
	}

	source, ok := r.sourceByPath[filePath]
	if !ok {
		r.importsByPath[filePath] = map[string]Import{}
		return
	}

	raw := r.indexer.ExtractImports(source)
	resolved := map[string]Import{}
	for name, imp := range raw {
		if modulePath, ok := r.resolveModulePath(imp.Module, filePath); ok {
			resolved[name] = Import{Module: modulePath, Name: imp.Name}
		}
	}
	r.importsByPath[filePath] = resolved
}

// resolveBaseClass resolves a base name as written in source to its
// defining construct.
func (r *InheritanceResolver) resolveBaseClass(fromPath, baseName string) (ChainEntry, bool) {
	// Same-file definitions win.
	if c, ok := r.classLookup[classKey{fromPath, baseName}]; ok {
		return ChainEntry{Path: fromPath, Qualname: baseName, Construct: c}, true
	}

	imports := r.importsByPath[fromPath]

	// Dotted name: the first segment may be an imported module.
	if idx := strings.Index(baseName, "."); idx >= 0 {
		alias := baseName[:idx]
		rest := baseName[idx+1:]
		if imp, ok := imports[alias]; ok {
			r.ensureFileIndexed(imp.Module)
			if c, ok := r.classLookup[classKey{imp.Module, rest}]; ok {
				return ChainEntry{Path: imp.Module, Qualname: rest, Construct: c}, true
			}
		}
	}

	// Simple imported name.
	if imp, ok := imports[baseName]; ok {
		r.ensureFileIndexed(imp.Module)
		if c, ok := r.classLookup[classKey{imp.Module, imp.Name}]; ok {
			return ChainEntry{Path: imp.Module, Qualname: imp.Name, Construct: c}, true
		}
	}

	return ChainEntry{}, false
}

// ensureFileIndexed lazily reads and indexes a repo file.
func (r *InheritanceResolver) ensureFileIndexed(filePath string) {
	if _, ok := r.constructsByPath[filePath]; ok {
		return
	}

	full := filepath.Join(r.repoRoot, filepath.FromSlash(filePath))
	data, err := os.ReadFile(full)
	if err != nil {
		return
	}

	source := string(data)
	r.AddFile(filePath, r.indexer.IndexFile(source, filePath), source)
}

// resolveModulePath converts a module name from an import statement into a
// repo-relative file path, or reports that the module is external.
func (r *InheritanceResolver) resolveModulePath(module, fromPath string) (string, bool) {
	if r.language == parser.Java {
		return r.resolveJavaImport(module)
	}
	return r.resolvePythonImport(module, fromPath)
}

// resolvePythonImport maps dotted modules to slashed paths, trying both
// module.py and package/__init__.py. Relative imports climb from the
// importing file's directory.
func (r *InheritanceResolver) resolvePythonImport(module, fromPath string) (string, bool) {
	if strings.HasPrefix(module, ".") {
		dots := len(module) - len(strings.TrimLeft(module, "."))
		remainder := module[dots:]

		dir := path.Dir(fromPath)
		for i := 0; i < dots-1; i++ {
			dir = path.Dir(dir)
		}

		candidate := dir
		if remainder != "" {
			candidate = path.Join(dir, strings.ReplaceAll(remainder, ".", "/"))
		}

		if p := candidate + ".py"; r.fileExists(p) {
			return p, true
		}
		if p := path.Join(candidate, "__init__.py"); r.fileExists(p) {
			return p, true
		}
		return "", false
	}

	slashed := strings.ReplaceAll(module, ".", "/")
	if p := slashed + ".py"; r.fileExists(p) {
		return p, true
	}
	if p := slashed + "/__init__.py"; r.fileExists(p) {
		return p, true
	}
	return "", false
}

// resolveJavaImport maps "com.example.User" to "com/example/User.java",
// probed under the common source roots.
func (r *InheritanceResolver) resolveJavaImport(fullImport string) (string, bool) {
	candidate := strings.ReplaceAll(fullImport, ".", "/") + ".java"
	for _, srcRoot := range []string{"", "src/", "src/main/java/"} {
		if p := srcRoot + candidate; r.fileExists(p) {
			return p, true
		}
	}
	return "", false
}

func (r *InheritanceResolver) fileExists(relPath string) bool {
	_, err := os.Stat(filepath.Join(r.repoRoot, filepath.FromSlash(relPath)))
	return err == nil
}

// MemberID returns the identifier used for override comparison. Python has
// no overloading, so a bare name masks every signature; Java overloads are
// siblings, so the full name(params) form is kept.
func MemberID(relativeID string, language parser.Language) string {
	if language == parser.Python {
		if idx := strings.Index(relativeID, "("); idx >= 0 {
			return relativeID[:idx]
		}
	}
	return relativeID
}

// OverriddenMembers returns the member ids a container defines directly.
func OverriddenMembers(members []Construct, containerQualname string, language parser.Language) map[string]bool {
	overridden := map[string]bool{}
	for _, c := range members {
		rel, ok := RelativeID(containerQualname, c.Qualname)
		if !ok {
			continue
		}
		overridden[MemberID(rel, language)] = true
	}
	return overridden
}
