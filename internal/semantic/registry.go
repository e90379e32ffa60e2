package semantic

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
)

// UnsupportedLanguageError is returned when no indexer exists for a
// language or file extension.
type UnsupportedLanguageError struct {
	Language  string
	Supported []string
	Hint      string
}

// Error implements the error interface.
func (e *UnsupportedLanguageError) Error() string {
	msg := fmt.Sprintf("unsupported language: %s (supported: %s)",
		e.Language, strings.Join(e.Supported, ", "))
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

// The registry is a process-wide cache of one indexer instance per
// language. Indexers retain no state across IndexFile calls; concurrent
// use across goroutines is out of scope.
var (
	languageFactories = map[parser.Language]func() Indexer{
		parser.Python: func() Indexer { return NewPythonIndexer() },
		parser.Java:   func() Indexer { return NewJavaIndexer() },
	}
	indexerCache = map[parser.Language]Indexer{}
)

// DetectLanguage detects the language from a file path's extension.
func DetectLanguage(path string) (parser.Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang := parser.LanguageFromExtension(ext)
	if lang == "" || languageFactories[lang] == nil {
		display := ext
		if display == "" {
			display = "<no extension>"
		}
		return "", &UnsupportedLanguageError{
			Language:  display,
			Supported: SupportedLanguages(),
			Hint:      fmt.Sprintf("file %q has no registered indexer", path),
		}
	}
	return lang, nil
}

// GetIndexer returns the cached indexer for a language, creating it on
// first use.
func GetIndexer(lang parser.Language) (Indexer, error) {
	factory, ok := languageFactories[lang]
	if !ok {
		return nil, &UnsupportedLanguageError{
			Language:  string(lang),
			Supported: SupportedLanguages(),
		}
	}
	if idx, ok := indexerCache[lang]; ok {
		return idx, nil
	}
	idx := factory()
	indexerCache[lang] = idx
	return idx, nil
}

// GetIndexerForPath detects the language of path and returns its indexer.
func GetIndexerForPath(path string) (parser.Language, Indexer, error) {
	lang, err := DetectLanguage(path)
	if err != nil {
		return "", nil, err
	}
	idx, err := GetIndexer(lang)
	if err != nil {
		return "", nil, err
	}
	return lang, idx, nil
}

// SupportedLanguages returns the sorted language identifiers with an
// indexer registered.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(languageFactories))
	for lang := range languageFactories {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)
	return langs
}
