package subs

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/codewatch/internal/semantic"
)

var lineLocationPattern = regexp.MustCompile(`^(.+):(\d+)(?:-(\d+))?$`)

// semanticKinds are the kinds accepted in a semantic location spec.
var semanticKinds = map[string]semantic.Kind{
	"variable":  semantic.KindVariable,
	"function":  semantic.KindFunction,
	"field":     semantic.KindField,
	"method":    semantic.KindMethod,
	"class":     semantic.KindClass,
	"interface": semantic.KindInterface,
	"enum":      semantic.KindEnum,
}

// ParseLocation parses a line-based location spec.
//
// Formats: "path:42" (single line) or "path:42-45" (inclusive range).
// The returned path is normalized to POSIX form.
func ParseLocation(location string) (path string, startLine, endLine int, err error) {
	m := lineLocationPattern.FindStringSubmatch(location)
	if m == nil {
		return "", 0, 0, &InvalidLocationError{
			Location: location,
			Reason:   "expected format 'path:line' or 'path:start-end'",
		}
	}

	path = filepath.ToSlash(m[1])
	startLine, _ = strconv.Atoi(m[2])
	endLine = startLine
	if m[3] != "" {
		endLine, _ = strconv.Atoi(m[3])
	}

	if startLine < 1 {
		return "", 0, 0, &InvalidLineRangeError{
			Start: startLine, End: endLine, Reason: "start line must be >= 1",
		}
	}
	if endLine < startLine {
		return "", 0, 0, &InvalidLineRangeError{
			Start: startLine, End: endLine, Reason: "end line must be >= start line",
		}
	}

	return path, startLine, endLine, nil
}

// ParseSemanticLocation parses a semantic location spec.
//
// Formats: "path::Qualname" or "path::kind:Qualname" where kind is one of
// variable, function, field, method, class, interface, enum. The kind is
// empty when unspecified.
func ParseSemanticLocation(location string) (path, qualname string, kind semantic.Kind, err error) {
	idx := strings.Index(location, "::")
	if idx <= 0 || idx+2 >= len(location) {
		return "", "", "", &InvalidLocationError{
			Location: location,
			Reason:   "expected format 'path::Qualname' or 'path::kind:Qualname'",
		}
	}

	path = filepath.ToSlash(location[:idx])
	spec := location[idx+2:]

	if colon := strings.Index(spec, ":"); colon > 0 {
		kindName := spec[:colon]
		k, ok := semanticKinds[kindName]
		if !ok {
			return "", "", "", &InvalidLocationError{
				Location: location,
				Reason:   "unknown construct kind " + strconv.Quote(kindName),
			}
		}
		return path, spec[colon+1:], k, nil
	}

	return path, spec, "", nil
}
