// Package diffparse converts git unified diff and name-status output into
// structured form.
//
// The parser understands zero-context patches produced with rename
// detection enabled. Within one FileDiff, hunks are always sorted ascending
// by OldStart before emission, which the shift arithmetic downstream relies
// on.
package diffparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	hunkPattern        = regexp.MustCompile(`^@@\s+-(\d+)(?:,(\d+))?\s+\+(\d+)(?:,(\d+))?\s+@@`)
	diffHeaderPattern  = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	newFilePattern     = regexp.MustCompile(`^new file mode`)
	deletedFilePattern = regexp.MustCompile(`^deleted file mode`)
	renameFromPattern  = regexp.MustCompile(`^rename from (.+)$`)
	renameToPattern    = regexp.MustCompile(`^rename to (.+)$`)
)

// Hunk is a single hunk from a unified diff, in unified-diff semantics.
// An OldCount of zero marks a pure insertion, where OldStart names the line
// after which new content appears.
type Hunk struct {
	OldStart int `json:"old_start"`
	OldCount int `json:"old_count"`
	NewStart int `json:"new_start"`
	NewCount int `json:"new_count"`
}

// FileDiff is the diff information for a single file.
type FileDiff struct {
	OldPath       string
	NewPath       string
	Hunks         []Hunk
	IsRename      bool
	IsNewFile     bool
	IsDeletedFile bool
}

// ParsePatch parses a unified diff (git diff -U0 --find-renames) into one
// FileDiff per changed file.
func ParsePatch(diffText string) []FileDiff {
	if strings.TrimSpace(diffText) == "" {
		return nil
	}

	var fileDiffs []FileDiff
	var current *FileDiff

	flush := func() {
		if current == nil {
			return
		}
		sort.Slice(current.Hunks, func(i, j int) bool {
			return current.Hunks[i].OldStart < current.Hunks[j].OldStart
		})
		fileDiffs = append(fileDiffs, *current)
		current = nil
	}

	for _, line := range strings.Split(diffText, "\n") {
		if m := diffHeaderPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &FileDiff{OldPath: m[1], NewPath: m[2]}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case newFilePattern.MatchString(line):
			current.IsNewFile = true
		case deletedFilePattern.MatchString(line):
			current.IsDeletedFile = true
		default:
			if m := renameFromPattern.FindStringSubmatch(line); m != nil {
				current.OldPath = m[1]
				current.IsRename = true
				continue
			}
			if m := renameToPattern.FindStringSubmatch(line); m != nil {
				current.NewPath = m[1]
				current.IsRename = true
				continue
			}
			if m := hunkPattern.FindStringSubmatch(line); m != nil {
				current.Hunks = append(current.Hunks, Hunk{
					OldStart: atoiDefault(m[1], 0),
					OldCount: atoiDefault(m[2], 1),
					NewStart: atoiDefault(m[3], 0),
					NewCount: atoiDefault(m[4], 1),
				})
			}
		}
	}

	flush()
	return fileDiffs
}

// ParseNameStatus parses git diff --name-status output into a rename map
// (old path → new path) and a status map (path → status code). Rename
// entries are indexed by the old path in both maps.
func ParseNameStatus(nameStatusText string) (renameMap, statusMap map[string]string) {
	renameMap = map[string]string{}
	statusMap = map[string]string{}

	for _, line := range strings.Split(strings.TrimSpace(nameStatusText), "\n") {
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		status := parts[0]
		if strings.HasPrefix(status, "R") {
			// Rename: R100\told\tnew
			if len(parts) >= 3 {
				renameMap[parts[1]] = parts[2]
				statusMap[parts[1]] = status
			}
			continue
		}

		statusMap[parts[1]] = status
	}

	return renameMap, statusMap
}

// RangesOverlap reports whether two inclusive line ranges overlap.
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return max(aStart, bStart) <= min(aEnd, bEnd)
}

// atoiDefault converts s, returning def when s is empty. An omitted hunk
// count means 1 in unified-diff syntax.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
