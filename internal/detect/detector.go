package detect

import (
	"sort"
	"strings"

	"github.com/anthropics/codewatch/internal/diffparse"
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// WorkingTarget is the target ref recorded when scanning against the
// working tree.
const WorkingTarget = "WORKING"

// Repo is the git access the detector needs. *gitrepo.Repo satisfies it;
// tests substitute an in-memory implementation.
type Repo interface {
	Root() (string, error)
	ShowFile(ref, path string) ([]string, error)
	ReadWorkingFile(path string) ([]string, error)
	DiffPatch(base, target string) (string, error)
	DiffNameStatus(base, target string) (string, error)
}

// Detector scans subscriptions for changes.
//
// A Detector is cheap to create and single-use state lives in the scan,
// not the Detector: each Scan call owns its construct cache and
// inheritance resolver.
type Detector struct {
	repo Repo

	// Exclude, when set, filters cross-file search candidates by
	// repo-relative path (e.g. from configured exclude globs).
	Exclude func(path string) bool
}

// NewDetector creates a detector over a repository.
func NewDetector(repo Repo) *Detector {
	return &Detector{repo: repo}
}

// cacheKey keys the per-scan construct cache.
type cacheKey struct {
	path     string
	language string
}

// scanState carries the per-scan caches and parsed diff tables.
type scanState struct {
	baseRef   string
	targetRef string // empty = working tree

	fileDiffs  []diffparse.FileDiff
	diffByPath map[string]diffparse.FileDiff
	renameMap  map[string]string
	statusMap  map[string]string

	constructCache map[cacheKey][]semantic.Construct
}

// Scan checks subscriptions between baseRef and targetRef; an empty
// targetRef compares against the working tree. Inactive subscriptions are
// skipped. Subscriptions are processed in input order, each to completion.
func (d *Detector) Scan(subscriptions []subs.Subscription, baseRef, targetRef string) (*ScanResult, error) {
	displayTarget := targetRef
	if displayTarget == "" {
		displayTarget = WorkingTarget
	}

	result := &ScanResult{
		BaseRef:   baseRef,
		TargetRef: displayTarget,
	}

	var active []subs.Subscription
	for _, sub := range subscriptions {
		if sub.Active {
			active = append(active, sub)
		}
	}
	if len(active) == 0 {
		return result, nil
	}

	patchText, err := d.repo.DiffPatch(baseRef, targetRef)
	if err != nil {
		return nil, err
	}
	nameStatusText, err := d.repo.DiffNameStatus(baseRef, targetRef)
	if err != nil {
		return nil, err
	}

	state := &scanState{
		baseRef:        baseRef,
		targetRef:      targetRef,
		fileDiffs:      diffparse.ParsePatch(patchText),
		diffByPath:     map[string]diffparse.FileDiff{},
		constructCache: map[cacheKey][]semantic.Construct{},
	}
	state.renameMap, state.statusMap = diffparse.ParseNameStatus(nameStatusText)
	for _, fd := range state.fileDiffs {
		state.diffByPath[fd.OldPath] = fd
	}

	for _, sub := range active {
		if sub.Semantic != nil {
			trigger, proposal := d.checkSemantic(sub, state)
			if trigger != nil {
				result.Triggers = append(result.Triggers, *trigger)
			}
			if proposal != nil {
				result.Proposals = append(result.Proposals, *proposal)
			}
			if trigger == nil && proposal == nil {
				result.Unchanged = append(result.Unchanged, sub)
			}
			continue
		}

		// Line-based subscription.
		newPath, isRenamed := renamedPath(state.renameMap, sub.Path)
		isDeleted := state.statusMap[sub.Path] == "D"

		fileDiff, hasDiff := state.diffByPath[sub.Path]

		trigger := checkLineTrigger(sub, fileDiff, hasDiff, isDeleted)
		if trigger != nil {
			result.Triggers = append(result.Triggers, *trigger)
			continue
		}

		proposal := computeLineProposal(sub, fileDiff, hasDiff, isRenamed, newPath)
		if proposal != nil {
			result.Proposals = append(result.Proposals, *proposal)
		} else {
			result.Unchanged = append(result.Unchanged, sub)
		}
	}

	return result, nil
}

// checkLineTrigger reports whether the diff touches the watched range.
func checkLineTrigger(sub subs.Subscription, fileDiff diffparse.FileDiff, hasDiff, isDeleted bool) *Trigger {
	if isDeleted || (hasDiff && fileDiff.IsDeletedFile) {
		return &Trigger{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			Path:           sub.Path,
			StartLine:      sub.StartLine,
			EndLine:        sub.EndLine,
			Reasons:        []string{ReasonFileDeleted},
		}
	}

	if !hasDiff {
		return nil
	}

	var matching []diffparse.Hunk
	var reasons []string

	for _, hunk := range fileDiff.Hunks {
		if hunk.OldCount > 0 {
			// Modification or deletion: inclusive old range.
			hunkEnd := hunk.OldStart + hunk.OldCount - 1
			if diffparse.RangesOverlap(sub.StartLine, sub.EndLine, hunk.OldStart, hunkEnd) {
				matching = append(matching, hunk)
				reasons = addReason(reasons, ReasonOverlapHunk)
			}
			continue
		}

		// Pure insertion: OldStart is the line AFTER which content lands.
		// Inserting between the first and last watched lines triggers;
		// immediately after the last line, or before the range, does not.
		if sub.StartLine <= hunk.OldStart && hunk.OldStart < sub.EndLine {
			matching = append(matching, hunk)
			reasons = addReason(reasons, ReasonInsertInsideRange)
		}
	}

	if len(reasons) == 0 {
		return nil
	}

	return &Trigger{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		Path:           sub.Path,
		StartLine:      sub.StartLine,
		EndLine:        sub.EndLine,
		Reasons:        reasons,
		MatchingHunks:  matching,
	}
}

// computeLineProposal emits a rename/shift proposal for a non-triggered
// subscription, or nil when nothing moved.
func computeLineProposal(sub subs.Subscription, fileDiff diffparse.FileDiff, hasDiff, isRenamed bool, newPath string) *Proposal {
	shift := 0
	if hasDiff && len(fileDiff.Hunks) > 0 {
		shift = calculateShift(sub, fileDiff.Hunks)
	}

	if shift == 0 && !isRenamed {
		return nil
	}

	var reasons []string
	if isRenamed {
		reasons = append(reasons, ReasonRename)
	}
	if shift != 0 {
		reasons = append(reasons, ReasonLineShift)
	}

	return &Proposal{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		OldPath:        sub.Path,
		OldStart:       sub.StartLine,
		OldEnd:         sub.EndLine,
		NewPath:        newPath,
		NewStart:       sub.StartLine + shift,
		NewEnd:         sub.EndLine + shift,
		Reasons:        reasons,
		Confidence:     ConfidenceHigh,
		Shift:          shift,
	}
}

// calculateShift computes the net line delta from hunks strictly before the
// subscription. Only valid for non-triggered subscriptions: overlapping
// hunks would have triggered, so they are never encountered here.
func calculateShift(sub subs.Subscription, hunks []diffparse.Hunk) int {
	sorted := make([]diffparse.Hunk, len(hunks))
	copy(sorted, hunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OldStart < sorted[j].OldStart })

	shift := 0
	for _, hunk := range sorted {
		delta := hunk.NewCount - hunk.OldCount

		if hunk.OldCount == 0 {
			// Pure insertion affects lines after OldStart.
			if hunk.OldStart < sub.StartLine {
				shift += delta
			}
			continue
		}

		oldEnd := hunk.OldStart + hunk.OldCount - 1
		if oldEnd < sub.StartLine {
			shift += delta
		} else if hunk.OldStart > sub.EndLine {
			// Hunks are sorted; everything further contributes zero.
			break
		}
	}
	return shift
}

// renamedPath resolves a path through the rename map.
func renamedPath(renameMap map[string]string, path string) (string, bool) {
	if newPath, ok := renameMap[path]; ok {
		return newPath, true
	}
	return path, false
}

// readTargetSource reads a file's target-side content: at targetRef when
// set, from the working tree otherwise.
func (d *Detector) readTargetSource(state *scanState, path string) (string, error) {
	var lines []string
	var err error
	if state.targetRef != "" {
		lines, err = d.repo.ShowFile(state.targetRef, path)
	} else {
		lines, err = d.repo.ReadWorkingFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// indexCached indexes a file's target-side constructs through the per-scan
// cache.
func indexCached(state *scanState, indexer semantic.Indexer, source, path, language string) []semantic.Construct {
	key := cacheKey{path: path, language: language}
	if constructs, ok := state.constructCache[key]; ok {
		return constructs
	}
	constructs := indexer.IndexFile(source, path)
	state.constructCache[key] = constructs
	return constructs
}
