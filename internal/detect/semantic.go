package detect

import (
	"fmt"

	"github.com/anthropics/codewatch/internal/parser"
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// matchTier orders hash-match quality: an exact match agrees on both
// hashes, a body match survives a rename plus signature change, an
// interface match survives a rename plus body change.
type matchTier int

const (
	tierExact matchTier = iota
	tierBody
	tierInterface
	tierNone
)

// crossMatch pairs a located construct with the file it was found in.
type crossMatch struct {
	path      string
	construct semantic.Construct
	tier      matchTier
}

// checkSemantic runs the three-stage locator for one semantic
// subscription: exact qualname at the (possibly renamed) path, tiered hash
// search in the same file, then tiered hash search across the rest of the
// diff.
func (d *Detector) checkSemantic(sub subs.Subscription, state *scanState) (*Trigger, *Proposal) {
	target := sub.Semantic

	indexer, err := semantic.GetIndexer(parser.Language(target.Language))
	if err != nil {
		// Unsupported languages degrade to an ambiguous trigger so the
		// scan still completes.
		return &Trigger{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			Path:           sub.Path,
			StartLine:      sub.StartLine,
			EndLine:        sub.EndLine,
			Reasons:        []string{ReasonUnsupportedLanguage},
			ChangeType:     ChangeAmbiguous,
			Details:        &Details{Error: err.Error()},
		}, nil
	}

	oldPath := sub.Path
	newPath, _ := renamedPath(state.renameMap, oldPath)

	fileDeleted := state.statusMap[oldPath] == "D"
	fileReadFailed := false
	var newSource string
	haveSource := false

	if !fileDeleted {
		newSource, err = d.readTargetSource(state, newPath)
		if err != nil {
			fileReadFailed = true
		} else {
			haveSource = true
		}
	}

	if haveSource {
		// Stage 1: exact qualname.
		if construct := indexer.FindConstruct(newSource, newPath, target.Qualname, target.Kind); construct != nil {
			return d.resolveLocated(sub, state, indexer, newSource, newPath, *construct, located{
				stage:   1,
				renamed: oldPath != newPath,
			})
		}

		// Stage 2: tiered hash search in the same file. Multiple
		// candidates at the best tier are ambiguous and fall through to
		// the cross-file stage.
		constructs := indexCached(state, indexer, newSource, newPath, target.Language)
		matches, tier := findHashCandidates(target, constructs)
		if tier != tierNone && len(matches) == 1 {
			return d.resolveLocated(sub, state, indexer, newSource, newPath, matches[0], located{
				stage: 2,
			})
		}
	}

	// Stage 3: cross-file search over the rest of the diff.
	crossMatches := d.searchCrossFile(state, indexer, target, oldPath, newPath)

	if len(crossMatches) == 1 {
		m := crossMatches[0]
		source, err := d.readTargetSource(state, m.path)
		if err != nil {
			source = ""
		}
		return d.resolveLocated(sub, state, indexer, source, m.path, m.construct, located{
			stage:     3,
			crossFile: true,
			tier:      m.tier,
		})
	}

	if len(crossMatches) > 1 {
		if sub.TriggerOnDuplicate {
			locations := make([]string, len(crossMatches))
			for i, m := range crossMatches {
				locations[i] = fmt.Sprintf("%s:%d", m.path, m.construct.StartLine)
			}
			return &Trigger{
				SubscriptionID: sub.ID,
				Subscription:   sub,
				Path:           oldPath,
				StartLine:      sub.StartLine,
				EndLine:        sub.EndLine,
				Reasons:        []string{ReasonDuplicateFound},
				ChangeType:     ChangeAmbiguous,
				Details:        &Details{Locations: locations},
			}, nil
		}
		// Duplicates are ambiguous; without the flag they are left alone.
		return nil, nil
	}

	// Not found anywhere.
	reason := ReasonSemanticTargetMissing
	if fileDeleted {
		reason = ReasonFileDeleted
	} else if fileReadFailed {
		reason = ReasonFileNotFound
	}

	return &Trigger{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		Path:           oldPath,
		StartLine:      sub.StartLine,
		EndLine:        sub.EndLine,
		Reasons:        []string{reason},
		ChangeType:     ChangeMissing,
	}, nil
}

// located describes how a construct was found, which decides the proposal
// shape.
type located struct {
	stage     int
	renamed   bool
	crossFile bool
	tier      matchTier
}

// resolveLocated classifies the change for a located construct, folds in
// container and inheritance checks, and builds the location proposal.
func (d *Detector) resolveLocated(sub subs.Subscription, state *scanState, indexer semantic.Indexer, source, path string, construct semantic.Construct, how located) (*Trigger, *Proposal) {
	target := sub.Semantic

	constructs := indexCached(state, indexer, source, path, target.Language)

	var trigger *Trigger
	if target.IncludeMembers {
		trigger = d.checkContainerMembers(sub, indexer, source, path, construct, constructs)
	} else {
		trigger = classifySemanticChange(sub, construct)
	}

	if target.Kind.IsContainer() && source != "" {
		inherited := d.checkInheritedChanges(sub, state, indexer, construct, source, path)
		trigger = mergeInherited(trigger, inherited)
	}

	proposal := buildProposal(sub, path, construct, how)
	return trigger, proposal
}

// buildProposal emits the location proposal for a located construct, or
// nil when nothing moved.
func buildProposal(sub subs.Subscription, path string, construct semantic.Construct, how located) *Proposal {
	target := sub.Semantic

	base := Proposal{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		OldPath:        sub.Path,
		OldStart:       sub.StartLine,
		OldEnd:         sub.EndLine,
		NewPath:        path,
		NewStart:       construct.StartLine,
		NewEnd:         construct.EndLine,
		Confidence:     ConfidenceHigh,
	}

	switch {
	case how.crossFile:
		base.Reasons = []string{ReasonMovedCrossFile}
		switch how.tier {
		case tierBody:
			base.Confidence = ConfidenceMedium
		case tierInterface:
			base.Confidence = ConfidenceLow
		}
		if construct.Qualname != target.Qualname {
			base.NewQualname = construct.Qualname
		}
		if construct.Kind != target.Kind {
			base.NewKind = construct.Kind
		}
		return &base

	case how.stage == 2:
		base.Reasons = []string{ReasonSemanticLocation}
		if construct.Qualname != target.Qualname {
			base.NewQualname = construct.Qualname
		}
		if construct.Kind != target.Kind {
			base.NewKind = construct.Kind
		}
		return &base

	case how.renamed:
		base.Reasons = []string{ReasonRename}
		return &base

	case construct.StartLine != sub.StartLine || construct.EndLine != sub.EndLine:
		base.Reasons = []string{ReasonLineShift}
		return &base
	}

	return nil
}

// classifySemanticChange compares stored fingerprints against the located
// construct: an interface difference is structural, a body difference is
// content, identical hashes mean a cosmetic-only change.
func classifySemanticChange(sub subs.Subscription, construct semantic.Construct) *Trigger {
	target := sub.Semantic

	if target.InterfaceHash != construct.InterfaceHash {
		return &Trigger{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			Path:           sub.Path,
			StartLine:      sub.StartLine,
			EndLine:        sub.EndLine,
			Reasons:        []string{ReasonInterfaceChanged},
			ChangeType:     ChangeStructural,
		}
	}

	if target.BodyHash != construct.BodyHash {
		return &Trigger{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			Path:           sub.Path,
			StartLine:      sub.StartLine,
			EndLine:        sub.EndLine,
			Reasons:        []string{ReasonBodyChanged},
			ChangeType:     ChangeContent,
		}
	}

	return nil
}

// findHashCandidates returns all constructs matching the target at the
// best populated tier.
func findHashCandidates(target *subs.SemanticTarget, constructs []semantic.Construct) ([]semantic.Construct, matchTier) {
	var exact, body, iface []semantic.Construct

	for _, c := range constructs {
		if c.Kind != target.Kind {
			continue
		}
		sameBody := c.BodyHash == target.BodyHash
		sameInterface := c.InterfaceHash == target.InterfaceHash
		if sameBody && sameInterface {
			exact = append(exact, c)
		}
		if sameBody {
			body = append(body, c)
		}
		if sameInterface {
			iface = append(iface, c)
		}
	}

	switch {
	case len(exact) > 0:
		return exact, tierExact
	case len(body) > 0:
		return body, tierBody
	case len(iface) > 0:
		return iface, tierInterface
	}
	return nil, tierNone
}

// searchCrossFile scans the rest of the diff for the target's fingerprints
// and returns the matches at the best tier found across files. Candidates
// that cannot be read or indexed are skipped.
func (d *Detector) searchCrossFile(state *scanState, indexer semantic.Indexer, target *subs.SemanticTarget, oldPath, newPath string) []crossMatch {
	var all []crossMatch
	best := tierNone

	for _, fd := range state.fileDiffs {
		candidate := fd.NewPath

		if candidate == oldPath || candidate == newPath ||
			fd.OldPath == oldPath || fd.OldPath == newPath {
			continue
		}
		if fd.IsDeletedFile || state.statusMap[fd.OldPath] == "D" {
			continue
		}
		if d.Exclude != nil && d.Exclude(candidate) {
			continue
		}

		lang, err := semantic.DetectLanguage(candidate)
		if err != nil || string(lang) != target.Language {
			continue
		}

		key := cacheKey{path: candidate, language: target.Language}
		constructs, ok := state.constructCache[key]
		if !ok {
			source, err := d.readTargetSource(state, candidate)
			if err != nil {
				continue
			}
			constructs = indexer.IndexFile(source, candidate)
			state.constructCache[key] = constructs
		}

		matches, tier := findHashCandidates(target, constructs)
		for _, m := range matches {
			all = append(all, crossMatch{path: candidate, construct: m, tier: tier})
			if tier < best {
				best = tier
			}
		}
	}

	// Keep only matches at the best tier across files.
	var filtered []crossMatch
	for _, m := range all {
		if m.tier == best {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// mergeInherited folds an inherited-change trigger into a primary trigger:
// the union of reasons plus the inheritance details.
func mergeInherited(primary, inherited *Trigger) *Trigger {
	if inherited == nil {
		return primary
	}
	if primary == nil {
		return inherited
	}

	if primary.Details == nil {
		primary.Details = &Details{}
	}
	primary.Details.InheritedChanges = inherited.Details.InheritedChanges
	primary.Details.InheritanceChain = inherited.Details.InheritanceChain
	primary.Reasons = addReason(primary.Reasons, ReasonInheritedMemberChanged)
	return primary
}
