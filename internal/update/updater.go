// Package update applies accepted proposals to subscriptions.
//
// The updater is the only component that rewrites subscriptions: it moves
// their locations, re-snapshots anchors, re-captures container baselines,
// and advances the stored baseline ref. It never halts on the first
// problem; warnings accumulate per proposal and the baseline only advances
// when at least one proposal applied.
package update

import (
	"fmt"
	"strings"

	"github.com/anthropics/codewatch/internal/detect"
	"github.com/anthropics/codewatch/internal/parser"
	"github.com/anthropics/codewatch/internal/report"
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// minAnchorOverlap is the word-overlap ratio under which the updater warns
// that the new location's content differs significantly from the anchor.
const minAnchorOverlap = 0.5

// Repo is the git access the updater needs.
type Repo interface {
	ShowFile(ref, path string) ([]string, error)
	ReadWorkingFile(path string) ([]string, error)
}

// Updater applies update documents to the subscription store.
type Updater struct {
	store *subs.Store
	repo  Repo
}

// NewUpdater creates an updater over a store and repository.
func NewUpdater(store *subs.Store, repo Repo) *Updater {
	return &Updater{store: store, repo: repo}
}

// Result reports what an Apply did.
type Result struct {
	// Applied lists subscription ids whose proposals were accepted.
	Applied []string
	// Warnings lists per-proposal problems; a warned proposal is skipped
	// or applied with caveats, never fatal.
	Warnings []string
	// DryRun is true when no writes were performed.
	DryRun bool
}

// Apply validates and applies every proposal in an update document.
// In dry-run mode all validation runs and the would-apply set is returned
// without any write.
func (u *Updater) Apply(doc *report.UpdateDoc, dryRun bool) (*Result, error) {
	result := &Result{DryRun: dryRun}

	if len(doc.Proposals) == 0 {
		return result, nil
	}
	if doc.TargetRef == "" {
		result.Warnings = append(result.Warnings, "no target_ref in update document")
		return result, nil
	}

	file, err := u.store.Load()
	if err != nil {
		return nil, err
	}

	subByID := map[string]*subs.Subscription{}
	for i := range file.Subscriptions {
		subByID[file.Subscriptions[i].ID] = &file.Subscriptions[i]
	}

	for _, prop := range doc.Proposals {
		sub, ok := subByID[prop.SubscriptionID]
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("subscription %s not found, skipping", shortID(prop.SubscriptionID)))
			continue
		}

		newLines, err := u.readTarget(doc.TargetRef, prop.NewPath)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("cannot read %s at %s for %s: %v",
					prop.NewPath, shortRef(doc.TargetRef), shortID(prop.SubscriptionID), err))
			continue
		}

		if prop.NewStart < 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("new range %d-%d starts before line 1 for %s",
					prop.NewStart, prop.NewEnd, shortID(prop.SubscriptionID)))
			continue
		}
		if prop.NewEnd > len(newLines) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("new range %d-%d exceeds file length (%d lines) for %s",
					prop.NewStart, prop.NewEnd, len(newLines), shortID(prop.SubscriptionID)))
			continue
		}

		if warning := verifyAnchor(sub, newLines, prop.NewStart, prop.NewEnd); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}

		if !dryRun {
			u.applyProposal(sub, prop, newLines, result)
		}

		result.Applied = append(result.Applied, sub.ID)
	}

	if !dryRun && len(result.Applied) > 0 {
		if err := u.store.Save(file); err != nil {
			return nil, err
		}
		if doc.TargetRef == detect.WorkingTarget {
			result.Warnings = append(result.Warnings,
				"target is the working tree; baseline ref not advanced")
		} else if err := u.store.UpdateBaseline(doc.TargetRef); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// applyProposal rewrites one subscription in place.
func (u *Updater) applyProposal(sub *subs.Subscription, prop report.ProposalDoc, newLines []string, result *Result) {
	sub.Path = prop.NewPath
	sub.StartLine = prop.NewStart
	sub.EndLine = prop.NewEnd
	sub.UpdatedAt = subs.UTCNow()

	if sub.Semantic != nil {
		if prop.NewQualname != "" {
			sub.Semantic.Qualname = prop.NewQualname
		}
		if prop.NewKind != "" {
			sub.Semantic.Kind = prop.NewKind
		}
	}

	anchor := subs.ExtractAnchor(newLines, prop.NewStart, prop.NewEnd, subs.AnchorContext)
	sub.Anchors = &anchor

	if sub.Semantic != nil && sub.Semantic.IncludeMembers {
		if err := recaptureContainerBaseline(sub, newLines, prop.NewPath); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("failed to recapture baseline members for %s: %v", shortID(sub.ID), err))
		}
	}
}

// readTarget reads a file's lines at the document's target: the working
// tree for the WORKING sentinel, a commit otherwise.
func (u *Updater) readTarget(targetRef, path string) ([]string, error) {
	if targetRef == detect.WorkingTarget {
		return u.repo.ReadWorkingFile(path)
	}
	return u.repo.ShowFile(targetRef, path)
}

// verifyAnchor compares the anchor's watched lines with the proposed new
// range using word overlap. A low ratio yields a warning, never a failure:
// anchors are diagnostic only.
func verifyAnchor(sub *subs.Subscription, newLines []string, newStart, newEnd int) string {
	if sub.Anchors == nil || len(sub.Anchors.Lines) == 0 {
		return ""
	}

	oldContent := strings.TrimSpace(strings.Join(sub.Anchors.Lines, "\n"))
	newContent := strings.TrimSpace(strings.Join(newLines[newStart-1:newEnd], "\n"))
	if oldContent == newContent {
		return ""
	}

	oldWords := wordSet(oldContent)
	newWords := wordSet(newContent)
	if len(oldWords) == 0 || len(newWords) == 0 {
		return ""
	}

	common := 0
	for w := range oldWords {
		if newWords[w] {
			common++
		}
	}
	overlap := float64(common) / float64(len(oldWords))
	if overlap < minAnchorOverlap {
		return fmt.Sprintf("content at new location for %s differs significantly from original (overlap: %.0f%%)",
			shortID(sub.ID), overlap*100)
	}
	return ""
}

// recaptureContainerBaseline refreshes a container subscription's
// fingerprints, qualname baseline, and member table from the new content.
func recaptureContainerBaseline(sub *subs.Subscription, newLines []string, newPath string) error {
	target := sub.Semantic

	indexer, err := semantic.GetIndexer(parser.Language(target.Language))
	if err != nil {
		return err
	}

	source := strings.Join(newLines, "\n")
	qualname := target.Qualname

	constructs := indexer.IndexFile(source, newPath)
	if container := indexer.FindConstruct(source, newPath, qualname, target.Kind); container != nil {
		target.InterfaceHash = container.InterfaceHash
		target.BodyHash = container.BodyHash
		target.BaselineContainerQualname = qualname
	}

	members := indexer.ContainerMembers(source, newPath, qualname, target.IncludePrivate, constructs)
	target.BaselineMembers = map[string]semantic.MemberFingerprint{}
	for _, m := range members {
		if rel, ok := semantic.RelativeID(qualname, m.Qualname); ok {
			target.BaselineMembers[rel] = m.Fingerprint()
		}
	}
	return nil
}

// wordSet splits content into its unique whitespace-separated words.
func wordSet(content string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(content) {
		words[w] = true
	}
	return words
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}
