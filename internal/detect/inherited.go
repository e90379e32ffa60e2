package detect

import (
	"sort"
	"strings"

	"github.com/anthropics/codewatch/internal/parser"
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// checkInheritedChanges detects ancestor-class changes that propagate to a
// class-kind subscription. A change is propagated only when neither the
// child nor any intermediate class in the chain overrides the changed
// member.
func (d *Detector) checkInheritedChanges(sub subs.Subscription, state *scanState, indexer semantic.Indexer, current semantic.Construct, source, path string) *Trigger {
	target := sub.Semantic
	if !target.Kind.IsContainer() {
		return nil
	}

	root, err := d.repo.Root()
	if err != nil {
		return nil
	}

	lang := parser.Language(target.Language)
	resolver := semantic.NewInheritanceResolver(root, lang, indexer)

	constructs := indexCached(state, indexer, source, path, target.Language)
	resolver.AddFile(path, constructs, source)

	chain := resolver.InheritanceChain(path, current.Qualname)
	if len(chain) == 0 {
		return nil
	}

	// Seed the override set with the child's own direct members.
	childMembers := indexer.ContainerMembers(source, path, current.Qualname, true, constructs)
	overriddenInChain := semantic.OverriddenMembers(childMembers, current.Qualname, lang)

	var inheritedChanges []InheritedChange

	for _, entry := range chain {
		parentChanges := d.detectParentMemberChanges(state, indexer, entry.Path, entry.Qualname, target.Language)

		for _, change := range parentChanges {
			if change.MemberName != "" {
				if overriddenInChain[semantic.MemberID(change.MemberName, lang)] {
					// Overridden by the child or an intermediate class.
					continue
				}
			}
			change.ParentPath = entry.Path
			change.ParentQualname = entry.Qualname
			inheritedChanges = append(inheritedChanges, change)
		}

		// This ancestor's own members mask grandparent changes.
		parentSource, err := d.readTargetSource(state, entry.Path)
		if err != nil {
			continue
		}
		parentConstructs := indexCached(state, indexer, parentSource, entry.Path, target.Language)
		parentMembers := indexer.ContainerMembers(parentSource, entry.Path, entry.Qualname, true, parentConstructs)
		for id := range semantic.OverriddenMembers(parentMembers, entry.Qualname, lang) {
			overriddenInChain[id] = true
		}
	}

	if len(inheritedChanges) == 0 {
		return nil
	}

	changeType := ChangeContent
	for _, c := range inheritedChanges {
		if c.ChangeType == ChangeStructural || c.ChangeType == ChangeMissing {
			// A missing ancestor or member is structural for the child.
			changeType = ChangeStructural
			break
		}
	}

	chainRefs := make([]ChainRef, len(chain))
	for i, entry := range chain {
		chainRefs[i] = ChainRef{Path: entry.Path, Qualname: entry.Qualname}
	}

	return &Trigger{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		Path:           path,
		StartLine:      current.StartLine,
		EndLine:        current.EndLine,
		Reasons:        []string{ReasonInheritedMemberChanged},
		ChangeType:     changeType,
		Details: &Details{
			Source:           "inherited",
			InheritedChanges: inheritedChanges,
			InheritanceChain: chainRefs,
		},
	}
}

// detectParentMemberChanges compares an ancestor's direct members at the
// base and target refs.
func (d *Detector) detectParentMemberChanges(state *scanState, indexer semantic.Indexer, parentPath, parentQualname, language string) []InheritedChange {
	var changes []InheritedChange

	baseLines, err := d.repo.ShowFile(state.baseRef, parentPath)
	if err != nil {
		// Parent did not exist at the base ref.
		return changes
	}
	baseConstructs := indexer.IndexFile(strings.Join(baseLines, "\n"), parentPath)

	targetSource, err := d.readTargetSource(state, parentPath)
	if err != nil {
		// Parent deleted or unreadable at the target side.
		return append(changes, InheritedChange{
			ChangeType: ChangeMissing,
			Qualname:   parentQualname,
			Reason:     ReasonParentDeleted,
		})
	}
	targetConstructs := indexCached(state, indexer, targetSource, parentPath, language)

	baseMembers := directMembers(baseConstructs, parentQualname)
	targetMembers := directMembers(targetConstructs, parentQualname)

	// Removed members.
	for _, name := range sortedKeysConstruct(baseMembers) {
		if _, ok := targetMembers[name]; !ok {
			changes = append(changes, InheritedChange{
				MemberName: name,
				ChangeType: ChangeMissing,
				Qualname:   parentQualname + "." + name,
				Reason:     ReasonMemberRemoved,
			})
		}
	}

	// Changed members.
	for _, name := range sortedKeysConstruct(baseMembers) {
		baseC := baseMembers[name]
		targetC, ok := targetMembers[name]
		if !ok {
			continue
		}

		if baseC.InterfaceHash != targetC.InterfaceHash {
			changes = append(changes, InheritedChange{
				MemberName: name,
				ChangeType: ChangeStructural,
				Qualname:   parentQualname + "." + name,
				Reason:     ReasonInterfaceChanged,
			})
		} else if baseC.BodyHash != targetC.BodyHash {
			changes = append(changes, InheritedChange{
				MemberName: name,
				ChangeType: ChangeContent,
				Qualname:   parentQualname + "." + name,
				Reason:     ReasonBodyChanged,
			})
		}
	}

	// The parent class itself: inheritance or decorator changes.
	baseParent := constructByQualname(baseConstructs, parentQualname)
	targetParent := constructByQualname(targetConstructs, parentQualname)
	if baseParent != nil && targetParent != nil && baseParent.InterfaceHash != targetParent.InterfaceHash {
		changes = append(changes, InheritedChange{
			ChangeType: ChangeStructural,
			Qualname:   parentQualname,
			Reason:     ReasonParentInterfaceChanged,
		})
	}

	return changes
}

// directMembers maps relative id → construct for a container's direct
// members.
func directMembers(constructs []semantic.Construct, containerQualname string) map[string]semantic.Construct {
	members := map[string]semantic.Construct{}
	for _, c := range constructs {
		if rel, ok := semantic.RelativeID(containerQualname, c.Qualname); ok {
			members[rel] = c
		}
	}
	return members
}

// constructByQualname returns the first construct with the given qualname.
func constructByQualname(constructs []semantic.Construct, qualname string) *semantic.Construct {
	for i := range constructs {
		if constructs[i].Qualname == qualname {
			return &constructs[i]
		}
	}
	return nil
}

// sortedKeysConstruct returns map keys in sorted order for deterministic
// output.
func sortedKeysConstruct(m map[string]semantic.Construct) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedKeysFP returns fingerprint map keys in sorted order.
func sortedKeysFP(m map[string]semantic.MemberFingerprint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
