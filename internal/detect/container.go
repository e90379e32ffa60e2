package detect

import (
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// checkContainerMembers diffs a container subscription's baseline member
// fingerprints against the container's current members and emits one
// aggregate trigger covering every member change, or nil when nothing
// changed.
//
// Members are keyed by relative id so a container rename does not read as
// a wholesale remove-and-add.
func (d *Detector) checkContainerMembers(sub subs.Subscription, indexer semantic.Indexer, source, path string, container semantic.Construct, constructs []semantic.Construct) *Trigger {
	target := sub.Semantic

	baselineQualname := target.BaselineContainerQualname
	if baselineQualname == "" {
		baselineQualname = target.Qualname
	}
	currentQualname := container.Qualname

	currentMembers := indexer.ContainerMembers(source, path, currentQualname, target.IncludePrivate, constructs)
	currentByID := map[string]semantic.Construct{}
	for _, m := range currentMembers {
		if rel, ok := semantic.RelativeID(currentQualname, m.Qualname); ok {
			currentByID[rel] = m
		}
	}

	var memberChanges []MemberChange
	var membersAdded, membersRemoved []string

	// Removals and fingerprint changes, in stable baseline order.
	for _, relativeID := range sortedKeysFP(target.BaselineMembers) {
		baseline := target.BaselineMembers[relativeID]
		current, ok := currentByID[relativeID]
		if !ok {
			membersRemoved = append(membersRemoved, relativeID)
			memberChanges = append(memberChanges, MemberChange{
				RelativeID:       relativeID,
				BaselineQualname: baselineQualname + "." + relativeID,
				Kind:             baseline.Kind,
				ChangeType:       ChangeMissing,
			})
			continue
		}

		if baseline.InterfaceHash != current.InterfaceHash {
			memberChanges = append(memberChanges, MemberChange{
				RelativeID: relativeID,
				Qualname:   current.Qualname,
				Kind:       current.Kind,
				ChangeType: ChangeStructural,
				Reason:     ReasonInterfaceChanged,
			})
		} else if baseline.BodyHash != current.BodyHash {
			memberChanges = append(memberChanges, MemberChange{
				RelativeID: relativeID,
				Qualname:   current.Qualname,
				Kind:       current.Kind,
				ChangeType: ChangeContent,
				Reason:     ReasonBodyChanged,
			})
		}
	}

	// Additions.
	for _, relativeID := range sortedKeysConstruct(currentByID) {
		if _, ok := target.BaselineMembers[relativeID]; ok {
			continue
		}
		current := currentByID[relativeID]
		membersAdded = append(membersAdded, relativeID)
		memberChanges = append(memberChanges, MemberChange{
			RelativeID: relativeID,
			Qualname:   current.Qualname,
			Kind:       current.Kind,
			ChangeType: ChangeAdded,
		})
	}

	// Container-level changes.
	var containerChanges *ContainerChanges
	if currentQualname != baselineQualname {
		containerChanges = &ContainerChanges{
			Renamed:     true,
			OldQualname: baselineQualname,
			NewQualname: currentQualname,
		}
	}
	if target.TrackDecorators && container.InterfaceHash != target.InterfaceHash {
		if containerChanges == nil {
			containerChanges = &ContainerChanges{}
		}
		containerChanges.InterfaceChanged = true
		memberChanges = append(memberChanges, MemberChange{
			Qualname:   currentQualname,
			Kind:       target.Kind,
			ChangeType: ChangeStructural,
			Reason:     ReasonContainerInterfaceChanged,
		})
	}

	if len(memberChanges) == 0 && containerChanges == nil {
		return nil
	}

	var reasons []string
	if containerChanges != nil && containerChanges.Renamed {
		reasons = append(reasons, ReasonContainerRenamed)
	}
	if len(membersAdded) > 0 {
		reasons = append(reasons, ReasonMemberAdded)
	}
	if len(membersRemoved) > 0 {
		reasons = append(reasons, ReasonMemberRemoved)
	}
	for _, mc := range memberChanges {
		if mc.ChangeType == ChangeStructural && mc.Reason != ReasonContainerInterfaceChanged {
			reasons = addReason(reasons, ReasonMemberInterfaceChanged)
		}
		if mc.ChangeType == ChangeContent {
			reasons = addReason(reasons, ReasonMemberBodyChanged)
		}
	}
	if containerChanges != nil && containerChanges.InterfaceChanged {
		reasons = append(reasons, ReasonContainerInterfaceChanged)
	}

	return &Trigger{
		SubscriptionID: sub.ID,
		Subscription:   sub,
		Path:           path,
		StartLine:      container.StartLine,
		EndLine:        container.EndLine,
		Reasons:        reasons,
		ChangeType:     ChangeAggregate,
		Details: &Details{
			ContainerQualname:         currentQualname,
			BaselineContainerQualname: baselineQualname,
			ContainerChanges:          containerChanges,
			MemberChanges:             memberChanges,
			MembersAdded:              membersAdded,
			MembersRemoved:            membersRemoved,
		},
	}
}
