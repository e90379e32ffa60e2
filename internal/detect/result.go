// Package detect implements change detection for subscriptions between two
// git refs, or between a ref and the working tree.
//
// A scan classifies every active subscription as triggered (semantically
// affected), proposed (merely relocated — rename, shift, or cross-file
// move), or unchanged. Line-based subscriptions are checked with hunk
// arithmetic; semantic subscriptions run a three-stage locator over
// fingerprinted constructs.
package detect

import (
	"github.com/anthropics/codewatch/internal/diffparse"
	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// ChangeType classifies a semantic trigger.
type ChangeType string

const (
	// ChangeStructural marks interface-level changes (signature, types,
	// decorators, inheritance).
	ChangeStructural ChangeType = "STRUCTURAL"
	// ChangeContent marks body or value changes.
	ChangeContent ChangeType = "CONTENT"
	// ChangeMissing marks a construct or file that disappeared.
	ChangeMissing ChangeType = "MISSING"
	// ChangeAmbiguous marks scans that could not decide (duplicates,
	// unsupported language).
	ChangeAmbiguous ChangeType = "AMBIGUOUS"
	// ChangeAggregate marks container-member aggregate triggers.
	ChangeAggregate ChangeType = "AGGREGATE"
	// ChangeAdded marks a member present only on the current side. Used
	// in member change entries, never on a trigger itself.
	ChangeAdded ChangeType = "ADDED"
)

// Confidence grades a proposal.
type Confidence string

const (
	// ConfidenceHigh marks line-based proposals, qualname hits, same-file
	// hash matches of any tier, and exact-tier cross-file matches.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium marks body-tier cross-file matches.
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow marks interface-tier cross-file matches.
	ConfidenceLow Confidence = "low"
)

// Reason codes attached to triggers and proposals.
const (
	ReasonFileDeleted               = "file_deleted"
	ReasonOverlapHunk               = "overlap_hunk"
	ReasonInsertInsideRange         = "insert_inside_range"
	ReasonRename                    = "rename"
	ReasonLineShift                 = "line_shift"
	ReasonInterfaceChanged          = "interface_changed"
	ReasonBodyChanged               = "body_changed"
	ReasonSemanticLocation          = "semantic_location"
	ReasonMovedCrossFile            = "moved_cross_file"
	ReasonDuplicateFound            = "duplicate_found"
	ReasonSemanticTargetMissing     = "semantic_target_missing"
	ReasonFileNotFound              = "file_not_found"
	ReasonUnsupportedLanguage       = "unsupported_language"
	ReasonInheritedMemberChanged    = "inherited_member_changed"
	ReasonContainerRenamed          = "container_renamed"
	ReasonMemberAdded               = "member_added"
	ReasonMemberRemoved             = "member_removed"
	ReasonMemberInterfaceChanged    = "member_interface_changed"
	ReasonMemberBodyChanged         = "member_body_changed"
	ReasonContainerInterfaceChanged = "container_interface_changed"
	ReasonParentDeleted             = "parent_deleted"
	ReasonParentInterfaceChanged    = "parent_interface_changed"
)

// MemberChange records one member-level change inside a container or an
// ancestor class.
type MemberChange struct {
	// RelativeID is the member id within its container. Empty for
	// container-level entries.
	RelativeID string `json:"relative_id,omitempty"`
	// Qualname is the member's current qualname; empty for removed
	// members.
	Qualname string `json:"qualname,omitempty"`
	// BaselineQualname is set for removed members.
	BaselineQualname string `json:"baseline_qualname,omitempty"`
	// Kind is the member's construct kind.
	Kind semantic.Kind `json:"kind,omitempty"`
	// ChangeType is STRUCTURAL, CONTENT, MISSING, or ADDED.
	ChangeType ChangeType `json:"change_type"`
	// Reason narrows the change: interface_changed, body_changed,
	// container_interface_changed.
	Reason string `json:"reason,omitempty"`
}

// InheritedChange records a change to an ancestor's member that propagates
// to a child subscription.
type InheritedChange struct {
	// MemberName is the member id within the parent; empty when the
	// parent class itself changed.
	MemberName string `json:"member_name,omitempty"`
	// Qualname is the changed construct's qualname.
	Qualname string `json:"qualname"`
	// ChangeType is STRUCTURAL, CONTENT, or MISSING.
	ChangeType ChangeType `json:"change_type"`
	// Reason narrows the change.
	Reason string `json:"reason"`
	// ParentPath and ParentQualname name the ancestor the change came
	// from.
	ParentPath     string `json:"parent_path"`
	ParentQualname string `json:"parent_qualname"`
}

// ChainRef names one ancestor in an inheritance chain.
type ChainRef struct {
	Path     string `json:"path"`
	Qualname string `json:"qualname"`
}

// ContainerChanges records container-level changes in an aggregate trigger.
type ContainerChanges struct {
	Renamed          bool   `json:"renamed,omitempty"`
	OldQualname      string `json:"old_qualname,omitempty"`
	NewQualname      string `json:"new_qualname,omitempty"`
	InterfaceChanged bool   `json:"interface_changed,omitempty"`
}

// Details is the reason-dependent payload of a trigger. Which fields are
// populated follows the trigger's change type: AMBIGUOUS uses Error or
// Locations, AGGREGATE uses the container fields, and inherited triggers
// use Source, InheritedChanges, and InheritanceChain.
type Details struct {
	Error     string   `json:"error,omitempty"`
	Locations []string `json:"locations,omitempty"`

	ContainerQualname         string            `json:"container_qualname,omitempty"`
	BaselineContainerQualname string            `json:"baseline_container_qualname,omitempty"`
	ContainerChanges          *ContainerChanges `json:"container_changes,omitempty"`
	MemberChanges             []MemberChange    `json:"member_changes,omitempty"`
	MembersAdded              []string          `json:"members_added,omitempty"`
	MembersRemoved            []string          `json:"members_removed,omitempty"`

	Source           string            `json:"source,omitempty"`
	InheritedChanges []InheritedChange `json:"inherited_changes,omitempty"`
	InheritanceChain []ChainRef        `json:"inheritance_chain,omitempty"`
}

// Trigger asserts that a subscription was semantically affected.
type Trigger struct {
	SubscriptionID string
	Subscription   subs.Subscription
	Path           string
	StartLine      int
	EndLine        int
	Reasons        []string
	MatchingHunks  []diffparse.Hunk
	ChangeType     ChangeType
	Details        *Details
}

// Proposal is a safe, reviewable location change for a subscription.
type Proposal struct {
	SubscriptionID string
	Subscription   subs.Subscription
	OldPath        string
	OldStart       int
	OldEnd         int
	NewPath        string
	NewStart       int
	NewEnd         int
	Reasons        []string
	Confidence     Confidence
	// Shift is the net line delta for line_shift proposals, zero
	// otherwise.
	Shift int
	// NewQualname and NewKind are set when the construct was found under
	// a different identity.
	NewQualname string
	NewKind     semantic.Kind
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	BaseRef string
	// TargetRef is the literal "WORKING" when the right-hand side was
	// the working tree.
	TargetRef string
	Triggers  []Trigger
	Proposals []Proposal
	Unchanged []subs.Subscription
}

// addReason appends a reason if not already present.
func addReason(reasons []string, reason string) []string {
	for _, r := range reasons {
		if r == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}
