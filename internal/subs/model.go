// Package subs holds the subscription data model and its on-disk store.
//
// A subscription watches a region of source, either as a byte-exact line
// range or as a named semantic construct located by content fingerprints.
// The store keeps all subscriptions for one repository in
// .codewatch/subscriptions.json together with the baseline ref they are
// anchored to.
package subs

import (
	"time"

	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/google/uuid"
)

// SchemaVersion is the subscriptions file schema this build reads and
// writes.
const SchemaVersion = 1

// Anchor captures context lines around a watched range. Anchors are purely
// diagnostic: they are shown in reports and sanity-checked by the updater,
// but never used to decide triggering.
type Anchor struct {
	ContextBefore []string `json:"context_before"`
	Lines         []string `json:"lines"`
	ContextAfter  []string `json:"context_after"`
}

// SemanticTarget identifies a construct by fingerprints rather than line
// numbers.
type SemanticTarget struct {
	Language      string        `json:"language"`
	Kind          semantic.Kind `json:"kind"`
	Qualname      string        `json:"qualname"`
	Role          string        `json:"role,omitempty"`
	InterfaceHash string        `json:"interface_hash"`
	BodyHash      string        `json:"body_hash"`
	// FingerprintVersion is reserved for schema evolution of the hashing
	// rules.
	FingerprintVersion int `json:"fingerprint_version"`

	// Container tracking flags.
	IncludeMembers  bool `json:"include_members,omitempty"`
	IncludePrivate  bool `json:"include_private,omitempty"`
	TrackDecorators bool `json:"track_decorators,omitempty"`

	// BaselineMembers holds member fingerprints keyed by relative id,
	// populated at creation for container subscriptions.
	BaselineMembers map[string]semantic.MemberFingerprint `json:"baseline_members,omitempty"`
	// BaselineContainerQualname is the container qualname the baseline
	// members were captured under, so a container rename does not
	// invalidate member bookkeeping.
	BaselineContainerQualname string `json:"baseline_container_qualname,omitempty"`
}

// Subscription is a watched region of a repository.
type Subscription struct {
	ID          string          `json:"id"`
	Path        string          `json:"path"` // repo-relative, POSIX-style
	StartLine   int             `json:"start_line"`
	EndLine     int             `json:"end_line"`
	Label       string          `json:"label,omitempty"`
	Description string          `json:"description,omitempty"`
	Anchors     *Anchor         `json:"anchors,omitempty"`
	Semantic    *SemanticTarget `json:"semantic,omitempty"`
	Active      bool            `json:"active"`
	// TriggerOnDuplicate makes ambiguous cross-file matches surface as a
	// trigger instead of being silently skipped.
	TriggerOnDuplicate bool   `json:"trigger_on_duplicate,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// RepoState is the repository-level bookkeeping in the subscriptions file.
type RepoState struct {
	BaselineRef string `json:"baseline_ref"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// File is the full persisted document: repo state plus subscriptions.
type File struct {
	SchemaVersion int            `json:"schema_version"`
	Repo          RepoState      `json:"repo"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// New creates a subscription with a generated id and timestamps.
func New(path string, startLine, endLine int) Subscription {
	now := UTCNow()
	return Subscription{
		ID:        uuid.NewString(),
		Path:      path,
		StartLine: startLine,
		EndLine:   endLine,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFile creates an empty subscriptions file anchored at baselineRef.
func NewFile(baselineRef string) *File {
	now := UTCNow()
	return &File{
		SchemaVersion: SchemaVersion,
		Repo: RepoState{
			BaselineRef: baselineRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Subscriptions: []Subscription{},
	}
}

// UTCNow returns the current UTC time as an ISO-8601 Z string.
func UTCNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
