// Package report serializes scan results into the update-document JSON
// exchanged with the updater, and into human-readable Markdown summaries.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/codewatch/internal/detect"
	"github.com/anthropics/codewatch/internal/diffparse"
	"github.com/anthropics/codewatch/internal/semantic"
)

// DocSchemaVersion is the update document schema this build produces.
const DocSchemaVersion = 1

// TriggerDoc is the serialized form of a trigger.
type TriggerDoc struct {
	SubscriptionID string            `json:"subscription_id"`
	Path           string            `json:"path"`
	StartLine      int               `json:"start_line"`
	EndLine        int               `json:"end_line"`
	Reasons        []string          `json:"reasons"`
	Label          string            `json:"label,omitempty"`
	MatchingHunks  []diffparse.Hunk  `json:"matching_hunks"`
	ChangeType     detect.ChangeType `json:"change_type,omitempty"`
	Details        *detect.Details   `json:"details,omitempty"`
}

// ProposalDoc is the serialized form of a proposal.
type ProposalDoc struct {
	SubscriptionID string            `json:"subscription_id"`
	OldPath        string            `json:"old_path"`
	OldStart       int               `json:"old_start"`
	OldEnd         int               `json:"old_end"`
	NewPath        string            `json:"new_path"`
	NewStart       int               `json:"new_start"`
	NewEnd         int               `json:"new_end"`
	Reasons        []string          `json:"reasons"`
	Confidence     detect.Confidence `json:"confidence"`
	Shift          int               `json:"shift"`
	Label          string            `json:"label,omitempty"`
	NewQualname    string            `json:"new_qualname,omitempty"`
	NewKind        semantic.Kind     `json:"new_kind,omitempty"`
}

// UpdateDoc is the JSON update document exchanged with the updater.
type UpdateDoc struct {
	SchemaVersion int           `json:"schema_version"`
	GeneratedAt   string        `json:"generated_at"`
	BaseRef       string        `json:"base_ref"`
	TargetRef     string        `json:"target_ref"`
	Triggers      []TriggerDoc  `json:"triggers"`
	Proposals     []ProposalDoc `json:"proposals"`
}

// BuildUpdateDoc converts a scan result into its update document.
func BuildUpdateDoc(result *detect.ScanResult) *UpdateDoc {
	doc := &UpdateDoc{
		SchemaVersion: DocSchemaVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		BaseRef:       result.BaseRef,
		TargetRef:     result.TargetRef,
		Triggers:      []TriggerDoc{},
		Proposals:     []ProposalDoc{},
	}

	for _, t := range result.Triggers {
		hunks := t.MatchingHunks
		if hunks == nil {
			hunks = []diffparse.Hunk{}
		}
		doc.Triggers = append(doc.Triggers, TriggerDoc{
			SubscriptionID: t.SubscriptionID,
			Path:           t.Path,
			StartLine:      t.StartLine,
			EndLine:        t.EndLine,
			Reasons:        t.Reasons,
			Label:          t.Subscription.Label,
			MatchingHunks:  hunks,
			ChangeType:     t.ChangeType,
			Details:        t.Details,
		})
	}

	for _, p := range result.Proposals {
		doc.Proposals = append(doc.Proposals, ProposalDoc{
			SubscriptionID: p.SubscriptionID,
			OldPath:        p.OldPath,
			OldStart:       p.OldStart,
			OldEnd:         p.OldEnd,
			NewPath:        p.NewPath,
			NewStart:       p.NewStart,
			NewEnd:         p.NewEnd,
			Reasons:        p.Reasons,
			Confidence:     p.Confidence,
			Shift:          p.Shift,
			Label:          p.Subscription.Label,
			NewQualname:    p.NewQualname,
			NewKind:        p.NewKind,
		})
	}

	return doc
}

// WriteJSON writes the update document to path, creating parent
// directories as needed.
func WriteJSON(doc *UpdateDoc, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadJSON reads an update document from path.
func ReadJSON(path string) (*UpdateDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc UpdateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse update document %s: %w", path, err)
	}
	return &doc, nil
}
