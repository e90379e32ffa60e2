package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/codewatch/internal/detect"
	"github.com/anthropics/codewatch/internal/diffparse"
	"github.com/anthropics/codewatch/internal/subs"
)

func sampleResult() *detect.ScanResult {
	sub := subs.New("src/config.py", 4, 5)
	sub.Label = "retries"

	return &detect.ScanResult{
		BaseRef:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TargetRef: "WORKING",
		Triggers: []detect.Trigger{{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			Path:           sub.Path,
			StartLine:      4,
			EndLine:        5,
			Reasons:        []string{detect.ReasonOverlapHunk},
			MatchingHunks:  []diffparse.Hunk{{OldStart: 4, OldCount: 1, NewStart: 4, NewCount: 1}},
		}},
		Proposals: []detect.Proposal{{
			SubscriptionID: sub.ID,
			Subscription:   sub,
			OldPath:        sub.Path,
			OldStart:       4,
			OldEnd:         5,
			NewPath:        sub.Path,
			NewStart:       5,
			NewEnd:         6,
			Reasons:        []string{detect.ReasonLineShift},
			Confidence:     detect.ConfidenceHigh,
			Shift:          1,
		}},
		Unchanged: []subs.Subscription{subs.New("other.py", 1, 1)},
	}
}

func TestUpdateDocRoundTrip(t *testing.T) {
	doc := BuildUpdateDoc(sampleResult())

	if doc.SchemaVersion != DocSchemaVersion {
		t.Errorf("schema version = %d", doc.SchemaVersion)
	}
	if len(doc.Triggers) != 1 || len(doc.Proposals) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Triggers[0].Label != "retries" {
		t.Errorf("trigger label = %q", doc.Triggers[0].Label)
	}
	if doc.Proposals[0].Shift != 1 {
		t.Errorf("proposal shift = %d", doc.Proposals[0].Shift)
	}

	path := filepath.Join(t.TempDir(), "docs", "update.json")
	if err := WriteJSON(doc, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Triggers[0].SubscriptionID != doc.Triggers[0].SubscriptionID {
		t.Error("round trip lost trigger id")
	}
	if loaded.Proposals[0].NewStart != 5 {
		t.Errorf("round trip proposal = %+v", loaded.Proposals[0])
	}
}

func TestMarkdownReport(t *testing.T) {
	md := Markdown(sampleResult())

	for _, want := range []string{
		"# Code Subscription Scan Report",
		"**Triggered:** 1",
		"overlap_hunk",
		"line_shift",
		"(retries)",
		"Unchanged Subscriptions",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
