package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/codewatch/internal/detect"
)

// WriteMarkdown writes a human-readable scan summary to path.
func WriteMarkdown(result *detect.ScanResult, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Markdown(result)), 0o644)
}

// Markdown renders a scan result as a Markdown report.
func Markdown(result *detect.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Code Subscription Scan Report\n\n")
	fmt.Fprintf(&b, "**Base:** `%s`\n", shortRef(result.BaseRef))
	fmt.Fprintf(&b, "**Target:** `%s`\n", shortRef(result.TargetRef))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", time.Now().UTC().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- **Triggered:** %d\n", len(result.Triggers))
	fmt.Fprintf(&b, "- **Proposed Updates:** %d\n", len(result.Proposals))
	fmt.Fprintf(&b, "- **Unchanged:** %d\n\n", len(result.Unchanged))

	if len(result.Triggers) > 0 {
		fmt.Fprintf(&b, "## Triggered Subscriptions\n\n")
		fmt.Fprintf(&b, "These subscriptions were triggered because the watched code changed:\n\n")

		for _, t := range result.Triggers {
			fmt.Fprintf(&b, "### `%s`%s\n\n", shortID(t.SubscriptionID), labelSuffix(t.Subscription.Label))
			fmt.Fprintf(&b, "- **Location:** `%s:%d-%d`\n", t.Path, t.StartLine, t.EndLine)
			fmt.Fprintf(&b, "- **Reason:** %s\n", strings.Join(t.Reasons, ", "))
			if t.ChangeType != "" {
				fmt.Fprintf(&b, "- **Change type:** %s\n", t.ChangeType)
			}
			if t.Subscription.Description != "" {
				fmt.Fprintf(&b, "- **Description:** %s\n", t.Subscription.Description)
			}

			if t.Subscription.Anchors != nil && len(t.Subscription.Anchors.Lines) > 0 {
				fmt.Fprintf(&b, "\n**Watched lines:**\n```\n")
				for _, line := range t.Subscription.Anchors.Lines {
					fmt.Fprintln(&b, line)
				}
				fmt.Fprintf(&b, "```\n")
			}
			fmt.Fprintln(&b)
		}
	}

	if len(result.Proposals) > 0 {
		fmt.Fprintf(&b, "## Proposed Updates\n\n")
		fmt.Fprintf(&b, "These subscriptions need their locations updated (no content changes):\n\n")

		for _, p := range result.Proposals {
			fmt.Fprintf(&b, "### `%s`%s\n\n", shortID(p.SubscriptionID), labelSuffix(p.Subscription.Label))
			fmt.Fprintf(&b, "- **Old:** `%s:%d-%d`\n", p.OldPath, p.OldStart, p.OldEnd)
			fmt.Fprintf(&b, "- **New:** `%s:%d-%d`\n", p.NewPath, p.NewStart, p.NewEnd)
			fmt.Fprintf(&b, "- **Reason:** %s\n", strings.Join(p.Reasons, ", "))
			fmt.Fprintf(&b, "- **Confidence:** %s\n", p.Confidence)
			if p.Shift != 0 {
				fmt.Fprintf(&b, "- **Shift:** %+d lines\n", p.Shift)
			}
			if p.NewQualname != "" {
				fmt.Fprintf(&b, "- **New qualname:** `%s`\n", p.NewQualname)
			}
			fmt.Fprintln(&b)
		}
	}

	if len(result.Unchanged) > 0 {
		fmt.Fprintf(&b, "## Unchanged Subscriptions\n\n")
		fmt.Fprintf(&b, "These subscriptions were not affected by changes:\n\n")

		for _, sub := range result.Unchanged {
			fmt.Fprintf(&b, "- `%s`%s - `%s:%d-%d`\n",
				shortID(sub.ID), labelSuffix(sub.Label), sub.Path, sub.StartLine, sub.EndLine)
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}

// shortRef truncates a commit id for display.
func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}

// shortID truncates a subscription id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// labelSuffix formats an optional label.
func labelSuffix(label string) string {
	if label == "" {
		return ""
	}
	return " (" + label + ")"
}
