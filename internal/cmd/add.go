package cmd

import (
	"fmt"
	"strings"

	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
	"github.com/spf13/cobra"
)

var (
	addLabel              string
	addDescription        string
	addMembers            bool
	addIncludePrivate     bool
	addTrackDecorators    bool
	addTriggerOnDuplicate bool
)

var addCmd = &cobra.Command{
	Use:   "add <location>",
	Short: "Add a subscription",
	Long: `Adds a subscription at a location, captured against the baseline ref.

Line-based locations watch an exact range:
  cw add src/config.py:42
  cw add src/config.py:42-45

Semantic locations watch a named construct by content fingerprint:
  cw add "src/models.py::User"
  cw add "src/models.py::method:User.validate"
  cw add "src/Calculator.java::method:Calculator.add(int,int)"

With --members the subscription becomes a container subscription tracking
every direct member of a class, interface, or enum.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		file, err := ctx.store.Load()
		if err != nil {
			return err
		}
		baseline := file.Repo.BaselineRef

		var sub subs.Subscription
		if strings.Contains(args[0], "::") {
			sub, err = buildSemanticSubscription(ctx, baseline, args[0])
		} else {
			sub, err = buildLineSubscription(ctx, baseline, args[0])
		}
		if err != nil {
			return err
		}

		sub.Label = addLabel
		sub.Description = addDescription
		sub.TriggerOnDuplicate = addTriggerOnDuplicate

		if err := ctx.store.Add(sub); err != nil {
			return err
		}

		fmt.Printf("Added subscription %s at %s:%d-%d\n",
			shortID(sub.ID), sub.Path, sub.StartLine, sub.EndLine)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addLabel, "label", "", "Short label for reports")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Longer description")
	addCmd.Flags().BoolVar(&addMembers, "members", false, "Track every direct member of the container")
	addCmd.Flags().BoolVar(&addIncludePrivate, "include-private", false, "Include private members (Python underscore convention)")
	addCmd.Flags().BoolVar(&addTrackDecorators, "track-decorators", false, "Trigger on container decorator/inheritance changes")
	addCmd.Flags().BoolVar(&addTriggerOnDuplicate, "trigger-on-duplicate", false, "Trigger when the construct is found in multiple files")
	rootCmd.AddCommand(addCmd)
}

// buildLineSubscription captures a line-based subscription with its anchor.
func buildLineSubscription(ctx *cmdContext, baseline, location string) (subs.Subscription, error) {
	path, startLine, endLine, err := subs.ParseLocation(location)
	if err != nil {
		return subs.Subscription{}, err
	}

	lines, err := ctx.repo.ShowFile(baseline, path)
	if err != nil {
		return subs.Subscription{}, err
	}
	if endLine > len(lines) {
		return subs.Subscription{}, &subs.InvalidLineRangeError{
			Start: startLine, End: endLine,
			Reason: fmt.Sprintf("file has only %d lines at the baseline", len(lines)),
		}
	}

	sub := subs.New(path, startLine, endLine)
	anchor := subs.ExtractAnchor(lines, startLine, endLine, ctx.config.Scan.ContextLines)
	sub.Anchors = &anchor
	return sub, nil
}

// buildSemanticSubscription locates the construct at the baseline and
// captures its fingerprints (and member baseline for containers).
func buildSemanticSubscription(ctx *cmdContext, baseline, location string) (subs.Subscription, error) {
	path, qualname, kind, err := subs.ParseSemanticLocation(location)
	if err != nil {
		return subs.Subscription{}, err
	}

	language, indexer, err := semantic.GetIndexerForPath(path)
	if err != nil {
		return subs.Subscription{}, err
	}

	lines, err := ctx.repo.ShowFile(baseline, path)
	if err != nil {
		return subs.Subscription{}, err
	}
	source := joinLines(lines)

	construct := indexer.FindConstruct(source, path, qualname, kind)
	if construct == nil {
		return subs.Subscription{}, &subs.InvalidLocationError{
			Location: location,
			Reason:   fmt.Sprintf("construct %q not found at the baseline", qualname),
		}
	}

	if addMembers && !construct.Kind.IsContainer() {
		return subs.Subscription{}, &subs.InvalidLocationError{
			Location: location,
			Reason:   fmt.Sprintf("--members requires a class, interface, or enum (got %s)", construct.Kind),
		}
	}

	target := &subs.SemanticTarget{
		Language:           string(language),
		Kind:               construct.Kind,
		Qualname:           construct.Qualname,
		Role:               construct.Role,
		InterfaceHash:      construct.InterfaceHash,
		BodyHash:           construct.BodyHash,
		FingerprintVersion: 1,
		IncludeMembers:     addMembers,
		IncludePrivate:     addIncludePrivate,
		TrackDecorators:    addTrackDecorators,
	}

	if addMembers {
		constructs := indexer.IndexFile(source, path)
		members := indexer.ContainerMembers(source, path, construct.Qualname, addIncludePrivate, constructs)

		target.BaselineContainerQualname = construct.Qualname
		target.BaselineMembers = map[string]semantic.MemberFingerprint{}
		for _, m := range members {
			if rel, ok := semantic.RelativeID(construct.Qualname, m.Qualname); ok {
				target.BaselineMembers[rel] = m.Fingerprint()
			}
		}
	}

	sub := subs.New(path, construct.StartLine, construct.EndLine)
	sub.Semantic = target
	anchor := subs.ExtractAnchor(lines, construct.StartLine, construct.EndLine, ctx.config.Scan.ContextLines)
	sub.Anchors = &anchor
	return sub, nil
}
