package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a subscription",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}
		if err := ctx.store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed subscription %s\n", shortID(args[0]))
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a subscription (skipped by scans)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}
		if err := ctx.store.SetActive(args[0], false); err != nil {
			return err
		}
		fmt.Printf("Paused subscription %s\n", shortID(args[0]))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}
		if err := ctx.store.SetActive(args[0], true); err != nil {
			return err
		}
		fmt.Printf("Resumed subscription %s\n", shortID(args[0]))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a subscription's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		sub, err := ctx.store.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Println(formatSubscription(*sub))
		if sub.Description != "" {
			fmt.Printf("  Description: %s\n", sub.Description)
		}
		if sub.Semantic != nil {
			fmt.Printf("  Language:    %s\n", sub.Semantic.Language)
			fmt.Printf("  Interface:   %s\n", sub.Semantic.InterfaceHash)
			fmt.Printf("  Body:        %s\n", sub.Semantic.BodyHash)
			if sub.Semantic.IncludeMembers {
				fmt.Printf("  Members:     %d tracked\n", len(sub.Semantic.BaselineMembers))
			}
		}
		if sub.Anchors != nil && len(sub.Anchors.Lines) > 0 {
			fmt.Println("  Watched lines:")
			for _, line := range sub.Anchors.Lines {
				if len(line) > 76 {
					line = line[:73] + "..."
				}
				fmt.Printf("    | %s\n", line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(showCmd)
}
