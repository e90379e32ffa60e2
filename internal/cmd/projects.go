package cmd

import (
	"fmt"

	"github.com/anthropics/codewatch/internal/project"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the registry of watched repositories",
}

var projectsAddName string

var projectsAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := project.NewStore("")
		if err != nil {
			return err
		}
		p, err := store.Add(projectsAddName, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Registered project %s (%s)\n", p.Name, p.Path)
		return nil
	},
}

var projectsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List registered projects",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := project.NewStore("")
		if err != nil {
			return err
		}
		projects, err := store.List()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects registered.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %-20s %s\n", shortID(p.ID), p.Name, p.Path)
		}
		return nil
	},
}

var projectsRemoveCmd = &cobra.Command{
	Use:     "rm <id-or-name>",
	Aliases: []string{"remove"},
	Short:   "Remove a project from the registry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := project.NewStore("")
		if err != nil {
			return err
		}
		if err := store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed project %s\n", args[0])
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsRemoveCmd)
	projectsAddCmd.Flags().StringVar(&projectsAddName, "name", "", "Display name (default: directory name)")
	rootCmd.AddCommand(projectsCmd)
}
