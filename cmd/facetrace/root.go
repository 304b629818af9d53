// Package main provides the entry point for the facetrace CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for facetrace.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facetrace",
		Short: "Username hunting and face indexing across public platforms",
		Long: `Facetrace probes public platforms for usernames, harvests avatar
candidates from the profiles it finds, and builds a searchable face
index from them.

A hunt reports where a username exists; with an embedding service
configured it also indexes the faces it finds, so a later search can
match a photograph against every profile ever hunted.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewHuntCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
