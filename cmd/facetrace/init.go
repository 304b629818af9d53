package main

import (
	"fmt"
	"os"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a platform template file",
		Long: `Init writes the built-in platform template set to a .facetrace file
so it can be edited: add platforms, adjust avatar selectors, or
disable platforms that misbehave.

The generated file includes every built-in platform with its URL
pattern, existence strategy, and avatar selector. Platforms that need
JavaScript rendering (twitter, instagram) ship disabled.

Examples:
  # Create .facetrace in the current directory
  facetrace init

  # Create the template file at a specific path
  facetrace init -o mytemplates.yaml

  # Force overwrite an existing file
  facetrace init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultTemplateFile,
		"Output file path for the platform templates")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing template file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("template file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	if err := config.WriteTemplates(config.DefaultTemplates(), outputPath); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created template file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to customize the hunt:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Add platforms with url_pattern and {} as the username placeholder")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Adjust avatar_selector for platforms with custom layouts")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Set enabled: false for platforms to skip")

	return nil
}
