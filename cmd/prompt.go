/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/config"
	promptpkg "github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/prompt"
)

var withDir bool

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "List available question templates",
	Long: `List all available question templates from the configured prompt directories.
This command recursively scans all prompt directories specified in the configuration and displays
the names of available .toml template files, including those in subdirectories.

The template files should be in TOML format with the following structure:
description = "Optional description"
question = "Question text with optional {{input}} placeholder"

Template names are displayed as relative paths from the prompt directory root.
For example, a file at ${prompt_dir}/foo/bar.toml will be displayed as "foo/bar".
When the same name exists in several directories, the last directory wins.

If you want to see which directory each template comes from, use the --with-dir option.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Prompt directories: %v\n", cfg.PromptDirs)
		}

		entries, shadowed, err := promptpkg.List(cfg.PromptDirs)
		if err != nil {
			return err
		}
		if verbose {
			for _, s := range shadowed {
				fmt.Fprintf(os.Stderr, "Warning: template '%s' in %s is overridden by a later directory\n", s.Name, s.Dir)
			}
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

		if len(entries) == 0 {
			fmt.Println("No question templates found.")
			fmt.Println("Create .toml files in the following directories:")
			for _, promptDir := range cfg.PromptDirs {
				fmt.Printf("  - %s\n", promptDir)
			}
			return nil
		}

		fmt.Printf("Available question templates (%d found):\n\n", len(entries))
		for _, e := range entries {
			line := "  " + e.Name
			if p, err := promptpkg.LoadPrompt(e.Path); err == nil && p.Description != "" {
				line += " - " + p.Description
			}
			if withDir {
				line += fmt.Sprintf(" (from %s)", e.Dir)
			}
			fmt.Println(line)
		}

		fmt.Printf("\nUse a template with: lxassist ask --prompt <name> [question]\n")
		fmt.Printf("Example: lxassist ask --prompt explain \"tar -xzvf\"\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().BoolVar(&withDir, "with-dir", false, "Show the directory each template was found in")
}
