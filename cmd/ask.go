/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/engine"
	promptpkg "github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/prompt"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

var (
	prompt    string
	argFlags  []string
	useEditor bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a single question",
	Long: `Ask the Linux command assistant a single question and print the answer.

If no question is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the question.

For a conversation with retries and history, use 'lxassist chat' instead.

The prompt file should be in TOML format with the following structure:
description = "Optional description shown by 'lxassist prompt'"
question = "Question text with optional {{input}} placeholder"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var input string
		switch {
		case useEditor:
			msg, err := getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("reading message from editor: %w", err)
			}
			input = msg
		case len(args) > 0:
			input = strings.Join(args, " ")
		default:
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			input = strings.TrimSpace(string(data))
		}

		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		question, err := promptpkg.FormatQuestion(input, prompt, a.cfg.PromptDirs, argFlags)
		if err != nil {
			return fmt.Errorf("formatting question: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Question: %s\n", question)
		}

		eng := a.newEngine()
		defer eng.Close()

		if err := eng.Start(ctx); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return fmt.Errorf("not logged in: run 'lxassist login --id <user-id>' first")
			}
			return fmt.Errorf("starting session: %w", err)
		}

		var d *engine.Delivery
		withSpinner(func() { d, err = eng.Submit(ctx, question) })
		if err != nil {
			return fmt.Errorf("asking: %w", err)
		}

		switch {
		case d.SessionInvalidated:
			return fmt.Errorf("your session is no longer valid: log in again with 'lxassist login'")
		case d.Err != nil:
			return fmt.Errorf("no answer: %s", engine.Cause(d.Err))
		}
		fmt.Println(d.Reply.Content)
		return nil
	},
}

func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	tmpFile, err := os.CreateTemp("", "lxassist-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	askCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	askCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose the question")
}
