/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/history"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse your past conversations",
	Long: `Browse the conversations the backend keeps for the logged-in user.

Each conversation is one question and its answer.`,
}

// historyListCmd represents the history list command
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long:  `List conversations sorted by most recent first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := fetchHistory(cmd.Context())
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No conversations found.")
			fmt.Println("\nAsk a question with:")
			fmt.Println("  lxassist ask \"your question\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tQUESTION")
		fmt.Fprintln(w, "--\t----\t--------")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04"),
				history.Summary(r.Question, 60),
			)
		}
		w.Flush()

		fmt.Println("\nUse 'lxassist history show <id>' to view a conversation.")
		return nil
	},
}

// historyShowCmd represents the history show command
var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one conversation",
	Long: `Show the question and answer of one conversation.

The ID can be a prefix of the conversation ID, the full ID, or "latest" for the most recent conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := fetchHistory(cmd.Context())
		if err != nil {
			return err
		}

		r, err := history.Find(records, args[0])
		if err != nil {
			return fmt.Errorf("finding conversation: %w", err)
		}

		p := newPalette(true)
		fmt.Printf("Conversation: %s\n", r.ID)
		fmt.Printf("Date: %s\n\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%s\n%s\n\n", p.user.Sprint("You:"), r.Question)
		fmt.Printf("%s\n%s\n", p.assistant.Sprint("Assistant:"), r.Answer)
		return nil
	},
}

// fetchHistory loads the logged-in user's conversations, most recent first.
func fetchHistory(ctx context.Context) ([]backend.Conversation, error) {
	a, err := loadApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	s, err := a.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, fmt.Errorf("not logged in: run 'lxassist login --id <user-id>' first")
	}
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.HistoryTimeout)
	defer cancel()

	records, err := a.client.Conversations(fetchCtx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	return history.Sort(records), nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}
