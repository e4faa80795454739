/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/engine"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/history"
	promptpkg "github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/prompt"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

var (
	chatQuestion    string
	chatPrompt      string
	chatArgFlags    []string
	chatMetricsAddr string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the assistant",
	Long: `Start an interactive chat with the Linux command assistant.

The chat opens with your previous conversations (or a greeting when there are
none). Questions that fail to get an answer stay in the chat as numbered error
entries and can be retried with /retry.

Type '/help' inside the chat for the list of commands.

If --prompt is given, every question is formatted with that template before it
is sent. With --metrics-addr (or metrics_addr in the config) Prometheus
metrics are served on /metrics while the chat is open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := chatMetricsAddr
		if addr == "" {
			addr = a.cfg.MetricsAddr
		}
		if addr != "" {
			shutdown := serveMetrics(addr, a.metrics.Handler(), a.log)
			defer shutdown()
		}

		var nav atomic.Int32
		eng := a.newEngine(engine.WithNavigator(func(n engine.Navigation) {
			nav.Store(int32(n))
		}))
		defer eng.Close()

		if err := eng.Start(ctx); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return fmt.Errorf("not logged in: run 'lxassist login --id <user-id>' first")
			}
			return fmt.Errorf("starting chat: %w", err)
		}

		c := &chatSession{
			eng:        eng,
			palette:    newPalette(a.prefs.DarkMode()),
			promptDirs: a.cfg.PromptDirs,
			out:        os.Stdout,
			navigation: func() engine.Navigation { return engine.Navigation(nav.Load()) },
		}
		return c.run(ctx, os.Stdin)
	},
}

type chatSession struct {
	eng        *engine.Engine
	palette    palette
	promptDirs []string
	out        io.Writer
	navigation func() engine.Navigation
}

func (c *chatSession) run(ctx context.Context, in io.Reader) error {
	snap := c.eng.Snapshot()
	fmt.Fprintf(os.Stderr, "\n=== lxassist [%s] %s ===\n", snap.Session.GetDisplayName(), badge(snap.Connection))
	fmt.Fprintf(os.Stderr, "Backend: %s\n", snap.BaseURL)
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(os.Stderr, "===================================\n\n")
	renderTimeline(c.out, c.palette, snap.Timeline)
	fmt.Fprintln(c.out)

	if chatQuestion != "" {
		if c.submit(ctx, chatQuestion) {
			return nil
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return nil
		}

		fmt.Fprint(os.Stderr, "You> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			c.eng.LeaveChat()
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		var done bool
		if strings.HasPrefix(input, "/") {
			done = c.handleCommand(ctx, input)
		} else {
			done = c.submit(ctx, input)
		}
		if done {
			return nil
		}
	}
}

// submit sends one question. It reports whether the chat must end.
func (c *chatSession) submit(ctx context.Context, input string) bool {
	question, err := promptpkg.FormatQuestion(input, chatPrompt, c.promptDirs, chatArgFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	var d *engine.Delivery
	withSpinner(func() { d, err = c.eng.Submit(ctx, question) })

	switch {
	case errors.Is(err, engine.ErrSubmitDisabled):
		fmt.Fprintf(os.Stderr, "Error: %v (type /reconnect)\n", err)
		return false
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	return c.showDelivery(d)
}

func (c *chatSession) showDelivery(d *engine.Delivery) bool {
	if d.SessionInvalidated || c.navigation() == engine.NavigateAuth {
		fmt.Fprintln(os.Stderr, "Your session is no longer valid. Log in again with 'lxassist login'.")
		return true
	}
	if d.Reply != nil {
		idx := errorIndexes(c.eng.Snapshot().Timeline)
		renderEntry(c.out, c.palette, *d.Reply, idx[d.Reply.ID])
		fmt.Fprintln(c.out)
	}
	return false
}

// handleCommand processes a slash command. It reports whether the chat must
// end.
func (c *chatSession) handleCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	command := strings.ToLower(fields[0])
	rest := fields[1:]

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /retry [n]       - Retry error entry n (default: the latest)")
		fmt.Fprintln(os.Stderr, "  /reconnect       - Check the backend again")
		fmt.Fprintln(os.Stderr, "  /endpoint [url]  - Show or change the backend URL ('default' resets it)")
		fmt.Fprintln(os.Stderr, "  /status          - Show connection and session information")
		fmt.Fprintln(os.Stderr, "  /history         - List your conversations")
		fmt.Fprintln(os.Stderr, "  /offline         - Tell the client the network went away")
		fmt.Fprintln(os.Stderr, "  /online          - Tell the client the network is back")
		fmt.Fprintln(os.Stderr, "  /logout          - Log out and leave the chat")
		fmt.Fprintln(os.Stderr, "  /help, /h        - Show this help message")
		fmt.Fprintln(os.Stderr, "  /exit, /quit     - Leave the chat")
		fmt.Fprintln(os.Stderr, "")
		return false

	case "/retry", "/r":
		n := 0
		if len(rest) > 0 {
			v, err := strconv.Atoi(rest[0])
			if err != nil || v < 1 {
				fmt.Fprintf(os.Stderr, "Invalid entry number: %s\n", rest[0])
				return false
			}
			n = v
		}
		id, ok := nthError(c.eng.Snapshot().Timeline, n)
		if !ok {
			fmt.Fprintln(os.Stderr, "Nothing to retry.")
			return false
		}

		var (
			d   *engine.Delivery
			err error
		)
		withSpinner(func() { d, err = c.eng.Retry(ctx, id) })
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		if d.Err != nil && !d.SessionInvalidated {
			fmt.Fprintf(os.Stderr, "Retry failed: %s\n", engine.Cause(d.Err))
			return false
		}
		return c.showDelivery(d)

	case "/reconnect":
		var err error
		withSpinner(func() { err = c.eng.Reconnect(ctx) })
		if err != nil {
			fmt.Fprintf(os.Stderr, "Backend still unreachable: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, badge(c.eng.Snapshot().Connection))
		return false

	case "/endpoint":
		if len(rest) == 0 {
			fmt.Fprintln(c.out, c.eng.Snapshot().BaseURL)
			return false
		}
		var (
			u   string
			err error
		)
		if strings.EqualFold(rest[0], "default") {
			u, err = c.eng.ResetEndpoint(ctx)
		} else {
			u, err = c.eng.ChangeEndpoint(ctx, rest[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(os.Stderr, "Backend set to %s %s\n", u, badge(c.eng.Snapshot().Connection))
		return false

	case "/status", "/s":
		fmt.Fprintln(os.Stderr)
		renderStatus(os.Stderr, c.eng.Snapshot())
		fmt.Fprintln(os.Stderr)
		return false

	case "/history":
		snap := c.eng.Snapshot()
		if len(snap.Conversations) == 0 {
			fmt.Fprintln(os.Stderr, "No conversations yet.")
			return false
		}
		for _, r := range snap.Conversations {
			marker := " "
			if r.ID.String() == snap.CurrentConversationID {
				marker = "*"
			}
			fmt.Fprintf(c.out, "%s %-12s %s  %s\n", marker, r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04"), history.Summary(r.Question, 50))
		}
		return false

	case "/offline":
		if err := c.eng.NetworkChanged(ctx, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, badge(c.eng.Snapshot().Connection))
		return false

	case "/online":
		if err := c.eng.NetworkChanged(ctx, true); err != nil {
			fmt.Fprintf(os.Stderr, "Backend unreachable: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, badge(c.eng.Snapshot().Connection))
		return false

	case "/logout":
		if err := c.eng.Logout(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Fprintln(os.Stderr, "Logged out.")
		return true

	case "/exit", "/quit", "/q":
		c.eng.LeaveChat()
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return true

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
		return false
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatQuestion, "question", "q", "", "Question to ask as soon as the chat opens")
	chatCmd.Flags().StringVarP(&chatPrompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	chatCmd.Flags().StringArrayVar(&chatArgFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
}
